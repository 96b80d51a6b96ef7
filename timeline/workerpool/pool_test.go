package workerpool

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResults(t *testing.T) {
	p := New(&Config{MaxWorkers: 10, QueueDepth: 10})

	fn := func(payload interface{}) (interface{}, error) {
		i := payload.(int)
		if i == 3 {
			return "found", nil
		}
		return nil, nil
	}
	payloads := []interface{}{1, 2, 3, 4, 5}

	results, err := p.RunAll(payloads, fn)
	assert.NoError(t, err)
	assert.Equal(t, []interface{}{"found"}, results)
}

func TestNoResults(t *testing.T) {
	p := New(&Config{MaxWorkers: 10, QueueDepth: 10})

	fn := func(payload interface{}) (interface{}, error) {
		return nil, nil
	}
	payloads := []interface{}{1, 2, 3, 4, 5}

	results, err := p.RunAll(payloads, fn)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestError(t *testing.T) {
	p := New(&Config{MaxWorkers: 1, QueueDepth: 10})

	ret := fmt.Errorf("blerg")
	fn := func(payload interface{}) (interface{}, error) {
		i := payload.(int)
		if i == 3 {
			return nil, ret
		}
		return nil, nil
	}
	payloads := []interface{}{1, 2, 3, 4, 5}

	results, err := p.RunAll(payloads, fn)
	assert.Empty(t, results)
	assert.Equal(t, ret, err)
}

func TestTooManyJobs(t *testing.T) {
	p := New(&Config{MaxWorkers: 10, QueueDepth: 3})

	fn := func(payload interface{}) (interface{}, error) {
		return nil, nil
	}
	payloads := []interface{}{1, 2, 3, 4, 5}

	results, err := p.RunAll(payloads, fn)
	assert.Nil(t, results)
	assert.Error(t, err)
}

func TestGoingHam(t *testing.T) {
	p := New(&Config{MaxWorkers: 100, QueueDepth: 10000})

	wg := &sync.WaitGroup{}
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn := func(payload interface{}) (interface{}, error) {
				i := payload.(int)
				time.Sleep(time.Duration(rand.Uint32()%10) * time.Millisecond)
				if i == 5 {
					return i, nil
				}
				return nil, nil
			}
			payloads := []interface{}{1, 2, 3, 4, 5}

			results, err := p.RunAll(payloads, fn)
			assert.NoError(t, err)
			assert.Equal(t, []interface{}{5}, results)
		}()
	}
	wg.Wait()
}

func TestShutdown(t *testing.T) {
	p := New(&Config{MaxWorkers: 1, QueueDepth: 10})

	fn := func(payload interface{}) (interface{}, error) {
		return nil, nil
	}
	payloads := make([]interface{}, 30)
	for i := range payloads {
		payloads[i] = i
	}
	_, _ = p.RunAll(payloads, fn)
	p.Shutdown()

	_, err := p.RunAll(payloads, fn)
	assert.Error(t, err)
}
