// Package debugserver exposes a process's timeline state over HTTP: the
// prometheus metrics registered by the timeline package's promauto
// counters/histograms/gauges, and a JSON inspector for a single item.
package debugserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/murmuration/timelinekit/timeline"
)

// Server is a small gorilla/mux router over an Engine, meant for local
// debugging rather than production traffic.
type Server struct {
	router *mux.Router
	engine timeline.Engine
}

// New builds the router. Call ListenAndServe (via http.Server) or use
// Handler() directly in a test.
func New(engine timeline.Engine) *Server {
	s := &Server{router: mux.NewRouter(), engine: engine}

	s.router.Handle("/metrics", promhttp.Handler())
	s.router.HandleFunc("/debug/timeline/{itemId}", s.inspectItem).Methods(http.MethodGet)

	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

type inspectedItem struct {
	Base        *timeline.TimelineItemBase `json:"base"`
	Visit       *timeline.TimelineItemVisit `json:"visit,omitempty"`
	Trip        *timeline.TimelineItemTrip  `json:"trip,omitempty"`
	SampleCount int                         `json:"sampleCount"`
}

func (s *Server) inspectItem(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemId"]

	var out inspectedItem
	err := s.engine.Read(r.Context(), func(tx timeline.ReadTx) error {
		base, err := tx.ItemBase(r.Context(), itemID)
		if err != nil {
			return err
		}
		out.Base = base

		if base.IsVisit {
			out.Visit, err = tx.Visit(r.Context(), itemID)
		} else {
			out.Trip, err = tx.Trip(r.Context(), itemID)
		}
		if err != nil {
			return err
		}

		samples, err := tx.Samples(r.Context(), itemID)
		if err != nil {
			return err
		}
		out.SampleCount = len(samples)
		return nil
	})

	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
