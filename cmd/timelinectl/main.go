package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:   "timelinectl",
		Short: "Inspect and drive a timeline store",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a timeline config file")
	root.PersistentFlags().String("redis-addr", "127.0.0.1:6379", "redis address")

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	_ = v.BindPFlag("redis.addr", root.PersistentFlags().Lookup("redis-addr"))

	root.AddCommand(
		newInspectCmd(v),
		newProcessCmd(v),
		newSegmentCmd(v),
		newSeedCmd(v),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(v *viper.Viper) error {
	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	return v.ReadInConfig()
}
