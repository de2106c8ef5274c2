package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagDef defines a command-line flag bound to a configuration key.
type (
	flagType interface {
		string | int | bool
	}

	flagDef[T flagType] struct {
		name         string
		viperKey     string
		defaultValue T
		description  string
	}
)

// Defaults live in configs/config.example.yaml; flags only override what was set explicitly.
var (
	stringFlags = []flagDef[string]{
		{"mode", "rollout.mode", "", "Execution mode, FORK or LIVE (env MODE)"},
		{"network", "rollout.network", "", "Network profile from the networks section"},
		{"store", "rollout.store-path", "", "Path of the JSON address record"},
		{"artifacts", "rollout.artifacts-dir", "", "Directory of compiled Hardhat artifacts"},
		{"log-level", "rollout.log-level", "", "Log level (debug, info, warn, error)"},
	}

	boolFlags = []flagDef[bool]{
		{"verify-wiring", "rollout.verify-wiring", false, "Read configuration back after every setup call"},
		{"force-rewire", "rollout.force-rewire", false, "Re-issue setup calls already recorded as done"},
	}
)

// declareFlags declares persistent flags on cmd and binds them to viper keys.
func declareFlags[T flagType](cmd *cobra.Command, flags []flagDef[T]) error {
	for _, flag := range flags {
		if err := declareFlag(cmd, flag); err != nil {
			return err
		}
	}
	return nil
}

func declareFlag[T flagType](cmd *cobra.Command, flag flagDef[T]) error {
	var zero T
	switch any(zero).(type) {
	case string:
		cmd.PersistentFlags().String(flag.name, any(flag.defaultValue).(string), flag.description)
	case int:
		cmd.PersistentFlags().Int(flag.name, any(flag.defaultValue).(int), flag.description)
	case bool:
		cmd.PersistentFlags().Bool(flag.name, any(flag.defaultValue).(bool), flag.description)
	}
	return viper.BindPFlag(flag.viperKey, cmd.PersistentFlags().Lookup(flag.name))
}
