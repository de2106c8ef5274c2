package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/minertopia/rollout/configs"
	"github.com/minertopia/rollout/internal/cli"
	"github.com/minertopia/rollout/internal/forknode"
	"github.com/minertopia/rollout/internal/logger"
)

const appName = "rollout"

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Deploy, wire and upgrade the Minertopia contracts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Initialize(slog.LevelInfo)

		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Join(err, errors.New("error reading .env"))
		}

		if err := loadConfig(); err != nil {
			return err
		}

		level, err := logger.ParseLevel(configs.Values.Rollout.LogLevel)
		if err != nil {
			return err
		}
		logger.Initialize(level)

		slog.With("config", configs.Values.Rollout).Debug("configuration loaded")

		return nil
	},
}

func loadConfig() error {
	viper.SetConfigType("yaml")
	if err := viper.ReadConfig(configs.Defaults()); err != nil {
		return errors.Join(err, errors.New("error reading embedded defaults"))
	}

	// ./config.json is the address record; the config file must not share its base name.
	viper.SetConfigName(appName)
	if execPath, err := os.Executable(); err == nil {
		viper.AddConfigPath(filepath.Dir(execPath))
	}
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	if err := viper.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			const errMsg = "error reading config file"
			slog.With("err", err.Error()).Error(errMsg)
			return errors.Join(err, errors.New(errMsg))
		}
		slog.Debug("no config file found, using defaults, environment and flags")
	} else {
		slog.With("config_file", viper.ConfigFileUsed()).Debug("config file loaded")
	}

	if err := viper.BindEnv("rollout.mode", "MODE"); err != nil {
		return err
	}

	if err := viper.Unmarshal(&configs.Values); err != nil {
		const errMsg = "unable to decode application config"
		slog.With("err", err.Error()).Error(errMsg)
		return errors.Join(err, errors.New(errMsg))
	}

	return nil
}

func main() {
	if err := declareFlags(rootCmd, stringFlags); err != nil {
		panic(err)
	}
	if err := declareFlags(rootCmd, boolFlags); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(cli.Commands...)
	rootCmd.AddCommand(forknode.CMD)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.With("err", err.Error()).Error("failed to execute command")
		stop()
		os.Exit(1)
	}
}
