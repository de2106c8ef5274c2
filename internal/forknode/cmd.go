package forknode

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/minertopia/rollout/configs"
)

var CMD = &cobra.Command{
	Use:   "fork",
	Short: "Manage the local anvil fork used in FORK mode",
}

var (
	upCmd = &cobra.Command{
		Use:   "up",
		Short: "Start the fork node and wait until its RPC answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(func(n *Node) error {
				return n.Up(cmd.Context())
			})
		},
	}

	downCmd = &cobra.Command{
		Use:   "down",
		Short: "Remove the fork node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(func(n *Node) error {
				return n.Down(cmd.Context())
			})
		},
	}

	logsCmd = &cobra.Command{
		Use:   "logs",
		Short: "Print the fork node output",
		RunE: func(cmd *cobra.Command, args []string) error {
			follow, err := cmd.Flags().GetBool("follow")
			if err != nil {
				return err
			}
			return withNode(func(n *Node) error {
				return n.Logs(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), follow)
			})
		},
	}
)

func init() {
	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")

	CMD.AddCommand(upCmd)
	CMD.AddCommand(downCmd)
	CMD.AddCommand(logsCmd)
}

func withNode(fn func(n *Node) error) error {
	cfg := configs.Values.Fork
	slog.Info("validating fork config", slog.Any("config", cfg))

	if err := cfg.Validate(); err != nil {
		return err
	}

	n, err := New(Config{
		Image:         cfg.Image,
		ContainerName: cfg.ContainerName,
		Port:          cfg.Port,
		ForkURL:       cfg.ForkURL,
		ForkBlock:     cfg.ForkBlock,
		ChainID:       cfg.ChainID,
		ReadyTimeout:  cfg.ReadyTimeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := n.Close(); err != nil {
			slog.With("err", err.Error()).Warn("failed to close docker client")
		}
	}()

	return fn(n)
}
