package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/minertopia/rollout/configs"
	"github.com/minertopia/rollout/internal/rollout"
)

var (
	DeployCMD = &cobra.Command{
		Use:   "deploy",
		Short: "Deploy every contract that has no recorded address yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), configs.Values)
			if err != nil {
				return err
			}
			defer closeSession(s)

			rec, err := s.runner(configs.Values).Deploy(cmd.Context(), s.plan.Deploy)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}

	SetupCMD = &cobra.Command{
		Use:   "setup",
		Short: "Wire deployed contracts to each other",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), configs.Values)
			if err != nil {
				return err
			}
			defer closeSession(s)

			return s.runner(configs.Values).Wire(cmd.Context(), s.plan.Wire)
		},
	}

	UpgradeCMD = &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade deployed proxies to their next implementation",
		Long: "Upgrade deployed proxies to their next implementation.\n\n" +
			"Proxies are upgraded one at a time. When the new implementations change the calls\n" +
			"contracts make to each other, do not use the system until every listed upgrade succeeded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), configs.Values)
			if err != nil {
				return err
			}
			defer closeSession(s)

			return s.runner(configs.Values).Upgrade(cmd.Context(), s.plan.Upgrade)
		},
	}

	AllCMD = &cobra.Command{
		Use:   "all",
		Short: "Deploy, then wire",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), configs.Values)
			if err != nil {
				return err
			}
			defer closeSession(s)

			rec, err := s.runner(configs.Values).All(cmd.Context(), s.plan)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}

	StatusCMD = &cobra.Command{
		Use:   "status",
		Short: "Show what is deployed and wired according to the local record",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}

			s, err := openLocal(configs.Values)
			if err != nil {
				return err
			}
			defer closeSession(s)

			rec, err := s.store.ReadOrEmpty()
			if err != nil {
				return err
			}

			statuses := rollout.Status(rec, s.journal.Entries(), s.plan)

			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), statuses)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(statuses); err != nil {
					return fmt.Errorf("failed to encode status: %w", err)
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown output format %q (expected yaml or json)", format)
			}
		},
	}

	Commands = []*cobra.Command{DeployCMD, SetupCMD, UpgradeCMD, AllCMD, StatusCMD}
)

func init() {
	StatusCMD.Flags().StringP("output", "o", "yaml", "Output format (yaml or json)")
}

func closeSession(s *session) {
	if err := s.Close(); err != nil {
		slog.With("err", err.Error()).Warn("failed to close session")
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Join(err, errors.New("failed to write output"))
	}
	return nil
}
