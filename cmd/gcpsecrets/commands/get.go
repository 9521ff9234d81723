package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/gcpsecrets/internal/config"
)

// secretOutput is one entry of `get --json`.
type secretOutput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type getOutput struct {
	Backend string         `json:"backend"`
	Project string         `json:"project"`
	Secrets []secretOutput `json:"secrets"`
}

func NewGetCommand(cfg *config.Config) *cobra.Command {
	var (
		defaultValue string
		jsonOutput   bool
		showStats    bool
	)

	cmd := &cobra.Command{
		Use:   "get KEY...",
		Short: "Get secret values",
		Long: `Retrieve and display one or more secret values.

Each KEY is a secret name, optionally followed by a version:
  NAME            the latest active version
  NAME:VERSION    a specific version
  NAME@VERSION    a specific version

By default only the raw values are printed, one per line, making the output
suitable for scripting.

Examples:
  # Get the latest version
  gcpsecrets get db-password

  # Get a pinned version
  gcpsecrets get db-password:3

  # Fall back to a default when the secret does not exist
  gcpsecrets get feature-flag --default off

  # Use in scripts
  export DB_PASSWORD=$(gcpsecrets get db-password)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := parseKeys(args)
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.close()

			useDefault := cmd.Flags().Changed("default")
			out := getOutput{
				Backend: cfg.Settings.Backend,
				Project: s.store.Project(),
				Secrets: make([]secretOutput, 0, len(keys)),
			}
			for _, key := range keys {
				var value string
				if useDefault {
					value, err = s.store.GetOr(s.ctx, key, defaultValue)
				} else {
					value, err = s.store.Get(s.ctx, key)
				}
				if err != nil {
					return s.userError(err)
				}
				out.Secrets = append(out.Secrets, secretOutput{Key: key.String(), Value: value})
			}

			if showStats {
				if err := writeStats(cmd, s); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				_, _ = fmt.Fprintln(w, string(data))
				return nil
			}
			for _, secret := range out.Secrets {
				_, _ = fmt.Fprintln(w, secret.Value)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&defaultValue, "default", "", "Value to print when a secret does not exist")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showStats, "stats", false, "Print cache and remote call counters to stderr")

	return cmd
}

// writeStats prints the session's counters as JSON on stderr so stdout
// stays scriptable.
func writeStats(cmd *cobra.Command, s *session) error {
	stats, err := s.recorder.Stats()
	if err != nil {
		return fmt.Errorf("failed to gather stats: %w", err)
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), string(data))
	return nil
}
