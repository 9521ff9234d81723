package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/gcpsecrets/internal/config"
)

// versionOutput is one entry of `versions --json`.
type versionOutput struct {
	Version    string    `json:"version"`
	State      string    `json:"state"`
	Active     bool      `json:"active"`
	CreateTime time.Time `json:"create_time"`
}

func NewVersionsCommand(cfg *config.Config) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "versions NAME",
		Short: "List the versions of a secret",
		Long: `List every version of a secret, newest first, with its state.

Only enabled versions are considered when resolving the latest version;
the first enabled row is what 'gcpsecrets get NAME' returns.

Examples:
  gcpsecrets versions db-password
  gcpsecrets versions db-password --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.close()

			versions, err := s.store.Versions(s.ctx, args[0])
			if err != nil {
				return s.userError(err)
			}

			out := make([]versionOutput, 0, len(versions))
			for _, v := range versions {
				out = append(out, versionOutput{
					Version:    v.Version,
					State:      v.State.String(),
					Active:     v.State.Active(),
					CreateTime: v.CreateTime.UTC(),
				})
			}

			if jsonOutput {
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "VERSION\tSTATE\tCREATED\n")
			_, _ = fmt.Fprintf(w, "-------\t-----\t-------\n")
			for _, v := range out {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", v.Version, v.State, v.CreateTime.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
