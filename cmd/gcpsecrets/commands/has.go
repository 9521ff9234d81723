package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/gcpsecrets/internal/config"
)

func NewHasCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "has KEY",
		Short: "Check whether a secret exists",
		Long: `Report whether a secret has an active version.

Prints "true" or "false". The exit status is 0 when the secret exists and 1
when it does not, so the command can be used in shell conditions. Any other
failure (permissions, network) is reported as an error.

Examples:
  gcpsecrets has db-password
  gcpsecrets has db-password:2

  if gcpsecrets has feature-flag >/dev/null; then
    echo "flag configured"
  fi`,
		Args: cobra.ExactArgs(1),
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

			ok, err := s.store.Contains(s.ctx, keys[0])
			if err != nil {
				return s.userError(err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), ok)
			if !ok {
				return ErrAbsent
			}
			return nil
		},
	}

	return cmd
}
