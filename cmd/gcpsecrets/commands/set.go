package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/gcpsecrets/internal/config"
	dserrors "github.com/systmms/gcpsecrets/internal/errors"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
)

func NewSetCommand(_ *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Write a secret (not supported)",
		Long: `gcpsecrets is read-only. This command exists so scripts that try to
write get an explicit error instead of a silent no-op.

Create new versions with your provider's own tooling, for example:
  gcloud secrets versions add db-password --data-file=-
  aws secretsmanager put-secret-value --secret-id db-password --secret-string ...
  az keyvault secret set --vault-name my-vault --name db-password --value ...`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dserrors.ForUser("", secretstore.UnsupportedOperationError{Op: "set"})
		},
	}

	return cmd
}
