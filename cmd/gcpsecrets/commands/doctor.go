package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/systmms/gcpsecrets/internal/config"
	dserrors "github.com/systmms/gcpsecrets/internal/errors"
	"github.com/systmms/gcpsecrets/internal/metrics"
	"github.com/systmms/gcpsecrets/internal/providers"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
)

// CheckResult is one row of the doctor report.
type CheckResult struct {
	Name       string
	Status     string // ok, error, skipped
	Detail     string
	Suggestion string
}

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var (
		verbose bool
		secret  string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and backend connectivity",
		Long: `Verify that gcpsecrets is configured and can reach the backend.

This command checks:
- Configuration file validity
- Backend client creation and credentials
- The project, region or vault in use
- The identity the backend authenticates as
- Optionally, read access to one secret (--secret)

Examples:
  gcpsecrets doctor
  gcpsecrets doctor --secret db-password --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := runChecks(cmd.Context(), cfg, secret)
			displayCheckResults(cmd.OutOrStdout(), results, verbose)

			passed := 0
			for _, result := range results {
				if result.Status != "error" {
					passed++
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nSummary: %d/%d checks passed\n", passed, len(results))
			if passed < len(results) {
				return fmt.Errorf("some checks failed")
			}

			cfg.Logger.Info("All checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show suggestions for failed checks")
	cmd.Flags().StringVar(&secret, "secret", "", "Also check that this secret can be read")

	return cmd
}

// runChecks stops at the first failure that makes later checks meaningless.
func runChecks(parent context.Context, cfg *config.Config, secret string) []CheckResult {
	results := make([]CheckResult, 0, 5)

	if err := cfg.Load(); err != nil {
		return append(results, failed("configuration", "", err))
	}
	settings := cfg.Settings
	source := cfg.Path
	if source == "" {
		source = config.DefaultPath
	}
	results = append(results, CheckResult{Name: "configuration", Status: "ok", Detail: source})

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, settings.Timeout())
	defer cancel()

	client, err := newClient(ctx, settings, cfg.Logger)
	if err != nil {
		return append(results, failed("backend", settings.Backend, err))
	}
	defer func() { _ = client.Close() }()
	results = append(results, CheckResult{Name: "backend", Status: "ok", Detail: settings.Backend})

	opts := []secretstore.Option{
		secretstore.WithCache(settings.CacheEnabled()),
		secretstore.WithCacheTTL(settings.CacheTTL()),
		secretstore.WithObserver(metrics.NewRecorder(prometheus.NewRegistry())),
		secretstore.WithLogger(cfg.Logger),
	}
	if settings.Project != "" {
		opts = append(opts, secretstore.WithProject(settings.Project))
	}
	store, err := secretstore.New(ctx, client, opts...)
	if err != nil {
		return append(results, failed(projectField(settings.Backend), settings.Backend, err))
	}
	defer store.Purge()
	results = append(results, CheckResult{Name: projectField(settings.Backend), Status: "ok", Detail: store.Project()})

	if identifier, ok := client.(providers.Identifier); ok {
		identity, err := identifier.Identity(ctx)
		if err != nil {
			results = append(results, failed("identity", settings.Backend, err))
		} else {
			results = append(results, CheckResult{Name: "identity", Status: "ok", Detail: identity})
		}
	} else {
		results = append(results, CheckResult{Name: "identity", Status: "skipped", Detail: "not reported by backend"})
	}

	if secret != "" {
		results = append(results, checkSecret(ctx, store, settings.Backend, secret))
	}
	return results
}

func checkSecret(ctx context.Context, store *secretstore.Store, backend, ref string) CheckResult {
	name := "secret " + ref
	key, err := secretstore.ParseKey(ref)
	if err != nil {
		return failed(name, backend, err)
	}
	ok, err := store.Contains(ctx, key)
	if err != nil {
		return failed(name, backend, err)
	}
	if !ok {
		return CheckResult{
			Name:       name,
			Status:     "error",
			Detail:     "no active version",
			Suggestion: fmt.Sprintf("Run 'gcpsecrets versions %s' to see its versions", key.Name()),
		}
	}
	return CheckResult{Name: name, Status: "ok", Detail: "readable"}
}

func failed(name, backend string, err error) CheckResult {
	result := CheckResult{Name: name, Status: "error", Detail: err.Error()}
	switch e := dserrors.ForUser(backend, err).(type) {
	case dserrors.UserError:
		result.Detail = e.Message
		result.Suggestion = e.Suggestion
	case dserrors.ConfigError:
		result.Detail = e.Message
		if e.Field != "" {
			result.Detail = e.Field + ": " + e.Message
		}
		result.Suggestion = e.Suggestion
	}
	if result.Suggestion == "" {
		result.Suggestion = dserrors.Suggest(backend, err)
	}
	return result
}

// displayCheckResults shows the checks in a formatted table.
func displayCheckResults(out io.Writer, results []CheckResult, verbose bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "CHECK\tSTATUS\tDETAIL\n")
	_, _ = fmt.Fprintf(w, "-----\t------\t------\n")

	for _, result := range results {
		status := result.Status
		switch result.Status {
		case "ok":
			status = "✓ " + status
		case "error":
			status = "✗ " + status
		default:
			status = "- " + status
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", result.Name, status, result.Detail)
	}

	_ = w.Flush()

	if !verbose {
		return
	}
	for _, result := range results {
		if result.Status == "error" && result.Suggestion != "" {
			_, _ = fmt.Fprintf(out, "\n%s:\n  • %s\n", result.Name, result.Suggestion)
		}
	}
}
