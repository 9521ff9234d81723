package commands

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/systmms/gcpsecrets/internal/config"
	dserrors "github.com/systmms/gcpsecrets/internal/errors"
	"github.com/systmms/gcpsecrets/internal/metrics"
	"github.com/systmms/gcpsecrets/internal/providers"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
)

// ErrAbsent is returned by has when the secret does not exist. main exits
// with status 1 without printing it.
var ErrAbsent = errors.New("secret not present")

// newClient creates the remote client for the configured backend. Tests
// replace it with a fake.
var newClient = providers.New

// session is one command's view of the remote store.
type session struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.Config
	client   providers.Client
	store    *secretstore.Store
	recorder *metrics.Recorder
}

// openSession loads configuration and builds the store. The session's
// context is bounded by timeout_ms. The caller must call close.
func openSession(parent context.Context, cfg *config.Config) (*session, error) {
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	settings := cfg.Settings

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, settings.Timeout())

	client, err := newClient(ctx, settings, cfg.Logger)
	if err != nil {
		cancel()
		return nil, dserrors.ForUser(settings.Backend, err)
	}

	recorder := metrics.NewRecorder(prometheus.NewRegistry())
	opts := []secretstore.Option{
		secretstore.WithCache(settings.CacheEnabled()),
		secretstore.WithCacheTTL(settings.CacheTTL()),
		secretstore.WithSealedCache(settings.SealCache),
		secretstore.WithObserver(recorder),
		secretstore.WithLogger(cfg.Logger),
	}
	if settings.Project != "" {
		opts = append(opts, secretstore.WithProject(settings.Project))
	}

	store, err := secretstore.New(ctx, client, opts...)
	if err != nil {
		_ = client.Close()
		cancel()
		return nil, dserrors.ForUser(settings.Backend, err)
	}

	cfg.Logger.Debug("Using %s backend, %s %s", settings.Backend, projectField(settings.Backend), store.Project())
	return &session{ctx: ctx, cancel: cancel, cfg: cfg, client: client, store: store, recorder: recorder}, nil
}

// userError renders a store error for the terminal.
func (s *session) userError(err error) error {
	return dserrors.ForUser(s.cfg.Settings.Backend, err)
}

func (s *session) close() {
	s.store.Purge()
	if err := s.client.Close(); err != nil {
		s.cfg.Logger.Debug("Closing %s client: %v", s.cfg.Settings.Backend, err)
	}
	s.cancel()
}

// parseKeys parses every argument with secretstore.ParseKey.
func parseKeys(args []string) ([]secretstore.Key, error) {
	keys := make([]secretstore.Key, 0, len(args))
	for _, arg := range args {
		key, err := secretstore.ParseKey(arg)
		if err != nil {
			return nil, dserrors.ForUser("", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func projectField(backend string) string {
	switch backend {
	case config.BackendAWS, config.BackendAWSSSM:
		return "region"
	case config.BackendAzure:
		return "vault"
	default:
		return "project"
	}
}
