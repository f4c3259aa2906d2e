package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/zpools-io/zpools-cli/internal/adapters/api"
	"github.com/zpools-io/zpools-cli/internal/adapters/auth"
	"github.com/zpools-io/zpools-cli/internal/adapters/render/status"
	tomlrepo "github.com/zpools-io/zpools-cli/internal/adapters/repo/toml"
	filestore "github.com/zpools-io/zpools-cli/internal/adapters/secrets/file"
	passstore "github.com/zpools-io/zpools-cli/internal/adapters/secrets/pass"
	"github.com/zpools-io/zpools-cli/internal/application"
	"github.com/zpools-io/zpools-cli/internal/config"
	"github.com/zpools-io/zpools-cli/internal/domain"
	"github.com/zpools-io/zpools-cli/internal/ports"
	"github.com/zpools-io/zpools-cli/internal/version"
)

type rootFlags struct {
	rcFile  string
	apiURL  string
	verbose bool
}

type app struct {
	flags rootFlags

	cfg        config.Config
	logger     *zap.Logger
	client     *api.Client
	auth       *auth.Manager
	jobs       *application.JobService
	zpools     *application.ZpoolService
	renderer   *status.Renderer
	httpClient *http.Client
	clock      ports.Clock
	now        func() time.Time
	loc        *time.Location
}

func newApp() *app {
	return &app{
		logger:     zap.NewNop(),
		httpClient: http.DefaultClient,
		clock:      ports.SystemClock{},
		now:        time.Now,
		loc:        time.Local,
	}
}

// wire resolves configuration and builds the services. Commands that never
// talk to the API still go through here so that --rcfile errors surface.
func (a *app) wire(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a.logger = newLogger(cmd.ErrOrStderr(), a.flags.verbose)

	cfg, err := config.Load(viper.New(), config.Overrides{
		RCFile: a.flags.rcFile,
		APIURL: a.flags.apiURL,
	})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	resolver := passstore.NewStore()
	if cfg.PAT, err = resolver.Resolve(ctx, cfg.PAT); err != nil {
		return fmt.Errorf("resolve %s: %w", config.KeyPAT, err)
	}
	if cfg.Password, err = resolver.Resolve(ctx, cfg.Password); err != nil {
		return fmt.Errorf("resolve %s: %w", config.EnvPassword, err)
	}
	a.cfg = cfg
	a.logger.Debug("configuration loaded",
		zap.String("api_url", cfg.APIURL),
		zap.String("rc_file", cfg.RCFile),
		zap.Bool("pat", cfg.PAT != ""),
		zap.Bool("token_cache", cfg.TokenCacheDir != ""),
	)

	a.client = &api.Client{
		BaseURL:    cfg.APIURL,
		HTTPClient: a.httpClient,
		UserAgent:  "zpools-cli/" + version.Version,
		Logger:     a.logger.Named("api"),
	}

	var refresher ports.CredentialRefresher
	manager, err := a.newAuthManager(cmd)
	switch {
	case err == nil:
		a.auth = manager
		a.client.Tokens = manager
		refresher = manager
	case errors.Is(err, domain.ErrCredentialsMissing):
		a.logger.Debug("no credentials configured")
	default:
		return fmt.Errorf("wire authentication: %w", err)
	}

	a.renderer = status.NewRenderer(a.now, a.loc)
	a.jobs = application.NewJobService(a.client, refresher, a.renderer.JobPanel, a.clock, a.logger.Named("jobs"))
	a.zpools = application.NewZpoolService(a.client, refresher, a.renderer.VolumePanel, a.clock, a.logger.Named("zpools"))

	return nil
}

func (a *app) newAuthManager(cmd *cobra.Command) (*auth.Manager, error) {
	cfg := a.cfg
	opts := []auth.Option{
		auth.WithClock(a.clock),
		auth.WithLogger(a.logger.Named("auth")),
	}

	if cfg.PAT == "" && cfg.Username != "" && cfg.TokenCacheDir != "" {
		key, err := tomlrepo.CacheKey(cfg.APIURL, cfg.Username)
		if err != nil {
			return nil, err
		}
		cache := tomlrepo.NewTokenCache(filestore.NewStore(cfg.TokenCacheDir))
		opts = append(opts, auth.WithCache(cache, key))
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		opts = append(opts, auth.WithPasswordPrompt(promptPassword(cmd.ErrOrStderr())))
	}

	return auth.NewManager(auth.Config{
		Username: cfg.Username,
		Password: cfg.Password,
		PAT:      cfg.PAT,
	}, a.client, opts...)
}

func promptPassword(out io.Writer) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		_, _ = fmt.Fprint(out, "Password: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		_, _ = fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(password), nil
	}
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
