package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/scribly/internal/api"
	"github.com/xaenox/scribly/internal/gateway"
	"github.com/xaenox/scribly/internal/logging"
	"github.com/xaenox/scribly/internal/notes"
	"github.com/xaenox/scribly/pkg/config"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	token      string
	apiURL     string
	verbose    bool
	asJSON     bool

	cfg    *config.Config
	logger *zap.Logger
	client *api.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "scribly",
		Short: "Manage your Scribly notes from the terminal",
		Long: `Scribly keeps short text notes on the Scribly service.
Log in once with "scribly login", export the printed token as SCRIBLY_TOKEN,
then list, create, update, delete and search your notes.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a config file (default: environment only)")
	flags.StringVar(&a.token, "token", "", "API token (default: $SCRIBLY_TOKEN)")
	flags.StringVar(&a.apiURL, "api-url", "", "Base URL of the notes API")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&a.asJSON, "json", false, "Output in JSON format")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.API.BaseURL = a.apiURL
	}
	if a.token == "" {
		a.token = cfg.API.Token
	}

	logCfg := config.LogConfig{Level: "warn", Development: true}
	if a.verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}

	client, err := api.New(cfg.API.BaseURL, cfg.API.Timeout, logger)
	if err != nil {
		return err
	}

	a.cfg, a.logger, a.client = cfg, logger, client
	return nil
}

// session runs the initial list fetch every command starts from.
func (a *app) session(ctx context.Context) (*gateway.Gateway, error) {
	g := gateway.New(a.client, notes.NewStore(), a.token, a.logger)
	if err := g.List(ctx); err != nil {
		return nil, a.explain(err)
	}
	return g, nil
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.cfg.API.Timeout)
}

// explain turns an api error into something a terminal user can act on.
func (a *app) explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gateway.ErrBusy):
		return err
	case api.IsAuthRequired(err):
		return errors.New("not logged in or session expired: run \"scribly login\" and set SCRIBLY_TOKEN")
	default:
		a.logger.Debug("Command failed", zap.Error(err))
		return errors.New(api.UserMessage(err))
	}
}
