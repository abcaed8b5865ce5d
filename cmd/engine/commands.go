package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobyaari-engine/internal/config"
	"jobyaari-engine/internal/httpapi"
	"jobyaari-engine/internal/poll"
	"jobyaari-engine/internal/scheduler"
	"jobyaari-engine/internal/secrets"
)

const runRetention = 30 * 24 * time.Hour

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newScrapeCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Run one refresh and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(f)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			res, err := a.engine.Refresh(ctx)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("refresh failed: %s", res.Message)
			}
			return nil
		},
	}
}

func newServeCmd(f *rootFlags) *cobra.Command {
	var noSchedule bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and refresh on a schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(f)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			var cfgVal atomic.Value
			cfgVal.Store(a.cfg)

			poller := poll.New(a.engine, a.log)
			if !noSchedule {
				poller.Start(ctx, a.cfg.RefreshInterval())
			}
			if a.db != nil {
				go scheduler.Every(ctx, 24*time.Hour, "history-cleanup", a.log, func(ctx context.Context) error {
					n, err := a.db.CleanupOldRuns(ctx, runRetention)
					if n > 0 {
						a.log.Info("pruned run history", zap.Int64("runs", n))
					}
					return err
				})
			}

			deps := httpapi.Deps{
				Ctx:         ctx,
				KB:          a.engine,
				Refresh:     poller,
				Breakers:    a.breakers,
				Hub:         a.hub,
				CfgVal:      &cfgVal,
				UserCfgPath: a.cfgPath,
				LoadCfg:     func() (config.Config, error) { return config.Load(a.cfgPath) },
				Token:       tokenSource(a.log),
				Gatherer:    a.reg,
				Logger:      a.log,
			}
			if a.db != nil {
				deps.Runs = a.db
			}

			addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(a.cfg.App.Port))
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Handler:           httpapi.Handler(deps),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()
			a.log.Info("engine listening", zap.String("addr", "http://"+addr))

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "only refresh when asked over HTTP")
	return cmd
}

// tokenSource reads the API token once. A missing token disables auth.
func tokenSource(log *zap.Logger) func() string {
	tok, err := secrets.GetAPIToken()
	switch {
	case errors.Is(err, secrets.ErrNoToken):
		log.Warn("no api token set; mutating endpoints are open")
	case err != nil:
		log.Warn("api token unavailable; mutating endpoints are open", zap.Error(err))
	}
	return func() string { return tok }
}

func newKBCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "kb", Short: "Inspect the persisted knowledge base"}

	var trim bool
	var n int
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the knowledge base",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(f)
			if err != nil {
				return err
			}
			defer a.Close()
			if trim {
				if n <= 0 {
					n = a.cfg.Limits.PromptPerCategory
				}
				return printJSON(cmd, a.engine.Trimmed(n))
			}
			return printJSON(cmd, a.engine.KnowledgeBase().Categories)
		},
	}
	show.Flags().BoolVar(&trim, "trim", false, "only prompt fields")
	show.Flags().IntVarP(&n, "limit", "n", 0, "records per category with --trim")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print per-category counts and the last refresh time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(f)
			if err != nil {
				return err
			}
			defer a.Close()
			return printJSON(cmd, a.engine.Stats())
		},
	}

	cmd.AddCommand(show, stats)
	return cmd
}

func newRunsCmd(f *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent refresh runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(f)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.db == nil {
				return errors.New("run history is disabled (persistence.history_db is empty)")
			}
			runs, err := a.db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs")
	return cmd
}

func newConfigCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Inspect configuration"}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.EnsureUserConfig(f.dataDir, f.configPath)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := config.OverlayRules(&cfg, f.rulesPath); err != nil {
				return err
			}
			_, vr := config.NormalizeAndValidate(cfg)
			if err := printJSON(cmd, vr); err != nil {
				return err
			}
			if !vr.OK() {
				return fmt.Errorf("%s: %d error(s)", path, len(vr.Errors))
			}
			return nil
		},
	})
	return cmd
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Manage the API token in the OS keychain"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set",
			Short: "Read a token from stdin and store it",
			RunE: func(cmd *cobra.Command, _ []string) error {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return err
				}
				return secrets.SetAPIToken(strings.TrimSpace(line))
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the stored token",
			RunE: func(*cobra.Command, []string) error {
				return secrets.DeleteAPIToken()
			},
		},
	)
	return cmd
}
