package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/avvvet/voicenav/internal/app"
	"github.com/avvvet/voicenav/internal/browser"
	"github.com/avvvet/voicenav/internal/config"
	"github.com/avvvet/voicenav/internal/handlers"
	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/messenger"
	"github.com/avvvet/voicenav/internal/models"
	"github.com/avvvet/voicenav/internal/pipeline"
	"github.com/avvvet/voicenav/internal/transport"
)

type lineRunner interface {
	Run(ctx context.Context, text string) (*models.CommandOutcome, error)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "voicectl",
		Short:         "voicenav - voice commands for the browser",
		Long:          "voicectl resolves spoken commands into intents and carries them out in a browser.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newClassifyCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newAgentCmd())
	root.AddCommand(newForgetCmd())
	return root
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [command text]",
		Short: "Resolve a command and print the intent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := setup()
			if err != nil {
				return err
			}
			h, closeCache, err := buildHandler(cfg, lg)
			if err != nil {
				return err
			}
			defer closeCache()

			resp, err := h.ProcessIntent(cmd.Context(), &models.IntentRequest{Text: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func newRunCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute commands read from stdin, one per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := setup()
			if err != nil {
				return err
			}
			h, closeCache, err := buildHandler(cfg, lg)
			if err != nil {
				return err
			}
			defer closeCache()

			var (
				sender messenger.Sender
				conn   *nats.Conn
			)
			if !dryRun {
				if cfg.Browser.Mode == "relay" {
					conn, err = transport.Connect(cfg.NATS, "voicectl", lg)
					if err != nil {
						return err
					}
					defer conn.Close()
				}
				var closeSender func()
				sender, closeSender, err = app.NewSender(cfg, conn, lg)
				if err != nil {
					return err
				}
				defer closeSender()
			}

			return runLines(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), pipeline.New(h, nil, sender, lg))
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and dispatch without touching the browser")
	return cmd
}

func newAgentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Execute actions relayed over NATS in a local browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := setup()
			if err != nil {
				return err
			}
			if !cfg.NATS.Enabled {
				return fmt.Errorf("agent requires nats.enabled")
			}

			chrome, err := browser.New(browser.Options{
				DevToolsURL: cfg.Browser.DevToolsURL,
				Headless:    cfg.Browser.Headless,
			}, lg)
			if err != nil {
				return err
			}
			defer chrome.Close()

			conn, err := transport.Connect(cfg.NATS, "voicectl-agent", lg)
			if err != nil {
				return err
			}
			defer conn.Close()

			srv := transport.NewActionServer(conn, cfg.NATS.ActionSubject, app.NewMessenger(cfg, chrome, lg), cfg.Browser.ReplyTimeout, lg)
			if err := srv.Start(); err != nil {
				return err
			}
			defer srv.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			lg.Info("👋 Agent stopped", nil)
			return nil
		},
	}
}

func newForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget [command text]",
		Short: "Drop the cached classification for a command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := setup()
			if err != nil {
				return err
			}
			cache, store, err := app.NewCache(cfg, lg)
			if err != nil {
				return err
			}
			if cache == nil {
				return fmt.Errorf("forget requires redis.enabled")
			}
			defer store.Close()

			return forget(cmd.Context(), cmd.OutOrStdout(), cache, strings.Join(args, " "))
		},
	}
}

type forgetter interface {
	Forget(ctx context.Context, text string) (bool, error)
}

func forget(ctx context.Context, out io.Writer, f forgetter, text string) error {
	removed, err := f.Forget(ctx, text)
	if err != nil {
		return err
	}
	if removed {
		_, err = fmt.Fprintf(out, "forgot %q\n", text)
	} else {
		_, err = fmt.Fprintf(out, "%q was not cached\n", text)
	}
	return err
}

func setup() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.NewStructured(cfg.Log.Level, cfg.Log.Format), nil
}

func buildHandler(cfg *config.Config, lg logger.Logger) (*handlers.IntentHandler, func(), error) {
	classifier, err := app.NewClassifier(cfg, lg)
	if err != nil {
		return nil, nil, err
	}
	cache, store, err := app.NewCache(cfg, lg)
	if err != nil {
		return nil, nil, err
	}
	closeCache := func() {}
	if store != nil {
		closeCache = func() { _ = store.Close() }
	}
	return app.NewIntentHandler(cfg, classifier, cache, lg), closeCache, nil
}

// runLines feeds each non-blank line through r and prints one outcome per
// line. Validation failures are printed and skipped; other errors stop.
func runLines(ctx context.Context, in io.Reader, out io.Writer, r lineRunner) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		outcome, err := r.Run(ctx, text)
		if err != nil {
			if errors.Is(err, models.ErrValidation) {
				if err := printJSON(out, models.Body(err)); err != nil {
					return err
				}
				continue
			}
			return err
		}
		if err := printJSON(out, outcome); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
