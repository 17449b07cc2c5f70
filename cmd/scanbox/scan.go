package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/scanbox/internal/api"
	"github.com/jackzampolin/scanbox/internal/capture"
	"github.com/jackzampolin/scanbox/internal/config"
	"github.com/jackzampolin/scanbox/internal/scan"
	"github.com/jackzampolin/scanbox/internal/svcctx"
)

// exhaustedMargin is added to the confirmation delay when waiting for a
// pending commit after a finite source runs dry.
const exhaustedMargin = 250 * time.Millisecond

var (
	scanSource  string
	scanPath    string
	scanTimeout time.Duration
	scanCount   int
)

// scanOptions are per-invocation overrides of the capture config.
type scanOptions struct {
	Source  string
	Path    string
	Timeout time.Duration
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a scan session until a code is committed or the scan is cancelled",
	Long: `Run a scan session against the configured capture source.

Feedback updates are logged as they happen. When the session completes a
report is printed: the composite "{type}:{text}" result and the message the
host screen would show. A cancelled session (Ctrl+C, --timeout, or a replay
script that ends without a commit) reports an empty result.

With --count other than 1, sessions run back to back and configuration file
changes apply to the next session.

Examples:
  scanbox scan                                  # watch ~/.scanbox/inbox
  scanbox scan --source replay --path demo.yaml # replay a script
  scanbox scan --timeout 30s -o json
  scanbox scan --count 0                        # until interrupted`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svcs := svcctx.ServicesFrom(ctx)
		logger := svcs.Logger

		opts := scanOptions{Source: scanSource, Path: scanPath, Timeout: scanTimeout}

		if scanCount != 1 {
			svcs.Config.OnChange(func(cfg *config.Config) {
				logger.Info("config reloaded, applies to next session", "file", svcs.Config.File())
			})
			svcs.Config.WatchConfig()
		}

		if err := svcs.Home.EnsureExists(); err != nil {
			return err
		}

		for i := 0; scanCount == 0 || i < scanCount; i++ {
			cfg := svcs.Config.Get()
			o := opts
			if o.Path != "" && effectiveSource(cfg, o) == capture.SourceReplay {
				o.Path = svcs.Home.ScriptPath(o.Path)
			}

			report, err := runScan(ctx, cfg, svcs.Home.InboxPath(), o, logger)
			if err != nil {
				return err
			}
			if err := api.Output(report); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanSource, "source", "", "capture source override: watch or replay")
	scanCmd.Flags().StringVar(&scanPath, "path", "", "inbox directory or replay script override")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "cancel the session after this long (0 waits forever)")
	scanCmd.Flags().IntVar(&scanCount, "count", 1, "sessions to run (0 runs until interrupted)")
}

func effectiveSource(cfg *config.Config, opts scanOptions) string {
	if opts.Source != "" {
		return opts.Source
	}
	return cfg.Capture.Source
}

// runScan drives one session to completion. Setup failures are returned as
// errors; a session ended by ctx or timeout reports as cancelled.
func runScan(ctx context.Context, cfg *config.Config, inbox string, opts scanOptions, logger *slog.Logger) (api.ScanReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ccfg, err := cfg.CaptureConfig(inbox)
	if err != nil {
		return api.ScanReport{}, err
	}
	if opts.Source != "" {
		ccfg.Source = opts.Source
	}
	if opts.Path != "" {
		ccfg.Path = opts.Path
	}
	ccfg.Logger = logger

	sess, err := capture.Open(ccfg)
	if err != nil {
		return api.ScanReport{}, fmt.Errorf("failed to start capture: %w", err)
	}

	m, err := scan.New(scan.Config{
		Rules:        cfg.Rules(),
		ConfirmDelay: cfg.ConfirmDelay(),
		Session:      sess,
		Logger:       logger,
		Display:      feedbackLogger(logger),
		InboxSize:    cfg.Scanner.InboxSize,
	})
	if err != nil {
		return api.ScanReport{}, err
	}
	logger.Info("capture opened",
		"session_id", m.ID(),
		"source", ccfg.Source,
		"path", ccfg.Path,
		"target", cfg.Target(),
	)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCancel(m.Run(gctx))
	})
	g.Go(func() error {
		if err := sess.Run(gctx, m); err != nil {
			return ignoreCancel(err)
		}
		// The source ran dry or the session stopped itself. Give a pending
		// confirmation time to land before cancelling.
		grace := time.NewTimer(cfg.ConfirmDelay() + exhaustedMargin)
		defer grace.Stop()
		select {
		case <-m.Done():
		case <-gctx.Done():
		case <-grace.C:
			logger.Info("capture source exhausted without a commit", "session_id", m.ID())
			m.Cancel()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return api.ScanReport{}, err
	}

	o, err := m.Wait(context.Background())
	if err != nil {
		return api.ScanReport{}, err
	}
	logger.Info("scan session finished", "session_id", m.ID(), "state", o.State.String())
	return api.NewScanReport(m.ID(), o, cfg.Scanner.AcceptedLengths, time.Since(start)), nil
}

// feedbackLogger renders feedback updates as log lines.
func feedbackLogger(logger *slog.Logger) scan.Display {
	return scan.DisplayFunc(func(fb scan.Feedback) {
		logger.Info("feedback",
			"indicator", fb.Indicator.String(),
			"color", fb.Indicator.Color(),
			"message", fb.Message,
		)
	})
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
