package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audio-interviewer/internal/metrics"
	"audio-interviewer/internal/server"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var statsInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the interview HTTP API",
		Long: `Start the interview HTTP API.

Storage, audio blobs and the AI backend are selected from the environment
(STORE_DRIVER, BLOB_DRIVER, AI_BACKEND). SQL and Mongo schemas are applied
on startup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.migrate(ctx); err != nil {
				return err
			}

			srv := server.New(server.Config{
				Port:            a.cfg.Server.Port,
				ReadTimeout:     a.cfg.Server.ReadTimeout,
				WriteTimeout:    a.cfg.Server.WriteTimeout,
				ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
				MaxAudioBytes:   a.policy.GetMaxAudioBytes(),
				Logger:          a.logger,
			}, a.newService(), a.store, a.metrics)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Run(gctx)
			})
			if statsInterval > 0 {
				g.Go(func() error {
					logStats(gctx, a, statsInterval)
					return nil
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().DurationVar(&statsInterval, "stats-interval", 5*time.Minute, "How often to log metric counters (0 disables)")
	return cmd
}

// logStats logs the counters until ctx is done.
func logStats(ctx context.Context, a *app, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logSnapshot(a, a.metrics.GetSnapshot())
		}
	}
}

func logSnapshot(a *app, s metrics.Snapshot) {
	a.logger.Info("interview stats",
		"sessions_started", s.SessionsStarted,
		"answers_submitted", s.AnswersSubmitted,
		"questions_generated", s.QuestionsGenerated,
		"reports_generated", s.ReportsGenerated,
		"fallbacks_used", s.FallbacksUsed,
		"api_calls", s.APICallsTotal,
		"api_calls_ok", s.APICallsSuccessful,
	)
}
