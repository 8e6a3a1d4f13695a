package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"reelforge/internal/pipeline"

	"github.com/spf13/cobra"
)

var workerPollInterval time.Duration

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the pipeline worker",
	Long: `Run migrations, recover in-flight items, then process pipeline steps and
due uploads until interrupted.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().DurationVarP(&workerPollInterval, "poll", "p", 30*time.Second, "Upload poll interval")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	if err := pipeline.VerifyTransitions(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}

	if err := rt.store.Migrate(ctx); err != nil {
		return err
	}

	queue := pipeline.NewQueue(rt.machine,
		rt.cfg.Pipeline.Concurrency,
		rt.cfg.Pipeline.JobsPerMinute,
		rt.cfg.Pipeline.StepRetries)
	queue.Start(ctx)

	recovered, err := rt.machine.Recover(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		slog.Info("Recovered in-flight items", "count", recovered)
	}

	if rt.processor != nil {
		go rt.processor.Run(ctx, workerPollInterval)
	}

	go runRetention(ctx, rt)

	slog.Info("Worker running",
		"concurrency", rt.cfg.Pipeline.Concurrency,
		"jobs_per_minute", rt.cfg.Pipeline.JobsPerMinute)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		slog.Info("Shutting down...")
	case <-ctx.Done():
	}

	cancel()
	queue.Wait()
	return nil
}

// runRetention purges completed items past the retention window, along
// with their artifact directories, once a day.
func runRetention(ctx context.Context, rt *runtime) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	purge := func() {
		cutoff := time.Now().AddDate(0, 0, -rt.cfg.Pipeline.RetentionDays)
		purged, err := rt.store.PurgeCompletedBefore(ctx, cutoff)
		if err != nil {
			slog.Error("Retention purge failed", "error", err)
			return
		}
		for _, item := range purged {
			dir := filepath.Join(rt.cfg.Video.OutputDir, item.ID)
			if err := os.RemoveAll(dir); err != nil {
				slog.Warn("Failed to remove artifact dir", "dir", dir, "error", err)
			}
		}
		if len(purged) > 0 {
			slog.Info("Purged completed items", "count", len(purged), "cutoff", cutoff)
		}
	}

	purge()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}
