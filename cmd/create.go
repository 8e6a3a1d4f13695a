package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"reelforge/internal/pipeline"
	"reelforge/internal/rotation"
	"reelforge/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	createCount      int
	createMode       string
	createTopicID    uint
	createUploadMode string
	createAutoUpload bool
	createSync       bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create content items and start their pipelines",
	Long: `Create one or more content items. With --sync the pipeline runs inline;
otherwise items are left pending for the worker to pick up.`,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().IntVarP(&createCount, "count", "n", 1, "Number of items to create")
	createCmd.Flags().StringVarP(&createMode, "mode", "m", string(store.RenderModeAiImages), "Render mode: static_background or ai_images")
	createCmd.Flags().UintVar(&createTopicID, "topic", 0, "Pin a topic ID instead of rotating")
	createCmd.Flags().StringVar(&createUploadMode, "upload", string(store.UploadModeNone), "Upload mode: none, immediate, scheduled")
	createCmd.Flags().BoolVar(&createAutoUpload, "auto-upload", false, "Upload automatically after rendering")
	createCmd.Flags().BoolVar(&createSync, "sync", false, "Run the pipeline inline instead of queueing")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	mode := store.RenderMode(createMode)
	if mode != store.RenderModeStatic && mode != store.RenderModeAiImages {
		return fmt.Errorf("unknown render mode: %s", createMode)
	}

	uploadMode := store.UploadMode(createUploadMode)
	switch uploadMode {
	case store.UploadModeNone, store.UploadModeImmediate, store.UploadModeScheduled:
	default:
		return fmt.Errorf("unknown upload mode: %s", createUploadMode)
	}

	ctx := cmd.Context()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	if err := rt.store.Migrate(ctx); err != nil {
		return err
	}

	if createSync {
		// Inline runner executes each step as it is enqueued. Without it
		// items stay pending until the worker's recovery pass.
		pipeline.NewSyncRunner(rt.machine)
	}

	for i := 0; i < createCount; i++ {
		item := newContentItem(mode, uploadMode)
		if createTopicID != 0 {
			id := createTopicID
			item.TopicID = &id
		}

		if err := rt.store.CreateContentItem(ctx, item); err != nil {
			return err
		}
		slog.Info("Created content item", "item", item.ID, "mode", mode)

		if createSync {
			if err := runInline(ctx, rt, item.ID); err != nil {
				return err
			}
		}
	}

	return nil
}

func newContentItem(mode store.RenderMode, uploadMode store.UploadMode) *store.ContentItem {
	return &store.ContentItem{
		ID:               uuid.NewString(),
		RenderMode:       mode,
		Status:           store.StatusPending,
		UploadMode:       uploadMode,
		AutoUpload:       createAutoUpload,
		BackgroundIndex:  rotation.NoSelection,
		MusicIndex:       rotation.NoSelection,
		OverlayIndex:     rotation.NoSelection,
		ColorSchemeIndex: rotation.NoSelection,
	}
}

func runInline(ctx context.Context, rt *runtime, itemID string) error {
	if err := rt.machine.Start(ctx, itemID); err != nil {
		return err
	}

	item, err := rt.store.GetContentItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.Status == store.StatusFailed {
		return fmt.Errorf("item %s failed at %s: %s", itemID, item.FailedStep, item.ErrorMessage)
	}

	slog.Info("Pipeline finished", "item", itemID, "output", item.OutputPath)
	return nil
}
