package cmd

import (
	"context"
	"fmt"
	"time"

	"reelforge/internal/assets"
	"reelforge/internal/imagegen"
	"reelforge/internal/llm"
	"reelforge/internal/pipeline"
	"reelforge/internal/rotation"
	"reelforge/internal/script"
	"reelforge/internal/speech/elevenlabs"
	"reelforge/internal/store"
	"reelforge/internal/upload"
	"reelforge/internal/upload/postapi"
	"reelforge/internal/upload/youtube"
	"reelforge/internal/video"
	"reelforge/pkg/config"
	"reelforge/pkg/prompts"
)

// runtime is the fully wired application: every command builds one and
// uses the slice it needs.
type runtime struct {
	cfg       *config.Config
	store     *store.Store
	machine   *pipeline.Machine
	ledger    *rotation.Ledger
	topics    *rotation.TopicSelector
	scheduler *upload.Scheduler
	processor *upload.Processor
	direct    *upload.Direct
}

func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg := config.Load(ctx)

	st, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	p, err := prompts.Load()
	if err != nil {
		return nil, err
	}

	llmClient, err := llm.NewGroqClient(cfg.GroqAPIKey, cfg.Groq.Model, p)
	if err != nil {
		return nil, err
	}

	speechProvider := elevenlabs.NewClient(elevenlabs.Config{
		APIKeys:    []string{cfg.ElevenLabsAPIKey},
		VoiceID:    cfg.ElevenLabs.VoiceID,
		Model:      cfg.ElevenLabs.Model,
		Stability:  cfg.ElevenLabs.Stability,
		Similarity: cfg.ElevenLabs.Similarity,
	})

	images := imagegen.NewClient(imagegen.Config{
		Model:  cfg.Images.Model,
		Width:  cfg.Images.Width,
		Height: cfg.Images.Height,
	})

	renderer := video.NewRenderer(video.RendererOptions{
		Resolution:  cfg.Video.Resolution,
		FrameRate:   cfg.Video.FrameRate,
		MusicVolume: cfg.Music.Volume,
		MusicTail:   cfg.Music.Tail,
		LightRays:   cfg.Video.LightRays,
	})

	clips, err := buildAssetProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ledger := rotation.NewLedger(st)
	topics := rotation.NewTopicSelector(ledger, st)

	machine := pipeline.NewMachine(pipeline.MachineOptions{
		Store:    st,
		LLM:      llmClient,
		Scripts:  script.NewGenerator(llmClient, cfg.Content.ValidationAttempts),
		Speech:   speechProvider,
		Images:   images,
		Renderer: renderer,
		Assets:   clips,
		Ledger:   ledger,
		Topics:   topics,
		Config:   cfg,
	})

	grid, err := upload.NewGrid(cfg.Upload.Timezone, cfg.Upload.SlotStartHour, cfg.Upload.SlotsPerDay, cfg.Upload.HorizonDays)
	if err != nil {
		return nil, err
	}
	scheduler := upload.NewScheduler(grid, st)

	rt := &runtime{
		cfg:       cfg,
		store:     st,
		machine:   machine,
		ledger:    ledger,
		topics:    topics,
		scheduler: scheduler,
	}

	rt.wireUploader(cfg, st, scheduler)
	return rt, nil
}

// wireUploader picks the publishing path: the post provider when its key
// is configured, direct YouTube when only oauth credentials exist.
func (rt *runtime) wireUploader(cfg *config.Config, st *store.Store, scheduler *upload.Scheduler) {
	if cfg.PostProviderAPIKey != "" {
		rt.processor = upload.NewProcessor(st, postapi.NewClient(cfg.PostProviderAPIKey), upload.ProcessorOptions{
			Platforms: cfg.Upload.Platforms,
			Accounts: map[string]string{
				"youtube": cfg.Upload.YouTubeAccount,
				"tiktok":  cfg.Upload.TikTokAccount,
			},
			Tags:         cfg.YouTube.DefaultTags,
			PollInterval: time.Duration(cfg.Upload.PollIntervalSec) * time.Second,
			PollTimeout:  time.Duration(cfg.Upload.PollTimeoutSec) * time.Second,
		})
		rt.machine.SetUploader(upload.NewService(scheduler, rt.processor))
		return
	}

	if cfg.YouTubeClientID != "" && cfg.YouTubeClientSecret != "" {
		auth := youtube.NewAuth(cfg.YouTubeClientID, cfg.YouTubeClientSecret, cfg.YouTubeTokenPath)
		rt.direct = upload.NewDirect(scheduler, st, youtube.NewClient(auth), cfg.YouTube.DefaultTags)
		rt.machine.SetUploader(rt.direct)
	}
}

func buildAssetProvider(ctx context.Context, cfg *config.Config) (assets.Provider, error) {
	if cfg.GCS.Enabled {
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("gcs enabled but GCS_BUCKET not set")
		}
		return assets.NewGCSProvider(ctx, cfg.GCSBucket,
			cfg.GCS.BackgroundDir, cfg.GCS.MusicDir, cfg.GCS.OverlayDir,
			cfg.Video.CacheDir)
	}

	local := assets.NewLocalProvider(cfg.Video.BackgroundDir, cfg.Music.Dir, cfg.Video.OverlayDir)
	if err := local.EnsureDirectories(); err != nil {
		return nil, err
	}
	return local, nil
}
