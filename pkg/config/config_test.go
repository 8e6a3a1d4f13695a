package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromYAML(t *testing.T) {
	tmp := t.TempDir()
	orig, _ := os.Getwd()
	defer func() { _ = os.Chdir(orig) }()
	_ = os.Chdir(tmp)

	yaml := `
groq:
  model: test-model
content:
  word_count: 150
subtitles:
  style: plain
  words_per_line: 4
upload:
  slots_per_day: 8
`
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte(yaml), 0644)

	cfg := Load(context.Background())

	if cfg.Groq.Model != "test-model" {
		t.Errorf("Groq.Model = %q, want test-model", cfg.Groq.Model)
	}
	if cfg.Content.WordCount != 150 {
		t.Errorf("Content.WordCount = %d, want 150", cfg.Content.WordCount)
	}
	if cfg.Subtitles.Style != SubtitleStylePlain {
		t.Errorf("Subtitles.Style = %q, want plain", cfg.Subtitles.Style)
	}
	if cfg.Subtitles.WordsPerLine != 4 {
		t.Errorf("Subtitles.WordsPerLine = %d, want 4", cfg.Subtitles.WordsPerLine)
	}
	if cfg.Upload.SlotsPerDay != 8 {
		t.Errorf("Upload.SlotsPerDay = %d, want 8", cfg.Upload.SlotsPerDay)
	}
}

func TestLoadFromEnv(t *testing.T) {
	tmp := t.TempDir()
	orig, _ := os.Getwd()
	defer func() { _ = os.Chdir(orig) }()
	_ = os.Chdir(tmp)

	t.Setenv("DATABASE_DSN", "postgres://test")
	t.Setenv("GROQ_API_KEY", "test-groq")
	t.Setenv("ELEVENLABS_API_KEY", "test-eleven")
	t.Setenv("POST_PROVIDER_API_KEY", "test-provider")

	cfg := Load(context.Background())

	if cfg.DatabaseDSN != "postgres://test" {
		t.Errorf("DatabaseDSN = %q", cfg.DatabaseDSN)
	}
	if cfg.GroqAPIKey != "test-groq" {
		t.Errorf("GroqAPIKey = %q", cfg.GroqAPIKey)
	}
	if cfg.ElevenLabsAPIKey != "test-eleven" {
		t.Errorf("ElevenLabsAPIKey = %q", cfg.ElevenLabsAPIKey)
	}
	if cfg.PostProviderAPIKey != "test-provider" {
		t.Errorf("PostProviderAPIKey = %q", cfg.PostProviderAPIKey)
	}
}

func TestLoadDefaults(t *testing.T) {
	tmp := t.TempDir()
	orig, _ := os.Getwd()
	defer func() { _ = os.Chdir(orig) }()
	_ = os.Chdir(tmp)

	cfg := Load(context.Background())

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"groqModel", cfg.Groq.Model, defaultGroqModel},
		{"resolution", cfg.Video.Resolution, defaultResolution},
		{"frameRate", cfg.Video.FrameRate, defaultFrameRate},
		{"imageCount", cfg.Images.Count, defaultImageCount},
		{"wordCount", cfg.Content.WordCount, defaultWordCount},
		{"validationAttempts", cfg.Content.ValidationAttempts, defaultMaxValidation},
		{"concurrency", cfg.Pipeline.Concurrency, defaultConcurrency},
		{"stepRetries", cfg.Pipeline.StepRetries, defaultStepRetries},
		{"timezone", cfg.Upload.Timezone, defaultTimezone},
		{"slotStartHour", cfg.Upload.SlotStartHour, defaultSlotStartHour},
		{"slotsPerDay", cfg.Upload.SlotsPerDay, defaultSlotsPerDay},
		{"horizonDays", cfg.Upload.HorizonDays, defaultSlotHorizonDays},
		{"musicVolume", cfg.Music.Volume, defaultMusicVolume},
		{"tokenPath", cfg.YouTubeTokenPath, defaultTokenPath},
		{"subtitleStyle", cfg.Subtitles.Style, SubtitleStyleKaraoke},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if len(cfg.Upload.Platforms) != 1 || cfg.Upload.Platforms[0] != "youtube" {
		t.Errorf("Upload.Platforms = %v, want [youtube]", cfg.Upload.Platforms)
	}
}

func TestYAMLOverridesDefaults(t *testing.T) {
	tmp := t.TempDir()
	orig, _ := os.Getwd()
	defer func() { _ = os.Chdir(orig) }()
	_ = os.Chdir(tmp)

	yaml := `
video:
  resolution: 720x1280
  frame_rate: 25
music:
  enabled: true
  volume: 0.25
`
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte(yaml), 0644)

	cfg := Load(context.Background())

	if cfg.Video.Resolution != "720x1280" {
		t.Errorf("Video.Resolution = %q, want 720x1280", cfg.Video.Resolution)
	}
	if cfg.Video.FrameRate != 25 {
		t.Errorf("Video.FrameRate = %d, want 25", cfg.Video.FrameRate)
	}
	if !cfg.Music.Enabled {
		t.Error("Music.Enabled = false, want true")
	}
	if cfg.Music.Volume != 0.25 {
		t.Errorf("Music.Volume = %v, want 0.25", cfg.Music.Volume)
	}
}
