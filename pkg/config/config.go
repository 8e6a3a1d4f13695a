package config

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath      = "config.yaml"
	defaultOutputDir       = "./output"
	defaultCacheDir        = "./.cache"
	defaultBackgroundDir   = "./assets/backgrounds"
	defaultMusicDir        = "./assets/music"
	defaultOverlayDir      = "./assets/overlays"
	defaultResolution      = "1080x1920"
	defaultFrameRate       = 30
	defaultGroqModel       = "llama-3.3-70b-versatile"
	defaultElevenLabsVoice = "JBFqnCBsd6RMkjVDRZzb"
	defaultElevenLabsModel = "eleven_multilingual_v2"
	defaultImageModel      = "flux"
	defaultImageWidth      = 1080
	defaultImageHeight     = 1920
	defaultImageCount      = 5
	defaultSubtitleFont    = "Montserrat Black"
	defaultSubtitleSize    = 128
	defaultOutlineSize     = 5
	defaultShadowSize      = 3
	defaultPrimaryColor    = "#FFFFFF"
	defaultOutlineColor    = "#000000"
	defaultWordsPerLine    = 5
	defaultMusicVolume     = 0.15
	defaultMusicTail       = 3.0
	defaultWordCount       = 140
	defaultMaxValidation   = 2
	defaultConcurrency     = 2
	defaultJobsPerMinute   = 10
	defaultStepRetries     = 3
	defaultTimezone        = "America/New_York"
	defaultSlotStartHour   = 10
	defaultSlotsPerDay     = 10
	defaultSlotHorizonDays = 30
	defaultPollInterval    = 10
	defaultPollTimeout     = 600
	defaultRetentionDays   = 14
	defaultStability       = 0.5
	defaultSimilarity      = 0.5
	defaultGCSBackgrounds  = "backgrounds"
	defaultGCSMusic        = "music"
	defaultGCSOverlays     = "overlays"
	defaultPrivacyStatus   = "private"
	defaultTokenPath       = "./youtube_token.json"
)

// Subtitle styles. Karaoke burns per-word highlight timing into ASS
// events; plain falls back to default-styled SRT lines.
const (
	SubtitleStyleKaraoke = "karaoke"
	SubtitleStylePlain   = "plain"
)

type Config struct {
	DatabaseDSN         string
	GroqAPIKey          string
	ElevenLabsAPIKey    string
	PostProviderAPIKey  string
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeTokenPath    string
	GCSBucket           string
	GCPProject          string

	Groq       GroqConfig       `yaml:"groq"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Images     ImagesConfig     `yaml:"images"`
	Content    ContentConfig    `yaml:"content"`
	Video      VideoConfig      `yaml:"video"`
	Music      MusicConfig      `yaml:"music"`
	Subtitles  SubtitlesConfig  `yaml:"subtitles"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Upload     UploadConfig     `yaml:"upload"`
	YouTube    YouTubeConfig    `yaml:"youtube"`
	GCS        GCSConfig        `yaml:"gcs"`
}

type GroqConfig struct {
	Model string `yaml:"model"`
}

type ElevenLabsConfig struct {
	VoiceID    string  `yaml:"voice_id"`
	Model      string  `yaml:"model"`
	Stability  float64 `yaml:"stability"`
	Similarity float64 `yaml:"similarity"`
}

type ImagesConfig struct {
	Model  string `yaml:"model"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Count  int    `yaml:"count"`
}

type ContentConfig struct {
	WordCount          int `yaml:"word_count"`
	ValidationAttempts int `yaml:"validation_attempts"`
}

type VideoConfig struct {
	OutputDir     string `yaml:"output_dir"`
	CacheDir      string `yaml:"cache_dir"`
	BackgroundDir string `yaml:"background_dir"`
	OverlayDir    string `yaml:"overlay_dir"`
	Resolution    string `yaml:"resolution"`
	FrameRate     int    `yaml:"frame_rate"`
	LightRays     bool   `yaml:"light_rays"`
}

type MusicConfig struct {
	Enabled bool    `yaml:"enabled"`
	Dir     string  `yaml:"dir"`
	Volume  float64 `yaml:"volume"`
	Tail    float64 `yaml:"tail"`
}

type SubtitlesConfig struct {
	FontName     string `yaml:"font_name"`
	FontSize     int    `yaml:"font_size"`
	PrimaryColor string `yaml:"primary_color"`
	OutlineColor string `yaml:"outline_color"`
	OutlineSize  int    `yaml:"outline_size"`
	ShadowSize   int    `yaml:"shadow_size"`
	Bold         bool   `yaml:"bold"`
	WordsPerLine int    `yaml:"words_per_line"`
	Style        string `yaml:"style"`
}

type PipelineConfig struct {
	Concurrency   int `yaml:"concurrency"`
	JobsPerMinute int `yaml:"jobs_per_minute"`
	StepRetries   int `yaml:"step_retries"`
	RetentionDays int `yaml:"retention_days"`
}

type UploadConfig struct {
	Timezone        string   `yaml:"timezone"`
	SlotStartHour   int      `yaml:"slot_start_hour"`
	SlotsPerDay     int      `yaml:"slots_per_day"`
	HorizonDays     int      `yaml:"horizon_days"`
	PollIntervalSec int      `yaml:"poll_interval_sec"`
	PollTimeoutSec  int      `yaml:"poll_timeout_sec"`
	Platforms       []string `yaml:"platforms"`
	YouTubeAccount  string   `yaml:"youtube_account"`
	TikTokAccount   string   `yaml:"tiktok_account"`
}

type YouTubeConfig struct {
	DefaultTags   []string `yaml:"default_tags"`
	PrivacyStatus string   `yaml:"privacy_status"`
}

type GCSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	BackgroundDir string `yaml:"background_dir"`
	MusicDir      string `yaml:"music_dir"`
	OverlayDir    string `yaml:"overlay_dir"`
}

func Load(ctx context.Context) *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		DatabaseDSN:         os.Getenv("DATABASE_DSN"),
		GroqAPIKey:          os.Getenv("GROQ_API_KEY"),
		ElevenLabsAPIKey:    os.Getenv("ELEVENLABS_API_KEY"),
		PostProviderAPIKey:  os.Getenv("POST_PROVIDER_API_KEY"),
		YouTubeClientID:     os.Getenv("YOUTUBE_CLIENT_ID"),
		YouTubeClientSecret: os.Getenv("YOUTUBE_CLIENT_SECRET"),
		YouTubeTokenPath:    getEnvOrDefault("YOUTUBE_TOKEN_PATH", defaultTokenPath),
		GCSBucket:           os.Getenv("GCS_BUCKET"),
		GCPProject:          os.Getenv("GOOGLE_CLOUD_PROJECT"),
	}

	loadYAMLConfig(cfg)
	applyDefaults(cfg)
	loadSecrets(ctx, cfg)

	return cfg
}

func loadYAMLConfig(cfg *Config) {
	data, err := os.ReadFile(defaultConfigPath)
	if err != nil {
		slog.Warn("No config.yaml found, using defaults")
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Error("Failed to parse config.yaml", "error", err)
	}
}

func applyDefaults(cfg *Config) {
	applyGroqDefaults(cfg)
	applyElevenLabsDefaults(cfg)
	applyImagesDefaults(cfg)
	applyContentDefaults(cfg)
	applyVideoDefaults(cfg)
	applyMusicDefaults(cfg)
	applySubtitlesDefaults(cfg)
	applyPipelineDefaults(cfg)
	applyUploadDefaults(cfg)
	applyYouTubeDefaults(cfg)
	applyGCSDefaults(cfg)
}

func applyGroqDefaults(cfg *Config) {
	if cfg.Groq.Model == "" {
		cfg.Groq.Model = defaultGroqModel
	}
}

func applyElevenLabsDefaults(cfg *Config) {
	if cfg.ElevenLabs.VoiceID == "" {
		cfg.ElevenLabs.VoiceID = defaultElevenLabsVoice
	}
	if cfg.ElevenLabs.Model == "" {
		cfg.ElevenLabs.Model = defaultElevenLabsModel
	}
	if cfg.ElevenLabs.Stability == 0 {
		cfg.ElevenLabs.Stability = defaultStability
	}
	if cfg.ElevenLabs.Similarity == 0 {
		cfg.ElevenLabs.Similarity = defaultSimilarity
	}
}

func applyImagesDefaults(cfg *Config) {
	if cfg.Images.Model == "" {
		cfg.Images.Model = defaultImageModel
	}
	if cfg.Images.Width == 0 {
		cfg.Images.Width = defaultImageWidth
	}
	if cfg.Images.Height == 0 {
		cfg.Images.Height = defaultImageHeight
	}
	if cfg.Images.Count == 0 {
		cfg.Images.Count = defaultImageCount
	}
}

func applyContentDefaults(cfg *Config) {
	if cfg.Content.WordCount == 0 {
		cfg.Content.WordCount = defaultWordCount
	}
	if cfg.Content.ValidationAttempts == 0 {
		cfg.Content.ValidationAttempts = defaultMaxValidation
	}
}

func applyVideoDefaults(cfg *Config) {
	if cfg.Video.OutputDir == "" {
		cfg.Video.OutputDir = defaultOutputDir
	}
	if cfg.Video.CacheDir == "" {
		cfg.Video.CacheDir = defaultCacheDir
	}
	if cfg.Video.BackgroundDir == "" {
		cfg.Video.BackgroundDir = defaultBackgroundDir
	}
	if cfg.Video.OverlayDir == "" {
		cfg.Video.OverlayDir = defaultOverlayDir
	}
	if cfg.Video.Resolution == "" {
		cfg.Video.Resolution = defaultResolution
	}
	if cfg.Video.FrameRate == 0 {
		cfg.Video.FrameRate = defaultFrameRate
	}
}

func applyMusicDefaults(cfg *Config) {
	if cfg.Music.Dir == "" {
		cfg.Music.Dir = defaultMusicDir
	}
	if cfg.Music.Volume == 0 {
		cfg.Music.Volume = defaultMusicVolume
	}
	if cfg.Music.Tail == 0 {
		cfg.Music.Tail = defaultMusicTail
	}
}

func applySubtitlesDefaults(cfg *Config) {
	if cfg.Subtitles.FontName == "" {
		cfg.Subtitles.FontName = defaultSubtitleFont
	}
	if cfg.Subtitles.FontSize == 0 {
		cfg.Subtitles.FontSize = defaultSubtitleSize
	}
	if cfg.Subtitles.PrimaryColor == "" {
		cfg.Subtitles.PrimaryColor = defaultPrimaryColor
	}
	if cfg.Subtitles.OutlineColor == "" {
		cfg.Subtitles.OutlineColor = defaultOutlineColor
	}
	if cfg.Subtitles.OutlineSize == 0 {
		cfg.Subtitles.OutlineSize = defaultOutlineSize
	}
	if cfg.Subtitles.ShadowSize == 0 {
		cfg.Subtitles.ShadowSize = defaultShadowSize
	}
	if cfg.Subtitles.WordsPerLine == 0 {
		cfg.Subtitles.WordsPerLine = defaultWordsPerLine
	}
	if cfg.Subtitles.Style == "" {
		cfg.Subtitles.Style = SubtitleStyleKaraoke
	}
}

func applyPipelineDefaults(cfg *Config) {
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = defaultConcurrency
	}
	if cfg.Pipeline.JobsPerMinute == 0 {
		cfg.Pipeline.JobsPerMinute = defaultJobsPerMinute
	}
	if cfg.Pipeline.StepRetries == 0 {
		cfg.Pipeline.StepRetries = defaultStepRetries
	}
	if cfg.Pipeline.RetentionDays == 0 {
		cfg.Pipeline.RetentionDays = defaultRetentionDays
	}
}

func applyUploadDefaults(cfg *Config) {
	if cfg.Upload.Timezone == "" {
		cfg.Upload.Timezone = defaultTimezone
	}
	if cfg.Upload.SlotStartHour == 0 {
		cfg.Upload.SlotStartHour = defaultSlotStartHour
	}
	if cfg.Upload.SlotsPerDay == 0 {
		cfg.Upload.SlotsPerDay = defaultSlotsPerDay
	}
	if cfg.Upload.HorizonDays == 0 {
		cfg.Upload.HorizonDays = defaultSlotHorizonDays
	}
	if cfg.Upload.PollIntervalSec == 0 {
		cfg.Upload.PollIntervalSec = defaultPollInterval
	}
	if cfg.Upload.PollTimeoutSec == 0 {
		cfg.Upload.PollTimeoutSec = defaultPollTimeout
	}
	if len(cfg.Upload.Platforms) == 0 {
		cfg.Upload.Platforms = []string{"youtube"}
	}
}

func applyYouTubeDefaults(cfg *Config) {
	if len(cfg.YouTube.DefaultTags) == 0 {
		cfg.YouTube.DefaultTags = []string{"shorts", "facts"}
	}
	if cfg.YouTube.PrivacyStatus == "" {
		cfg.YouTube.PrivacyStatus = defaultPrivacyStatus
	}
}

func applyGCSDefaults(cfg *Config) {
	if cfg.GCS.BackgroundDir == "" {
		cfg.GCS.BackgroundDir = defaultGCSBackgrounds
	}
	if cfg.GCS.MusicDir == "" {
		cfg.GCS.MusicDir = defaultGCSMusic
	}
	if cfg.GCS.OverlayDir == "" {
		cfg.GCS.OverlayDir = defaultGCSOverlays
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
