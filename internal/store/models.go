package store

import "time"

type RenderMode string

const (
	RenderModeStatic   RenderMode = "static_background"
	RenderModeAiImages RenderMode = "ai_images"
)

type ContentStatus string

const (
	StatusPending            ContentStatus = "pending"
	StatusGeneratingScript   ContentStatus = "generating_script"
	StatusValidatingScript   ContentStatus = "validating_script"
	StatusGeneratingPrompts  ContentStatus = "generating_image_prompts"
	StatusGeneratingImages   ContentStatus = "generating_images"
	StatusGeneratingAudio    ContentStatus = "generating_audio"
	StatusGeneratingSubtitle ContentStatus = "generating_subtitles"
	StatusRendering          ContentStatus = "rendering"
	StatusCompleted          ContentStatus = "completed"
	StatusFailed             ContentStatus = "failed"
)

type UploadMode string

const (
	UploadModeImmediate UploadMode = "immediate"
	UploadModeScheduled UploadMode = "scheduled"
	UploadModeNone      UploadMode = "none"
)

type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusUploading ScheduleStatus = "uploading"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusFailed    ScheduleStatus = "failed"
)

type ContentItem struct {
	ID         string        `gorm:"primaryKey"`
	RenderMode RenderMode    `gorm:"not null"`
	Status     ContentStatus `gorm:"not null;index"`

	TopicID   *uint
	HookStyle string

	Title       string
	Description string
	Script      string

	AudioPath     string
	SubtitlePath  string
	OutputPath    string
	ThumbnailPath string
	ImagePrompts  []string `gorm:"serializer:json"`
	ImagePaths    []string `gorm:"serializer:json"`
	VoiceDuration float64

	// Rotation picks are persisted so a resumed pipeline reuses the same assets.
	BackgroundIndex  int
	MusicIndex       int
	OverlayIndex     int
	ColorSchemeIndex int

	FailedStep   string
	ErrorMessage string

	AutoUpload  bool
	UploadMode  UploadMode
	UploadError string

	ValidationAttempts int
	ValidationPassed   bool
	ValidationReport   string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func (ContentItem) TableName() string {
	return "content_items"
}

type PlatformResult struct {
	Platform string `json:"platform"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

type UploadSchedule struct {
	ID            uint   `gorm:"primaryKey"`
	ContentItemID string `gorm:"uniqueIndex;not null"`

	// ScheduledDate is midnight of the slot's day in the grid timezone.
	// Slot -1 marks an immediate upload that bypasses the grid.
	ScheduledDate time.Time `gorm:"not null"`
	Slot          int       `gorm:"not null"`
	ScheduledAt   time.Time `gorm:"not null"`

	Status        ScheduleStatus `gorm:"not null;index"`
	Progress      int
	ExternalJobID string
	Results       []PlatformResult `gorm:"serializer:json"`
	ErrorMessage  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UploadSchedule) TableName() string {
	return "upload_schedules"
}

type Topic struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	Description string
	IsActive    bool `gorm:"not null;default:true"`
	UsageCount  int
	LastUsedAt  *time.Time
	CreatedAt   time.Time
}

func (Topic) TableName() string {
	return "topics"
}

// RotationCounters is a single row (id=1) holding one monotonically
// increasing counter per rotated resource class.
type RotationCounters struct {
	ID          int `gorm:"primaryKey"`
	Topic       int64
	Music       int64
	Overlay     int64
	ColorScheme int64
	OpeningHook int64
}

func (RotationCounters) TableName() string {
	return "rotation_counters"
}
