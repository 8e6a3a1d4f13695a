package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"reelforge/internal/assets"
	"reelforge/internal/llm"
	"reelforge/internal/rotation"
	"reelforge/internal/script"
	"reelforge/internal/speech"
	"reelforge/internal/store"
	"reelforge/internal/video"
	"reelforge/pkg/config"
)

type fakeStore struct {
	mu            sync.Mutex
	items         map[string]*store.ContentItem
	statusLog     map[string][]store.ContentStatus
	topics        []store.Topic
	uploadErrorCh chan string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:         make(map[string]*store.ContentItem),
		statusLog:     make(map[string][]store.ContentStatus),
		topics:        []store.Topic{{ID: 1, Name: "space", Description: "space facts", IsActive: true}},
		uploadErrorCh: make(chan string, 1),
	}
}

func (f *fakeStore) add(item *store.ContentItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = item
}

func (f *fakeStore) GetContentItem(_ context.Context, id string) (*store.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (f *fakeStore) GetTopic(_ context.Context, id uint) (*store.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.topics {
		if t.ID == id {
			copied := t
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) SetContentStatus(_ context.Context, id string, status store.ContentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id].Status = status
	f.statusLog[id] = append(f.statusLog[id], status)
	return nil
}

func (f *fakeStore) SaveContentFields(_ context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[id]
	for key, value := range fields {
		switch key {
		case "topic_id":
			if v, ok := value.(uint); ok {
				item.TopicID = &v
			}
		case "hook_style":
			item.HookStyle = value.(string)
		case "title":
			item.Title = value.(string)
		case "description":
			item.Description = value.(string)
		case "script":
			item.Script = value.(string)
		case "image_prompts":
			_ = json.Unmarshal([]byte(value.(string)), &item.ImagePrompts)
		case "image_paths":
			_ = json.Unmarshal([]byte(value.(string)), &item.ImagePaths)
		case "audio_path":
			item.AudioPath = value.(string)
		case "voice_duration":
			item.VoiceDuration = value.(float64)
		case "subtitle_path":
			item.SubtitlePath = value.(string)
		case "output_path":
			item.OutputPath = value.(string)
		case "thumbnail_path":
			item.ThumbnailPath = value.(string)
		case "background_index":
			item.BackgroundIndex = value.(int)
		case "music_index":
			item.MusicIndex = value.(int)
		case "overlay_index":
			item.OverlayIndex = value.(int)
		case "color_scheme_index":
			item.ColorSchemeIndex = value.(int)
		case "validation_attempts":
			item.ValidationAttempts = value.(int)
		case "validation_passed":
			item.ValidationPassed = value.(bool)
		case "validation_report":
			item.ValidationReport = value.(string)
		}
	}
	return nil
}

func (f *fakeStore) MarkContentFailed(_ context.Context, id, failedStep, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[id]
	item.Status = store.StatusFailed
	item.FailedStep = failedStep
	item.ErrorMessage = message
	f.statusLog[id] = append(f.statusLog[id], store.StatusFailed)
	return nil
}

func (f *fakeStore) MarkContentCompleted(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id].Status = store.StatusCompleted
	f.statusLog[id] = append(f.statusLog[id], store.StatusCompleted)
	return nil
}

func (f *fakeStore) SetUploadError(_ context.Context, id, message string) error {
	f.mu.Lock()
	f.items[id].UploadError = message
	f.items[id].AutoUpload = false
	f.mu.Unlock()
	f.uploadErrorCh <- message
	return nil
}

func (f *fakeStore) ListContentByStatus(_ context.Context, statuses ...store.ContentStatus) ([]store.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.ContentItem
	for _, item := range f.items {
		for _, status := range statuses {
			if item.Status == status {
				out = append(out, *item)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ActiveTopics(_ context.Context) ([]store.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Topic(nil), f.topics...), nil
}

func (f *fakeStore) TouchTopicUsage(_ context.Context, _ uint) error {
	return nil
}

type fakeCounters struct {
	mu     sync.Mutex
	values map[string]int64
}

func (f *fakeCounters) IncrementCounter(_ context.Context, class string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = make(map[string]int64)
	}
	f.values[class]++
	return f.values[class], nil
}

func (f *fakeCounters) GetCounter(_ context.Context, class string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[class], nil
}

func (f *fakeCounters) SetCounter(_ context.Context, class string, value int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = make(map[string]int64)
	}
	f.values[class] = value
	return nil
}

type stubLLM struct {
	mu      sync.Mutex
	drafts  int
	prompts int
}

func (s *stubLLM) GenerateDraft(_ context.Context, req llm.DraftRequest) (*llm.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts++
	return &llm.Draft{
		Title:       "Why " + req.TopicName + " matters",
		Description: "A short video.",
		Script:      "Space is big. Really big and also quite old indeed.",
		WordCount:   10,
	}, nil
}

func (s *stubLLM) ValidateDraft(_ context.Context, _ *llm.Draft) (string, error) {
	return `{"isValid": true, "overallQuality": "good", "recommendation": "accept"}`, nil
}

func (s *stubLLM) GenerateImagePrompts(_ context.Context, _ string, count int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts++
	out := make([]string, count)
	for i := range out {
		out[i] = fmt.Sprintf("scene %d", i)
	}
	return out, nil
}

func (s *stubLLM) draftCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts
}

type stubSpeech struct{}

func (stubSpeech) Synthesize(_ context.Context, text string) (*speech.SpeechResult, error) {
	audio := make([]byte, 160000) // about 10s at the estimator's bitrate
	return &speech.SpeechResult{
		Audio:      audio,
		Characters: speech.EstimateTimings(text, audio),
	}, nil
}

type stubImages struct {
	mu    sync.Mutex
	calls int
}

func (s *stubImages) Generate(_ context.Context, _ string, _ int, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil
}

type stubRenderer struct {
	mu         sync.Mutex
	static     []video.StaticRequest
	slideshows []video.SlideshowRequest
}

func (s *stubRenderer) RenderStatic(_ context.Context, req video.StaticRequest) (*video.RenderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.static = append(s.static, req)
	return &video.RenderResult{OutputPath: req.OutputPath, Duration: req.VoiceDuration}, nil
}

func (s *stubRenderer) RenderSlideshow(_ context.Context, req video.SlideshowRequest) (*video.RenderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slideshows = append(s.slideshows, req)
	return &video.RenderResult{OutputPath: req.OutputPath, Duration: req.VoiceDuration}, nil
}

type testHarness struct {
	machine  *Machine
	store    *fakeStore
	llm      *stubLLM
	images   *stubImages
	renderer *stubRenderer
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	fs := newFakeStore()
	client := &stubLLM{}
	images := &stubImages{}
	renderer := &stubRenderer{}
	ledger := rotation.NewLedger(&fakeCounters{})

	cfg := &config.Config{}
	cfg.Video.OutputDir = t.TempDir()
	cfg.Content.WordCount = 140
	cfg.Content.ValidationAttempts = 2
	cfg.Images.Count = 3
	cfg.Subtitles.WordsPerLine = 5
	cfg.Subtitles.Style = config.SubtitleStyleKaraoke
	cfg.Subtitles.FontName = "Montserrat Black"
	cfg.Subtitles.FontSize = 128

	machine := NewMachine(MachineOptions{
		Store:    fs,
		LLM:      client,
		Scripts:  script.NewGenerator(client, cfg.Content.ValidationAttempts),
		Speech:   stubSpeech{},
		Images:   images,
		Renderer: renderer,
		Assets:   assets.NewLocalProvider(t.TempDir(), t.TempDir(), t.TempDir()),
		Ledger:   ledger,
		Topics:   rotation.NewTopicSelector(ledger, fs),
		Config:   cfg,
	})
	NewSyncRunner(machine)

	return &testHarness{machine: machine, store: fs, llm: client, images: images, renderer: renderer}
}

func newItem(id string, mode store.RenderMode) *store.ContentItem {
	return &store.ContentItem{
		ID:               id,
		RenderMode:       mode,
		Status:           store.StatusPending,
		BackgroundIndex:  -1,
		MusicIndex:       -1,
		OverlayIndex:     -1,
		ColorSchemeIndex: -1,
	}
}

func TestBatchTraversesStatesInOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ids := []string{"item-1", "item-2", "item-3", "item-4", "item-5"}
	for _, id := range ids {
		h.store.add(newItem(id, store.RenderModeAiImages))
	}

	for _, id := range ids {
		if err := h.machine.Start(ctx, id); err != nil {
			t.Fatalf("item %s: %v", id, err)
		}
	}

	want := []store.ContentStatus{
		store.StatusGeneratingScript,
		store.StatusValidatingScript,
		store.StatusGeneratingPrompts,
		store.StatusGeneratingImages,
		store.StatusGeneratingAudio,
		store.StatusGeneratingSubtitle,
		store.StatusRendering,
		store.StatusCompleted,
	}

	for _, id := range ids {
		item, _ := h.store.GetContentItem(ctx, id)
		if item.Status != store.StatusCompleted {
			t.Errorf("item %s status = %s, want completed (error: %s)", id, item.Status, item.ErrorMessage)
		}

		log := h.store.statusLog[id]
		if len(log) != len(want) {
			t.Fatalf("item %s traversed %d states, want %d: %v", id, len(log), len(want), log)
		}
		for i := range want {
			if log[i] != want[i] {
				t.Errorf("item %s state[%d] = %s, want %s", id, i, log[i], want[i])
			}
		}

		if item.OutputPath == "" || item.SubtitlePath == "" || item.AudioPath == "" {
			t.Errorf("item %s missing artifacts: %+v", id, item)
		}
		if len(item.ImagePaths) != 3 {
			t.Errorf("item %s has %d image paths, want 3", id, len(item.ImagePaths))
		}
	}

	// One draft per item: validator accepted every first attempt.
	if got := h.llm.draftCount(); got != 5 {
		t.Errorf("drafts generated = %d, want 5", got)
	}
	if len(h.renderer.slideshows) != 5 {
		t.Errorf("slideshow renders = %d, want 5", len(h.renderer.slideshows))
	}
}

func TestStaticModeSkipsImageSteps(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Static mode needs a background clip on disk.
	h.store.add(newItem("static-1", store.RenderModeStatic))
	h.machine.assets = assets.NewLocalProvider(writeClipDir(t), "", "")

	if err := h.machine.Start(ctx, "static-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log := h.store.statusLog["static-1"]
	for _, status := range log {
		if status == store.StatusGeneratingPrompts || status == store.StatusGeneratingImages {
			t.Errorf("static mode must not enter %s", status)
		}
	}
	if h.images.calls != 0 {
		t.Errorf("image generator called %d times in static mode", h.images.calls)
	}
	if len(h.renderer.static) != 1 {
		t.Fatalf("static renders = %d, want 1", len(h.renderer.static))
	}
	if h.renderer.static[0].BackgroundPath == "" {
		t.Error("static render missing background clip")
	}
}

func TestRetryResumesFromFailedStep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	item := newItem("resume-1", store.RenderModeAiImages)
	topicID := uint(1)
	item.TopicID = &topicID
	item.Title = "Kept title"
	item.Script = "Already generated script that must survive the retry."
	item.ImagePrompts = []string{"scene 0", "scene 1"}
	item.ImagePaths = []string{"a.png", "b.png"}
	item.Status = store.StatusFailed
	item.FailedStep = string(StepGenerateAudio)
	h.store.add(item)

	if err := h.machine.Retry(ctx, "resume-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := h.store.GetContentItem(ctx, "resume-1")
	if got.Status != store.StatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", got.Status, got.ErrorMessage)
	}
	if got.Script != item.Script {
		t.Error("retry must not regenerate the script")
	}
	if h.llm.draftCount() != 0 {
		t.Errorf("drafts generated on resume = %d, want 0", h.llm.draftCount())
	}

	log := h.store.statusLog["resume-1"]
	if len(log) == 0 || log[0] != store.StatusGeneratingAudio {
		t.Errorf("resume must start at generating_audio, log: %v", log)
	}
}

func TestRetryRejectsNonFailedItem(t *testing.T) {
	h := newHarness(t)
	item := newItem("ok-1", store.RenderModeStatic)
	item.Status = store.StatusCompleted
	h.store.add(item)

	if err := h.machine.Retry(context.Background(), "ok-1"); err == nil {
		t.Fatal("expected error for non-failed item")
	}
}

func TestAutoUploadFailureIsIsolated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	item := newItem("up-1", store.RenderModeAiImages)
	item.AutoUpload = true
	h.store.add(item)
	h.machine.SetUploader(failingUploader{})

	if err := h.machine.Start(ctx, "up-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-h.store.uploadErrorCh:
		if msg == "" {
			t.Error("upload error message must be recorded")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("upload error was never recorded")
	}

	got, _ := h.store.GetContentItem(ctx, "up-1")
	if got.Status != store.StatusCompleted {
		t.Errorf("upload failure must not fail the pipeline, status = %s", got.Status)
	}
	if got.AutoUpload {
		t.Error("auto-upload must be disabled after a failure")
	}
}

func TestRecoverReenqueuesInFlightItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	midFlight := newItem("mid-1", store.RenderModeAiImages)
	topicID := uint(1)
	midFlight.TopicID = &topicID
	midFlight.Title = "t"
	midFlight.Script = "Recovered script stays put across restarts."
	midFlight.Status = store.StatusGeneratingPrompts
	h.store.add(midFlight)

	done := newItem("done-1", store.RenderModeStatic)
	done.Status = store.StatusCompleted
	h.store.add(done)

	recovered, err := h.machine.Recover(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recovered != 1 {
		t.Errorf("recovered = %d, want 1", recovered)
	}

	got, _ := h.store.GetContentItem(ctx, "mid-1")
	if got.Status != store.StatusCompleted {
		t.Errorf("recovered item should finish, status = %s (error: %s)", got.Status, got.ErrorMessage)
	}
}

type failingUploader struct{}

func (failingUploader) UploadNow(_ context.Context, _ *store.ContentItem) error {
	return errors.New("platform rejected the media")
}

func writeClipDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}
