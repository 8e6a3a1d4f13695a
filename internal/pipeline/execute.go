package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"reelforge/internal/assets"
	"reelforge/internal/llm"
	"reelforge/internal/rotation"
	"reelforge/internal/script"
	"reelforge/internal/speech"
	"reelforge/internal/store"
	"reelforge/internal/subtitle"
	"reelforge/internal/video"
	"reelforge/pkg/config"
)

func (m *Machine) execute(ctx context.Context, item *store.ContentItem, step Step) error {
	switch step {
	case StepGenerateScript:
		return m.runGenerateScript(ctx, item)
	case StepValidateScript:
		return m.runValidateScript(ctx, item)
	case StepGeneratePrompts:
		return m.runGeneratePrompts(ctx, item)
	case StepGenerateImages:
		return m.runGenerateImages(ctx, item)
	case StepGenerateAudio:
		return m.runGenerateAudio(ctx, item)
	case StepGenerateSubtitles:
		return m.runGenerateSubtitles(ctx, item)
	case StepRender:
		return m.runRender(ctx, item)
	default:
		return fmt.Errorf("unknown step: %s", step)
	}
}

func (m *Machine) itemDir(itemID string) string {
	return filepath.Join(m.cfg.Video.OutputDir, itemID)
}

func (m *Machine) alignmentPath(itemID string) string {
	return filepath.Join(m.itemDir(itemID), "alignment.json")
}

func (m *Machine) runGenerateScript(ctx context.Context, item *store.ContentItem) error {
	topic, err := m.resolveTopic(ctx, item)
	if err != nil {
		return err
	}

	hook := item.HookStyle
	if hook == "" {
		idx, err := m.ledger.NextIndex(ctx, rotation.ClassOpeningHook, len(script.HookStyles))
		if err != nil {
			return err
		}
		if idx >= 0 {
			hook = script.HookStyles[idx]
		}
	}

	draft, err := m.llm.GenerateDraft(ctx, llm.DraftRequest{
		TopicName:        topic.Name,
		TopicDescription: topic.Description,
		HookStyle:        hook,
		WordCount:        m.cfg.Content.WordCount,
	})
	if err != nil {
		return fmt.Errorf("generate draft: %w", err)
	}

	return m.store.SaveContentFields(ctx, item.ID, map[string]any{
		"topic_id":    topic.ID,
		"hook_style":  hook,
		"title":       draft.Title,
		"description": draft.Description,
		"script":      draft.Script,
	})
}

// resolveTopic uses the item's pinned topic when set, otherwise rotates
// to the next active topic.
func (m *Machine) resolveTopic(ctx context.Context, item *store.ContentItem) (*store.Topic, error) {
	if item.TopicID != nil {
		topic, err := m.store.GetTopic(ctx, *item.TopicID)
		if err != nil {
			return nil, fmt.Errorf("load topic %d: %w", *item.TopicID, err)
		}
		return topic, nil
	}
	return m.topics.Next(ctx)
}

func (m *Machine) runValidateScript(ctx context.Context, item *store.ContentItem) error {
	if item.Script == "" {
		return fmt.Errorf("no script to validate")
	}

	req := llm.DraftRequest{
		HookStyle: item.HookStyle,
		WordCount: m.cfg.Content.WordCount,
	}
	if item.TopicID != nil {
		if topic, err := m.store.GetTopic(ctx, *item.TopicID); err == nil {
			req.TopicName = topic.Name
			req.TopicDescription = topic.Description
		}
	}

	result, err := m.scripts.Refine(ctx, req, &llm.Draft{
		Title:       item.Title,
		Description: item.Description,
		Script:      item.Script,
	})
	if err != nil {
		return err
	}

	report, err := json.Marshal(result.Report)
	if err != nil {
		return fmt.Errorf("marshal validation report: %w", err)
	}

	return m.store.SaveContentFields(ctx, item.ID, map[string]any{
		"title":               result.Draft.Title,
		"description":         result.Draft.Description,
		"script":              result.Draft.Script,
		"validation_attempts": result.Attempts,
		"validation_passed":   result.Passed,
		"validation_report":   string(report),
	})
}

func (m *Machine) runGeneratePrompts(ctx context.Context, item *store.ContentItem) error {
	prompts, err := m.llm.GenerateImagePrompts(ctx, item.Script, m.cfg.Images.Count)
	if err != nil {
		return fmt.Errorf("generate image prompts: %w", err)
	}
	if len(prompts) == 0 {
		return fmt.Errorf("no image prompts returned")
	}

	data, err := json.Marshal(prompts)
	if err != nil {
		return fmt.Errorf("marshal prompts: %w", err)
	}

	return m.store.SaveContentFields(ctx, item.ID, map[string]any{
		"image_prompts": string(data),
	})
}

func (m *Machine) runGenerateImages(ctx context.Context, item *store.ContentItem) error {
	if len(item.ImagePrompts) == 0 {
		return fmt.Errorf("no image prompts to render")
	}

	imageDir := filepath.Join(m.itemDir(item.ID), "images")

	paths := make([]string, 0, len(item.ImagePrompts))
	for i, prompt := range item.ImagePrompts {
		outPath := filepath.Join(imageDir, fmt.Sprintf("%02d.png", i))
		if err := m.images.Generate(ctx, prompt, i, outPath); err != nil {
			return fmt.Errorf("generate image %d: %w", i, err)
		}
		paths = append(paths, outPath)
	}

	data, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("marshal image paths: %w", err)
	}

	return m.store.SaveContentFields(ctx, item.ID, map[string]any{
		"image_paths": string(data),
	})
}

func (m *Machine) runGenerateAudio(ctx context.Context, item *store.ContentItem) error {
	if item.Script == "" {
		return fmt.Errorf("no script to synthesize")
	}

	result, err := m.speech.Synthesize(ctx, item.Script)
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}

	dir := m.itemDir(item.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create item directory: %w", err)
	}

	audioPath := filepath.Join(dir, "voice.mp3")
	if err := os.WriteFile(audioPath, result.Audio, 0644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}

	alignment, err := json.Marshal(result.Characters)
	if err != nil {
		return fmt.Errorf("marshal alignment: %w", err)
	}
	if err := os.WriteFile(m.alignmentPath(item.ID), alignment, 0644); err != nil {
		return fmt.Errorf("write alignment: %w", err)
	}

	return m.store.SaveContentFields(ctx, item.ID, map[string]any{
		"audio_path":     audioPath,
		"voice_duration": speech.Duration(result.Characters),
	})
}

func (m *Machine) runGenerateSubtitles(ctx context.Context, item *store.ContentItem) error {
	data, err := os.ReadFile(m.alignmentPath(item.ID))
	if err != nil {
		return fmt.Errorf("read alignment: %w", err)
	}

	var chars []speech.CharTiming
	if err := json.Unmarshal(data, &chars); err != nil {
		return fmt.Errorf("parse alignment: %w", err)
	}

	lines := subtitle.NewBuilder(m.cfg.Subtitles.WordsPerLine).Build(chars)
	if len(lines) == 0 {
		return fmt.Errorf("no subtitle lines built from alignment")
	}

	dir := m.itemDir(item.ID)
	fields := map[string]any{}

	var subtitlePath string
	if m.cfg.Subtitles.Style != config.SubtitleStylePlain {
		schemeIdx := item.ColorSchemeIndex
		if schemeIdx < 0 {
			schemeIdx, err = m.ledger.NextIndex(ctx, rotation.ClassColorScheme, subtitle.SchemeCount())
			if err != nil {
				return err
			}
			fields["color_scheme_index"] = schemeIdx
		}
		scheme := subtitle.SchemeAt(schemeIdx)

		writer := subtitle.NewASSWriter(subtitle.StyleOptions{
			FontName:    m.cfg.Subtitles.FontName,
			FontSize:    m.cfg.Subtitles.FontSize,
			OutlineSize: m.cfg.Subtitles.OutlineSize,
			ShadowSize:  m.cfg.Subtitles.ShadowSize,
			Bold:        m.cfg.Subtitles.Bold,
			Scheme:      &scheme,
		})
		subtitlePath = filepath.Join(dir, "subs.ass")
		if err := os.WriteFile(subtitlePath, []byte(writer.Write(lines)), 0644); err != nil {
			return fmt.Errorf("write subtitles: %w", err)
		}
	} else {
		subtitlePath = filepath.Join(dir, "subs.srt")
		if err := os.WriteFile(subtitlePath, []byte(subtitle.WriteSRT(lines)), 0644); err != nil {
			return fmt.Errorf("write subtitles: %w", err)
		}
	}

	fields["subtitle_path"] = subtitlePath
	return m.store.SaveContentFields(ctx, item.ID, fields)
}

func (m *Machine) runRender(ctx context.Context, item *store.ContentItem) error {
	if item.AudioPath == "" || item.VoiceDuration <= 0 {
		return fmt.Errorf("no synthesized audio to render with")
	}

	outputPath := filepath.Join(m.itemDir(item.ID), "video.mp4")
	fields := map[string]any{}

	musicPath, err := m.pickMusic(ctx, item, fields)
	if err != nil {
		return err
	}

	var result *video.RenderResult
	switch item.RenderMode {
	case store.RenderModeStatic:
		backgroundPath, err := m.pickBackground(ctx, item, fields)
		if err != nil {
			return err
		}
		result, err = m.renderer.RenderStatic(ctx, video.StaticRequest{
			BackgroundPath: backgroundPath,
			VoicePath:      item.AudioPath,
			VoiceDuration:  item.VoiceDuration,
			MusicPath:      musicPath,
			SubtitlePath:   item.SubtitlePath,
			OutputPath:     outputPath,
		})
		if err != nil {
			return err
		}
	case store.RenderModeAiImages:
		if len(item.ImagePaths) == 0 {
			return fmt.Errorf("no generated images to render")
		}
		overlayPath, err := m.pickOverlay(ctx, item, fields)
		if err != nil {
			return err
		}
		result, err = m.renderer.RenderSlideshow(ctx, video.SlideshowRequest{
			ImagePaths:    item.ImagePaths,
			VoicePath:     item.AudioPath,
			VoiceDuration: item.VoiceDuration,
			MusicPath:     musicPath,
			OverlayPath:   overlayPath,
			SubtitlePath:  item.SubtitlePath,
			OutputPath:    outputPath,
			KenBurns:      true,
		})
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown render mode: %s", item.RenderMode)
	}

	fields["output_path"] = result.OutputPath
	fields["thumbnail_path"] = result.ThumbnailPath
	return m.store.SaveContentFields(ctx, item.ID, fields)
}

// pickMusic rotates to the next track on first use and reuses the
// persisted index on resume. Returns empty when music is disabled or no
// tracks exist.
func (m *Machine) pickMusic(ctx context.Context, item *store.ContentItem, fields map[string]any) (string, error) {
	if !m.cfg.Music.Enabled {
		return "", nil
	}

	idx := item.MusicIndex
	if idx < 0 {
		tracks, err := m.assets.List(ctx, assets.Music)
		if err != nil {
			return "", err
		}
		idx, err = m.ledger.NextIndex(ctx, rotation.ClassMusic, len(tracks))
		if err != nil {
			return "", err
		}
		if idx < 0 {
			return "", nil
		}
		fields["music_index"] = idx
	}

	return m.assets.ClipAt(ctx, assets.Music, idx)
}

func (m *Machine) pickBackground(ctx context.Context, item *store.ContentItem, fields map[string]any) (string, error) {
	idx := item.BackgroundIndex
	if idx < 0 {
		clips, err := m.assets.List(ctx, assets.Backgrounds)
		if err != nil {
			return "", err
		}
		if len(clips) == 0 {
			return "", fmt.Errorf("no background clips available")
		}
		idx = rand.Intn(len(clips))
		fields["background_index"] = idx
	}

	return m.assets.ClipAt(ctx, assets.Backgrounds, idx)
}

func (m *Machine) pickOverlay(ctx context.Context, item *store.ContentItem, fields map[string]any) (string, error) {
	idx := item.OverlayIndex
	if idx < 0 {
		overlays, err := m.assets.List(ctx, assets.Overlays)
		if err != nil {
			return "", err
		}
		idx, err = m.ledger.NextIndex(ctx, rotation.ClassOverlay, len(overlays))
		if err != nil {
			return "", err
		}
		if idx < 0 {
			// Overlays are optional; no library means no overlay.
			return "", nil
		}
		fields["overlay_index"] = idx
	}

	return m.assets.ClipAt(ctx, assets.Overlays, idx)
}
