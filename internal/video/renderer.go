package video

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	defaultFFmpegPath = "ffmpeg"
	defaultFFprobe    = "ffprobe"
	videoEndBuffer    = 0.5
	thumbnailTime     = 1.0
	diagnosticTail    = 4096
)

type Renderer struct {
	ffmpegPath  string
	ffprobe     string
	width       int
	height      int
	frameRate   int
	musicVolume float64
	musicTail   float64
	lightRays   bool
}

type RendererOptions struct {
	Resolution  string
	FrameRate   int
	MusicVolume float64
	MusicTail   float64
	LightRays   bool
}

// StaticRequest renders a looping background clip under the voice track.
type StaticRequest struct {
	BackgroundPath string
	VoicePath      string
	VoiceDuration  float64
	MusicPath      string
	SubtitlePath   string
	OutputPath     string
}

// SlideshowRequest renders a sequence of still images, each holding an
// equal slice of the total duration, optionally animated with Ken Burns
// motion and blended with a looping overlay clip.
type SlideshowRequest struct {
	ImagePaths    []string
	VoicePath     string
	VoiceDuration float64
	MusicPath     string
	OverlayPath   string
	SubtitlePath  string
	OutputPath    string
	KenBurns      bool
}

type RenderResult struct {
	OutputPath    string
	ThumbnailPath string
	Duration      float64
}

func NewRenderer(opts RendererOptions) *Renderer {
	width, height := parseResolution(opts.Resolution)

	frameRate := opts.FrameRate
	if frameRate == 0 {
		frameRate = 30
	}
	musicVolume := opts.MusicVolume
	if musicVolume == 0 {
		musicVolume = 0.15
	}
	musicTail := opts.MusicTail
	if musicTail == 0 {
		musicTail = 3.0
	}

	return &Renderer{
		ffmpegPath:  defaultFFmpegPath,
		ffprobe:     defaultFFprobe,
		width:       width,
		height:      height,
		frameRate:   frameRate,
		musicVolume: musicVolume,
		musicTail:   musicTail,
		lightRays:   opts.LightRays,
	}
}

func parseResolution(res string) (int, int) {
	parts := strings.Split(res, "x")
	if len(parts) != 2 {
		return 1080, 1920
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 1080, 1920
	}
	return w, h
}

func (r *Renderer) RenderStatic(ctx context.Context, req StaticRequest) (*RenderResult, error) {
	duration := req.VoiceDuration + videoEndBuffer
	args := r.buildStaticArgs(req, duration)

	if err := r.runFFmpeg(ctx, args); err != nil {
		return nil, err
	}

	return &RenderResult{
		OutputPath:    req.OutputPath,
		ThumbnailPath: r.renderThumbnail(ctx, req.OutputPath),
		Duration:      duration,
	}, nil
}

func (r *Renderer) RenderSlideshow(ctx context.Context, req SlideshowRequest) (*RenderResult, error) {
	if len(req.ImagePaths) == 0 {
		return nil, fmt.Errorf("slideshow requires at least one image")
	}

	duration := req.VoiceDuration + r.musicTail + videoEndBuffer
	args := r.buildSlideshowArgs(req, duration)

	if err := r.runFFmpeg(ctx, args); err != nil {
		return nil, err
	}

	return &RenderResult{
		OutputPath:    req.OutputPath,
		ThumbnailPath: r.renderThumbnail(ctx, req.OutputPath),
		Duration:      duration,
	}, nil
}

func (r *Renderer) buildStaticArgs(req StaticRequest, duration float64) []string {
	args := []string{
		"-y",
		"-stream_loop", "-1",
		"-i", req.BackgroundPath,
		"-i", req.VoicePath,
	}

	if req.MusicPath != "" {
		args = append(args, "-stream_loop", "-1", "-i", req.MusicPath)
	}

	args = append(args,
		"-filter_complex", r.buildStaticFilter(req),
		"-map", "[v]",
		"-map", "[a]",
		"-t", fmt.Sprintf("%.2f", duration),
	)

	return append(args, r.encodingArgs(req.OutputPath)...)
}

func (r *Renderer) buildStaticFilter(req StaticRequest) string {
	var g Graph

	g.Chain("[0:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d%s[v]",
		r.width, r.height, r.width, r.height, subtitleFilter(req.SubtitlePath))

	if req.MusicPath == "" {
		g.Chain("[1:a]anull[a]")
	} else {
		g.Chain("[1:a]volume=1.0[voice]")
		g.Chain("[2:a]volume=%.2f[music]", r.musicVolume)
		g.Chain("[voice][music]amix=inputs=2:duration=first:normalize=0[a]")
	}

	return g.String()
}

func (r *Renderer) buildSlideshowArgs(req SlideshowRequest, duration float64) []string {
	slice := duration / float64(len(req.ImagePaths))

	args := []string{"-y"}
	for _, img := range req.ImagePaths {
		args = append(args, "-loop", "1", "-t", fmt.Sprintf("%.2f", slice), "-i", img)
	}

	args = append(args, "-i", req.VoicePath)
	if req.MusicPath != "" {
		args = append(args, "-stream_loop", "-1", "-i", req.MusicPath)
	}
	if req.OverlayPath != "" {
		args = append(args, "-stream_loop", "-1", "-i", req.OverlayPath)
	}

	args = append(args,
		"-filter_complex", r.buildSlideshowFilter(req, duration),
		"-map", "[v]",
		"-map", "[a]",
		"-t", fmt.Sprintf("%.2f", duration),
	)

	return append(args, r.encodingArgs(req.OutputPath)...)
}

func (r *Renderer) buildSlideshowFilter(req SlideshowRequest, duration float64) string {
	var g Graph

	imageCount := len(req.ImagePaths)
	slice := duration / float64(imageCount)
	frames := int(slice * float64(r.frameRate))

	labels := make([]string, 0, imageCount)
	for i := range req.ImagePaths {
		label := fmt.Sprintf("s%d", i)
		if req.KenBurns {
			// Upscale before zoompan so sub-pixel motion stays smooth.
			g.Chain("[%d:v]scale=%d:-1,%s[%s]",
				i, r.width*2, PresetFor(i).Zoompan(frames, r.frameRate, r.width, r.height), label)
		} else {
			g.Chain("[%d:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,fps=%d[%s]",
				i, r.width, r.height, r.width, r.height, r.frameRate, label)
		}
		labels = append(labels, "["+label+"]")
	}

	last := "slides"
	g.Chain("%sconcat=n=%d:v=1:a=0[%s]", strings.Join(labels, ""), imageCount, last)

	voiceIdx := imageCount
	musicIdx := -1
	overlayIdx := -1
	next := voiceIdx + 1
	if req.MusicPath != "" {
		musicIdx = next
		next++
	}
	if req.OverlayPath != "" {
		overlayIdx = next
	}

	if overlayIdx >= 0 {
		g.Chain("[%d:v]scale=%d:%d,format=rgba[ovl]", overlayIdx, r.width, r.height)
		g.Chain("[%s][ovl]blend=all_mode='lighten':all_opacity=0.5[blended]", last)
		last = "blended"
	}

	if r.lightRays {
		g.Chain("[%s]geq=lum='lum(X,Y)*(1+0.18*sin(2*PI*(X+Y-240*T)/900))':cb='cb(X,Y)':cr='cr(X,Y)'[rays]", last)
		last = "rays"
	}

	g.Chain("[%s]null%s[v]", last, subtitleFilter(req.SubtitlePath))

	if musicIdx >= 0 {
		g.Chain("[%d:a]apad=pad_dur=%.2f[voice]", voiceIdx, r.musicTail)
		g.Chain("[%d:a]volume=%.2f[music]", musicIdx, r.musicVolume)
		g.Chain("[voice][music]amix=inputs=2:duration=first:normalize=0[a]")
	} else {
		g.Chain("[%d:a]apad=pad_dur=%.2f[a]", voiceIdx, r.musicTail)
	}

	return g.String()
}

// subtitleFilter burns styled ASS when available, falling back to
// default-styled SRT rendering.
func subtitleFilter(path string) string {
	if path == "" {
		return ""
	}
	if filepath.Ext(path) == ".srt" {
		return fmt.Sprintf(",subtitles=%s", path)
	}
	return fmt.Sprintf(",ass=%s", path)
}

func (r *Renderer) encodingArgs(outputPath string) []string {
	return []string{
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-r", strconv.Itoa(r.frameRate),
		"-c:a", "aac",
		"-ar", "44100",
		"-movflags", "+faststart",
		outputPath,
	}
}

func (r *Renderer) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w, output: %s", err, tail(output, diagnosticTail))
	}
	return nil
}

// renderThumbnail grabs a still frame shortly after the start. Thumbnail
// failure never fails the render.
func (r *Renderer) renderThumbnail(ctx context.Context, videoPath string) string {
	thumbPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + "_thumb.jpg"

	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.1f", thumbnailTime),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		thumbPath,
	}

	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		slog.Warn("Thumbnail extraction failed", "video", videoPath, "error", err, "output", tail(output, 512))
		return ""
	}

	return thumbPath
}

// ProbeDuration reads a media file's duration via ffprobe.
func (r *Renderer) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, r.ffprobe, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var dur float64
	if _, err := fmt.Sscanf(string(output), "%f", &dur); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return dur, nil
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
