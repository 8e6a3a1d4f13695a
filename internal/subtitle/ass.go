package subtitle

import (
	"fmt"
	"strings"
)

// ColorScheme pairs the highlight fill color with the resting text color.
// Schemes are cycled across videos via the rotation ledger.
type ColorScheme struct {
	Name      string
	Primary   string
	Secondary string
	Outline   string
}

var colorSchemes = []ColorScheme{
	{Name: "classic", Primary: "#FFFFFF", Secondary: "#AAAAAA", Outline: "#000000"},
	{Name: "gold", Primary: "#FFD700", Secondary: "#FFFFFF", Outline: "#1A1A1A"},
	{Name: "mint", Primary: "#3EF0A7", Secondary: "#FFFFFF", Outline: "#0A2E1F"},
	{Name: "coral", Primary: "#FF6B5E", Secondary: "#FFFFFF", Outline: "#2B0E0A"},
	{Name: "sky", Primary: "#5ECBFF", Secondary: "#FFFFFF", Outline: "#0A1F2B"},
}

// SchemeCount reports how many schemes exist, for rotation bookkeeping.
func SchemeCount() int {
	return len(colorSchemes)
}

// SchemeAt returns the scheme for a rotation index. A negative index
// means no selection was possible and falls back to the first scheme.
func SchemeAt(index int) ColorScheme {
	if index < 0 || len(colorSchemes) == 0 {
		return colorSchemes[0]
	}
	return colorSchemes[index%len(colorSchemes)]
}

type StyleOptions struct {
	FontName     string
	FontSize     int
	PrimaryColor string
	OutlineColor string
	OutlineSize  int
	ShadowSize   int
	Bold         bool
	Scheme       *ColorScheme
}

type ASSWriter struct {
	fontName       string
	fontSize       int
	primaryColor   string
	secondaryColor string
	outlineColor   string
	outlineSize    int
	shadowSize     int
	bold           bool
	gapThreshold   float64
}

func NewASSWriter(opts StyleOptions) *ASSWriter {
	primary := opts.PrimaryColor
	secondary := ""
	outline := opts.OutlineColor
	if opts.Scheme != nil {
		primary = opts.Scheme.Primary
		secondary = opts.Scheme.Secondary
		outline = opts.Scheme.Outline
	}

	primaryColor := "&H00FFFFFF"
	if primary != "" {
		primaryColor = toASSColor(primary)
	}

	// SecondaryColour is the un-filled karaoke color.
	secondaryColor := "&H00AAAAAA"
	if secondary != "" {
		secondaryColor = toASSColor(secondary)
	}

	outlineColor := "&H00000000"
	if outline != "" {
		outlineColor = toASSColor(outline)
	}

	outlineSize := 4
	if opts.OutlineSize > 0 {
		outlineSize = opts.OutlineSize
	}

	shadowSize := 2
	if opts.ShadowSize >= 0 {
		shadowSize = opts.ShadowSize
	}

	return &ASSWriter{
		fontName:       opts.FontName,
		fontSize:       opts.FontSize,
		primaryColor:   primaryColor,
		secondaryColor: secondaryColor,
		outlineColor:   outlineColor,
		outlineSize:    outlineSize,
		shadowSize:     shadowSize,
		bold:           opts.Bold,
		gapThreshold:   defaultGapThreshold,
	}
}

func toASSColor(color string) string {
	if strings.HasPrefix(color, "&H") {
		return color
	}
	color = strings.TrimPrefix(color, "#")
	if len(color) == 6 {
		r := color[0:2]
		g := color[2:4]
		b := color[4:6]
		return fmt.Sprintf("&H00%s%s%s", b, g, r)
	}
	return "&H00FFFFFF"
}

func (w *ASSWriter) Write(lines []Line) string {
	var sb strings.Builder

	sb.WriteString("[Script Info]\n")
	sb.WriteString("Title: Generated Subtitles\n")
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("PlayResX: 1080\n")
	sb.WriteString("PlayResY: 1920\n")
	sb.WriteString("\n")

	boldVal := 0
	if w.bold {
		boldVal = -1
	}

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	sb.WriteString(fmt.Sprintf("Style: Default,%s,%d,%s,%s,%s,&H80000000,%d,0,0,0,100,100,0,0,1,%d,%d,5,10,10,50,1\n",
		w.fontName, w.fontSize, w.primaryColor, w.secondaryColor, w.outlineColor, boldVal, w.outlineSize, w.shadowSize))
	sb.WriteString("\n")

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, line := range lines {
		start := formatASSTime(line.Start)
		end := formatASSTime(line.End)
		sb.WriteString(fmt.Sprintf("Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n", start, end, w.karaokeText(line)))
	}

	return sb.String()
}

// karaokeText emits the line with a fill directive per word. The fill runs
// relative to the event start, so leading fade time and inter-word pauses
// above the threshold get silent fills to keep the highlight in sync.
func (w *ASSWriter) karaokeText(line Line) string {
	var sb strings.Builder

	cursor := line.Start
	for i, word := range line.Words {
		if gap := word.Start - cursor; gap > w.gapThreshold {
			sb.WriteString(fmt.Sprintf("{\\kf%d}", toCentis(gap)))
		}
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprintf("{\\kf%d}%s", toCentis(word.End-word.Start), word.Text))
		cursor = word.End
	}

	return sb.String()
}

func toCentis(seconds float64) int {
	cs := int(seconds*100 + 0.5)
	if cs < 0 {
		return 0
	}
	return cs
}

func formatASSTime(seconds float64) string {
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60
	centis := int((seconds - float64(int(seconds))) * 100)

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}
