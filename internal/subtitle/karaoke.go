package subtitle

import (
	"strings"
	"unicode"

	"reelforge/internal/speech"
)

const (
	defaultFadeIn       = 0.2
	defaultFadeOut      = 0.2
	defaultMinGap       = 0.05
	defaultGapThreshold = 0.15
)

// Word is one spoken word with its aligned window.
type Word struct {
	Text  string
	Start float64
	End   float64
}

// Line is a group of consecutive words shown together. Start and End are
// the visible window including fades, clamped so lines never overlap.
type Line struct {
	Words []Word
	Start float64
	End   float64
}

type Builder struct {
	wordsPerLine int
	fadeIn       float64
	fadeOut      float64
	minGap       float64
	gapThreshold float64
}

func NewBuilder(wordsPerLine int) *Builder {
	if wordsPerLine <= 0 {
		wordsPerLine = 5
	}
	return &Builder{
		wordsPerLine: wordsPerLine,
		fadeIn:       defaultFadeIn,
		fadeOut:      defaultFadeOut,
		minGap:       defaultMinGap,
		gapThreshold: defaultGapThreshold,
	}
}

// Build turns character-level alignment into non-overlapping karaoke lines.
func (b *Builder) Build(chars []speech.CharTiming) []Line {
	words := wordsFromChars(chars)
	lines := b.groupLines(words)
	b.computeWindows(lines)
	return lines
}

// wordsFromChars reconstructs words from the alignment stream, splitting on
// whitespace. Bracketed directive tags and pure punctuation runs are dropped
// since they are spoken cues, not display text.
func wordsFromChars(chars []speech.CharTiming) []Word {
	var words []Word
	var current strings.Builder
	var start, end float64

	flush := func() {
		text := current.String()
		current.Reset()
		if text == "" || isDirectiveTag(text) || isPunctuationRun(text) {
			return
		}
		words = append(words, Word{Text: text, Start: start, End: end})
	}

	for _, c := range chars {
		if strings.TrimSpace(c.Char) == "" {
			flush()
			continue
		}
		if current.Len() == 0 {
			start = c.Start
		}
		current.WriteString(c.Char)
		end = c.End
	}
	flush()

	return words
}

func isDirectiveTag(text string) bool {
	if len(text) < 2 {
		return false
	}
	return (strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]")) ||
		(strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")"))
}

func isPunctuationRun(text string) bool {
	for _, r := range text {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

// groupLines breaks words into lines at the word limit or at
// sentence-ending punctuation, whichever comes first.
func (b *Builder) groupLines(words []Word) []Line {
	var lines []Line
	var current []Word

	for _, w := range words {
		current = append(current, w)
		if len(current) >= b.wordsPerLine || endsSentence(w.Text) {
			lines = append(lines, Line{Words: current})
			current = nil
		}
	}
	if len(current) > 0 {
		lines = append(lines, Line{Words: current})
	}

	return lines
}

func endsSentence(text string) bool {
	return strings.HasSuffix(text, ".") ||
		strings.HasSuffix(text, "!") ||
		strings.HasSuffix(text, "?")
}

// computeWindows assigns each line its visible window with fade padding,
// then clamps so consecutive lines never overlap. A line's end is never
// pulled before its last word's actual end.
func (b *Builder) computeWindows(lines []Line) {
	for i := range lines {
		words := lines[i].Words
		start := words[0].Start - b.fadeIn
		if start < 0 {
			start = 0
		}
		lines[i].Start = start
		lines[i].End = words[len(words)-1].End + b.fadeOut
	}

	for i := 0; i < len(lines)-1; i++ {
		limit := lines[i+1].Start - b.minGap
		if lines[i].End > limit {
			lastWordEnd := lines[i].Words[len(lines[i].Words)-1].End
			end := limit
			if end < lastWordEnd {
				end = lastWordEnd
			}
			lines[i].End = end
		}
		if lines[i+1].Start < lines[i].End {
			lines[i+1].Start = lines[i].End
		}
	}
}
