package speech

import "context"

// CharTiming is one character of synthesized speech with its spoken window,
// as reported by the provider's alignment data.
type CharTiming struct {
	Char  string
	Start float64
	End   float64
}

type SpeechResult struct {
	Audio      []byte
	Characters []CharTiming
}

type Provider interface {
	Synthesize(ctx context.Context, text string) (*SpeechResult, error)
}

// Duration returns the end of the last aligned character.
func Duration(chars []CharTiming) float64 {
	if len(chars) == 0 {
		return 0
	}
	return chars[len(chars)-1].End
}

// EstimateTimings fabricates alignment for providers that return none,
// spreading characters evenly across the estimated audio duration.
func EstimateTimings(text string, audio []byte) []CharTiming {
	if len(text) == 0 {
		return nil
	}

	runes := []rune(text)
	duration := estimateAudioDuration(audio)
	perChar := duration / float64(len(runes))

	chars := make([]CharTiming, 0, len(runes))
	for i, r := range runes {
		start := float64(i) * perChar
		chars = append(chars, CharTiming{
			Char:  string(r),
			Start: start,
			End:   start + perChar,
		})
	}
	return chars
}

func estimateAudioDuration(audio []byte) float64 {
	bitrate := 128000.0
	return float64(len(audio)*8) / bitrate
}
