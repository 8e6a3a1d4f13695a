package subtitle

import (
	"fmt"
	"strings"
)

// WriteSRT renders lines as plain SRT for the default-styled fallback path.
func WriteSRT(lines []Line) string {
	var sb strings.Builder

	for i, line := range lines {
		words := make([]string, 0, len(line.Words))
		for _, w := range line.Words {
			words = append(words, w.Text)
		}

		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", formatSRTTime(line.Start), formatSRTTime(line.End)))
		sb.WriteString(strings.Join(words, " "))
		sb.WriteString("\n\n")
	}

	return sb.String()
}

func formatSRTTime(seconds float64) string {
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60
	millis := int((seconds - float64(int(seconds))) * 1000)

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
