package video

import (
	"fmt"
	"strings"
)

// Graph accumulates labeled filter chains and joins them into the
// filter_complex string ffmpeg expects.
type Graph struct {
	chains []string
}

func (g *Graph) Chain(format string, args ...any) {
	g.chains = append(g.chains, fmt.Sprintf(format, args...))
}

func (g *Graph) String() string {
	return strings.Join(g.chains, ";")
}
