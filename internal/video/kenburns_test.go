package video

import (
	"strings"
	"testing"
)

func TestPresetForCyclesWithoutRepeats(t *testing.T) {
	seen := make(map[MotionPreset]bool)
	for i := 0; i < int(presetCount); i++ {
		p := PresetFor(i)
		if seen[p] {
			t.Errorf("preset %d repeated within one cycle", p)
		}
		seen[p] = true
	}
	if len(seen) != 8 {
		t.Errorf("expected 8 distinct presets, got %d", len(seen))
	}

	if PresetFor(0) != PresetFor(int(presetCount)) {
		t.Error("presets should wrap around after a full cycle")
	}
	if PresetFor(-1) != PresetFor(0) {
		t.Error("negative slide index should clamp to the first preset")
	}
}

func TestZoompanExpressions(t *testing.T) {
	tests := []struct {
		preset MotionPreset
		want   string
	}{
		{ZoomIn, "z='min(zoom+0.0015,1.15)'"},
		{ZoomOut, "max(zoom-0.0015,1.0)"},
		{PanLeft, "x='(iw-iw/zoom)*(1-on/300)'"},
		{PanRight, "x='(iw-iw/zoom)*(on/300)'"},
		{PanUp, "y='(ih-ih/zoom)*(1-on/300)'"},
		{PanDown, "y='(ih-ih/zoom)*(on/300)'"},
		{ZoomInPanRight, "z='min(zoom+0.0010,1.12)'"},
		{ZoomOutPanLeft, "max(zoom-0.0010,1.0)"},
	}

	for _, tt := range tests {
		expr := tt.preset.Zoompan(300, 30, 1080, 1920)
		if !strings.Contains(expr, tt.want) {
			t.Errorf("preset %d: missing %q in %s", tt.preset, tt.want, expr)
		}
		if !strings.Contains(expr, "d=300") || !strings.Contains(expr, "s=1080x1920") || !strings.Contains(expr, "fps=30") {
			t.Errorf("preset %d: frame parameters missing in %s", tt.preset, expr)
		}
	}
}

func TestZoompanPansHoldFixedZoom(t *testing.T) {
	for _, p := range []MotionPreset{PanLeft, PanRight, PanUp, PanDown} {
		expr := p.Zoompan(150, 30, 1080, 1920)
		if !strings.Contains(expr, "z='1.15'") {
			t.Errorf("pan preset %d should hold zoom fixed: %s", p, expr)
		}
	}
}
