package video

import "fmt"

// MotionPreset is one of the slow camera motions applied to a still image.
type MotionPreset int

const (
	ZoomIn MotionPreset = iota
	ZoomOut
	PanLeft
	PanRight
	PanUp
	PanDown
	ZoomInPanRight
	ZoomOutPanLeft

	presetCount
)

// PresetFor cycles through the presets by slide position so consecutive
// slides never repeat the same motion.
func PresetFor(slide int) MotionPreset {
	if slide < 0 {
		slide = 0
	}
	return MotionPreset(slide % int(presetCount))
}

const (
	centerX = "iw/2-(iw/zoom/2)"
	centerY = "ih/2-(ih/zoom/2)"
)

// Zoompan renders the preset as a zoompan filter over the slide's frame
// count. Pans hold the zoom fixed and sweep the crop window across the
// frame; combined presets do both at a gentler rate.
func (p MotionPreset) Zoompan(frames, fps, width, height int) string {
	var z, x, y string

	switch p {
	case ZoomIn:
		z = "min(zoom+0.0015,1.15)"
		x, y = centerX, centerY
	case ZoomOut:
		z = "if(lte(on,1),1.15,max(zoom-0.0015,1.0))"
		x, y = centerX, centerY
	case PanLeft:
		z = "1.15"
		x = fmt.Sprintf("(iw-iw/zoom)*(1-on/%d)", frames)
		y = centerY
	case PanRight:
		z = "1.15"
		x = fmt.Sprintf("(iw-iw/zoom)*(on/%d)", frames)
		y = centerY
	case PanUp:
		z = "1.15"
		x = centerX
		y = fmt.Sprintf("(ih-ih/zoom)*(1-on/%d)", frames)
	case PanDown:
		z = "1.15"
		x = centerX
		y = fmt.Sprintf("(ih-ih/zoom)*(on/%d)", frames)
	case ZoomInPanRight:
		z = "min(zoom+0.0010,1.12)"
		x = fmt.Sprintf("(iw-iw/zoom)*(on/%d)", frames)
		y = centerY
	case ZoomOutPanLeft:
		z = "if(lte(on,1),1.12,max(zoom-0.0010,1.0))"
		x = fmt.Sprintf("(iw-iw/zoom)*(1-on/%d)", frames)
		y = centerY
	default:
		z = "1.0"
		x, y = centerX, centerY
	}

	return fmt.Sprintf("zoompan=z='%s':x='%s':y='%s':d=%d:s=%dx%d:fps=%d",
		z, x, y, frames, width, height, fps)
}
