package assets

import "context"

// Kind names one rotated asset library.
type Kind string

const (
	Backgrounds Kind = "backgrounds"
	Music       Kind = "music"
	Overlays    Kind = "overlays"
)

// Provider lists an asset library in a stable order and resolves a
// rotation index to a playable local path. Listing order must be
// deterministic so the same index always yields the same clip.
type Provider interface {
	List(ctx context.Context, kind Kind) ([]string, error)
	ClipAt(ctx context.Context, kind Kind, index int) (string, error)
}

var kindExtensions = map[Kind]map[string]bool{
	Backgrounds: {".mp4": true, ".mov": true, ".mkv": true},
	Music:       {".mp3": true, ".wav": true, ".m4a": true},
	Overlays:    {".mp4": true, ".mov": true, ".webm": true},
}
