package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type LocalProvider struct {
	dirs map[Kind]string
}

func NewLocalProvider(backgroundDir, musicDir, overlayDir string) *LocalProvider {
	return &LocalProvider{
		dirs: map[Kind]string{
			Backgrounds: backgroundDir,
			Music:       musicDir,
			Overlays:    overlayDir,
		},
	}
}

func (p *LocalProvider) List(_ context.Context, kind Kind) ([]string, error) {
	dir, ok := p.dirs[kind]
	if !ok || dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s directory: %w", kind, err)
	}

	allowed := kindExtensions[kind]

	// ReadDir returns entries sorted by name, which keeps rotation
	// indices stable across calls.
	var clips []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(entry.Name()))] {
			clips = append(clips, filepath.Join(dir, entry.Name()))
		}
	}

	return clips, nil
}

func (p *LocalProvider) ClipAt(ctx context.Context, kind Kind, index int) (string, error) {
	clips, err := p.List(ctx, kind)
	if err != nil {
		return "", err
	}
	if len(clips) == 0 {
		return "", fmt.Errorf("no %s assets found in %s", kind, p.dirs[kind])
	}
	if index < 0 {
		index = 0
	}
	return clips[index%len(clips)], nil
}

func (p *LocalProvider) EnsureDirectories() error {
	for kind, dir := range p.dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s directory: %w", kind, err)
		}
	}
	return nil
}
