package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSProvider serves asset libraries from a bucket, caching downloads
// locally so repeated renders reuse the same files.
type GCSProvider struct {
	client   *storage.Client
	bucket   string
	prefixes map[Kind]string
	cacheDir string
}

func NewGCSProvider(ctx context.Context, bucket, backgroundPrefix, musicPrefix, overlayPrefix, cacheDir string) (*GCSProvider, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSProvider{
		client: client,
		bucket: bucket,
		prefixes: map[Kind]string{
			Backgrounds: backgroundPrefix,
			Music:       musicPrefix,
			Overlays:    overlayPrefix,
		},
		cacheDir: cacheDir,
	}, nil
}

func (p *GCSProvider) Close() error {
	return p.client.Close()
}

// List returns object names under the kind's prefix. Objects iterate in
// lexicographic order, so indices are stable across calls.
func (p *GCSProvider) List(ctx context.Context, kind Kind) ([]string, error) {
	prefix, ok := p.prefixes[kind]
	if !ok || prefix == "" {
		return nil, nil
	}

	allowed := kindExtensions[kind]

	bkt := p.client.Bucket(p.bucket)
	it := bkt.Objects(ctx, &storage.Query{Prefix: prefix})

	var clips []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		if allowed[strings.ToLower(filepath.Ext(attrs.Name))] {
			clips = append(clips, attrs.Name)
		}
	}

	return clips, nil
}

func (p *GCSProvider) ClipAt(ctx context.Context, kind Kind, index int) (string, error) {
	clips, err := p.List(ctx, kind)
	if err != nil {
		return "", err
	}
	if len(clips) == 0 {
		return "", fmt.Errorf("no %s assets found in gs://%s/%s", kind, p.bucket, p.prefixes[kind])
	}
	if index < 0 {
		index = 0
	}

	remotePath := clips[index%len(clips)]
	localPath := filepath.Join(p.cacheDir, string(kind), filepath.Base(remotePath))

	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	if err := p.downloadFile(ctx, remotePath, localPath); err != nil {
		return "", fmt.Errorf("failed to download %s asset: %w", kind, err)
	}

	return localPath, nil
}

func (p *GCSProvider) downloadFile(ctx context.Context, remotePath, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	obj := p.client.Bucket(p.bucket).Object(remotePath)
	r, err := obj.NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() { _ = r.Close() }()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}

	return nil
}
