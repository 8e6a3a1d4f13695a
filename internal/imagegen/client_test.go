package imagegen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateWritesImage(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL: server.URL,
		Model:   "flux",
		Width:   1080,
		Height:  1920,
	})

	outPath := filepath.Join(t.TempDir(), "images", "00.png")
	err := client.Generate(context.Background(), "a red fox, cinematic", 3, outPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(gotPath, "/prompt/") {
		t.Errorf("path = %q, want /prompt/ prefix", gotPath)
	}
	if !strings.Contains(gotPath, "%2C") && !strings.Contains(gotPath, ",") {
		t.Errorf("prompt missing from path: %q", gotPath)
	}
	for _, param := range []string{"width=1080", "height=1920", "model=flux", "seed=3", "nologo=true"} {
		if !strings.Contains(gotQuery, param) {
			t.Errorf("query %q missing %q", gotQuery, param)
		}
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("image not written: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("image content = %q", data)
	}
}

func TestGenerateServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Model: "flux", Width: 10, Height: 10})

	outPath := filepath.Join(t.TempDir(), "00.png")
	err := client.Generate(context.Background(), "prompt", 0, outPath)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("error %q should carry the service response", err)
	}
	if _, statErr := os.Stat(outPath); statErr == nil {
		t.Error("no file should be written on error")
	}
}
