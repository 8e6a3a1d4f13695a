package postapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testMediaFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, []byte("mp4-bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadMedia(t *testing.T) {
	var gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "media-42"})
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	id, err := client.UploadMedia(context.Background(), testMediaFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "media-42" {
		t.Errorf("media id = %q, want media-42", id)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Errorf("content type = %q, want multipart", gotContentType)
	}
}

func TestUploadMediaMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	if _, err := client.UploadMedia(context.Background(), testMediaFile(t)); err == nil {
		t.Fatal("expected error for missing media id")
	}
}

func TestUploadMediaRetriesServerError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "media-42"})
	}))
	defer server.Close()

	// Default construction keeps the retry wrapper.
	client := NewClient("secret", WithBaseURL(server.URL))

	id, err := client.UploadMedia(context.Background(), testMediaFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "media-42" {
		t.Errorf("media id = %q, want media-42", id)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestCreatePost(t *testing.T) {
	var gotPost PostRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotPost)
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "job-7"})
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	at := time.Date(2026, 9, 2, 15, 0, 0, 0, time.UTC)
	jobID, err := client.CreatePost(context.Background(), PostRequest{
		MediaID:   "media-42",
		Title:     "A title",
		Targets:   []PlatformTarget{{Platform: "youtube", Account: "main"}},
		PublishAt: &at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jobID != "job-7" {
		t.Errorf("job id = %q, want job-7", jobID)
	}
	if gotPost.MediaID != "media-42" || len(gotPost.Targets) != 1 {
		t.Errorf("posted request = %+v", gotPost)
	}
	if gotPost.PublishAt == nil || !gotPost.PublishAt.Equal(at) {
		t.Errorf("publish_at = %v, want %v", gotPost.PublishAt, at)
	}
}

func TestGetJobStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/job-7" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"completed","progress":100,"results":[{"platform":"youtube","url":"https://youtu.be/x"}]}`))
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	status, err := client.GetJobStatus(context.Background(), "job-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Terminal() || status.Status != JobStatusCompleted {
		t.Errorf("status = %+v, want terminal completed", status)
	}
	if len(status.Results) != 1 || status.Results[0].URL != "https://youtu.be/x" {
		t.Errorf("results = %+v", status.Results)
	}
}

func TestDeletePost(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{name: "deleted", statusCode: http.StatusNoContent},
		{name: "alreadyGone", statusCode: http.StatusNotFound},
		{name: "serverRejects", statusCode: http.StatusForbidden, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client := NewClient("secret", WithBaseURL(server.URL), WithHTTPClient(server.Client()))

			err := client.DeletePost(context.Background(), "job-7")
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
