package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestObjectPath(t *testing.T) {
	path := ObjectPath("posts", "p1", "media", "photo.jpg")
	parts := strings.Split(path, "/")
	require.Len(t, parts, 4)
	assert.Equal(t, "posts", parts[0])
	assert.Equal(t, "p1", parts[1])
	assert.Equal(t, "media", parts[2])
	assert.True(t, strings.HasSuffix(parts[3], "_photo.jpg"))
}

func TestUploadAndDelete(t *testing.T) {
	var uploaded, deleted string
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		switch r.Method {
		case http.MethodPost:
			uploaded = r.URL.Path
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop().Sugar())
	session := client.Session("tok-123")

	url := session.Upload(context.Background(), "media", "posts/p1/media/1_a.jpg", []byte("x"), "image/jpeg")
	require.NotEmpty(t, url)
	assert.Equal(t, "/storage/v1/object/media/posts/p1/media/1_a.jpg", uploaded)
	assert.Equal(t, "Bearer tok-123", authHeader)
	assert.Equal(t, srv.URL+"/storage/v1/object/public/media/posts/p1/media/1_a.jpg", url)

	session.Delete(context.Background(), "media", url)
	assert.Equal(t, "/storage/v1/object/media/posts/p1/media/1_a.jpg", deleted)
}

func TestUploadFailureYieldsEmptyURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop().Sugar())
	url := client.Session("tok").Upload(context.Background(), "media", "p", []byte("x"), "")
	assert.Empty(t, url)
}

func TestNoBaseURLDisablesUploads(t *testing.T) {
	client := NewClient(Config{}, zap.NewNop().Sugar())
	url := client.Session("tok").Upload(context.Background(), "media", "p", []byte("x"), "")
	assert.Empty(t, url)
}

func TestDeleteIgnoresForeignURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for a foreign URL")
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop().Sugar())
	client.Session("tok").Delete(context.Background(), "media", "https://elsewhere.test/file.jpg")
}
