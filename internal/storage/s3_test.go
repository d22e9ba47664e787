package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sdko-org/get2put/internal/config"
)

// fakeS3 keeps objects in memory and answers path-style PUT and GET.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3StorageRoundTrip(t *testing.T) {
	fake := &fakeS3{objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := NewS3Storage(&config.Config{
		S3Bucket:    "records",
		S3Region:    "us-east-1",
		S3Endpoint:  srv.URL,
		S3AccessKey: "test",
		S3SecretKey: "test",
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	rec := EndpointRecord{
		TunnelID:       "42",
		IPv4:           "198.51.100.7",
		UpstreamStatus: 200,
		UpdatedAt:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := s.PutRecord(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	fake.mu.Lock()
	_, stored := fake.objects["/records/tunnels/42.json"]
	fake.mu.Unlock()
	if !stored {
		t.Fatalf("object not stored under expected key: %v", fake.objects)
	}

	got, err := s.GetRecord(ctx, "42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IPv4 != rec.IPv4 || !got.UpdatedAt.Equal(rec.UpdatedAt) {
		t.Fatalf("record: %+v", got)
	}

	if _, err := s.GetRecord(ctx, "7"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for missing record, got %v", err)
	}
}
