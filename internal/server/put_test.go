package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/httpfs/httpfs/internal/config"
	"github.com/httpfs/httpfs/internal/resolver"
)

func newTestServer(t *testing.T, writesEnabled bool) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	res, err := resolver.New(root, true, false)
	if err != nil {
		t.Fatalf("resolver.New: %v", err)
	}
	hc := &config.HostConfig{
		ServedRootPath:    root,
		WritesEnabled:     writesEnabled,
		WriteStagingDir:   filepath.Join(t.TempDir(), "staging"),
		GenerateListings:  true,
		CheckIndices:      true,
		FollowSymlinks:    true,
	}
	return &Server{Config: hc, resolver: res, Log: zap.NewNop()}, root
}

func TestHandlePutCreateThenOverwrite(t *testing.T) {
	s, root := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodPut, "/new/file.txt", strings.NewReader("hello"))
	w := httptest.NewRecorder()
	if herr := s.handlePut(w, req); herr != nil {
		t.Fatalf("unexpected error: %v", herr)
	}
	if w.Code != http.StatusCreated {
		t.Errorf("first PUT: got status %d, want 201", w.Code)
	}

	body, err := os.ReadFile(filepath.Join(root, "new", "file.txt"))
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("file content = %q, want %q", body, "hello")
	}

	req2 := httptest.NewRequest(http.MethodPut, "/new/file.txt", strings.NewReader("world"))
	w2 := httptest.NewRecorder()
	if herr := s.handlePut(w2, req2); herr != nil {
		t.Fatalf("unexpected error: %v", herr)
	}
	if w2.Code != http.StatusNoContent {
		t.Errorf("second PUT: got status %d, want 204", w2.Code)
	}
}

func TestHandlePutForbiddenWhenWritesDisabled(t *testing.T) {
	s, _ := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodPut, "/file.txt", strings.NewReader("x"))
	w := httptest.NewRecorder()
	herr := s.handlePut(w, req)
	if herr == nil || herr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", herr)
	}
}

func TestHandlePutRejectsContentRange(t *testing.T) {
	s, _ := newTestServer(t, true)
	req := httptest.NewRequest(http.MethodPut, "/file.txt", strings.NewReader("x"))
	req.Header.Set("Content-Range", "bytes 0-0/1")
	w := httptest.NewRecorder()
	herr := s.handlePut(w, req)
	if herr == nil || herr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", herr)
	}
}

func TestHandleDeleteRemovesFileAndRejectsWhenDisabled(t *testing.T) {
	s, root := newTestServer(t, true)
	target := filepath.Join(root, "doomed.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/doomed.txt", nil)
	w := httptest.NewRecorder()
	if herr := s.handleDelete(w, req); herr != nil {
		t.Fatalf("unexpected error: %v", herr)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("expected file to be removed")
	}

	s.Config.WritesEnabled = false
	herr := s.handleDelete(httptest.NewRecorder(), req)
	if herr == nil || herr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 when writes disabled, got %+v", herr)
	}
}
