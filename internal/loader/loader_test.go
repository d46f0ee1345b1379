package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/red1oon/ADUI/pkg/provider"
	"github.com/red1oon/ADUI/pkg/schema"
)

const doc = `{"windowId":"W","name":"W","tabs":[]}`

func TestLoader_Sources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "window.json")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/window.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(doc))
	}))
	defer server.Close()

	l := New(Options{
		FileSystem: fstest.MapFS{"forms/window.json": {Data: []byte(doc)}},
		AllowHTTP:  true,
	})
	sources := []schema.Source{
		schema.SourceFromFile(path),
		schema.SourceFromFS("forms/window.json"),
		schema.SourceFromURL(server.URL + "/window.json"),
		schema.SourceFromString("inline", doc),
	}
	for _, src := range sources {
		loaded, err := l.Load(context.Background(), src)
		if err != nil {
			t.Fatalf("load %s %s: %v", src.Kind(), src.Location(), err)
		}
		if string(loaded.Raw()) != doc {
			t.Fatalf("unexpected content from %s: %s", src.Kind(), loaded.Raw())
		}
	}
}

func TestLoader_HTTPStatusIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	l := New(Options{AllowHTTP: true})
	_, err := l.Load(context.Background(), schema.SourceFromURL(server.URL+"/missing.json"))
	if !provider.IsNetworkError(err) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestLoader_Supports(t *testing.T) {
	l := New(Options{})
	if l.Supports(schema.SourceKindURL) || l.Supports(schema.SourceKindFS) {
		t.Fatalf("http and fs must be disabled without configuration")
	}
	if !l.Supports(schema.SourceKindFile) || !l.Supports(schema.SourceKindInline) {
		t.Fatalf("file and inline are always supported")
	}
	if _, err := l.Load(context.Background(), schema.SourceFromURL("http://example.com/x.json")); err == nil {
		t.Fatalf("expected error when http is disabled")
	}
}
