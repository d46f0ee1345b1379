package testsupport

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/red1oon/ADUI/internal/devserver"
	"github.com/red1oon/ADUI/pkg/schema"
)

// InspectionWindowID is the id of testdata/inspection.json.
const InspectionWindowID = "INSPECTION"

// TestdataDir returns the absolute path of this package's testdata folder so
// fixtures resolve regardless of the calling package.
func TestdataDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata")
}

// Fixture returns the absolute path of a testdata file.
func Fixture(name string) string {
	return filepath.Join(TestdataDir(), name)
}

// MustReadFixture reads a testdata file.
func MustReadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(Fixture(name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

// LoadDocument reads a fixture and builds a schema.Document using a file
// source. Testing helpers fail the test to keep contract tests concise.
func LoadDocument(t *testing.T, path string) schema.Document {
	t.Helper()

	doc, err := LoadDocumentFromPath(path)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	return doc
}

// LoadDocumentFromPath returns a Document without requiring testing.T.
func LoadDocumentFromPath(path string) (schema.Document, error) {
	if path == "" {
		return schema.Document{}, errors.New("testsupport: document path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Document{}, fmt.Errorf("testsupport: read document: %w", err)
	}
	doc, err := schema.NewDocument(schema.SourceFromFile(path), data)
	if err != nil {
		return schema.Document{}, fmt.Errorf("testsupport: new document: %w", err)
	}
	return doc, nil
}

// StartBackend serves the testdata directory through the dev backend. The
// server is closed when the test ends.
func StartBackend(t *testing.T) (*devserver.Server, *httptest.Server) {
	t.Helper()

	backend := devserver.New()
	if err := backend.LoadDir(TestdataDir()); err != nil {
		t.Fatalf("load backend fixtures: %v", err)
	}
	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)
	return backend, server
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
