package devserver

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	json "github.com/goccy/go-json"

	"github.com/red1oon/ADUI/pkg/schema"
)

const siteAudit = `{"name":"Site Audit","tabs":[{"tabId":"main","fields":[{"fieldId":"notes","component":"textarea"}]}]}`

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New()
	if _, err := s.AddWindow([]byte(siteAudit)); err != nil {
		t.Fatalf("add window: %v", err)
	}
	s.SetReference("DEPOTS", []schema.ReferenceValue{{Key: "LHR", Value: "Heathrow"}})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: status %d, want %d: %s", url, resp.StatusCode, wantStatus, body)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return out
}

func TestAddWindow_DerivesID(t *testing.T) {
	s := New()
	id, err := s.AddWindow([]byte(siteAudit))
	if err != nil {
		t.Fatalf("AddWindow: %v", err)
	}
	if id != "SITE_AUDIT" {
		t.Fatalf("id = %q, want SITE_AUDIT", id)
	}
	if _, err := s.AddWindow([]byte(`{"tabs":[]}`)); err == nil {
		t.Fatal("expected error for a document without id or name")
	}
}

func TestHandler_CamelAndPascalSurfaces(t *testing.T) {
	s, srv := newTestServer(t)

	list := getJSON(t, srv.URL+"/windows", http.StatusOK)
	want := map[string]any{"windows": []any{map[string]any{"id": "SITE_AUDIT", "name": "Site Audit"}}}
	if diff := cmp.Diff(want, list); diff != "" {
		t.Fatalf("windows mismatch (-want +got):\n%s", diff)
	}

	pascal := getJSON(t, srv.URL+"/api/v1/windows", http.StatusOK)
	wantPascal := map[string]any{"Windows": []any{map[string]any{"Id": "SITE_AUDIT", "Name": "Site Audit", "Description": ""}}}
	if diff := cmp.Diff(wantPascal, pascal); diff != "" {
		t.Fatalf("pascal windows mismatch (-want +got):\n%s", diff)
	}

	window := getJSON(t, srv.URL+"/api/v1/windows/SITE_AUDIT", http.StatusOK)
	if window["Name"] != "Site Audit" {
		t.Fatalf("expected PascalCase keys, got %v", window)
	}

	refs := getJSON(t, srv.URL+"/references/DEPOTS", http.StatusOK)
	values, _ := refs["values"].([]any)
	if len(values) != 1 {
		t.Fatalf("unexpected reference payload %v", refs)
	}

	missing := getJSON(t, srv.URL+"/windows/NOPE", http.StatusNotFound)
	if missing["code"] != "NOT_FOUND" {
		t.Fatalf("unexpected error payload %v", missing)
	}

	if got := s.Hits("GET /windows/{windowID}"); got != 2 {
		t.Fatalf("hits = %d, want 2 across both surfaces", got)
	}
}

func TestHealth(t *testing.T) {
	s, srv := newTestServer(t)
	getJSON(t, srv.URL+"/health", http.StatusOK)
	s.SetHealthy(false)
	body := getJSON(t, srv.URL+"/health", http.StatusServiceUnavailable)
	if body["code"] != "UNAVAILABLE" {
		t.Fatalf("unexpected health payload %v", body)
	}
}

func TestRecordUpload(t *testing.T) {
	s, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/windows/SITE_AUDIT/records", "application/json", bytes.NewBufferString(`{"values":{"notes":"ok"}}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d, want 201", resp.StatusCode)
	}
	if got := s.Records("SITE_AUDIT"); len(got) != 1 {
		t.Fatalf("records = %v", got)
	}

	resp, err = http.Post(srv.URL+"/windows/SITE_AUDIT/records", "application/json", bytes.NewBufferString(`{`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("audit.json", siteAudit)
	mustWrite(ReferencesFile, `{"DEPOTS":[{"key":"LHR","value":"Heathrow"}]}`)
	mustWrite("notes.txt", "ignored")

	s := New()
	if err := s.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	getJSON(t, srv.URL+"/windows/SITE_AUDIT", http.StatusOK)
	getJSON(t, srv.URL+"/references/DEPOTS", http.StatusOK)

	mustWrite("broken.json", `{`)
	if err := New().LoadDir(dir); err == nil {
		t.Fatal("expected error for malformed document")
	}
}
