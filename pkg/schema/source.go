package schema

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Source identifies where a window document originated so loaders can operate
// on files, fs.FS entries, URLs, or inline strings without leaking details.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindFS     SourceKind = "fs"
	SourceKindURL    SourceKind = "url"
	SourceKindInline SourceKind = "inline"
)

// fileSource identifies on-disk documents.
type fileSource struct {
	path string
}

func (s fileSource) Location() string {
	return s.path
}

func (s fileSource) Kind() SourceKind {
	return SourceKindFile
}

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

// fsSource references a path within an fs.FS.
type fsSource struct {
	name string
}

func (s fsSource) Location() string {
	return s.name
}

func (s fsSource) Kind() SourceKind {
	return SourceKindFS
}

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source {
	return fsSource{name: name}
}

// urlSource references an HTTP/HTTPS endpoint.
type urlSource struct {
	raw string
}

func (s urlSource) Location() string {
	return s.raw
}

func (s urlSource) Kind() SourceKind {
	return SourceKindURL
}

// SourceFromURL parses the supplied URL string and returns a Source. It panics
// if the URL is invalid to surface configuration mistakes early.
func SourceFromURL(raw string) Source {
	if raw == "" {
		panic("schema: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		panic(fmt.Sprintf("schema: invalid URL %q: %v", raw, err))
	}
	return urlSource{raw: raw}
}

// inlineSource carries the document content itself.
type inlineSource struct {
	name    string
	content string
}

func (s inlineSource) Location() string {
	return s.name
}

func (s inlineSource) Kind() SourceKind {
	return SourceKindInline
}

// Content returns the inline document body.
func (s inlineSource) Content() string {
	return s.content
}

// SourceFromString wraps raw document content. The name is informational and
// shows up in diagnostics.
func SourceFromString(name, content string) Source {
	if strings.TrimSpace(name) == "" {
		name = "inline"
	}
	return inlineSource{name: name, content: content}
}

// InlineContent returns the body of an inline source.
func InlineContent(src Source) (string, bool) {
	inline, ok := src.(inlineSource)
	if !ok {
		return "", false
	}
	return inline.content, true
}

// ParseSource interprets a user supplied location. http(s) URLs become URL
// sources, file:// URIs and bare paths become file sources. Unsupported
// schemes are rejected instead of guessed.
func ParseSource(raw string) (Source, error) {
	location := strings.TrimSpace(raw)
	if location == "" {
		return nil, fmt.Errorf("schema: empty source location")
	}
	if !strings.Contains(location, "://") {
		return SourceFromFile(location), nil
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("schema: invalid source %q: %w", location, err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		if parsed.Host == "" {
			return nil, fmt.Errorf("schema: source %q has no host", location)
		}
		return urlSource{raw: location}, nil
	case "file":
		path := parsed.Path
		if path == "" {
			path = parsed.Opaque
		}
		if path == "" {
			return nil, fmt.Errorf("schema: source %q has no path", location)
		}
		return SourceFromFile(path), nil
	default:
		return nil, fmt.Errorf("schema: unsupported source scheme %q", parsed.Scheme)
	}
}
