// Package loader reads window documents from files, fs.FS entries, HTTP
// URLs or inline strings.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/red1oon/ADUI/pkg/schema"
)

// Options configures a Loader.
type Options struct {
	FileSystem     fs.FS
	HTTPClient     *http.Client
	AllowHTTP      bool
	RequestTimeout time.Duration
}

// Loader delegates to a strategy per source kind.
type Loader struct {
	fs        fs.FS
	http      *http.Client
	allowHTTP bool
	timeout   time.Duration
}

// New constructs a Loader from pre-resolved options.
func New(options Options) *Loader {
	timeout := options.RequestTimeout

	var httpClient *http.Client
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = timeout
		}
		httpClient = &clone
	case options.AllowHTTP:
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Loader{
		fs:        options.FileSystem,
		http:      httpClient,
		allowHTTP: httpClient != nil,
		timeout:   timeout,
	}
}

// Supports reports whether the loader can read sources of the given kind.
func (l *Loader) Supports(kind schema.SourceKind) bool {
	switch kind {
	case schema.SourceKindFile, schema.SourceKindInline:
		return true
	case schema.SourceKindFS:
		return l.fs != nil
	case schema.SourceKindURL:
		return l.allowHTTP
	default:
		return false
	}
}

// Load fetches a document from src and wraps it in a Document.
func (l *Loader) Load(ctx context.Context, src schema.Source) (schema.Document, error) {
	if src == nil {
		return schema.Document{}, errors.New("loader: source is nil")
	}

	var (
		data []byte
		err  error
	)

	switch src.Kind() {
	case schema.SourceKindFile:
		data, err = readLocal(ctx, nil, src.Location())
	case schema.SourceKindFS:
		if l.fs == nil {
			return schema.Document{}, errors.New("loader: no file system configured")
		}
		data, err = readLocal(ctx, l.fs, src.Location())
	case schema.SourceKindURL:
		if !l.allowHTTP {
			return schema.Document{}, errors.New("loader: http support disabled")
		}
		data, err = loadHTTP(ctx, l.http, src.Location(), l.timeout)
	case schema.SourceKindInline:
		content, _ := schema.InlineContent(src)
		data = []byte(content)
	default:
		err = fmt.Errorf("loader: unsupported source kind %q", src.Kind())
	}
	if err != nil {
		return schema.Document{}, err
	}

	return schema.NewDocument(src, data)
}
