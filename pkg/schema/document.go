package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is a loaded window payload together with where it came from.
// A leading UTF-8 byte order mark is dropped; exports from some desktop
// tools carry one and JSON decoders reject it.
type Document struct {
	source Source
	raw    []byte
	digest string
}

// NewDocument copies raw and records its SHA-256 digest.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: document source is required")
	}
	body := bytes.TrimPrefix(raw, utf8BOM)
	if len(bytes.TrimSpace(body)) == 0 {
		return Document{}, errors.New("schema: window document is empty")
	}
	sum := sha256.Sum256(body)
	return Document{
		source: src,
		raw:    append([]byte(nil), body...),
		digest: hex.EncodeToString(sum[:]),
	}, nil
}

func (d Document) Source() Source {
	return d.source
}

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

func (d Document) Size() int {
	return len(d.raw)
}

// Digest is the hex SHA-256 of the payload; re-imports of an unchanged file
// produce the same value.
func (d Document) Digest() string {
	return d.digest
}

// Location is the source location, or "" for a zero Document.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}
