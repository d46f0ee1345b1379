package formstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/red1oon/ADUI/pkg/schema"
)

// BadgerConfig holds configuration for a Badger-backed store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool
	// SyncWrites flushes every write to disk before returning.
	SyncWrites bool
	// Logger receives badger's internal logging. Nil disables it.
	Logger *slog.Logger
	// Now overrides the clock used to stamp records.
	Now func() time.Time
}

// DefaultBadgerConfig returns durable defaults for the directory at path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true}
}

// InMemoryBadgerConfig returns a configuration suited to tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Badger stores records as JSON under record/<window>/<id> with a
// latest/<window> pointer to the most recent save. Ids are path-escaped in
// keys so a window id containing "/" never shares another window's prefix.
type Badger struct {
	db  *badger.DB
	now func() time.Time
}

// OpenBadger opens or creates the database described by cfg.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("formstore: path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("formstore: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("formstore: open badger: %w", err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Badger{db: db, now: now}, nil
}

func recordKey(windowID, recordID string) []byte {
	return append(recordPrefix(windowID), url.PathEscape(recordID)...)
}

func recordPrefix(windowID string) []byte {
	return []byte("record/" + url.PathEscape(windowID) + "/")
}

func latestKey(windowID string) []byte {
	return []byte("latest/" + url.PathEscape(windowID))
}

// decodeRecord reads a stored record back with the value types the collector
// produces: integers as int64 and string lists as []string.
func decodeRecord(val []byte, record *schema.FormDataRecord) error {
	dec := json.NewDecoder(bytes.NewReader(val))
	dec.UseNumber()
	if err := dec.Decode(record); err != nil {
		return err
	}
	for id, value := range record.Values {
		value.Raw = restoreRaw(value.Raw)
		record.Values[id] = value
	}
	return nil
}

func restoreRaw(raw any) any {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			v[i] = restoreRaw(item)
			if str, ok := v[i].(string); ok && len(out) == i {
				out = append(out, str)
			}
		}
		if len(out) == len(v) {
			return out
		}
		return v
	case map[string]any:
		for key, item := range v {
			v[key] = restoreRaw(item)
		}
		return v
	}
	return raw
}

func (b *Badger) Save(ctx context.Context, record schema.FormDataRecord) (schema.FormDataRecord, error) {
	if err := ctx.Err(); err != nil {
		return schema.FormDataRecord{}, err
	}
	stored, err := stamp(record, b.now())
	if err != nil {
		return schema.FormDataRecord{}, err
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return schema.FormDataRecord{}, fmt.Errorf("formstore: encode record: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(stored.WindowID, stored.RecordID), payload); err != nil {
			return err
		}
		return txn.Set(latestKey(stored.WindowID), []byte(stored.RecordID))
	})
	if err != nil {
		return schema.FormDataRecord{}, fmt.Errorf("formstore: save window %q: %w", stored.WindowID, err)
	}
	return stored, nil
}

func (b *Badger) Get(ctx context.Context, windowID, recordID string) (schema.FormDataRecord, error) {
	if err := ctx.Err(); err != nil {
		return schema.FormDataRecord{}, err
	}
	var record schema.FormDataRecord
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(windowID, recordID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decodeRecord(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return schema.FormDataRecord{}, fmt.Errorf("formstore: window %q record %q: %w", windowID, recordID, ErrNotFound)
	}
	if err != nil {
		return schema.FormDataRecord{}, fmt.Errorf("formstore: read window %q record %q: %w", windowID, recordID, err)
	}
	return record, nil
}

func (b *Badger) Latest(ctx context.Context, windowID string) (schema.FormDataRecord, error) {
	if err := ctx.Err(); err != nil {
		return schema.FormDataRecord{}, err
	}
	var recordID string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(latestKey(windowID))
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		recordID = string(value)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return schema.FormDataRecord{}, fmt.Errorf("formstore: window %q: %w", windowID, ErrNotFound)
	}
	if err != nil {
		return schema.FormDataRecord{}, fmt.Errorf("formstore: read latest for window %q: %w", windowID, err)
	}
	return b.Get(ctx, windowID, recordID)
}

func (b *Badger) List(ctx context.Context, windowID string) ([]schema.FormDataRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []schema.FormDataRecord
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix(windowID)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var record schema.FormDataRecord
			if err := it.Item().Value(func(val []byte) error {
				return decodeRecord(val, &record)
			}); err != nil {
				return err
			}
			out = append(out, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("formstore: list window %q: %w", windowID, err)
	}
	sortByCreated(out)
	return out, nil
}

// Close releases the database.
func (b *Badger) Close() error {
	return b.db.Close()
}
