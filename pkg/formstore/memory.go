package formstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/red1oon/ADUI/pkg/schema"
)

// Memory is an in-process Store. Records live until the process exits.
type Memory struct {
	mu      sync.RWMutex
	now     func() time.Time
	records map[string]map[string]schema.FormDataRecord
	latest  map[string]string
}

// NewMemory builds an empty store. A nil clock defaults to time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:     now,
		records: make(map[string]map[string]schema.FormDataRecord),
		latest:  make(map[string]string),
	}
}

func (m *Memory) Save(ctx context.Context, record schema.FormDataRecord) (schema.FormDataRecord, error) {
	if err := ctx.Err(); err != nil {
		return schema.FormDataRecord{}, err
	}
	stored, err := stamp(record, m.now())
	if err != nil {
		return schema.FormDataRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	window, ok := m.records[stored.WindowID]
	if !ok {
		window = make(map[string]schema.FormDataRecord)
		m.records[stored.WindowID] = window
	}
	window[stored.RecordID] = stored
	m.latest[stored.WindowID] = stored.RecordID
	return stored.Clone(), nil
}

func (m *Memory) Get(ctx context.Context, windowID, recordID string) (schema.FormDataRecord, error) {
	if err := ctx.Err(); err != nil {
		return schema.FormDataRecord{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[windowID][recordID]
	if !ok {
		return schema.FormDataRecord{}, fmt.Errorf("formstore: window %q record %q: %w", windowID, recordID, ErrNotFound)
	}
	return record.Clone(), nil
}

func (m *Memory) Latest(ctx context.Context, windowID string) (schema.FormDataRecord, error) {
	if err := ctx.Err(); err != nil {
		return schema.FormDataRecord{}, err
	}
	m.mu.RLock()
	recordID, ok := m.latest[windowID]
	m.mu.RUnlock()
	if !ok {
		return schema.FormDataRecord{}, fmt.Errorf("formstore: window %q: %w", windowID, ErrNotFound)
	}
	return m.Get(ctx, windowID, recordID)
}

func (m *Memory) List(ctx context.Context, windowID string) ([]schema.FormDataRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]schema.FormDataRecord, 0, len(m.records[windowID]))
	for _, record := range m.records[windowID] {
		out = append(out, record.Clone())
	}
	m.mu.RUnlock()
	sortByCreated(out)
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

func sortByCreated(records []schema.FormDataRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Metadata.Created, records[j].Metadata.Created
		if a.Equal(b) {
			return records[i].RecordID < records[j].RecordID
		}
		return a.Before(b)
	})
}
