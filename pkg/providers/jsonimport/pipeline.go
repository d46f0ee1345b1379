package jsonimport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/red1oon/ADUI/pkg/adapter"
	"github.com/red1oon/ADUI/pkg/schema"
	"github.com/red1oon/ADUI/pkg/validation"
)

// run is one import session. Stages append to log and stop at the first
// failure.
type run struct {
	p   *Provider
	log []Diagnostic
}

func (r *run) record(stage Stage, success bool, format string, args ...any) {
	r.log = append(r.log, Diagnostic{
		Stage:     stage,
		Success:   success,
		Details:   fmt.Sprintf(format, args...),
		Timestamp: r.p.now(),
	})
}

func (r *run) fail(stage Stage, err error) error {
	r.record(stage, false, "%v", err)
	return &ImportError{Stage: stage, Diagnostics: append([]Diagnostic(nil), r.log...), Err: err}
}

func (r *run) execute(ctx context.Context, src schema.Source) (schema.WindowDefinition, error) {
	if err := r.checkAccess(src); err != nil {
		return schema.WindowDefinition{}, r.fail(StageFileAccess, err)
	}
	r.record(StageFileAccess, true, "%s source %s", src.Kind(), src.Location())

	doc, err := r.p.loader.Load(ctx, src)
	if err != nil {
		return schema.WindowDefinition{}, r.fail(StageContentRead, err)
	}
	r.record(StageContentRead, true, "read %d bytes (sha256 %.12s)", doc.Size(), doc.Digest())

	payload, err := adapter.ParseDocument(doc.Raw())
	if err != nil {
		return schema.WindowDefinition{}, r.fail(StageParse, err)
	}
	r.record(StageParse, true, "parsed %d top-level keys", len(payload))

	if err := validation.Structure(payload); err != nil {
		return schema.WindowDefinition{}, r.fail(StageStructure, err)
	}
	tabs, _ := payload["tabs"].([]any)
	r.record(StageStructure, true, "%d tabs valid", len(tabs))

	windowID, tier := adapter.ResolveWindowID(payload)
	if windowID == "" {
		return schema.WindowDefinition{}, r.fail(StageWindowID, errors.New("no windowId, id or name to derive an id from"))
	}
	r.record(StageWindowID, true, "resolved %s from %s", windowID, tier)

	result, err := r.p.adapter.AdaptMap(ctx, payload, src.Location())
	if err != nil {
		return schema.WindowDefinition{}, r.fail(StageAdapt, err)
	}
	r.record(StageAdapt, true, "adapted %d tabs", len(result.Window.Tabs))

	if result.Window.ID != windowID {
		return schema.WindowDefinition{}, r.fail(StageStore, fmt.Errorf("adapted id %q does not match resolved id %q", result.Window.ID, windowID))
	}
	r.p.windows.Put(windowID, result.Window)
	r.record(StageStore, true, "stored window %s", windowID)

	refs := result.Window.References()
	ids := make([]string, 0, len(refs))
	for id, ref := range refs {
		if len(ref.Values) == 0 {
			continue
		}
		r.p.references.Put(id, ref.Values)
		ids = append(ids, id)
	}
	sort.Strings(ids)
	r.record(StageReferences, true, "stored %d reference lists: %s", len(ids), strings.Join(ids, ", "))
	return result.Window, nil
}

// checkAccess only sanity checks the location; the read stage reports real
// access failures.
func (r *run) checkAccess(src schema.Source) error {
	if src == nil {
		return errors.New("source is nil")
	}
	if strings.TrimSpace(src.Location()) == "" {
		return errors.New("source location is empty")
	}
	if !r.p.loader.Supports(src.Kind()) {
		return fmt.Errorf("%s sources are not enabled", src.Kind())
	}
	if src.Kind() == schema.SourceKindFile && !strings.EqualFold(extension(src.Location()), ".json") {
		return fmt.Errorf("%s is not a .json file", src.Location())
	}
	return nil
}

func extension(location string) string {
	idx := strings.LastIndex(location, ".")
	if idx < 0 || strings.ContainsAny(location[idx:], `/\`) {
		return ""
	}
	return location[idx:]
}
