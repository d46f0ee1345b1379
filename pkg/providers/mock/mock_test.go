package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/red1oon/ADUI/pkg/provider"
	"github.com/red1oon/ADUI/pkg/schema"
)

func TestMock_Catalog(t *testing.T) {
	p := MustNew()
	ctx := context.Background()

	summaries, err := p.GetAvailableWindows(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []string
	for _, summary := range summaries {
		ids = append(ids, summary.ID)
	}
	if diff := cmp.Diff([]string{"EQUIPMENT_CHECK", "SITE_AUDIT"}, ids); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}

	window, err := p.GetWindowDefinition(ctx, "SITE_AUDIT")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(window.Tabs) != 2 || window.Metadata.Source != "catalog/site_audit.json" {
		t.Fatalf("unexpected window: %d tabs, source %q", len(window.Tabs), window.Metadata.Source)
	}
	if _, err := p.GetWindowDefinition(ctx, "NOPE"); !errors.Is(err, provider.ErrWindowNotFound) {
		t.Fatalf("expected ErrWindowNotFound, got %v", err)
	}
	if p.Kind() != provider.KindMock || p.CacheSize() != 2 {
		t.Fatalf("unexpected kind/cache size %q %d", p.Kind(), p.CacheSize())
	}
	connected, err := p.IsConnected(ctx)
	if !connected || err != nil {
		t.Fatalf("mock must always be connected")
	}
}

func TestMock_References(t *testing.T) {
	p := MustNew()
	ctx := context.Background()

	regions, err := p.GetReferenceValues(ctx, "REGIONS")
	if err != nil || len(regions) != 4 {
		t.Fatalf("expected static regions, got %v %v", regions, err)
	}
	condition, err := p.GetReferenceValues(ctx, "condition_EMBEDDED_REF")
	if err != nil || len(condition) != 3 || condition[0].Key != "good" {
		t.Fatalf("expected embedded condition values, got %v %v", condition, err)
	}
	missing, err := p.GetReferenceValues(ctx, "UNKNOWN")
	if err != nil || missing == nil || len(missing) != 0 {
		t.Fatalf("unknown references must yield an empty list, got %#v %v", missing, err)
	}
}

func TestMock_FormData(t *testing.T) {
	p := MustNew()
	ctx := context.Background()

	record := schema.NewRecord("")
	record.Set("serial", "EQ-100", "")
	saved, err := p.SaveFormData(ctx, "EQUIPMENT_CHECK", record)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.WindowID != "EQUIPMENT_CHECK" || saved.RecordID == "" {
		t.Fatalf("unexpected saved record %+v", saved)
	}

	latest, err := p.GetFormData(ctx, "EQUIPMENT_CHECK", "")
	if err != nil || latest.RecordID != saved.RecordID {
		t.Fatalf("latest lookup failed: %+v %v", latest, err)
	}
	if _, err := p.SaveFormData(ctx, "NOPE", record); !errors.Is(err, provider.ErrWindowNotFound) {
		t.Fatalf("expected ErrWindowNotFound, got %v", err)
	}
	if _, err := p.GetFormData(ctx, "SITE_AUDIT", ""); !errors.Is(err, provider.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
