package reference

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/red1oon/ADUI/pkg/schema"
)

func TestEmbeddedID(t *testing.T) {
	if got := EmbeddedID("status"); got != "status_EMBEDDED_REF" {
		t.Fatalf("EmbeddedID = %q", got)
	}
}

func TestIsEmbedded(t *testing.T) {
	cases := map[string]bool{
		"status_EMBEDDED_REF":  true,
		EmbeddedID("x"):        true,
		"_EMBEDDED_REF":        false,
		"STATUS_LIST":          false,
		"REF_status":           false,
		"status_EMBEDDED_REF2": false,
		"":                     false,
	}
	for id, want := range cases {
		if got := IsEmbedded(id); got != want {
			t.Fatalf("IsEmbedded(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestResolverPutGetClear(t *testing.T) {
	r := New()
	values := []schema.ReferenceValue{{Key: "ok", Value: "OK"}, {Key: "ko", Value: "Broken"}}
	r.Put("status_EMBEDDED_REF", values)

	values[0].Value = "mutated"
	got, ok := r.Get("status_EMBEDDED_REF")
	if !ok {
		t.Fatalf("expected stored values")
	}
	want := []schema.ReferenceValue{{Key: "ok", Value: "OK"}, {Key: "ko", Value: "Broken"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	r.Clear()
	if _, ok := r.Get("status_EMBEDDED_REF"); ok {
		t.Fatalf("expected miss after Clear")
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty resolver after Clear")
	}
}

func TestResolverNilSafe(t *testing.T) {
	var r *Resolver
	r.Put("a", nil)
	r.Clear()
	if _, ok := r.Get("a"); ok {
		t.Fatalf("nil resolver should never hit")
	}
}

func TestResolverConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := EmbeddedID(string(rune('a' + n)))
			r.Put(id, []schema.ReferenceValue{{Key: id}})
			_, _ = r.Get(id)
		}(i)
	}
	wg.Wait()
	if r.Len() != 16 {
		t.Fatalf("expected 16 entries, got %d", r.Len())
	}
}
