package schema

// Clone returns a deep copy of the window. Providers hand out clones so
// callers can edit a window without touching the cached original.
func (w WindowDefinition) Clone() WindowDefinition {
	out := w
	if w.Tabs == nil {
		return out
	}
	out.Tabs = make([]TabDefinition, len(w.Tabs))
	for i, tab := range w.Tabs {
		out.Tabs[i] = tab.Clone()
	}
	return out
}

// Clone returns a deep copy of the tab and its fields.
func (t TabDefinition) Clone() TabDefinition {
	out := t
	if t.Fields == nil {
		return out
	}
	out.Fields = make([]FieldDefinition, len(t.Fields))
	for i, field := range t.Fields {
		out.Fields[i] = field.Clone()
	}
	return out
}

// Clone returns a deep copy of the field, including its reference values and
// the nested data/ui payloads.
func (f FieldDefinition) Clone() FieldDefinition {
	out := f
	if f.Reference != nil {
		ref := *f.Reference
		if ref.Values != nil {
			ref.Values = append([]ReferenceValue(nil), ref.Values...)
			if len(ref.Values) == 0 {
				ref.Values = []ReferenceValue{}
			}
		}
		out.Reference = &ref
	}
	out.Data = cloneMap(f.Data)
	out.UI = cloneMap(f.UI)
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneAny(v)
	}
	return out
}

func cloneAny(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneAny(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	case map[string]string:
		out := make(map[string]string, len(typed))
		for k, s := range typed {
			out[k] = s
		}
		return out
	default:
		return v
	}
}
