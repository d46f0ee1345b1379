package adapter

import "github.com/red1oon/ADUI/pkg/schema"

// componentDefaults lists the data/ui sub-fields backfilled for components
// whose widgets require them. Only missing keys are filled.
type componentDefaults struct {
	data map[string]any
	ui   map[string]any
}

func defaultsFor(displayType schema.DisplayType) (componentDefaults, bool) {
	switch displayType {
	case schema.DisplayTypeTaskList:
		return componentDefaults{
			data: map[string]any{
				"tasks":        []any{},
				"dependencies": []any{},
			},
			ui: map[string]any{
				"priorityColors": map[string]any{
					"high":   "#D32F2F",
					"medium": "#F57C00",
					"low":    "#388E3C",
				},
				"showProgress": true,
				"layout":       "list",
			},
		}, true
	case schema.DisplayTypeQRChecklist, schema.DisplayTypeFlippableQRChecklist:
		return componentDefaults{
			data: map[string]any{
				"items": []any{},
			},
			ui: map[string]any{
				"allowManualEntry": false,
				"showProgress":     true,
			},
		}, true
	case schema.DisplayTypeQRCollector:
		return componentDefaults{
			data: map[string]any{
				"maxItems": 100,
			},
			ui: map[string]any{
				"allowDuplicates": false,
				"showCount":       true,
			},
		}, true
	case schema.DisplayTypeMultiPhoto:
		return componentDefaults{
			data: map[string]any{
				"maxPhotos": 5,
				"minPhotos": 0,
			},
			ui: map[string]any{
				"quality":     0.8,
				"allowDelete": true,
			},
		}, true
	default:
		return componentDefaults{}, false
	}
}

// applyDefaults returns copies of data and ui with missing defaults filled.
// Components without defaults get the original maps back untouched.
func applyDefaults(displayType schema.DisplayType, data, ui map[string]any) (map[string]any, map[string]any) {
	defaults, ok := defaultsFor(displayType)
	if !ok {
		return data, ui
	}
	return mergeMissing(data, defaults.data), mergeMissing(ui, defaults.ui)
}

func mergeMissing(current, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(current)+len(defaults))
	for key, value := range current {
		out[key] = value
	}
	for key, value := range defaults {
		if existing, ok := out[key]; ok && existing != nil {
			continue
		}
		out[key] = value
	}
	return out
}
