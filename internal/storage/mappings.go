package storage

// ReportMapping is the minimal mapping applied when the report index
// has to be created. Category is a keyword for exact-match filtering.
var ReportMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"pid": map[string]any{
				"type": "text",
			},
			"category": map[string]any{
				"type": "keyword",
			},
			"entity": map[string]any{
				"type": "object",
			},
			"articut_result_obj": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pos":  map[string]any{"type": "keyword"},
					"text": map[string]any{"type": "text"},
					"tag":  map[string]any{"type": "keyword"},
					"idx":  map[string]any{"type": "integer"},
				},
			},
		},
	},
}
