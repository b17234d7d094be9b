package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelJSON(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    map[string]any
		wantErr bool
	}{
		{
			name: "json-tagged fence",
			text: "```json\n{\"a\":1}\n```",
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "generic fence with surrounding prose",
			text: "here is the result: ```\n{\"a\":1}\n``` thanks",
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "bare json",
			text: "{\"a\":1}",
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "only the first fence pair is honored",
			text: "```json\n{\"a\":1}\n```\nand also\n```json\n{\"b\":2}\n```",
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "fence heuristic mis-slices, full text parses",
			text: `{"note":"use ` + "```" + ` sparingly"}`,
			want: map[string]any{"note": "use ``` sparingly"},
		},
		{
			name: "nested values survive",
			text: "```json\n{\"total\": 12.5, \"parties\": [\"a\", \"b\"], \"valid\": true}\n```",
			want: map[string]any{
				"total":   12.5,
				"parties": []any{"a", "b"},
				"valid":   true,
			},
		},
		{
			name:    "not json at all",
			text:    "not json at all",
			wantErr: true,
		},
		{
			name:    "json but not an object",
			text:    "[1, 2, 3]",
			wantErr: true,
		},
		{
			name:    "fenced non-json with non-json remainder",
			text:    "```\nstill not json\n```",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModelJSON(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONCandidate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "json fence wins over generic fence",
			text: "```\nignored\n```\n```json\n{\"a\":1}\n```",
			// The first ```json marker is honored even when a generic
			// fence appears earlier in the text.
			want: "{\"a\":1}",
		},
		{
			name: "unclosed fence uses the remainder",
			text: "```json\n{\"a\":1}",
			want: "{\"a\":1}",
		},
		{
			name: "no fence returns text unmodified",
			text: "  {\"a\":1}  ",
			want: "  {\"a\":1}  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONCandidate(tt.text))
		})
	}
}
