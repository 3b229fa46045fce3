package reference_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/reference"
)

type mapLookup map[string]map[string]any

func (l mapLookup) Output(moduleID string) (map[string]any, bool) {
	output, ok := l[moduleID]

	return output, ok
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		want  []string
	}{
		{
			name:  "structured reference",
			value: map[string]any{"module_id": "a", "output_key": "x"},
			want:  []string{"a"},
		},
		{
			name:  "template string",
			value: "${a.output.x}",
			want:  []string{"a"},
		},
		{
			name:  "multiple matches in one string",
			value: "${a.output.x} and ${b.output.y}",
			want:  []string{"a", "b"},
		},
		{
			name: "nested mapping and sequence",
			value: map[string]any{
				"inner": map[string]any{
					"ref": map[string]any{"module_id": "a", "output_key": "x"},
				},
				"list": []any{"${b.output.y}", 42, true},
			},
			want: []string{"a", "b"},
		},
		{
			name: "deduplicated and sorted",
			value: map[string]any{
				"one": "${b.output.x}",
				"two": "${a.output.y}",
				"dup": map[string]any{"module_id": "b", "output_key": "z"},
			},
			want: []string{"a", "b"},
		},
		{
			name:  "no references",
			value: map[string]any{"count": 3, "label": "plain string", "flag": nil},
			want:  []string{},
		},
		{
			name:  "keys are not scanned",
			value: map[string]any{"${a.output.x}": "value"},
			want:  []string{},
		},
		{
			name: "mapping with extra keys is not a structured reference",
			value: map[string]any{
				"module_id":  "a",
				"output_key": "x",
				"extra":      "${b.output.y}",
			},
			want: []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, reference.Detect(tt.value))
		})
	}
}

func TestDetectIsIdempotent(t *testing.T) {
	t.Parallel()

	value := map[string]any{
		"a": "${x.output.k}",
		"b": map[string]any{"module_id": "y", "output_key": "k"},
	}

	first := reference.Detect(value)
	second := reference.Detect(value)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"x", "y"}, second)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	lookup := mapLookup{
		"a": {"x": 42, "blob": []any{1, 2, 3}},
		"b": {"y": "hello"},
	}

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{
			name:  "structured reference",
			value: map[string]any{"module_id": "a", "output_key": "x"},
			want:  42,
		},
		{
			name:  "full string template preserves type",
			value: "${a.output.blob}",
			want:  []any{1, 2, 3},
		},
		{
			name:  "plain string unchanged",
			value: "no references here",
			want:  "no references here",
		},
		{
			name:  "scalar leaves unchanged",
			value: 3.5,
			want:  3.5,
		},
		{
			name: "nested tree",
			value: map[string]any{
				"content": map[string]any{"module_id": "a", "output_key": "x"},
				"labels":  []any{"${b.output.y}", "literal"},
				"flag":    true,
			},
			want: map[string]any{
				"content": 42,
				"labels":  []any{"hello", "literal"},
				"flag":    true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resolved, err := reference.Resolve(tt.value, lookup)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resolved)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	lookup := mapLookup{"a": {"x": 42}}

	tests := []struct {
		name    string
		value   any
		wantErr error
	}{
		{
			name:    "unresolved dependency",
			value:   map[string]any{"module_id": "missing", "output_key": "x"},
			wantErr: reference.ErrUnresolvedDependency,
		},
		{
			name:    "missing output key",
			value:   "${a.output.nope}",
			wantErr: reference.ErrMissingOutputKey,
		},
		{
			name:    "embedded template",
			value:   "prefix ${a.output.x}",
			wantErr: reference.ErrInvalidReferenceSyntax,
		},
		{
			name:    "error inside nested value",
			value:   map[string]any{"deep": []any{map[string]any{"module_id": "missing", "output_key": "x"}}},
			wantErr: reference.ErrUnresolvedDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := reference.Resolve(tt.value, lookup)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolveInput(t *testing.T) {
	t.Parallel()

	lookup := mapLookup{"s3": {"content": "file bytes"}}

	module := &models.Module{
		ID:         "proc",
		Identifier: "document_processor",
		UserConfig: map[string]any{
			"input_content": map[string]any{"module_id": "s3", "output_key": "content"},
			"mode":          "fast",
		},
	}

	input, err := reference.ResolveInput(module, lookup)
	require.NoError(t, err)

	assert.Equal(t, "proc", input.ModuleID)
	assert.Equal(t, "document_processor", input.Identifier)
	assert.Equal(t, map[string]any{
		"input_content": "file bytes",
		"mode":          "fast",
	}, input.UserConfig)
}

func TestResolveInputNilConfig(t *testing.T) {
	t.Parallel()

	module := &models.Module{ID: "m", Identifier: "echo"}

	input, err := reference.ResolveInput(module, mapLookup{})
	require.NoError(t, err)
	assert.Equal(t, "m", input.ModuleID)
	assert.Nil(t, input.UserConfig)
}
