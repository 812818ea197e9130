package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Schema Tests --------------------

func TestCreateSchema(t *testing.T) {
	type args struct {
		Name     string  `json:"name" description:"Resource name"`
		Count    int     `json:"count"`
		Ratio    float64 `json:"ratio,omitempty"`
		Optional *string `json:"optional"`
		Skipped  string  `json:"-"`
		hidden   bool    //nolint:unused
	}

	schema := CreateSchema(args{})
	assert.Equal(t, "object", schema["type"])

	props := schema["properties"].(map[string]any)
	assert.Len(t, props, 4)
	assert.Equal(t, "string", props["name"].(map[string]any)["type"])
	assert.Equal(t, "Resource name", props["name"].(map[string]any)["description"])
	assert.Equal(t, "integer", props["count"].(map[string]any)["type"])
	assert.Equal(t, "number", props["ratio"].(map[string]any)["type"])
	assert.NotContains(t, props, "Skipped")
	assert.NotContains(t, props, "hidden")

	// omitempty and pointer fields are not required.
	required := schema["required"].([]string)
	assert.ElementsMatch(t, []string{"name", "count"}, required)
}

func TestCreateSchema_NonStruct(t *testing.T) {
	schema := CreateSchema("not a struct")
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":  map[string]any{"type": "string"},
			"count": map[string]any{"type": "integer"},
		},
		"required": []string{"name"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"name": "vm-1", "count": 3}, schema))
	// JSON numbers arrive as float64.
	assert.NoError(t, ValidateParameters(map[string]any{"name": "vm-1", "count": float64(3)}, schema))
	// Undeclared extras are tolerated.
	assert.NoError(t, ValidateParameters(map[string]any{"name": "vm-1", "extra": true}, schema))

	err := ValidateParameters(map[string]any{"count": 3}, schema)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "name", valErr.Field)

	err = ValidateParameters(map[string]any{"name": "vm-1", "count": "three"}, schema)
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "count", valErr.Field)

	// A fractional value is not an integer.
	err = ValidateParameters(map[string]any{"name": "vm-1", "count": 3.5}, schema)
	assert.Error(t, err)
}

func TestValidateParameters_RequiredFromJSON(t *testing.T) {
	// Schemas round-tripped through JSON carry required as []any.
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
		"required":   []any{"name"},
	}

	assert.Error(t, ValidateParameters(map[string]any{}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"name": "x"}, schema))
}

// -------------------- Template Tests --------------------

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Hello {{.Name}}, you have {{.Count}} findings.", map[string]any{
		"Name":  "operator",
		"Count": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello operator, you have 3 findings.", out)
}

func TestRenderTemplate_PlainTextFastPath(t *testing.T) {
	out, err := RenderTemplate("no markers here", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers here", out)
}

func TestRenderTemplate_Funcs(t *testing.T) {
	out, err := RenderTemplate(`{{upper .Name}}: {{join ", " .Items}}`, map[string]any{
		"Name":  "plan",
		"Items": []any{"vm", "disk"},
	})
	require.NoError(t, err)
	assert.Equal(t, "PLAN: vm, disk", out)
}

func TestRenderTemplate_ParseError(t *testing.T) {
	_, err := RenderTemplate("{{.Unclosed", nil)
	assert.Error(t, err)
}

// -------------------- ID Tests --------------------

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.NotEmpty(t, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
