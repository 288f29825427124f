package schema_test

import (
	"reflect"
	"testing"

	"github.com/effective-security/finrecon/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type question struct {
	Input string `json:"input" jsonschema:"title=Input,description=Question about the table."`
}

type lookup struct {
	Currency string  `json:"currency" jsonschema:"description=Currency code"`
	Pair     *kvPair `json:"pair,omitempty"`
}

type kvPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func TestSchema(t *testing.T) {
	t.Parallel()

	si, err := schema.New(reflect.TypeOf(question{}))
	require.NoError(t, err)
	exp := `{
	"properties": {
		"input": {
			"type": "string",
			"title": "Input",
			"description": "Question about the table."
		}
	},
	"type": "object",
	"required": [
		"input"
	]
}`
	assert.Equal(t, exp, si.String())

	// cached
	si2, err := schema.New(reflect.TypeOf(question{}))
	require.NoError(t, err)
	assert.Same(t, si, si2)
}

func TestFor(t *testing.T) {
	t.Parallel()

	params, err := schema.For[lookup]()
	require.NoError(t, err)
	assert.Equal(t, "object", params.Type)
	assert.Equal(t, []string{"currency"}, params.Required)

	cur, ok := params.Properties.Get("currency")
	require.True(t, ok)
	assert.Equal(t, "string", cur.Type)
	assert.Equal(t, "Currency code", cur.Description)

	pair, ok := params.Properties.Get("pair")
	require.True(t, ok)
	assert.Empty(t, pair.Ref)
	require.NotNil(t, pair.Properties)
	assert.Equal(t, 2, pair.Properties.Len())
}

func TestSchemaFromAny(t *testing.T) {
	t.Parallel()

	sc, err := schema.FromAny(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"amount": map[string]any{
				"type": "number",
			},
		},
		"required": []string{"amount"},
	})
	require.NoError(t, err)
	assert.Equal(t, "object", sc.Type)
	assert.Equal(t, []string{"amount"}, sc.Required)
	amount, ok := sc.Properties.Get("amount")
	require.True(t, ok)
	assert.Equal(t, "number", amount.Type)

	_, err = schema.FromAny(func() {})
	assert.Error(t, err)
	assert.Panics(t, func() { schema.MustFromAny(make(chan int)) })
}
