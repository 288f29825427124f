package prompts_test

import (
	"testing"

	"github.com/effective-security/finrecon/pkg/llms"
	"github.com/effective-security/finrecon/pkg/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate(t *testing.T) {
	t.Parallel()

	tmpl, err := prompts.New("greet", `Hello {{ .Name | upper }}!`)
	require.NoError(t, err)
	assert.Equal(t, "greet", tmpl.Name())

	s, err := tmpl.Format(map[string]any{"Name": "bob"})
	require.NoError(t, err)
	assert.Equal(t, "Hello BOB!", s)

	_, err = tmpl.Format(map[string]any{})
	assert.Error(t, err)

	_, err = prompts.New("bad", `{{ .Name `)
	assert.Error(t, err)

	assert.Panics(t, func() {
		prompts.Must(prompts.New("bad", `{{ end }}`))
	})
}

func TestPersona(t *testing.T) {
	t.Parallel()

	s, err := prompts.Persona.Format(prompts.PersonaData{Tolerance: 3})
	require.NoError(t, err)
	assert.Contains(t, s, "within 3%")
	assert.Contains(t, s, "get_fee_description")
	assert.Contains(t, s, "SBUX is Starbucks")
	assert.Contains(t, s, "date discrepancy")
}

func TestSQLQuery(t *testing.T) {
	t.Parallel()

	data := prompts.SQLQueryData{
		Table: "bank_statement",
		Columns: []prompts.Column{
			{Name: "bank_ref", Type: "TEXT"},
			{Name: "bank_amount", Type: "REAL"},
		},
		Preview:      "bank_ref | bank_amount\nB_REF_01 | 150.0\n",
		PreviewLimit: 3,
		Question:     " which amounts exceed 1000? ",
	}
	chat, err := prompts.FormatChat(prompts.SQLQuerySystem, prompts.SQLQueryHuman, data)
	require.NoError(t, err)
	require.Len(t, chat.Messages(), 2)

	assert.Equal(t, llms.RoleSystem, chat[0].Role)
	sys := chat[0].GetContent()
	assert.Contains(t, sys, `SQLite table named "bank_statement"`)
	assert.Contains(t, sys, `- "bank_amount" REAL`)
	assert.Contains(t, sys, "B_REF_01 | 150.0")
	assert.Contains(t, sys, `SELECT * FROM "bank_statement" LIMIT 3`)

	assert.Equal(t, llms.RoleHuman, chat[1].Role)
	assert.Equal(t, "Question: which amounts exceed 1000?\n", chat[1].GetContent())
	assert.Contains(t, chat.String(), "HUMAN: Question")
}

func TestSynthesis(t *testing.T) {
	t.Parallel()

	s, err := prompts.Synthesis.Format(prompts.SynthesisData{
		Question: "total?",
		SQL:      "SELECT SUM(amount) FROM internal_records",
		Result:   "",
	})
	require.NoError(t, err)
	assert.Contains(t, s, "SQL: SELECT SUM(amount) FROM internal_records")
	assert.Contains(t, s, "(no rows)")
}
