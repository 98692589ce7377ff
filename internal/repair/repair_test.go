package repair

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairValidInputUnchanged(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"a": 1}`,
		`{"a": [{"topic": "hello", "priority": "high"}]}`,
		`{"nested": {"deep": {"key": [1, 2, 3]}}}`,
		`{"text": "contains \"escaped\" quotes and \\n sequences"}`,
	}
	for _, in := range inputs {
		out, err := Repair(in)
		require.NoError(t, err, "input: %s", in)
		assert.Equal(t, in, out, "valid JSON must pass through unchanged")
	}
}

func TestRepairEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := Repair(in)
		assert.ErrorIs(t, err, ErrNoContent)
	}
}

func TestRepairNoObject(t *testing.T) {
	_, err := Repair("I could not classify these emails, sorry.")
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestRepairUnrepairable(t *testing.T) {
	_, err := Repair(`{this is not json at all`)
	assert.ErrorIs(t, err, ErrUnrepairable)
}

func TestRepairStripsSurroundingProse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "leading prose",
			input: `Here is the classification: {"a": 1}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "trailing prose",
			input: `{"a": 1} Let me know if you need anything else.`,
			want:  `{"a": 1}`,
		},
		{
			name:  "markdown fence",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Repair(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRepairBalancesDelimiters(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing brace", `{"a": 1`},
		{"missing bracket and brace", `{"a": [1, 2`},
		{"truncated mid string", `{"a": "unfinished value`},
		{"nested truncation", `{"a": {"b": {"c": "deep`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Repair(tt.input)
			require.NoError(t, err)
			assert.True(t, json.Valid([]byte(out)), "repaired output must parse: %s", out)
		})
	}
}

func TestRepairUnterminatedStringBeforeNextKey(t *testing.T) {
	// The closing quote is inserted before the structural comma, so the
	// next key survives and the truncated text is preserved.
	input := "{\"a\": [{\"topic\": \"Unterminated string,\n\"priority\":\"high\"}]}"

	out, err := Repair(input)
	require.NoError(t, err)

	var doc struct {
		A []struct {
			Topic    string `json:"topic"`
			Priority string `json:"priority"`
		} `json:"a"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.A, 1)
	assert.Equal(t, "Unterminated string", doc.A[0].Topic)
	assert.Equal(t, "high", doc.A[0].Priority)
}

func TestRepairRemovesTrailingCommas(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"a": 1,}`, `{"a": 1}`},
		{`{"a": [1, 2,]}`, `{"a": [1, 2]}`},
		{"{\"a\": 1,\n}", "{\"a\": 1\n}"},
		{`{"a": ",keeps,commas,in,strings,",}`, `{"a": ",keeps,commas,in,strings,"}`},
	}
	for _, tt := range tests {
		out, err := Repair(tt.input)
		require.NoError(t, err, "input: %s", tt.input)
		assert.Equal(t, tt.want, out)
	}
}

func TestRepairEscapesControlCharacters(t *testing.T) {
	input := "{\"body\": \"line one\nline two\tend\"}"

	out, err := Repair(input)
	require.NoError(t, err)

	var doc map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "line one\nline two\tend", doc["body"])
}

func TestRepairIdempotent(t *testing.T) {
	corpus := []string{
		`{"a": 1}`,
		`prose {"a": 1} prose`,
		`{"a": [1, 2,]}`,
		`{"a": "truncated`,
		"{\"a\": [{\"topic\": \"Unterminated string,\n\"priority\":\"high\"}]}",
		"{\"body\": \"line one\nline two\"}",
		`{"a": {"b": [`,
	}
	for _, in := range corpus {
		first, err := Repair(in)
		require.NoError(t, err, "input: %q", in)
		second, err := Repair(first)
		require.NoError(t, err, "re-repair of %q", first)
		assert.Equal(t, first, second, "repair must be idempotent for %q", in)
	}
}

func TestRepairDetailReportsPass(t *testing.T) {
	out, pass, err := RepairDetail(`{"a": 1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, out)
	assert.Empty(t, pass, "valid input needs no pass")

	_, pass, err = RepairDetail("noise before {\"a\": 1}")
	require.NoError(t, err)
	assert.Equal(t, "strip_prose", pass)

	_, pass, err = RepairDetail(`{"a": [1`)
	require.NoError(t, err)
	assert.Equal(t, "balance_delimiters", pass)
}

func TestPassesIndividually(t *testing.T) {
	t.Run("stripProse", func(t *testing.T) {
		assert.Equal(t, `{"a": 1}`, stripProse(`before {"a": 1} after`))
		assert.Equal(t, `{"a": 1`, stripProse(`before {"a": 1`))
	})

	t.Run("balanceDelimiters", func(t *testing.T) {
		assert.Equal(t, `{"a": [1]}`, balanceDelimiters(`{"a": [1`))
		assert.Equal(t, `{"a": "b"}`, balanceDelimiters(`{"a": "b`))
		assert.Equal(t, `{"a": 1}`, balanceDelimiters(`{"a": 1}`))
	})

	t.Run("removeTrailingCommas", func(t *testing.T) {
		assert.Equal(t, `{"a": 1}`, removeTrailingCommas(`{"a": 1,}`))
		assert.Equal(t, `{"a": "x,y,"}`, removeTrailingCommas(`{"a": "x,y,"}`))
	})

	t.Run("escapeControlChars", func(t *testing.T) {
		assert.Equal(t, `{"a": "x\ny"}`, escapeControlChars("{\"a\": \"x\ny\"}"))
		assert.Equal(t, `{"a": "x"}`, escapeControlChars(`{"a": "x"}`))
	})
}
