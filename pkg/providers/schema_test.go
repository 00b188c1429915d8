package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checklistSource = `{
	"type": "object",
	"properties": {"items": {"type": "array", "items": {"type": "string"}}},
	"required": ["items"],
	"additionalProperties": false
}`

func TestSchema_ParseAcceptsValidDocument(t *testing.T) {
	s := MustSchema("checklist", "", checklistSource)
	fields, err := s.Parse(`{"items": ["Book venue", "Email press"]}`)
	require.NoError(t, err)
	assert.Len(t, fields["items"], 2)
}

func TestSchema_ParseStripsCodeFence(t *testing.T) {
	s := MustSchema("checklist", "", checklistSource)
	fields, err := s.Parse("```json\n{\"items\": []}\n```")
	require.NoError(t, err)
	assert.Contains(t, fields, "items")
}

func TestSchema_ParseRejects(t *testing.T) {
	s := MustSchema("checklist", "", checklistSource)
	for _, raw := range []string{
		`not json`,
		`{"items": "one"}`,
		`{"items": [], "extra": true}`,
		`{}`,
	} {
		_, err := s.Parse(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestNewSchema_RejectsBadSource(t *testing.T) {
	_, err := NewSchema("", "", checklistSource)
	assert.Error(t, err)
	_, err = NewSchema("broken", "", `{"type": `)
	assert.Error(t, err)
	assert.Panics(t, func() { MustSchema("broken", "", `{"type": 12}`) })
}
