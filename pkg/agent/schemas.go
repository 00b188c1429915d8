package agent

import "github.com/dotsetgreg/notemind/pkg/providers"

// AssistantMessageSchema wraps a plain reply so structured decoding can be tried first.
var AssistantMessageSchema = providers.MustSchema("assistant_message", "A single assistant reply.", `{
	"type": "object",
	"properties": {
		"message": {"type": "string"}
	},
	"required": ["message"],
	"additionalProperties": false
}`)

var ChecklistSchema = providers.MustSchema("checklist", "Actionable checklist items extracted from a note.", `{
	"type": "object",
	"properties": {
		"items": {
			"type": "array",
			"items": {"type": "string"}
		}
	},
	"required": ["items"],
	"additionalProperties": false
}`)
