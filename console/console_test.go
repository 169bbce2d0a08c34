package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmc/langchaingo/llms"
)

func TestPrintMessageIncludesRoleAndText(t *testing.T) {
	var buf bytes.Buffer
	c := New(WithOutput(&buf))

	c.PrintMessage(llms.TextParts(llms.ChatMessageTypeHuman, "hello there"))

	out := buf.String()
	assert.Contains(t, out, "Human")
	assert.Contains(t, out, "hello there")
}

func TestPrintMessagesRendersEachMessage(t *testing.T) {
	var buf bytes.Buffer
	c := New(WithOutput(&buf))

	c.PrintMessages([]llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "question"),
		llms.TextParts(llms.ChatMessageTypeAI, "answer"),
	})

	out := buf.String()
	assert.Contains(t, out, "question")
	assert.Contains(t, out, "Assistant")
	assert.Contains(t, out, "answer")
}

func TestMessageTextFlattensToolParts(t *testing.T) {
	msg := llms.MessageContent{
		Role: llms.ChatMessageTypeAI,
		Parts: []llms.ContentPart{
			llms.TextContent{Text: "calling a tool"},
			llms.ToolCall{
				ID:   "call_1",
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      "search",
					Arguments: `{"query":"go"}`,
				},
			},
		},
	}

	text := MessageText(msg)
	assert.Contains(t, text, "calling a tool")
	assert.Contains(t, text, `search({"query":"go"})`)
}

func TestPrintPanel(t *testing.T) {
	var buf bytes.Buffer
	c := New(WithOutput(&buf), WithWidth(40))

	c.PrintPanel("Summary", "all good")
	assert.Contains(t, buf.String(), "Summary")
	assert.Contains(t, buf.String(), "all good")
}
