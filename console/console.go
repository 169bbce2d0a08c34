// Package console renders chat transcripts as bordered terminal panels, one
// panel per message with a role-colored title.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tmc/langchaingo/llms"
)

var (
	humanColor     = lipgloss.Color("#A8E6CF")
	assistantColor = lipgloss.Color("#FFB3BA")
	toolColor      = lipgloss.Color("#6B7280")
	systemColor    = lipgloss.Color("#F9FAFB")

	titleStyle = lipgloss.NewStyle().Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// Console writes rendered panels to an output stream.
type Console struct {
	out   io.Writer
	width int
}

// Option configures a Console.
type Option func(*Console)

// WithOutput directs rendered panels to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Console) { c.out = w }
}

// WithWidth sets the panel width. Zero lets panels size to their content.
func WithWidth(width int) Option {
	return func(c *Console) { c.width = width }
}

// New creates a Console writing to stdout unless configured otherwise.
func New(opts ...Option) *Console {
	c := &Console{out: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PrintMessage renders one chat message as a panel.
func (c *Console) PrintMessage(msg llms.MessageContent) {
	fmt.Fprintln(c.out, c.RenderMessage(msg))
}

// PrintMessages renders a transcript, one panel per message.
func (c *Console) PrintMessages(msgs []llms.MessageContent) {
	for _, msg := range msgs {
		c.PrintMessage(msg)
	}
}

// PrintPanel renders arbitrary text under a title, in the assistant color.
func (c *Console) PrintPanel(title, body string) {
	fmt.Fprintln(c.out, c.renderPanel(title, body, assistantColor))
}

// RenderMessage returns the panel for a message without printing it.
func (c *Console) RenderMessage(msg llms.MessageContent) string {
	title, color := roleTitle(msg.Role)
	return c.renderPanel(title, MessageText(msg), color)
}

func (c *Console) renderPanel(title, body string, color lipgloss.Color) string {
	style := panelStyle.BorderForeground(color)
	if c.width > 0 {
		style = style.Width(c.width)
	}
	header := titleStyle.Foreground(color).Render(title)
	return style.Render(header + "\n\n" + strings.TrimRight(body, "\n"))
}

func roleTitle(role llms.ChatMessageType) (string, lipgloss.Color) {
	switch role {
	case llms.ChatMessageTypeHuman:
		return "Human", humanColor
	case llms.ChatMessageTypeAI:
		return "Assistant", assistantColor
	case llms.ChatMessageTypeTool:
		return "Tool", toolColor
	case llms.ChatMessageTypeSystem:
		return "System", systemColor
	default:
		return string(role), systemColor
	}
}

// MessageText flattens a message's parts into plain text. Tool calls and tool
// responses are included in a readable one-line form.
func MessageText(msg llms.MessageContent) string {
	var sb strings.Builder
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			sb.WriteString(p.Text)
		case llms.ToolCall:
			if p.FunctionCall != nil {
				fmt.Fprintf(&sb, "[tool call] %s(%s)", p.FunctionCall.Name, p.FunctionCall.Arguments)
			}
		case llms.ToolCallResponse:
			fmt.Fprintf(&sb, "[tool result] %s", p.Content)
		}
	}
	return sb.String()
}
