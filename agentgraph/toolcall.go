package agentgraph

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ToolInvocation is a single tool call an LLM response requested, along
// with what the tool returned once it ran.
type ToolInvocation struct {
	Name      string
	Arguments map[string]any
	Result    map[string]any
	Error     string
}

var toolCallBlock = regexp.MustCompile("(?s)```tool_call\\s*(\\{.*?\\})\\s*```")

type toolCallRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// parseToolCall looks for a fenced ```tool_call {...}``` JSON block in text
// and reports the request it describes, if any. A node's system prompt is
// expected to instruct the model to use this exact convention when it
// wants to invoke a tool (see toolUsePreamble).
func parseToolCall(text string) (toolCallRequest, bool) {
	m := toolCallBlock.FindStringSubmatch(text)
	if m == nil {
		return toolCallRequest{}, false
	}
	var req toolCallRequest
	if err := json.Unmarshal([]byte(m[1]), &req); err != nil {
		return toolCallRequest{}, false
	}
	if req.Name == "" {
		return toolCallRequest{}, false
	}
	return req, true
}

// toolUsePreamble describes the available tools and the fenced-JSON
// convention a node's model must use to invoke one. Appended to a node's
// system prompt only when it declares tools and has toolSteps remaining.
func toolUsePreamble(names []string) string {
	var b strings.Builder
	b.WriteString("You may call one of the following tools: ")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(". To call a tool, respond with exactly one fenced block of the form:\n")
	b.WriteString("```tool_call\n{\"name\": \"<tool name>\", \"arguments\": {...}}\n```\n")
	b.WriteString("and nothing else. Once you have the tool result, answer normally without a tool_call block.")
	return b.String()
}
