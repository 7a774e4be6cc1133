package agentgraph

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/flowforge/agentflow/llm"
	"github.com/flowforge/agentflow/tool"
	"github.com/flowforge/agentflow/workflow"
)

// Graph holds the node and edge registries for one agent conversation and
// drives traversal off a shared event bus (spec §4.7).
type Graph struct {
	nodes map[string]Node
	edges []Edge

	state *ExecutionState

	// Events is the bus UI subscribers watch for node status and
	// streaming content. It is exported so callers can wire it to the
	// same event bus a surrounding workflow task uses.
	Events *workflow.EventBus

	generator llm.Generator
	tools     *tool.Registry

	handlers map[Pattern]patternHandler

	// responsesMu guards appends to a traversal's shared responses slice
	// when edges fan out concurrently (parallel, map).
	responsesMu sync.Mutex
}

// New builds an empty Graph. generator drives every node's LLM calls;
// tools resolves the tool names a node declares.
func New(generator llm.Generator, tools *tool.Registry) *Graph {
	g := &Graph{
		nodes:     make(map[string]Node),
		state:     newExecutionState(),
		Events:    workflow.NewEventBus(),
		generator: generator,
		tools:     tools,
	}
	g.handlers = map[Pattern]patternHandler{
		PatternSequential: handleSequential,
		PatternParallel:   handleParallel,
		PatternCondition:  handleCondition,
		PatternMap:        handleMap,
		PatternReduce:     handleReduce,
		PatternLoop:       handleLoop,
		PatternRevision:   handleRevision,
	}
	return g
}

// AddNode registers a node, replacing any prior node of the same name.
func (g *Graph) AddNode(n Node) { g.nodes[n.Name] = n }

// AddEdge registers an edge.
func (g *Graph) AddEdge(e Edge) { g.edges = append(g.edges, e) }

// GetNode looks up a node by name.
func (g *Graph) GetNode(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// GetInputNodes returns every edge terminating at nodeName.
func (g *Graph) GetInputNodes(nodeName string) []Edge {
	var in []Edge
	for _, e := range g.edges {
		if e.To == nodeName {
			in = append(in, e)
		}
	}
	return in
}

func (g *Graph) outgoingEdges(nodeName string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == nodeName {
			out = append(out, e)
		}
	}
	return out
}

// State exposes the graph's execution log for inspection and persistence.
func (g *Graph) State() *ExecutionState { return g.state }

// nodeEvent is the payload emitted on the "node" channel whenever a node's
// status changes.
type nodeEvent struct {
	Node   string     `json:"node"`
	Status NodeStatus `json:"status"`
}

// chunkEvent is the payload emitted on "nodeChunk"/"nodeReasoningChunk" as
// streamed text arrives.
type chunkEvent struct {
	Node  string `json:"node"`
	Chunk string `json:"chunk"`
	Full  string `json:"full"`
}

// ExecuteNode runs one node to completion: an optional reasoning pre-step,
// the main LLM invocation, bookkeeping, then edge traversal (spec §4.7).
// responses accumulates every node's output across the whole traversal.
func (g *Graph) ExecuteNode(ctx context.Context, nodeName, input string, responses *[]string) (string, error) {
	node, ok := g.nodes[nodeName]
	if !ok {
		return "", fmt.Errorf("agentgraph: unknown node %q", nodeName)
	}

	g.Events.Emit("node", nodeEvent{Node: nodeName, Status: NodeStatusPending})

	var reasoning string
	if node.EnableReasoning {
		g.Events.Emit("node", nodeEvent{Node: nodeName, Status: NodeStatusReasoning})
		var err error
		reasoning, err = g.processReasoningStep(ctx, node, input)
		if err != nil {
			g.Events.Emit("node", nodeEvent{Node: nodeName, Status: NodeStatusFailed})
			return "", fmt.Errorf("agentgraph: reasoning step for %q: %w", nodeName, err)
		}
	}

	output, calls, cost, err := g.processAgentMessage(ctx, node, input)
	if err != nil {
		g.Events.Emit("node", nodeEvent{Node: nodeName, Status: NodeStatusFailed})
		return "", fmt.Errorf("agentgraph: node %q: %w", nodeName, err)
	}

	g.state.setResult(nodeName, output)
	g.responsesMu.Lock()
	*responses = append(*responses, output)
	g.responsesMu.Unlock()
	g.state.markCompleted(nodeName)
	g.state.appendNodeState(NodeState{
		ID:        uuid.NewString(),
		Name:      nodeName,
		Input:     input,
		Output:    output,
		Reasoning: reasoning,
		Status:    NodeStatusCompleted,
		ToolCalls: calls,
		Cost:      cost,
	})
	g.Events.Emit("node", nodeEvent{Node: nodeName, Status: NodeStatusCompleted})

	return g.traverse(ctx, nodeName, output, responses)
}

// traverse groups nodeName's outgoing edges by pattern and dispatches each
// group to its handler in turn, per spec §4.8.
func (g *Graph) traverse(ctx context.Context, nodeName, output string, responses *[]string) (string, error) {
	groups := make(map[Pattern][]Edge)
	var order []Pattern
	for _, e := range g.outgoingEdges(nodeName) {
		if _, seen := groups[e.Pattern]; !seen {
			order = append(order, e.Pattern)
		}
		groups[e.Pattern] = append(groups[e.Pattern], e)
	}

	result := output
	for _, p := range order {
		handler, ok := g.handlers[p]
		if !ok {
			continue
		}
		r, err := handler(ctx, g, groups[p], output, responses)
		if err != nil {
			return "", err
		}
		result = r
	}
	return result, nil
}

// processReasoningStep runs an auxiliary LLM call that produces a
// reasoning trace ahead of the node's main invocation.
func (g *Graph) processReasoningStep(ctx context.Context, node Node, input string) (string, error) {
	prompt := renderPrompt(node.SystemPrompt, input)
	var full strings.Builder
	text, err := g.generator.Generate(ctx, llm.Params{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "Think step by step before answering. Output only your reasoning trace."},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: node.Temperature,
		OnChunk: func(chunk, fullText string) {
			full.WriteString(chunk)
			g.Events.Emit("nodeReasoningChunk", chunkEvent{Node: node.Name, Chunk: chunk, Full: fullText})
		},
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// processAgentMessage is the main LLM call for a node, streaming chunks to
// the event bus as they arrive. When the node declares tools and has
// toolSteps remaining, a response containing a fenced tool_call block is
// resolved against the tool registry and its result fed back as a
// follow-up message, up to node.ToolSteps round-trips (spec §6, "tool
// results feed back into the same node's context as a follow-up message").
func (g *Graph) processAgentMessage(ctx context.Context, node Node, input string) (string, []ToolInvocation, *NodeCost, error) {
	prompt := renderPrompt(node.SystemPrompt, input)
	if node.Role != "" {
		prompt = fmt.Sprintf("[%s]\n%s", node.Role, prompt)
	}
	if node.ToolSteps > 0 && len(node.Tools) > 0 {
		prompt = prompt + "\n\n" + toolUsePreamble(node.Tools)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt},
		{Role: llm.RoleUser, Content: input},
	}

	var calls []ToolInvocation
	var totalCost *NodeCost

	for step := 0; ; step++ {
		text, usage, err := g.generate(ctx, node, messages)
		if err != nil {
			return "", calls, totalCost, err
		}
		if usage != (llm.Usage{}) {
			c := estimateCost(node.Model, usage)
			if totalCost == nil {
				totalCost = &c
			} else {
				totalCost.InputTokens += c.InputTokens
				totalCost.OutputTokens += c.OutputTokens
				totalCost.CostUSD += c.CostUSD
			}
		}

		if node.ToolSteps == 0 || step >= node.ToolSteps {
			return text, calls, totalCost, nil
		}
		req, ok := parseToolCall(text)
		if !ok {
			return text, calls, totalCost, nil
		}

		t, found := g.tools.Get(req.Name)
		if !found {
			calls = append(calls, ToolInvocation{Name: req.Name, Arguments: req.Arguments, Error: "tool not found"})
			return text, calls, totalCost, nil
		}

		result, err := t.Call(ctx, req.Arguments)
		invocation := ToolInvocation{Name: req.Name, Arguments: req.Arguments, Result: result}
		if err != nil {
			invocation.Error = err.Error()
		}
		calls = append(calls, invocation)

		messages = append(messages,
			llm.Message{Role: llm.RoleAssistant, Content: text},
			llm.Message{Role: llm.RoleUser, Content: toolResultMessage(req.Name, result, err)},
		)
	}
}

// generate issues one LLM call for messages, preferring the generator's
// usage-reporting path when it implements llm.UsageGenerator so node cost
// can be attached to the resulting NodeState.
func (g *Graph) generate(ctx context.Context, node Node, messages []llm.Message) (string, llm.Usage, error) {
	params := llm.Params{
		Model:       node.Model,
		Messages:    messages,
		Temperature: node.Temperature,
		OnChunk: func(chunk, fullText string) {
			g.Events.Emit("nodeChunk", chunkEvent{Node: node.Name, Chunk: chunk, Full: fullText})
		},
	}
	if ug, ok := g.generator.(llm.UsageGenerator); ok {
		return ug.GenerateWithUsage(ctx, params)
	}
	text, err := g.generator.Generate(ctx, params)
	return text, llm.Usage{}, err
}

func toolResultMessage(name string, result map[string]any, err error) string {
	if err != nil {
		return fmt.Sprintf("Tool %q failed: %s", name, err.Error())
	}
	return fmt.Sprintf("Tool %q returned: %v", name, result)
}

func renderPrompt(systemPrompt, input string) string {
	return strings.ReplaceAll(systemPrompt, "{{input}}", input)
}

// withFallback runs fn; on error, if edge names a fallback node, that node
// is executed instead and its output returned, otherwise the error
// propagates (spec §4.8, "all handlers wrap each edge invocation...").
func withFallback(ctx context.Context, g *Graph, edge Edge, input string, responses *[]string, fn func() (string, error)) (string, error) {
	out, err := fn()
	if err == nil {
		return out, nil
	}
	if edge.Config.FallbackNode == "" {
		return "", err
	}
	return g.ExecuteNode(ctx, edge.Config.FallbackNode, input, responses)
}

// shouldStop evaluates a loop/revision edge's stop condition, treating an
// unset condition as "never stop".
func shouldStop(ctx context.Context, cond func(ctx context.Context, response string) (bool, error), response string) (bool, error) {
	if cond == nil {
		return false, nil
	}
	return cond(ctx, response)
}

func joinNonEmpty(parts []string, sep string) string {
	filtered := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			filtered = append(filtered, p)
		}
	}
	return strings.Join(filtered, sep)
}
