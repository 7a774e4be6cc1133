// Package agentgraph implements the higher-level node/edge traversal layer
// described for multi-step agent conversations: a registry of LLM-backed
// nodes wired together by pattern-specific edges (sequential, parallel,
// condition, map, reduce, loop, revision), driven off the same event bus
// and cancellation discipline as the workflow engine.
package agentgraph

// Node encapsulates a prompt template and an LLM invocation policy. A node
// is a data record, not pluggable behavior — the graph interprets it
// uniformly via processAgentMessage.
type Node struct {
	Name string
	Role string

	// Model names the LLM to invoke, passed through to the generator
	// unchanged. Empty means "use the generator's default".
	Model string

	// SystemPrompt seeds the conversation; it may reference "{{input}}"
	// which is substituted with the node's current input before the call.
	SystemPrompt string

	// Temperature is a pointer so "unset" (use the generator's default)
	// is distinguishable from an explicit zero.
	Temperature *float64

	// ToolSteps bounds how many tool-call round-trips a single node
	// invocation may take before it must return text. Zero means no
	// tool use is attempted even if Tools is non-empty.
	ToolSteps int

	// Tools lists the tool names (resolved against a tool.Registry) this
	// node is allowed to invoke.
	Tools []string

	// EnableReasoning, when true, runs an auxiliary reasoning call before
	// the main invocation and attaches its trace to the node's state.
	EnableReasoning bool

	// IsStep marks a node as an intermediate step whose output feeds
	// another node rather than being a graph terminus; callers may use
	// it to decide whether to surface the node's output directly.
	IsStep bool
}

// NodeStatus is the lifecycle of a single node execution, surfaced to UI
// subscribers via the graph's event bus.
type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusReasoning NodeStatus = "reasoning"
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusFailed    NodeStatus = "failed"
)

// NodeState is one entry in the graph's executionState.nodeStates
// sequence: an append-only log of what each node saw and produced.
type NodeState struct {
	ID        string
	Name      string
	Input     string
	Output    string
	Reasoning string
	Status    NodeStatus

	// ToolCalls records every tool round-trip the node's invocation made,
	// in order. Empty when the node declared no tools or never used one.
	ToolCalls []ToolInvocation

	// Cost is the estimated token usage and USD cost of this node's LLM
	// calls, populated only when the generator reports usage.
	Cost *NodeCost
}
