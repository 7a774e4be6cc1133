package agentgraph

import "context"

// Pattern names one of the seven control-flow strategies an edge can carry.
type Pattern string

const (
	PatternSequential Pattern = "sequential"
	PatternParallel   Pattern = "parallel"
	PatternCondition  Pattern = "condition"
	PatternMap        Pattern = "map"
	PatternReduce     Pattern = "reduce"
	PatternLoop       Pattern = "loop"
	PatternRevision   Pattern = "revision"
)

// ConditionArgs is passed to a condition edge's predicate.
type ConditionArgs struct {
	Response string
	Nodes    map[string]Node
}

// RevisionArgs is passed to a revision edge's prompt builder.
type RevisionArgs struct {
	Response string
	Nodes    map[string]Node
}

// EdgeConfig carries the pattern-specific knobs from spec §4.8. Only the
// fields relevant to an edge's Pattern are consulted; the rest are zero.
type EdgeConfig struct {
	// Priority orders sequential edges ascending.
	Priority int

	// Condition gates a condition edge; the destination runs only when
	// it returns true.
	Condition func(ctx context.Context, args ConditionArgs) (bool, error)

	// FallbackNode is where withFallback routes on error, if set.
	FallbackNode string

	// InputTransform splits a map edge's source response into elements,
	// one destination invocation per element. Defaults to treating the
	// whole response as a single element.
	InputTransform func(response string) []string

	// OutputTransform combines a map/reduce/loop edge's per-invocation
	// outputs into one string. Defaults to newline-joining (map/reduce)
	// or double-newline-joining (loop).
	OutputTransform func(outputs []string) string

	// MaxIterations bounds loop and revision edges.
	MaxIterations int

	// StopCondition halts a loop or revision edge early when it returns
	// true for the current response.
	StopCondition func(ctx context.Context, response string) (bool, error)

	// RevisionPrompt builds the prompt each revision iteration uses, given
	// the previous output.
	RevisionPrompt func(args RevisionArgs) string
}

// Edge connects two nodes under a named pattern with pattern-specific
// configuration.
type Edge struct {
	From    string
	To      string
	Pattern Pattern
	Config  EdgeConfig
}
