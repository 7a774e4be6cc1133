package agentgraph

import (
	"context"
	"sort"
	"sync"
)

// patternHandler processes every outgoing edge from one node that shares a
// single pattern, given the source node's response, and returns the final
// response string that propagates outward (spec §4.8).
type patternHandler func(ctx context.Context, g *Graph, edges []Edge, sourceResponse string, responses *[]string) (string, error)

// handleSequential runs destinations in ascending config.Priority order,
// each seeing the same source response.
func handleSequential(ctx context.Context, g *Graph, edges []Edge, sourceResponse string, responses *[]string) (string, error) {
	ordered := make([]Edge, len(edges))
	copy(ordered, edges)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Config.Priority < ordered[j].Config.Priority
	})

	for _, edge := range ordered {
		if _, err := withFallback(ctx, g, edge, sourceResponse, responses, func() (string, error) {
			return g.ExecuteNode(ctx, edge.To, sourceResponse, responses)
		}); err != nil {
			return "", err
		}
	}
	return sourceResponse, nil
}

// handleParallel runs every destination concurrently with the same source
// response.
func handleParallel(ctx context.Context, g *Graph, edges []Edge, sourceResponse string, responses *[]string) (string, error) {
	var wg sync.WaitGroup
	errs := make([]error, len(edges))

	for i, edge := range edges {
		wg.Add(1)
		go func(i int, edge Edge) {
			defer wg.Done()
			_, err := withFallback(ctx, g, edge, sourceResponse, responses, func() (string, error) {
				return g.ExecuteNode(ctx, edge.To, sourceResponse, responses)
			})
			errs[i] = err
		}(i, edge)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return "", err
		}
	}
	return sourceResponse, nil
}

// handleCondition runs each edge's destination only when its predicate
// evaluates true against the source response.
func handleCondition(ctx context.Context, g *Graph, edges []Edge, sourceResponse string, responses *[]string) (string, error) {
	for _, edge := range edges {
		if edge.Config.Condition == nil {
			continue
		}
		ok, err := edge.Config.Condition(ctx, ConditionArgs{Response: sourceResponse, Nodes: g.nodes})
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		if _, err := withFallback(ctx, g, edge, sourceResponse, responses, func() (string, error) {
			return g.ExecuteNode(ctx, edge.To, sourceResponse, responses)
		}); err != nil {
			return "", err
		}
	}
	return sourceResponse, nil
}

// handleMap splits the source response into elements, invokes the
// destination once per element concurrently, and combines the outputs.
// There is one map edge per destination by construction, but the pattern
// table groups by pattern, so edges may legitimately contain more than one
// destination; each is handled independently.
func handleMap(ctx context.Context, g *Graph, edges []Edge, sourceResponse string, responses *[]string) (string, error) {
	var lastResult string
	for _, edge := range edges {
		elements := []string{sourceResponse}
		if edge.Config.InputTransform != nil {
			elements = edge.Config.InputTransform(sourceResponse)
		}

		outputs := make([]string, len(elements))
		errs := make([]error, len(elements))
		var wg sync.WaitGroup
		for i, el := range elements {
			wg.Add(1)
			go func(i int, el string) {
				defer wg.Done()
				out, err := withFallback(ctx, g, edge, el, responses, func() (string, error) {
					return g.ExecuteNode(ctx, edge.To, el, responses)
				})
				outputs[i] = out
				errs[i] = err
			}(i, el)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return "", err
			}
		}

		combined := edge.Config.OutputTransform
		var combinedOut string
		if combined != nil {
			combinedOut = combined(outputs)
		} else {
			combinedOut = joinNonEmpty(outputs, "\n")
		}
		g.state.setResult(edge.To, combinedOut)
		lastResult = combinedOut
	}
	return lastResult, nil
}

// handleReduce gathers every predecessor of the destination and combines
// their recorded results into one input for a single destination run.
//
// Whether in-flight (not-yet-completed) predecessors should be waited for
// is left unspecified; this implementation reads whatever results are
// already recorded at the moment the reduce edge fires rather than
// blocking, matching the synchronous, single-threaded-per-branch
// scheduling model elsewhere in this engine.
func handleReduce(ctx context.Context, g *Graph, edges []Edge, sourceResponse string, responses *[]string) (string, error) {
	var lastResult string
	for _, edge := range edges {
		predecessors := g.GetInputNodes(edge.To)
		outputs := make([]string, 0, len(predecessors))
		for _, pred := range predecessors {
			if r, ok := g.state.Result(pred.From); ok {
				outputs = append(outputs, r)
			}
		}

		var combined string
		if edge.Config.OutputTransform != nil {
			combined = edge.Config.OutputTransform(outputs)
		} else {
			combined = joinNonEmpty(outputs, "\n")
		}

		out, err := withFallback(ctx, g, edge, combined, responses, func() (string, error) {
			return g.ExecuteNode(ctx, edge.To, combined, responses)
		})
		if err != nil {
			return "", err
		}
		lastResult = out
	}
	return lastResult, nil
}

// handleLoop bounces between a from/to pair up to config.MaxIterations
// times, then marks both endpoints completed and returns the combined
// per-iteration output. config.StopCondition is evaluated against each
// "to" output before the matching "from" run fires, so a stop on the
// final permitted iteration skips only that iteration's "from" run
// rather than rerunning both endpoints once more. An edge configured
// with MaxIterations=0 runs neither endpoint: the source response passes
// through unchanged. A "from" run made inside the loop does not re-enter
// the same loop edge when its own edges are traversed.
func handleLoop(ctx context.Context, g *Graph, edges []Edge, sourceResponse string, responses *[]string) (string, error) {
	type loopEdgeKey struct{ from, to string }
	var lastResult string
	for _, edge := range edges {
		maxIter := edge.Config.MaxIterations
		if maxIter <= 0 {
			lastResult = sourceResponse
			continue
		}
		key := loopEdgeKey{edge.From, edge.To}
		if ctx.Value(key) != nil {
			lastResult = sourceResponse
			continue
		}
		loopCtx := context.WithValue(ctx, key, true)

		current := sourceResponse
		var outputs []string
		for i := 0; i < maxIter; i++ {
			toOut, err := withFallback(loopCtx, g, edge, current, responses, func() (string, error) {
				return g.ExecuteNode(loopCtx, edge.To, current, responses)
			})
			if err != nil {
				return "", err
			}
			outputs = append(outputs, toOut)
			current = toOut

			stop, err := shouldStop(ctx, edge.Config.StopCondition, toOut)
			if err != nil {
				return "", err
			}
			if stop {
				break
			}

			fromOut, err := withFallback(loopCtx, g, edge, toOut, responses, func() (string, error) {
				return g.ExecuteNode(loopCtx, edge.From, toOut, responses)
			})
			if err != nil {
				return "", err
			}
			outputs = append(outputs, fromOut)
			current = fromOut
		}

		g.state.markCompleted(edge.From)
		g.state.markCompleted(edge.To)

		if edge.Config.OutputTransform != nil {
			lastResult = edge.Config.OutputTransform(outputs)
		} else {
			lastResult = joinNonEmpty(outputs, "\n\n")
		}
	}
	return lastResult, nil
}

// handleRevision repeatedly re-runs a single destination against a
// revision prompt built from its previous output, halting on
// config.StopCondition or after config.MaxIterations rounds.
func handleRevision(ctx context.Context, g *Graph, edges []Edge, sourceResponse string, responses *[]string) (string, error) {
	var lastResult string
	for _, edge := range edges {
		maxIter := edge.Config.MaxIterations
		if maxIter <= 0 {
			maxIter = 1
		}

		current := sourceResponse
		for i := 0; i < maxIter; i++ {
			input := current
			if edge.Config.RevisionPrompt != nil {
				input = edge.Config.RevisionPrompt(RevisionArgs{Response: current, Nodes: g.nodes})
			}

			out, err := withFallback(ctx, g, edge, input, responses, func() (string, error) {
				return g.ExecuteNode(ctx, edge.To, input, responses)
			})
			if err != nil {
				return "", err
			}
			current = out

			stop, err := shouldStop(ctx, edge.Config.StopCondition, out)
			if err != nil {
				return "", err
			}
			if stop {
				break
			}
		}
		lastResult = current
	}
	return lastResult, nil
}
