package tasks

import (
	"context"

	"github.com/flowforge/agentflow/llm"
	"github.com/flowforge/agentflow/workflow"
)

// NewWriterTask builds a task that drafts prose from research notes
// carried in the incoming input's Payload["notes"] (a string, or a
// []string joined with blank lines), guided by the input's Text as the
// writing brief.
func NewWriterTask(name string, deps Deps) workflow.Task {
	return workflow.Task{
		Name: name,
		Execute: func(ctx context.Context, p *workflow.ParamBundle) (workflow.Outcome, error) {
			in := asInput(p.Data)
			notes := notesFromPayload(in.Payload)

			messages := []llm.Message{
				{Role: llm.RoleSystem, Content: "You are a writer. Produce clear, well-structured prose from the research notes provided. Do not include meta-commentary about the task."},
			}
			if notes != "" {
				messages = append(messages, llm.Message{Role: llm.RoleUser, Content: "Research notes:\n" + notes})
			}
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: in.Text})

			text, err := deps.Generator.Generate(ctx, llm.Params{
				Messages:    messages,
				Temperature: temp(0.7),
				OnChunk: func(chunk, fullText string) {
					p.Events.Emit(name+".chunk", chunk)
				},
			})
			if err != nil {
				return workflow.Outcome{}, &workflow.EngineError{
					Message: "writer generation failed",
					Code:    "WRITER_FAILED",
					TaskID:  name,
					Cause:   err,
				}
			}

			return workflow.Result(text), nil
		},
	}
}

func notesFromPayload(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	switch v := payload["notes"].(type) {
	case string:
		return v
	case []string:
		out := ""
		for i, s := range v {
			if i > 0 {
				out += "\n\n"
			}
			out += s
		}
		return out
	default:
		return ""
	}
}
