package sse

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flowforge/agentflow/workflow"
)

// terminalChannels maps the workflow engine's own terminal event channels
// (workflow/engine.go) onto the "done" frame status spec §6/§7 describe.
var terminalChannels = map[string]string{
	"workflowComplete": "COMPLETED",
	"workflowError":    "ERROR",
	"workflowAborted":  "ABORTED",
}

// Handler streams one workflow.EventBus's traffic to SSE clients. A single
// Handler can serve many connections; each subscribes independently via
// bus.OnAll and receives events from the moment it connects; events that
// arrive while a client's 256-frame buffer is full are dropped for that
// client.
type Handler struct {
	bus     *workflow.EventBus
	credits CreditsFunc
}

// NewHandler builds a Handler over bus. credits may be nil, in which case
// no credit headers are sent.
func NewHandler(bus *workflow.EventBus, credits CreditsFunc) *Handler {
	return &Handler{bus: bus, credits: credits}
}

// Stream returns a gin.HandlerFunc that upgrades the request to an SSE
// stream keyed by the "threadId" query parameter (generated if absent) and
// forwards bus events as Frames until the client disconnects or a terminal
// event closes the thread. Events emitted while the buffer is full are
// dropped.
func (h *Handler) Stream() gin.HandlerFunc {
	return func(c *gin.Context) {
		threadID := c.Query("threadId")
		if threadID == "" {
			threadID = uuid.NewString()
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		if h.credits != nil {
			setCreditHeaders(c.Writer.Header(), h.credits())
		}

		// Buffered so a burst of synchronous Emit calls from the engine's
		// goroutine (spec §4.2: delivery is synchronous, listeners must not
		// block) never stalls the workflow on a slow client.
		frames := make(chan Frame, 256)
		unsubscribe := h.bus.OnAll(func(channel string, payload any) {
			select {
			case frames <- translate(threadID, channel, payload):
			default:
			}
		})
		defer unsubscribe()

		c.Stream(func(w io.Writer) bool {
			select {
			case f := <-frames:
				c.SSEvent(f.Type, f)
				return f.Type != "done"
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}

// translate converts one bus emission into a Frame. Identifying fields
// (taskName, node) are lifted out of the payload generically via its JSON
// encoding, since event payload types are private to the workflow and
// agentgraph packages and carry no common interface.
func translate(threadID, channel string, payload any) Frame {
	if status, ok := terminalChannels[channel]; ok {
		return doneFrame(threadID, status, payload)
	}

	f := Frame{Type: channel, ThreadID: threadID, Payload: payload}

	raw, err := json.Marshal(payload)
	if err != nil {
		return f
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return f
	}
	if v, ok := fields["taskName"].(string); ok {
		f.ThreadItemID = v
	} else if v, ok := fields["node"].(string); ok {
		f.ThreadItemID = v
	}
	if v, ok := fields["status"].(string); ok {
		f.Status = v
	}
	return f
}
