package sse

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowforge/agentflow/workflow"
)

func TestTranslate_TerminalChannelsBecomeDoneFrames(t *testing.T) {
	cases := map[string]string{
		"workflowComplete": "COMPLETED",
		"workflowError":    "ERROR",
		"workflowAborted":  "ABORTED",
	}
	for channel, wantStatus := range cases {
		f := translate("thread-1", channel, map[string]any{"workflowId": "wf-1"})
		if f.Type != "done" {
			t.Fatalf("%s: expected type done, got %q", channel, f.Type)
		}
		if f.Status != wantStatus {
			t.Fatalf("%s: expected status %q, got %q", channel, wantStatus, f.Status)
		}
		if f.ThreadID != "thread-1" {
			t.Fatalf("%s: expected threadId thread-1, got %q", channel, f.ThreadID)
		}
	}
}

func TestTranslate_LiftsTaskNameAsThreadItemID(t *testing.T) {
	f := translate("thread-1", "taskStarted", map[string]any{"taskName": "writer", "workflowId": "wf-1"})
	if f.Type != "taskStarted" {
		t.Fatalf("expected type taskStarted, got %q", f.Type)
	}
	if f.ThreadItemID != "writer" {
		t.Fatalf("expected threadItemId writer, got %q", f.ThreadItemID)
	}
}

func TestTranslate_LiftsNodeNameAsThreadItemID(t *testing.T) {
	type nodeEvent struct {
		Node   string `json:"node"`
		Status string `json:"status"`
	}
	f := translate("thread-1", "node", nodeEvent{Node: "plan", Status: "completed"})
	if f.ThreadItemID != "plan" {
		t.Fatalf("expected threadItemId plan, got %q", f.ThreadItemID)
	}
	if f.Status != "completed" {
		t.Fatalf("expected status completed, got %q", f.Status)
	}
}

func TestHandler_StreamForwardsEventsAndClosesOnDone(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bus := workflow.NewEventBus()
	h := NewHandler(bus, func() Credits { return Credits{Available: 10, Cost: 1, DailyAllowance: 100} })

	router := gin.New()
	router.GET("/stream", h.Stream())
	server := httptest.NewServer(router)
	defer server.Close()

	go func() {
		time.Sleep(100 * time.Millisecond)
		bus.Emit("taskStarted", map[string]any{"workflowId": "wf-1", "taskName": "writer"})
		bus.Emit("workflowComplete", map[string]any{"workflowId": "wf-1"})
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(server.URL + "/stream?threadId=thread-1")
	if err != nil {
		t.Fatalf("GET /stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected text/event-stream content type, got %q", ct)
	}
	if resp.Header.Get("X-Credits-Available") != "10" {
		t.Fatalf("expected X-Credits-Available=10, got %q", resp.Header.Get("X-Credits-Available"))
	}

	var events []string
	var data []map[string]any
	scanner := bufio.NewScanner(resp.Body)
	var pendingEvent string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			pendingEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var payload map[string]any
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload); err != nil {
				t.Fatalf("unmarshal SSE data: %v", err)
			}
			events = append(events, pendingEvent)
			data = append(data, payload)
			if pendingEvent == "done" {
				goto doneReading
			}
		}
	}
doneReading:

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %v", len(events), events)
	}
	if events[0] != "taskStarted" || events[1] != "done" {
		t.Fatalf("unexpected event sequence: %v", events)
	}
	if data[1]["status"] != "COMPLETED" {
		t.Fatalf("expected done frame status COMPLETED, got %v", data[1]["status"])
	}
	if data[1]["threadId"] != "thread-1" {
		t.Fatalf("expected threadId thread-1, got %v", data[1]["threadId"])
	}
}
