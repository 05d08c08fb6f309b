package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// NDJSONWriter serializes each Event as one JSON object per line. Safe for
// concurrent use by multiple in-flight flows.
type NDJSONWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{w: w}
}

// Write implements the flowexec.ProgressFunc signature.
func (n *NDJSONWriter) Write(_ context.Context, e Event) error {
	line, err := marshalEvent(e)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err = n.w.Write(append(line, '\n'))
	return err
}

func marshalEvent(e Event) ([]byte, error) {
	switch v := e.(type) {
	case FlowStart:
		return json.Marshal(struct {
			Event     string `json:"event"`
			FlowName  string `json:"flowName"`
			StepTotal int    `json:"stepTotal"`
		}{"flow:start", v.FlowName, v.StepTotal})
	case StepStart:
		return json.Marshal(struct {
			Event     string `json:"event"`
			FlowName  string `json:"flowName"`
			StepIndex int    `json:"stepIndex"`
		}{"step:start", v.FlowName, v.StepIndex})
	case StepComplete:
		return json.Marshal(struct {
			Event      string `json:"event"`
			FlowName   string `json:"flowName"`
			StepIndex  int    `json:"stepIndex"`
			Status     string `json:"status"`
			DurationMs int64  `json:"duration"`
		}{"step:complete", v.FlowName, v.StepIndex, v.Status, v.DurationMs})
	case FlowComplete:
		return json.Marshal(struct {
			Event      string `json:"event"`
			FlowName   string `json:"flowName"`
			Status     string `json:"status"`
			DurationMs int64  `json:"duration"`
		}{"flow:complete", v.FlowName, v.Status, v.DurationMs})
	default:
		return nil, fmt.Errorf("progress: unhandled event type %T", e)
	}
}

// HumanWriter renders events as short human-readable lines. Step starts are
// not printed; flow starts and all completions are.
type HumanWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewHumanWriter(w io.Writer) *HumanWriter {
	return &HumanWriter{w: w}
}

func (h *HumanWriter) Write(_ context.Context, e Event) error {
	var line string
	switch v := e.(type) {
	case FlowStart:
		line = fmt.Sprintf("=== %s (%d steps) ===\n", v.FlowName, v.StepTotal)
	case StepComplete:
		line = fmt.Sprintf("  [%d] %s (%dms)\n", v.StepIndex, v.Status, v.DurationMs)
	case FlowComplete:
		line = fmt.Sprintf("=== %s: %s (%dms) ===\n", v.FlowName, v.Status, v.DurationMs)
	default:
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line)
	return err
}
