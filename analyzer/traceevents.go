package analyzer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ZephyrDeng/trace-analyzer-mcp/tracefile"
)

// EventPhase is the "ph" field of the Trace Event Format.
type EventPhase string

const (
	EventPhaseComplete = EventPhase("X")
	EventPhaseMetadata = EventPhase("M")
)

// TraceEvent is a single Trace Event Format entry, as consumed by Perfetto
// and chrome://tracing. Times are in microseconds.
type TraceEvent struct {
	Name     string         `json:"name"`
	Category string         `json:"cat,omitempty"`
	Phase    EventPhase     `json:"ph"`
	Time     float64        `json:"ts"`
	Duration float64        `json:"dur,omitempty"`
	PID      int            `json:"pid"`
	TID      int            `json:"tid"`
	Args     map[string]any `json:"args,omitempty"`
}

// TraceEventDocument is the JSON object form of a Trace Event Format file.
type TraceEventDocument struct {
	TraceEvents     []TraceEvent `json:"traceEvents"`
	DisplayTimeUnit string       `json:"displayTimeUnit"`
}

// ToTraceEvents lays every function on its own thread track, mirroring the
// Gantt chart rows, with one complete event per record.
func ToTraceEvents(records []tracefile.Record) *TraceEventDocument {
	functions := tracefile.Functions(records)
	doc := &TraceEventDocument{
		TraceEvents:     make([]TraceEvent, 0, len(functions)+len(records)),
		DisplayTimeUnit: "ms",
	}
	tidOf := make(map[string]int, len(functions))
	for i, fn := range functions {
		tid := i + 1
		tidOf[fn] = tid
		doc.TraceEvents = append(doc.TraceEvents, TraceEvent{
			Name:  "thread_name",
			Phase: EventPhaseMetadata,
			PID:   1,
			TID:   tid,
			Args:  map[string]any{"name": fn},
		})
	}
	for _, r := range records {
		doc.TraceEvents = append(doc.TraceEvents, TraceEvent{
			Name:     r.Function,
			Category: "trace",
			Phase:    EventPhaseComplete,
			Time:     float64(r.StartNs) / 1e3,
			Duration: (float64(r.EndNs) - float64(r.StartNs)) / 1e3,
			PID:      1,
			TID:      tidOf[r.Function],
		})
	}
	return doc
}

// WriteTraceEvents encodes records as an indented Trace Event Format document.
func WriteTraceEvents(w io.Writer, records []tracefile.Record) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(ToTraceEvents(records)); err != nil {
		return fmt.Errorf("failed to encode trace events: %w", err)
	}
	return nil
}
