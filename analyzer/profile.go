package analyzer

import (
	"fmt"
	"io"

	"github.com/google/pprof/profile"

	"github.com/ZephyrDeng/trace-analyzer-mcp/tracefile"
)

// Sample value indexes of profiles built by ToProfile.
const (
	callsValueIndex = 0
	wallValueIndex  = 1
)

// ToProfile converts trace records into a pprof profile so the pprof
// tooling (top, flame graphs, web UI) can be used on a flat trace. Each record
// becomes one sample whose single frame is the traced function; the values
// are one call and the wall time in nanoseconds.
func ToProfile(records []tracefile.Record) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "calls", Unit: "count"},
			{Type: "wall", Unit: "nanoseconds"},
		},
		PeriodType:        &profile.ValueType{Type: "wall", Unit: "nanoseconds"},
		Period:            1,
		DefaultSampleType: "wall",
	}

	locations := make(map[string]*profile.Location)
	for _, r := range records {
		loc, ok := locations[r.Function]
		if !ok {
			fn := &profile.Function{
				ID:         uint64(len(p.Function) + 1),
				Name:       r.Function,
				SystemName: r.Function,
			}
			p.Function = append(p.Function, fn)
			loc = &profile.Location{
				ID:   uint64(len(p.Location) + 1),
				Line: []profile.Line{{Function: fn}},
			}
			p.Location = append(p.Location, loc)
			locations[r.Function] = loc
		}
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{1, r.EndNs - r.StartNs},
		})
	}

	if lo, hi, ok := timeRange(records); ok {
		p.TimeNanos = lo
		p.DurationNanos = hi - lo
	}
	return p
}

// WriteProfile writes records as a gzipped pprof protobuf.
func WriteProfile(w io.Writer, records []tracefile.Record) error {
	p := ToProfile(records)
	if err := p.CheckValid(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	if err := p.Write(w); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
