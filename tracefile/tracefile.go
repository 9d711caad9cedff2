// Package tracefile reads flat execution traces: one record per line made of
// a function name, a start timestamp and an end timestamp, both in
// nanoseconds.
package tracefile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const nanosPerMilli = 1_000_000

// Record is one traced function execution.
type Record struct {
	Function string
	StartNs  int64
	EndNs    int64
}

// StartMs returns the start timestamp in milliseconds.
func (r Record) StartMs() float64 {
	return float64(r.StartNs) / nanosPerMilli
}

// EndMs returns the end timestamp in milliseconds.
func (r Record) EndMs() float64 {
	return float64(r.EndNs) / nanosPerMilli
}

// DurationMs returns end minus start in milliseconds. It is negative when the
// trace has end before start; no validation is done. The subtraction is done
// in float64 so timestamps far apart cannot overflow.
func (r Record) DurationMs() float64 {
	return (float64(r.EndNs) - float64(r.StartNs)) / nanosPerMilli
}

// ParseError reports a timestamp field that is not a base-10 integer.
type ParseError struct {
	Line  int    // 1-based line number
	Field string // "start" or "end"
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: invalid %s timestamp %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Read parses trace records from r.
//
// Lines that do not split into exactly three whitespace-separated tokens are
// skipped silently. If maxLines is positive, reading stops after that many raw
// lines, skipped ones included.
func Read(r io.Reader, maxLines int) ([]Record, error) {
	br := bufio.NewReader(r)

	var records []Record
	lineNo := 0
	skipped := 0
	for maxLines <= 0 || lineNo < maxLines {
		// ReadString grows as needed, so lines of any length are accepted.
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read trace: %w", err)
		}
		if line == "" && err == io.EOF {
			break
		}
		lineNo++

		fields := strings.Fields(line)
		if len(fields) != 3 {
			skipped++
		} else {
			start, perr := strconv.ParseInt(fields[1], 10, 64)
			if perr != nil {
				return nil, &ParseError{Line: lineNo, Field: "start", Value: fields[1], Err: perr}
			}
			end, perr := strconv.ParseInt(fields[2], 10, 64)
			if perr != nil {
				return nil, &ParseError{Line: lineNo, Field: "end", Value: fields[2], Err: perr}
			}
			records = append(records, Record{Function: fields[0], StartNs: start, EndNs: end})
		}
		if err == io.EOF {
			break
		}
	}

	logrus.WithFields(logrus.Fields{
		"lines":   lineNo,
		"records": len(records),
		"skipped": skipped,
	}).Debug("Parsed trace")
	return records, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string, maxLines int) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer f.Close()

	records, err := Read(f, maxLines)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trace file %s: %w", path, err)
	}
	return records, nil
}

// Functions returns the distinct function names of records in the order
// they first appear.
func Functions(records []Record) []string {
	seen := make(map[string]struct{}, len(records))
	var names []string
	for _, r := range records {
		if _, ok := seen[r.Function]; ok {
			continue
		}
		seen[r.Function] = struct{}{}
		names = append(names, r.Function)
	}
	return names
}
