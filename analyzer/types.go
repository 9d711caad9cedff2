package analyzer

// Output formats accepted by the Analyze* functions.
const (
	FormatText           = "text"
	FormatMarkdown       = "markdown"
	FormatJSON           = "json"
	FormatFlameGraphJSON = "flamegraph-json"
)

// --- JSON result types ---

// ErrorResult carries an error inside a JSON-formatted result.
type ErrorResult struct {
	Error string `json:"error"`
	TopN  int    `json:"topN,omitempty"`
}

// FunctionStat is the per-function execution summary (JSON).
type FunctionStat struct {
	FunctionName   string  `json:"functionName"`
	Calls          int     `json:"calls"`
	TotalMs        float64 `json:"totalMs"`
	TotalFormatted string  `json:"totalFormatted"`
	MeanMs         float64 `json:"meanMs"`
	MinMs          float64 `json:"minMs"`
	MaxMs          float64 `json:"maxMs"`
	Percentage     float64 `json:"percentage"` // share of the summed durations
}

// SummaryResult is the overall trace summary (JSON).
type SummaryResult struct {
	TotalRecords   int            `json:"totalRecords"`
	TotalFunctions int            `json:"totalFunctions"`
	SpanMs         float64        `json:"spanMs"`
	TotalMs        float64        `json:"totalMs"`
	TopN           int            `json:"topN"`
	Functions      []FunctionStat `json:"functions"`
}

// IntervalStats summarises the intervals between consecutive starts.
type IntervalStats struct {
	Count  int     `json:"count"`
	MinMs  float64 `json:"minMs"`
	MaxMs  float64 `json:"maxMs"`
	MeanMs float64 `json:"meanMs"`
	StdDev float64 `json:"stdDevMs"`
	P50Ms  float64 `json:"p50Ms"`
	P95Ms  float64 `json:"p95Ms"`
}

// HistogramResult is the interval histogram analysis (JSON).
type HistogramResult struct {
	Function   string        `json:"function"`
	Executions int           `json:"executions"`
	Stats      IntervalStats `json:"stats"`
	Bins       []Bin         `json:"bins"`
}

// FlameGraphNode is one node of a flame graph (JSON), in the hierarchical
// shape d3-flame-graph and similar libraries consume.
type FlameGraphNode struct {
	Name     string            `json:"name"`
	Value    int64             `json:"value"` // node plus descendants
	Children []*FlameGraphNode `json:"children,omitempty"`
}

// --- internal ---

// functionStat accumulates durations for one function.
type functionStat struct {
	Name    string
	Calls   int
	TotalNs int64
	MinNs   int64
	MaxNs   int64
}
