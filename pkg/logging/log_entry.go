package logging

// LogEntry represents a structured log record with fields particularly
// relevant to the thinking loop.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Thinking-specific fields
	ChainID string // The thinking chain this entry belongs to
	Cycle   int    // Control-loop cycle at time of logging (-1 if unknown)
	Tokens  int    // Cumulative tokens used at time of logging

	// General structured data
	Fields map[string]interface{}
}
