package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ConsoleOutput formats logs for human readability.
type ConsoleOutput struct {
	mu     sync.Mutex
	writer io.Writer
	color  bool // Whether to use ANSI color codes
}

type ConsoleOutputOption func(*ConsoleOutput)

func WithColor(enabled bool) ConsoleOutputOption {
	return func(c *ConsoleOutput) {
		c.color = enabled
	}
}

func NewConsoleOutput(useStderr bool, opts ...ConsoleOutputOption) *ConsoleOutput {
	writer := os.Stdout
	if useStderr {
		writer = os.Stderr
	}

	c := &ConsoleOutput{
		writer: writer,
		color:  true, // Enable colors by default
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Helper function to get ANSI color codes for different severity levels.
func getSeverityColor(s Severity) string {
	switch s {
	case DEBUG:
		return "\033[37m" // Gray
	case INFO:
		return "\033[32m" // Green
	case WARN:
		return "\033[33m" // Yellow
	case ERROR:
		return "\033[31m" // Red
	default:
		return ""
	}
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	var result string
	for k, v := range fields {
		// Truncate long text like prompts and solutions for console display
		str := fmt.Sprintf("%v", v)
		if len(str) > 100 {
			result += fmt.Sprintf("%s=%q ", k, str[:97]+"...")
		} else {
			result += fmt.Sprintf("%s=%v ", k, v)
		}
	}

	return result
}

func (o *ConsoleOutput) Write(e LogEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	timestamp := time.Unix(0, e.Time).Format("2006-01-02 15:04:05.000")

	var levelColor, resetColor string
	if o.color {
		levelColor = getSeverityColor(e.Severity)
		resetColor = "\033[0m"
	}

	basic := fmt.Sprintf("%s %s%-5s%s [%s:%d] %s",
		timestamp,
		levelColor,
		e.Severity,
		resetColor,
		e.File,
		e.Line,
		e.Message,
	)

	if e.ChainID != "" {
		basic += fmt.Sprintf(" [chain=%s]", e.ChainID)
	}
	if e.Cycle >= 0 {
		basic += fmt.Sprintf(" [cycle=%d]", e.Cycle)
	}
	if len(e.Fields) > 0 {
		basic += " " + formatFields(e.Fields)
	}

	_, err := fmt.Fprintln(o.writer, basic)

	return err
}

func (o *ConsoleOutput) Sync() error {
	if syncer, ok := o.writer.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

// Close cleans up any resources.
func (o *ConsoleOutput) Close() error {
	if closer, ok := o.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// FileOutput appends log entries to a file, one line per entry.
type FileOutput struct {
	mu   sync.Mutex
	file *os.File
}

func NewFileOutput(path string) (*FileOutput, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileOutput{file: f}, nil
}

func (f *FileOutput) Write(e LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	timestamp := time.Unix(0, e.Time).Format(time.RFC3339Nano)
	line := fmt.Sprintf("%s %-5s [%s:%d] %s", timestamp, e.Severity, e.File, e.Line, e.Message)
	if e.ChainID != "" {
		line += fmt.Sprintf(" chain=%s", e.ChainID)
	}
	if e.Cycle >= 0 {
		line += fmt.Sprintf(" cycle=%d", e.Cycle)
	}
	if len(e.Fields) > 0 {
		line += " " + formatFields(e.Fields)
	}

	_, err := fmt.Fprintln(f.file, line)
	return err
}

func (f *FileOutput) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Sync()
}

func (f *FileOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
