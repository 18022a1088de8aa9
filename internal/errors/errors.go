package errors

import (
	"fmt"
	"sync"
)

// Diagnostic is a non-fatal note about the markup, such as an annotation
// left open at the end of a line.
type Diagnostic struct {
	Code     string
	Line     int
	Column   int
	Message  string
	Severity Severity
}

// Severity represents the severity of a diagnostic
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Error implements the error interface
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Column, d.Severity, d.Message)
}

// Collector gathers diagnostics produced while scanning one document.
type Collector struct {
	diagnostics []Diagnostic
	mutex       sync.RWMutex
}

// NewCollector creates a new diagnostic collector
func NewCollector() *Collector {
	return &Collector{
		diagnostics: make([]Diagnostic, 0),
	}
}

// Add adds a diagnostic to the collector
func (c *Collector) Add(d Diagnostic) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.diagnostics = append(c.diagnostics, d)
}

// AddError records a recoverable TxtofError as a warning diagnostic.
func (c *Collector) AddError(err *TxtofError) {
	if err == nil {
		return
	}
	c.Add(Diagnostic{
		Code:     err.Code,
		Line:     err.Line,
		Column:   err.Column,
		Message:  err.Message,
		Severity: SeverityWarning,
	})
}

// Diagnostics returns a copy of the collected diagnostics in insertion order
func (c *Collector) Diagnostics() []Diagnostic {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]Diagnostic, len(c.diagnostics))
	copy(result, c.diagnostics)
	return result
}

// HasDiagnostics returns true if anything was collected
func (c *Collector) HasDiagnostics() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.diagnostics) > 0
}

// Count returns the number of collected diagnostics
func (c *Collector) Count() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.diagnostics)
}

// Clear clears all diagnostics
func (c *Collector) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.diagnostics = c.diagnostics[:0]
}

// ByLine returns diagnostics reported on the given 1-based line
func (c *Collector) ByLine(line int) []Diagnostic {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	var out []Diagnostic
	for _, d := range c.diagnostics {
		if d.Line == line {
			out = append(out, d)
		}
	}
	return out
}
