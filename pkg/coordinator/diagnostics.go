package coordinator

import "fmt"

// Diagnostics mirrors the shape used across pkg/scte35, pkg/hlsrewrite, and
// pkg/decision: warnings never change control flow, errors mean the
// coordinator fell back to a safer path (never a fatal response).
type Diagnostics struct {
	Errors   []string
	Warnings []string
}

func (d Diagnostics) OK() bool { return len(d.Errors) == 0 }

func (d *Diagnostics) addError(format string, args ...any) {
	d.Errors = append(d.Errors, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) addWarning(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
}
