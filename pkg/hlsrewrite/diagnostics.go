package hlsrewrite

import "fmt"

// Diagnostics accumulates non-fatal warnings and fatal errors for a rewrite
// attempt. A non-empty Errors slice means the rewrite MUST fall back to
// pass-through; Warnings never change control flow.
type Diagnostics struct {
	Errors   []string
	Warnings []string
}

// OK reports whether no errors were recorded.
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
