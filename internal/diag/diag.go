// Package diag defines the error taxonomy and diagnostic reporting shared
// by every pipeline phase (loader, template engine, graph builder,
// synthesizer, emitters, plugin host).
package diag

import (
	"fmt"
	"strings"
)

// Severity classifies a Diagnostic. Warnings never abort a phase; errors do.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

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

// Span locates a diagnostic in a source file.
type Span struct {
	File string
	Line int
	Col  int
}

func (s Span) String() string {
	if s.File == "" {
		return ""
	}
	if s.Line == 0 {
		return s.File
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Diagnostic is a single reportable problem, carrying enough context for a
// front end to render it without re-deriving anything.
type Diagnostic struct {
	Severity Severity
	Code     string // stable string, e.g. "CIRCLECI_UNSUPPORTED"
	Message  string
	Span     Span
	Hint     string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Severity.String())
	if d.Code != "" {
		b.WriteString("[" + d.Code + "]")
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	if s := d.Span.String(); s != "" {
		b.WriteString(" (" + s + ")")
	}
	if d.Hint != "" {
		b.WriteString(" — hint: " + d.Hint)
	}
	return b.String()
}

// Bag accumulates diagnostics across a phase so independent failures are
// reported together instead of aborting on the first one.
type Bag struct {
	items []Diagnostic
}

func (b *Bag) Add(d Diagnostic) { b.items = append(b.items, d) }

func (b *Bag) Errorf(span Span, code, format string, args ...any) {
	b.Add(Diagnostic{Severity: SeverityError, Code: code, Span: span, Message: fmt.Sprintf(format, args...)})
}

func (b *Bag) Warnf(span Span, code, format string, args ...any) {
	b.Add(Diagnostic{Severity: SeverityWarning, Code: code, Span: span, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any accumulated diagnostic is an error.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Items returns the accumulated diagnostics in insertion order.
func (b *Bag) Items() []Diagnostic { return b.items }

// Err returns a single joined error for the accumulated error-severity
// diagnostics, or nil if there are none. Warnings are omitted — callers
// that want to surface them should inspect Items directly.
func (b *Bag) Err() error {
	if !b.HasErrors() {
		return nil
	}
	var msgs []string
	for _, d := range b.items {
		if d.Severity == SeverityError {
			msgs = append(msgs, d.String())
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// The taxonomy below mirrors the propagation policy: each phase raises one
// of these at its boundary, carrying the accumulated Bag when relevant.

// ConfigError covers YAML parse failures, schema violations, duplicate
// identifiers, unknown top-level keys, and conflicting fragments.
type ConfigError struct {
	Span    Span
	Message string
}

func (e *ConfigError) Error() string {
	if s := e.Span.String(); s != "" {
		return fmt.Sprintf("config error at %s: %s", s, e.Message)
	}
	return "config error: " + e.Message
}

// TemplateError covers undefined variables, recursion overflow, and filter
// failures inside the template engine.
type TemplateError struct {
	Span    Span
	Message string
}

func (e *TemplateError) Error() string {
	if s := e.Span.String(); s != "" {
		return fmt.Sprintf("template error at %s: %s", s, e.Message)
	}
	return "template error: " + e.Message
}

// ReferenceError covers an unknown cache, service, command, job, or runtime
// reference. Collected during validation and reported together.
type ReferenceError struct {
	Span    Span
	Kind    string // "cache", "service", "command", "job", "runtime"
	Name    string
	Message string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("unknown %s %q: %s (%s)", e.Kind, e.Name, e.Message, e.Span)
}

// GraphError covers cycles, cross-stage edges, and impossible OR sets.
type GraphError struct {
	Span    Span
	Message string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph error: %s (%s)", e.Message, e.Span)
}

// HashError covers source-file group cycles and unreadable files.
type HashError struct {
	Message string
}

func (e *HashError) Error() string { return "hash error: " + e.Message }

// ProviderError is raised by an emitter when it rejects a construct as
// unsupported. Carries a diagnostic level, a stable code, and an optional
// fix hint; warnings never abort.
type ProviderError struct {
	Diagnostic Diagnostic
}

func (e *ProviderError) Error() string { return e.Diagnostic.String() }

// PluginError covers spawn failure, handshake mismatch, protocol
// violation, timeout, and crash. Fatal for the offending provider only.
type PluginError struct {
	Provider string
	Message  string
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin error (%s): %s", e.Provider, e.Message)
}

// IOError covers file write failures during emission.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("io error writing %s: %v", e.Path, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }
