// Package diagnostics carries the two error classes the bundler
// distinguishes: user-facing build diagnostics, which accumulate and are
// reported together, and invariant breaches, which are programmer errors
// and terminate the build. A bundler that emits wrong code is worse than
// one that aborts.
package diagnostics

import (
	"fmt"
	"sync"
	"time"
)

// Phase identifies the build phase an error belongs to.
type Phase string

const (
	PhaseConfig   Phase = "config"
	PhaseScan     Phase = "scan"
	PhaseLink     Phase = "link"
	PhaseGenerate Phase = "generate"
	PhaseWrite    Phase = "write"
)

// BuildError is a user-facing build diagnostic.
type BuildError struct {
	Phase      Phase
	FilePath   string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewBuildError creates a build error for the given phase and operation.
func NewBuildError(phase Phase, op string, err error) *BuildError {
	return &BuildError{
		Phase:      phase,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithFile adds the source file the error arose in.
func (e *BuildError) WithFile(path string) *BuildError {
	e.FilePath = path
	return e
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.Phase, e.Operation, e.FilePath, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Phase, e.Operation, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *BuildError) Unwrap() error {
	return e.Underlying
}

// ResolveError reports an import specifier that could not be resolved.
type ResolveError struct {
	Importer  string
	Specifier string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("could not resolve %q from %s", e.Specifier, e.Importer)
}

// MissingExportError reports a named import with no matching export.
// Suggestion, when non-empty, is the closest existing export name.
type MissingExportError struct {
	Importer   string
	Exporter   string
	Name       string
	Suggestion string
}

func (e *MissingExportError) Error() string {
	msg := fmt.Sprintf("%s does not export %q (imported by %s)", e.Exporter, e.Name, e.Importer)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" — did you mean %q?", e.Suggestion)
	}
	return msg
}

// Diagnostics collects warnings and errors across a build. Safe for
// concurrent use; the scan stage adds from parallel workers.
type Diagnostics struct {
	mu       sync.Mutex
	errors   []error
	warnings []error
}

// New creates an empty collector.
func New() *Diagnostics {
	return &Diagnostics{}
}

// AddError records a build-failing diagnostic.
func (d *Diagnostics) AddError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, err)
}

// AddWarning records a non-fatal diagnostic.
func (d *Diagnostics) AddWarning(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.warnings = append(d.warnings, err)
}

// HasErrors reports whether any build-failing diagnostic was recorded.
func (d *Diagnostics) HasErrors() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.errors) > 0
}

// Errors returns the recorded errors.
func (d *Diagnostics) Errors() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]error, len(d.errors))
	copy(out, d.errors)
	return out
}

// Warnings returns the recorded warnings.
func (d *Diagnostics) Warnings() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]error, len(d.warnings))
	copy(out, d.warnings)
	return out
}

// Invariantf reports a broken internal invariant. These are programmer
// errors: the process state is wrong, not the user's input, so the build
// dies rather than emit a silently-wrong bundle.
func Invariantf(format string, args ...any) {
	panic(fmt.Sprintf("invariant violation: "+format, args...))
}
