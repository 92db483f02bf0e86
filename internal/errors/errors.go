// Package errors defines the closed set of error kinds the pipeline can
// fail with. Each kind is a distinct type so callers can use errors.As
// to recover structured detail and cmd/root.go can map a kind to an
// exit code without string matching.
package errors

import "fmt"

// ConfigInvalid reports a structural or range violation in the
// configuration file, named by the offending key.
type ConfigInvalid struct {
	Key    string
	Reason string
}

func (e *ConfigInvalid) Error() string {
	return fmt.Sprintf("config invalid: %s: %s", e.Key, e.Reason)
}

// AtomMissing reports that a referenced atom file does not exist.
type AtomMissing struct {
	Name string
	Path string
}

func (e *AtomMissing) Error() string {
	return fmt.Sprintf("atom file missing for %q: %s", e.Name, e.Path)
}

// AtomEmpty reports that an atom file exists but yields zero candidates
// after comment and blank-line stripping.
type AtomEmpty struct {
	Name string
}

func (e *AtomEmpty) Error() string {
	return fmt.Sprintf("atom %q has no usable lines", e.Name)
}

// TemplateSyntax reports a malformed template: unbalanced variant,
// illegal section name, or a duplicate section declaration.
type TemplateSyntax struct {
	Template string
	Line     int
	Reason   string
}

func (e *TemplateSyntax) Error() string {
	return fmt.Sprintf("template %q syntax error at line %d: %s", e.Template, e.Line, e.Reason)
}

// WorkflowMissing reports that a workflow document could not be found.
// The message names the exact path tried, never alternatives.
type WorkflowMissing struct {
	ID   string
	Path string
}

func (e *WorkflowMissing) Error() string {
	return fmt.Sprintf("workflow %q not found: %s", e.ID, e.Path)
}

// PromptSectionMissing reports that a workflow demands a positive
// section the selected template did not produce.
type PromptSectionMissing struct {
	Section string
}

func (e *PromptSectionMissing) Error() string {
	return fmt.Sprintf("workflow requires prompt section %q but it was not produced", e.Section)
}

// NetworkUnreachable reports repeated failure to reach the generation
// service base URL after retries.
type NetworkUnreachable struct {
	BaseURL string
	Err     error
}

func (e *NetworkUnreachable) Error() string {
	return fmt.Sprintf("cannot reach %s: %v", e.BaseURL, e.Err)
}

func (e *NetworkUnreachable) Unwrap() error { return e.Err }

// SubmissionRejected reports that the remote service rejected the
// submitted workflow.
type SubmissionRejected struct {
	Reason string
}

func (e *SubmissionRejected) Error() string {
	return fmt.Sprintf("workflow submission rejected: %s", e.Reason)
}

// GenerationFailed reports per-node execution errors surfaced in the
// history record.
type GenerationFailed struct {
	NodeErrors map[string]string
}

func (e *GenerationFailed) Error() string {
	return fmt.Sprintf("generation failed: %d node error(s)", len(e.NodeErrors))
}

// GenerationTimeout reports that the bounded wait for completion was
// exhausted.
type GenerationTimeout struct {
	Elapsed float64
}

func (e *GenerationTimeout) Error() string {
	return fmt.Sprintf("generation timed out after %.1fs", e.Elapsed)
}

// ImageFetchFailed reports that a completion record was present but the
// referenced image could not be retrieved.
type ImageFetchFailed struct {
	Filename string
	Err      error
}

func (e *ImageFetchFailed) Error() string {
	return fmt.Sprintf("failed to fetch image %q: %v", e.Filename, e.Err)
}

func (e *ImageFetchFailed) Unwrap() error { return e.Err }

// ScheduleError reports a failed solar computation or malformed manual
// override times.
type ScheduleError struct {
	Reason string
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("schedule error: %s", e.Reason)
}

// StatePersistError reports that the rotation state could not be
// written. It is logged, never fatal to the run that produced it.
type StatePersistError struct {
	Path string
	Err  error
}

func (e *StatePersistError) Error() string {
	return fmt.Sprintf("failed to persist rotation state to %s: %v", e.Path, e.Err)
}

func (e *StatePersistError) Unwrap() error { return e.Err }

// ExitCode maps an error produced anywhere in the pipeline to the
// process exit code spec.md §6.5 assigns it. Unrecognized errors map to
// 1, the same as a configuration error, since they are almost always a
// failure surfaced before the pipeline had a chance to classify itself.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch err.(type) {
	case *ConfigInvalid:
		return 1
	case *NetworkUnreachable:
		return 2
	case *SubmissionRejected, *GenerationFailed, *ScheduleError,
		*AtomMissing, *AtomEmpty, *TemplateSyntax, *WorkflowMissing,
		*PromptSectionMissing:
		return 3
	case *GenerationTimeout:
		return 4
	case *ImageFetchFailed, *StatePersistError:
		return 5
	default:
		return 1
	}
}
