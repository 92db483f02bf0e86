// Package domain holds the run-scoped value types shared across
// pipeline components: the connected Monitor a compositor reports, the
// user-declared MonitorBinding, and the resolved Theme bundle.
package domain

// Monitor is a named display output discovered from the compositor.
// Identity is Name; it is never persisted beyond rotation cursor
// references.
type Monitor struct {
	Name       string
	Resolution string
}

// MonitorBinding is the user-declared binding of a monitor name to an
// output path, optional setter command, and optional template
// allowlist.
type MonitorBinding struct {
	Name      string
	Output    string
	Command   string
	Templates []string
}

// Theme is a named content bundle: an atoms subtree, a prompts
// subtree, a default template, and the short tag combined with a
// monitor's resolution to name a workflow file.
type Theme struct {
	Name            string
	AtomsRoot       string
	PromptsRoot     string
	DefaultTemplate string
	WorkflowPrefix  string
}

// WorkflowID computes the `{prefix}-{WxH}` identifier spec.md §4.5
// defines for locating a workflow document for this theme and
// monitor resolution.
func (t Theme) WorkflowID(resolution string) string {
	return t.WorkflowPrefix + "-" + resolution
}
