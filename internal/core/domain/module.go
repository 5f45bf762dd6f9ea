package domain

// ModuleEntry is a snapshot of one served module in the dependency graph.
type ModuleEntry struct {
	URL              string
	Dependencies     []string
	Dependents       []string
	IsHmrAccepted    bool
	IsHmrEnabled     bool
	NeedsReplacement bool
}

// HasDependents reports whether any module imports this one.
func (e ModuleEntry) HasDependents() bool {
	return len(e.Dependents) > 0
}
