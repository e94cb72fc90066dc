package launch

import "fmt"

// NoEntryPointError reports a root where neither a manifest nor a
// conventional file name produced an entry document.
type NoEntryPointError struct {
	Root string
}

func (e *NoEntryPointError) Error() string {
	return fmt.Sprintf("no SCORM entry point found under %q", e.Root)
}
