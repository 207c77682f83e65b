package cmd

import "fmt"

// TargetSelectionError reports a scan invoked without exactly one target.
type TargetSelectionError struct {
	Org    string
	Folder string
}

func (e *TargetSelectionError) Error() string {
	if e.Org != "" && e.Folder != "" {
		return fmt.Sprintf("--org %s and --folder %s are mutually exclusive", e.Org, e.Folder)
	}
	return "one of --org or --folder is required"
}

// RunNameError rejects report names that cannot be used as a file name.
type RunNameError struct {
	Name   string
	Reason string
}

func (e *RunNameError) Error() string {
	return fmt.Sprintf("run name %q %s", e.Name, e.Reason)
}
