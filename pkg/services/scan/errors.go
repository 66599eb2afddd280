package scan

import (
	"fmt"
	"strings"
)

// PartialScanError reports that one or more feeds could not be fetched.
// The builder refuses to assemble a snapshot with missing sections, so a
// failed scan never supersedes the previously stored snapshot.
type PartialScanError struct {
	// Failed lists the feed names that could not be fetched.
	Failed []string
	// Causes holds the underlying fetch errors, index-aligned with Failed.
	Causes []error
}

func (e *PartialScanError) Error() string {
	return fmt.Sprintf("scan incomplete: failed feeds: %s", strings.Join(e.Failed, ", "))
}

func (e *PartialScanError) Unwrap() []error {
	return e.Causes
}
