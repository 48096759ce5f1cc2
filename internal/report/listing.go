package report

import (
	"fmt"
	"io"

	"github.com/papapumpkin/rulecover/internal/pattern"
)

// WriteListing writes one block per rule: the id left-aligned in four
// columns, then the pattern and the comment on indented lines.
func WriteListing(w io.Writer, entries []pattern.Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%-4d\n  %s\n  %s\n", e.RuleID, e.Pattern(), e.Comment); err != nil {
			return fmt.Errorf("report: write listing: %w", err)
		}
	}
	return nil
}
