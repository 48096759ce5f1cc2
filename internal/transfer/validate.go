package transfer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/papapumpkin/rulecover/internal/pattern"
)

// Sentinel errors for document validation.
var (
	// ErrMissingField indicates a required attribute is empty.
	ErrMissingField = errors.New("required field missing")
	// ErrUnknownCategory indicates a pattern item names an undeclared category.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrEmptyPattern indicates a rule without pattern items.
	ErrEmptyPattern = errors.New("empty pattern")
	// ErrShadowedRule indicates a rule replaced by a later rule with the same pattern.
	ErrShadowedRule = errors.New("rule shadowed by a later identical pattern")
)

// ValidationCategory classifies a validation problem for programmatic handling.
type ValidationCategory string

const (
	// ValCatMissingField indicates a required attribute is empty.
	ValCatMissingField ValidationCategory = "missing_field"
	// ValCatUnknownCategory indicates a pattern item names an undeclared category.
	ValCatUnknownCategory ValidationCategory = "unknown_category"
	// ValCatEmptyPattern indicates a rule matches zero words.
	ValCatEmptyPattern ValidationCategory = "empty_pattern"
	// ValCatShadowed indicates a rule can never be reached.
	ValCatShadowed ValidationCategory = "shadowed"
)

// Severity tells whether a problem prevents a meaningful run.
type Severity string

const (
	// SeverityError marks a document defect.
	SeverityError Severity = "error"
	// SeverityWarning marks a suspicious but loadable construct.
	SeverityWarning Severity = "warning"
)

// ValidationError records a validation problem with its location.
type ValidationError struct {
	Category ValidationCategory
	Severity Severity
	// RuleID is the rule's declaration index, or -1 for category problems.
	RuleID int
	Field  string
	Err    error
}

// Error returns a human-readable description including the rule index.
func (e *ValidationError) Error() string {
	if e.RuleID >= 0 {
		return fmt.Sprintf("rule %d: %s", e.RuleID, e.Err)
	}
	return e.Field + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks a document for problems that make coverage misleading:
// unnamed categories, patterns referring to undeclared categories, empty
// patterns and rules shadowed by a later identical pattern. Shadowed and empty
// patterns are warnings; the automaton keeps the last declaration.
func Validate(doc *Document) []ValidationError {
	var errs []ValidationError

	declared := make(map[string]bool)
	for i, c := range doc.Categories {
		if c.Name == "" {
			errs = append(errs, ValidationError{
				Category: ValCatMissingField,
				Severity: SeverityError,
				RuleID:   -1,
				Field:    fmt.Sprintf("def-cat[%d]", i),
				Err:      fmt.Errorf("%w: n", ErrMissingField),
			})
			continue
		}
		declared[c.Name] = true
	}

	for id, r := range doc.Rules {
		if len(r.Pattern) == 0 {
			errs = append(errs, ValidationError{
				Category: ValCatEmptyPattern,
				Severity: SeverityWarning,
				RuleID:   id,
				Field:    "pattern",
				Err:      ErrEmptyPattern,
			})
		}
		for _, item := range r.Pattern {
			if !declared[item] {
				errs = append(errs, ValidationError{
					Category: ValCatUnknownCategory,
					Severity: SeverityError,
					RuleID:   id,
					Field:    "pattern-item",
					Err:      fmt.Errorf("%w: %q", ErrUnknownCategory, item),
				})
			}
		}
	}

	for _, s := range pattern.Build(doc.PatternRules()).Shadowed() {
		errs = append(errs, ValidationError{
			Category: ValCatShadowed,
			Severity: SeverityWarning,
			RuleID:   s.RuleID,
			Field:    "pattern",
			Err: fmt.Errorf("%w: rule %d also matches %q",
				ErrShadowedRule, s.ReplacedBy, strings.Join(s.Categories, " ")),
		})
	}
	return errs
}

// HasErrors reports whether any problem has SeverityError.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}
