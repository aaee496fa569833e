package filter

import (
	"fmt"
	"strings"

	"github.com/osusumeapp/osusume-server/internal/errors"
)

// Action says how a field was repaired.
type Action string

// Repair actions.
const (
	ActionDropped    Action = "dropped"
	ActionClamped    Action = "clamped"
	ActionNormalized Action = "normalized"
	ActionDefaulted  Action = "defaulted"
	ActionMoved      Action = "moved"
)

// InvalidGenreError reports a genre outside the vocabulary. The token is kept as a tag.
type InvalidGenreError struct {
	Genre string
	// Tag is the normalized tag the genre became.
	Tag string
}

func (e *InvalidGenreError) Error() string {
	return fmt.Sprintf("genre %q is not in the vocabulary; moved to tags as %q", e.Genre, e.Tag)
}

// Is lets InvalidGenreError match errors.ErrValidation.
func (e *InvalidGenreError) Is(target error) bool {
	return target == errors.ErrValidation
}

// FieldError reports a field that was dropped, clamped or rewritten.
type FieldError struct {
	Field  string
	Value  string
	Reason string
	Action Action
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s %s: %s", e.Field, e.Action, e.Reason)
	}
	return fmt.Sprintf("%s %s (%q): %s", e.Field, e.Action, e.Value, e.Reason)
}

// Is lets FieldError match errors.ErrValidation.
func (e *FieldError) Is(target error) bool {
	return target == errors.ErrValidation
}

// Report lists every repair made while validating a candidate.
type Report struct {
	Repairs []error `json:"-"`
}

// Add records a repair.
func (r *Report) Add(err error) {
	if err != nil {
		r.Repairs = append(r.Repairs, err)
	}
}

// Empty reports whether nothing was repaired.
func (r *Report) Empty() bool {
	return r == nil || len(r.Repairs) == 0
}

// Warnings renders each repair as a human-readable line.
func (r *Report) Warnings() []string {
	if r.Empty() {
		return []string{}
	}
	out := make([]string, 0, len(r.Repairs))
	for _, err := range r.Repairs {
		out = append(out, err.Error())
	}
	return out
}

// Fields returns the name of each repaired field, one entry per repair.
func (r *Report) Fields() []string {
	if r.Empty() {
		return nil
	}
	out := make([]string, 0, len(r.Repairs))
	for _, err := range r.Repairs {
		switch e := err.(type) {
		case *InvalidGenreError:
			out = append(out, "genres")
		case *FieldError:
			out = append(out, e.Field)
		default:
			out = append(out, "unknown")
		}
	}
	return out
}

// Err returns a ValidationError describing all repairs, or nil if there were none.
func (r *Report) Err() error {
	if r.Empty() {
		return nil
	}
	return errors.ValidationWithDetails(
		"request was repaired: "+strings.Join(r.Warnings(), "; "),
		r.Warnings(),
	)
}
