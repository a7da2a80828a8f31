package scheduling

import (
	"context"

	"github.com/gestionale-app/commesse-backend/pkg/logger"
)

// RowErrorCode identifies a validation error category
type RowErrorCode string

const (
	// ErrCodeResponsibleMissing means the row has no assigned operator
	ErrCodeResponsibleMissing RowErrorCode = "responsible_missing"

	// ErrCodeDateOrder means start is not strictly before end
	ErrCodeDateOrder RowErrorCode = "invalid_date_order"

	// ErrCodeResponsibleBusy means the operator has a committed activity in the timespan
	ErrCodeResponsibleBusy RowErrorCode = "responsible_busy"

	// ErrCodeAvailabilityUnknown means the committed activities could not be fetched
	ErrCodeAvailabilityUnknown RowErrorCode = "availability_unknown"

	// ErrCodeLocalConflict means the row overlaps another draft row for the same operator
	ErrCodeLocalConflict RowErrorCode = "local_conflict"
)

// RowError is a single validation error on a draft row
type RowError struct {
	Field   string       `json:"field,omitempty"`
	Code    RowErrorCode `json:"code"`
	Message string       `json:"message"`
}

// RowResult collects all errors of a single draft row
type RowResult struct {
	Index  int        `json:"index"`
	Errors []RowError `json:"errors"`
}

func (r *RowResult) addError(field string, code RowErrorCode, message string) {
	r.Errors = append(r.Errors, RowError{Field: field, Code: code, Message: message})
}

// Result is the outcome of validating a full draft row list
type Result struct {
	Rows  []RowResult `json:"rows"`
	Valid bool        `json:"valid"`
}

// Validator combines the field, date order, availability and local conflict
// checks into one per row error set
type Validator struct {
	Availability *AvailabilityChecker
	Logger       logger.Interface
}

// NewValidator constructs a Validator
func NewValidator(availability *AvailabilityChecker, log logger.Interface) *Validator {
	return &Validator{
		Availability: availability,
		Logger:       log,
	}
}

// ValidateRows runs every check on every row. excludeOrderID names the order the
// rows belong to while it is being edited, so its own committed activities don't
// count as conflicts. The aggregate Valid flag is true only when no row carries
// any error.
func (v *Validator) ValidateRows(ctx context.Context, rows []CandidateRow, excludeOrderID string) Result {
	result := Result{
		Rows:  make([]RowResult, len(rows)),
		Valid: true,
	}

	for i, row := range rows {
		rowResult := &result.Rows[i]
		rowResult.Index = i

		hasResponsible := row.Responsible != ""
		if !hasResponsible {
			rowResult.addError("responsible", ErrCodeResponsibleMissing, "A responsible operator is required")
		}

		hasDates := !row.Date.Start.IsZero() && !row.Date.End.IsZero()
		if hasDates && !row.Date.IsStartBeforeEnd() {
			// Zero length activities are rejected as well
			rowResult.addError("date", ErrCodeDateOrder, "The start date has to be before the end date")
		}

		if hasResponsible && hasDates {
			exclusion := Exclusion{OrderID: excludeOrderID, ActivityID: row.ActivityID}
			available, err := v.Availability.CheckAvailability(ctx, row.Responsible, row.Date, exclusion)
			if err != nil {
				v.Logger.Error("availability check failed, treating the operator as busy", err)
				rowResult.addError("responsible", ErrCodeAvailabilityUnknown, "Availability could not be verified")
			} else if !available {
				rowResult.addError("responsible", ErrCodeResponsibleBusy, "The responsible operator is already busy in this timespan")
			}
		}
	}

	for i, marked := range MarkLocalConflicts(rows) {
		if marked {
			result.Rows[i].addError("date", ErrCodeLocalConflict, "Conflicts with another row for the same operator")
		}
	}

	for i := range result.Rows {
		if len(result.Rows[i].Errors) > 0 {
			result.Valid = false
		}
	}

	return result
}
