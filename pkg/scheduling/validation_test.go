package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/date"
	"github.com/gestionale-app/commesse-backend/pkg/logger"
)

func hasErrorCode(result RowResult, code RowErrorCode) bool {
	for _, rowError := range result.Errors {
		if rowError.Code == code {
			return true
		}
	}
	return false
}

func testValidator(source ActivitySource) *Validator {
	checker := NewAvailabilityChecker(source, nil, logger.Logger{})
	return NewValidator(checker, logger.Logger{})
}

func TestValidator_ValidateRowsRequiredAndDateOrder(t *testing.T) {
	validator := testValidator(&activitySourceMock{})

	rows := []CandidateRow{
		{
			Name: "Taglio",
			Date: date.Timespan{Start: timeDate(2024, 1, 1, 10, 0, 0), End: timeDate(2024, 1, 1, 11, 0, 0)},
		},
		{
			Name:        "Montaggio",
			Responsible: "op-1",
			Date:        date.Timespan{Start: timeDate(2024, 1, 1, 10, 0, 0), End: timeDate(2024, 1, 1, 10, 0, 0)},
		},
		{
			Name:        "Verniciatura",
			Responsible: "op-1",
			Date:        date.Timespan{Start: timeDate(2024, 1, 1, 12, 0, 0), End: timeDate(2024, 1, 1, 11, 0, 0)},
		},
	}

	result := validator.ValidateRows(context.Background(), rows, "")

	if result.Valid {
		t.Errorf("result should not be valid")
	}

	if !hasErrorCode(result.Rows[0], ErrCodeResponsibleMissing) {
		t.Errorf("row 0 should carry a missing responsible error, got %v", result.Rows[0].Errors)
	}

	// Equal start and end is rejected as well
	if !hasErrorCode(result.Rows[1], ErrCodeDateOrder) {
		t.Errorf("row 1 should carry a date order error, got %v", result.Rows[1].Errors)
	}

	if !hasErrorCode(result.Rows[2], ErrCodeDateOrder) {
		t.Errorf("row 2 should carry a date order error, got %v", result.Rows[2].Errors)
	}
}

func TestValidator_ValidateRowsRemoteAvailability(t *testing.T) {
	source := &activitySourceMock{
		busyByOperator: map[string][]date.Timespan{
			"op-x": {
				{Start: timeDate(2024, 6, 1, 10, 0, 0), End: timeDate(2024, 6, 1, 12, 0, 0)},
			},
		},
	}
	validator := testValidator(source)

	overlapping := []CandidateRow{
		{
			Name:        "Sopralluogo",
			Responsible: "op-x",
			Date:        date.Timespan{Start: timeDate(2024, 6, 1, 11, 0, 0), End: timeDate(2024, 6, 1, 13, 0, 0)},
		},
	}

	result := validator.ValidateRows(context.Background(), overlapping, "")
	if result.Valid {
		t.Errorf("overlapping candidate should fail the availability check")
	}
	if !hasErrorCode(result.Rows[0], ErrCodeResponsibleBusy) {
		t.Errorf("row should carry a responsible busy error, got %v", result.Rows[0].Errors)
	}

	shifted := []CandidateRow{
		{
			Name:        "Sopralluogo",
			Responsible: "op-x",
			Date:        date.Timespan{Start: timeDate(2024, 6, 1, 12, 0, 0), End: timeDate(2024, 6, 1, 13, 0, 0)},
		},
	}

	result = validator.ValidateRows(context.Background(), shifted, "")
	if !result.Valid {
		t.Errorf("candidate touching the committed boundary should pass, got %v", result.Rows[0].Errors)
	}
}

func TestValidator_ValidateRowsFetchFailure(t *testing.T) {
	validator := testValidator(&activitySourceMock{err: errors.New("storage unreachable")})

	rows := []CandidateRow{
		{
			Name:        "Consegna",
			Responsible: "op-x",
			Date:        date.Timespan{Start: timeDate(2024, 6, 1, 10, 0, 0), End: timeDate(2024, 6, 1, 11, 0, 0)},
		},
	}

	result := validator.ValidateRows(context.Background(), rows, "")

	if result.Valid {
		t.Errorf("a fetch failure has to fail closed")
	}
	if !hasErrorCode(result.Rows[0], ErrCodeAvailabilityUnknown) {
		t.Errorf("row should carry an availability unknown error, got %v", result.Rows[0].Errors)
	}
}

func TestValidator_ValidateRowsLocalConflicts(t *testing.T) {
	validator := testValidator(&activitySourceMock{})

	rows := []CandidateRow{
		{Name: "A", Responsible: "op-y", Date: date.Timespan{Start: timeDate(2024, 1, 1, 9, 0, 0), End: timeDate(2024, 1, 1, 10, 0, 0)}},
		{Name: "B", Responsible: "op-y", Date: date.Timespan{Start: timeDate(2024, 1, 1, 9, 30, 0), End: timeDate(2024, 1, 1, 10, 30, 0)}},
		{Name: "C", Responsible: "op-z", Date: date.Timespan{Start: timeDate(2024, 1, 1, 9, 0, 0), End: timeDate(2024, 1, 1, 10, 0, 0)}},
	}

	result := validator.ValidateRows(context.Background(), rows, "")

	if result.Valid {
		t.Errorf("conflicting rows should invalidate the result")
	}

	if !hasErrorCode(result.Rows[0], ErrCodeLocalConflict) || !hasErrorCode(result.Rows[1], ErrCodeLocalConflict) {
		t.Errorf("both rows of a conflicting pair have to be marked")
	}

	if len(result.Rows[2].Errors) != 0 {
		t.Errorf("row for a different operator has to stay clean, got %v", result.Rows[2].Errors)
	}
}

func TestSession_ValidateDiscardsStaleRuns(t *testing.T) {
	slowSource := &slowActivitySourceMock{delay: 50 * time.Millisecond}
	validator := testValidator(slowSource)
	session := NewSession(validator)
	defer session.Close()

	rows := []CandidateRow{
		{Name: "A", Responsible: "op-x", Date: date.Timespan{Start: timeDate(2024, 1, 1, 9, 0, 0), End: timeDate(2024, 1, 1, 10, 0, 0)}},
	}

	first := session.Validate(context.Background(), rows, "")
	second := session.Validate(context.Background(), rows, "")

	if _, ok := <-first; ok {
		t.Errorf("superseded run should be discarded")
	}

	if _, ok := <-second; !ok {
		t.Errorf("latest run should deliver a result")
	}
}

type slowActivitySourceMock struct {
	delay time.Duration
}

func (m *slowActivitySourceMock) FindBusyTimespans(ctx context.Context, _ string, _ Exclusion) ([]date.Timespan, error) {
	select {
	case <-time.After(m.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, nil
}
