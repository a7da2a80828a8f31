package scheduling

import (
	"github.com/gestionale-app/commesse-backend/pkg/date"
)

// CandidateRow is a not yet persisted activity row in an order draft
type CandidateRow struct {
	ActivityID  string        `json:"activityId,omitempty"`
	Name        string        `json:"name"`
	Responsible string        `json:"responsible"`
	Color       string        `json:"color,omitempty"`
	InCalendar  bool          `json:"inCalendar"`
	Date        date.Timespan `json:"date"`
}

// HasLocalConflict checks two draft rows against each other. Rows without a
// responsible, or with different responsibles, can never conflict locally.
func HasLocalConflict(rowA CandidateRow, rowB CandidateRow) bool {
	if rowA.Responsible == "" || rowB.Responsible == "" {
		return false
	}

	if rowA.Responsible != rowB.Responsible {
		return false
	}

	return date.Overlaps(rowA.Date.Start, rowA.Date.End, rowB.Date.Start, rowB.Date.End)
}

// MarkLocalConflicts checks every unordered pair of rows and marks both rows of
// each conflicting pair. Quadratic, but draft lists stay small.
func MarkLocalConflicts(rows []CandidateRow) []bool {
	conflicting := make([]bool, len(rows))

	for i := 0; i < len(rows); i++ {
		for j := i + 1; j < len(rows); j++ {
			if HasLocalConflict(rows[i], rows[j]) {
				conflicting[i] = true
				conflicting[j] = true
			}
		}
	}

	return conflicting
}
