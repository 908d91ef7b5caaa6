// Package storage persists the session's submission history.
package storage

import "github.com/deploydesk/deploydesk/pkg/types"

// HistoryStore records deployment submissions and reads them back in
// reverse-chronological order.
type HistoryStore interface {
	// RecordSubmission appends one submission outcome.
	RecordSubmission(rec types.SubmissionRecord) error

	// ListSubmissions returns the most recent submissions, newest first.
	ListSubmissions(limit int) ([]types.SubmissionRecord, error)

	// Close releases the underlying database.
	Close() error
}
