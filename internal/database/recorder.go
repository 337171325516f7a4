package database

import (
	"fmt"
	"time"

	"StockBot/internal/models"
)

// RunRecorder writes item outcomes of a single run.
type RunRecorder struct {
	repo  *DBRepository
	runID string
}

// Recorder binds the repository to runID.
func (repo *DBRepository) Recorder(runID string) *RunRecorder {
	return &RunRecorder{repo: repo, runID: runID}
}

func (r *RunRecorder) RunID() string { return r.runID }

// ItemOpened stores the outcome of the initial navigation.
func (r *RunRecorder) ItemOpened(url string, httpStatus int, monitored bool, openErr error) error {
	status := models.StatusSkipped
	if monitored {
		status = models.StatusPending
	}

	query := `
	INSERT INTO items (run_id, url, status, http_status, last_error, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		status=excluded.status,
		http_status=excluded.http_status,
		last_error=excluded.last_error,
		updated_at=excluded.updated_at;
	`
	_, err := r.repo.DB.Exec(query, r.runID, url, string(status), httpStatus, errText(openErr), r.repo.timestamp())
	if err != nil {
		return fmt.Errorf("record opened item %s: %w", url, err)
	}
	return nil
}

// AttemptFailed counts a click that did not go through.
func (r *RunRecorder) AttemptFailed(url string, attemptErr error) error {
	_, err := r.repo.DB.Exec(
		`UPDATE items SET attempts = attempts + 1, last_error = ?, updated_at = ? WHERE run_id = ? AND url = ?`,
		errText(attemptErr), r.repo.timestamp(), r.runID, url,
	)
	if err != nil {
		return fmt.Errorf("record failed attempt %s: %w", url, err)
	}
	return nil
}

// ItemAdded marks the item added and keeps the product details read from the page.
func (r *RunRecorder) ItemAdded(url string, details models.ProductDetails, addedAt time.Time) error {
	res, err := r.repo.DB.Exec(`
		UPDATE items SET
			status = ?, title = ?, price = ?, attempts = attempts + 1,
			last_error = '', added_at = ?, updated_at = ?
		WHERE run_id = ? AND url = ?`,
		string(models.StatusAdded), details.Title, details.Price,
		addedAt.UTC().Format(timeLayout), r.repo.timestamp(), r.runID, url,
	)
	if err != nil {
		return fmt.Errorf("record added item %s: %w", url, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record added item %s: %w", url, ErrNotFound)
	}
	return nil
}

// NotificationResult stores one delivery attempt. A nil err means it was delivered.
func (r *RunRecorder) NotificationResult(url string, notifyErr error) error {
	_, err := r.repo.DB.Exec(
		`INSERT INTO notifications (run_id, url, delivered, error, sent_at) VALUES (?, ?, ?, ?, ?)`,
		r.runID, url, notifyErr == nil, errText(notifyErr), r.repo.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("record notification %s: %w", url, err)
	}
	return nil
}
