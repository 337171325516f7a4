package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"StockBot/internal/models"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run or item does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DBRepository is a thin layer over the run history database.
type DBRepository struct {
	DB  *sql.DB
	now func() time.Time
}

// InitDB opens (or creates) the history database at filepath and makes sure the tables exist.
func InitDB(filepath string) (*DBRepository, error) {
	dsn := filepath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	createRunsTableSQL := `
	CREATE TABLE IF NOT EXISTS runs (
		"id" TEXT NOT NULL PRIMARY KEY,
		"started_at" TEXT NOT NULL,
		"finished_at" TEXT,
		"sender" TEXT,
		"receiver" TEXT,
		"refresh_seconds" INTEGER,
		"url_count" INTEGER,
		"completed" BOOLEAN DEFAULT 0
	);`
	if _, err = db.Exec(createRunsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	createItemsTableSQL := `
	CREATE TABLE IF NOT EXISTS items (
		"id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"run_id" TEXT NOT NULL REFERENCES runs(id),
		"url" TEXT NOT NULL,
		"status" TEXT NOT NULL,
		"http_status" INTEGER DEFAULT 0,
		"title" TEXT DEFAULT '',
		"price" REAL DEFAULT 0,
		"attempts" INTEGER DEFAULT 0,
		"last_error" TEXT DEFAULT '',
		"updated_at" TEXT NOT NULL,
		"added_at" TEXT,
		UNIQUE(run_id, url)
	);`
	if _, err = db.Exec(createItemsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create items table: %w", err)
	}

	createNotificationsTableSQL := `
	CREATE TABLE IF NOT EXISTS notifications (
		"id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"run_id" TEXT NOT NULL REFERENCES runs(id),
		"url" TEXT NOT NULL,
		"delivered" BOOLEAN DEFAULT 0,
		"error" TEXT DEFAULT '',
		"sent_at" TEXT NOT NULL
	);`
	if _, err = db.Exec(createNotificationsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create notifications table: %w", err)
	}

	log.Println("History database and tables initialized successfully.")
	return &DBRepository{DB: db, now: time.Now}, nil
}

// Close closes the database connection.
func (repo *DBRepository) Close() {
	repo.DB.Close()
}

func (repo *DBRepository) timestamp() string {
	return repo.now().UTC().Format(timeLayout)
}

// StartRun inserts a new run and returns it with a fresh ID.
func (repo *DBRepository) StartRun(sender, receiver string, refreshSeconds, urlCount int) (*models.Run, error) {
	run := &models.Run{
		ID:             uuid.NewString(),
		StartedAt:      repo.now().UTC(),
		Sender:         sender,
		Receiver:       receiver,
		RefreshSeconds: refreshSeconds,
		URLCount:       urlCount,
	}

	_, err := repo.DB.Exec(
		`INSERT INTO runs (id, started_at, sender, receiver, refresh_seconds, url_count) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(timeLayout), run.Sender, run.Receiver, run.RefreshSeconds, run.URLCount,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the end of a run. completed is true when every item was added.
func (repo *DBRepository) FinishRun(id string, completed bool) error {
	res, err := repo.DB.Exec(`UPDATE runs SET finished_at = ?, completed = ? WHERE id = ?`, repo.timestamp(), completed, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, sender, receiver, refresh_seconds, url_count, completed`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (models.Run, error) {
	var (
		r          models.Run
		startedAt  string
		finishedAt sql.NullString
	)
	if err := row.Scan(&r.ID, &startedAt, &finishedAt, &r.Sender, &r.Receiver, &r.RefreshSeconds, &r.URLCount, &r.CompletedNormal); err != nil {
		return r, err
	}
	r.StartedAt, _ = time.Parse(timeLayout, startedAt)
	r.FinishedAt = parseNullTime(finishedAt)
	return r, nil
}

// GetRun returns one run by ID.
func (repo *DBRepository) GetRun(id string) (*models.Run, error) {
	r, err := scanRun(repo.DB.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &r, nil
}

// GetRecentRuns returns up to limit runs, newest first.
func (repo *DBRepository) GetRecentRuns(limit int) ([]models.Run, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := repo.DB.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []models.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			log.Printf("Error scanning run row: %v", err)
			continue
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func itemConditions(filters models.ItemFilters) (string, []any) {
	var args []any
	var conditions []string

	if filters.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, filters.RunID)
	}
	if filters.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filters.Status))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// GetItems retrieves history items matching filters, most recently updated first.
func (repo *DBRepository) GetItems(filters models.ItemFilters) ([]models.Item, error) {
	where, args := itemConditions(filters)
	query := `SELECT id, run_id, url, status, http_status, title, price, attempts, last_error, updated_at, added_at
	          FROM items` + where + ` ORDER BY updated_at DESC, id DESC`
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
		if filters.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filters.Offset)
		}
	}

	rows, err := repo.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute items query: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var (
			it        models.Item
			status    string
			updatedAt string
			addedAt   sql.NullString
		)
		if err := rows.Scan(
			&it.ID, &it.RunID, &it.URL, &status, &it.HTTPStatus, &it.Title, &it.Price,
			&it.Attempts, &it.LastError, &updatedAt, &addedAt,
		); err != nil {
			log.Printf("Error scanning item row: %v", err)
			continue
		}
		it.Status = models.ItemStatus(status)
		it.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		it.AddedAt = parseNullTime(addedAt)
		items = append(items, it)
	}
	return items, rows.Err()
}

// CountItems counts history items matching filters. Limit and Offset are ignored.
func (repo *DBRepository) CountItems(filters models.ItemFilters) (int, error) {
	where, args := itemConditions(filters)
	var count int
	if err := repo.DB.QueryRow(`SELECT COUNT(*) FROM items`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// GetNotifications returns every notification attempt of a run in insertion order.
func (repo *DBRepository) GetNotifications(runID string) ([]models.Notification, error) {
	rows, err := repo.DB.Query(`SELECT id, run_id, url, delivered, error, sent_at FROM notifications WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var (
			n      models.Notification
			sentAt string
		)
		if err := rows.Scan(&n.ID, &n.RunID, &n.URL, &n.Delivered, &n.Error, &sentAt); err != nil {
			log.Printf("Error scanning notification row: %v", err)
			continue
		}
		n.SentAt, _ = time.Parse(timeLayout, sentAt)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
