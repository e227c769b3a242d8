package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"aivideodub/internal/config"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "queue.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the backing database file.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// NewURL enqueues a remote video for download and dubbing.
func (s *Store) NewURL(ctx context.Context, sourceURL string) (*Item, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return nil, errors.New("enqueue url: empty source")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (source_url, status, created_at, updated_at)
         VALUES (?, ?, ?, ?)`,
		sourceURL,
		StatusPending,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert url item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// NewFile enqueues a local video file that skips the download stage.
func (s *Store) NewFile(ctx context.Context, sourcePath string) (*Item, error) {
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return nil, errors.New("enqueue file: empty path")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	title := inferTitleFromPath(sourcePath)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (title, status, video_file, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		title,
		StatusDownloaded,
		sourcePath,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert file item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

const itemColumns = `id, title, source_url, status, video_file, audio_file,
    total_duration, transcript, translated_text, silence_json, dubbed_audio,
    final_file, error_message, progress_stage, progress_percent,
    progress_message, created_at, updated_at`

// GetByID fetches a single queue item.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return item, nil
}

// Update persists every mutable field of the item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("update: nil item")
	}
	if !item.Status.IsValid() {
		return fmt.Errorf("update: invalid status %q", item.Status)
	}
	item.UpdatedAt = time.Now().UTC()

	_, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET
            title = ?, source_url = ?, status = ?, video_file = ?, audio_file = ?,
            total_duration = ?, transcript = ?, translated_text = ?, silence_json = ?,
            dubbed_audio = ?, final_file = ?, error_message = ?, progress_stage = ?,
            progress_percent = ?, progress_message = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(item.Title),
		nullableString(item.SourceURL),
		string(item.Status),
		nullableString(item.VideoFile),
		nullableString(item.AudioFile),
		item.TotalDuration,
		nullableString(item.Transcript),
		nullableString(item.TranslatedText),
		nullableString(item.SilenceJSON),
		nullableString(item.DubbedAudio),
		nullableString(item.FinalFile),
		nullableString(item.ErrorMessage),
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item %d: %w", item.ID, err)
	}
	return nil
}

// UpdateProgress persists only the progress tracking fields.
func (s *Store) UpdateProgress(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("update progress: nil item")
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		time.Now().UTC().Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update progress %d: %w", item.ID, err)
	}
	return nil
}

// NextForStatuses returns the oldest item whose status matches any of the
// provided statuses, or nil when none match.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = string(status)
	}
	query := `SELECT ` + itemColumns + ` FROM queue_items WHERE status IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY id ASC LIMIT 1`

	row := s.db.QueryRowContext(ensureContext(ctx), query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next item: %w", err)
	}
	return item, nil
}

// List returns all queue items ordered by insertion.
func (s *Store) List(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+itemColumns+` FROM queue_items ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Clear removes every item, or only those matching the provided statuses.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if len(statuses) == 0 {
		res, err = s.execWithRetry(ctx, `DELETE FROM queue_items`)
	} else {
		placeholders := make([]string, len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args[i] = string(status)
		}
		res, err = s.execWithRetry(ctx,
			`DELETE FROM queue_items WHERE status IN (`+strings.Join(placeholders, ",")+`)`, args...)
	}
	if err != nil {
		return 0, fmt.Errorf("clear items: %w", err)
	}
	return res.RowsAffected()
}

// Retry moves a failed or review item back to the start of its interrupted
// stage by rolling it to the last durable status.
func (s *Store) Retry(ctx context.Context, id int64) (*Item, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("retry: item %d not found", id)
	}
	if item.Status != StatusFailed && item.Status != StatusReview {
		return nil, fmt.Errorf("retry: item %d has status %q, expected failed or review", id, item.Status)
	}

	item.Status = rollbackStatusFor(item)
	item.ErrorMessage = ""
	item.InitProgress("", "")
	if err := s.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ResetStuckProcessing rolls any in-flight processing statuses back to their
// durable predecessors. Called on startup to recover from unclean shutdown.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	var total int64
	for _, transition := range stageRollbackTransitions {
		res, err := s.execWithRetry(ctx,
			`UPDATE queue_items SET status = ?, updated_at = ? WHERE status = ?`,
			string(transition.to),
			time.Now().UTC().Format(time.RFC3339Nano),
			string(transition.from),
		)
		if err != nil {
			return total, fmt.Errorf("reset %s items: %w", transition.from, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += affected
	}
	return total, nil
}

// Health summarizes queue item counts for status output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("queue health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan health row: %w", err)
		}
		summary.Total += count
		switch st := Status(status); {
		case st == StatusPending:
			summary.Pending += count
		case st.IsProcessing():
			summary.Processing += count
		case st == StatusFailed:
			summary.Failed += count
		case st == StatusReview:
			summary.Review += count
		case st == StatusCompleted:
			summary.Completed += count
		}
	}
	return summary, rows.Err()
}

// rollbackStatusFor chooses the durable status a failed item should resume from,
// based on which artifacts it already carries.
func rollbackStatusFor(item *Item) Status {
	switch {
	case strings.TrimSpace(item.DubbedAudio) != "":
		return StatusSynthesized
	case strings.TrimSpace(item.TranslatedText) != "":
		return StatusTranslated
	case strings.TrimSpace(item.Transcript) != "":
		return StatusTranscribed
	case strings.TrimSpace(item.VideoFile) != "":
		return StatusDownloaded
	default:
		return StatusPending
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item      Item
		title     sql.NullString
		sourceURL sql.NullString
		status    string
		video     sql.NullString
		audio     sql.NullString
		trans     sql.NullString
		translate sql.NullString
		silence   sql.NullString
		dubbed    sql.NullString
		final     sql.NullString
		errMsg    sql.NullString
		progStage sql.NullString
		progMsg   sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(
		&item.ID, &title, &sourceURL, &status, &video, &audio,
		&item.TotalDuration, &trans, &translate, &silence, &dubbed,
		&final, &errMsg, &progStage, &item.ProgressPercent,
		&progMsg, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Title = title.String
	item.SourceURL = sourceURL.String
	item.Status = Status(status)
	item.VideoFile = video.String
	item.AudioFile = audio.String
	item.Transcript = trans.String
	item.TranslatedText = translate.String
	item.SilenceJSON = silence.String
	item.DubbedAudio = dubbed.String
	item.FinalFile = final.String
	item.ErrorMessage = errMsg.String
	item.ProgressStage = progStage.String
	item.ProgressMessage = progMsg.String
	item.CreatedAt = parseTimestamp(createdAt)
	item.UpdatedAt = parseTimestamp(updatedAt)
	return &item, nil
}

func parseTimestamp(value string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	return time.Time{}
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func inferTitleFromPath(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}
