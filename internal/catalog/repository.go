package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/heimdex/heimdex-annotator/internal/pipeline"
)

type Repository interface {
	CreateVideo(ctx context.Context, video *Video) error
	GetVideo(ctx context.Context, id string) (*Video, error)
	GetVideoByPath(ctx context.Context, path string) (*Video, error)
	ListVideos(ctx context.Context) ([]*Video, error)
	ListUnprobedVideos(ctx context.Context) ([]*Video, error)
	DeleteVideo(ctx context.Context, id string) error
	UpdateVideoProbe(ctx context.Context, id string, probe *pipeline.ProbeResult, probeErr error) error
	CountVideos(ctx context.Context) (int, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const videoColumns = `id, path, filename, size, mtime, fingerprint, duration, width, height, codec, probed_at, probe_error, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) CreateVideo(ctx context.Context, v *Video) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO videos (id, path, filename, size, mtime, fingerprint, duration, width, height, codec, probed_at, probe_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.Path, v.Filename, v.Size, v.Mtime.Format(time.RFC3339), v.Fingerprint,
		v.Duration, v.Width, v.Height, nullString(v.Codec), nullTime(v.ProbedAt), nullString(v.ProbeError),
		v.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetVideo(ctx context.Context, id string) (*Video, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	return r.scanOne(row)
}

func (r *SQLiteRepository) GetVideoByPath(ctx context.Context, path string) (*Video, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE path = ?`, path)
	return r.scanOne(row)
}

func (r *SQLiteRepository) scanOne(row *sql.Row) (*Video, error) {
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func scanVideo(row rowScanner) (*Video, error) {
	var v Video
	var mtime, createdAt string
	var codec, probedAt, probeErr sql.NullString

	err := row.Scan(&v.ID, &v.Path, &v.Filename, &v.Size, &mtime, &v.Fingerprint,
		&v.Duration, &v.Width, &v.Height, &codec, &probedAt, &probeErr, &createdAt)
	if err != nil {
		return nil, err
	}

	v.Mtime, _ = time.Parse(time.RFC3339, mtime)
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	v.Codec = codec.String
	v.ProbeError = probeErr.String
	if probedAt.Valid {
		if t, err := time.Parse(time.RFC3339, probedAt.String); err == nil {
			v.ProbedAt = &t
		}
	}
	return &v, nil
}

func (r *SQLiteRepository) ListVideos(ctx context.Context) ([]*Video, error) {
	return r.query(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC, filename`)
}

func (r *SQLiteRepository) ListUnprobedVideos(ctx context.Context) ([]*Video, error) {
	return r.query(ctx, `SELECT `+videoColumns+` FROM videos WHERE probed_at IS NULL ORDER BY created_at ASC`)
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]*Video, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *SQLiteRepository) DeleteVideo(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM videos WHERE id = ?", id)
	return err
}

// UpdateVideoProbe stores probe metadata, or the failure when probeErr is set.
// Failed probes leave probed_at NULL so they are retried.
func (r *SQLiteRepository) UpdateVideoProbe(ctx context.Context, id string, probe *pipeline.ProbeResult, probeErr error) error {
	if probeErr != nil {
		_, err := r.db.ExecContext(ctx, `UPDATE videos SET probe_error = ? WHERE id = ?`, probeErr.Error(), id)
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE videos SET duration = ?, width = ?, height = ?, codec = ?, probed_at = ?, probe_error = NULL
		WHERE id = ?
	`, probe.Duration, probe.Width, probe.Height, nullString(probe.Codec), time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) CountVideos(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}
