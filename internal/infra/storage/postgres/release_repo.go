package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/vietddude/nfowatch/internal/core/domain"
	"github.com/vietddude/nfowatch/internal/infra/storage"
)

// ReleaseRepo implements storage.ReleaseStore using PostgreSQL.
type ReleaseRepo struct {
	db *DB
}

// NewReleaseRepo creates a new PostgreSQL release repository.
func NewReleaseRepo(db *DB) *ReleaseRepo {
	return &ReleaseRepo{db: db}
}

var (
	_ storage.ReleaseStore    = (*ReleaseRepo)(nil)
	_ storage.MovieRepository = (*ReleaseRepo)(nil)
	_ storage.ShowRepository  = (*ReleaseRepo)(nil)
	_ storage.Quarantiner     = (*ReleaseRepo)(nil)
)

// whereBuilder accumulates AND-ed predicates with positional arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) addFilters(f storage.Filters) {
	if f.GroupID > 0 {
		w.add("r.groups_id = ?", f.GroupID)
	}
	if f.GUIDPrefix != "" {
		w.add(`r.guid LIKE ? ESCAPE '\'`, likePrefix(f.GUIDPrefix))
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix matches values starting with prefix taken literally.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

func (w *whereBuilder) String() string {
	return strings.Join(w.clauses, " AND ")
}

func eligibilityWhere(q storage.EligibilityQuery) *whereBuilder {
	w := &whereBuilder{}
	w.add("r.nzbstatus = ?", domain.NZBStatusAdded)
	w.add("r.nfostatus >= ?", int(q.Floor))
	w.add("r.nfostatus <= ?", int(domain.StatusUnprocessed))
	if q.MinSize > 0 {
		w.add("r.size > ?", q.MinSize)
	}
	if q.MaxSize > 0 {
		w.add("r.size < ?", q.MaxSize)
	}
	w.addFilters(q.Filters)
	return w
}

// FindEligible returns releases due for an NFO attempt.
func (r *ReleaseRepo) FindEligible(ctx context.Context, q storage.EligibilityQuery) ([]domain.ReleaseSummary, error) {
	w := eligibilityWhere(q)
	query := `
		SELECT r.id, r.guid, r.groups_id, COALESCE(g.name, '') AS group_name,
		       r.name, r.nfostatus, r.postdate
		FROM releases r
		LEFT JOIN groups g ON g.id = r.groups_id
		WHERE ` + w.String() + `
		ORDER BY r.nfostatus ASC, r.postdate DESC, r.id ASC`
	args := w.args
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var rows []domain.ReleaseSummary
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find eligible releases: %w", err)
	}
	return rows, nil
}

// GetRelease loads one release with its group name.
func (r *ReleaseRepo) GetRelease(ctx context.Context, id int64) (*domain.Release, error) {
	var rel domain.Release
	err := r.db.GetContext(ctx, &rel, `
		SELECT r.id, r.guid, r.groups_id, COALESCE(g.name, '') AS group_name, r.name,
		       r.size, r.nfostatus, r.nzbstatus, r.completion, r.postdate
		FROM releases r
		LEFT JOIN groups g ON g.id = r.groups_id
		WHERE r.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrReleaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get release: %w", err)
	}
	return &rel, nil
}

// CountByStatus counts in-scope releases per nfostatus.
func (r *ReleaseRepo) CountByStatus(ctx context.Context, q storage.EligibilityQuery) (map[domain.NfoStatus]int, error) {
	w := eligibilityWhere(q)
	query := `SELECT r.nfostatus, COUNT(*) AS total FROM releases r WHERE ` + w.String() + ` GROUP BY r.nfostatus`

	var rows []struct {
		Status int `db:"nfostatus"`
		Total  int `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to count releases by status: %w", err)
	}

	counts := make(map[domain.NfoStatus]int, len(rows))
	for _, row := range rows {
		counts[domain.NfoStatus(row.Status)] = row.Total
	}
	return counts, nil
}

// HasPayload reports whether a payload row exists.
func (r *ReleaseRepo) HasPayload(ctx context.Context, releaseID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM release_nfos WHERE releases_id = $1)`, releaseID)
	if err != nil {
		return false, fmt.Errorf("failed to check payload: %w", err)
	}
	return exists, nil
}

// InsertPayloadIfAbsent stores a compressed payload unless one exists.
func (r *ReleaseRepo) InsertPayloadIfAbsent(ctx context.Context, releaseID int64, compressed []byte) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO release_nfos (releases_id, nfo) VALUES ($1, $2) ON CONFLICT (releases_id) DO NOTHING`,
		releaseID, compressed)
	if err != nil {
		return false, fmt.Errorf("failed to insert payload: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Payload returns the stored compressed payload.
func (r *ReleaseRepo) Payload(ctx context.Context, releaseID int64) ([]byte, error) {
	var body []byte
	err := r.db.GetContext(ctx, &body, `SELECT nfo FROM release_nfos WHERE releases_id = $1`, releaseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrPayloadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payload: %w", err)
	}
	if body == nil {
		return nil, storage.ErrPayloadNotFound
	}
	return body, nil
}

// DeleteNullPayload removes a payload row whose body is NULL.
func (r *ReleaseRepo) DeleteNullPayload(ctx context.Context, releaseID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM release_nfos WHERE releases_id = $1 AND nfo IS NULL`, releaseID)
	if err != nil {
		return fmt.Errorf("failed to delete null payload: %w", err)
	}
	return nil
}

// SetStatus updates a release's nfostatus.
func (r *ReleaseRepo) SetStatus(ctx context.Context, releaseID int64, status domain.NfoStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE releases SET nfostatus = $1 WHERE id = $2`, int(status), releaseID)
	if err != nil {
		return fmt.Errorf("failed to set nfostatus: %w", err)
	}
	return nil
}

// FindQuarantineCandidates lists releases whose retries are exhausted.
func (r *ReleaseRepo) FindQuarantineCandidates(ctx context.Context, floor domain.NfoStatus, f storage.Filters) ([]int64, error) {
	w := &whereBuilder{}
	w.add("r.nzbstatus = ?", domain.NZBStatusAdded)
	w.add("r.nfostatus < ?", int(floor))
	w.add("r.nfostatus > ?", int(domain.StatusFailed))
	w.addFilters(f)

	var ids []int64
	query := `SELECT r.id FROM releases r WHERE ` + w.String() + ` ORDER BY r.id`
	if err := r.db.SelectContext(ctx, &ids, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to find quarantine candidates: %w", err)
	}
	return ids, nil
}

// QuarantineReleases deletes NULL payload rows and marks the releases FAILED
// in one transaction.
func (r *ReleaseRepo) QuarantineReleases(ctx context.Context, releaseIDs []int64) error {
	if len(releaseIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin quarantine tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM release_nfos WHERE nfo IS NULL AND releases_id = ANY($1)`,
		r.idArray(releaseIDs)); err != nil {
		return fmt.Errorf("failed to delete null payloads: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE releases SET nfostatus = $1 WHERE id = ANY($2)`,
		int(domain.StatusFailed), r.idArray(releaseIDs)); err != nil {
		return fmt.Errorf("failed to quarantine releases: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quarantine: %w", err)
	}
	return nil
}

// idArray binds an id list as a bigint[] parameter. lib/pq needs the
// pq.Array wrapper; pgx encodes slices natively.
func (r *ReleaseRepo) idArray(ids []int64) any {
	if r.db.DriverName() == "postgres" {
		return pq.Array(ids)
	}
	return ids
}

// Ping checks the database is reachable.
func (r *ReleaseRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SetIMDbID records the movie id parsed from a release's NFO.
func (r *ReleaseRepo) SetIMDbID(ctx context.Context, releaseID int64, imdbID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE releases SET imdbid = $1 WHERE id = $2`, imdbID, releaseID)
	if err != nil {
		return fmt.Errorf("failed to set imdb id: %w", err)
	}
	return nil
}

// SetShowID records the show reference parsed from a release's NFO.
func (r *ReleaseRepo) SetShowID(ctx context.Context, releaseID int64, site, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE releases SET show_site = $1, show_id = $2 WHERE id = $3`, site, id, releaseID)
	if err != nil {
		return fmt.Errorf("failed to set show id: %w", err)
	}
	return nil
}
