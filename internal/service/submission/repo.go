package submission

import (
	"context"
	"database/sql"
	dberr "errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/memorywall/memorywall/internal/resolver"
	"github.com/memorywall/memorywall/pkg/errors"
	"github.com/memorywall/memorywall/pkg/json"
)

// Repository is the record store for submissions. All writes except CastVote
// are whole-field sets; CastVote is the single in-place read-modify-write and
// runs as one atomic statement.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps the shared connection pool.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const submissionColumns = `id, kind, url, content, tags, status, metadata, votes_up, votes_down, user_votes, moderation, submitted_by, submitted_at, created_at, updated_at`

// Insert persists a new submission.
func (r *Repository) Insert(ctx context.Context, s *Submission) (*Submission, error) {
	metadata, err := marshalNullable(s.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	moderation, err := marshalNullable(s.Moderation)
	if err != nil {
		return nil, fmt.Errorf("marshal moderation: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO submissions (id, kind, url, content, tags, status, metadata, votes_up, votes_down, user_votes, moderation, submitted_by, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, '{}'::jsonb, $8, $9, NOW(), NOW(), NOW())
	`, s.ID, s.Kind, s.URL, s.Content, pq.Array(s.Tags), s.Status, metadata, moderation, s.SubmittedBy)
	if err != nil {
		return nil, storageErr(err)
	}
	return r.GetByID(ctx, s.ID)
}

// GetByID fetches a single submission.
func (r *Repository) GetByID(ctx context.Context, id string) (*Submission, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	return scanSubmission(row)
}

// ListByStatus returns submissions in a status, newest first.
func (r *Repository) ListByStatus(ctx context.Context, status Status, limit int) ([]*Submission, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE status = $1 ORDER BY submitted_at DESC LIMIT $2`,
		status, limit)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()
	results := make([]*Submission, 0, limit)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return results, nil
}

// CountSince counts submissions created at or after the given instant.
func (r *Repository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE submitted_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, storageErr(err)
	}
	return count, nil
}

// SetDecision transitions the status and attaches the moderation audit
// record. Used by the admin override and the background re-moderation job.
func (r *Repository) SetDecision(ctx context.Context, id string, status Status, audit *ModerationAudit) error {
	moderation, err := marshalNullable(audit)
	if err != nil {
		return fmt.Errorf("marshal moderation: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE submissions SET status = $2, moderation = $3, updated_at = NOW() WHERE id = $1
	`, id, status, moderation)
	if err != nil {
		return storageErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// RefreshMetadata replaces the metadata record. Admin re-fetch path only.
func (r *Repository) RefreshMetadata(ctx context.Context, id string, metadata *resolver.Metadata) error {
	raw, err := marshalNullable(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE submissions SET metadata = $2, updated_at = NOW() WHERE id = $1
	`, id, raw)
	if err != nil {
		return storageErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// ListPendingUnavailable returns pending submissions whose moderation audit
// carries the unavailable marker, oldest first. Feed for the requeue job.
func (r *Repository) ListPendingUnavailable(ctx context.Context, limit int) ([]*Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+submissionColumns+` FROM submissions
		WHERE status = $1 AND COALESCE((moderation->>'unavailable')::boolean, FALSE)
		ORDER BY submitted_at ASC LIMIT $2
	`, StatusPending, limit)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()
	results := make([]*Submission, 0, limit)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return results, nil
}

// CastVote applies the toggle/switch/undo state machine for one user on one
// submission as a single atomic UPDATE. The CASE expressions read the
// pre-update row, so concurrent casts for different users cannot lose counter
// updates and casts for the same user serialize on the row lock.
func (r *Repository) CastVote(ctx context.Context, id, userID string, direction Direction) (Votes, Direction, error) {
	var votes Votes
	var userVote string
	err := r.db.QueryRowContext(ctx, `
		UPDATE submissions SET
			user_votes = CASE
				WHEN user_votes->>$2 = $3 THEN user_votes - $2
				ELSE jsonb_set(user_votes, ARRAY[$2], to_jsonb($3::text))
			END,
			votes_up = votes_up
				+ CASE WHEN $3 = 'up' AND user_votes->>$2 IS DISTINCT FROM 'up' THEN 1 ELSE 0 END
				- CASE WHEN user_votes->>$2 = 'up' THEN 1 ELSE 0 END,
			votes_down = votes_down
				+ CASE WHEN $3 = 'down' AND user_votes->>$2 IS DISTINCT FROM 'down' THEN 1 ELSE 0 END
				- CASE WHEN user_votes->>$2 = 'down' THEN 1 ELSE 0 END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING votes_up, votes_down, COALESCE(user_votes->>$2, '')
	`, id, userID, string(direction)).Scan(&votes.Up, &votes.Down, &userVote)
	if err != nil {
		if dberr.Is(err, sql.ErrNoRows) {
			return Votes{}, "", errors.ErrNotFound
		}
		return Votes{}, "", storageErr(err)
	}
	return votes, Direction(userVote), nil
}

// scanSubmission reads one row from any Scan-capable source.
func scanSubmission(row interface {
	Scan(dest ...interface{}) error
},
) (*Submission, error) {
	var s Submission
	var urlValue, content, submittedBy sql.NullString
	var metadata, userVotes, moderation []byte
	var tags pq.StringArray
	err := row.Scan(&s.ID, &s.Kind, &urlValue, &content, &tags, &s.Status,
		&metadata, &s.Votes.Up, &s.Votes.Down, &userVotes, &moderation,
		&submittedBy, &s.SubmittedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if dberr.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, storageErr(err)
	}
	s.URL = urlValue.String
	s.Content = content.String
	s.SubmittedBy = submittedBy.String
	s.Tags = tags
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if len(userVotes) > 0 {
		if err := json.Unmarshal(userVotes, &s.UserVotes); err != nil {
			return nil, fmt.Errorf("unmarshal user_votes: %w", err)
		}
	}
	if len(moderation) > 0 {
		if err := json.Unmarshal(moderation, &s.Moderation); err != nil {
			return nil, fmt.Errorf("unmarshal moderation: %w", err)
		}
	}
	return &s, nil
}

func marshalNullable(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func storageErr(err error) error {
	return errors.Wrap(errors.ErrStorageUnavailable, err.Error())
}
