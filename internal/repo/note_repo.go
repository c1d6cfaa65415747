package repo

import (
	"context"

	dom "github.com/gwa2100/dndnotus/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NoteRepo provides note persistence.
type NoteRepo interface {
	Create(ctx context.Context, userID int64, content string) (dom.Note, error)
	CreateBroadcast(ctx context.Context, content string) (int64, error)
	GetByID(ctx context.Context, id int64) (dom.Note, error)
	ListByUser(ctx context.Context, userID int64) ([]dom.Note, error)
	Delete(ctx context.Context, id int64) error
}

// PGNoteRepo implements NoteRepo with Postgres.
type PGNoteRepo struct {
	db *pgxpool.Pool
}

// NewPGNoteRepo returns a new PGNoteRepo.
func NewPGNoteRepo(db *pgxpool.Pool) *PGNoteRepo {
	return &PGNoteRepo{db: db}
}

// Create inserts a regular note owned by userID.
func (r *PGNoteRepo) Create(ctx context.Context, userID int64, content string) (dom.Note, error) {
	query := `
		INSERT INTO notes (content, user_id)
		VALUES ($1, $2)
		RETURNING id, content, user_id, date_posted, dm_post`
	var n dom.Note
	err := r.db.QueryRow(ctx, query, content, userID).Scan(
		&n.ID, &n.Content, &n.UserID, &n.DatePosted, &n.DMPost,
	)
	return n, err
}

// CreateBroadcast inserts one dm_post note per existing user in a single
// statement, so the batch commits or fails as a whole. Returns how many
// notes were created.
func (r *PGNoteRepo) CreateBroadcast(ctx context.Context, content string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO notes (content, user_id, dm_post)
		SELECT $1, u.id, TRUE FROM users u`, content)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetByID returns a note by id.
func (r *PGNoteRepo) GetByID(ctx context.Context, id int64) (dom.Note, error) {
	var n dom.Note
	err := r.db.QueryRow(ctx,
		`SELECT id, content, user_id, date_posted, dm_post FROM notes WHERE id = $1`,
		id,
	).Scan(&n.ID, &n.Content, &n.UserID, &n.DatePosted, &n.DMPost)
	return n, err
}

// ListByUser returns the user's notes, newest first. Equal timestamps fall
// back to id order so the sort is deterministic.
func (r *PGNoteRepo) ListByUser(ctx context.Context, userID int64) ([]dom.Note, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, content, user_id, date_posted, dm_post
		FROM notes WHERE user_id = $1
		ORDER BY date_posted DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []dom.Note
	for rows.Next() {
		var n dom.Note
		if err := rows.Scan(&n.ID, &n.Content, &n.UserID, &n.DatePosted, &n.DMPost); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// Delete removes a note by id.
func (r *PGNoteRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	return err
}
