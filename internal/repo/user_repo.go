package repo

import (
	"context"

	dom "github.com/gwa2100/dndnotus/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepo provides user persistence.
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (dom.User, error)
	GetByUsername(ctx context.Context, username string) (dom.User, error)
	Create(ctx context.Context, username, passwordHash string) (dom.User, error)
	List(ctx context.Context) ([]dom.User, error)
	SetPermissions(ctx context.Context, id int64, permissions int) error
}

// PGUserRepo implements UserRepo with Postgres.
type PGUserRepo struct {
	db *pgxpool.Pool
}

// NewPGUserRepo returns a new PGUserRepo.
func NewPGUserRepo(db *pgxpool.Pool) *PGUserRepo {
	return &PGUserRepo{db: db}
}

// GetByID returns the user by id.
func (r *PGUserRepo) GetByID(ctx context.Context, id int64) (dom.User, error) {
	var u dom.User
	err := r.db.QueryRow(ctx,
		`SELECT id, username, password_hash, permissions, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Permissions, &u.CreatedAt)
	return u, err
}

// GetByUsername returns the user by username.
func (r *PGUserRepo) GetByUsername(ctx context.Context, username string) (dom.User, error) {
	var u dom.User
	err := r.db.QueryRow(ctx,
		`SELECT id, username, password_hash, permissions, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Permissions, &u.CreatedAt)
	return u, err
}

// Create inserts a new user with the default permission level and returns it.
func (r *PGUserRepo) Create(ctx context.Context, username, passwordHash string) (dom.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, permissions, created_at`
	var u dom.User
	err := r.db.QueryRow(ctx, query, username, passwordHash).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Permissions, &u.CreatedAt,
	)
	return u, err
}

// List returns every user ordered by id.
func (r *PGUserRepo) List(ctx context.Context) ([]dom.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, username, password_hash, permissions, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []dom.User
	for rows.Next() {
		var u dom.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Permissions, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// SetPermissions updates a user's permission level.
func (r *PGUserRepo) SetPermissions(ctx context.Context, id int64, permissions int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET permissions = $2 WHERE id = $1`, id, permissions)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
