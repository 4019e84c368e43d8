package repositories

import (
	"context"
	"errors"

	"seam/internal/httpkit"
	"seam/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrProfileNotFound = errors.New("profile not found")
var ErrProfileNameExists = errors.New("profile name already exists")

// DB is the slice of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type ProfileRepository struct {
	db DB
}

func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO profiles (id, name, description, defaults)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, p.ID, p.Name, p.Description, p.Defaults).Scan(&p.CreatedAt)

	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ErrProfileNameExists
		}
		return err
	}
	return nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, defaults, created_at
		FROM profiles
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Defaults, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, defaults, created_at, deleted_at
		FROM profiles
		WHERE id=$1
	`, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Defaults,
		&p.CreatedAt,
		&p.DeletedAt,
	)
	if err != nil {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}

func (r *ProfileRepository) Update(ctx context.Context, p *models.Profile) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET name=$2, description=$3, defaults=$4
		WHERE id=$1 AND deleted_at IS NULL
	`, p.ID, p.Name, p.Description, p.Defaults)
	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ErrProfileNameExists
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET deleted_at=now()
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
