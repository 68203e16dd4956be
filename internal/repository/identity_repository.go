package repository

import (
	"context"
	"errors"
	"time"

	"agrilink/internal/domain/identity"
	agrilink_errors "agrilink/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresUserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, u *identity.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.PasswordHash, u.Role, u.DisplayName, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return agrilink_errors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (identity.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, role, display_name, created_at
		FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (identity.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, role, display_name, created_at
		FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (identity.User, error) {
	var u identity.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.User{}, agrilink_errors.ErrNotFound
		}
		return identity.User{}, err
	}
	return u, nil
}

// PostgresProfileDirectory resolves principals to producer or buyer
// profiles. The two roles live in separate tables.
type PostgresProfileDirectory struct {
	db *pgxpool.Pool
}

func NewProfileDirectory(db *pgxpool.Pool) ProfileDirectory {
	return &PostgresProfileDirectory{db: db}
}

func profileTable(role identity.Role) string {
	if role == identity.RoleProducer {
		return "producer_profiles"
	}
	return "buyer_profiles"
}

func (r *PostgresProfileDirectory) CreateProfile(ctx context.Context, p *identity.Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO `+profileTable(p.Role)+` (id, user_id, name, region, about, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.UserID, p.Name, p.Region, p.About, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return agrilink_errors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PostgresProfileDirectory) GetByUser(ctx context.Context, userID uuid.UUID, role identity.Role) (identity.Profile, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, name, region, about, created_at
		FROM `+profileTable(role)+` WHERE user_id = $1`, userID)
	return scanProfile(row, role)
}

func (r *PostgresProfileDirectory) GetByID(ctx context.Context, profileID uuid.UUID, role identity.Role) (identity.Profile, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, name, region, about, created_at
		FROM `+profileTable(role)+` WHERE id = $1`, profileID)
	return scanProfile(row, role)
}

func scanProfile(row pgx.Row, role identity.Role) (identity.Profile, error) {
	var p identity.Profile
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Region, &p.About, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Profile{}, agrilink_errors.ErrNotFound
		}
		return identity.Profile{}, err
	}
	p.Role = role
	return p, nil
}
