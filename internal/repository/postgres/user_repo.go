package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telecare-backend/internal/domain"
	apperrors "telecare-backend/pkg/errors"
)

// UserRepository handles user data operations
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	query := `
		SELECT id, username, first_name, last_name, email, account_type, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user := &domain.User{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.AccountType,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.UserNotFoundError()
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetProfile retrieves the role-specific profile for a user. The table
// is chosen by account type; role detection is an equality check on the
// enum, never attribute probing.
func (r *UserRepository) GetProfile(ctx context.Context, userID int64, accountType domain.AccountType) (*domain.Profile, error) {
	var table string
	switch accountType {
	case domain.AccountTypePatient:
		table = "patient_profiles"
	case domain.AccountTypeDoctor:
		table = "doctor_profiles"
	default:
		// Admins have no profile row; an empty profile is not an error.
		return &domain.Profile{UserID: userID}, nil
	}

	query := fmt.Sprintf(`
		SELECT user_id, avatar_path, phone
		FROM %s
		WHERE user_id = $1
	`, table)

	profile := &domain.Profile{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.AvatarPath,
		&profile.Phone,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.Profile{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// Create inserts a new user and returns the assigned id
func (r *UserRepository) Create(ctx context.Context, user *domain.User, passwordHash string) (int64, error) {
	query := `
		INSERT INTO users (username, first_name, last_name, email, account_type, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id
	`

	now := time.Now()
	var id int64
	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Email,
		user.AccountType,
		passwordHash,
		now,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	return id, nil
}

// CreateProfile inserts the role-specific profile row for a user
func (r *UserRepository) CreateProfile(ctx context.Context, userID int64, accountType domain.AccountType, avatarPath *string) error {
	var table string
	switch accountType {
	case domain.AccountTypePatient:
		table = "patient_profiles"
	case domain.AccountTypeDoctor:
		table = "doctor_profiles"
	default:
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, avatar_path)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET avatar_path = EXCLUDED.avatar_path
	`, table)

	if _, err := r.pool.Exec(ctx, query, userID, avatarPath); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}
