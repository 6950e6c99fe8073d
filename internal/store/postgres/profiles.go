package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mnemolabs/placement-engine/internal/models"
)

// ProfileStore implements store.ProfileStore using PostgreSQL.
type ProfileStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *ProfileStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create persists a new model profile.
func (s *ProfileStore) Create(ctx context.Context, profile *models.ModelProfile) error {
	query := `
		INSERT INTO model_profiles (id, name, suggested_min_vram_gb, suggested_batch_size,
			category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	_, err := s.conn().ExecContext(ctx, query,
		profile.ID,
		profile.Name,
		profile.SuggestedMinVRAMGB,
		profile.SuggestedBatchSize,
		profile.Category,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("creating model profile: %w", err)
	}
	return nil
}

// GetByName retrieves a profile by its unique name.
func (s *ProfileStore) GetByName(ctx context.Context, name string) (*models.ModelProfile, error) {
	query := `
		SELECT id, name, suggested_min_vram_gb, suggested_batch_size, category,
			created_at, updated_at
		FROM model_profiles
		WHERE name = $1`

	profile := &models.ModelProfile{}
	err := s.conn().QueryRowContext(ctx, query, name).Scan(
		&profile.ID,
		&profile.Name,
		&profile.SuggestedMinVRAMGB,
		&profile.SuggestedBatchSize,
		&profile.Category,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying model profile: %w", err)
	}
	return profile, nil
}

// List retrieves all profiles.
func (s *ProfileStore) List(ctx context.Context) ([]*models.ModelProfile, error) {
	query := `
		SELECT id, name, suggested_min_vram_gb, suggested_batch_size, category,
			created_at, updated_at
		FROM model_profiles
		ORDER BY name`

	rows, err := s.conn().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying model profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.ModelProfile
	for rows.Next() {
		profile := &models.ModelProfile{}
		err := rows.Scan(
			&profile.ID,
			&profile.Name,
			&profile.SuggestedMinVRAMGB,
			&profile.SuggestedBatchSize,
			&profile.Category,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning profile row: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profile rows: %w", err)
	}
	return profiles, nil
}

// Update updates an existing profile.
func (s *ProfileStore) Update(ctx context.Context, profile *models.ModelProfile) error {
	query := `
		UPDATE model_profiles
		SET name = $2, suggested_min_vram_gb = $3, suggested_batch_size = $4,
			category = $5, updated_at = $6
		WHERE id = $1`

	profile.UpdatedAt = time.Now().UTC()

	result, err := s.conn().ExecContext(ctx, query,
		profile.ID,
		profile.Name,
		profile.SuggestedMinVRAMGB,
		profile.SuggestedBatchSize,
		profile.Category,
		profile.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("updating model profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a profile by ID.
func (s *ProfileStore) Delete(ctx context.Context, id string) error {
	result, err := s.conn().ExecContext(ctx, `DELETE FROM model_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting model profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
