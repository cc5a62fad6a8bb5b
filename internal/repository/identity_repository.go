package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/simcheck-bridge/internal/models"
)

// IdentityRepository resolves LMS users and groups and their similarity
// service identities.
type IdentityRepository struct {
	db *sqlx.DB
}

// NewIdentityRepository constructs the repository.
func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// GetUser loads the LMS profile of a user.
func (r *IdentityRepository) GetUser(ctx context.Context, userID string) (*models.LMSUser, error) {
	const query = `SELECT id, first_name, last_name, email FROM lms_users WHERE id = $1`
	var user models.LMSUser
	if err := r.db.GetContext(ctx, &user, query, userID); err != nil {
		return nil, fmt.Errorf("get lms user: %w", err)
	}
	return &user, nil
}

// ListGroupMembers returns the members of an LMS group ordered by id.
func (r *IdentityRepository) ListGroupMembers(ctx context.Context, groupID string) ([]models.LMSUser, error) {
	const query = `SELECT u.id, u.first_name, u.last_name, u.email FROM lms_users u
JOIN lms_group_members m ON m.user_id = u.id WHERE m.group_id = $1 ORDER BY u.id`
	var users []models.LMSUser
	if err := r.db.SelectContext(ctx, &users, query, groupID); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return users, nil
}

// EnsureUser returns the similarity identity of a user, minting a remote id on first use.
func (r *IdentityRepository) EnsureUser(ctx context.Context, userID string) (*models.SimilarityUser, error) {
	const selectQuery = `SELECT user_id, remote_id, last_eula_accepted, last_eula_accepted_time, last_eula_accepted_lang
FROM similarity_users WHERE user_id = $1`
	var user models.SimilarityUser
	err := r.db.GetContext(ctx, &user, selectQuery, userID)
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get similarity user: %w", err)
	}

	const insertQuery = `INSERT INTO similarity_users (user_id, remote_id, created_at) VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insertQuery, userID, uuid.NewString(), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("create similarity user: %w", err)
	}
	if err := r.db.GetContext(ctx, &user, selectQuery, userID); err != nil {
		return nil, fmt.Errorf("reload similarity user: %w", err)
	}
	return &user, nil
}

// EnsureGroup returns the similarity identity of a group, minting a remote id on first use.
func (r *IdentityRepository) EnsureGroup(ctx context.Context, groupID string) (*models.SimilarityGroup, error) {
	const selectQuery = `SELECT group_id, remote_id FROM similarity_groups WHERE group_id = $1`
	var group models.SimilarityGroup
	err := r.db.GetContext(ctx, &group, selectQuery, groupID)
	if err == nil {
		return &group, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get similarity group: %w", err)
	}

	const insertQuery = `INSERT INTO similarity_groups (group_id, remote_id, created_at) VALUES ($1, $2, $3)
ON CONFLICT (group_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insertQuery, groupID, uuid.NewString(), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("create similarity group: %w", err)
	}
	if err := r.db.GetContext(ctx, &group, selectQuery, groupID); err != nil {
		return nil, fmt.Errorf("reload similarity group: %w", err)
	}
	return &group, nil
}
