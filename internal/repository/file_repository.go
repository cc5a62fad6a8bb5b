package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/simcheck-bridge/internal/models"
)

// FileRepository reads LMS file records referenced by file submissions.
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository constructs the repository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// GetByPathNameHash returns the file record addressed by its path-name hash.
func (r *FileRepository) GetByPathNameHash(ctx context.Context, hash string) (*models.StoredFile, error) {
	const query = `SELECT pathname_hash, content_hash, filename, item_id, user_id FROM lms_files WHERE pathname_hash = $1`
	var file models.StoredFile
	if err := r.db.GetContext(ctx, &file, query, hash); err != nil {
		return nil, fmt.Errorf("get lms file: %w", err)
	}
	return &file, nil
}
