package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/afterschool-match-api/internal/models"
)

// ChildRepository reads child profiles.
type ChildRepository struct {
	db *sqlx.DB
}

// NewChildRepository constructs a ChildRepository.
func NewChildRepository(db *sqlx.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

// FindByID returns a child by identifier.
func (r *ChildRepository) FindByID(ctx context.Context, id string) (*models.Child, error) {
	const query = `SELECT id, family_id, full_name, age, interests, learning_style, created_at, updated_at FROM children WHERE id = $1`
	var child models.Child
	if err := r.db.GetContext(ctx, &child, query, id); err != nil {
		return nil, err
	}
	return &child, nil
}
