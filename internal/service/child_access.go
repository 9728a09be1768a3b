package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/afterschool-match-api/internal/models"
	appErrors "github.com/noah-isme/afterschool-match-api/pkg/errors"
)

type childReader interface {
	FindByID(ctx context.Context, id string) (*models.Child, error)
}

// loadOwnedChild returns the child when the actor may act on it. A child of
// another family is reported as not found so ids cannot be probed.
func loadOwnedChild(ctx context.Context, children childReader, actor models.Actor, childID string) (*models.Child, error) {
	child, err := children.FindByID(ctx, childID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	if !actor.CanAccessFamily(child.FamilyID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
	}
	return child, nil
}
