package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/afterschool-match-api/pkg/errors"
)

func TestCacheRepositoryDisabledIsNoop(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	assert.False(t, repo.Enabled())
	require.NoError(t, repo.Set(ctx, "weights", map[string]int{"rating": 60}, time.Minute))

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "weights", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Delete(ctx, "weights"))
	require.NoError(t, repo.DeleteByPattern(ctx, "weights:*"))
	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, repo.Close())
}
