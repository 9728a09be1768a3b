package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/afterschool-match-api/internal/models"
	"github.com/noah-isme/afterschool-match-api/pkg/database"
)

const parameterColumns = `name, type, value, scope, version, effective_at, updated_by`

// Every write draws a fresh version from the shared sequence, so versions
// increase across all parameters.
const upsertParameter = `INSERT INTO parameters (name, type, value, scope, version, effective_at, updated_by)
VALUES ($1, $2, $3, $4, nextval('parameter_version_seq'), $5, $6)
ON CONFLICT (name)
DO UPDATE SET type = EXCLUDED.type, value = EXCLUDED.value, scope = EXCLUDED.scope,
              version = EXCLUDED.version, effective_at = EXCLUDED.effective_at, updated_by = EXCLUDED.updated_by
RETURNING version`

// ParameterRepository persists named, versioned parameters.
type ParameterRepository struct {
	db *sqlx.DB
}

// NewParameterRepository constructs the repository.
func NewParameterRepository(db *sqlx.DB) *ParameterRepository {
	return &ParameterRepository{db: db}
}

// Get fetches a single parameter by name.
func (r *ParameterRepository) Get(ctx context.Context, name string) (*models.Parameter, error) {
	query := `SELECT ` + parameterColumns + ` FROM parameters WHERE name = $1`
	var param models.Parameter
	if err := r.db.GetContext(ctx, &param, query, name); err != nil {
		return nil, err
	}
	return &param, nil
}

// List returns every parameter ordered by name.
func (r *ParameterRepository) List(ctx context.Context) ([]models.Parameter, error) {
	query := `SELECT ` + parameterColumns + ` FROM parameters ORDER BY name ASC`
	var params []models.Parameter
	if err := r.db.SelectContext(ctx, &params, query); err != nil {
		return nil, fmt.Errorf("list parameters: %w", err)
	}
	return params, nil
}

// ListByNames returns parameters whose name is in the provided slice.
func (r *ParameterRepository) ListByNames(ctx context.Context, names []string) ([]models.Parameter, error) {
	if len(names) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM parameters WHERE name IN (%s) ORDER BY name ASC`, parameterColumns, placeholders(len(names)))
	args := make([]interface{}, len(names))
	for i, name := range names {
		args[i] = name
	}
	var params []models.Parameter
	if err := r.db.SelectContext(ctx, &params, query, args...); err != nil {
		return nil, fmt.Errorf("list parameters by name: %w", err)
	}
	return params, nil
}

// Upsert writes a parameter and stores the assigned version on it.
func (r *ParameterRepository) Upsert(ctx context.Context, param *models.Parameter) error {
	prepareParameter(param)
	if err := r.db.GetContext(ctx, &param.Version, upsertParameter,
		param.Name, param.Type, param.Value, param.Scope, param.EffectiveAt, param.UpdatedBy); err != nil {
		return fmt.Errorf("upsert parameter: %w", err)
	}
	return nil
}

// BulkUpsert writes all parameters in one transaction. Readers never observe
// a partial set.
func (r *ParameterRepository) BulkUpsert(ctx context.Context, params []models.Parameter) error {
	if len(params) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		for i := range params {
			prepareParameter(&params[i])
			p := &params[i]
			if err := tx.GetContext(ctx, &p.Version, upsertParameter,
				p.Name, p.Type, p.Value, p.Scope, p.EffectiveAt, p.UpdatedBy); err != nil {
				return fmt.Errorf("bulk upsert parameter %s: %w", p.Name, err)
			}
		}
		return nil
	})
}

func prepareParameter(param *models.Parameter) {
	if param.Scope == "" {
		param.Scope = models.DefaultParameterScope
	}
	if param.EffectiveAt.IsZero() {
		param.EffectiveAt = time.Now().UTC()
	}
}

func placeholders(n int) string {
	values := make([]string, n)
	for i := 1; i <= n; i++ {
		values[i-1] = fmt.Sprintf("$%d", i)
	}
	return strings.Join(values, ",")
}
