package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/afterschool-match-api/internal/dto"
	"github.com/noah-isme/afterschool-match-api/internal/models"
	appErrors "github.com/noah-isme/afterschool-match-api/pkg/errors"
)

const weightsCacheKey = "matching:weights"

type parameterRepository interface {
	Get(ctx context.Context, name string) (*models.Parameter, error)
	List(ctx context.Context) ([]models.Parameter, error)
	ListByNames(ctx context.Context, names []string) ([]models.Parameter, error)
	Upsert(ctx context.Context, param *models.Parameter) error
	BulkUpsert(ctx context.Context, params []models.Parameter) error
}

type weightsChangeNotifier interface {
	WeightsChanged(ctx context.Context, version int64) (bool, error)
}

// WeightsProvider supplies the validated matching weights snapshot.
type WeightsProvider interface {
	CurrentWeights(ctx context.Context) (models.WeightSet, error)
}

// ParameterService is the parameter store facade. It parses typed values and
// owns the validated weight snapshot used for scoring.
type ParameterService struct {
	repo      parameterRepository
	cache     *CacheService
	notifier  weightsChangeNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewParameterService constructs a ParameterService. cache and notifier may be nil.
func NewParameterService(repo parameterRepository, cache *CacheService, notifier weightsChangeNotifier, validate *validator.Validate, logger *zap.Logger) *ParameterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParameterService{repo: repo, cache: cache, notifier: notifier, validator: validate, logger: logger}
}

// Get returns a single parameter.
func (s *ParameterService) Get(ctx context.Context, name string) (*dto.ParameterItem, error) {
	param, err := s.repo.Get(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("parameter %s not found", name))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parameter")
	}
	item := toParameterItem(*param)
	return &item, nil
}

// List returns every stored parameter.
func (s *ParameterService) List(ctx context.Context) ([]dto.ParameterItem, error) {
	params, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list parameters")
	}
	items := make([]dto.ParameterItem, 0, len(params))
	for _, p := range params {
		items = append(items, toParameterItem(p))
	}
	return items, nil
}

// Set creates or replaces a parameter and stamps a new version. Changing a
// single weight does not check the 100 sum; scoring fails with InvalidWeights
// until the set is consistent again.
func (s *ParameterService) Set(ctx context.Context, actor models.Actor, name string, req dto.UpdateParameterRequest) (*dto.ParameterItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid parameter payload")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "parameter name is required")
	}
	paramType := models.ParameterType(req.Type)
	if isWeightParameter(name) && paramType != models.ParameterTypeWeight {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must have type weight", name))
	}
	value := strings.TrimSpace(req.Value)
	if err := validateParameterValue(paramType, value); err != nil {
		return nil, err
	}

	param := &models.Parameter{
		Name:      name,
		Type:      paramType,
		Value:     value,
		Scope:     strings.TrimSpace(req.Scope),
		UpdatedBy: actorRef(actor),
	}
	if err := s.repo.Upsert(ctx, param); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save parameter")
	}
	s.logger.Info("parameter updated",
		zap.String("name", param.Name),
		zap.String("type", string(param.Type)),
		zap.Int64("version", param.Version),
		zap.String("updated_by", actor.UserID),
	)

	if isWeightParameter(name) {
		s.weightsChanged(ctx, param.Version)
	}
	item := toParameterItem(*param)
	return &item, nil
}

// SetWeights validates and persists the three matching weights atomically.
func (s *ParameterService) SetWeights(ctx context.Context, actor models.Actor, req dto.UpdateWeightsRequest) (models.WeightSet, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.WeightSet{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weights payload")
	}
	set := models.WeightSet{Rating: *req.Rating, Interest: *req.Interest, Style: *req.Style}
	if err := ValidateWeights(set); err != nil {
		return models.WeightSet{}, err
	}

	updatedBy := actorRef(actor)
	values := []int{set.Rating, set.Interest, set.Style}
	params := make([]models.Parameter, len(models.WeightParameterNames))
	for i, name := range models.WeightParameterNames {
		params[i] = models.Parameter{
			Name:      name,
			Type:      models.ParameterTypeWeight,
			Value:     strconv.Itoa(values[i]),
			UpdatedBy: updatedBy,
		}
	}
	if err := s.repo.BulkUpsert(ctx, params); err != nil {
		return models.WeightSet{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save weights")
	}
	for _, p := range params {
		if p.Version > set.Version {
			set.Version = p.Version
		}
	}
	s.logger.Info("matching weights updated",
		zap.Int("rating", set.Rating),
		zap.Int("interest", set.Interest),
		zap.Int("style", set.Style),
		zap.Int64("version", set.Version),
		zap.String("updated_by", actor.UserID),
	)

	s.weightsChanged(ctx, set.Version)
	return set, nil
}

// CurrentWeights returns the validated weight snapshot. The snapshot may be
// served from cache for a short TTL.
func (s *ParameterService) CurrentWeights(ctx context.Context) (models.WeightSet, error) {
	var cached models.WeightSet
	if hit, _ := s.cache.Get(ctx, weightsCacheKey, &cached); hit {
		return cached, nil
	}

	params, err := s.repo.ListByNames(ctx, models.WeightParameterNames)
	if err != nil {
		return models.WeightSet{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load matching weights")
	}
	set, err := weightSetFromParameters(params)
	if err != nil {
		return models.WeightSet{}, err
	}
	if err := ValidateWeights(set); err != nil {
		return models.WeightSet{}, err
	}
	_ = s.cache.Set(ctx, weightsCacheKey, set, 0)
	return set, nil
}

func (s *ParameterService) weightsChanged(ctx context.Context, version int64) {
	_ = s.cache.Invalidate(ctx, weightsCacheKey)
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.WeightsChanged(ctx, version); err != nil {
		s.logger.Warn("failed to schedule weight recompute", zap.Int64("version", version), zap.Error(err))
	}
}

func weightSetFromParameters(params []models.Parameter) (models.WeightSet, error) {
	byName := make(map[string]models.Parameter, len(params))
	for _, p := range params {
		byName[p.Name] = p
	}
	var set models.WeightSet
	targets := []*int{&set.Rating, &set.Interest, &set.Style}
	for i, name := range models.WeightParameterNames {
		p, ok := byName[name]
		if !ok {
			return models.WeightSet{}, appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("weight parameter %s is not configured", name))
		}
		v, err := strconv.Atoi(strings.TrimSpace(p.Value))
		if err != nil {
			return models.WeightSet{}, appErrors.Wrap(err, appErrors.ErrInvalidWeights.Code, appErrors.ErrInvalidWeights.Status, fmt.Sprintf("weight parameter %s is not an integer", name))
		}
		*targets[i] = v
		if p.Version > set.Version {
			set.Version = p.Version
		}
	}
	return set, nil
}

func validateParameterValue(t models.ParameterType, value string) error {
	invalid := func(msg string) error {
		return appErrors.Clone(appErrors.ErrValidation, msg)
	}
	switch t {
	case models.ParameterTypeWeight:
		v, err := strconv.Atoi(value)
		if err != nil || v < 0 || v > 100 {
			return invalid("weight must be an integer between 0 and 100")
		}
	case models.ParameterTypePrice:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 {
			return invalid("price must be a non-negative number")
		}
	case models.ParameterTypeLimit:
		v, err := strconv.Atoi(value)
		if err != nil || v < 0 {
			return invalid("limit must be a non-negative integer")
		}
	case models.ParameterTypeConfig:
	default:
		return invalid(fmt.Sprintf("unknown parameter type %q", t))
	}
	return nil
}

func isWeightParameter(name string) bool {
	for _, n := range models.WeightParameterNames {
		if n == name {
			return true
		}
	}
	return false
}

func actorRef(actor models.Actor) *string {
	if actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}

func toParameterItem(p models.Parameter) dto.ParameterItem {
	return dto.ParameterItem{
		Name:        p.Name,
		Type:        string(p.Type),
		Value:       p.Value,
		Scope:       p.Scope,
		Version:     p.Version,
		EffectiveAt: p.EffectiveAt,
	}
}
