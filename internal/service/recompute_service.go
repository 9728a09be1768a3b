package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/noah-isme/afterschool-match-api/internal/dto"
	"github.com/noah-isme/afterschool-match-api/internal/models"
	appErrors "github.com/noah-isme/afterschool-match-api/pkg/errors"
	"github.com/noah-isme/afterschool-match-api/pkg/jobs"
)

// Recompute job types.
const (
	JobWeightsChanged       = "weights_changed"
	JobTeacherRatingChanged = "teacher_rating_changed"
)

const weightsJobKey = "weights"

type staleMarker interface {
	MarkStaleBeforeVersion(ctx context.Context, version int64) (int64, error)
	MarkStaleForTarget(ctx context.Context, targetType models.MatchTargetType, targetID string) (int64, error)
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// RecomputeConfig tunes the recompute trigger.
type RecomputeConfig struct {
	Enabled bool
	// RatingThreshold is the minimum change of a normalised rating, in score
	// points, that invalidates a teacher's match records.
	RatingThreshold float64
	Queue           jobs.QueueConfig
}

// RecomputeService marks match records stale after weight or rating changes.
// It never rescores; the ranking read path replaces stale records lazily.
type RecomputeService struct {
	records   staleMarker
	teachers  teacherLookup
	scorer    Scorer
	queue     *jobs.Queue
	metrics   *MetricsService
	logger    *zap.Logger
	enabled   bool
	threshold float64

	latestVersion int64
}

// NewRecomputeService constructs the service and its worker queue.
func NewRecomputeService(records staleMarker, teachers teacherLookup, scorer Scorer, metrics *MetricsService, logger *zap.Logger, cfg RecomputeConfig) *RecomputeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RatingThreshold < 0 {
		cfg.RatingThreshold = 0
	}
	s := &RecomputeService{
		records:   records,
		teachers:  teachers,
		scorer:    scorer,
		metrics:   metrics,
		logger:    logger,
		enabled:   cfg.Enabled,
		threshold: cfg.RatingThreshold,
	}
	queueCfg := cfg.Queue
	if queueCfg.Logger == nil {
		queueCfg.Logger = logger
	}
	s.queue = jobs.NewQueue("recompute", s.handle, queueCfg)
	return s
}

// Start launches the worker pool when the trigger is enabled.
func (s *RecomputeService) Start(ctx context.Context) {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *RecomputeService) Stop() {
	if s == nil {
		return
	}
	s.queue.Stop()
}

// WeightsChanged schedules staleness marking for records computed before
// version. Concurrent changes coalesce into one job that uses the newest version.
func (s *RecomputeService) WeightsChanged(ctx context.Context, version int64) (bool, error) {
	if s == nil || !s.enabled {
		return false, nil
	}
	for {
		current := atomic.LoadInt64(&s.latestVersion)
		if version <= current || atomic.CompareAndSwapInt64(&s.latestVersion, current, version) {
			break
		}
	}
	if _, err := s.queue.Enqueue(ctx, jobs.Job{Key: weightsJobKey, Type: JobWeightsChanged}); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule recompute")
	}
	return true, nil
}

// TeacherRatingChanged schedules staleness marking for a teacher's records when
// the normalised rating moved by at least the configured threshold.
func (s *RecomputeService) TeacherRatingChanged(ctx context.Context, teacherID string, req dto.RatingChangedRequest) (*dto.RecomputeAck, error) {
	if req.CurrentAvgScore == nil || *req.CurrentAvgScore < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "current_avg_score must be a non-negative number")
	}
	if s.teachers != nil {
		if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
	}

	delta := math.Abs(s.scorer.NormalizeRating(req.CurrentAvgScore) - s.scorer.NormalizeRating(req.PreviousAvgScore))
	if delta < s.threshold {
		return &dto.RecomputeAck{Scheduled: false, Reason: fmt.Sprintf("rating change %.2f below threshold %.2f", delta, s.threshold)}, nil
	}
	if !s.enabled {
		return &dto.RecomputeAck{Scheduled: false, Reason: "recompute disabled"}, nil
	}

	queued, err := s.queue.Enqueue(ctx, jobs.Job{
		Key:     "teacher:" + teacherID,
		Type:    JobTeacherRatingChanged,
		Payload: teacherID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule recompute")
	}
	ack := &dto.RecomputeAck{Scheduled: true}
	if !queued {
		ack.Reason = "coalesced with pending job"
	}
	return ack, nil
}

func (s *RecomputeService) handle(ctx context.Context, job jobs.Job) error {
	var (
		marked int64
		err    error
	)
	switch job.Type {
	case JobWeightsChanged:
		version := atomic.LoadInt64(&s.latestVersion)
		marked, err = s.records.MarkStaleBeforeVersion(ctx, version)
		if err == nil {
			s.logger.Info("match records marked stale after weight change", zap.Int64("version", version), zap.Int64("records", marked))
		}
	case JobTeacherRatingChanged:
		teacherID, _ := job.Payload.(string)
		marked, err = s.records.MarkStaleForTarget(ctx, models.MatchTargetTeacher, teacherID)
		if err == nil {
			s.logger.Info("match records marked stale after rating change", zap.String("teacher_id", teacherID), zap.Int64("records", marked))
		}
	default:
		err = fmt.Errorf("unknown recompute job type %q", job.Type)
	}
	s.metrics.RecordRecomputeJob(job.Type, marked, err)
	return err
}
