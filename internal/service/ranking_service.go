package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/afterschool-match-api/internal/dto"
	"github.com/noah-isme/afterschool-match-api/internal/models"
	appErrors "github.com/noah-isme/afterschool-match-api/pkg/errors"
)

type teacherCatalog interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type courseCatalog interface {
	List(ctx context.Context) ([]models.Course, error)
}

type matchRecordStore interface {
	ListCurrent(ctx context.Context, childID string, targetType models.MatchTargetType) ([]models.MatchRecord, error)
	History(ctx context.Context, childID string, targetType models.MatchTargetType, targetID string) ([]models.MatchRecord, error)
	Replace(ctx context.Context, records []models.MatchRecord) error
}

// RankingService orders teachers and courses for a child. Scores are always
// computed fresh; match records are an audit trail, not a read cache.
type RankingService struct {
	children childReader
	teachers teacherCatalog
	courses  courseCatalog
	records  matchRecordStore
	weights  WeightsProvider
	scorer   Scorer
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewRankingService constructs a RankingService.
func NewRankingService(children childReader, teachers teacherCatalog, courses courseCatalog, records matchRecordStore, weights WeightsProvider, scorer Scorer, metrics *MetricsService, logger *zap.Logger) *RankingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingService{
		children: children,
		teachers: teachers,
		courses:  courses,
		records:  records,
		weights:  weights,
		scorer:   scorer,
		metrics:  metrics,
		logger:   logger,
	}
}

// RankTeachers scores every active teacher for the child, ordered by score
// descending then teacher id ascending.
func (s *RankingService) RankTeachers(ctx context.Context, actor models.Actor, childID string) (*dto.TeacherRanking, error) {
	child, err := loadOwnedChild(ctx, s.children, actor, childID)
	if err != nil {
		return nil, err
	}
	weights, err := s.weights.CurrentWeights(ctx)
	if err != nil {
		return nil, err
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}

	start := time.Now()
	ranked := make([]dto.RankedTeacher, 0, len(teachers))
	for _, teacher := range teachers {
		score, err := s.scorer.Score(*child, TeacherProfile(teacher), weights)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, dto.RankedTeacher{TeacherID: teacher.ID, TeacherName: teacher.FullName, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].TeacherID < ranked[j].TeacherID
	})
	s.metrics.ObserveRanking(string(models.MatchTargetTeacher), time.Since(start))

	s.refreshRecords(ctx, child.ID, weights.Version, ranked)

	return &dto.TeacherRanking{ChildID: child.ID, WeightVersion: weights.Version, Teachers: ranked}, nil
}

// RankCourses orders all courses by age fit, then course id ascending.
func (s *RankingService) RankCourses(ctx context.Context, actor models.Actor, childID string) ([]dto.RankedCourse, error) {
	child, err := loadOwnedChild(ctx, s.children, actor, childID)
	if err != nil {
		return nil, err
	}
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	score := s.courseScorer(ctx, *child)

	start := time.Now()
	ranked := make([]dto.RankedCourse, 0, len(courses))
	for _, course := range courses {
		ranked = append(ranked, dto.RankedCourse{
			CourseID:        course.ID,
			CourseName:      course.Name,
			MatchPercentage: AgeMatch(child.Age, course.AgeRange),
			Score:           score(course),
			SeatsLeft:       course.SeatsLeft(),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].MatchPercentage != ranked[j].MatchPercentage {
			return ranked[i].MatchPercentage > ranked[j].MatchPercentage
		}
		return ranked[i].CourseID < ranked[j].CourseID
	})
	s.metrics.ObserveRanking(string(models.MatchTargetCourse), time.Since(start))
	return ranked, nil
}

// courseScorer returns a function scoring a course against the child with its
// owning teacher's rating and style. Invalid weights or an unavailable teacher
// catalog leave the score out.
func (s *RankingService) courseScorer(ctx context.Context, child models.Child) func(models.Course) *int {
	none := func(models.Course) *int { return nil }
	weights, err := s.weights.CurrentWeights(ctx)
	if err != nil {
		return none
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		s.logger.Warn("failed to list teachers for course scores", zap.Error(err))
		return none
	}
	owners := make(map[string]*models.Teacher, len(teachers))
	for i := range teachers {
		owners[teachers[i].ID] = &teachers[i]
	}
	return func(course models.Course) *int {
		value, err := s.scorer.Score(child, CourseProfile(course, owners[course.TeacherID]), weights)
		if err != nil {
			return nil
		}
		return &value
	}
}

// MatchHistory returns every record for the child and teacher, superseded ones included.
func (s *RankingService) MatchHistory(ctx context.Context, actor models.Actor, childID, teacherID string) ([]models.MatchRecord, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required")
	}
	if _, err := loadOwnedChild(ctx, s.children, actor, childID); err != nil {
		return nil, err
	}
	records, err := s.records.History(ctx, childID, models.MatchTargetTeacher, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load match history")
	}
	return records, nil
}

// refreshRecords supersedes current records that are stale, missing or
// disagree with the fresh score. Failures only cost audit freshness.
func (s *RankingService) refreshRecords(ctx context.Context, childID string, version int64, ranked []dto.RankedTeacher) {
	if s.records == nil {
		return
	}
	current, err := s.records.ListCurrent(ctx, childID, models.MatchTargetTeacher)
	if err != nil {
		s.metrics.RecordRefresh(false)
		s.logger.Warn("failed to load match records", zap.String("child_id", childID), zap.Error(err))
		return
	}
	byTarget := make(map[string]models.MatchRecord, len(current))
	for _, rec := range current {
		byTarget[rec.TargetID] = rec
	}

	var replacements []models.MatchRecord
	for _, entry := range ranked {
		if rec, ok := byTarget[entry.TeacherID]; ok && !rec.NeedsRefresh(entry.Score, version) {
			continue
		}
		replacements = append(replacements, models.MatchRecord{
			ChildID:       childID,
			TargetType:    models.MatchTargetTeacher,
			TargetID:      entry.TeacherID,
			Score:         entry.Score,
			WeightVersion: version,
		})
	}
	if len(replacements) == 0 {
		return
	}
	if err := s.records.Replace(ctx, replacements); err != nil {
		s.metrics.RecordRefresh(false)
		s.logger.Warn("failed to refresh match records", zap.String("child_id", childID), zap.Int("records", len(replacements)), zap.Error(err))
		return
	}
	s.metrics.RecordRefresh(true)
	s.logger.Debug("match records refreshed", zap.String("child_id", childID), zap.Int("records", len(replacements)))
}
