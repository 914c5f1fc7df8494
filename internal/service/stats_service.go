package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/thishan/cms-api/internal/models"
	appErrors "github.com/thishan/cms-api/pkg/errors"
)

const overviewCacheKey = "dash:overview"

// Gauge constants for the dashboard progress bars. Each gauge multiplies the
// entity count by a scale and clamps into [floor, ceiling] so the bar never
// renders empty or overflows.
type progressBounds struct {
	scale   int
	floor   int
	ceiling int
}

var (
	courseGauge     = progressBounds{scale: 10, floor: 20, ceiling: 100}
	studentGauge    = progressBounds{scale: 5, floor: 30, ceiling: 100}
	enrollmentGauge = progressBounds{scale: 3, floor: 15, ceiling: 100}
)

type statsRepository interface {
	ListAll(ctx context.Context) ([]models.Enrollment, error)
}

type entityCounter interface {
	Count(ctx context.Context) (int, error)
}

// StatsService computes the dashboard aggregates. All derivations are pure
// functions over an enrollment snapshot taken at request time; the assembled
// overview is cached as one unit so its numbers stay mutually consistent.
type StatsService struct {
	enrollments statsRepository
	students    entityCounter
	courses     entityCounter
	cache       *CacheService
	metrics     *MetricsService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewStatsService constructs StatsService.
func NewStatsService(enrollments statsRepository, students, courses entityCounter, cache *CacheService, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		enrollments: enrollments,
		students:    students,
		courses:     courses,
		cache:       cache,
		metrics:     metrics,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// Overview returns the dashboard payload, serving a cached copy when fresh.
func (s *StatsService) Overview(ctx context.Context) (*models.DashboardOverview, error) {
	if s.cache != nil {
		var cached models.DashboardOverview
		if hit, err := s.cache.Get(ctx, overviewCacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.buildOverview(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, overviewCacheKey, overview, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard overview", zap.Error(err))
		}
	}
	return overview, nil
}

func (s *StatsService) buildOverview(ctx context.Context) (*models.DashboardOverview, error) {
	start := time.Now()
	studentCount, err := s.students.Count(ctx)
	s.metrics.ObserveDBQuery("students_count", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to count students")
	}
	start = time.Now()
	courseCount, err := s.courses.Count(ctx)
	s.metrics.ObserveDBQuery("courses_count", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to count courses")
	}
	start = time.Now()
	snapshot, err := s.enrollments.ListAll(ctx)
	s.metrics.ObserveDBQuery("enrollments_snapshot", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to snapshot enrollments")
	}

	return &models.DashboardOverview{
		Counts: models.EntityCounts{
			TotalStudents:    studentCount,
			TotalCourses:     courseCount,
			TotalEnrollments: len(snapshot),
		},
		SuccessRate: SuccessRate(snapshot),
		Progress: models.ProgressGauges{
			Courses:     progressIndicator(courseCount, courseGauge),
			Students:    progressIndicator(studentCount, studentGauge),
			Enrollments: progressIndicator(len(snapshot), enrollmentGauge),
		},
		GradeDistribution: GradeDistribution(snapshot),
		MonthlyGrowth:     MonthlyGrowth(snapshot),
		GeneratedAt:       time.Now().UTC(),
	}, nil
}

// SuccessRate is the share of graded-passing enrollments across the whole
// snapshot, rounded to the nearest whole percent. An empty snapshot reports 0,
// not an error.
func SuccessRate(snapshot []models.Enrollment) int {
	if len(snapshot) == 0 {
		return 0
	}
	passing := 0
	for i := range snapshot {
		if models.IsPassingGrade(snapshot[i].Grade) {
			passing++
		}
	}
	return int(math.Round(float64(passing) / float64(len(snapshot)) * 100))
}

// progressIndicator scales a count into a bounded gauge value. The floor is
// applied before the ceiling, so a ceiling below the floor wins.
func progressIndicator(count int, bounds progressBounds) int {
	value := count * bounds.scale
	if value < bounds.floor {
		value = bounds.floor
	}
	if value > bounds.ceiling {
		value = bounds.ceiling
	}
	return value
}

// GradeDistribution buckets the snapshot by grade class. All four classes are
// always present, in a fixed order, so charts keep a stable shape.
func GradeDistribution(snapshot []models.Enrollment) []models.GradeDistributionBin {
	counts := map[models.GradeClass]int{}
	for i := range snapshot {
		counts[models.ClassifyGrade(snapshot[i].Grade)]++
	}
	order := []models.GradeClass{
		models.GradeClassPassing,
		models.GradeClassWarning,
		models.GradeClassFailing,
		models.GradeClassInProgress,
	}
	bins := make([]models.GradeDistributionBin, 0, len(order))
	for _, class := range order {
		bins = append(bins, models.GradeDistributionBin{Class: class, Count: counts[class]})
	}
	return bins
}

// MonthlyGrowth counts enrollments per calendar month of their enrollment
// date, sorted ascending by month. Months with no enrollments are absent.
func MonthlyGrowth(snapshot []models.Enrollment) []models.MonthlyGrowthPoint {
	counts := map[string]int{}
	for i := range snapshot {
		month := snapshot[i].EnrollmentDate.UTC().Format("2006-01")
		counts[month]++
	}
	months := make([]string, 0, len(counts))
	for month := range counts {
		months = append(months, month)
	}
	sort.Strings(months)
	points := make([]models.MonthlyGrowthPoint, 0, len(months))
	for _, month := range months {
		points = append(points, models.MonthlyGrowthPoint{Month: month, Count: counts[month]})
	}
	return points
}
