package models

import "time"

// EntityCounts carries the raw totals shown on the dashboard.
type EntityCounts struct {
	TotalStudents    int `json:"total_students"`
	TotalCourses     int `json:"total_courses"`
	TotalEnrollments int `json:"total_enrollments"`
}

// GradeDistributionBin counts enrollments per grade classification.
type GradeDistributionBin struct {
	Class GradeClass `json:"class"`
	Count int        `json:"count"`
}

// MonthlyGrowthPoint counts enrollments created within one calendar month.
type MonthlyGrowthPoint struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// ProgressGauges are the bounded presentational gauges on the dashboard.
type ProgressGauges struct {
	Courses     int `json:"courses"`
	Students    int `json:"students"`
	Enrollments int `json:"enrollments"`
}

// DashboardOverview is the aggregated dashboard payload.
type DashboardOverview struct {
	Counts            EntityCounts           `json:"counts"`
	SuccessRate       int                    `json:"success_rate"`
	Progress          ProgressGauges         `json:"progress"`
	GradeDistribution []GradeDistributionBin `json:"grade_distribution"`
	MonthlyGrowth     []MonthlyGrowthPoint   `json:"monthly_growth"`
	GeneratedAt       time.Time              `json:"generated_at"`
}

// SystemMetrics represents system level stats captured from instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
