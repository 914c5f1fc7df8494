package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thishan/cms-api/internal/models"
	appErrors "github.com/thishan/cms-api/pkg/errors"
	"github.com/thishan/cms-api/pkg/response"
)

type fakeDashboardSrv struct {
	overview *models.DashboardOverview
	err      error
}

func (f *fakeDashboardSrv) Overview(context.Context) (*models.DashboardOverview, error) {
	return f.overview, f.err
}

func TestDashboardHandlerOverview(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{
		overview: &models.DashboardOverview{
			Counts:      models.EntityCounts{TotalStudents: 4, TotalCourses: 3, TotalEnrollments: 7},
			SuccessRate: 57,
			Progress:    models.ProgressGauges{Courses: 30, Students: 30, Enrollments: 21},
			GeneratedAt: time.Now().UTC(),
		},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	handler.Overview(c)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data models.DashboardOverview `json:"data"`
		Meta map[string]interface{}   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 57, envelope.Data.SuccessRate)
	assert.Equal(t, 7, envelope.Data.Counts.TotalEnrollments)
	assert.Contains(t, envelope.Meta, "processing_time_ms")
}

func TestDashboardHandlerOverviewError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{err: appErrors.ErrTransport})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	handler.Overview(c)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrTransport.Code, envelope.Error.Code)
}
