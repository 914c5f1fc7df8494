package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thishan/cms-api/internal/models"
	"github.com/thishan/cms-api/internal/service"
	appErrors "github.com/thishan/cms-api/pkg/errors"
	"github.com/thishan/cms-api/pkg/response"
)

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	exports     *service.ExportService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, exports *service.ExportService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, exports: exports}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student business key"
// @Param courseCode query string false "Filter by course code"
// @Param semester query string false "Filter by semester"
// @Param academicYear query string false "Filter by academic year"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.StudentID = c.Query("studentId")
	filter.CourseCode = c.Query("courseCode")
	filter.Semester = c.Query("semester")
	filter.AcademicYear = c.Query("academicYear")
	if raw := c.Query("status"); raw != "" {
		filter.Status = models.EnrollmentStatus(strings.ToUpper(raw))
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get enrollment by id
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Create godoc
// @Summary Request enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.RequestEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req service.RequestEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Request(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// UpdateGrade godoc
// @Summary Update enrollment grade
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.UpdateGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/grade [put]
func (h *EnrollmentHandler) UpdateGrade(c *gin.Context) {
	var req service.UpdateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.UpdateGrade(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// UpdateStatus godoc
// @Summary Update enrollment status
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/status [put]
func (h *EnrollmentHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Delete godoc
// @Summary Delete enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204 {object} nil
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByStudent godoc
// @Summary List enrollments for a student
// @Tags Enrollments
// @Produce json
// @Param studentId path string true "Student business key"
// @Success 200 {object} response.Envelope
// @Router /enrollments/student/{studentId} [get]
func (h *EnrollmentHandler) ListByStudent(c *gin.Context) {
	enrollments, err := h.enrollments.ListByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// ListByCourse godoc
// @Summary List enrollments for a course
// @Tags Enrollments
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /enrollments/course/{code} [get]
func (h *EnrollmentHandler) ListByCourse(c *gin.Context) {
	enrollments, err := h.enrollments.ListByCourse(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// CountByCourse godoc
// @Summary Count enrollments in a course
// @Tags Enrollments
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /enrollments/course/{code}/count [get]
func (h *EnrollmentHandler) CountByCourse(c *gin.Context) {
	count, err := h.enrollments.CountByCourse(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"course_code": c.Param("code"), "count": count}, nil)
}

// StudentsInCourse godoc
// @Summary List students enrolled in a course
// @Tags Enrollments
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /enrollments/course/{code}/students [get]
func (h *EnrollmentHandler) StudentsInCourse(c *gin.Context) {
	students, err := h.enrollments.StudentsInCourse(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// CoursesForStudent godoc
// @Summary List courses a student is enrolled in
// @Tags Enrollments
// @Produce json
// @Param studentId path string true "Student business key"
// @Success 200 {object} response.Envelope
// @Router /enrollments/student/{studentId}/courses [get]
func (h *EnrollmentHandler) CoursesForStudent(c *gin.Context) {
	courses, err := h.enrollments.CoursesForStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Check godoc
// @Summary Check whether an enrollment exists for the tuple
// @Tags Enrollments
// @Produce json
// @Param studentId query string true "Student business key"
// @Param courseCode query string true "Course code"
// @Param semester query string true "Semester"
// @Param academicYear query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /enrollments/check [get]
func (h *EnrollmentHandler) Check(c *gin.Context) {
	key := models.EnrollmentKey{
		StudentID:    strings.TrimSpace(c.Query("studentId")),
		CourseCode:   strings.TrimSpace(c.Query("courseCode")),
		Semester:     strings.TrimSpace(c.Query("semester")),
		AcademicYear: strings.TrimSpace(c.Query("academicYear")),
	}
	if key.StudentID == "" || key.CourseCode == "" || key.Semester == "" || key.AcademicYear == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId, courseCode, semester and academicYear are required"))
		return
	}
	enrolled, err := h.enrollments.IsEnrolled(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"enrolled": enrolled}, nil)
}

// Export godoc
// @Summary Export enrollment roster
// @Tags Enrollments
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "Export format (csv or pdf)"
// @Param courseCode query string false "Limit to one course"
// @Success 200 {file} file
// @Router /enrollments/export [get]
func (h *EnrollmentHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	format, ok := service.ParseExportFormat(c.DefaultQuery("format", "csv"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrExportFormat, "unsupported export format "+c.Query("format")))
		return
	}
	result, err := h.exports.Roster(c.Request.Context(), format, strings.TrimSpace(c.Query("courseCode")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
