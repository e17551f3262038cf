package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/edunexus/server/internal/store"
)

// CourseHandlers provides HTTP handlers for course management endpoints.
type CourseHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewCourseHandlers creates a new course handlers instance.
func NewCourseHandlers(st store.Store, logger *zerolog.Logger) *CourseHandlers {
	return &CourseHandlers{
		store: st,
		log:   logger,
	}
}

// CreateCourseRequest represents the create/update course request body.
type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"omitempty,max=64"`
}

// CourseResponse represents a course in API responses.
type CourseResponse struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	InstructorID    int64  `json:"instructorId"`
	InstructorName  string `json:"instructorName,omitempty"`
	InstructorEmail string `json:"instructorEmail,omitempty"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func courseResponse(c *store.Course) CourseResponse {
	return CourseResponse{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		Category:     c.Category,
		InstructorID: c.InstructorID,
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    c.UpdatedAt.Format(time.RFC3339),
	}
}

func courseDetailResponse(c *store.CourseDetail) CourseResponse {
	resp := courseResponse(&c.Course)
	resp.InstructorName = c.InstructorName
	resp.InstructorEmail = c.InstructorEmail
	return resp
}

func courseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid course id"})
		return 0, false
	}
	return id, true
}

// CreateCourse handles course creation by an instructor.
// POST /api/courses
func (h *CourseHandlers) CreateCourse(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create course request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	course, err := h.store.CreateCourse(c.Request.Context(), req.Title, req.Description, req.Category, uid)
	if err != nil {
		h.log.Error().Err(err).Str("title", req.Title).Msg("failed to create course")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("course_id", course.ID).Int64("instructor_id", uid).Msg("course created")
	c.JSON(http.StatusCreated, courseResponse(course))
}

// ListCourses handles listing all courses.
// GET /api/courses
func (h *CourseHandlers) ListCourses(c *gin.Context) {
	courses, err := h.store.ListCourses(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list courses")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		response = append(response, courseDetailResponse(course))
	}

	c.JSON(http.StatusOK, response)
}

// GetCourse handles fetching a single course.
// GET /api/courses/:id
func (h *CourseHandlers) GetCourse(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}

	course, err := h.store.GetCourseByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "course not found"})
			return
		}
		h.log.Error().Err(err).Int64("course_id", id).Msg("failed to get course")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, courseResponse(course))
}

// UpdateCourse handles updating a course owned by the caller.
// PUT /api/courses/:id
func (h *CourseHandlers) UpdateCourse(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}

	if !h.authorizeOwner(c, id) {
		return
	}

	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update course request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	category := req.Category
	if category == "" {
		category = "General"
	}

	course, err := h.store.UpdateCourse(c.Request.Context(), id, req.Title, req.Description, category)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "course not found"})
			return
		}
		h.log.Error().Err(err).Int64("course_id", id).Msg("failed to update course")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, courseResponse(course))
}

// DeleteCourse handles deleting a course owned by the caller.
// DELETE /api/courses/:id
func (h *CourseHandlers) DeleteCourse(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}

	if !h.authorizeOwner(c, id) {
		return
	}

	if err := h.store.DeleteCourse(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "course not found"})
			return
		}
		h.log.Error().Err(err).Int64("course_id", id).Msg("failed to delete course")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "course deleted"})
}

// authorizeOwner ensures the caller is the course's instructor or an
// admin. Writes the error response itself when authorization fails.
func (h *CourseHandlers) authorizeOwner(c *gin.Context, id int64) bool {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return false
	}
	role, _ := currentRole(c)

	course, err := h.store.GetCourseByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "course not found"})
			return false
		}
		h.log.Error().Err(err).Int64("course_id", id).Msg("failed to get course")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return false
	}

	if course.InstructorID != uid && role != store.RoleAdmin {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not authorized for this course"})
		return false
	}

	return true
}

// Enroll handles enrolling the caller into a course.
// POST /api/courses/:id/enroll
func (h *CourseHandlers) Enroll(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}

	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if _, err := h.store.GetCourseByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "course not found"})
			return
		}
		h.log.Error().Err(err).Int64("course_id", id).Msg("failed to get course")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.Enroll(c.Request.Context(), id, uid); err != nil {
		// Double enrollment violates the enrollments primary key.
		if strings.Contains(err.Error(), "UNIQUE") {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "already enrolled in this course"})
			return
		}
		h.log.Error().Err(err).Int64("course_id", id).Int64("user_id", uid).Msg("failed to enroll")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("course_id", id).Int64("user_id", uid).Msg("user enrolled")
	c.JSON(http.StatusOK, gin.H{"message": "enrolled successfully"})
}

// ListEnrolled handles listing the caller's enrolled courses.
// GET /api/me/courses
func (h *CourseHandlers) ListEnrolled(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	courses, err := h.store.ListEnrolledCourses(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list enrolled courses")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		response = append(response, courseDetailResponse(course))
	}

	c.JSON(http.StatusOK, response)
}

// ListTeaching handles listing the courses the caller teaches.
// GET /api/me/teaching
func (h *CourseHandlers) ListTeaching(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	courses, err := h.store.ListCoursesByInstructor(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list teaching courses")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		response = append(response, courseResponse(course))
	}

	c.JSON(http.StatusOK, response)
}
