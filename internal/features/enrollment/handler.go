package enrollment

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
	"github.com/mo-amir99/elearning-server-go/pkg/apperrors"
	"github.com/mo-amir99/elearning-server-go/pkg/pagination"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/response"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Handler processes enrollment HTTP requests.
type Handler struct {
	db      *gorm.DB
	logger  *slog.Logger
	tracker *tracker.Tracker
}

// NewHandler constructs an enrollment handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger, tr *tracker.Tracker) *Handler {
	return &Handler{db: db, logger: logger, tracker: tr}
}

type assignRequest struct {
	UserID *uuid.UUID `json:"userId"`
}

// Enroll registers the signed-in learner, or the learner in the body when a company or admin assigns a course.
func (h *Handler) Enroll(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)
	ctx := c.Request.Context()

	courseID, err := request.UUIDParam(c, "courseId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(request.BindingError(err))
		return
	}

	target, err := h.resolveLearner(c, requester, req.UserID)
	if err != nil {
		h.respondError(c, err, "failed to enroll")
		return
	}

	crs, err := course.Get(h.db.WithContext(ctx), courseID)
	if err != nil {
		h.respondError(c, err, "failed to load course")
		return
	}
	if !crs.Active {
		h.respondError(c, tracker.ErrInactiveCourse, "")
		return
	}

	var assignedBy *uuid.UUID
	if target != requester.ID {
		assignedBy = &requester.ID
	}

	result, err := h.tracker.Enroll(ctx, target, courseID, assignedBy)
	if err != nil {
		h.respondError(c, err, "failed to enroll")
		return
	}

	if result.Changed {
		response.Created(c, result, "Enrolled successfully")
		return
	}
	response.Success(c, http.StatusOK, result, "Already enrolled", nil)
}

// Unenroll removes an enrollment. Completion records are kept.
func (h *Handler) Unenroll(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)

	courseID, err := request.UUIDParam(c, "courseId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	userID, err := request.OptionalUUIDQuery(c, "userId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	target, err := h.resolveLearner(c, requester, userID)
	if err != nil {
		h.respondError(c, err, "failed to unenroll")
		return
	}

	result, err := h.tracker.Unenroll(c.Request.Context(), target, courseID)
	if err != nil {
		h.respondError(c, err, "failed to unenroll")
		return
	}

	response.Success(c, http.StatusOK, result, "Unenrolled successfully", nil)
}

// Mine lists the signed-in user's enrollments.
func (h *Handler) Mine(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)
	h.list(c, requester.ID)
}

// ForUser lists a managed learner's enrollments.
func (h *Handler) ForUser(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)

	id, err := request.UUIDParam(c, "userId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	target, err := h.resolveLearner(c, requester, &id)
	if err != nil {
		h.respondError(c, err, "failed to load enrollments")
		return
	}
	h.list(c, target)
}

func (h *Handler) list(c *gin.Context, userID uuid.UUID) {
	params := pagination.Extract(c)
	filters := ListFilters{UserID: &userID}

	if raw := c.Query("status"); raw != "" {
		status := types.EnrollmentStatus(raw)
		switch status {
		case types.EnrollmentStatusEnrolled, types.EnrollmentStatusInProgress, types.EnrollmentStatusCompleted:
			filters.Status = status
		default:
			_ = c.Error(apperrors.Validation("Invalid status filter.", map[string]string{"status": "must be enrolled, in_progress or completed"}))
			return
		}
	}

	enrollments, total, err := List(h.db.WithContext(c.Request.Context()), filters, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to list enrollments", err)
		return
	}

	response.Success(c, http.StatusOK, enrollments, "", pagination.MetadataFrom(total, params))
}

// resolveLearner returns whose enrollment a request targets. Learners act for themselves,
// companies for their workers and admins for anyone.
func (h *Handler) resolveLearner(c *gin.Context, requester *middleware.User, requested *uuid.UUID) (uuid.UUID, error) {
	if requested == nil || *requested == requester.ID {
		if !requester.Role.IsLearner() {
			return uuid.Nil, tracker.ErrNotLearner
		}
		return requester.ID, nil
	}

	target, err := user.Get(h.db.WithContext(c.Request.Context()), *requested)
	if err != nil {
		return uuid.Nil, err
	}
	if !user.CanManage(requester.ID, requester.Role, target) {
		return uuid.Nil, ErrForeignLearner
	}
	return target.ID, nil
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, course.ErrCourseNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Course not found.", err)
	case errors.Is(err, user.ErrUserNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "User not found.", err)
	case errors.Is(err, ErrForeignLearner):
		response.ErrorWithLog(h.logger, c, http.StatusForbidden, err.Error(), err)
	case errors.Is(err, tracker.ErrUserNotFound),
		errors.Is(err, tracker.ErrCourseNotFound),
		errors.Is(err, tracker.ErrNotEnrolled),
		errors.Is(err, tracker.ErrNotLearner),
		errors.Is(err, tracker.ErrInactiveCourse):
		_ = c.Error(tracker.AppError(err))
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
