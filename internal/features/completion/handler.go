package completion

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
	"github.com/mo-amir99/elearning-server-go/pkg/apperrors"
	"github.com/mo-amir99/elearning-server-go/pkg/pagination"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/response"
)

// Handler exposes the completion tracker over HTTP.
type Handler struct {
	db      *gorm.DB
	logger  *slog.Logger
	tracker *tracker.Tracker
}

// NewHandler constructs a completion handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger, tr *tracker.Tracker) *Handler {
	return &Handler{db: db, logger: logger, tracker: tr}
}

// Mark records the video as watched by the signed-in learner.
func (h *Handler) Mark(c *gin.Context) {
	h.change(c, h.tracker.Mark, "Video marked as completed")
}

// Unmark removes the signed-in learner's completion.
func (h *Handler) Unmark(c *gin.Context) {
	h.change(c, h.tracker.Unmark, "Video marked as not completed")
}

// Toggle flips the completion state.
func (h *Handler) Toggle(c *gin.Context) {
	h.change(c, h.tracker.Toggle, "Video completion updated")
}

type changeFunc func(ctx context.Context, userID, videoID uuid.UUID) (tracker.Result, error)

func (h *Handler) change(c *gin.Context, fn changeFunc, message string) {
	requester, _ := middleware.GetUserFromContext(c)

	videoID, err := request.UUIDParam(c, "videoId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := fn(c.Request.Context(), requester.ID, videoID)
	if err != nil {
		_ = c.Error(tracker.AppError(err))
		return
	}

	if !result.Changed {
		message = "Nothing to change"
	}
	response.Success(c, http.StatusOK, result, message, nil)
}

// ListForCourse returns completions in a course. Managers may pass ?userId to inspect a learner.
func (h *Handler) ListForCourse(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)

	courseID, err := request.UUIDParam(c, "courseId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	targetID, err := h.resolveTarget(c, requester)
	if err != nil {
		_ = c.Error(err)
		return
	}

	filters := ListFilters{UserID: targetID, CourseID: &courseID}
	if raw := c.Query("since"); raw != "" {
		since, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			_ = c.Error(apperrors.Validation("Invalid since.", map[string]string{"since": "must be an RFC 3339 timestamp"}))
			return
		}
		filters.Since = &since
	}

	params := pagination.Extract(c)
	entries, total, err := List(h.db.WithContext(c.Request.Context()), filters, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to list completions", err)
		return
	}

	response.Success(c, http.StatusOK, entries, "", pagination.MetadataFrom(total, params))
}

func (h *Handler) resolveTarget(c *gin.Context, requester *middleware.User) (uuid.UUID, error) {
	target, err := request.OptionalUUIDQuery(c, "userId")
	if err != nil {
		return uuid.Nil, err
	}
	if target == nil || *target == requester.ID {
		return requester.ID, nil
	}

	learner, err := user.Get(h.db.WithContext(c.Request.Context()), *target)
	if errors.Is(err, user.ErrUserNotFound) {
		return uuid.Nil, apperrors.NotFound("User not found.", err)
	}
	if err != nil {
		return uuid.Nil, err
	}
	if !user.CanManage(requester.ID, requester.Role, learner) {
		return uuid.Nil, apperrors.Forbidden("You are not authorized to view this user's progress")
	}
	return learner.ID, nil
}
