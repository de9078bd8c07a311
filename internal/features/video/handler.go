package video

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/features/module"
	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
	"github.com/mo-amir99/elearning-server-go/pkg/apperrors"
	"github.com/mo-amir99/elearning-server-go/pkg/media"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/response"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Handler processes video HTTP requests.
type Handler struct {
	db      *gorm.DB
	logger  *slog.Logger
	tracker *tracker.Tracker
	media   media.Lookuper
}

// NewHandler constructs a video handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger, tr *tracker.Tracker, lookuper media.Lookuper) *Handler {
	return &Handler{db: db, logger: logger, tracker: tr, media: lookuper}
}

// List returns the videos of a module. Learners only see videos of active courses.
func (h *Handler) List(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)
	db := h.db.WithContext(c.Request.Context())

	moduleID, err := request.UUIDParam(c, "moduleId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	mod, err := module.Get(db, moduleID)
	if err != nil {
		h.respondError(c, err, "failed to load module")
		return
	}

	if requester.Role != types.RoleAdmin {
		crs, err := course.Get(db, mod.CourseID)
		if err != nil {
			h.respondError(c, err, "failed to load course")
			return
		}
		if !crs.Active {
			h.respondError(c, course.ErrCourseNotFound, "")
			return
		}
	}

	videos, err := ListByModule(db, moduleID)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to list videos", err)
		return
	}

	response.Success(c, http.StatusOK, videos, "", nil)
}

// Create adds a YouTube or Vimeo video to a module.
func (h *Handler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	moduleID, err := request.UUIDParam(c, "moduleId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req struct {
		URL         string  `json:"url" binding:"required,videourl"`
		Title       string  `json:"title" binding:"omitempty,max=200"`
		Description *string `json:"description" binding:"omitempty,max=2000"`
		Duration    *int    `json:"duration" binding:"omitempty,min=0"`
		Order       *int    `json:"order" binding:"omitempty,min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(request.BindingError(err))
		return
	}

	meta, err := h.resolve(ctx, req.URL)
	if err != nil {
		_ = c.Error(course.MediaError(err))
		return
	}

	created, err := Create(h.db.WithContext(ctx), CreateInput{
		ModuleID:    moduleID,
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		Order:       req.Order,
		Metadata:    meta,
	})
	if err != nil {
		h.respondError(c, err, "failed to create video")
		return
	}

	h.recompute(ctx, created.ModuleID)
	response.Created(c, created, "Video created successfully")
}

// Update modifies a video. A new url re-resolves the provider metadata.
func (h *Handler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)

	current, ok := h.load(c, db)
	if !ok {
		return
	}

	body := map[string]interface{}{}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid video payload", err)
		return
	}

	input := UpdateInput{}
	if value, ok := body["title"]; ok {
		str, err := request.ReadString(value)
		if err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "title must be a string", err)
			return
		}
		input.Title = &str
	}
	if value, ok := body["description"]; ok {
		input.DescProvided = true
		if value != nil {
			str, err := request.ReadString(value)
			if err != nil {
				response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "description must be a string", err)
				return
			}
			input.Description = &str
		}
	}
	if value, ok := body["url"]; ok {
		raw, err := request.ReadString(value)
		if err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "url must be a string", err)
			return
		}
		meta, err := h.resolve(ctx, raw)
		if err != nil {
			_ = c.Error(course.MediaError(err))
			return
		}
		input.Metadata = &meta
	}
	if value, ok := body["duration"]; ok && value != nil {
		duration, err := request.ReadInt(value)
		if err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "duration must be a whole number of seconds", err)
			return
		}
		input.Duration = &duration
	}
	if value, ok := body["order"]; ok && value != nil {
		order, err := request.ReadInt(value)
		if err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "order must be a whole number", err)
			return
		}
		input.Order = &order
	}

	updated, err := Update(db, current, input)
	if err != nil {
		h.respondError(c, err, "failed to update video")
		return
	}

	response.Success(c, http.StatusOK, updated, "Video updated successfully", nil)
}

// Delete removes a video. Course totals shrink, so enrolled learners are recomputed.
func (h *Handler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)

	current, ok := h.load(c, db)
	if !ok {
		return
	}

	if err := Delete(db, current.ID); err != nil {
		h.respondError(c, err, "failed to delete video")
		return
	}

	h.recompute(ctx, current.ModuleID)
	response.Success(c, http.StatusOK, nil, "Video deleted successfully", nil)
}

// resolve looks the url up at the provider. When the provider is unreachable the
// parsed source is still usable as long as the caller supplies a title.
func (h *Handler) resolve(ctx context.Context, raw string) (media.Metadata, error) {
	meta, err := h.media.Lookup(ctx, raw)
	if err == nil {
		return meta, nil
	}
	if !errors.Is(err, media.ErrLookupFailed) {
		return media.Metadata{}, err
	}

	src, parseErr := media.Parse(raw)
	if parseErr != nil {
		return media.Metadata{}, parseErr
	}
	h.logger.Warn("video metadata lookup failed, storing unresolved source",
		slog.String("provider", string(src.Provider)),
		slog.String("videoId", src.ID),
		slog.String("error", err.Error()))
	return media.Metadata{Source: src}, nil
}

func (h *Handler) recompute(ctx context.Context, moduleID uuid.UUID) {
	courseID, err := CourseID(h.db.WithContext(ctx), moduleID)
	if err != nil {
		h.logger.Error("resolve course for recompute failed", slog.String("moduleId", moduleID.String()), slog.String("error", err.Error()))
		return
	}
	if _, err := h.tracker.RecomputeCourse(ctx, courseID); err != nil {
		h.logger.Error("recompute course progress failed", slog.String("courseId", courseID.String()), slog.String("error", err.Error()))
	}
}

func (h *Handler) load(c *gin.Context, db *gorm.DB) (Video, bool) {
	moduleID, err := request.UUIDParam(c, "moduleId")
	if err != nil {
		_ = c.Error(err)
		return Video{}, false
	}
	videoID, err := request.UUIDParam(c, "videoId")
	if err != nil {
		_ = c.Error(err)
		return Video{}, false
	}

	current, err := GetForModule(db, videoID, moduleID)
	if err != nil {
		h.respondError(c, err, "failed to load video")
		return Video{}, false
	}
	return current, true
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrVideoNotFound):
		_ = c.Error(apperrors.NotFound("Video not found.", err))
	case errors.Is(err, module.ErrModuleNotFound):
		_ = c.Error(apperrors.NotFound("Module not found.", err))
	case errors.Is(err, course.ErrCourseNotFound):
		_ = c.Error(apperrors.NotFound("Course not found.", err))
	case errors.Is(err, ErrDuplicateInModule):
		_ = c.Error(apperrors.Conflict(err.Error(), err))
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrTitleLength):
		_ = c.Error(apperrors.Validation(err.Error(), map[string]string{"title": err.Error()}))
	case errors.Is(err, ErrURLRequired):
		_ = c.Error(apperrors.Validation(err.Error(), map[string]string{"url": err.Error()}))
	case errors.Is(err, ErrDurationInvalid):
		_ = c.Error(apperrors.Validation(err.Error(), map[string]string{"duration": err.Error()}))
	case errors.Is(err, ErrOrderInvalid):
		_ = c.Error(apperrors.Validation(err.Error(), map[string]string{"order": err.Error()}))
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
