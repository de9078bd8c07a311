package course

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
	"github.com/mo-amir99/elearning-server-go/pkg/apperrors"
	"github.com/mo-amir99/elearning-server-go/pkg/media"
	"github.com/mo-amir99/elearning-server-go/pkg/pagination"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/response"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Handler processes course HTTP requests.
type Handler struct {
	db      *gorm.DB
	logger  *slog.Logger
	tracker *tracker.Tracker
	media   media.Lookuper
}

// NewHandler constructs a course handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger, tr *tracker.Tracker, lookuper media.Lookuper) *Handler {
	return &Handler{db: db, logger: logger, tracker: tr, media: lookuper}
}

type courseDetail struct {
	Course
	Modules []moduleSummary `gorm:"foreignKey:CourseID" json:"modules"`
}

func (courseDetail) TableName() string {
	return "courses"
}

type moduleSummary struct {
	ID          uuid.UUID      `json:"id"`
	CourseID    uuid.UUID      `json:"courseId"`
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	Order       int            `json:"order"`
	Videos      []videoSummary `gorm:"foreignKey:ModuleID" json:"videos"`
}

func (moduleSummary) TableName() string {
	return "modules"
}

type videoSummary struct {
	ID              uuid.UUID           `json:"id"`
	ModuleID        uuid.UUID           `json:"moduleId"`
	Title           string              `json:"title"`
	Provider        types.VideoProvider `json:"provider"`
	ProviderVideoID string              `json:"providerVideoId"`
	URL             string              `json:"url"`
	EmbedURL        string              `json:"embedUrl"`
	ThumbnailURL    *string             `json:"thumbnailUrl,omitempty"`
	Duration        int                 `json:"duration"`
	Order           int                 `json:"order"`
}

func (videoSummary) TableName() string {
	return "videos"
}

// List returns paginated courses. Only admins see inactive courses.
func (h *Handler) List(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)
	params := pagination.Extract(c)

	filters := ListFilters{
		Keyword:    strings.TrimSpace(c.Query("filterKeyword")),
		Category:   strings.TrimSpace(c.Query("category")),
		Tag:        strings.TrimSpace(c.Query("tag")),
		ActiveOnly: requester.Role != types.RoleAdmin || c.Query("activeOnly") == "true",
	}

	courses, total, err := List(h.db.WithContext(c.Request.Context()), filters, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to list courses", err)
		return
	}

	response.Success(c, http.StatusOK, courses, "", pagination.MetadataFrom(total, params))
}

// GetByID returns a course with its modules and videos in display order.
func (h *Handler) GetByID(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)

	id, err := request.UUIDParam(c, "courseId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var detail courseDetail
	err = h.db.WithContext(c.Request.Context()).
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC, created_at ASC")
		}).
		Preload("Modules.Videos", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC, created_at ASC")
		}).
		First(&detail, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrCourseNotFound
	}
	if err != nil {
		h.respondError(c, err, "failed to load course")
		return
	}

	if !detail.Active && requester.Role != types.RoleAdmin {
		h.respondError(c, ErrCourseNotFound, "")
		return
	}

	response.Success(c, http.StatusOK, detail, "", nil)
}

// Create inserts a new course.
func (h *Handler) Create(c *gin.Context) {
	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description *string  `json:"description"`
		Category    *string  `json:"category"`
		Tags        []string `json:"tags" binding:"omitempty,max=10,dive,max=30"`
		Image       *string  `json:"image" binding:"omitempty,url"`
		Order       *int     `json:"order" binding:"omitempty,min=0"`
		Active      *bool    `json:"isActive"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(request.BindingError(err))
		return
	}

	course, err := Create(h.db.WithContext(c.Request.Context()), CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		Image:       req.Image,
		Order:       req.Order,
		Active:      req.Active,
	})
	if err != nil {
		h.respondError(c, err, "failed to create course")
		return
	}

	response.Created(c, course, "Course created successfully")
}

// Update modifies an existing course. Absent fields stay untouched; null clears optional ones.
func (h *Handler) Update(c *gin.Context) {
	id, err := request.UUIDParam(c, "courseId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	body := map[string]interface{}{}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid course payload", err)
		return
	}

	input := UpdateInput{}

	if value, ok := body["name"]; ok {
		str, err := request.ReadString(value)
		if err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "name must be a string", err)
			return
		}
		input.Name = &str
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

	if value, ok := body["category"]; ok {
		input.CategoryProvided = true
		if value != nil {
			str, err := request.ReadString(value)
			if err != nil {
				response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "category must be a string", err)
				return
			}
			input.Category = &str
		}
	}

	if value, ok := body["tags"]; ok {
		input.TagsProvided = true
		if value != nil {
			raw, isList := value.([]interface{})
			if !isList {
				response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "tags must be a list of strings", nil)
				return
			}
			for _, item := range raw {
				tag, err := request.ReadString(item)
				if err != nil {
					response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "tags must be a list of strings", err)
					return
				}
				input.Tags = append(input.Tags, tag)
			}
		}
	}

	if value, ok := body["image"]; ok {
		input.ImageProvided = true
		if value != nil {
			str, err := request.ReadString(value)
			if err != nil {
				response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "image must be a string", err)
				return
			}
			input.Image = &str
		}
	}

	if value, ok := body["order"]; ok {
		input.OrderProvided = true
		if value != nil {
			order, err := request.ReadInt(value)
			if err != nil || order < 0 {
				response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "order must be a non-negative whole number", err)
				return
			}
			input.Order = &order
		}
	}

	if value, ok := body["isActive"]; ok {
		active, err := request.ReadBool(value)
		if err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "isActive must be a boolean", err)
			return
		}
		input.Active = &active
	}

	course, err := Update(h.db.WithContext(c.Request.Context()), id, input)
	if err != nil {
		h.respondError(c, err, "failed to update course")
		return
	}

	response.Success(c, http.StatusOK, course, "Course updated successfully", nil)
}

// Delete removes a course after unenrolling its learners so their counters stay right.
func (h *Handler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := request.UUIDParam(c, "courseId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	if _, err := Get(h.db.WithContext(ctx), id); err != nil {
		h.respondError(c, err, "failed to load course")
		return
	}

	dropped, err := h.tracker.UnenrollCourse(ctx, id)
	if err != nil {
		h.respondError(c, err, "failed to unenroll learners")
		return
	}

	if err := Delete(h.db.WithContext(ctx), id); err != nil {
		h.respondError(c, err, "failed to delete course")
		return
	}

	h.logger.Info("course deleted", slog.String("courseId", id.String()), slog.Int("unenrolled", dropped))
	response.Success(c, http.StatusOK, nil, "Course deleted successfully", nil)
}

// LookupMedia resolves a YouTube or Vimeo link into title, duration and embed URL.
func (h *Handler) LookupMedia(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		_ = c.Error(apperrors.Validation("url is required.", map[string]string{"url": "required"}))
		return
	}

	meta, err := h.media.Lookup(c.Request.Context(), raw)
	if err != nil {
		_ = c.Error(MediaError(err))
		return
	}

	response.Success(c, http.StatusOK, meta, "", nil)
}

// MediaError maps lookup failures: bad links are validation errors, provider outages are retryable.
func MediaError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, media.ErrInvalidURL), errors.Is(err, media.ErrUnsupportedProvider):
		return apperrors.Validation(err.Error(), map[string]string{"url": err.Error()})
	case errors.Is(err, media.ErrVideoNotFound):
		return apperrors.NotFound("The video does not exist or is private.", err)
	case errors.Is(err, media.ErrLookupFailed):
		return apperrors.Unavailable("The video provider did not answer, please retry.", err)
	}
	return apperrors.Wrap(err, "Video lookup failed.", http.StatusInternalServerError, apperrors.ErrInternal)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrCourseNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Course not found.", err)
	case errors.Is(err, ErrNameTaken), errors.Is(err, ErrOrderTaken):
		response.ErrorWithLog(h.logger, c, http.StatusConflict, err.Error(), err)
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrTooManyTags):
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, err.Error(), err)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
