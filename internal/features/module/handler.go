package module

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/response"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Handler processes module HTTP requests.
type Handler struct {
	db      *gorm.DB
	logger  *slog.Logger
	tracker *tracker.Tracker
}

// NewHandler constructs a module handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger, tr *tracker.Tracker) *Handler {
	return &Handler{db: db, logger: logger, tracker: tr}
}

// List returns the modules of a course.
func (h *Handler) List(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)
	db := h.db.WithContext(c.Request.Context())

	courseID, err := request.UUIDParam(c, "courseId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	crs, err := course.Get(db, courseID)
	if err != nil {
		h.respondError(c, err, "failed to load course")
		return
	}
	if !crs.Active && requester.Role != types.RoleAdmin {
		h.respondError(c, course.ErrCourseNotFound, "")
		return
	}

	modules, err := ListByCourse(db, courseID)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to list modules", err)
		return
	}

	response.Success(c, http.StatusOK, modules, "", nil)
}

// Create adds a module to a course.
func (h *Handler) Create(c *gin.Context) {
	courseID, err := request.UUIDParam(c, "courseId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req struct {
		Name        string  `json:"name" binding:"required"`
		Description *string `json:"description" binding:"omitempty,max=1000"`
		Order       *int    `json:"order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(request.BindingError(err))
		return
	}

	mod, err := Create(h.db.WithContext(c.Request.Context()), CreateInput{
		CourseID:    courseID,
		Name:        req.Name,
		Description: req.Description,
		Order:       req.Order,
	})
	if err != nil {
		h.respondError(c, err, "failed to create module")
		return
	}

	response.Created(c, mod, "Module created successfully")
}

// Update modifies a module's name, description or order.
func (h *Handler) Update(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	mod, ok := h.load(c, db)
	if !ok {
		return
	}

	body := map[string]interface{}{}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid module payload", err)
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
	if value, ok := body["order"]; ok && value != nil {
		order, err := request.ReadInt(value)
		if err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "order must be a whole number", err)
			return
		}
		input.Order = &order
	}

	updated, err := Update(db, mod, input)
	if err != nil {
		h.respondError(c, err, "failed to update module")
		return
	}

	response.Success(c, http.StatusOK, updated, "Module updated successfully", nil)
}

// Delete removes a module with its videos and re-derives progress for everyone enrolled in the course.
func (h *Handler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)

	mod, ok := h.load(c, db)
	if !ok {
		return
	}

	if err := Delete(db, mod.ID); err != nil {
		h.respondError(c, err, "failed to delete module")
		return
	}

	if _, err := h.tracker.RecomputeCourse(ctx, mod.CourseID); err != nil {
		h.logger.Error("recompute after module delete failed",
			slog.String("courseId", mod.CourseID.String()),
			slog.String("error", err.Error()))
	}

	response.Success(c, http.StatusOK, nil, "Module deleted successfully", nil)
}

func (h *Handler) load(c *gin.Context, db *gorm.DB) (Module, bool) {
	courseID, err := request.UUIDParam(c, "courseId")
	if err != nil {
		_ = c.Error(err)
		return Module{}, false
	}
	moduleID, err := request.UUIDParam(c, "moduleId")
	if err != nil {
		_ = c.Error(err)
		return Module{}, false
	}

	mod, err := GetForCourse(db, moduleID, courseID)
	if err != nil {
		h.respondError(c, err, "failed to load module")
		return Module{}, false
	}
	return mod, true
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrModuleNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Module not found.", err)
	case errors.Is(err, course.ErrCourseNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Course not found.", err)
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrNameLength), errors.Is(err, ErrOrderInvalid):
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, err.Error(), err)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}

