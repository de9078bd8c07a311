package progress

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	core "github.com/mo-amir99/elearning-server-go/internal/core/progress"
	"github.com/mo-amir99/elearning-server-go/internal/features/completion"
	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/features/enrollment"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
	"github.com/mo-amir99/elearning-server-go/pkg/apperrors"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/response"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Handler serves progress computed from completion records.
type Handler struct {
	db      *gorm.DB
	logger  *slog.Logger
	tracker *tracker.Tracker
}

// NewHandler constructs a progress handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger, tr *tracker.Tracker) *Handler {
	return &Handler{db: db, logger: logger, tracker: tr}
}

// CourseView is one enrolled course with live progress.
type CourseView struct {
	core.CourseProgress
	CourseName  string                 `json:"courseName"`
	Status      types.EnrollmentStatus `json:"status"`
	EnrolledAt  time.Time              `json:"enrolledAt"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// Overview is a learner's progress across every enrolled course.
type Overview struct {
	UserID           uuid.UUID    `json:"userId"`
	Points           int          `json:"points"`
	MonthlyPoints    int          `json:"monthlyPoints"`
	CompletedCourses int          `json:"completedCourses"`
	Summary          core.Summary `json:"summary"`
	Courses          []CourseView `json:"courses"`
}

// ModuleView is the progress of one module.
type ModuleView struct {
	core.CourseProgress
	ModuleID uuid.UUID `json:"moduleId"`
}

// Me returns the signed-in learner's overview.
func (h *Handler) Me(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)
	h.overview(c, requester.ID)
}

// ForUser returns a managed learner's overview.
func (h *Handler) ForUser(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)

	id, err := request.UUIDParam(c, "userId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	target, err := user.Get(h.db.WithContext(c.Request.Context()), id)
	if err != nil {
		h.respondError(c, err, "failed to load user")
		return
	}
	if !user.CanManage(requester.ID, requester.Role, target) {
		_ = c.Error(apperrors.Forbidden("You are not authorized to view this user's progress"))
		return
	}
	h.overview(c, target.ID)
}

// Course returns the signed-in learner's progress in one course with a per-module breakdown.
func (h *Handler) Course(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)
	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)

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
	outline, err := course.Outline(db, courseID)
	if err != nil {
		h.respondError(c, err, "failed to load course outline")
		return
	}
	completedIDs, err := h.tracker.CompletedVideoIDs(ctx, requester.ID, courseID)
	if err != nil {
		h.respondError(c, err, "failed to load completions")
		return
	}
	done := core.NewSet(completedIDs...)

	modules := make([]ModuleView, 0, len(outline.Modules))
	for _, m := range outline.Modules {
		single := core.Outline{CourseID: courseID, Modules: []core.ModuleOutline{m}}
		modules = append(modules, ModuleView{CourseProgress: core.ForCourse(single, done), ModuleID: m.ModuleID})
	}

	var enrolled *enrollment.Enrollment
	if enr, err := enrollment.Get(db, requester.ID, courseID); err == nil {
		enrolled = &enr
	} else if !errors.Is(err, enrollment.ErrEnrollmentNotFound) {
		h.respondError(c, err, "failed to load enrollment")
		return
	}

	if completedIDs == nil {
		completedIDs = []uuid.UUID{}
	}
	response.Success(c, http.StatusOK, gin.H{
		"courseId":          crs.ID,
		"courseName":        crs.Name,
		"progress":          core.ForCourse(outline, done),
		"modules":           modules,
		"completedVideoIds": completedIDs,
		"enrolled":          enrolled != nil,
		"enrollment":        enrolled,
	}, "", nil)
}

func (h *Handler) overview(c *gin.Context, userID uuid.UUID) {
	view, err := BuildOverview(h.db.WithContext(c.Request.Context()), userID)
	if err != nil {
		h.respondError(c, err, "failed to load progress")
		return
	}
	response.Success(c, http.StatusOK, view, "", nil)
}

// BuildOverview aggregates a learner's enrolled courses from completion records.
func BuildOverview(db *gorm.DB, userID uuid.UUID) (Overview, error) {
	learner, err := user.Get(db, userID)
	if err != nil {
		return Overview{}, err
	}

	enrollments, err := enrollment.ForUser(db, userID)
	if err != nil {
		return Overview{}, err
	}

	courseIDs := make([]uuid.UUID, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}
	outlines, err := course.Outlines(db, courseIDs)
	if err != nil {
		return Overview{}, err
	}

	var videoIDs []uuid.UUID
	if len(courseIDs) > 0 {
		if err := db.Model(&completion.Record{}).
			Where("user_id = ? AND course_id IN ?", userID, courseIDs).
			Pluck("video_id", &videoIDs).Error; err != nil {
			return Overview{}, err
		}
	}

	return assembleOverview(learner, enrollments, outlines, videoIDs), nil
}

// assembleOverview lays out one row per enrollment. Completed ids outside the outlines are ignored.
func assembleOverview(learner user.User, enrollments []enrollment.Enrollment, outlines []core.Outline, videoIDs []uuid.UUID) Overview {
	computed := core.Aggregate(outlines, core.NewSet(videoIDs...))
	byCourse := make(map[uuid.UUID]core.CourseProgress, len(computed))
	for _, p := range computed {
		byCourse[p.CourseID] = p
	}

	views := make([]CourseView, 0, len(enrollments))
	for _, e := range enrollments {
		p, ok := byCourse[e.CourseID]
		if !ok {
			p = core.CourseProgress{CourseID: e.CourseID}
		}
		view := CourseView{
			CourseProgress: p,
			Status:         types.EnrollmentStatusFor(p.CompletedVideos, p.TotalVideos),
			EnrolledAt:     e.EnrolledAt,
			CompletedAt:    e.CompletedAt,
		}
		if e.Course != nil {
			view.CourseName = e.Course.Name
		}
		views = append(views, view)
	}

	return Overview{
		UserID:           learner.ID,
		Points:           learner.Points,
		MonthlyPoints:    learner.MonthlyPoints,
		CompletedCourses: learner.CompletedCourses,
		Summary:          core.Summarize(computed),
		Courses:          views,
	}
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, course.ErrCourseNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Course not found.", err)
	case errors.Is(err, user.ErrUserNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "User not found.", err)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
