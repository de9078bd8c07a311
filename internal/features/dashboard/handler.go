package dashboard

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	core "github.com/mo-amir99/elearning-server-go/internal/core/ranking"
	"github.com/mo-amir99/elearning-server-go/internal/features/company"
	"github.com/mo-amir99/elearning-server-go/internal/features/completion"
	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/features/enrollment"
	"github.com/mo-amir99/elearning-server-go/internal/features/module"
	"github.com/mo-amir99/elearning-server-go/internal/features/progress"
	"github.com/mo-amir99/elearning-server-go/internal/features/ranking"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/internal/features/video"
	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/pkg/response"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

const topLearners = 5

type Handler struct {
	db       *gorm.DB
	logger   *slog.Logger
	rankings *ranking.Service
	logDir   string
	now      func() time.Time
}

func NewHandler(db *gorm.DB, logger *slog.Logger, rankings *ranking.Service, logDir string) *Handler {
	return &Handler{
		db:       db,
		logger:   logger,
		rankings: rankings,
		logDir:   logDir,
		now:      time.Now,
	}
}

// GetAdminDashboard returns platform-wide counters
// GET /dashboard/admin
func (h *Handler) GetAdminDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)
	now := h.now()

	var roleRows []struct {
		Role  types.Role
		Total int64
	}
	if err := db.Model(&user.User{}).Select("role, COUNT(*) AS total").Group("role").Scan(&roleRows).Error; err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to retrieve dashboard data", err)
		return
	}
	usersByRole := make(map[types.Role]int64, len(types.Roles))
	for _, r := range types.Roles {
		usersByRole[r] = 0
	}
	for _, row := range roleRows {
		usersByRole[row.Role] = row.Total
	}

	var coursesCount, activeCourses, modulesCount, videosCount, recentSignups int64
	if err := db.Model(&course.Course{}).Count(&coursesCount).Error; err != nil {
		h.logger.Error("failed to count courses", slog.String("error", err.Error()))
	}
	if err := db.Model(&course.Course{}).Where("is_active = ?", true).Count(&activeCourses).Error; err != nil {
		h.logger.Error("failed to count active courses", slog.String("error", err.Error()))
	}
	if err := db.Model(&module.Module{}).Count(&modulesCount).Error; err != nil {
		h.logger.Error("failed to count modules", slog.String("error", err.Error()))
	}
	if err := db.Model(&video.Video{}).Count(&videosCount).Error; err != nil {
		h.logger.Error("failed to count videos", slog.String("error", err.Error()))
	}
	if err := db.Model(&user.User{}).Where("created_at >= ?", now.AddDate(0, 0, -7)).Count(&recentSignups).Error; err != nil {
		h.logger.Error("failed to count recent signups", slog.String("error", err.Error()))
	}

	statuses, err := enrollment.StatusCounts(db, nil)
	if err != nil {
		h.logger.Error("failed to count enrollments", slog.String("error", err.Error()))
	}
	completionsThisWeek, err := completion.CountSince(db, now.AddDate(0, 0, -7), nil)
	if err != nil {
		h.logger.Error("failed to count completions", slog.String("error", err.Error()))
	}

	response.Success(c, http.StatusOK, gin.H{
		"usersByRole":         usersByRole,
		"recentSignups":       recentSignups,
		"coursesCount":        coursesCount,
		"activeCoursesCount":  activeCourses,
		"modulesCount":        modulesCount,
		"videosCount":         videosCount,
		"enrollments":         statuses,
		"completionsThisWeek": completionsThisWeek,
		"topLearners":         h.top(c, types.RankingPeriodAllTime, ranking.Scope{}),
		"topThisMonth":        h.top(c, types.RankingPeriodMonthly, ranking.Scope{}),
	}, "", nil)
}

// GetCompanyDashboard returns the company's worker summary and internal leaderboard
// GET /dashboard/company
func (h *Handler) GetCompanyDashboard(c *gin.Context) {
	currentUser, ok := middleware.GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required.", nil)
		return
	}
	if currentUser.Role != types.RoleCompany {
		response.Error(c, http.StatusForbidden, "Only company accounts have a company dashboard.", nil)
		return
	}

	report, err := company.BuildReport(h.db.WithContext(c.Request.Context()), currentUser.ID, h.now().UTC())
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to load dashboard data", err)
		return
	}

	scope := ranking.Scope{CompanyID: &currentUser.ID}
	response.Success(c, http.StatusOK, gin.H{
		"companyName":           report.CompanyName,
		"workersCount":          len(report.Workers),
		"activeWorkersCount":    report.ActiveWorkers,
		"summary":               report.Summary,
		"enrollments":           report.Statuses,
		"completionsLast30Days": report.RecentlyDone,
		"topLearners":           h.top(c, types.RankingPeriodAllTime, scope),
		"topThisMonth":          h.top(c, types.RankingPeriodMonthly, scope),
	}, "", nil)
}

// GetLearnerDashboard returns the caller's progress, points and ranks
// GET /dashboard/me
func (h *Handler) GetLearnerDashboard(c *gin.Context) {
	currentUser, ok := middleware.GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required.", nil)
		return
	}

	overview, err := progress.BuildOverview(h.db.WithContext(c.Request.Context()), currentUser.ID)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to load dashboard data", err)
		return
	}

	inProgress := make([]progress.CourseView, 0)
	for _, cv := range overview.Courses {
		if cv.Status == types.EnrollmentStatusInProgress {
			inProgress = append(inProgress, cv)
		}
	}

	response.Success(c, http.StatusOK, gin.H{
		"progress":      overview,
		"continue":      inProgress,
		"globalRank":    h.rankOf(c, types.RankingPeriodAllTime, ranking.Scope{}, currentUser),
		"monthlyRank":   h.rankOf(c, types.RankingPeriodMonthly, ranking.Scope{}, currentUser),
		"companyRank":   h.companyRank(c, currentUser),
		"pointsBalance": gin.H{"allTime": overview.Points, "monthly": overview.MonthlyPoints},
	}, "", nil)
}

func (h *Handler) top(c *gin.Context, period types.RankingPeriod, scope ranking.Scope) []core.Entry {
	if h.rankings == nil {
		return []core.Entry{}
	}
	entries, err := h.rankings.Leaderboard(c.Request.Context(), period, scope)
	if err != nil {
		h.logger.Warn("dashboard leaderboard unavailable", slog.String("period", string(period)), slog.String("error", err.Error()))
		return []core.Entry{}
	}
	return core.Top(entries, topLearners)
}

func (h *Handler) rankOf(c *gin.Context, period types.RankingPeriod, scope ranking.Scope, usr *middleware.User) *core.Entry {
	if h.rankings == nil {
		return nil
	}
	entries, err := h.rankings.Leaderboard(c.Request.Context(), period, scope)
	if err != nil {
		h.logger.Warn("dashboard rank unavailable", slog.String("period", string(period)), slog.String("error", err.Error()))
		return nil
	}
	if entry, ok := core.Find(entries, usr.ID); ok {
		return &entry
	}
	return nil
}

func (h *Handler) companyRank(c *gin.Context, usr *middleware.User) *core.Entry {
	if usr.Role != types.RoleWorker || usr.CompanyID == nil {
		return nil
	}
	return h.rankOf(c, types.RankingPeriodAllTime, ranking.Scope{CompanyID: usr.CompanyID}, usr)
}

// GetSystemLogs returns the last N lines from info.log or error.log
// GET /dashboard/logs?type=info|error&lines=100
func (h *Handler) GetSystemLogs(c *gin.Context) {
	logType := c.DefaultQuery("type", "info")
	if logType != "info" && logType != "error" {
		logType = "info"
	}

	lines, err := strconv.Atoi(c.DefaultQuery("lines", "100"))
	if err != nil {
		lines = 100
	}
	lines = max(10, min(lines, 1000))

	logFile := filepath.Join(h.logDir, fmt.Sprintf("%s.log", logType))
	tail, err := tailFile(logFile, lines)
	if errors.Is(err, os.ErrNotExist) {
		response.Error(c, http.StatusNotFound, fmt.Sprintf("Log file not found: %s.log", logType), nil)
		return
	}
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to read log file", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"type":  logType,
		"lines": len(tail),
		"log":   tail,
	}, "", nil)
}

// tailFile keeps only the last n lines in memory while scanning.
func tailFile(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ring, nil
}

// ClearLogs truncates all log files in the log directory
// POST /dashboard/logs/clear
func (h *Handler) ClearLogs(c *gin.Context) {
	files, err := os.ReadDir(h.logDir)
	if errors.Is(err, os.ErrNotExist) {
		response.Error(c, http.StatusNotFound, "Logs directory not found", nil)
		return
	}
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to read logs directory", err)
		return
	}

	cleared := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".log") {
			continue
		}
		if err := os.Truncate(filepath.Join(h.logDir, file.Name()), 0); err != nil {
			h.logger.Warn("failed to clear log file", slog.String("file", file.Name()), slog.String("error", err.Error()))
			continue
		}
		cleared++
	}

	response.Success(c, http.StatusOK, gin.H{"cleared": cleared}, fmt.Sprintf("Cleared %d log files.", cleared), nil)
}

// GetSystemStats returns memory, CPU and the free space left for log files
// GET /dashboard/system-stats
func (h *Handler) GetSystemStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	logDir, err := filepath.Abs(h.logDir)
	if err != nil {
		logDir = h.logDir
	}

	response.Success(c, http.StatusOK, gin.H{
		"memory": gin.H{
			"total": m.Sys,
			"used":  m.Alloc,
			"free":  m.Sys - m.Alloc,
		},
		"cpu": gin.H{
			"numCPU":     runtime.NumCPU(),
			"goroutines": runtime.NumGoroutine(),
		},
		"disk": diskStats(logDir),
	}, "", nil)
}

// DiskStats is the free and total bytes of one filesystem.
type DiskStats struct {
	Free uint64 `json:"free"`
	Size uint64 `json:"size"`
	Path string `json:"path"`
}
