package ranking

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	core "github.com/mo-amir99/elearning-server-go/internal/core/ranking"
	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/pkg/apperrors"
	"github.com/mo-amir99/elearning-server-go/pkg/pagination"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/response"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

const (
	maxLimit            = 100
	finalSnapshotMaxAge = 24 * time.Hour
)

// Handler serves leaderboards and monthly snapshots.
type Handler struct {
	service      *Service
	logger       *slog.Logger
	defaultLimit int
}

// NewHandler constructs a ranking handler.
func NewHandler(service *Service, logger *slog.Logger, defaultLimit int) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &Handler{service: service, logger: logger, defaultLimit: defaultLimit}
}

type leaderboardView struct {
	Period  types.RankingPeriod `json:"period"`
	Scope   string              `json:"scope"`
	Total   int                 `json:"total"`
	Entries []core.Entry        `json:"entries"`
}

type positionView struct {
	Period types.RankingPeriod `json:"period"`
	Scope  string              `json:"scope"`
	Total  int                 `json:"total"`
	Entry  core.Entry          `json:"entry"`
}

// List returns the top of a leaderboard.
func (h *Handler) List(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)

	period, scope, err := h.parseQuery(c, requester)
	if err != nil {
		h.respondError(c, err, "failed to load leaderboard")
		return
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 1 {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "limit must be a positive number", convErr)
			return
		}
		limit = min(n, maxLimit)
	}

	entries, err := h.service.Leaderboard(c.Request.Context(), period, scope)
	if err != nil {
		h.respondError(c, err, "failed to load leaderboard")
		return
	}

	response.SuccessWithCache(c, leaderboardView{
		Period:  period,
		Scope:   scopeName(scope),
		Total:   len(entries),
		Entries: core.Top(entries, limit),
	}, nil, 0)
}

// Me returns the signed-in learner's position.
func (h *Handler) Me(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)
	if !requester.Role.IsLearner() {
		h.respondError(c, ErrNotRanked, "")
		return
	}

	period, scope, err := h.parseQuery(c, requester)
	if err != nil {
		h.respondError(c, err, "failed to load leaderboard")
		return
	}

	entries, err := h.service.Leaderboard(c.Request.Context(), period, scope)
	if err != nil {
		h.respondError(c, err, "failed to load leaderboard")
		return
	}

	entry, ok := core.Find(entries, requester.ID)
	if !ok {
		h.respondError(c, ErrNotRanked, "")
		return
	}

	response.Success(c, http.StatusOK, positionView{
		Period: period,
		Scope:  scopeName(scope),
		Total:  len(entries),
		Entry:  entry,
	}, "", nil)
}

// ListSnapshots returns archived months.
func (h *Handler) ListSnapshots(c *gin.Context) {
	params := pagination.Extract(c)
	snapshots, total, err := ListSnapshots(h.service.db.WithContext(c.Request.Context()), params)
	if err != nil {
		h.respondError(c, err, "failed to list ranking snapshots")
		return
	}
	response.Success(c, http.StatusOK, snapshots, "", pagination.MetadataFrom(total, params))
}

// GetSnapshot returns one archived month with its entries.
func (h *Handler) GetSnapshot(c *gin.Context) {
	period, err := ParseMonth(c.Param("period"))
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	snapshot, err := GetSnapshot(h.service.db.WithContext(c.Request.Context()), period)
	if err != nil {
		h.respondError(c, err, "failed to load ranking snapshot")
		return
	}

	entries, err := snapshot.DecodeEntries()
	if err != nil {
		h.respondError(c, err, "failed to load ranking snapshot")
		return
	}

	// A snapshot is final once its month was reset.
	maxAge := time.Duration(0)
	if snapshot.ResetPoints {
		maxAge = finalSnapshotMaxAge
	}
	response.SuccessWithCache(c, gin.H{
		"period":      snapshot.Period,
		"learners":    snapshot.Learners,
		"resetPoints": snapshot.ResetPoints,
		"generatedAt": snapshot.GeneratedAt,
		"entries":     entries,
	}, nil, maxAge)
}

// CreateSnapshot archives a month on demand. Monthly points are only reset when asked.
func (h *Handler) CreateSnapshot(c *gin.Context) {
	var req struct {
		Period       string `json:"period"`
		ResetMonthly bool   `json:"resetMonthly"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(request.BindingError(err))
		return
	}

	period := strings.TrimSpace(req.Period)
	if period == "" {
		period = MonthOf(h.service.now())
	}

	snapshot, err := h.service.Snapshot(c.Request.Context(), period, req.ResetMonthly)
	if err != nil {
		h.respondError(c, err, "failed to create ranking snapshot")
		return
	}

	snapshot.Entries = nil
	response.Created(c, snapshot, "Ranking snapshot created")
}

func (h *Handler) parseQuery(c *gin.Context, requester *middleware.User) (types.RankingPeriod, Scope, error) {
	period, err := types.ParseRankingPeriod(c.Query("period"))
	if err != nil {
		return "", Scope{}, ErrInvalidPeriod
	}

	switch strings.ToLower(strings.TrimSpace(c.Query("scope"))) {
	case "", "global":
		return period, Scope{}, nil
	case "company":
		companyID, err := h.companyFor(c, requester)
		if err != nil {
			return "", Scope{}, err
		}
		return period, Scope{CompanyID: &companyID}, nil
	}
	return "", Scope{}, ErrInvalidScope
}

func (h *Handler) companyFor(c *gin.Context, requester *middleware.User) (uuid.UUID, error) {
	switch requester.Role {
	case types.RoleCompany:
		return requester.ID, nil
	case types.RoleWorker:
		if requester.CompanyID != nil {
			return *requester.CompanyID, nil
		}
	case types.RoleAdmin:
		id, err := request.OptionalUUIDQuery(c, "companyId")
		if err != nil {
			return uuid.Nil, err
		}
		if id != nil {
			return *id, nil
		}
	}
	return uuid.Nil, ErrNoCompany
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Ranking snapshot not found.", err)
	case errors.Is(err, ErrNotRanked):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, err.Error(), err)
	case errors.Is(err, ErrSnapshotExists):
		response.ErrorWithLog(h.logger, c, http.StatusConflict, err.Error(), err)
	case errors.Is(err, ErrInvalidPeriod),
		errors.Is(err, ErrInvalidScope),
		errors.Is(err, ErrInvalidMonth),
		errors.Is(err, ErrNoCompany):
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, err.Error(), err)
	default:
		if _, ok := apperrors.As(err); ok {
			_ = c.Error(err)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}

func scopeName(scope Scope) string {
	if scope.CompanyID == nil {
		return "global"
	}
	return "company"
}
