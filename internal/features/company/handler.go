package company

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/pkg/apperrors"
	"github.com/mo-amir99/elearning-server-go/pkg/export"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/response"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Handler serves company-wide progress views.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewHandler constructs a company handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger, now: time.Now}
}

// Overview returns the progress of every worker of the company as JSON.
func (h *Handler) Overview(c *gin.Context) {
	report, ok := h.build(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, report, "", nil)
}

// Report streams the same data as an .xlsx workbook.
func (h *Handler) Report(c *gin.Context) {
	report, ok := h.build(c)
	if !ok {
		return
	}

	book, err := export.NewWorkbook(report.Sheets())
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to render report", err)
		return
	}
	defer book.Close()

	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename()))
	c.Status(http.StatusOK)
	if _, err := book.WriteTo(c.Writer); err != nil {
		h.logger.Error("failed to stream report",
			slog.String("companyId", report.CompanyID.String()),
			slog.String("error", err.Error()))
	}
}

func (h *Handler) build(c *gin.Context) (Report, bool) {
	companyID, err := h.companyFor(c)
	if err != nil {
		h.respondError(c, err, "")
		return Report{}, false
	}

	report, err := BuildReport(h.db.WithContext(c.Request.Context()), companyID, h.now().UTC())
	if err != nil {
		h.respondError(c, err, "failed to build company report")
		return Report{}, false
	}
	return report, true
}

// companyFor resolves whose workers are reported: a company sees its own, an admin names one.
func (h *Handler) companyFor(c *gin.Context) (uuid.UUID, error) {
	requester, ok := middleware.GetUserFromContext(c)
	if !ok {
		return uuid.Nil, ErrNotCompanyMember
	}

	switch requester.Role {
	case types.RoleCompany:
		return requester.ID, nil
	case types.RoleAdmin:
		id, err := request.OptionalUUIDQuery(c, "companyId")
		if err != nil {
			return uuid.Nil, err
		}
		if id == nil {
			return uuid.Nil, ErrCompanyRequired
		}
		return *id, nil
	}
	return uuid.Nil, ErrNotCompanyMember
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := apperrors.As(err); ok {
		_ = c.Error(appErr)
		return
	}

	switch {
	case errors.Is(err, ErrCompanyNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Company not found.", err)
	case errors.Is(err, ErrCompanyRequired):
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, ErrNotCompanyMember):
		response.ErrorWithLog(h.logger, c, http.StatusForbidden, err.Error(), err)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
