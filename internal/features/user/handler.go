package user

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/pkg/pagination"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/response"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Handler processes user HTTP requests.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewHandler constructs a user handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// Me returns the signed-in user's profile.
func (h *Handler) Me(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)

	user, err := Get(h.db.WithContext(c.Request.Context()), requester.ID)
	if err != nil {
		h.respondError(c, err, "failed to load profile")
		return
	}

	response.Success(c, http.StatusOK, user, "", nil)
}

// List returns paginated users. Companies only see their own workers.
func (h *Handler) List(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)
	params := pagination.Extract(c)

	filters := ListFilters{Keyword: strings.TrimSpace(c.Query("filterKeyword"))}

	if raw := c.Query("role"); raw != "" {
		role, err := types.ParseRole(raw)
		if err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid role filter", err)
			return
		}
		filters.Roles = []types.Role{role}
	}

	switch requester.Role {
	case types.RoleCompany:
		filters.Roles = []types.Role{types.RoleWorker}
		filters.CompanyID = &requester.ID
	case types.RoleAdmin:
		companyID, err := request.OptionalUUIDQuery(c, "companyId")
		if err != nil {
			_ = c.Error(err)
			return
		}
		filters.CompanyID = companyID
	}

	users, total, err := List(h.db.WithContext(c.Request.Context()), filters, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to list users", err)
		return
	}

	response.Success(c, http.StatusOK, users, "", pagination.MetadataFrom(total, params))
}

type createRequest struct {
	FullName    string  `json:"fullName" binding:"required,min=2,max=100"`
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=8"`
	Role        string  `json:"role" binding:"required,role"`
	CompanyID   *string `json:"companyId"`
	CompanyName *string `json:"companyName"`
	Active      *bool   `json:"isActive"`
}

// Create inserts a new user. Companies may only create workers for themselves.
func (h *Handler) Create(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(request.BindingError(err))
		return
	}

	role := types.Role(strings.ToLower(req.Role))
	if !containsRole(CreatableRoles(requester.Role), role) {
		response.ErrorWithLog(h.logger, c, http.StatusForbidden, "You are not authorized to create a user with this role", nil)
		return
	}

	input := CreateInput{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		Role:        role,
		CompanyName: req.CompanyName,
		Active:      req.Active,
	}

	if role == types.RoleWorker {
		if requester.Role == types.RoleCompany {
			input.CompanyID = &requester.ID
		} else if req.CompanyID != nil {
			id, err := uuid.Parse(strings.TrimSpace(*req.CompanyID))
			if err != nil {
				response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid company id", err)
				return
			}
			input.CompanyID = &id
		}
	}

	user, err := Create(h.db.WithContext(c.Request.Context()), input)
	if err != nil {
		h.respondError(c, err, "failed to create user")
		return
	}

	h.logger.InfoContext(c.Request.Context(), "user created",
		slog.String("userId", user.ID.String()),
		slog.String("role", string(user.Role)),
		slog.String("createdBy", requester.ID.String()),
	)
	response.Created(c, user, "")
}

// GetByID fetches a single user the requester is allowed to see.
func (h *Handler) GetByID(c *gin.Context) {
	user, ok := h.loadManaged(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, user, "", nil)
}

// Update modifies an existing user. Only admins toggle activation.
func (h *Handler) Update(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)
	target, ok := h.loadManaged(c)
	if !ok {
		return
	}

	body := map[string]interface{}{}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid user payload", err)
		return
	}

	input := UpdateInput{}

	if value, ok := body["fullName"]; ok {
		str, err := request.ReadString(value)
		if err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "fullName must be a string", err)
			return
		}
		input.FullName = &str
	}

	if value, ok := body["email"]; ok {
		str, err := request.ReadString(value)
		if err != nil || !strings.Contains(str, "@") {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid email format", err)
			return
		}
		input.Email = &str
	}

	if value, ok := body["password"]; ok && value != nil {
		str, err := request.ReadString(value)
		if err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "password must be a string", err)
			return
		}
		input.Password = &str
	}

	if value, ok := body["companyName"]; ok {
		str, err := request.ReadString(value)
		if err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "companyName must be a string", err)
			return
		}
		input.CompanyName = &str
	}

	if value, ok := body["isActive"]; ok {
		active, err := request.ReadBool(value)
		if err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "isActive must be a boolean", err)
			return
		}
		if requester.ID == target.ID || !requester.Is(types.RoleAdmin, types.RoleCompany) {
			response.ErrorWithLog(h.logger, c, http.StatusForbidden, "You cannot change the activation of this account", nil)
			return
		}
		input.Active = &active
	}

	user, err := Update(h.db.WithContext(c.Request.Context()), target.ID, input)
	if err != nil {
		h.respondError(c, err, "failed to update user")
		return
	}

	response.Success(c, http.StatusOK, user, "", nil)
}

// Delete removes a user the requester manages. Users cannot delete themselves.
func (h *Handler) Delete(c *gin.Context) {
	requester, _ := middleware.GetUserFromContext(c)
	target, ok := h.loadManaged(c)
	if !ok {
		return
	}
	if target.ID == requester.ID {
		response.ErrorWithLog(h.logger, c, http.StatusForbidden, "You cannot delete your own account", nil)
		return
	}

	if err := Delete(h.db.WithContext(c.Request.Context()), target.ID); err != nil {
		h.respondError(c, err, "failed to delete user")
		return
	}

	response.Success(c, http.StatusOK, nil, "User deleted successfully", nil)
}

func (h *Handler) loadManaged(c *gin.Context) (User, bool) {
	requester, _ := middleware.GetUserFromContext(c)

	id, err := request.UUIDParam(c, "userId")
	if err != nil {
		_ = c.Error(err)
		return User{}, false
	}

	user, err := Get(h.db.WithContext(c.Request.Context()), id)
	if err != nil {
		h.respondError(c, err, "failed to load user")
		return User{}, false
	}

	if !CanManage(requester.ID, requester.Role, user) {
		response.ErrorWithLog(h.logger, c, http.StatusForbidden, "You are not authorized to access this user", nil)
		return User{}, false
	}
	return user, true
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "User not found.", err)
	case errors.Is(err, ErrEmailTaken):
		response.ErrorWithLog(h.logger, c, http.StatusConflict, "Email already exists.", err)
	case errors.Is(err, ErrCompanyNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Company not found.", err)
	case errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrFullNameRequired),
		errors.Is(err, ErrEmailRequired),
		errors.Is(err, ErrCompanyRequired),
		errors.Is(err, ErrCompanyNameMissing):
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, err.Error(), err)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}

func containsRole(roles []types.Role, target types.Role) bool {
	for _, r := range roles {
		if r == target {
			return true
		}
	}
	return false
}
