package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/pkg/pagination"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

const (
	minPasswordLength = 8
	bcryptCost        = 10
)

// User is an account of any role. Learner counters are maintained by the completion tracker.
type User struct {
	types.BaseModel

	FullName     string     `gorm:"type:varchar(100);not null;column:full_name" json:"fullName"`
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Password     string     `gorm:"type:varchar(255);not null" json:"-"`
	Role         types.Role `gorm:"type:varchar(20);not null;default:'individual';index;index:idx_users_role_active,priority:1" json:"role"`
	CompanyID    *uuid.UUID `gorm:"type:uuid;column:company_id;index" json:"companyId,omitempty"`
	CompanyName  *string    `gorm:"type:varchar(150);column:company_name" json:"companyName,omitempty"`
	RefreshToken *string    `gorm:"type:text;column:refresh_token" json:"-"`
	Active       bool       `gorm:"type:boolean;not null;default:true;column:is_active;index:idx_users_role_active,priority:2" json:"isActive"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"lastLoginAt,omitempty"`

	Points           int `gorm:"not null;default:0;index" json:"points"`
	MonthlyPoints    int `gorm:"not null;default:0;column:monthly_points;index" json:"monthlyPoints"`
	CompletedCourses int `gorm:"not null;default:0;column:completed_courses" json:"completedCourses"`
	EnrolledCourses  int `gorm:"not null;default:0;column:enrolled_courses" json:"enrolledCourses"`

	Company *User `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"company,omitempty"`
}

// TableName overrides the default table name.
func (User) TableName() string { return "users" }

// ListFilters defines user query filters.
type ListFilters struct {
	Keyword   string
	Roles     []types.Role
	CompanyID *uuid.UUID
	Active    *bool
	ExcludeID *uuid.UUID
}

// CreateInput carries data for creating a new user.
type CreateInput struct {
	FullName    string
	Email       string
	Password    string
	Role        types.Role
	CompanyID   *uuid.UUID
	CompanyName *string
	Active      *bool
}

// UpdateInput captures mutable user fields.
type UpdateInput struct {
	FullName    *string
	Email       *string
	Password    *string
	CompanyName *string
	Active      *bool
}

// List queries users with filters and pagination.
func List(db *gorm.DB, filters ListFilters, params pagination.Params) ([]User, int64, error) {
	query := db.Model(&User{})

	if filters.Keyword != "" {
		keyword := "%" + strings.ToLower(filters.Keyword) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company_name) LIKE ?",
			keyword, keyword, keyword)
	}
	if len(filters.Roles) > 0 {
		query = query.Where("role IN ?", filters.Roles)
	}
	if filters.CompanyID != nil {
		query = query.Where("company_id = ?", *filters.CompanyID)
	}
	if filters.Active != nil {
		query = query.Where("is_active = ?", *filters.Active)
	}
	if filters.ExcludeID != nil {
		query = query.Where("id <> ?", *filters.ExcludeID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []User
	if err := query.Order("created_at DESC").Scopes(params.Scope()).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Workers returns every worker of a company ordered by name.
func Workers(db *gorm.DB, companyID uuid.UUID) ([]User, error) {
	var workers []User
	err := db.Where("company_id = ? AND role = ?", companyID, types.RoleWorker).
		Order("full_name ASC").
		Find(&workers).Error
	return workers, err
}

// Get retrieves a user by ID.
func Get(db *gorm.DB, id uuid.UUID) (User, error) {
	var user User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

// GetByEmail retrieves a user by email.
func GetByEmail(db *gorm.DB, email string) (User, error) {
	var user User
	if err := db.First(&user, "email = ?", NormalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

// Create inserts a new user with hashed password.
func Create(db *gorm.DB, input CreateInput) (User, error) {
	if !input.Role.Valid() {
		return User{}, ErrInvalidRole
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return User{}, ErrFullNameRequired
	}
	email := NormalizeEmail(input.Email)
	if email == "" {
		return User{}, ErrEmailRequired
	}

	hashed, err := HashPassword(input.Password)
	if err != nil {
		return User{}, err
	}

	user := User{
		FullName: fullName,
		Email:    email,
		Password: hashed,
		Role:     input.Role,
		Active:   true,
	}
	if input.Active != nil {
		user.Active = *input.Active
	}

	switch input.Role {
	case types.RoleWorker:
		if input.CompanyID == nil {
			return User{}, ErrCompanyRequired
		}
		company, err := Get(db, *input.CompanyID)
		if err != nil || company.Role != types.RoleCompany {
			return User{}, ErrCompanyNotFound
		}
		user.CompanyID = input.CompanyID
	case types.RoleCompany:
		name := trimStringPtr(input.CompanyName)
		if name == nil {
			return User{}, ErrCompanyNameMissing
		}
		user.CompanyName = name
	}

	if err := db.Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return user, ErrEmailTaken
		}
		return user, err
	}

	return user, nil
}

// Update modifies an existing user.
func Update(db *gorm.DB, id uuid.UUID, input UpdateInput) (User, error) {
	user, err := Get(db, id)
	if err != nil {
		return user, err
	}

	updates := map[string]interface{}{}

	if input.FullName != nil {
		trimmed := strings.TrimSpace(*input.FullName)
		if trimmed == "" {
			return user, ErrFullNameRequired
		}
		updates["full_name"] = trimmed
	}

	if input.Email != nil {
		email := NormalizeEmail(*input.Email)
		if email == "" {
			return user, ErrEmailRequired
		}
		updates["email"] = email
	}

	if input.Password != nil {
		hashed, err := HashPassword(*input.Password)
		if err != nil {
			return user, err
		}
		updates["password"] = hashed
		updates["refresh_token"] = nil
	}

	if input.CompanyName != nil {
		if user.Role != types.RoleCompany {
			return user, ErrInvalidRole
		}
		name := trimStringPtr(input.CompanyName)
		if name == nil {
			return user, ErrCompanyNameMissing
		}
		updates["company_name"] = *name
	}

	if input.Active != nil {
		updates["is_active"] = *input.Active
	}

	if len(updates) > 0 {
		if err := db.Model(&User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			if isDuplicate(err) {
				return user, ErrEmailTaken
			}
			return user, err
		}
	}

	return Get(db, id)
}

// Delete removes a user. Workers of a deleted company are removed by the foreign key.
func Delete(db *gorm.DB, id uuid.UUID) error {
	result := db.Delete(&User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetRefreshToken stores or clears the active refresh token.
func SetRefreshToken(db *gorm.DB, id uuid.UUID, token *string) error {
	return db.Model(&User{}).Where("id = ?", id).Update("refresh_token", token).Error
}

// TouchLogin records a successful login.
func TouchLogin(db *gorm.DB, id uuid.UUID, at time.Time) error {
	return db.Model(&User{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// ComparePassword checks if the provided password matches the user's hashed password.
func (u *User) ComparePassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// HashPassword validates the length and bcrypt-hashes a password.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrInvalidPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CanManage reports whether actor may view or change target.
// Admins manage everyone, companies manage their own workers, everyone manages themselves.
func CanManage(actorID uuid.UUID, actorRole types.Role, target User) bool {
	switch {
	case actorID == target.ID:
		return true
	case actorRole == types.RoleAdmin:
		return true
	case actorRole == types.RoleCompany:
		return target.Role == types.RoleWorker && target.CompanyID != nil && *target.CompanyID == actorID
	}
	return false
}

// CreatableRoles lists the roles actorRole may create accounts for.
func CreatableRoles(actorRole types.Role) []types.Role {
	switch actorRole {
	case types.RoleAdmin:
		return types.Roles
	case types.RoleCompany:
		return []types.Role{types.RoleWorker}
	}
	return nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate key")
}

func trimStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
