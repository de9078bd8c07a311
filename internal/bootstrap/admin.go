package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/pkg/config"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

const defaultAdminName = "Administrator"

// EnsureDefaultAdmin creates or synchronizes the configured administrator account.
// Nothing happens when LMS_ADMIN_EMAIL is empty.
func EnsureDefaultAdmin(db *gorm.DB, cfg config.AdminConfig, logger *slog.Logger) error {
	email := user.NormalizeEmail(cfg.Email)
	if email == "" {
		logger.Info("default admin skipped", slog.String("env_var", "LMS_ADMIN_EMAIL"))
		return nil
	}
	name := strings.TrimSpace(cfg.FullName)
	if name == "" {
		name = defaultAdminName
	}

	existing, err := user.GetByEmail(db, email)
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		if _, createErr := user.Create(db, user.CreateInput{
			FullName: name,
			Email:    email,
			Password: cfg.Password,
			Role:     types.RoleAdmin,
		}); createErr != nil {
			if isUndefinedTableError(createErr) {
				logger.Warn("default admin skipped - users table missing", slog.String("email", email))
				return nil
			}
			return fmt.Errorf("create admin: %w", createErr)
		}
		logger.Info("default admin created", slog.String("email", email))
		return nil

	case err != nil:
		if isUndefinedTableError(err) {
			logger.Warn("default admin skipped - users table missing", slog.String("email", email))
			return nil
		}
		return fmt.Errorf("get admin: %w", err)
	}

	updates := map[string]interface{}{}

	if bcrypt.CompareHashAndPassword([]byte(existing.Password), []byte(cfg.Password)) != nil {
		hashed, hashErr := user.HashPassword(cfg.Password)
		if hashErr != nil {
			return fmt.Errorf("hash admin password: %w", hashErr)
		}
		updates["password"] = hashed
	}
	if existing.Role != types.RoleAdmin {
		updates["role"] = types.RoleAdmin
		updates["company_id"] = nil
	}
	if !existing.Active {
		updates["is_active"] = true
	}

	if len(updates) == 0 {
		logger.Info("default admin already up to date", slog.String("email", email))
		return nil
	}

	if err := db.Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("update admin: %w", err)
	}

	logger.Info("default admin synchronized", slog.String("email", email))
	return nil
}

func isUndefinedTableError(err error) bool {
	if err == nil {
		return false
	}

	message := err.Error()
	return strings.Contains(message, "relation \"users\" does not exist") ||
		strings.Contains(message, "no such table: users")
}
