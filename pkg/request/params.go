package request

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mo-amir99/elearning-server-go/pkg/apperrors"
)

// UUIDParam reads a path parameter as a UUID.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.Validation(fmt.Sprintf("Invalid %s.", name), map[string]string{name: "must be a UUID"})
	}
	return id, nil
}

// OptionalUUIDQuery reads a query parameter as a UUID. Empty values return nil.
func OptionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("Invalid %s.", name), map[string]string{name: "must be a UUID"})
	}
	return &id, nil
}

// BindingError converts a ShouldBind error into a validation AppError with per-field messages.
func BindingError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Validation("Invalid request body.", nil)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[lowerFirst(fe.Field())] = describeTag(fe)
	}
	return apperrors.Validation("Invalid request body.", fields)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "role":
		return "must be a valid role"
	case "videourl":
		return "must be a YouTube or Vimeo link"
	}
	return "is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
