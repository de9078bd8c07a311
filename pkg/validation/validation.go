package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/mo-amir99/elearning-server-go/pkg/media"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

var categoryRegex = regexp.MustCompile(`^[a-z0-9-]{2,40}$`)

// NormalizeCategory converts a course category to its lowercase slug form.
// Valid categories are 2-40 characters of lowercase letters, numbers and hyphens.
func NormalizeCategory(value string) (string, error) {
	normalized := strings.Join(strings.Fields(strings.ToLower(value)), "-")
	if normalized == "" {
		return "", nil
	}
	if !categoryRegex.MatchString(normalized) {
		return "", fmt.Errorf("invalid category. Use 2-40 characters (letters, numbers, hyphens)")
	}
	return normalized, nil
}

var registerOnce sync.Once

// RegisterBindings adds the custom `binding` tags used by request structs:
//
//	role      a known user role
//	videourl  a YouTube or Vimeo link
//
// Field errors are reported under their JSON names.
func RegisterBindings() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		v.RegisterTagNameFunc(jsonName)
		if err = v.RegisterValidation("role", validateRole); err != nil {
			return
		}
		err = v.RegisterValidation("videourl", validateVideoURL)
	})
	return err
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}

func validateRole(fl validator.FieldLevel) bool {
	return types.Role(fl.Field().String()).Valid()
}

func validateVideoURL(fl validator.FieldLevel) bool {
	_, err := media.Parse(fl.Field().String())
	return err == nil
}
