package module

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Module groups the videos of a course.
type Module struct {
	types.BaseModel

	CourseID    uuid.UUID `gorm:"type:uuid;not null;column:course_id;index" json:"courseId"`
	Name        string    `gorm:"type:varchar(120);not null" json:"name"`
	Description *string   `gorm:"type:varchar(1000)" json:"description,omitempty"`
	Order       int       `gorm:"type:int;not null;default:0" json:"order"`

	Course *course.Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the default table name.
func (Module) TableName() string { return "modules" }

// CreateInput carries data for creating a module.
type CreateInput struct {
	CourseID    uuid.UUID
	Name        string
	Description *string
	Order       *int
}

// UpdateInput captures mutable module fields.
type UpdateInput struct {
	Name         *string
	DescProvided bool
	Description  *string
	Order        *int
}

// ListByCourse returns the modules of a course in display order.
func ListByCourse(db *gorm.DB, courseID uuid.UUID) ([]Module, error) {
	var modules []Module
	err := db.Where("course_id = ?", courseID).
		Order("\"order\" ASC, created_at ASC").
		Find(&modules).Error
	return modules, err
}

// Get retrieves a module by ID.
func Get(db *gorm.DB, id uuid.UUID) (Module, error) {
	var mod Module
	if err := db.First(&mod, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return mod, ErrModuleNotFound
		}
		return mod, err
	}
	return mod, nil
}

// GetForCourse retrieves a module that belongs to courseID.
func GetForCourse(db *gorm.DB, id, courseID uuid.UUID) (Module, error) {
	var mod Module
	if err := db.First(&mod, "id = ? AND course_id = ?", id, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return mod, ErrModuleNotFound
		}
		return mod, err
	}
	return mod, nil
}

// Create inserts a module. Without an explicit order it is appended after the last one.
func Create(db *gorm.DB, input CreateInput) (Module, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return Module{}, err
	}

	if _, err := course.Get(db, input.CourseID); err != nil {
		return Module{}, err
	}

	mod := Module{
		CourseID:    input.CourseID,
		Name:        name,
		Description: input.Description,
	}

	if input.Order != nil {
		if *input.Order < 0 {
			return Module{}, ErrOrderInvalid
		}
		mod.Order = *input.Order
	} else {
		next, err := nextOrder(db, input.CourseID)
		if err != nil {
			return Module{}, err
		}
		mod.Order = next
	}

	if err := db.Create(&mod).Error; err != nil {
		return Module{}, err
	}
	return mod, nil
}

// Update modifies a module.
func Update(db *gorm.DB, mod Module, input UpdateInput) (Module, error) {
	if input.Name != nil {
		name, err := validateName(*input.Name)
		if err != nil {
			return mod, err
		}
		mod.Name = name
	}
	if input.DescProvided {
		mod.Description = input.Description
	}
	if input.Order != nil {
		if *input.Order < 0 {
			return mod, ErrOrderInvalid
		}
		mod.Order = *input.Order
	}

	if err := db.Save(&mod).Error; err != nil {
		return mod, err
	}
	return mod, nil
}

// Delete removes a module and, by cascade, its videos and their completion records.
func Delete(db *gorm.DB, id uuid.UUID) error {
	result := db.Delete(&Module{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrModuleNotFound
	}
	return nil
}

func nextOrder(db *gorm.DB, courseID uuid.UUID) (int, error) {
	var max *int
	if err := db.Model(&Module{}).
		Where("course_id = ?", courseID).
		Select("MAX(\"order\")").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrNameRequired
	}
	if n := utf8.RuneCountInString(name); n < 2 || n > 120 {
		return "", ErrNameLength
	}
	return name, nil
}
