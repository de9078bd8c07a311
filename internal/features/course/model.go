package course

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/core/progress"
	"github.com/mo-amir99/elearning-server-go/pkg/pagination"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
	"github.com/mo-amir99/elearning-server-go/pkg/validation"
)

const maxTags = 10

// Course is a catalog entry made of ordered modules.
type Course struct {
	types.BaseModel

	Name        string         `gorm:"type:varchar(120);not null;uniqueIndex" json:"name"`
	Description *string        `gorm:"type:varchar(2000)" json:"description,omitempty"`
	Category    *string        `gorm:"type:varchar(40);index" json:"category,omitempty"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags"`
	Image       *string        `gorm:"type:text" json:"image,omitempty"`
	Order       int            `gorm:"type:int;not null;default:0" json:"order"`
	Active      bool           `gorm:"type:boolean;not null;default:true;column:is_active" json:"isActive"`
}

// TableName overrides the default table name.
func (Course) TableName() string { return "courses" }

// ListFilters defines course query filters.
type ListFilters struct {
	Keyword    string
	Category   string
	Tag        string
	ActiveOnly bool
	IDs        []uuid.UUID
}

// CreateInput carries data for creating a new course.
type CreateInput struct {
	Name        string
	Description *string
	Category    *string
	Tags        []string
	Image       *string
	Order       *int
	Active      *bool
}

// UpdateInput captures mutable course fields.
type UpdateInput struct {
	Name             *string
	DescProvided     bool
	Description      *string
	CategoryProvided bool
	Category         *string
	TagsProvided     bool
	Tags             []string
	ImageProvided    bool
	Image            *string
	OrderProvided    bool
	Order            *int
	Active           *bool
}

// List retrieves paginated courses with filters.
func List(db *gorm.DB, filters ListFilters, params pagination.Params) ([]Course, int64, error) {
	query := db.Model(&Course{})

	if filters.Keyword != "" {
		keyword := "%" + strings.ToLower(filters.Keyword) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", keyword, keyword)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", strings.ToLower(filters.Category))
	}
	if filters.Tag != "" {
		query = query.Where("? = ANY(tags)", strings.ToLower(filters.Tag))
	}
	if filters.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filters.IDs != nil {
		query = query.Where("id IN ?", filters.IDs)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []Course
	err := query.
		Order("\"order\" ASC NULLS LAST, name ASC").
		Offset(params.Skip).
		Limit(params.Limit).
		Find(&courses).Error

	return courses, total, err
}

// Get retrieves a course by ID.
func Get(db *gorm.DB, id uuid.UUID) (Course, error) {
	var course Course
	if err := db.First(&course, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return course, ErrCourseNotFound
		}
		return course, err
	}
	return course, nil
}

// Create inserts a new course.
func Create(db *gorm.DB, input CreateInput) (Course, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Course{}, ErrNameRequired
	}

	category, err := normalizeCategory(input.Category)
	if err != nil {
		return Course{}, err
	}
	tags, err := normalizeTags(input.Tags)
	if err != nil {
		return Course{}, err
	}

	if input.Order != nil {
		if err := ensureOrderFree(db, *input.Order, uuid.Nil); err != nil {
			return Course{}, err
		}
	}

	course := Course{
		Name:        name,
		Description: input.Description,
		Category:    category,
		Tags:        tags,
		Image:       input.Image,
		Active:      true,
	}
	if input.Order != nil {
		course.Order = *input.Order
	}
	if input.Active != nil {
		course.Active = *input.Active
	}

	if err := db.Create(&course).Error; err != nil {
		if isDuplicate(err) {
			return Course{}, ErrNameTaken
		}
		return Course{}, err
	}

	return course, nil
}

// Update modifies an existing course.
func Update(db *gorm.DB, id uuid.UUID, input UpdateInput) (Course, error) {
	course, err := Get(db, id)
	if err != nil {
		return course, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return course, ErrNameRequired
		}
		course.Name = name
	}

	if input.DescProvided {
		course.Description = input.Description
	}

	if input.CategoryProvided {
		category, err := normalizeCategory(input.Category)
		if err != nil {
			return course, err
		}
		course.Category = category
	}

	if input.TagsProvided {
		tags, err := normalizeTags(input.Tags)
		if err != nil {
			return course, err
		}
		course.Tags = tags
	}

	if input.ImageProvided {
		course.Image = input.Image
	}

	if input.OrderProvided {
		if input.Order != nil {
			if err := ensureOrderFree(db, *input.Order, id); err != nil {
				return course, err
			}
			course.Order = *input.Order
		} else {
			course.Order = 0
		}
	}

	if input.Active != nil {
		course.Active = *input.Active
	}

	if err := db.Save(&course).Error; err != nil {
		if isDuplicate(err) {
			return course, ErrNameTaken
		}
		return course, err
	}

	return course, nil
}

// Delete removes a course. Modules, videos, completion records and enrollments cascade.
func Delete(db *gorm.DB, id uuid.UUID) error {
	result := db.Delete(&Course{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCourseNotFound
	}
	return nil
}

// Names maps course ids to names.
func Names(db *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var rows []struct {
		ID   uuid.UUID
		Name string
	}
	if err := db.Model(&Course{}).Select("id", "name").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names, nil
}

type outlineRow struct {
	ModuleID uuid.UUID
	VideoID  *uuid.UUID
}

// Outline loads the module/video structure of a course in display order.
func Outline(db *gorm.DB, id uuid.UUID) (progress.Outline, error) {
	outlines, err := Outlines(db, []uuid.UUID{id})
	if err != nil {
		return progress.Outline{}, err
	}
	if len(outlines) == 0 {
		var count int64
		if err := db.Model(&Course{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return progress.Outline{}, err
		}
		if count == 0 {
			return progress.Outline{}, ErrCourseNotFound
		}
		return progress.Outline{CourseID: id}, nil
	}
	return outlines[0], nil
}

// Outlines loads several course outlines at once, in the order of ids.
// Courses without modules are returned with an empty module list; unknown ids are skipped.
func Outlines(db *gorm.DB, ids []uuid.UUID) ([]progress.Outline, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var existing []uuid.UUID
	if err := db.Model(&Course{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return nil, err
	}
	known := progress.NewSet(existing...)

	var rows []struct {
		CourseID uuid.UUID
		ModuleID uuid.UUID
		VideoID  *uuid.UUID
	}
	err := db.Table("modules AS m").
		Select("m.course_id AS course_id, m.id AS module_id, v.id AS video_id").
		Joins("LEFT JOIN videos AS v ON v.module_id = m.id").
		Where("m.course_id IN ?", ids).
		Order("m.course_id, m.\"order\" ASC, m.created_at ASC, v.\"order\" ASC, v.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byCourse := make(map[uuid.UUID][]outlineRow, len(ids))
	for _, r := range rows {
		byCourse[r.CourseID] = append(byCourse[r.CourseID], outlineRow{ModuleID: r.ModuleID, VideoID: r.VideoID})
	}

	outlines := make([]progress.Outline, 0, len(ids))
	for _, id := range ids {
		if !known.Has(id) {
			continue
		}
		outlines = append(outlines, buildOutline(id, byCourse[id]))
	}
	return outlines, nil
}

func buildOutline(courseID uuid.UUID, rows []outlineRow) progress.Outline {
	outline := progress.Outline{CourseID: courseID}
	index := make(map[uuid.UUID]int)
	for _, r := range rows {
		i, ok := index[r.ModuleID]
		if !ok {
			i = len(outline.Modules)
			index[r.ModuleID] = i
			outline.Modules = append(outline.Modules, progress.ModuleOutline{ModuleID: r.ModuleID})
		}
		if r.VideoID != nil {
			outline.Modules[i].VideoIDs = append(outline.Modules[i].VideoIDs, *r.VideoID)
		}
	}
	return outline
}

func ensureOrderFree(db *gorm.DB, order int, exclude uuid.UUID) error {
	var count int64
	query := db.Model(&Course{}).Where("\"order\" = ?", order)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrOrderTaken
	}
	return nil
}

func normalizeCategory(value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	normalized, err := validation.NormalizeCategory(*value)
	if err != nil {
		return nil, ErrInvalidCategory
	}
	if normalized == "" {
		return nil, nil
	}
	return &normalized, nil
}

func normalizeTags(tags []string) (pq.StringArray, error) {
	out := make(pq.StringArray, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) > maxTags {
		return nil, ErrTooManyTags
	}
	return out, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate key")
}
