package video

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/module"
	"github.com/mo-amir99/elearning-server-go/pkg/media"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Video is an externally hosted video inside a module.
type Video struct {
	types.BaseModel

	ModuleID        uuid.UUID           `gorm:"type:uuid;not null;column:module_id;index;uniqueIndex:idx_video_module_source,priority:1" json:"moduleId"`
	Title           string              `gorm:"type:varchar(200);not null" json:"title"`
	Description     *string             `gorm:"type:varchar(2000)" json:"description,omitempty"`
	Provider        types.VideoProvider `gorm:"type:varchar(20);not null;uniqueIndex:idx_video_module_source,priority:2" json:"provider"`
	ProviderVideoID string              `gorm:"type:varchar(64);not null;column:provider_video_id;uniqueIndex:idx_video_module_source,priority:3" json:"providerVideoId"`
	URL             string              `gorm:"type:varchar(500);not null" json:"url"`
	EmbedURL        string              `gorm:"type:varchar(500);not null;column:embed_url" json:"embedUrl"`
	ThumbnailURL    *string             `gorm:"type:varchar(500);column:thumbnail_url" json:"thumbnailUrl,omitempty"`
	Duration        int                 `gorm:"type:int;not null;default:0" json:"duration"` // seconds
	Order           int                 `gorm:"type:int;not null;default:0" json:"order"`

	Module *module.Module `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the default table name.
func (Video) TableName() string { return "videos" }

// CreateInput carries data for creating a video. Title and Duration fall back to
// the provider metadata when omitted.
type CreateInput struct {
	ModuleID    uuid.UUID
	Title       string
	Description *string
	Duration    *int
	Order       *int
	Metadata    media.Metadata
}

// UpdateInput captures mutable video fields. A new URL replaces the source.
type UpdateInput struct {
	Title        *string
	DescProvided bool
	Description  *string
	Duration     *int
	Order        *int
	Metadata     *media.Metadata
}

// ListByModule returns the videos of a module in display order.
func ListByModule(db *gorm.DB, moduleID uuid.UUID) ([]Video, error) {
	var videos []Video
	err := db.Where("module_id = ?", moduleID).
		Order("\"order\" ASC, created_at ASC").
		Find(&videos).Error
	return videos, err
}

// ListByModules returns the videos of several modules grouped by module id.
func ListByModules(db *gorm.DB, moduleIDs []uuid.UUID) (map[uuid.UUID][]Video, error) {
	grouped := make(map[uuid.UUID][]Video, len(moduleIDs))
	if len(moduleIDs) == 0 {
		return grouped, nil
	}

	var videos []Video
	if err := db.Where("module_id IN ?", moduleIDs).
		Order("\"order\" ASC, created_at ASC").
		Find(&videos).Error; err != nil {
		return nil, err
	}
	for _, v := range videos {
		grouped[v.ModuleID] = append(grouped[v.ModuleID], v)
	}
	return grouped, nil
}

// Get retrieves a video by ID.
func Get(db *gorm.DB, id uuid.UUID) (Video, error) {
	var video Video
	if err := db.First(&video, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return video, ErrVideoNotFound
		}
		return video, err
	}
	return video, nil
}

// GetForModule retrieves a video that belongs to moduleID.
func GetForModule(db *gorm.DB, id, moduleID uuid.UUID) (Video, error) {
	var video Video
	if err := db.First(&video, "id = ? AND module_id = ?", id, moduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return video, ErrVideoNotFound
		}
		return video, err
	}
	return video, nil
}

// Create inserts a video at the requested position, or after the last one.
func Create(db *gorm.DB, input CreateInput) (Video, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = strings.TrimSpace(input.Metadata.Title)
	}
	title, err := validateTitle(title)
	if err != nil {
		return Video{}, err
	}
	if input.Metadata.ID == "" {
		return Video{}, ErrURLRequired
	}

	if _, err := module.Get(db, input.ModuleID); err != nil {
		return Video{}, err
	}

	video := Video{
		ModuleID:    input.ModuleID,
		Title:       title,
		Description: input.Description,
	}
	applySource(&video, input.Metadata)

	if input.Duration != nil {
		if *input.Duration < 0 {
			return Video{}, ErrDurationInvalid
		}
		video.Duration = *input.Duration
	}

	if input.Order != nil {
		if *input.Order < 0 {
			return Video{}, ErrOrderInvalid
		}
		video.Order = *input.Order
	} else {
		next, err := nextOrder(db, input.ModuleID)
		if err != nil {
			return Video{}, err
		}
		video.Order = next
	}

	if err := db.Create(&video).Error; err != nil {
		if isDuplicate(err) {
			return Video{}, ErrDuplicateInModule
		}
		return Video{}, err
	}
	return video, nil
}

// Update modifies a video.
func Update(db *gorm.DB, video Video, input UpdateInput) (Video, error) {
	if input.Title != nil {
		title, err := validateTitle(*input.Title)
		if err != nil {
			return video, err
		}
		video.Title = title
	}
	if input.DescProvided {
		video.Description = input.Description
	}
	if input.Metadata != nil {
		applySource(&video, *input.Metadata)
	}
	if input.Duration != nil {
		if *input.Duration < 0 {
			return video, ErrDurationInvalid
		}
		video.Duration = *input.Duration
	}
	if input.Order != nil {
		if *input.Order < 0 {
			return video, ErrOrderInvalid
		}
		video.Order = *input.Order
	}

	if err := db.Save(&video).Error; err != nil {
		if isDuplicate(err) {
			return video, ErrDuplicateInModule
		}
		return video, err
	}
	return video, nil
}

// Delete removes a video and its completion records.
func Delete(db *gorm.DB, id uuid.UUID) error {
	result := db.Delete(&Video{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// CourseID resolves the course a module belongs to.
func CourseID(db *gorm.DB, moduleID uuid.UUID) (uuid.UUID, error) {
	mod, err := module.Get(db, moduleID)
	if err != nil {
		return uuid.Nil, err
	}
	return mod.CourseID, nil
}

func applySource(video *Video, meta media.Metadata) {
	video.Provider = meta.Provider
	video.ProviderVideoID = meta.ID
	video.URL = meta.CanonicalURL
	video.EmbedURL = meta.EmbedURL
	if meta.ThumbnailURL != "" {
		thumb := meta.ThumbnailURL
		video.ThumbnailURL = &thumb
	}
	if meta.DurationSeconds > 0 {
		video.Duration = meta.DurationSeconds
	}
}

func nextOrder(db *gorm.DB, moduleID uuid.UUID) (int, error) {
	var max *int
	if err := db.Model(&Video{}).
		Where("module_id = ?", moduleID).
		Select("MAX(\"order\")").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if n := utf8.RuneCountInString(title); n < 2 || n > 200 {
		return "", ErrTitleLength
	}
	return title, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate key")
}
