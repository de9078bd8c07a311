package ranking

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	core "github.com/mo-amir99/elearning-server-go/internal/core/ranking"
	"github.com/mo-amir99/elearning-server-go/pkg/pagination"
)

const monthLayout = "2006-01"

// MonthlySnapshot freezes the monthly leaderboard before monthly points are reset.
type MonthlySnapshot struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Period      string         `gorm:"type:varchar(7);not null;uniqueIndex" json:"period"`
	Entries     datatypes.JSON `gorm:"type:jsonb;not null" json:"entries,omitempty"`
	Learners    int            `gorm:"not null;default:0" json:"learners"`
	ResetPoints bool           `gorm:"not null;default:false;column:reset_points" json:"resetPoints"`
	GeneratedAt time.Time      `gorm:"not null;column:generated_at" json:"generatedAt"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"createdAt"`
}

// TableName overrides the default table name.
func (MonthlySnapshot) TableName() string { return "monthly_rankings" }

// DecodeEntries unpacks the stored leaderboard.
func (s MonthlySnapshot) DecodeEntries() ([]core.Entry, error) {
	if len(s.Entries) == 0 {
		return nil, nil
	}
	var entries []core.Entry
	if err := json.Unmarshal(s.Entries, &entries); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s.Period, err)
	}
	return entries, nil
}

// MonthOf formats t as a snapshot period.
func MonthOf(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

// PreviousMonth returns the period before the month t falls in.
func PreviousMonth(t time.Time) string {
	t = t.UTC()
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -1, 0).Format(monthLayout)
}

// ParseMonth validates a YYYY-MM period.
func ParseMonth(value string) (string, error) {
	t, err := time.Parse(monthLayout, value)
	if err != nil {
		return "", ErrInvalidMonth
	}
	return t.Format(monthLayout), nil
}

// ListSnapshots returns snapshot headers, newest first, without entries.
func ListSnapshots(db *gorm.DB, params pagination.Params) ([]MonthlySnapshot, int64, error) {
	var total int64
	if err := db.Model(&MonthlySnapshot{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var snapshots []MonthlySnapshot
	err := db.Select("id", "period", "learners", "reset_points", "generated_at", "created_at").
		Order("period DESC").
		Offset(params.Skip).
		Limit(params.Limit).
		Find(&snapshots).Error
	return snapshots, total, err
}

// GetSnapshot loads one month.
func GetSnapshot(db *gorm.DB, period string) (MonthlySnapshot, error) {
	var snapshot MonthlySnapshot
	if err := db.First(&snapshot, "period = ?", period).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return snapshot, ErrSnapshotNotFound
		}
		return snapshot, err
	}
	return snapshot, nil
}

// findSnapshot returns the stored period or nil. With lock the row stays locked until
// the transaction ends.
func findSnapshot(db *gorm.DB, period string, lock bool) (*MonthlySnapshot, error) {
	if lock {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var snapshots []MonthlySnapshot
	if err := db.Select("id", "period", "reset_points", "created_at").
		Where("period = ?", period).
		Limit(1).
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return &snapshots[0], nil
}
