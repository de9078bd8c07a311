package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies what a user may do on the platform.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleCompany    Role = "company"
	RoleWorker     Role = "worker"
	RoleIndividual Role = "individual"
)

// Roles lists every role in descending order of privilege.
var Roles = []Role{RoleAdmin, RoleCompany, RoleWorker, RoleIndividual}

// LearnerRoles are the roles that watch videos, earn points and appear on leaderboards.
var LearnerRoles = []Role{RoleWorker, RoleIndividual}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCompany, RoleWorker, RoleIndividual:
		return true
	}
	return false
}

// IsLearner reports whether r records completions and collects points.
func (r Role) IsLearner() bool {
	return r == RoleWorker || r == RoleIndividual
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts user input into a Role.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", value)
	}
	return role, nil
}

// EnrollmentStatus tracks how far a learner got through a course.
type EnrollmentStatus string

const (
	EnrollmentStatusEnrolled   EnrollmentStatus = "enrolled"
	EnrollmentStatusInProgress EnrollmentStatus = "in_progress"
	EnrollmentStatusCompleted  EnrollmentStatus = "completed"
)

// EnrollmentStatusFor derives the status from completed and total video counts.
func EnrollmentStatusFor(completedVideos, totalVideos int) EnrollmentStatus {
	switch {
	case totalVideos > 0 && completedVideos >= totalVideos:
		return EnrollmentStatusCompleted
	case completedVideos > 0:
		return EnrollmentStatusInProgress
	default:
		return EnrollmentStatusEnrolled
	}
}

// VideoProvider names the external host of a video.
type VideoProvider string

const (
	VideoProviderYouTube VideoProvider = "youtube"
	VideoProviderVimeo   VideoProvider = "vimeo"
	VideoProviderOther   VideoProvider = "other"
)

// RankingPeriod selects the points metric a leaderboard is sorted by.
type RankingPeriod string

const (
	RankingPeriodAllTime RankingPeriod = "all_time"
	RankingPeriodMonthly RankingPeriod = "monthly"
)

// ParseRankingPeriod accepts the API spellings of a ranking period.
func ParseRankingPeriod(value string) (RankingPeriod, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all", "all_time", "alltime", "total":
		return RankingPeriodAllTime, nil
	case "monthly", "month":
		return RankingPeriodMonthly, nil
	}
	return "", fmt.Errorf("unknown ranking period %q", value)
}

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// TimestampModel contains only timestamp fields (for models with custom IDs)
type TimestampModel struct {
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}
