package ranking

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	core "github.com/mo-amir99/elearning-server-go/internal/core/ranking"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Scope restricts a leaderboard to one company's workers. A nil CompanyID means everyone.
type Scope struct {
	CompanyID *uuid.UUID
}

// Key identifies the scope inside cache keys.
func (s Scope) Key() string {
	if s.CompanyID == nil {
		return "global"
	}
	return "company:" + s.CompanyID.String()
}

// CandidateSource loads the learners a leaderboard is built from.
type CandidateSource interface {
	Candidates(ctx context.Context, scope Scope) ([]core.Candidate, error)
}

// GormSource reads candidates from the users table.
type GormSource struct {
	db *gorm.DB
}

// NewGormSource wraps db.
func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

// Candidates returns active learners in registration order, which is the tie order of last resort.
func (s *GormSource) Candidates(ctx context.Context, scope Scope) ([]core.Candidate, error) {
	query := s.db.WithContext(ctx).Model(&user.User{}).
		Select("id", "full_name", "role", "company_id", "points", "monthly_points", "completed_courses").
		Where("role IN ? AND is_active = ?", types.LearnerRoles, true)
	if scope.CompanyID != nil {
		query = query.Where("company_id = ?", *scope.CompanyID)
	}

	var users []user.User
	if err := query.Order("created_at ASC, id ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	candidates := make([]core.Candidate, 0, len(users))
	for _, u := range users {
		candidates = append(candidates, core.Candidate{
			UserID:           u.ID,
			FullName:         u.FullName,
			Role:             u.Role,
			CompanyID:        u.CompanyID,
			Points:           u.Points,
			MonthlyPoints:    u.MonthlyPoints,
			CompletedCourses: u.CompletedCourses,
		})
	}
	return candidates, nil
}
