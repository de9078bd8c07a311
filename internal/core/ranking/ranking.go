// Package ranking orders learners into leaderboards.
package ranking

import (
	"sort"

	"github.com/google/uuid"

	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Candidate is a learner eligible for a leaderboard.
type Candidate struct {
	UserID           uuid.UUID  `json:"userId"`
	FullName         string     `json:"fullName"`
	Role             types.Role `json:"role"`
	CompanyID        *uuid.UUID `json:"companyId,omitempty"`
	Points           int        `json:"points"`
	MonthlyPoints    int        `json:"monthlyPoints"`
	CompletedCourses int        `json:"completedCourses"`
}

// Score returns the points that count for period.
func (c Candidate) Score(period types.RankingPeriod) int {
	if period == types.RankingPeriodMonthly {
		return c.MonthlyPoints
	}
	return c.Points
}

// Entry is one row of a leaderboard.
type Entry struct {
	Rank             int        `json:"rank"`
	UserID           uuid.UUID  `json:"userId"`
	FullName         string     `json:"fullName"`
	Role             types.Role `json:"role"`
	CompanyID        *uuid.UUID `json:"companyId,omitempty"`
	Score            int        `json:"score"`
	Points           int        `json:"points"`
	MonthlyPoints    int        `json:"monthlyPoints"`
	CompletedCourses int        `json:"completedCourses"`
}

// Build sorts candidates by the period's points, then by completed courses, both descending.
// Equal keys keep their input order. Ranks are 1-based positions.
func Build(candidates []Candidate, period types.RankingPeriod) []Entry {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := sorted[i].Score(period), sorted[j].Score(period)
		if si != sj {
			return si > sj
		}
		return sorted[i].CompletedCourses > sorted[j].CompletedCourses
	})

	entries := make([]Entry, len(sorted))
	for i, c := range sorted {
		entries[i] = Entry{
			Rank:             i + 1,
			UserID:           c.UserID,
			FullName:         c.FullName,
			Role:             c.Role,
			CompanyID:        c.CompanyID,
			Score:            c.Score(period),
			Points:           c.Points,
			MonthlyPoints:    c.MonthlyPoints,
			CompletedCourses: c.CompletedCourses,
		}
	}
	return entries
}

// Top returns at most n entries. n <= 0 returns all of them.
func Top(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}

// Find returns the entry for userID.
func Find(entries []Entry, userID uuid.UUID) (Entry, bool) {
	for _, e := range entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return Entry{}, false
}
