package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Worker ")
	require.NoError(t, err)
	assert.Equal(t, RoleWorker, role)
	assert.True(t, role.IsLearner())

	_, err = ParseRole("superadmin")
	assert.Error(t, err)
}

func TestRoleIsLearner(t *testing.T) {
	assert.False(t, RoleAdmin.IsLearner())
	assert.False(t, RoleCompany.IsLearner())
	assert.True(t, RoleIndividual.IsLearner())
}

func TestEnrollmentStatusFor(t *testing.T) {
	assert.Equal(t, EnrollmentStatusEnrolled, EnrollmentStatusFor(0, 4))
	assert.Equal(t, EnrollmentStatusInProgress, EnrollmentStatusFor(1, 4))
	assert.Equal(t, EnrollmentStatusInProgress, EnrollmentStatusFor(199, 200))
	assert.Equal(t, EnrollmentStatusCompleted, EnrollmentStatusFor(4, 4))
	assert.Equal(t, EnrollmentStatusEnrolled, EnrollmentStatusFor(0, 0))
}

func TestParseRankingPeriod(t *testing.T) {
	p, err := ParseRankingPeriod("")
	require.NoError(t, err)
	assert.Equal(t, RankingPeriodAllTime, p)

	p, err = ParseRankingPeriod("Monthly")
	require.NoError(t, err)
	assert.Equal(t, RankingPeriodMonthly, p)

	_, err = ParseRankingPeriod("weekly")
	assert.Error(t, err)
}
