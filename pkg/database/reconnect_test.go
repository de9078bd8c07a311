package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsConnectionError(t *testing.T) {
	assert.True(t, isConnectionError(errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")))
	assert.True(t, isConnectionError(fmt.Errorf("query: %w", sql.ErrConnDone)))
	assert.False(t, isConnectionError(errors.New(`duplicate key value violates unique constraint "idx_completion_user_video"`)))
	assert.False(t, isConnectionError(nil))
}
