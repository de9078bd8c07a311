package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=3&limit=500", nil)

	p := Extract(c)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 200, p.Skip)
}

func TestNewDefaults(t *testing.T) {
	p := New(0, -4)
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit, Skip: 0}, p)
}

func TestMetadataFrom(t *testing.T) {
	m := MetadataFrom(41, New(2, 20))
	assert.Equal(t, 3, m.TotalPages)
	assert.True(t, m.HasNextPage)
	assert.True(t, m.HasPrevPage)

	m = MetadataFrom(0, New(1, 20))
	assert.Equal(t, 0, m.TotalPages)
	assert.False(t, m.HasNextPage)
}
