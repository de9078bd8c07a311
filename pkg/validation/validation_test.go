package validation

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCategory(t *testing.T) {
	got, err := NormalizeCategory("  Data  Science ")
	require.NoError(t, err)
	assert.Equal(t, "data-science", got)

	got, err = NormalizeCategory("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NormalizeCategory("c++ / rust")
	assert.Error(t, err)
}

func TestRegisterBindings(t *testing.T) {
	require.NoError(t, RegisterBindings())
	require.NoError(t, RegisterBindings())

	type payload struct {
		Role string `binding:"required,role"`
		URL  string `binding:"required,videourl"`
	}

	v := binding.Validator.Engine().(*validator.Validate)

	assert.NoError(t, v.Struct(payload{Role: "worker", URL: "https://youtu.be/dQw4w9WgXcQ"}))

	err := v.Struct(payload{Role: "guest", URL: "https://example.com/video.mp4"})
	require.Error(t, err)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
}

func TestFieldErrorsUseJSONNames(t *testing.T) {
	require.NoError(t, RegisterBindings())

	type payload struct {
		VideoURL string `json:"url,omitempty" binding:"required"`
		Title    string `binding:"required"`
	}

	err := binding.Validator.Engine().(*validator.Validate).Struct(payload{})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, "url", verrs[0].Field())
	assert.Equal(t, "Title", verrs[1].Field())
}
