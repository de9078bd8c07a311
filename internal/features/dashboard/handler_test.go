package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/elearning-server-go/pkg/logger"
)

func TestTailFileKeepsLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.log")
	var b strings.Builder
	for i := 1; i <= 25; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	tail, err := tailFile(path, 10)
	require.NoError(t, err)
	require.Len(t, tail, 10)
	assert.Equal(t, "line 16", tail[0])
	assert.Equal(t, "line 25", tail[9])
}

func TestGetSystemLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "error.log"), []byte("{\"msg\":\"boom\"}\n"), 0o644))

	h := NewHandler(nil, logger.Discard(), nil, dir)
	router := gin.New()
	router.GET("/logs", h.GetSystemLogs)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs?type=error&lines=5", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Type  string   `json:"type"`
			Lines int      `json:"lines"`
			Log   []string `json:"log"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Data.Type)
	assert.Equal(t, []string{"{\"msg\":\"boom\"}"}, body.Data.Log)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs?type=info", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearLogsTruncatesLogFiles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "info.log"), []byte("a\nb\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	h := NewHandler(nil, logger.Discard(), nil, dir)
	router := gin.New()
	router.POST("/logs/clear", h.ClearLogs)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/logs/clear", nil))
	require.Equal(t, http.StatusOK, w.Code)

	info, err := os.ReadFile(filepath.Join(dir, "info.log"))
	require.NoError(t, err)
	assert.Empty(t, info)
	notes, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep", string(notes))
}
