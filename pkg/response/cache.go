package response

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SuccessWithCache writes a 200 envelope tagged with an ETag. A request whose If-None-Match
// carries the same tag gets 304 without a body. maxAge <= 0 makes clients revalidate every time.
func SuccessWithCache(c *gin.Context, data interface{}, pagination interface{}, maxAge time.Duration) {
	body, err := json.Marshal(Envelope{Success: true, Data: data, Pagination: pagination})
	if err != nil {
		Success(c, http.StatusOK, data, "", pagination)
		return
	}

	tag := etag(body)
	c.Header("ETag", tag)
	c.Header("Cache-Control", cacheControl(maxAge))
	c.Header("Pragma", "")
	c.Header("Expires", "")

	if etagMatches(c.GetHeader("If-None-Match"), tag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func cacheControl(maxAge time.Duration) string {
	if maxAge <= 0 {
		return "private, no-cache"
	}
	return "private, max-age=" + strconv.Itoa(int(maxAge.Seconds()))
}

func etag(body []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(body)
	return fmt.Sprintf(`W/"%x"`, h.Sum64())
}

func etagMatches(header, tag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(tag, "W/") {
			return true
		}
	}
	return false
}
