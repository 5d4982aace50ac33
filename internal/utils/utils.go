package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetPaginationParams reads ?page and ?per_page. ok is false when neither is
// given, in which case callers return everything.
func GetPaginationParams(c *gin.Context) (page, pageSize int, ok bool) {
	rawPage, hasPage := c.GetQuery("page")
	rawSize, hasSize := c.GetQuery("per_page")
	if !hasPage && !hasSize {
		return 0, 0, false
	}
	page, _ = strconv.Atoi(rawPage)
	pageSize, _ = strconv.Atoi(rawSize)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	return page, pageSize, true
}

// Paginate returns the items of the given 1-based page.
func Paginate[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}
