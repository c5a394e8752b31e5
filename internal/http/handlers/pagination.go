package handlers

import (
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/utils"
)

// Pagination is returned alongside paged list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// historyWindow reads the page and page_size query params: page 1 and 20
// rows by default, at most 100 rows.
func historyWindow(c *gin.Context) utils.Window {
	return utils.ParseWindow(c.Query("page"), c.Query("page_size"), 20, 100)
}

func paginate(w utils.Window, total int64) Pagination {
	return Pagination{
		Page:       w.Page,
		PageSize:   w.Size,
		Total:      total,
		TotalPages: w.Pages(total),
		HasNext:    w.HasNext(total),
	}
}

func sorted(s []string) []string {
	sort.Strings(s)
	return s
}
