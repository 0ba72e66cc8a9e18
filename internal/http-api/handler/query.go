package handler

import (
	"github.com/gin-gonic/gin"

	"libhub/internal/search"
)

// listQuery carries the search/sort parameters shared by every list
// endpoint: ?search_type=id|name&q=...&sort_by=...&order=asc|desc
type listQuery struct {
	search search.Query
	sortBy string
	desc   bool
}

func parseListQuery(c *gin.Context) listQuery {
	mode := search.ModeID
	if c.Query("search_type") == string(search.ModeName) {
		mode = search.ModeName
	}
	return listQuery{
		search: search.Query{Mode: mode, Text: c.Query("q")},
		sortBy: c.DefaultQuery("sort_by", "id"),
		desc:   c.Query("order") == "desc",
	}
}
