// List and selection HTTP handlers.
//
// Per kind (e.g. /articles):
//   - GET    /{kind}                 (list snapshot, weak ETag)
//   - POST   /{kind}/fetch           (load the current query)
//   - PUT    /{kind}/filters         (merge filters; search is debounced)
//   - DELETE /{kind}/filters         (restore default filters)
//   - PUT    /{kind}/page            (set page)
//   - PUT    /{kind}/limit           (set page size)
//   - POST   /{kind}/prefetch        (warm the next page)
//   - GET    /{kind}/selection       (selection snapshot)
//   - POST   /{kind}/selection/{id}  (toggle)
//   - DELETE /{kind}/selection       (clear)
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

//
// DTOs
//

// SetPageRequest is the JSON payload for PUT /{kind}/page.
type SetPageRequest struct {
	Page int `json:"page" binding:"required,min=1" example:"2"`
}

// SetLimitRequest is the JSON payload for PUT /{kind}/limit.
type SetLimitRequest struct {
	Limit int `json:"limit" binding:"required,min=1" example:"20"`
}

// PrefetchResponse reports whether a background prefetch was started.
type PrefetchResponse struct {
	Started bool `json:"started"`
}

// ToggleSelectionResponse is the new membership of the toggled id.
type ToggleSelectionResponse struct {
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
	Count    int    `json:"count"`
}

// GetList godoc
// @ID          getList
// @Summary     List snapshot
// @Description Returns the current list state of the kind: items, filters, pagination, loading/error flags and selection. Does not fetch. Supports weak ETag via If-None-Match.
// @Tags        List
// @Produce     json
// @Param       kind           path    string  true  "Entity kind"  Enums(articles, advertisements, tours)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Success     200  {object}  store.ListView
// @Header      200  {string}  ETag  "Weak ETag for the snapshot version"
// @Success     304  {string}  string "Not Modified"
// @Router      /{kind} [get]
func (h *Handlers) GetList(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	view := con.ListView()
	// Loading snapshots are not cacheable: the version moves when they land.
	if !view.Loading {
		etag := fmt.Sprintf(`W/"%s:v%d"`, con.Kind().Plural(), view.Version)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}
	ok(c, http.StatusOK, view)
}

// FetchList godoc
// @ID          fetchList
// @Summary     Load the current list query
// @Description Fetches the page selected by the current filters, page and limit. A response for a query that has since changed is discarded.
// @Tags        List
// @Produce     json
// @Param       kind  path  string  true  "Entity kind"  Enums(articles, advertisements, tours)
// @Success     200  {object}  store.ListView
// @Failure     502  {object}  handlers.ErrorResponse  "Backend error"
// @Failure     504  {object}  handlers.ErrorResponse  "Backend timeout"
// @Router      /{kind}/fetch [post]
func (h *Handlers) FetchList(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	if err := con.FetchList(c.Request.Context()); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, con.ListView())
}

// SetFilters godoc
// @ID          setFilters
// @Summary     Merge list filters
// @Description Merges the given search text and set filters into the current ones. A set with an empty array removes that filter. Changing the criteria resets the page to 1. A search change schedules a debounced fetch; other changes do not fetch.
// @Tags        List
// @Accept      json
// @Produce     json
// @Param       kind  path  string              true  "Entity kind"  Enums(articles, advertisements, tours)
// @Param       body  body  domain.FilterPatch  true  "Filter patch"
// @Success     200  {object}  store.ListView
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown filter"
// @Router      /{kind}/filters [put]
func (h *Handlers) SetFilters(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	var p domain.FilterPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := con.SetFilters(p); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, con.ListView())
}

// ClearFilters restores the kind's default filters and cancels a pending
// debounced search.
func (h *Handlers) ClearFilters(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	con.ClearFilters()
	ok(c, http.StatusOK, con.ListView())
}

// SetPage godoc
// @ID          setPage
// @Summary     Select a page
// @Tags        List
// @Accept      json
// @Produce     json
// @Param       kind  path  string                   true  "Entity kind"  Enums(articles, advertisements, tours)
// @Param       body  body  handlers.SetPageRequest  true  "Page"
// @Success     200  {object}  store.ListView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /{kind}/page [put]
func (h *Handlers) SetPage(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	var req SetPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "page must be >= 1")
		return
	}
	con.SetPage(req.Page)
	ok(c, http.StatusOK, con.ListView())
}

// SetLimit godoc
// @ID          setLimit
// @Summary     Set page size
// @Description Values above the configured maximum are clamped. A change resets the page to 1.
// @Tags        List
// @Accept      json
// @Produce     json
// @Param       kind  path  string                    true  "Entity kind"  Enums(articles, advertisements, tours)
// @Param       body  body  handlers.SetLimitRequest  true  "Limit"
// @Success     200  {object}  store.ListView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /{kind}/limit [put]
func (h *Handlers) SetLimit(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	var req SetLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "limit must be >= 1")
		return
	}
	con.SetLimit(req.Limit)
	ok(c, http.StatusOK, con.ListView())
}

// Prefetch godoc
// @ID          prefetchNextPage
// @Summary     Warm the next page
// @Description Starts loading the page after the current one in the background. Never blocks; failures are silent.
// @Tags        List
// @Produce     json
// @Param       kind  path  string  true  "Entity kind"  Enums(articles, advertisements, tours)
// @Success     202  {object}  handlers.PrefetchResponse
// @Router      /{kind}/prefetch [post]
func (h *Handlers) Prefetch(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	// The warm-up outlives this request.
	started := con.PrefetchNextPage(context.WithoutCancel(c.Request.Context()))
	ok(c, http.StatusAccepted, PrefetchResponse{Started: started})
}

// GetSelection returns the selected ids.
func (h *Handlers) GetSelection(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	ok(c, http.StatusOK, con.SelectionView())
}

// ToggleSelection godoc
// @ID          toggleSelection
// @Summary     Toggle selection of an id
// @Description Selection persists across pagination and filter changes. Selecting is required before delete.
// @Tags        Selection
// @Produce     json
// @Param       kind  path  string  true  "Entity kind"  Enums(articles, advertisements, tours)
// @Param       id    path  string  true  "Entity ID"
// @Success     200  {object}  handlers.ToggleSelectionResponse
// @Router      /{kind}/selection/{id} [post]
func (h *Handlers) ToggleSelection(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	id := c.Param("id")
	on := con.ToggleSelection(id)
	ok(c, http.StatusOK, ToggleSelectionResponse{ID: id, Selected: on, Count: con.SelectionView().Count})
}

// ClearSelection empties the selection.
func (h *Handlers) ClearSelection(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	con.ClearSelection()
	noContent(c)
}
