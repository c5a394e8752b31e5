// Entity HTTP handlers.
//
// Per kind (e.g. /articles):
//   - GET   /{kind}/{id}                   (detail; ?refresh=true forces)
//   - GET   /{kind}/{id}/actions           (action statuses)
//   - POST  /{kind}/{id}/actions/{action}  (run an admin action)
//   - POST  /{kind}/{id}/edit              (open an edit session)
//   - PATCH /{kind}/{id}                   (save the edit form's difference)
//   - GET   /{kind}/{id}/history           (journal, paginated, ETag)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/diff"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/http/middleware"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/store"
)

//
// DTOs
//

// RunActionRequest is the optional JSON payload of an admin action.
type RunActionRequest struct {
	// Reason is required for reject.
	Reason string `json:"reason" example:"images violate content policy"`
}

// RunActionResponse reports the outcome of an admin action.
type RunActionResponse struct {
	ID       string               `json:"id"`
	Action   string               `json:"action"`
	Replayed bool                 `json:"replayed"`
	Record   *domain.ActionRecord `json:"record,omitempty"`
	Detail   store.DetailView     `json:"detail"`
}

// SubmitEditResponse carries the fields that were sent and the refreshed
// detail snapshot.
type SubmitEditResponse struct {
	ID      string           `json:"id"`
	Patch   diff.Record      `json:"patch"`
	Changed bool             `json:"changed"`
	Detail  store.DetailView `json:"detail"`
}

// HistoryResponse wraps a page of journal records.
type HistoryResponse struct {
	Records    []domain.ActionRecord `json:"records"`
	Pagination Pagination            `json:"pagination"`
}

// GetDetail godoc
// @ID          getDetail
// @Summary     Entity detail
// @Description Returns the cached entity, fetching it on first access. Concurrent first accesses share one backend call. With refresh=true a new call is always made and tracked as the refresh action.
// @Tags        Detail
// @Produce     json
// @Param       kind     path   string  true   "Entity kind"  Enums(articles, advertisements, tours)
// @Param       id       path   string  true   "Entity ID"
// @Param       refresh  query  bool    false  "Force a backend call"
// @Success     200  {object}  store.DetailView
// @Failure     404  {object}  handlers.ErrorResponse  "Entity not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Backend error"
// @Failure     504  {object}  handlers.ErrorResponse  "Backend timeout"
// @Router      /{kind}/{id} [get]
func (h *Handlers) GetDetail(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	force, _ := strconv.ParseBool(c.Query("refresh"))
	view, err := con.DetailView(c.Request.Context(), c.Param("id"), force)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// GetActions returns the loading/error status of every action on id.
func (h *Handlers) GetActions(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	ok(c, http.StatusOK, con.ActionView(c.Param("id")))
}

// RunAction godoc
// @ID          runAction
// @Summary     Run an admin action
// @Description Performs approve, reject, pause, resume, delete or restore on the entity. Reject requires a reason; delete requires the id to be selected. A repeated request with the same Idempotency-Key returns the journaled outcome without calling the backend again.
// @Tags        Actions
// @Accept      json
// @Produce     json
// @Param       kind             path    string                     true   "Entity kind"  Enums(articles, advertisements, tours)
// @Param       id               path    string                     true   "Entity ID"
// @Param       action           path    string                     true   "Action"  Enums(approve, reject, pause, resume, delete, restore)
// @Param       Idempotency-Key  header  string                     false  "Idempotency key"
// @Param       body             body    handlers.RunActionRequest  false  "Reason"
// @Success     200  {object}  handlers.RunActionResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation error"
// @Failure     404  {object}  handlers.ErrorResponse  "Entity not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Not selected or rejected by backend"
// @Failure     502  {object}  handlers.ErrorResponse  "Backend error"
// @Router      /{kind}/{id}/actions/{action} [post]
func (h *Handlers) RunAction(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	action, err := domain.ParseActionKind(c.Param("action"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeUnsupported, err.Error())
		return
	}
	var req RunActionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}

	key, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && middleware.IsReplay(c) && h.journal != nil {
		if rec, rerr := h.journal.Replay(ctx, string(con.Kind()), id, key); rerr == nil && rec != nil {
			c.Header("Idempotent-Replayed", "true")
			h.replayOutcome(c, con, rec)
			return
		}
	}

	runErr := con.RunAction(ctx, action, id, req.Reason)
	if runErr != nil && store.IsValidation(runErr) {
		// Never reached the backend: nothing to journal.
		failErr(c, runErr)
		return
	}

	rec := h.journal1(c, con.Kind(), id, action.String(), strings.TrimSpace(req.Reason), key, runErr)
	if runErr != nil {
		failErr(c, runErr)
		return
	}
	ok(c, http.StatusOK, RunActionResponse{
		ID:     id,
		Action: action.String(),
		Record: rec,
		Detail: con.PeekDetail(id),
	})
}

// replayOutcome answers a replayed request from its journal record.
func (h *Handlers) replayOutcome(c *gin.Context, con Console, rec *domain.ActionRecord) {
	if rec.Outcome != domain.OutcomeOK {
		fail(c, http.StatusConflict, ErrCodeConflict, "replayed request previously failed: "+rec.Error)
		return
	}
	ok(c, http.StatusOK, RunActionResponse{
		ID:       rec.EntityID,
		Action:   rec.Action,
		Replayed: true,
		Record:   rec,
		Detail:   con.PeekDetail(rec.EntityID),
	})
}

// journal1 records one backend-bound mutation. Journal failures are logged
// and never fail the request: the mutation itself already happened.
func (h *Handlers) journal1(c *gin.Context, kind domain.Kind, id, action, reason, key string, runErr error) *domain.ActionRecord {
	if h.journal == nil {
		return nil
	}
	rec := &domain.ActionRecord{
		Kind:      string(kind),
		EntityID:  id,
		Action:    action,
		Reason:    reason,
		Outcome:   domain.OutcomeOK,
		CreatedAt: h.now().UTC(),
	}
	if key != "" {
		rec.IdempotencyKey = &key
	}
	if runErr != nil {
		rec.Outcome = domain.OutcomeFailed
		rec.Error = runErr.Error()
	}
	if err := h.journal.Record(c.Request.Context(), rec); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).
			Str("kind", string(kind)).
			Str("entity_id", id).
			Str("action", action).
			Msg("journal write failed")
		return nil
	}
	return rec
}

// BeginEdit godoc
// @ID          beginEdit
// @Summary     Open an edit session
// @Description Captures the entity's editable fields as the baseline later saves are diffed against.
// @Tags        Edit
// @Produce     json
// @Param       kind  path  string  true  "Entity kind"  Enums(articles, advertisements, tours)
// @Param       id    path  string  true  "Entity ID"
// @Success     200  {object}  store.EditView
// @Failure     404  {object}  handlers.ErrorResponse  "Entity not found"
// @Router      /{kind}/{id}/edit [post]
func (h *Handlers) BeginEdit(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	view, err := con.EditView(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// SubmitEdit godoc
// @ID          submitEdit
// @Summary     Save an edit form
// @Description Sends only the fields that differ from the session baseline (set-valued fields compare order-insensitively). An unchanged form makes no backend call.
// @Tags        Edit
// @Accept      json
// @Produce     json
// @Param       kind  path  string          true  "Entity kind"  Enums(articles, advertisements, tours)
// @Param       id    path  string          true  "Entity ID"
// @Param       body  body  map[string]any  true  "Edit form (editable fields)"
// @Success     200  {object}  handlers.SubmitEditResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Field not editable"
// @Failure     409  {object}  handlers.ErrorResponse  "Rejected by backend"
// @Failure     502  {object}  handlers.ErrorResponse  "Backend error"
// @Router      /{kind}/{id} [patch]
func (h *Handlers) SubmitEdit(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	id := c.Param("id")
	var form map[string]any
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	patch, err := con.SubmitEdit(c.Request.Context(), id, diff.Record(form))
	// A joined save is journaled by the request that sent it.
	if err != nil && (store.IsValidation(err) || errors.Is(err, store.ErrEditCoalesced)) {
		failErr(c, err)
		return
	}
	if len(patch) > 0 {
		key, _ := middleware.GetIdempotencyKey(c)
		fields := make([]string, 0, len(patch))
		for f := range patch {
			fields = append(fields, f)
		}
		h.journal1(c, con.Kind(), id, domain.ActionUpdate.String(), "fields: "+strings.Join(sorted(fields), ","), key, err)
	}
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SubmitEditResponse{
		ID:      id,
		Patch:   patch,
		Changed: len(patch) > 0,
		Detail:  con.PeekDetail(id),
	})
}

// GetHistory godoc
// @ID          getHistory
// @Summary     Action journal of an entity
// @Description Returns the admin mutations issued through this console for the entity, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Actions
// @Produce     json
// @Param       kind           path    string  true   "Entity kind"  Enums(articles, advertisements, tours)
// @Param       id             path    string  true   "Entity ID"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.HistoryResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /{kind}/{id}/history [get]
func (h *Handlers) GetHistory(c *gin.Context) {
	con := console(c)
	if con == nil {
		return
	}
	ctx := c.Request.Context()
	kind, id := string(con.Kind()), c.Param("id")
	win := historyWindow(c)

	if h.journal == nil {
		ok(c, http.StatusOK, HistoryResponse{Records: []domain.ActionRecord{}, Pagination: paginate(win, 0)})
		return
	}

	// ETag pre-check (best effort).
	if count, maxTS, err := h.journal.Stats(ctx, kind, id); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"history:%s:%s:%d:%d"`, kind, id, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	records, total, err := h.journal.History(ctx, kind, id, win.Offset(), win.Size)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if records == nil {
		records = []domain.ActionRecord{}
	}
	ok(c, http.StatusOK, HistoryResponse{Records: records, Pagination: paginate(win, total)})
}
