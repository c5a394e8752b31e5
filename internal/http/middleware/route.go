package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

const (
	ctxKeyRoute = "console.route"

	// HeaderOperatorID names the moderator on whose behalf the console acts.
	// It is attribution for logs only; it is never trusted for limiting.
	HeaderOperatorID = "X-Operator-ID"

	maxOperatorLen = 64
)

// Operation names of the console routes. Admin actions are reported as
// "action.<name>" (e.g. "action.reject").
const (
	OpList           = "list"
	OpFetch          = "fetch"
	OpSetFilters     = "set_filters"
	OpClearFilters   = "clear_filters"
	OpSetPage        = "set_page"
	OpSetLimit       = "set_limit"
	OpPrefetch       = "prefetch"
	OpSelection      = "selection"
	OpToggleSelected = "toggle_selection"
	OpClearSelection = "clear_selection"
	OpDetail         = "detail"
	OpEdit           = "edit"
	OpBeginEdit      = "begin_edit"
	OpActionStatus   = "action_status"
	OpAction         = "action"
	OpHistory        = "history"

	// OpUnmatched labels requests no route matched; the raw URL is never
	// used as a label.
	OpUnmatched = "unmatched"
)

// Route classifies a request against the console API: which entity kind it
// addresses, what it does and to which entity. Kind is empty for routes
// outside the per-kind API such as /health; their Op is the route pattern.
type Route struct {
	Kind string
	Op   string
	ID   string
}

// Write reports whether the route mutates the system of record (admin
// actions and edit submissions).
func (r Route) Write() bool {
	return r.Op == OpEdit || r.Op == OpAction || strings.HasPrefix(r.Op, OpAction+".")
}

// Class is "write" for Write routes and "read" for everything else.
func (r Route) Class() string {
	if r.Write() {
		return "write"
	}
	return "read"
}

// KindLabel is Kind, or "none" outside the per-kind API.
func (r Route) KindLabel() string {
	if r.Kind == "" {
		return "none"
	}
	return r.Kind
}

// Routes classifies every request once, using the matched route pattern
// below base, and stores the result for RouteOf. Install it right after
// RequestID so logging, metrics and limiting see the same classification.
func Routes(base string) gin.HandlerFunc {
	base = strings.TrimRight(base, "/")
	return func(c *gin.Context) {
		c.Set(ctxKeyRoute, classify(base, c))
		c.Next()
	}
}

// RouteOf returns the classification stored by Routes. Without Routes in the
// chain the request is classified with an empty base path.
func RouteOf(c *gin.Context) Route {
	if v, ok := c.Get(ctxKeyRoute); ok {
		if r, ok := v.(Route); ok {
			return r
		}
	}
	return classify("", c)
}

func classify(base string, c *gin.Context) Route {
	full := c.FullPath()
	if full == "" {
		return Route{Op: OpUnmatched}
	}
	rest, found := strings.CutPrefix(full, base)
	if !found || (rest != "" && rest[0] != '/') {
		return Route{Op: full}
	}
	seg, pattern, _ := strings.Cut(strings.TrimPrefix(rest, "/"), "/")
	kind, err := domain.ParseKind(seg)
	if err != nil {
		return Route{Op: full}
	}
	r := Route{Kind: string(kind), ID: c.Param("id")}
	r.Op = operation(c.Request.Method, pattern, c.Param("action"))
	return r
}

// operation maps a route pattern below /<kind> to its operation name.
func operation(method, pattern, action string) string {
	switch pattern {
	case "":
		return OpList
	case "fetch":
		return OpFetch
	case "filters":
		if method == "DELETE" {
			return OpClearFilters
		}
		return OpSetFilters
	case "page":
		return OpSetPage
	case "limit":
		return OpSetLimit
	case "prefetch":
		return OpPrefetch
	case "selection":
		if method == "DELETE" {
			return OpClearSelection
		}
		return OpSelection
	case "selection/:id":
		return OpToggleSelected
	case ":id":
		if method == "PATCH" {
			return OpEdit
		}
		return OpDetail
	case ":id/edit":
		return OpBeginEdit
	case ":id/actions":
		return OpActionStatus
	case ":id/actions/:action":
		if a, err := domain.ParseActionKind(action); err == nil {
			return OpAction + "." + a.String()
		}
		return OpAction
	case ":id/history":
		return OpHistory
	}
	return pattern
}

// operatorOf returns the X-Operator-ID header, trimmed and capped.
func operatorOf(c *gin.Context) string {
	return truncate(strings.TrimSpace(c.GetHeader(HeaderOperatorID)), maxOperatorLen)
}
