package middleware

// RedactingLogger is the console's access logger. It never logs a value a
// moderator typed: edit submissions are summarised by field name, admin
// actions by whether a reason was given, and the query string and headers
// are scrubbed of emails, phone numbers and UUIDs.

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// maxBodySummary bounds how much of an edit or action body is read for
	// the summary; larger bodies are logged as unsummarised.
	maxBodySummary  = 64 << 10
	maxLoggedFields = 32
)

// RedactOptions configures RedactingLogger. MaskHeaders are masked in full in
// addition to Authorization, Cookie and Set-Cookie (case-insensitive).
type RedactOptions struct {
	MaskHeaders []string
}

var (
	// UUIDs go first so the phone pattern never eats their digit groups.
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

func redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// RedactingLogger attaches the request-scoped logger (see LoggerFrom) and
// writes one "http_request" line per request: info for 2xx/3xx, warn for
// 4xx, error for 5xx or when handlers recorded gin errors.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		route := RouteOf(c)

		v, _ := c.Get(requestIDKey)
		rid := asString(v)
		if rid == "" {
			rid = c.GetHeader(requestIDHeader)
		}

		lctx := log.With().
			Str("request_id", rid).
			Str("method", c.Request.Method).
			Str("kind", route.Kind).
			Str("op", route.Op)
		if route.ID != "" {
			lctx = lctx.Str("entity_id", route.ID)
		}
		if op := operatorOf(c); op != "" {
			lctx = lctx.Str("operator", op)
		}
		lg := lctx.Logger()
		c.Set(ctxKeyLogger, &lg)

		body := summarizeBody(c, route)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, masked := maskHeaders[strings.ToLower(k)]; masked {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(strings.Join(vv, ", "))
		}
		safeQuery := redact(truncate(c.Request.URL.RawQuery, maxQueryLogLength))

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case len(c.Errors) > 0:
			ev = lg.Error().Str("errors", redact(c.Errors.String()))
		case status >= 500:
			ev = lg.Error()
		case status >= 400:
			ev = lg.Warn()
		default:
			ev = lg.Info()
		}
		if route.Kind == "" {
			// Outside the console API the path is the only useful locator.
			ev = ev.Str("path", redact(c.Request.URL.Path))
		}
		if body != nil {
			ev = ev.Dict("body", body)
		}
		ev.Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}

// summarizeBody describes an edit or action body without its values, or
// returns nil for other routes. The body is read up to maxBodySummary and
// restored for the handler.
func summarizeBody(c *gin.Context, route Route) *zerolog.Event {
	edit, action := route.Op == OpEdit, route.Write() && route.Op != OpEdit
	if (!edit && !action) || c.Request.Body == nil {
		return nil
	}
	d := zerolog.Dict()

	peek, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySummary+1))
	c.Request.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(peek), c.Request.Body), c.Request.Body}
	if err != nil || len(peek) > maxBodySummary {
		return d.Bool("summarised", false)
	}

	var obj map[string]json.RawMessage
	if len(bytes.TrimSpace(peek)) == 0 {
		obj = map[string]json.RawMessage{}
	} else if json.Unmarshal(peek, &obj) != nil {
		return d.Bool("summarised", false)
	}

	if edit {
		fields := make([]string, 0, len(obj))
		for f := range obj {
			fields = append(fields, redact(truncate(f, 64)))
		}
		sort.Strings(fields)
		if len(fields) > maxLoggedFields {
			fields = fields[:maxLoggedFields]
		}
		return d.Strs("fields", fields).Int("field_count", len(obj))
	}

	var reason string
	if raw, found := obj["reason"]; found {
		_ = json.Unmarshal(raw, &reason)
	}
	reason = strings.TrimSpace(reason)
	return d.Bool("has_reason", reason != "").Int("reason_len", len(reason))
}
