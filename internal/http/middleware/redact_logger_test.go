package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// accessLine returns the single http_request line in the captured output.
func accessLine(t *testing.T, lines []map[string]any) map[string]any {
	t.Helper()
	var found map[string]any
	for _, ln := range lines {
		if ln["message"] == "http_request" {
			if found != nil {
				t.Fatalf("more than one access line")
			}
			found = ln
		}
	}
	if found == nil {
		t.Fatalf("no access line")
	}
	return found
}

func redactRouter(echo *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header(requestIDHeader, "rid-resp"); c.Next() })
	r.Use(Routes("/api/v1"))
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	capture := func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		*echo = string(b)
		c.Status(http.StatusOK)
	}
	r.GET("/api/v1/articles", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.PATCH("/api/v1/articles/:id", capture)
	r.POST("/api/v1/articles/:id/actions/:action", capture)
	r.GET("/warn", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	return r
}

func TestRedactingLogger_QueryAndHeaderRedaction(t *testing.T) {
	buf := captureLogger(t)
	var echo string
	r := redactRouter(&echo)

	q := "search=a.b+tag@example.com&phone=+1-555-123-4567&owner=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Custom", "email a@b.com id=123e4567-e89b-12d3-a456-426614174000 phone 555-123-4567")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	ln := accessLine(t, logLines(t, buf))
	if ln["level"] != "info" || ln["kind"] != "article" || ln["op"] != OpList || ln["request_id"] != "rid-resp" {
		t.Fatalf("unexpected access line: %v", ln)
	}
	if _, has := ln["path"]; has {
		t.Fatalf("console routes are located by kind/op, not path: %v", ln)
	}
	if _, has := ln["body"]; has {
		t.Fatalf("reads carry no body summary: %v", ln)
	}
	query, _ := ln["query"].(string)
	for _, tag := range []string{"[REDACTED:email]", "[REDACTED:phone]", "[REDACTED:id]"} {
		if !strings.Contains(query, tag) {
			t.Fatalf("query %q lacks %s", query, tag)
		}
	}
	hdr, _ := ln["headers"].(map[string]any)
	for _, k := range []string{"Authorization", "Cookie", "X-Api-Key"} {
		if hdr[k] != "[REDACTED]" {
			t.Fatalf("%s must be masked: %v", k, hdr[k])
		}
	}
	if hdr["X-Custom"] != "email [REDACTED:email] id=[REDACTED:id] phone [REDACTED:phone]" {
		t.Fatalf("X-Custom = %v", hdr["X-Custom"])
	}
}

func TestRedactingLogger_EditLogsFieldNamesOnly(t *testing.T) {
	buf := captureLogger(t)
	var echo string
	r := redactRouter(&echo)

	body := `{"title":"Secret draft title","summary":"contact me at jo@example.com","tags":["a"]}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/articles/a7", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if echo != body {
		t.Fatalf("handler must see the whole body, got %q", echo)
	}
	out := buf.String()
	for _, leaked := range []string{"Secret draft title", "jo@example.com"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("edit value %q leaked into logs: %s", leaked, out)
		}
	}
	ln := accessLine(t, logLines(t, buf))
	if ln["op"] != OpEdit || ln["entity_id"] != "a7" {
		t.Fatalf("unexpected access line: %v", ln)
	}
	sum, _ := ln["body"].(map[string]any)
	fields, _ := sum["fields"].([]any)
	if len(fields) != 3 || fields[0] != "summary" || fields[1] != "tags" || fields[2] != "title" || sum["field_count"] != float64(3) {
		t.Fatalf("body summary = %v", sum)
	}
}

func TestRedactingLogger_ActionLogsReasonPresenceOnly(t *testing.T) {
	buf := captureLogger(t)
	var echo string
	r := redactRouter(&echo)

	body := `{"reason":"uploader phone 555-123-4567 is fake"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/articles/a7/actions/reject", strings.NewReader(body))
	r.ServeHTTP(httptest.NewRecorder(), req)

	if echo != body {
		t.Fatalf("handler must see the whole body, got %q", echo)
	}
	if strings.Contains(buf.String(), "is fake") {
		t.Fatalf("reason leaked into logs: %s", buf.String())
	}
	sum, _ := accessLine(t, logLines(t, buf))["body"].(map[string]any)
	if sum["has_reason"] != true || sum["reason_len"] != float64(len("uploader phone 555-123-4567 is fake")) {
		t.Fatalf("body summary = %v", sum)
	}
}

func TestRedactingLogger_UnparseableAndOversizedBodies(t *testing.T) {
	buf := captureLogger(t)
	var echo string
	r := redactRouter(&echo)

	r.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPatch, "/api/v1/articles/a1", strings.NewReader(`title=plain`)))
	if echo != "title=plain" {
		t.Fatalf("handler body = %q", echo)
	}
	big := `{"body":"` + strings.Repeat("x", maxBodySummary) + `"}`
	r.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPatch, "/api/v1/articles/a1", strings.NewReader(big)))
	if echo != big {
		t.Fatalf("oversized body was not restored intact (len %d)", len(echo))
	}

	lines := logLines(t, buf)
	n := 0
	for _, ln := range lines {
		if ln["message"] != "http_request" {
			continue
		}
		n++
		sum, _ := ln["body"].(map[string]any)
		if sum["summarised"] != false {
			t.Fatalf("expected unsummarised body: %v", sum)
		}
	}
	if n != 2 {
		t.Fatalf("access lines = %d", n)
	}
	if strings.Contains(buf.String(), "title=plain") {
		t.Fatalf("raw body leaked: %s", buf.String())
	}
}

func TestRedactingLogger_LevelsAndPathOutsideConsole(t *testing.T) {
	buf := captureLogger(t)
	var echo string
	r := redactRouter(&echo)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/warn", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/error", nil))

	lines := logLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if lines[0]["level"] != "warn" || lines[0]["path"] != "/warn" || lines[0]["op"] != "/warn" {
		t.Fatalf("warn line = %v", lines[0])
	}
	if lines[1]["level"] != "error" || lines[1]["kind"] != "" {
		t.Fatalf("error line = %v", lines[1])
	}
}
