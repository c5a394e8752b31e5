package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/backend"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/store"
)

func TestGetList_ETagAndNotModified(t *testing.T) {
	con := newFakeConsole(domain.KindArticle)
	con.version = 7
	r := newTestRouter(New([]Console{con}, nil))

	w := serve(r, http.MethodGet, "/articles", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if got := w.Header().Get("ETag"); got != `W/"articles:v7"` {
		t.Fatalf("ETag=%q", got)
	}

	w = serve(r, http.MethodGet, "/articles", "", "If-None-Match", `W/"articles:v7"`)
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}

	// A version bump invalidates the tag.
	con.version = 8
	w = serve(r, http.MethodGet, "/articles", "", "If-None-Match", `W/"articles:v7"`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after bump, got %d", w.Code)
	}
}

func TestGetList_LoadingHasNoETag(t *testing.T) {
	con := newFakeConsole(domain.KindTour)
	con.list.Loading = true
	r := newTestRouter(New([]Console{con}, nil))

	w := serve(r, http.MethodGet, "/tours", "")
	if w.Code != http.StatusOK || w.Header().Get("ETag") != "" {
		t.Fatalf("status=%d etag=%q", w.Code, w.Header().Get("ETag"))
	}
}

func TestFetchList_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeTimeout},
		{"backend", errors.New("boom"), http.StatusBadGateway, ErrCodeBadGateway},
		{"api 500", &backend.APIError{Status: 500, Message: "down"}, http.StatusBadGateway, ErrCodeBadGateway},
		{"stale", store.ErrStaleResponse, http.StatusConflict, ErrCodeConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			con := newFakeConsole(domain.KindArticle)
			con.fetchErr = tc.err
			r := newTestRouter(New([]Console{con}, nil))

			w := serve(r, http.MethodPost, "/articles/fetch", "")
			if w.Code != tc.want {
				t.Fatalf("status=%d want %d", w.Code, tc.want)
			}
			if er := decodeErr(t, w); er.Code != tc.code {
				t.Fatalf("code=%q want %q", er.Code, tc.code)
			}
		})
	}
}

func TestSetFilters(t *testing.T) {
	con := newFakeConsole(domain.KindArticle)
	r := newTestRouter(New([]Console{con}, nil))

	if w := serve(r, http.MethodPut, "/articles/filters", `{"search":"tea"}`); w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if w := serve(r, http.MethodPut, "/articles/filters", `{"search":`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json status=%d", w.Code)
	}

	con.filterErr = store.ErrUnknownFilter
	w := serve(r, http.MethodPut, "/articles/filters", `{"sets":{"placement":["sidebar"]}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown filter status=%d", w.Code)
	}

	if w := serve(r, http.MethodDelete, "/articles/filters", ""); w.Code != http.StatusOK || !con.cleared {
		t.Fatalf("clear status=%d cleared=%v", w.Code, con.cleared)
	}
}

func TestSetPageAndLimit(t *testing.T) {
	con := newFakeConsole(domain.KindAdvertisement)
	r := newTestRouter(New([]Console{con}, nil))

	w := serve(r, http.MethodPut, "/advertisements/page", `{"page":3}`)
	if w.Code != http.StatusOK || con.page != 3 {
		t.Fatalf("page status=%d page=%d", w.Code, con.page)
	}
	if w := serve(r, http.MethodPut, "/advertisements/page", `{"page":0}`); w.Code != http.StatusBadRequest {
		t.Fatalf("page 0 status=%d", w.Code)
	}
	w = serve(r, http.MethodPut, "/advertisements/limit", `{"limit":50}`)
	if w.Code != http.StatusOK || con.limit != 50 {
		t.Fatalf("limit status=%d limit=%d", w.Code, con.limit)
	}
}

func TestPrefetch_Accepted(t *testing.T) {
	con := newFakeConsole(domain.KindArticle)
	con.prefetch = true
	r := newTestRouter(New([]Console{con}, nil))

	w := serve(r, http.MethodPost, "/articles/prefetch", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d", w.Code)
	}
	var resp PrefetchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || !resp.Started {
		t.Fatalf("resp=%+v err=%v", resp, err)
	}
}

func TestSelection_ToggleAndClear(t *testing.T) {
	con := newFakeConsole(domain.KindArticle)
	r := newTestRouter(New([]Console{con}, nil))

	var resp ToggleSelectionResponse
	w := serve(r, http.MethodPost, "/articles/selection/a1", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Selected || resp.Count != 1 || resp.ID != "a1" {
		t.Fatalf("toggle on: %+v", resp)
	}

	w = serve(r, http.MethodPost, "/articles/selection/a1", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Selected || resp.Count != 0 {
		t.Fatalf("toggle off: %+v", resp)
	}

	serve(r, http.MethodPost, "/articles/selection/a2", "")
	if w := serve(r, http.MethodDelete, "/articles/selection", ""); w.Code != http.StatusNoContent {
		t.Fatalf("clear status=%d", w.Code)
	}
	var sv store.SelectionView
	w = serve(r, http.MethodGet, "/articles/selection", "")
	if err := json.Unmarshal(w.Body.Bytes(), &sv); err != nil || sv.Count != 0 {
		t.Fatalf("selection=%+v err=%v", sv, err)
	}
}

func TestBindKind_UnregisteredKind(t *testing.T) {
	h := New([]Console{newFakeConsole(domain.KindArticle)}, nil)
	if got := h.Kinds(); len(got) != 1 || got[0] != domain.KindArticle {
		t.Fatalf("Kinds=%v", got)
	}
	r := newTestRouter(h)
	r.GET("/tours", h.BindKind(domain.KindTour), h.GetList)

	w := serve(r, http.MethodGet, "/tours", "")
	if w.Code != http.StatusNotFound || decodeErr(t, w).Code != ErrCodeUnknownKind {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
