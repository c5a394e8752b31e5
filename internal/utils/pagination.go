// Package utils holds small helpers shared by the HTTP layer that carry no
// console semantics of their own.
package utils

import (
	"strconv"
	"strings"
)

// Window is one page of an offset-paginated collection, such as an entity's
// action journal. Page is 1-based.
type Window struct {
	Page int
	Size int
}

// ParseWindow reads page and page size query values. Missing or malformed
// values fall back to page 1 and defSize; the result is clamped to
// page >= 1 and 1 <= size <= maxSize.
func ParseWindow(page, size string, defSize, maxSize int) Window {
	w := Window{Page: atoiDefault(page, 1), Size: atoiDefault(size, defSize)}
	if w.Page < 1 {
		w.Page = 1
	}
	if maxSize < 1 {
		maxSize = 1
	}
	if w.Size < 1 {
		w.Size = 1
	}
	if w.Size > maxSize {
		w.Size = maxSize
	}
	return w
}

// Offset is the number of rows before the window.
func (w Window) Offset() int { return (w.Page - 1) * w.Size }

// Pages is the number of windows needed for total rows.
func (w Window) Pages(total int64) int {
	if total <= 0 || w.Size < 1 {
		return 0
	}
	return int((total + int64(w.Size) - 1) / int64(w.Size))
}

// HasNext reports whether a window follows this one.
func (w Window) HasNext(total int64) bool { return w.Page < w.Pages(total) }

func atoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
