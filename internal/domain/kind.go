// Package domain defines the moderated entity kinds, their persistence models,
// and the closed vocabularies (entity kinds, admin action kinds, filter
// fields) shared by the cache engine, the backend collaborators, and the HTTP
// layer.
package domain

import (
	"fmt"
	"strings"
)

// Kind identifies one of the moderated entity kinds.
type Kind string

const (
	KindArticle       Kind = "article"
	KindAdvertisement Kind = "advertisement"
	KindTour          Kind = "tour"
)

// Kinds returns every entity kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindArticle, KindAdvertisement, KindTour}
}

// Plural returns the collection name used in URLs ("articles", ...).
func (k Kind) Plural() string { return string(k) + "s" }

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindArticle, KindAdvertisement, KindTour:
		return true
	}
	return false
}

// ParseKind accepts either the singular or the plural form of a kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if s == string(k) || s == k.Plural() {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// ActionKind is the closed set of mutating operations an administrator can
// issue against an entity. Every tracked loading/error status is keyed by one
// of these values plus an entity id.
type ActionKind uint8

const (
	ActionApprove ActionKind = iota + 1
	ActionReject
	ActionPause
	ActionResume
	ActionDelete
	ActionRestore
	ActionUpdate
	ActionRefresh
)

var actionNames = [...]string{
	ActionApprove: "approve",
	ActionReject:  "reject",
	ActionPause:   "pause",
	ActionResume:  "resume",
	ActionDelete:  "delete",
	ActionRestore: "restore",
	ActionUpdate:  "update",
	ActionRefresh: "refresh",
}

// AllActionKinds enumerates every action kind.
func AllActionKinds() []ActionKind {
	out := make([]ActionKind, 0, len(actionNames)-1)
	for k := ActionApprove; k <= ActionRefresh; k++ {
		out = append(out, k)
	}
	return out
}

func (a ActionKind) String() string {
	if a.Valid() {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// Valid reports whether a is a member of the enumeration.
func (a ActionKind) Valid() bool { return a >= ActionApprove && a <= ActionRefresh }

// ParseActionKind maps a wire name to its ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range AllActionKinds() {
		if actionNames[k] == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// RequiresReason reports whether the action must carry a non-empty reason.
func (a ActionKind) RequiresReason() bool { return a == ActionReject }

// RequiresSelection reports whether the target must be selected first.
func (a ActionKind) RequiresSelection() bool { return a == ActionDelete }

// ListRelevant reports whether a successful run changes fields that decide
// list membership or list display (moderation status, soft-delete flag).
func (a ActionKind) ListRelevant() bool {
	switch a {
	case ActionApprove, ActionReject, ActionPause, ActionResume, ActionDelete, ActionRestore:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (a ActionKind) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid action kind %d", uint8(a))
	}
	return []byte(actionNames[a]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ActionKind) UnmarshalText(b []byte) error {
	k, err := ParseActionKind(string(b))
	if err != nil {
		return err
	}
	*a = k
	return nil
}
