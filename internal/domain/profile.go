package domain

// Profile describes how one entity kind is moderated: which admin actions
// apply, what an action does to the moderation field, which filters and
// edit-form fields exist, and which of those fields are unordered sets.
type Profile struct {
	Kind Kind

	// Actions lists the admin actions accepted by RunAction for this kind.
	Actions []ActionKind
	// Transitions maps an admin action to the moderation value it sets.
	Transitions map[ActionKind]string
	// ModerationField is the JSON name of the field Transitions writes.
	ModerationField string

	// FilterFields lists the set filters the list endpoint understands.
	FilterFields []string
	// DefaultFilters is what ClearFilters restores.
	DefaultFilters Filters

	// EditableFields are the JSON names making up the edit form.
	EditableFields []string
	// SetFields are editable fields compared order-insensitively.
	SetFields []string
}

// Supports reports whether a is an admin action of this kind.
func (p Profile) Supports(a ActionKind) bool {
	for _, k := range p.Actions {
		if k == a {
			return true
		}
	}
	return false
}

// Editable reports whether field belongs to the edit form.
func (p Profile) Editable(field string) bool {
	for _, f := range p.EditableFields {
		if f == field {
			return true
		}
	}
	return false
}

// HasFilter reports whether field is a known set filter.
func (p Profile) HasFilter(field string) bool {
	for _, f := range p.FilterFields {
		if f == field {
			return true
		}
	}
	return false
}

var activeOnly = map[string][]string{FieldVisibility: {VisibilityActive}}

var profiles = map[Kind]Profile{
	KindArticle: {
		Kind:    KindArticle,
		Actions: []ActionKind{ActionApprove, ActionReject, ActionDelete, ActionRestore},
		Transitions: map[ActionKind]string{
			ActionApprove: "published",
			ActionReject:  "rejected",
		},
		ModerationField: "status",
		FilterFields:    []string{FieldStatus, FieldCategory, FieldVisibility},
		DefaultFilters:  Filters{Sets: activeOnly}.Normalize(),
		EditableFields: []string{
			"title", "slug", "summary", "content", "categories", "tags",
			"destinations", "coverImageUrl", "seoTitle", "seoDescription",
			"readingMinutes", "isFeatured",
		},
		SetFields: []string{"categories", "tags", "destinations"},
	},
	KindAdvertisement: {
		Kind: KindAdvertisement,
		Actions: []ActionKind{
			ActionApprove, ActionReject, ActionPause, ActionResume,
			ActionDelete, ActionRestore,
		},
		Transitions: map[ActionKind]string{
			ActionApprove: "active",
			ActionReject:  "rejected",
			ActionPause:   "paused",
			ActionResume:  "active",
		},
		ModerationField: "status",
		FilterFields:    []string{FieldStatus, FieldPlacement, FieldVisibility},
		DefaultFilters:  Filters{Sets: activeOnly}.Normalize(),
		EditableFields: []string{
			"title", "advertiserName", "placements", "plan", "budget",
			"currency", "startsAt", "endsAt", "targetUrl", "creativeUrl",
		},
		SetFields: []string{"placements"},
	},
	KindTour: {
		Kind:    KindTour,
		Actions: []ActionKind{ActionApprove, ActionReject, ActionDelete, ActionRestore},
		Transitions: map[ActionKind]string{
			ActionApprove: "approved",
			ActionReject:  "rejected",
		},
		ModerationField: "moderationStatus",
		FilterFields:    []string{FieldModeration, FieldCategory, FieldVisibility},
		DefaultFilters: Filters{Sets: map[string][]string{
			FieldModeration: {"pending"},
			FieldVisibility: {VisibilityActive},
		}}.Normalize(),
		EditableFields: []string{
			"title", "slug", "summary", "categories", "destinations",
			"highlights", "itinerary", "price", "currency", "durationDays",
			"maxGroupSize",
		},
		SetFields: []string{"categories", "destinations"},
	},
}

// ProfileOf returns the moderation profile of k. Unknown kinds yield a zero
// Profile that supports nothing.
func ProfileOf(k Kind) Profile {
	p := profiles[k]
	p.DefaultFilters = p.DefaultFilters.Clone()
	return p
}
