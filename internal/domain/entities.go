package domain

import (
	"time"

	"gorm.io/gorm"
)

// Entity is anything the cache engine can hold: a record with an opaque,
// stable identifier.
type Entity interface {
	EntityID() string
}

// Article is a travel story submitted for publication.
//
// Status moves through draft → pending → published | rejected, with
// archived as a terminal state set by editors.
type Article struct {
	ID             string         `json:"id"             gorm:"type:char(36);primaryKey"`
	Title          string         `json:"title"          gorm:"type:varchar(255);not null"`
	Slug           string         `json:"slug"           gorm:"type:varchar(255);index"`
	Summary        string         `json:"summary"        gorm:"type:text"`
	Content        string         `json:"content"        gorm:"type:text"`
	Status         string         `json:"status"         gorm:"type:varchar(16);not null;default:'pending';index"`
	Categories     []string       `json:"categories"     gorm:"serializer:json"`
	Tags           []string       `json:"tags"           gorm:"serializer:json"`
	Destinations   []string       `json:"destinations"   gorm:"serializer:json"`
	AuthorID       string         `json:"authorId"       gorm:"type:varchar(64);index"`
	AuthorName     string         `json:"authorName"     gorm:"type:varchar(255)"`
	CoverImageURL  string         `json:"coverImageUrl"  gorm:"type:text"`
	SEOTitle       string         `json:"seoTitle"       gorm:"type:varchar(255)"`
	SEODescription string         `json:"seoDescription" gorm:"type:text"`
	ReadingMinutes int            `json:"readingMinutes"`
	IsFeatured     bool           `json:"isFeatured"`
	ViewCount      int64          `json:"viewCount"`
	ModerationNote string         `json:"moderationNote,omitempty" gorm:"type:text"`
	CreatedAt      time.Time      `json:"createdAt"      gorm:"index"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"deletedAt"      gorm:"index"`
}

// TableName returns the database table name for Article.
func (Article) TableName() string { return "articles" }

// EntityID implements Entity.
func (a Article) EntityID() string { return a.ID }

// Advertisement is a paid placement bought by an advertiser.
type Advertisement struct {
	ID             string         `json:"id"             gorm:"type:char(36);primaryKey"`
	Title          string         `json:"title"          gorm:"type:varchar(255);not null"`
	AdvertiserName string         `json:"advertiserName" gorm:"type:varchar(255)"`
	AdvertiserID   string         `json:"advertiserId"   gorm:"type:varchar(64);index"`
	Status         string         `json:"status"         gorm:"type:varchar(16);not null;default:'pending';index"`
	Placements     []string       `json:"placements"     gorm:"serializer:json"`
	Plan           string         `json:"plan"           gorm:"type:varchar(32)"`
	Budget         float64        `json:"budget"`
	Currency       string         `json:"currency"       gorm:"type:char(3)"`
	StartsAt       time.Time      `json:"startsAt"`
	EndsAt         time.Time      `json:"endsAt"`
	TargetURL      string         `json:"targetUrl"      gorm:"type:text"`
	CreativeURL    string         `json:"creativeUrl"    gorm:"type:text"`
	Impressions    int64          `json:"impressions"`
	Clicks         int64          `json:"clicks"`
	ModerationNote string         `json:"moderationNote,omitempty" gorm:"type:text"`
	CreatedAt      time.Time      `json:"createdAt"      gorm:"index"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"deletedAt"      gorm:"index"`
}

// TableName returns the database table name for Advertisement.
func (Advertisement) TableName() string { return "advertisements" }

// EntityID implements Entity.
func (a Advertisement) EntityID() string { return a.ID }

// ItineraryDay is one day of a tour. Days are ordered; reordering them is a
// meaningful edit.
type ItineraryDay struct {
	Day         int      `json:"day"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Stops       []string `json:"stops,omitempty"`
}

// Tour is a guided tour submitted by a guide. Publication state and
// moderation state are tracked separately.
type Tour struct {
	ID               string         `json:"id"               gorm:"type:char(36);primaryKey"`
	Title            string         `json:"title"            gorm:"type:varchar(255);not null"`
	Slug             string         `json:"slug"             gorm:"type:varchar(255);index"`
	Summary          string         `json:"summary"          gorm:"type:text"`
	GuideID          string         `json:"guideId"          gorm:"type:varchar(64);index"`
	GuideName        string         `json:"guideName"        gorm:"type:varchar(255)"`
	Status           string         `json:"status"           gorm:"type:varchar(16);not null;default:'draft'"`
	ModerationStatus string         `json:"moderationStatus" gorm:"type:varchar(16);not null;default:'pending';index"`
	Categories       []string       `json:"categories"       gorm:"serializer:json"`
	Destinations     []string       `json:"destinations"     gorm:"serializer:json"`
	Highlights       []string       `json:"highlights"       gorm:"serializer:json"`
	Itinerary        []ItineraryDay `json:"itinerary"        gorm:"serializer:json"`
	Price            float64        `json:"price"`
	Currency         string         `json:"currency"         gorm:"type:char(3)"`
	DurationDays     int            `json:"durationDays"`
	MaxGroupSize     int            `json:"maxGroupSize"`
	ModerationNote   string         `json:"moderationNote,omitempty" gorm:"type:text"`
	CreatedAt        time.Time      `json:"createdAt"        gorm:"index"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `json:"deletedAt"        gorm:"index"`
}

// TableName returns the database table name for Tour.
func (Tour) TableName() string { return "tours" }

// EntityID implements Entity.
func (t Tour) EntityID() string { return t.ID }
