package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

// SeedResult reports how many rows Seed inserted per table.
type SeedResult struct {
	Articles       int
	Advertisements int
	Tours          int
}

// Seed inserts a demo catalogue into every empty entity table. Tables that
// already hold rows are left untouched, so Seed is safe to run repeatedly.
func Seed(ctx context.Context, db *gorm.DB, now time.Time) (SeedResult, error) {
	var res SeedResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if res.Articles, err = seedTable(tx, demoArticles(now)); err != nil {
			return fmt.Errorf("seed articles: %w", err)
		}
		if res.Advertisements, err = seedTable(tx, demoAdvertisements(now)); err != nil {
			return fmt.Errorf("seed advertisements: %w", err)
		}
		if res.Tours, err = seedTable(tx, demoTours(now)); err != nil {
			return fmt.Errorf("seed tours: %w", err)
		}
		return nil
	})
	return res, err
}

func seedTable[T any](tx *gorm.DB, rows []T) (int, error) {
	var n int64
	if err := tx.Unscoped().Model(new(T)).Count(&n).Error; err != nil {
		return 0, err
	}
	if n > 0 || len(rows) == 0 {
		return 0, nil
	}
	if err := tx.CreateInBatches(rows, 50).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

var (
	demoDestinations = []string{"sylhet", "coxs-bazar", "sundarbans", "bandarban", "srimangal", "dhaka"}
	demoCategories   = []string{"adventure", "culture", "food", "nature", "heritage"}
)

func pick(list []string, i, n int) []string {
	out := make([]string, 0, n)
	for k := 0; k < n; k++ {
		out = append(out, list[(i+k)%len(list)])
	}
	return out
}

func demoArticles(now time.Time) []domain.Article {
	statuses := []string{"pending", "pending", "published", "rejected", "draft"}
	out := make([]domain.Article, 0, 24)
	for i := 0; i < 24; i++ {
		dest := demoDestinations[i%len(demoDestinations)]
		created := now.Add(-time.Duration(i) * 6 * time.Hour)
		out = append(out, domain.Article{
			ID:             uuid.NewString(),
			Title:          fmt.Sprintf("Travel notes #%d: %s", i+1, dest),
			Slug:           fmt.Sprintf("travel-notes-%d-%s", i+1, dest),
			Summary:        "A first-hand account of a trip to " + dest + ".",
			Content:        "Practical tips, routes and places to eat around " + dest + ".",
			Status:         statuses[i%len(statuses)],
			Categories:     pick(demoCategories, i, 2),
			Tags:           []string{dest, "guide"},
			Destinations:   []string{dest},
			AuthorID:       fmt.Sprintf("author-%d", i%5+1),
			AuthorName:     fmt.Sprintf("Author %d", i%5+1),
			ReadingMinutes: 3 + i%9,
			IsFeatured:     i%7 == 0,
			CreatedAt:      created,
			UpdatedAt:      created,
		})
	}
	return out
}

func demoAdvertisements(now time.Time) []domain.Advertisement {
	statuses := []string{"pending", "active", "paused", "rejected"}
	placements := []string{"homepage-banner", "sidebar", "search-top", "tour-detail"}
	plans := []string{"basic", "standard", "premium"}
	out := make([]domain.Advertisement, 0, 16)
	for i := 0; i < 16; i++ {
		created := now.Add(-time.Duration(i) * 9 * time.Hour)
		out = append(out, domain.Advertisement{
			ID:             uuid.NewString(),
			Title:          fmt.Sprintf("Campaign %d", i+1),
			AdvertiserID:   fmt.Sprintf("adv-%d", i%4+1),
			AdvertiserName: fmt.Sprintf("Operator %d Travels", i%4+1),
			Status:         statuses[i%len(statuses)],
			Placements:     pick(placements, i, 1+i%2),
			Plan:           plans[i%len(plans)],
			Budget:         float64(500 * (1 + i%6)),
			Currency:       "BDT",
			StartsAt:       created,
			EndsAt:         created.Add(30 * 24 * time.Hour),
			TargetURL:      fmt.Sprintf("https://example.com/campaign/%d", i+1),
			CreatedAt:      created,
			UpdatedAt:      created,
		})
	}
	return out
}

func demoTours(now time.Time) []domain.Tour {
	moderation := []string{"pending", "pending", "approved", "rejected"}
	out := make([]domain.Tour, 0, 18)
	for i := 0; i < 18; i++ {
		dest := demoDestinations[i%len(demoDestinations)]
		created := now.Add(-time.Duration(i) * 5 * time.Hour)
		days := 2 + i%4
		itinerary := make([]domain.ItineraryDay, 0, days)
		for d := 1; d <= days; d++ {
			itinerary = append(itinerary, domain.ItineraryDay{
				Day:   d,
				Title: fmt.Sprintf("Day %d in %s", d, dest),
			})
		}
		out = append(out, domain.Tour{
			ID:               uuid.NewString(),
			Title:            fmt.Sprintf("%d-day %s explorer", days, dest),
			Slug:             fmt.Sprintf("%s-explorer-%d", dest, i+1),
			Summary:          "Guided small-group tour around " + dest + ".",
			GuideID:          fmt.Sprintf("guide-%d", i%6+1),
			GuideName:        fmt.Sprintf("Guide %d", i%6+1),
			Status:           "submitted",
			ModerationStatus: moderation[i%len(moderation)],
			Categories:       pick(demoCategories, i, 2),
			Destinations:     []string{dest},
			Highlights:       []string{"local food", "sunrise viewpoint"},
			Itinerary:        itinerary,
			Price:            float64(4000 + 1500*days),
			Currency:         "BDT",
			DurationDays:     days,
			MaxGroupSize:     8 + i%5,
			CreatedAt:        created,
			UpdatedAt:        created,
		})
	}
	return out
}
