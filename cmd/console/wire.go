package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/backend"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/config"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/http/handlers"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/store"
)

// consoleSet holds one store per entity kind.
type consoleSet struct {
	consoles []handlers.Console
	closers  []func()
}

// Consoles returns the stores in domain kind order.
func (s *consoleSet) Consoles() []handlers.Console { return s.consoles }

// Close stops every store's background timers.
func (s *consoleSet) Close() {
	for _, c := range s.closers {
		c()
	}
}

// buildConsoles creates the backend and store of every kind according to
// cfg.Backend.Mode.
func buildConsoles(db *gorm.DB, cfg config.Config, lg zerolog.Logger) (*consoleSet, error) {
	set := &consoleSet{}
	if err := addKind[domain.Article](set, db, cfg, lg, domain.KindArticle); err != nil {
		return nil, err
	}
	if err := addKind[domain.Advertisement](set, db, cfg, lg, domain.KindAdvertisement); err != nil {
		return nil, err
	}
	if err := addKind[domain.Tour](set, db, cfg, lg, domain.KindTour); err != nil {
		return nil, err
	}
	return set, nil
}

func addKind[T domain.Entity](set *consoleSet, db *gorm.DB, cfg config.Config, lg zerolog.Logger, kind domain.Kind) error {
	b, err := newBackend[T](db, cfg, kind)
	if err != nil {
		return fmt.Errorf("%s backend: %w", kind, err)
	}
	s := store.New[T](backend.Instrument[T](kind, b), store.Options{
		Kind:           kind,
		FetchTimeout:   cfg.Sync.FetchTimeout,
		SearchDebounce: cfg.Sync.SearchDebounce,
		DefaultLimit:   cfg.Sync.DefaultPageSize,
		MaxLimit:       cfg.Sync.MaxPageSize,
		Prefetch:       cfg.Sync.PrefetchEnabled,
		Logger:         lg,
	})
	set.consoles = append(set.consoles, s)
	set.closers = append(set.closers, s.Close)
	return nil
}

func newBackend[T domain.Entity](db *gorm.DB, cfg config.Config, kind domain.Kind) (backend.Backend[T], error) {
	switch cfg.Backend.Mode {
	case config.BackendHTTP:
		retries := cfg.Backend.Retries
		if retries < 0 {
			retries = 0
		}
		return backend.NewClient[T](kind, cfg.Backend.URL, backend.ClientOptions{
			Timeout:   cfg.Backend.Timeout,
			UserAgent: cfg.Backend.UserAgent,
			RPS:       cfg.Backend.RPS,
			Burst:     1,
			Retries:   uint(retries),
		})
	case config.BackendEmbedded:
		return backend.NewLocal[T](db, kind)
	}
	return nil, fmt.Errorf("unknown backend mode %q", cfg.Backend.Mode)
}
