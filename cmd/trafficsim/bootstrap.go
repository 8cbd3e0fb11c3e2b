package main

import (
	"log/slog"

	"github.com/shubham78763/trafficSignal/internal/config"
	"github.com/shubham78763/trafficSignal/internal/geo"
	"github.com/shubham78763/trafficSignal/internal/registry"
	"github.com/shubham78763/trafficSignal/internal/storage"
	"github.com/shubham78763/trafficSignal/pkg/core"
)

// intersectionCreator is the part of the controller used for seeding.
type intersectionCreator interface {
	Create(n core.NewIntersection) (core.Intersection, error)
	Intersections() []core.Intersection
}

// restoreIntersections loads the records saved by a previous run into reg.
// Lifecycles do not survive a restart, so every restored record is stored
// inactive and written back that way.
func restoreIntersections(reg *registry.Registry, backend storage.Backend, logger *slog.Logger) int {
	loader, ok := backend.(storage.Loader)
	if !ok {
		return 0
	}

	recs, err := loader.LoadIntersections()
	if err != nil {
		logger.Warn("Failed to load saved intersections", "error", err)
		return 0
	}

	restored := 0
	for _, rec := range recs {
		rec.IsActive = false
		if err := reg.Add(rec); err != nil {
			logger.Warn("Skipping saved intersection", "id", rec.ID, "error", err)
			continue
		}
		if err := backend.SaveIntersection(&rec); err != nil {
			logger.Warn("Failed to save restored intersection", "id", rec.ID, "error", err)
		}
		restored++
	}
	return restored
}

// seedIntersections creates the configured intersections that do not
// already exist by name.
func seedIntersections(ctl intersectionCreator, seeds []config.SeedIntersection, backends []storage.Backend, logger *slog.Logger) int {
	existing := make(map[string]bool)
	for _, rec := range ctl.Intersections() {
		existing[rec.Name] = true
	}

	created := 0
	for _, seed := range seeds {
		if existing[seed.Name] {
			logger.Debug("Seed intersection already present", "name", seed.Name)
			continue
		}
		coords := core.Coordinates{Lat: seed.Lat, Lng: seed.Lng}
		if err := geo.Validate(coords); err != nil {
			logger.Warn("Invalid seed intersection", "name", seed.Name, "error", err)
			continue
		}

		rec, err := ctl.Create(core.NewIntersection{
			Name:        seed.Name,
			Location:    seed.Location,
			Coordinates: coords,
		})
		if err != nil {
			logger.Warn("Failed to create seed intersection", "name", seed.Name, "error", err)
			continue
		}
		for _, b := range backends {
			if err := b.SaveIntersection(&rec); err != nil {
				logger.Warn("Failed to save seed intersection", "id", rec.ID, "error", err)
			}
		}
		existing[seed.Name] = true
		created++
	}
	return created
}
