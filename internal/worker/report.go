package worker

import (
	"cmp"
	"slices"
	"time"

	"github.com/shubham78763/trafficSignal/pkg/core"
)

// IntersectionTraffic is one row of Report.ByIntersection.
type IntersectionTraffic struct {
	IntersectionID string `json:"intersectionId"`
	Name           string `json:"name"`
	Location       string `json:"location"`
	VehicleCount   int    `json:"vehicleCount"`
	IsActive       bool   `json:"isActive"`
}

// Report summarises traffic across every intersection.
//
// TotalVehicles and ByIntersection come from the per-intersection counters,
// which history eviction never decrements. ByType only covers the arrivals
// still held in history.
type Report struct {
	GeneratedAt    time.Time                `json:"generatedAt"`
	Intersections  int                      `json:"intersections"`
	Active         int                      `json:"active"`
	TotalVehicles  int                      `json:"totalVehicles"`
	Busiest        *IntersectionTraffic     `json:"busiest,omitempty"`
	ByIntersection []IntersectionTraffic    `json:"byIntersection"`
	ByType         map[core.VehicleType]int `json:"byType"`
	HistorySampled int                      `json:"historySampled"`
}

// BuildReport aggregates recs and history. ByIntersection is sorted by
// vehicle count, highest first, ties broken by id.
func BuildReport(recs []core.Intersection, history []core.VehicleEvent, now time.Time) Report {
	r := Report{
		GeneratedAt:    now.UTC(),
		Intersections:  len(recs),
		ByIntersection: make([]IntersectionTraffic, 0, len(recs)),
		ByType:         make(map[core.VehicleType]int, len(core.VehicleTypes)),
		HistorySampled: len(history),
	}
	for _, t := range core.VehicleTypes {
		r.ByType[t] = 0
	}

	for _, rec := range recs {
		r.TotalVehicles += rec.VehicleCount
		if rec.IsActive {
			r.Active++
		}
		r.ByIntersection = append(r.ByIntersection, IntersectionTraffic{
			IntersectionID: rec.ID,
			Name:           rec.Name,
			Location:       rec.Location,
			VehicleCount:   rec.VehicleCount,
			IsActive:       rec.IsActive,
		})
	}
	slices.SortFunc(r.ByIntersection, func(a, b IntersectionTraffic) int {
		if c := cmp.Compare(b.VehicleCount, a.VehicleCount); c != 0 {
			return c
		}
		return cmp.Compare(a.IntersectionID, b.IntersectionID)
	})
	if len(r.ByIntersection) > 0 {
		top := r.ByIntersection[0]
		r.Busiest = &top
	}

	for _, v := range history {
		r.ByType[v.Type]++
	}
	return r
}

// Report builds a Report from the engine's current state.
func (m *Manager) Report() Report {
	return BuildReport(
		m.deps.Engine.Intersections(),
		m.deps.Engine.History(m.deps.HistoryLimit),
		time.Now(),
	)
}
