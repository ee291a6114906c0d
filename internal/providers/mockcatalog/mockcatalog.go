// Package mockcatalog is an in-memory POICatalog used in tests and local
// development.
package mockcatalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"planengine/internal/models"
)

// Catalog holds a small seeded set of POIs, keyed by place id.
type Catalog struct {
	mu   sync.RWMutex
	pois map[string]models.POI
}

// New constructs the catalog with a seeded POI set spanning outdoor and
// indoor tags so the generator and replan strategies both have
// something to work with.
func New() *Catalog {
	c := &Catalog{pois: map[string]models.POI{}}
	c.seed()
	return c
}

func (c *Catalog) seed() {
	allWeek := map[string]models.DayHours{}
	for _, d := range []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		allWeek[d] = models.DayHours{Open: "09:00", Close: "18:00"}
	}

	low, high := int64(20000), int64(50000)

	c.pois["poi-park"] = models.POI{
		ID:                  uuid.New(),
		PlaceID:             "poi-park",
		Name:                "Riverside Park",
		Location:            models.Location{Lat: 13.7500, Lng: 100.5000},
		Hours:               allWeek,
		Tags:                []string{"outdoor", "park"},
		AvgDurationMinutes:  90,
		PriceRangeLowCents:  nil,
		PriceRangeHighCents: nil,
	}

	c.pois["poi-museum"] = models.POI{
		ID:                  uuid.New(),
		PlaceID:             "poi-museum",
		Name:                "National Museum",
		Location:            models.Location{Lat: 13.7520, Lng: 100.4950},
		Hours:               allWeek,
		Tags:                []string{"indoor", "kid_friendly"},
		AvgDurationMinutes:  120,
		PriceRangeLowCents:  &low,
		PriceRangeHighCents: &high,
	}

	c.pois["poi-market"] = models.POI{
		ID:                 uuid.New(),
		PlaceID:            "poi-market",
		Name:               "Night Market",
		Location:           models.Location{Lat: 13.7600, Lng: 100.5100},
		Hours:              allWeek,
		Tags:               []string{"outdoor", "market"},
		AvgDurationMinutes: 90,
	}
}

func (c *Catalog) Get(ctx context.Context, id string) (models.POI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	poi, ok := c.pois[id]
	if !ok {
		return models.POI{}, fmt.Errorf("mockcatalog: poi %q not found", id)
	}
	return poi, nil
}

func (c *Catalog) Search(ctx context.Context, filters map[string]interface{}) ([]models.POI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	wantTag, _ := filters["tag"].(string)
	out := make([]models.POI, 0, len(c.pois))
	for _, poi := range c.pois {
		if wantTag == "" || hasTag(poi.Tags, wantTag) {
			out = append(out, poi)
		}
	}
	return out, nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
