// Package monitor runs a per-trip background check loop that polls the
// weather provider for fresh disruption signals and feeds them through
// the replan pipeline's Ingest stage. It is a supplemented feature
// (SPEC_FULL.md "Supplemented Features"), reimplemented from the
// teacher's MonitorTrip/StopMonitoring against internal/replan instead
// of Firestore. Unlike the teacher's StopMonitoring (a log line with no
// actual cancellation), Stop here cancels the running goroutine.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"planengine/internal/models"
	"planengine/internal/providers"
	"planengine/internal/replan"
	"planengine/internal/store"
	"planengine/internal/timegeo"
)

// DefaultInterval is how often a monitored trip is re-checked.
const DefaultInterval = 15 * time.Minute

// Monitor tracks one background goroutine per monitored trip.
type Monitor struct {
	store    store.Store
	weather  providers.WeatherProvider
	replan   *replan.Pipeline
	interval time.Duration

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

// New constructs a Monitor. interval <= 0 uses DefaultInterval.
func New(st store.Store, weather providers.WeatherProvider, rp *replan.Pipeline, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		store:    st,
		weather:  weather,
		replan:   rp,
		interval: interval,
		cancels:  make(map[uuid.UUID]context.CancelFunc),
	}
}

// Start begins periodic weather checks for tripID. Calling Start again
// on an already-monitored trip is a no-op.
func (m *Monitor) Start(tripID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, running := m.cancels[tripID]; running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancels[tripID] = cancel
	go m.run(ctx, tripID)
	log.Info().Str("trip_id", tripID.String()).Msg("started trip monitoring")
}

// Stop cancels the background loop for tripID, if one is running.
func (m *Monitor) Stop(tripID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.cancels[tripID]; ok {
		cancel()
		delete(m.cancels, tripID)
		log.Info().Str("trip_id", tripID.String()).Msg("stopped trip monitoring")
	}
}

func (m *Monitor) run(ctx context.Context, tripID uuid.UUID) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.checkOnce(ctx, tripID); err != nil {
				log.Warn().Err(err).Str("trip_id", tripID.String()).Msg("trip monitoring check failed")
			}
		}
	}
}

// checkOnce asks the weather provider for a fresh forecast at each
// distinct item location/day and feeds any signal other than sunny or
// cloudy through the replan pipeline's Ingest stage.
func (m *Monitor) checkOnce(ctx context.Context, tripID uuid.UUID) error {
	if m.weather == nil {
		return nil
	}
	prefs, err := m.store.GetTripPreferences(ctx, tripID)
	if err != nil {
		return err
	}
	items, err := m.store.ListItems(ctx, tripID)
	if err != nil {
		return err
	}

	checked := map[string]bool{}
	for _, item := range items {
		if item.Location == nil {
			continue
		}
		date, err := timegeo.AddDays(prefs.StartDate, item.Day-1)
		if err != nil {
			continue
		}
		key := fmt.Sprintf("%s|%.5f,%.5f", date, item.Location.Lat, item.Location.Lng)
		if checked[key] {
			continue
		}
		checked[key] = true

		forecast, err := m.weather.GetWeatherForecast(ctx, item.Location.Lat, item.Location.Lng, date)
		if err != nil {
			log.Warn().Err(err).Str("trip_id", tripID.String()).Msg("weather lookup failed during monitoring")
			continue
		}
		if forecast.Condition == models.ConditionSunny || forecast.Condition == models.ConditionCloudy {
			continue
		}

		start, end, err := dayBounds(date, item.StartTime, item.EndTime)
		if err != nil {
			continue
		}
		if _, _, err := m.replan.Ingest(ctx, replan.IngestInput{
			TripID:   tripID,
			Type:     models.EventWeather,
			Severity: forecast.Severity,
			Location: *item.Location,
			TimeSlot: models.TimeSlot{Start: start, End: end},
			Details: models.EventDetails{Weather: &models.WeatherDetails{
				Condition: forecast.Condition,
				Impact:    forecast.Details.Impact,
			}},
		}); err != nil {
			log.Warn().Err(err).Str("trip_id", tripID.String()).Msg("ingest from monitoring check failed")
		}
	}
	return nil
}

func dayBounds(date, startTime, endTime string) (time.Time, time.Time, error) {
	layout := "2006-01-02 15:04"
	start, err := time.Parse(layout, date+" "+startTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(layout, date+" "+endTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
