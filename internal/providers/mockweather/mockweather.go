// Package mockweather is a deterministic WeatherProvider stand-in for
// tests and local development.
package mockweather

import (
	"context"
	"fmt"

	"planengine/internal/models"
	"planengine/internal/providers"
)

// Provider returns a fixed forecast unless a scripted override has been
// set via SetForecast, which tests use to drive specific replan
// scenarios (e.g. heavy rain).
type Provider struct {
	overrides map[string]providers.WeatherForecast
}

func New() *Provider {
	return &Provider{overrides: map[string]providers.WeatherForecast{}}
}

// SetForecast scripts the forecast returned for a given (lat,lng,date)
// triple.
func (p *Provider) SetForecast(lat, lng float64, date string, forecast providers.WeatherForecast) {
	p.overrides[key(lat, lng, date)] = forecast
}

func (p *Provider) GetWeatherForecast(ctx context.Context, lat, lng float64, date string) (providers.WeatherForecast, error) {
	if f, ok := p.overrides[key(lat, lng, date)]; ok {
		return f, nil
	}
	return providers.WeatherForecast{
		Condition: models.ConditionSunny,
		Severity:  models.SeverityLow,
		Details:   models.WeatherDetails{Impact: "none"},
	}, nil
}

func key(lat, lng float64, date string) string {
	return fmt.Sprintf("%.5f,%.5f|%s", lat, lng, date)
}
