package replan

import (
	"context"
	"time"

	"github.com/google/uuid"

	"planengine/internal/apperr"
	"planengine/internal/models"
)

// Rollback restores the itinerary to the snapshot taken immediately
// before a replan application, provided the application's rollback
// window has not expired and it has not already been rolled back.
func (p *Pipeline) Rollback(ctx context.Context, applicationID uuid.UUID) (*models.ReplanApplication, error) {
	application, err := p.store.GetReplanApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if application.RolledBack {
		return nil, apperr.RollbackExpired("this replan has already been rolled back")
	}
	if !time.Now().Before(application.RollbackAvailableUntil) {
		return nil, apperr.RollbackExpired("the rollback window for this replan has closed")
	}

	err = p.store.Transact(ctx, application.TripID, func(ctx context.Context) error {
		priorVersion := application.AppliedVersion - 1
		snapshot, err := p.store.GetVersionSnapshot(ctx, application.TripID, priorVersion)
		if err != nil {
			return err
		}

		current, err := p.store.ListItems(ctx, application.TripID)
		if err != nil {
			return err
		}
		var currentIDs []uuid.UUID
		for _, item := range current {
			currentIDs = append(currentIDs, item.ID)
		}
		if len(currentIDs) > 0 {
			if err := p.store.DeleteItems(ctx, currentIDs); err != nil {
				return err
			}
		}

		var restored []models.ItineraryItem
		for _, day := range snapshot.Snapshot {
			restored = append(restored, day.Items...)
		}
		if len(restored) > 0 {
			if err := p.store.CreateItems(ctx, restored); err != nil {
				return err
			}
		}

		if err := p.store.SetCurrentVersion(ctx, application.TripID, priorVersion, time.Now()); err != nil {
			return err
		}

		now := time.Now()
		application.RolledBack = true
		application.RolledBackAt = &now
		return p.store.MarkRolledBack(ctx, application.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return application, nil
}
