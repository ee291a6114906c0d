package replan

import (
	"context"
	"time"

	"github.com/google/uuid"

	"planengine/internal/apperr"
	"planengine/internal/models"
)

// defaultRollbackWindow matches spec.md §3/§8 scenario 5:
// rollback_available_until is approximately now + 24h. Used when New is
// constructed with rollbackWindow <= 0.
const defaultRollbackWindow = 24 * time.Hour

// Apply commits a proposal's changes to the itinerary inside a single
// transaction, records the application with its rollback window, and
// marks the owning trigger processed. Replaying the same (tripID,
// idempotencyKey) pair returns the original application unchanged.
func (p *Pipeline) Apply(ctx context.Context, proposalID uuid.UUID, idempotencyKey string) (*models.ReplanApplication, error) {
	if idempotencyKey == "" {
		return nil, apperr.Validation("idempotency key is required")
	}

	proposal, err := p.store.GetReplanProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	if existing, err := p.store.GetReplanApplicationByIdempotencyKey(ctx, proposal.TripID, idempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	var application *models.ReplanApplication

	err = p.store.Transact(ctx, proposal.TripID, func(ctx context.Context) error {
		items, err := p.store.ListItems(ctx, proposal.TripID)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.ItineraryItem, len(items))
		touchedDays := map[int]bool{}
		for _, item := range items {
			byID[item.ID] = item
		}

		var toDelete []uuid.UUID
		var toCreate []models.ItineraryItem

		for _, r := range proposal.Changes.Replaced {
			old, ok := byID[r.OldItemID]
			if !ok {
				continue
			}
			toDelete = append(toDelete, old.ID)
			toCreate = append(toCreate, r.NewItem)
			touchedDays[old.Day] = true
			touchedDays[r.NewItem.Day] = true
			delete(byID, old.ID)
		}

		for _, id := range proposal.Changes.Removed {
			old, ok := byID[id]
			if !ok {
				continue
			}
			toDelete = append(toDelete, id)
			touchedDays[old.Day] = true
			delete(byID, id)
		}

		toCreate = append(toCreate, proposal.Changes.Added...)
		for _, added := range proposal.Changes.Added {
			touchedDays[added.Day] = true
		}

		if len(toDelete) > 0 {
			if err := p.store.DeleteItems(ctx, toDelete); err != nil {
				return err
			}
		}
		if len(toCreate) > 0 {
			if err := p.store.CreateItems(ctx, toCreate); err != nil {
				return err
			}
		}

		for _, m := range proposal.Changes.Moved {
			item, ok := byID[m.ItemID]
			if !ok {
				continue
			}
			touchedDays[item.Day] = true
			touchedDays[m.NewDay] = true
			item.Day = m.NewDay
			item.StartTime = m.NewStart
			end, err := addMinutesClamped(m.NewStart, item.DurationMinutes)
			if err != nil {
				return err
			}
			item.EndTime = end
			if err := p.store.UpdateItem(ctx, &item); err != nil {
				return err
			}
		}

		for day := range touchedDays {
			if err := p.reflowDay(ctx, proposal.TripID, day); err != nil {
				return err
			}
		}

		all, err := p.store.ListItems(ctx, proposal.TripID)
		if err != nil {
			return err
		}
		version, err := p.store.LatestVersion(ctx, proposal.TripID)
		if err != nil {
			return err
		}
		if err := p.store.CreateVersion(ctx, &models.ItineraryVersion{
			TripID:     proposal.TripID,
			Version:    version + 1,
			ChangeType: models.ChangeReplan,
			ChangedBy:  "replan",
			Snapshot:   groupByDay(all),
		}); err != nil {
			return err
		}
		if err := p.store.SetCurrentVersion(ctx, proposal.TripID, version+1, time.Now()); err != nil {
			return err
		}

		if err := p.store.MarkTriggerProcessed(ctx, proposal.TriggerID); err != nil {
			return err
		}

		application = &models.ReplanApplication{
			TripID:                 proposal.TripID,
			ProposalID:             proposal.ID,
			IdempotencyKey:         idempotencyKey,
			AppliedVersion:         version + 1,
			RollbackAvailableUntil: time.Now().Add(p.rollbackWindow),
		}
		return p.store.CreateReplanApplication(ctx, application)
	})
	if err != nil {
		return nil, err
	}

	p.validatePostApply(ctx, proposal.TripID)
	return application, nil
}
