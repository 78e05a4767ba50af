package scheduling

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CampaignProgressTracker accumulates collected volume against campaign
// targets. Increments are additive at the storage layer so concurrent
// fulfillments cannot lose updates.
type CampaignProgressTracker struct {
	store Store
	log   zerolog.Logger
}

func NewCampaignProgressTracker(store Store, log zerolog.Logger) *CampaignProgressTracker {
	return &CampaignProgressTracker{store: store, log: log}
}

// Increment adds volumeML (converted to liters) to the campaign
// accumulator. Each call adds; callers must not call twice for the same
// donation.
func (t *CampaignProgressTracker) Increment(ctx context.Context, campaignID uuid.UUID, volumeML int) error {
	liters := float64(volumeML) / 1000.0
	if err := t.store.AddCampaignVolume(ctx, campaignID, liters); err != nil {
		return err
	}
	t.log.Info().
		Str("campaign_id", campaignID.String()).
		Float64("liters", liters).
		Msg("campaign progress incremented")
	return nil
}

// CampaignProgress is the read model for a campaign's collection drive.
// Percent is capped at 100 for display; the raw accumulator is not.
type CampaignProgress struct {
	CampaignID      uuid.UUID `json:"campaign_id"`
	CollectedLiters float64   `json:"collected_liters"`
	TargetLiters    float64   `json:"target_liters"`
	Percent         float64   `json:"percent"`
	RemainingLiters float64   `json:"remaining_liters"`
	TargetReached   bool      `json:"target_reached"`
}

func (t *CampaignProgressTracker) Progress(ctx context.Context, campaignID uuid.UUID) (*CampaignProgress, error) {
	c, err := t.store.GetCampaignByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	var percent float64
	if c.TargetLiters > 0 {
		percent = math.Min(c.CollectedLiters/c.TargetLiters*100, 100)
	}

	return &CampaignProgress{
		CampaignID:      c.ID,
		CollectedLiters: c.CollectedLiters,
		TargetLiters:    c.TargetLiters,
		Percent:         math.Round(percent*100) / 100,
		RemainingLiters: math.Max(c.TargetLiters-c.CollectedLiters, 0),
		TargetReached:   c.CollectedLiters >= c.TargetLiters,
	}, nil
}
