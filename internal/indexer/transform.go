package indexer

import (
	"time"

	"campaignScope/internal/model"
)

func buildCampaignRecord(event model.CampaignCreated, observedAt time.Time) model.CampaignRecord {
	return model.CampaignRecord{
		Address:      event.Campaign,
		Creator:      event.Creator,
		Goal:         event.Goal,
		Deadline:     event.Deadline,
		OriginTxHash: event.TxHash,
		BlockNumber:  event.BlockNumber,
		LogIndex:     event.LogIndex,
		ObservedAt:   observedAt.UTC(),
	}
}
