// Package query serves the campaign replica to readers.
package query

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"campaignScope/internal/model"
)

// ErrUnavailable is returned when the replica cannot be read. Callers show it
// as a generic failure; the cause is only logged.
var ErrUnavailable = errors.New("campaign list unavailable")

// Lister is the read side of the replica store.
type Lister interface {
	List(ctx context.Context) ([]model.CampaignRecord, error)
}

// Service reads campaigns straight from the store, without caching.
type Service struct {
	store  Lister
	logger *zap.Logger
}

func NewService(store Lister, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// ListCampaigns returns every indexed campaign, newest ObservedAt first.
func (s *Service) ListCampaigns(ctx context.Context) ([]model.CampaignRecord, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("list campaigns failed", zap.Error(err))
		return nil, ErrUnavailable
	}
	if records == nil {
		records = []model.CampaignRecord{}
	}
	return records, nil
}
