package query

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignScope/internal/model"
	"campaignScope/internal/storage"
	"campaignScope/internal/storage/memory"
)

type failingLister struct{}

func (failingLister) List(context.Context) ([]model.CampaignRecord, error) {
	return nil, storage.ErrUnavailable
}

func record(address string, observed time.Time) model.CampaignRecord {
	return model.CampaignRecord{
		Address:      address,
		Creator:      "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Goal:         big.NewInt(10),
		Deadline:     big.NewInt(20),
		OriginTxHash: "0x01",
		ObservedAt:   observed,
	}
}

func TestListCampaignsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Upsert(ctx, record("0xA", base))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, record("0xB", base.Add(time.Second)))
	require.NoError(t, err)

	records, err := NewService(store, nil).ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "0xB", records[0].Address)
	assert.Equal(t, "0xA", records[1].Address)
}

func TestListCampaignsEmpty(t *testing.T) {
	records, err := NewService(memory.NewStore(), nil).ListCampaigns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestListCampaignsUnavailable(t *testing.T) {
	_, err := NewService(failingLister{}, nil).ListCampaigns(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.NotContains(t, err.Error(), storage.ErrUnavailable.Error())
}
