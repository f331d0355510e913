package storage

import (
	"context"
	"errors"

	"campaignScope/internal/model"
)

// UpsertResult reports what an Upsert did.
type UpsertResult int

const (
	// Inserted means the record was stored.
	Inserted UpsertResult = iota + 1
	// AlreadyExists means a record with the same address was already stored; nothing changed.
	AlreadyExists
)

func (r UpsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

var (
	// ErrUnavailable means the backing store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
	// ErrIntegrity means the store rejected the record as invalid.
	ErrIntegrity = errors.New("store integrity violation")
	// ErrWriteFault is any other failed write or read.
	ErrWriteFault = errors.New("store write fault")
)

// CampaignStore is the campaign replica. Records are insert-only and keyed by address.
type CampaignStore interface {
	Upsert(ctx context.Context, record model.CampaignRecord) (UpsertResult, error)
	List(ctx context.Context) ([]model.CampaignRecord, error)
}
