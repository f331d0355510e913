package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"campaignScope/internal/indexer"
)

func TestReadinessWaitsForRunner(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, readiness(nil, nil)(ctx), "no checks")

	runner := indexer.NewRunner(indexer.RunConfig{}, nil, nil, nil, nil, nil)
	assert.ErrorIs(t, readiness(runner, nil)(ctx), errCatchingUp)
}
