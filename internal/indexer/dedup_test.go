package indexer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyedLog(block uint64, tx byte, index uint) types.Log {
	return types.Log{BlockNumber: block, TxHash: common.Hash{tx}, Index: index}
}

func TestDeduperDropsRepeats(t *testing.T) {
	d := newLogDeduper(10)

	assert.False(t, d.Seen(keyedLog(5, 1, 0)), "first delivery")
	assert.True(t, d.Seen(keyedLog(5, 1, 0)), "repeat delivery")
	assert.False(t, d.Seen(keyedLog(5, 1, 1)), "different log index")
	assert.False(t, d.Seen(keyedLog(5, 2, 0)), "different tx")
}

func TestDeduperForget(t *testing.T) {
	d := newLogDeduper(10)
	log := keyedLog(7, 1, 0)

	d.Seen(log)
	d.Forget(log)
	assert.False(t, d.Seen(log))
}

func TestDeduperPrunesOldBlocks(t *testing.T) {
	d := newLogDeduper(10)
	for block := uint64(1); block <= 5; block++ {
		d.Seen(keyedLog(block, 1, 0))
	}
	require.Equal(t, 5, d.Len())

	d.Seen(keyedLog(100, 1, 0))
	require.Equal(t, 1, d.Len(), "old keys pruned")
	assert.False(t, d.Seen(keyedLog(1, 1, 0)), "pruned key accepted again")
}
