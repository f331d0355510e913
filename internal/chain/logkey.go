package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogKey identifies a log delivery at the transport level.
type LogKey struct {
	BlockNumber uint64
	TxHash      common.Hash
	Index       uint
}

// KeyOf returns the transport key of log.
func KeyOf(log types.Log) LogKey {
	return LogKey{BlockNumber: log.BlockNumber, TxHash: log.TxHash, Index: log.Index}
}

func (k LogKey) String() string {
	return fmt.Sprintf("%d:%s:%d", k.BlockNumber, k.TxHash.Hex(), k.Index)
}
