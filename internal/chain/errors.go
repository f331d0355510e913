package chain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// ErrInvalidFilter reports a filter the node rejected as invalid. It is a
// configuration error and is not retried.
var ErrInvalidFilter = errors.New("invalid log filter")

// JSON-RPC "invalid params".
const codeInvalidParams = -32602

func classify(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeInvalidParams {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return err
}

// IsInvalidFilter reports whether err is a non-retryable filter error.
func IsInvalidFilter(err error) bool {
	return errors.Is(err, ErrInvalidFilter)
}
