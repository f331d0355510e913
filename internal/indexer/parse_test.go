package indexer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContract(t *testing.T) {
	addr, err := ParseContract(" 0xf000000000000000000000000000000000000001 ")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf000000000000000000000000000000000000001"), addr)

	for _, input := range []string{"", "0x1234", "not-an-address", "0x0000000000000000000000000000000000000000"} {
		_, err := ParseContract(input)
		assert.Error(t, err, "input %q", input)
	}
}
