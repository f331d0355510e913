package campaign

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testFactory  = common.HexToAddress("0xf000000000000000000000000000000000000001")
	testCampaign = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testCreator  = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	decoder, err := NewDecoder()
	require.NoError(t, err)
	return decoder
}

func TestEventIDMatchesSignature(t *testing.T) {
	decoder := newTestDecoder(t)
	want := crypto.Keccak256Hash([]byte("CampaignCreated(address,address,uint256,uint256)"))
	assert.Equal(t, want, decoder.EventID())
}

func TestDecodeCampaignCreated(t *testing.T) {
	decoder := newTestDecoder(t)

	goal, _ := new(big.Int).SetString("1000000000000000000", 10)
	log := buildLog(t, decoder, testCampaign, testCreator, goal, big.NewInt(1735689600))

	event, err := decoder.Decode(log)
	require.NoError(t, err)

	assert.Equal(t, testCampaign.Hex(), event.Campaign)
	assert.Equal(t, testCreator.Hex(), event.Creator)
	assert.Equal(t, "1000000000000000000", event.Goal.String())
	assert.Equal(t, "1735689600", event.Deadline.String())
	assert.Equal(t, log.TxHash.Hex(), event.TxHash)
	assert.Equal(t, uint64(42), event.BlockNumber)
	assert.Equal(t, uint64(3), event.LogIndex)
}

func TestDecodeLargeGoal(t *testing.T) {
	decoder := newTestDecoder(t)

	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	event, err := decoder.Decode(buildLog(t, decoder, testCampaign, testCreator, maxUint256, big.NewInt(1)))
	require.NoError(t, err)
	assert.Zero(t, event.Goal.Cmp(maxUint256), "goal %s", event.Goal)
}

func TestDecodeSignatureMismatch(t *testing.T) {
	decoder := newTestDecoder(t)

	log := buildLog(t, decoder, testCampaign, testCreator, big.NewInt(1), big.NewInt(2))
	log.Topics[0] = crypto.Keccak256Hash([]byte("Donated(address,address,uint256)"))

	_, err := decoder.Decode(log)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	log.Topics = nil
	_, err = decoder.Decode(log)
	assert.ErrorIs(t, err, ErrSignatureMismatch, "empty topics")
}

func TestDecodeMalformed(t *testing.T) {
	decoder := newTestDecoder(t)

	cases := map[string]func(*types.Log){
		"truncated data": func(l *types.Log) { l.Data = l.Data[:40] },
		"empty data":     func(l *types.Log) { l.Data = nil },
		"trailing data":  func(l *types.Log) { l.Data = append(l.Data, make([]byte, 32)...) },
		"missing topic":  func(l *types.Log) { l.Topics = l.Topics[:2] },
		"extra topic":    func(l *types.Log) { l.Topics = append(l.Topics, common.Hash{}) },
		"dirty address topic": func(l *types.Log) {
			l.Topics[1] = common.HexToHash("0x01000000000000000000000000aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			log := buildLog(t, decoder, testCampaign, testCreator, big.NewInt(1), big.NewInt(2))
			mutate(&log)

			_, err := decoder.Decode(log)
			require.ErrorIs(t, err, ErrMalformed)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.NotEmpty(t, decodeErr.Reason)
		})
	}
}

func buildLog(t *testing.T, decoder *Decoder, campaign, creator common.Address, goal, deadline *big.Int) types.Log {
	t.Helper()

	data, err := decoder.event.Inputs.NonIndexed().Pack(goal, deadline)
	require.NoError(t, err)

	return types.Log{
		Address: testFactory,
		Topics: []common.Hash{
			decoder.EventID(),
			common.BytesToHash(campaign.Bytes()),
			common.BytesToHash(creator.Bytes()),
		},
		Data:        data,
		BlockNumber: 42,
		TxHash:      common.HexToHash("0x1234"),
		Index:       3,
	}
}
