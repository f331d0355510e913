// Package campaign decodes CampaignCreated factory logs against an explicit schema.
package campaign

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"campaignScope/internal/model"
)

const wordSize = 32

// field describes one event input the decoder insists on.
type field struct {
	name    string
	typ     string
	indexed bool
}

var campaignCreatedSchema = []field{
	{name: "campaign", typ: "address", indexed: true},
	{name: "creator", typ: "address", indexed: true},
	{name: "goal", typ: "uint256"},
	{name: "deadline", typ: "uint256"},
}

// Decoder turns raw factory logs into CampaignCreated payloads.
type Decoder struct {
	event abi.Event
}

// NewDecoder builds a decoder and checks the ABI against the expected schema.
func NewDecoder() (*Decoder, error) {
	factory, err := FactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}
	event, ok := factory.Events[EventName]
	if !ok {
		return nil, fmt.Errorf("factory abi has no %s event", EventName)
	}
	if err := checkSchema(event); err != nil {
		return nil, err
	}
	return &Decoder{event: event}, nil
}

// EventID returns topic0 of CampaignCreated.
func (d *Decoder) EventID() common.Hash {
	return d.event.ID
}

// Decode extracts a CampaignCreated payload from log.
// Failures are *DecodeError values matching ErrSignatureMismatch or ErrMalformed.
func (d *Decoder) Decode(log types.Log) (model.CampaignCreated, error) {
	if len(log.Topics) == 0 {
		return model.CampaignCreated{}, mismatch("missing topic0")
	}
	if log.Topics[0] != d.event.ID {
		return model.CampaignCreated{}, mismatch("topic0 %s", log.Topics[0].Hex())
	}

	indexed := indexedArguments(d.event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return model.CampaignCreated{}, malformed("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}
	for i, topic := range log.Topics[1:] {
		if !isAddressWord(topic) {
			return model.CampaignCreated{}, malformed("topic %d is not a left-padded address", i+1)
		}
	}

	var parsed struct {
		Campaign common.Address
		Creator  common.Address
	}
	if err := abi.ParseTopics(&parsed, indexed, log.Topics[1:]); err != nil {
		return model.CampaignCreated{}, malformed("parse topics: %v", err)
	}

	nonIndexed := d.event.Inputs.NonIndexed()
	if want := len(nonIndexed) * wordSize; len(log.Data) != want {
		return model.CampaignCreated{}, malformed("data length %d, want %d", len(log.Data), want)
	}
	values, err := nonIndexed.Unpack(log.Data)
	if err != nil {
		return model.CampaignCreated{}, malformed("unpack %s: %v", d.event.Name, err)
	}
	if len(values) != len(nonIndexed) {
		return model.CampaignCreated{}, malformed("unexpected value count %d", len(values))
	}

	goal, err := asBigInt(values[0])
	if err != nil {
		return model.CampaignCreated{}, malformed("goal: %v", err)
	}
	deadline, err := asBigInt(values[1])
	if err != nil {
		return model.CampaignCreated{}, malformed("deadline: %v", err)
	}

	return model.CampaignCreated{
		Campaign:    parsed.Campaign.Hex(),
		Creator:     parsed.Creator.Hex(),
		Goal:        goal,
		Deadline:    deadline,
		TxHash:      log.TxHash.Hex(),
		BlockNumber: log.BlockNumber,
		LogIndex:    uint64(log.Index),
	}, nil
}

func checkSchema(event abi.Event) error {
	if event.Anonymous {
		return fmt.Errorf("%s must not be anonymous", event.Name)
	}
	if len(event.Inputs) != len(campaignCreatedSchema) {
		return fmt.Errorf("%s has %d inputs, want %d", event.Name, len(event.Inputs), len(campaignCreatedSchema))
	}
	for i, want := range campaignCreatedSchema {
		got := event.Inputs[i]
		if got.Name != want.name || got.Type.String() != want.typ || got.Indexed != want.indexed {
			return fmt.Errorf("%s input %d is %s %s (indexed=%t), want %s %s (indexed=%t)",
				event.Name, i, got.Type.String(), got.Name, got.Indexed, want.typ, want.name, want.indexed)
		}
	}
	return nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func isAddressWord(h common.Hash) bool {
	for _, b := range h[:common.HashLength-common.AddressLength] {
		if b != 0 {
			return false
		}
	}
	return true
}

func asBigInt(v interface{}) (*big.Int, error) {
	switch typed := v.(type) {
	case *big.Int:
		if typed == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(typed), nil
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}
