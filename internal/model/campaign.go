package model

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

// CampaignCreated is the decoded payload of a CampaignCreated factory event.
type CampaignCreated struct {
	Campaign string
	Creator  string
	Goal     *big.Int
	Deadline *big.Int

	TxHash      string
	BlockNumber uint64
	LogIndex    uint64
}

// CampaignRecord is the replicated campaign row, keyed by Address.
type CampaignRecord struct {
	Address      string
	Creator      string
	Goal         *big.Int
	Deadline     *big.Int
	OriginTxHash string
	BlockNumber  uint64
	LogIndex     uint64
	ObservedAt   time.Time
}

type campaignRecordJSON struct {
	Address      string `json:"address"`
	Creator      string `json:"creator"`
	Goal         string `json:"goal"`
	Deadline     string `json:"deadline"`
	OriginTxHash string `json:"originTxHash"`
	BlockNumber  uint64 `json:"blockNumber"`
	LogIndex     uint64 `json:"logIndex"`
	ObservedAt   string `json:"observedAt"`
}

// MarshalJSON encodes big integers as decimal strings and ObservedAt as RFC3339.
func (r CampaignRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(campaignRecordJSON{
		Address:      r.Address,
		Creator:      r.Creator,
		Goal:         BigString(r.Goal),
		Deadline:     BigString(r.Deadline),
		OriginTxHash: r.OriginTxHash,
		BlockNumber:  r.BlockNumber,
		LogIndex:     r.LogIndex,
		ObservedAt:   r.ObservedAt.UTC().Format(time.RFC3339Nano),
	})
}

// UnmarshalJSON decodes a CampaignRecord from its wire form.
func (r *CampaignRecord) UnmarshalJSON(data []byte) error {
	var raw campaignRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	goal, err := ParseBig(raw.Goal)
	if err != nil {
		return fmt.Errorf("goal: %w", err)
	}
	deadline, err := ParseBig(raw.Deadline)
	if err != nil {
		return fmt.Errorf("deadline: %w", err)
	}

	var observedAt time.Time
	if raw.ObservedAt != "" {
		observedAt, err = time.Parse(time.RFC3339Nano, raw.ObservedAt)
		if err != nil {
			return fmt.Errorf("observedAt: %w", err)
		}
	}

	*r = CampaignRecord{
		Address:      raw.Address,
		Creator:      raw.Creator,
		Goal:         goal,
		Deadline:     deadline,
		OriginTxHash: raw.OriginTxHash,
		BlockNumber:  raw.BlockNumber,
		LogIndex:     raw.LogIndex,
		ObservedAt:   observedAt,
	}
	return nil
}

// BigString renders v in base 10, "0" for nil.
func BigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// ParseBig parses a base-10 integer string without any float conversion.
func ParseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}
