package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Strategy string

const (
	// StrategyUpdate overwrites the matched record with the incoming fields.
	StrategyUpdate Strategy = "update"
	// StrategySkip leaves the matched record untouched.
	StrategySkip Strategy = "skip"
	// StrategyCreateNew inserts the incoming record even when it matches.
	StrategyCreateNew Strategy = "create_new"

	DefaultStrategy = StrategyUpdate
)

func ParseStrategy(v string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(v))) {
	case "":
		return DefaultStrategy, nil
	case StrategyUpdate:
		return StrategyUpdate, nil
	case StrategySkip:
		return StrategySkip, nil
	case StrategyCreateNew:
		return StrategyCreateNew, nil
	default:
		return "", fmt.Errorf("unknown update strategy %q (expected update|skip|create_new)", v)
	}
}

func (s Strategy) String() string {
	return string(s)
}

// RawRecord is one caller-supplied record. A nil RawRecord stands for an array
// element that was not a JSON object.
type RawRecord map[string]any

// Payload is either a ListPayload or an EnvelopedPayload.
type Payload interface {
	Records() []RawRecord
	Strategy() Strategy
	isPayload()
}

// ListPayload is the legacy body: a bare array of records.
type ListPayload struct {
	Items []RawRecord
}

func (p ListPayload) Records() []RawRecord { return p.Items }
func (p ListPayload) Strategy() Strategy   { return DefaultStrategy }
func (ListPayload) isPayload()             {}

// EnvelopedPayload is the structured body: {"data": [...], "updateStrategy": "..."}.
type EnvelopedPayload struct {
	Items []RawRecord
	Mode  Strategy
}

func (p EnvelopedPayload) Records() []RawRecord { return p.Items }
func (p EnvelopedPayload) Strategy() Strategy {
	if p.Mode == "" {
		return DefaultStrategy
	}
	return p.Mode
}
func (EnvelopedPayload) isPayload() {}

type envelope struct {
	Data           json.RawMessage `json:"data"`
	UpdateStrategy *string         `json:"updateStrategy"`
}

// DecodePayload accepts either body variant and rejects every other shape with ErrInvalidPayload.
func DecodePayload(body []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, invalidPayload("empty body")
	}

	switch trimmed[0] {
	case '[':
		items, err := decodeItems(trimmed)
		if err != nil {
			return nil, err
		}
		return ListPayload{Items: items}, nil
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, invalidPayload("malformed JSON object")
		}
		data := bytes.TrimSpace(env.Data)
		if len(data) == 0 || data[0] != '[' {
			return nil, invalidPayload("data must be an array of records")
		}
		items, err := decodeItems(data)
		if err != nil {
			return nil, err
		}
		strategy := DefaultStrategy
		if env.UpdateStrategy != nil {
			strategy, err = ParseStrategy(*env.UpdateStrategy)
			if err != nil {
				return nil, invalidPayload(err.Error())
			}
		}
		return EnvelopedPayload{Items: items, Mode: strategy}, nil
	default:
		return nil, invalidPayload("body must be a JSON array or object")
	}
}

func decodeItems(data []byte) ([]RawRecord, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, invalidPayload("malformed JSON array")
	}
	if len(raws) == 0 {
		return nil, invalidPayload("no records to import")
	}

	items := make([]RawRecord, 0, len(raws))
	for _, raw := range raws {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			items = append(items, nil)
			continue
		}
		items = append(items, rec)
	}
	return items, nil
}

// NewRecordsPayload wraps records decoded from another format, such as a spreadsheet,
// under the same rules as a JSON envelope.
func NewRecordsPayload(items []RawRecord, strategy string) (Payload, error) {
	if len(items) == 0 {
		return nil, invalidPayload("no records to import")
	}
	s, err := ParseStrategy(strategy)
	if err != nil {
		return nil, invalidPayload(err.Error())
	}
	return EnvelopedPayload{Items: items, Mode: s}, nil
}
