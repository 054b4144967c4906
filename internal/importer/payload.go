package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedPayload is returned when the batch itself cannot be read.
// No record is processed in that case.
var ErrMalformedPayload = errors.New("malformed import payload")

// Record is one item of an import batch. Identifiers and prices may be
// given as JSON numbers or numeric strings.
type Record struct {
	Name                string      `json:"name"`
	CategoryID          json.Number `json:"category_id"`
	CategoryName        string      `json:"category_name"`
	CategoryDescription *string     `json:"category_description"`
	Description         *string     `json:"description"`
	Price               json.Number `json:"price"`
	Link                *string     `json:"link"`
	Image               *string     `json:"image"`
	Owned               bool        `json:"owned"`
	LastInterestDate    *time.Time  `json:"last_interest_date"`
}

// ParsePayload splits a batch into its raw records. A single object is a
// batch of one.
func ParsePayload(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}

	switch data[0] {
	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		return records, nil
	case '{':
		if !json.Valid(data) {
			return nil, fmt.Errorf("%w: invalid JSON object", ErrMalformedPayload)
		}
		return []json.RawMessage{json.RawMessage(data)}, nil
	}
	return nil, fmt.Errorf("%w: expected an object or an array of objects", ErrMalformedPayload)
}

// decodeRecord reads one raw record. It is lenient about field types only
// where noted on Record.
func decodeRecord(raw json.RawMessage) (*Record, error) {
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	r.Name = strings.TrimSpace(r.Name)
	r.CategoryName = strings.TrimSpace(r.CategoryName)
	return &r, nil
}

// recordName extracts the name of a record that may not decode, for error
// reporting.
func recordName(raw json.RawMessage) string {
	var r struct {
		Name any `json:"name"`
	}
	if json.Unmarshal(raw, &r) != nil {
		return ""
	}
	if s, ok := r.Name.(string); ok {
		return s
	}
	return ""
}
