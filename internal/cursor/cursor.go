// Package cursor encodes and decodes opaque page cursors.
// Cursors are base64-encoded JSON binding a row id to the view state the
// ordering was computed under, so a cursor issued before a filter or sort
// change is rejected instead of producing a torn scroll session.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/rbeccah/airtable/internal/model"
)

type payloadV1 struct {
	Version  int    `json:"v"`
	RowID    string `json:"r"`
	StateKey string `json:"k"`
}

// Encode builds an opaque cursor pointing just after rowID within the
// ordering identified by stateKey.
func Encode(rowID, stateKey string) string {
	payload := payloadV1{
		Version:  1,
		RowID:    rowID,
		StateKey: stateKey,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// Decode parses an opaque cursor into its row id and state key.
func Decode(raw string) (rowID, stateKey string, err error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid cursor: %w", err)
	}
	var payload payloadV1
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", "", fmt.Errorf("invalid cursor format: expected v1 cursor")
	}
	if payload.Version != 1 {
		return "", "", fmt.Errorf("invalid cursor format: expected v1 cursor")
	}
	if payload.RowID == "" {
		return "", "", fmt.Errorf("invalid cursor: missing row id")
	}
	return payload.RowID, payload.StateKey, nil
}

// Validate confirms a decoded cursor was issued under the expected state.
func Validate(expectedStateKey, actualStateKey string) error {
	if actualStateKey != expectedStateKey {
		return fmt.Errorf("cursor state mismatch: view filters or sort changed since the cursor was issued")
	}
	return nil
}

// StateKey derives the ordering identity for a view's filter and sort
// state. Any change to filters or the applied sort produces a different
// key, invalidating outstanding cursors for that view.
func StateKey(viewID string, filters []model.FilterCondition, sorts []model.SortCondition) string {
	var sb strings.Builder
	sb.WriteString(viewID)
	for _, f := range filters {
		sb.WriteString("|f:")
		sb.WriteString(f.ColumnID)
		sb.WriteByte(':')
		sb.WriteString(string(f.Operator))
		sb.WriteByte(':')
		sb.WriteString(f.Value)
	}
	// Only the first sort condition participates in the ordering.
	if len(sorts) > 0 {
		sb.WriteString("|s:")
		sb.WriteString(sorts[0].ColumnID)
		sb.WriteByte(':')
		sb.WriteString(string(sorts[0].Order))
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(sb.String()))
	return fmt.Sprintf("%016x", h.Sum64())
}
