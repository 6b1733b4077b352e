package repository

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/noah-isme/painel-aulas-api/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// EncodeSnapshot renders the persisted document, two-space indented.
func EncodeSnapshot(snapshot models.Snapshot) ([]byte, error) {
	snapshot.Normalize()
	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return payload, nil
}

// DecodeSnapshot parses the persisted document. An empty document is an empty snapshot.
func DecodeSnapshot(raw []byte) (models.Snapshot, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(bytes.TrimSpace(raw)) == 0 {
		return models.EmptySnapshot(), nil
	}
	var snapshot models.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	snapshot.Normalize()
	return snapshot, nil
}
