// Package samm wraps business records in the versioned semantic-model
// envelopes exchanged between gateways.
package samm

import (
	"encoding/json"
	"fmt"

	"github.com/catenax-ng/exchange-gateway/internal/domain"
)

type envelope struct {
	SemanticID string          `json:"semanticId"`
	Version    string          `json:"version"`
	Content    json.RawMessage `json:"content"`
}

type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

func (m *Mapper) ToWire(assetType domain.AssetType, schemaVersion string, record any) ([]byte, error) {
	if !assetType.Valid() {
		return nil, domain.NewUnknownAssetTypeError(string(assetType))
	}

	content, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal %s record: %w", assetType, err)
	}

	return json.Marshal(envelope{
		SemanticID: assetType.SemanticID(),
		Version:    schemaVersion,
		Content:    content,
	})
}

// FromWire unwraps an envelope back into its record. Payloads without an
// envelope, as some backend adapters send them, pass through as-is.
func (m *Mapper) FromWire(assetType domain.AssetType, schemaVersion string, data []byte) (any, error) {
	if !assetType.Valid() {
		return nil, domain.NewUnknownAssetTypeError(string(assetType))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Not an envelope object. Top-level arrays and scalars are still
		// valid envelope-less payloads.
		var record any
		if rawErr := json.Unmarshal(data, &record); rawErr != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", assetType, rawErr)
		}
		return record, nil
	}

	if env.SemanticID != "" && env.SemanticID != assetType.SemanticID() {
		return nil, fmt.Errorf("semantic model mismatch: got %s, want %s", env.SemanticID, assetType.SemanticID())
	}

	body := env.Content
	if len(body) == 0 {
		body = data
	}

	var record any
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("unmarshal %s content: %w", assetType, err)
	}
	return record, nil
}
