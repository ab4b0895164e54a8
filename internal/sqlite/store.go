package sqlite

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/mesh-intelligence/ganki/pkg/types"
)

// cardKey converts a caller-supplied key into a card id. Note guids are
// strings, so decimal strings are accepted as well as integer kinds.
func cardKey(key any) (int64, error) {
	switch k := key.(type) {
	case int64:
		return k, nil
	case int:
		return int64(k), nil
	case int32:
		return int64(k), nil
	case float64:
		if k != math.Trunc(k) {
			return 0, fmt.Errorf("%v: %w", k, types.ErrInvalidKey)
		}
		return int64(k), nil
	case json.Number:
		id, err := k.Int64()
		if err != nil {
			return 0, fmt.Errorf("%q: %w", k, types.ErrInvalidKey)
		}
		return id, nil
	case string:
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q: %w", k, types.ErrInvalidKey)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("%T: %w", key, types.ErrInvalidKey)
	}
}

// mediaKey converts a caller-supplied key into a media name.
func mediaKey(key any) (string, error) {
	name, ok := key.(string)
	if !ok || name == "" {
		return "", fmt.Errorf("%v: %w", key, types.ErrInvalidKey)
	}
	return name, nil
}

// toCard accepts *types.Card or types.Card and validates it.
func toCard(record any) (*types.Card, error) {
	var card *types.Card
	switch r := record.(type) {
	case *types.Card:
		card = r
	case types.Card:
		card = &r
	default:
		return nil, fmt.Errorf("expected card, got %T: %w", record, types.ErrInvalidData)
	}
	if card == nil {
		return nil, fmt.Errorf("nil card: %w", types.ErrInvalidData)
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return card, nil
}

// toMedia accepts *types.Media or types.Media and validates it.
func toMedia(record any) (*types.Media, error) {
	var m *types.Media
	switch r := record.(type) {
	case *types.Media:
		m = r
	case types.Media:
		m = &r
	default:
		return nil, fmt.Errorf("expected media, got %T: %w", record, types.ErrInvalidData)
	}
	if m == nil {
		return nil, fmt.Errorf("nil media: %w", types.ErrInvalidData)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
