package cartsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrCorruptLocalCart is returned when persisted local cart data cannot be decoded.
var ErrCorruptLocalCart = errors.New("local cart data is corrupt")

// LocalStore persists the client-local cart between sessions.
type LocalStore interface {
	Load(ctx context.Context) ([]Line, error)
	Save(ctx context.Context, lines []Line) error
	Clear(ctx context.Context) error
}

func encodeLines(lines []Line) ([]byte, error) {
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(lines)
}

// decodeLines parses a stored cart. Lines without ids or with a non-positive
// quantity are dropped; the first line wins for a repeated key.
func decodeLines(data []byte) ([]Line, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw []Line
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptLocalCart, err)
	}
	seen := make(map[Key]struct{}, len(raw))
	out := make([]Line, 0, len(raw))
	for _, line := range raw {
		if line.ProductID == uuid.Nil || line.VariantID == uuid.Nil || line.Quantity <= 0 {
			continue
		}
		if _, dup := seen[line.Key()]; dup {
			continue
		}
		seen[line.Key()] = struct{}{}
		out = append(out, line)
	}
	return out, nil
}
