package devicelist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/anicoll/winix-integration/internal/pkg/device"
)

var (
	ErrMissingID     = errors.New("device without id")
	ErrDuplicateID   = errors.New("duplicate device id")
	ErrDuplicateSlug = errors.New("duplicate device slug")
	ErrEmptySlug     = errors.New("alias and mac give an empty slug")
)

// Load reads the account's device descriptors from a JSON array.
func Load(path string) ([]device.Stub, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device list: %w", err)
	}
	return Parse(data)
}

// Parse decodes a device list. Ids must be unique, and so must the slugs
// derived from the aliases, since topics and lookups are keyed by slug.
func Parse(data []byte) ([]device.Stub, error) {
	var stubs []device.Stub
	if err := json.Unmarshal(data, &stubs); err != nil {
		return nil, fmt.Errorf("parse device list: %w", err)
	}

	ids := make(map[string]struct{}, len(stubs))
	slugs := make(map[string]string, len(stubs))
	for i, stub := range stubs {
		if stub.ID == "" {
			return nil, fmt.Errorf("device %d: %w", i, ErrMissingID)
		}
		if _, ok := ids[stub.ID]; ok {
			return nil, fmt.Errorf("%s: %w", stub.ID, ErrDuplicateID)
		}
		ids[stub.ID] = struct{}{}
		if stub.Alias == "" {
			stubs[i].Alias = stub.MAC
		}

		slug := stubs[i].Slug()
		if slug == "" {
			return nil, fmt.Errorf("%s: %w", stub.ID, ErrEmptySlug)
		}
		if other, ok := slugs[slug]; ok {
			return nil, fmt.Errorf("%s and %s share %q: %w", other, stub.ID, slug, ErrDuplicateSlug)
		}
		slugs[slug] = stub.ID
	}
	return stubs, nil
}
