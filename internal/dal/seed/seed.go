package seed

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
)

// File is the layout of a catalog seed file.
type File struct {
	Restaurants []catalog.Restaurant `json:"rest_list"`
}

// LoadCatalog reads the restaurants of a seed file. Items without a
// description or quantity get zero values.
func LoadCatalog(path string) ([]catalog.Restaurant, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to decode seed file %s: %w", path, err)
	}

	seen := make(map[int64]struct{}, len(f.Restaurants))
	for _, r := range f.Restaurants {
		if r.ID <= 0 {
			return nil, fmt.Errorf("seed file %s: restaurant %q has no id", path, r.Name)
		}
		if _, ok := seen[r.ID]; ok {
			return nil, fmt.Errorf("seed file %s: duplicate restaurant id %d", path, r.ID)
		}
		seen[r.ID] = struct{}{}

		for _, item := range r.Items {
			if err := item.Validate(); err != nil {
				return nil, fmt.Errorf("seed file %s: item %d: %w", path, item.ID, err)
			}
		}
	}

	return f.Restaurants, nil
}
