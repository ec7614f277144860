package catalog

import (
	_ "embed"
	"fmt"
)

//go:embed data/catalog.json
var embedded []byte

// Load parses the catalog document embedded in the binary.
func Load() (*Catalog, error) {
	cat, err := Parse(embedded)
	if err != nil {
		return nil, fmt.Errorf("load embedded catalog: %w", err)
	}
	return cat, nil
}
