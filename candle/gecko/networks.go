// Package gecko adapts the GeckoTerminal pool OHLCV API for decentralized
// exchange streams.
package gecko

import (
	"encoding/json"
	"fmt"
	"os"
)

// Network is one entry of the startup-loaded DEX network catalog.
type Network struct {
	ID   string
	Name string
	// Slug is the CoinGecko asset platform id for the network.
	Slug string
}

// Catalog indexes the supported DEX networks by id. Factory construction
// rejects networks absent from the catalog.
type Catalog map[string]Network

type rawNetwork struct {
	ID         string `json:"id"`
	Attributes struct {
		Name string `json:"name"`
		Slug string `json:"coingecko_asset_platform_id"`
	} `json:"attributes"`
}

// LoadCatalog reads the network catalog asset (gecko-networks.json) from
// disk. The file holds the raw GeckoTerminal network listing.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a raw network listing.
func ParseCatalog(data []byte) (Catalog, error) {
	var raw []rawNetwork
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse network catalog: %w", err)
	}
	catalog := make(Catalog, len(raw))
	for _, n := range raw {
		catalog[n.ID] = Network{
			ID:   n.ID,
			Name: n.Attributes.Name,
			Slug: n.Attributes.Slug,
		}
	}
	return catalog, nil
}
