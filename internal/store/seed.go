package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed seed/catalog.json
var defaultCatalog []byte

type Catalog struct {
	Products   []Product  `json:"products"`
	Pharmacies []Pharmacy `json:"pharmacies"`
}

type catalogWriter interface {
	CreateProduct(ctx context.Context, p *Product) error
	CountProducts(ctx context.Context) (int, error)
	CreatePharmacy(ctx context.Context, p *Pharmacy) error
}

// LoadCatalog reads the catalog at filePath, or the built-in one when
// filePath is empty.
func LoadCatalog(filePath string) (*Catalog, error) {
	raw := defaultCatalog
	if filePath != "" {
		b, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file %s: %w", filePath, err)
		}
		raw = b
	}
	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &c, nil
}

// SeedCatalog writes the catalog's reference data into w unless products
// already exist. It returns the number of products written.
func SeedCatalog(ctx context.Context, w catalogWriter, c *Catalog) (int, error) {
	existing, err := w.CountProducts(ctx)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	for i := range c.Products {
		p := c.Products[i]
		if err := w.CreateProduct(ctx, &p); err != nil {
			return i, fmt.Errorf("failed to seed product %q: %w", p.NameEn, err)
		}
	}
	for i := range c.Pharmacies {
		p := c.Pharmacies[i]
		if err := w.CreatePharmacy(ctx, &p); err != nil {
			return len(c.Products), fmt.Errorf("failed to seed pharmacy %q: %w", p.Name, err)
		}
	}
	return len(c.Products), nil
}
