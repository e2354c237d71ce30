package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"giftbox-shop/models"
)

// Catalog is an in-memory product list indexed by id
type Catalog struct {
	products []models.Product
	byID     map[string]models.Product
}

// New builds a catalog from products. Later duplicates of an id are ignored.
func New(products []models.Product) *Catalog {
	c := &Catalog{byID: make(map[string]models.Product, len(products))}
	for _, p := range products {
		if _, exists := c.byID[p.ID]; exists {
			continue
		}
		c.byID[p.ID] = p
		c.products = append(c.products, p)
	}
	return c
}

// Default returns the built-in catalog
func Default() *Catalog {
	return New(defaultProducts)
}

// Load reads a JSON array of products from path. A missing file yields the
// built-in catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return New(products), nil
}

// Product returns the product with the given id
func (c *Catalog) Product(id string) (models.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// All returns the products in catalog order
func (c *Catalog) All() []models.Product {
	return append([]models.Product(nil), c.products...)
}

var defaultProducts = []models.Product{
	{ID: "059", Name: "Подарочная коробка с лентой", Artikul: "059", Color: "Розовая", SizeType: "малая", Price: 290},
	{ID: "060", Name: "Подарочная коробка с лентой", Artikul: "059", Color: "Тиффани", SizeType: "малая", Price: 290},
	{ID: "061", Name: "Подарочная коробка с лентой", Artikul: "059", Color: "Черная", SizeType: "малая", Price: 290},
	{ID: "120", Name: "Подарочная коробка с лентой", Artikul: "120", Color: "Сиреневая", SizeType: "средняя", Price: 450},
	{ID: "121", Name: "Подарочная коробка с лентой", Artikul: "120", Color: "Красная", SizeType: "средняя", Price: 450},
	{ID: "210", Name: "Подарочная коробка с лентой", Artikul: "210", Color: "Золото", SizeType: "большая", Price: 690},
	{ID: "211", Name: "Подарочная коробка с лентой", Artikul: "210", Color: "Серебро", SizeType: "большая", Price: 690},
}
