package serial

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed devices.yaml
var devicesYAML []byte

// Pattern maps serial prefixes to a product.
type Pattern struct {
	Product  string   `yaml:"product" json:"product"`
	Prefixes []string `yaml:"prefixes" json:"prefixes"`
}

// Catalog lists the selectable products and the detection patterns.
type Catalog struct {
	Devices  []string  `yaml:"devices" json:"devices"`
	Patterns []Pattern `yaml:"patterns" json:"patterns"`
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := ParseCatalog(devicesYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded device catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// ParseCatalog reads a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse device catalog: %w", err)
	}
	for i, p := range c.Patterns {
		if p.Product == "" || len(p.Prefixes) == 0 {
			return nil, fmt.Errorf("pattern %d: product and prefixes are required", i)
		}
		for j := range p.Prefixes {
			c.Patterns[i].Prefixes[j] = strings.ToUpper(p.Prefixes[j])
		}
	}
	return &c, nil
}

// Has reports whether name is a selectable product.
func (c *Catalog) Has(name string) bool {
	for _, d := range c.Devices {
		if d == name {
			return true
		}
	}
	return false
}

// Detect returns the product whose prefix matches serial, ignoring case.
// Patterns are tried in catalog order.
func (c *Catalog) Detect(serial string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(serial))
	if upper == "" {
		return "", false
	}
	for _, p := range c.Patterns {
		for _, prefix := range p.Prefixes {
			if strings.HasPrefix(upper, prefix) {
				return p.Product, true
			}
		}
	}
	return "", false
}

// DetectProduct detects the product of serial with the default catalog.
func DetectProduct(serial string) (string, bool) {
	return DefaultCatalog().Detect(serial)
}
