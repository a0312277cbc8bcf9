package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Country groups regions on a plate list.
type Country string

const (
	CountryUS     Country = "US"
	CountryCanada Country = "CA"
)

const (
	// DefaultPoints is awarded for a claimed id that is not in the catalog
	DefaultPoints = 1
)

// Region is a claimable state, district, province or territory.
type Region struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Points  int     `json:"points"`
	Country Country `json:"country"`
}

// Catalog is the immutable set of claimable regions.
// It is safe for concurrent use.
type Catalog struct {
	regions []Region
	byID    map[string]Region
}

// New builds a catalog from the given regions, preserving their order.
// Region ids must be unique and point values must be at least 1.
func New(regions []Region) (*Catalog, error) {
	c := &Catalog{
		regions: make([]Region, 0, len(regions)),
		byID:    make(map[string]Region, len(regions)),
	}
	for _, r := range regions {
		if r.ID == "" {
			return nil, fmt.Errorf("region %q has no id", r.Name)
		}
		if r.Points < 1 {
			return nil, fmt.Errorf("region %s has invalid point value %d", r.ID, r.Points)
		}
		if _, exists := c.byID[r.ID]; exists {
			return nil, fmt.Errorf("duplicate region id %s", r.ID)
		}
		c.regions = append(c.regions, r)
		c.byID[r.ID] = r
	}
	return c, nil
}

// MustNew is like New but panics on invalid input.
func MustNew(regions []Region) *Catalog {
	c, err := New(regions)
	if err != nil {
		panic(fmt.Sprintf("invalid catalog: %v", err))
	}
	return c
}

// Regions returns a copy of all regions in catalog order.
func (c *Catalog) Regions() []Region {
	out := make([]Region, len(c.regions))
	copy(out, c.regions)
	return out
}

// Len returns the number of regions.
func (c *Catalog) Len() int {
	return len(c.regions)
}

// Lookup returns the region with the given id.
func (c *Catalog) Lookup(id string) (Region, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// LookupAbbreviation finds a region by its plate code, ignoring case and
// surrounding whitespace.
func (c *Catalog) LookupAbbreviation(abbreviation string) (Region, bool) {
	return c.Lookup(strings.ToUpper(strings.TrimSpace(abbreviation)))
}

// PointsFor returns the point value of the region, or DefaultPoints for ids
// the catalog does not know.
func (c *Catalog) PointsFor(id string) int {
	if r, ok := c.byID[id]; ok {
		return r.Points
	}
	return DefaultPoints
}

// Progress returns the percentage of catalog regions present in spotted.
func (c *Catalog) Progress(spotted func(id string) bool) float64 {
	if len(c.regions) == 0 {
		return 0
	}
	n := 0
	for _, r := range c.regions {
		if spotted(r.ID) {
			n++
		}
	}
	return float64(n) / float64(len(c.regions)) * 100
}

// SortedBySpotted returns the regions with spotted ones first, each group
// ordered by name.
func (c *Catalog) SortedBySpotted(spotted func(id string) bool) []Region {
	out := c.Regions()
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := spotted(out[i].ID), spotted(out[j].ID)
		if si != sj {
			return si
		}
		return out[i].Name < out[j].Name
	})
	return out
}
