// Package catalog defines the ordered set of statistics that can be mapped.
package catalog

import (
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Format controls how an attribute value is rendered in labels.
type Format string

// Display formats.
const (
	FormatNumber   Format = "number"
	FormatCurrency Format = "currency"
	FormatPercent  Format = "percent"
)

// Attribute is one selectable statistic.
type Attribute struct {
	Key    string `yaml:"key" json:"key"`
	Label  string `yaml:"label" json:"label"`
	Format Format `yaml:"format" json:"format"`
	// YearField names a per-region column holding the reporting year as text.
	YearField string `yaml:"year_field,omitempty" json:"year_field,omitempty"`
	YearLabel string `yaml:"year_label,omitempty" json:"year_label,omitempty"`
}

var yearRangeSuffix = regexp.MustCompile(`_(\d{4})_(\d{4})$`)

// YearRange returns the school-year range embedded at the end of the key,
// e.g. "2018-2019" for GRAD_RATE_2018_2019.
func (a Attribute) YearRange() (string, bool) {
	m := yearRangeSuffix.FindStringSubmatch(a.Key)
	if m == nil {
		return "", false
	}
	return m[1] + "-" + m[2], true
}

// Catalog is an ordered, indexed collection of attributes.
type Catalog struct {
	attrs      []Attribute
	byKey      map[string]int
	yearFields map[string]string // year field -> owning attribute key
}

// New validates attrs and builds a Catalog. Keys must be unique and year
// fields must not collide with attribute keys.
func New(attrs []Attribute) (*Catalog, error) {
	if len(attrs) == 0 {
		return nil, eris.New("catalog: no attributes")
	}
	c := &Catalog{
		attrs:      make([]Attribute, len(attrs)),
		byKey:      make(map[string]int, len(attrs)),
		yearFields: make(map[string]string),
	}
	copy(c.attrs, attrs)
	for i := range c.attrs {
		a := &c.attrs[i]
		if a.Key == "" {
			return nil, eris.Errorf("catalog: attribute %d has no key", i)
		}
		if a.Label == "" {
			a.Label = a.Key
		}
		if a.Format == "" {
			a.Format = FormatNumber
		}
		switch a.Format {
		case FormatNumber, FormatCurrency, FormatPercent:
		default:
			return nil, eris.Errorf("catalog: attribute %s has unknown format %q", a.Key, a.Format)
		}
		if _, dup := c.byKey[a.Key]; dup {
			return nil, eris.Errorf("catalog: duplicate attribute key %s", a.Key)
		}
		c.byKey[a.Key] = i
	}
	for _, a := range c.attrs {
		if a.YearField == "" {
			continue
		}
		if _, clash := c.byKey[a.YearField]; clash {
			return nil, eris.Errorf("catalog: year field %s collides with an attribute key", a.YearField)
		}
		if owner, dup := c.yearFields[a.YearField]; dup {
			return nil, eris.Errorf("catalog: year field %s shared by %s and %s", a.YearField, owner, a.Key)
		}
		c.yearFields[a.YearField] = a.Key
	}
	return c, nil
}

// Must is New that panics on error. Intended for package-level defaults.
func Must(attrs []Attribute) *Catalog {
	c, err := New(attrs)
	if err != nil {
		panic(err)
	}
	return c
}

type fileFormat struct {
	Attributes []Attribute `yaml:"attributes"`
}

// Load reads a catalog from a YAML file of the form:
//
//	attributes:
//	  - key: GRAD_RATE_2018_2019
//	    label: High School Graduation Rates
//	    format: percent
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "catalog: decode yaml")
	}
	return New(f.Attributes)
}

// Attributes returns the selectable attributes in catalog order.
func (c *Catalog) Attributes() []Attribute {
	out := make([]Attribute, len(c.attrs))
	copy(out, c.attrs)
	return out
}

// Keys returns the selectable attribute keys in order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.attrs))
	for i, a := range c.attrs {
		keys[i] = a.Key
	}
	return keys
}

// AllKeys returns the selectable keys followed by every year field, which
// is the set of columns the join copies into each region.
func (c *Catalog) AllKeys() []string {
	keys := c.Keys()
	for _, a := range c.attrs {
		if a.YearField != "" {
			keys = append(keys, a.YearField)
		}
	}
	return keys
}

// First returns the attribute expressed at startup.
func (c *Catalog) First() Attribute { return c.attrs[0] }

// Len returns the number of selectable attributes.
func (c *Catalog) Len() int { return len(c.attrs) }

// Lookup finds a selectable attribute by key.
func (c *Catalog) Lookup(key string) (Attribute, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Attribute{}, false
	}
	return c.attrs[i], true
}

// IsYearField reports whether key is a text year column rather than a statistic.
func (c *Catalog) IsYearField(key string) bool {
	_, ok := c.yearFields[key]
	return ok
}
