package domain

import (
	"sort"
	"strings"
)

// Kind names an entity type.
type Kind string

// Entity kinds.
const (
	KindCurrency       Kind = "currency"
	KindZone           Kind = "zone"
	KindCountry        Kind = "country"
	KindRegion         Kind = "region"
	KindCity           Kind = "city"
	KindImage          Kind = "image"
	KindBrand          Kind = "brand"
	KindCategory       Kind = "category"
	KindAttribute      Kind = "attribute"
	KindAttributeValue Kind = "attribute_value"
	KindProduct        Kind = "product"
	KindProductVariant Kind = "product_variant"
)

// Key holds natural-key column values.
type Key map[string]string

// String renders the key deterministically, e.g. "code=LT".
func (k Key) String() string {
	cols := make([]string, 0, len(k))
	for c := range k {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + "=" + k[c]
	}
	return strings.Join(parts, ",")
}

// Attributes is a bag of column values validated by a Schema.
type Attributes map[string]any

// Filter restricts a count or listing to rows whose columns equal the given values.
type Filter map[string]any

// Entity is a stored row identified by its natural key.
type Entity struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Key        Key        `json:"key"`
	Attributes Attributes `json:"attributes,omitempty"`
	// Created is true when the upsert inserted the row.
	Created bool `json:"created"`
}

// LocaleFields maps a locale code to its translated field values.
type LocaleFields map[string]map[string]string

// Locales returns the locale codes in sorted order.
func (lf LocaleFields) Locales() []string {
	out := make([]string, 0, len(lf))
	for l := range lf {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Relation describes a many-to-many pivot table.
type Relation struct {
	Table       string
	Left        Kind
	LeftColumn  string
	Right       Kind
	RightColumn string
	// Ordered relations carry a position column.
	Ordered bool
}

// Pivot is one row of a relation.
type Pivot struct {
	LeftID   string
	RightID  string
	Position int
}
