package domain

import "fmt"

var seoFields = []string{"name", "slug", "description", "meta_title", "meta_description"}

func newSchema(kind Kind, table string, key string, fields []Field, parent string, translationFields []string) *Schema {
	s := &Schema{
		Kind:   kind,
		Table:  table,
		Key:    []string{key},
		Fields: fields,
		Parent: parent,
	}
	if len(translationFields) > 0 {
		s.TranslationTable = string(kind) + "_translations"
		s.TranslationFK = string(kind) + "_id"
		s.TranslationFields = translationFields
	}
	return s
}

// Schemas of every entity kind the seeder writes.
var (
	Currency = newSchema(KindCurrency, "currencies", "code", []Field{
		{Name: "symbol", Type: FieldString, Required: true},
		{Name: "decimals", Type: FieldInt, Default: int64(2)},
	}, "", []string{"name"})

	Zone = newSchema(KindZone, "zones", "code", nil, "", []string{"name", "description"})

	Country = newSchema(KindCountry, "countries", "code", []Field{
		{Name: "iso3", Type: FieldString},
		{Name: "currency_code", Type: FieldString},
		{Name: "phone_prefix", Type: FieldString},
	}, "", []string{"name", "description"})

	Region = newSchema(KindRegion, "regions", "code", []Field{
		{Name: "country_id", Type: FieldRef, Ref: KindCountry, Required: true},
	}, "country_id", []string{"name", "description"})

	City = newSchema(KindCity, "cities", "code", []Field{
		{Name: "region_id", Type: FieldRef, Ref: KindRegion, Required: true},
		{Name: "population", Type: FieldInt},
	}, "region_id", []string{"name", "description"})

	Image = newSchema(KindImage, "images", "path", []Field{
		{Name: "width", Type: FieldInt},
		{Name: "height", Type: FieldInt},
	}, "", nil)

	Brand = newSchema(KindBrand, "brands", "slug", []Field{
		{Name: "logo_image_id", Type: FieldRef, Ref: KindImage},
		{Name: "is_active", Type: FieldBool, Default: true},
	}, "", []string{"name", "description", "meta_title", "meta_description"})

	Category = newSchema(KindCategory, "categories", "slug", []Field{
		{Name: "parent_id", Type: FieldRef, Ref: KindCategory},
		{Name: "sort_order", Type: FieldInt, Default: int64(0)},
		{Name: "image_id", Type: FieldRef, Ref: KindImage},
	}, "parent_id", seoFields)

	Attribute = newSchema(KindAttribute, "attributes", "code", []Field{
		{Name: "input_type", Type: FieldString, Default: "select"},
	}, "", []string{"name"})

	AttributeValue = newSchema(KindAttributeValue, "attribute_values", "code", []Field{
		{Name: "attribute_id", Type: FieldRef, Ref: KindAttribute, Required: true},
	}, "attribute_id", []string{"name"})

	Product = newSchema(KindProduct, "products", "slug", []Field{
		{Name: "brand_id", Type: FieldRef, Ref: KindBrand, Required: true},
		{Name: "sku", Type: FieldString, Required: true},
		{Name: "price", Type: FieldDecimal, Required: true},
		{Name: "sale_price", Type: FieldDecimal},
		{Name: "weight_grams", Type: FieldInt},
		{Name: "width_mm", Type: FieldInt},
		{Name: "height_mm", Type: FieldInt},
		{Name: "length_mm", Type: FieldInt},
		{Name: "stock", Type: FieldInt, Default: int64(0)},
		{Name: "is_featured", Type: FieldBool, Default: false},
		{Name: "on_sale", Type: FieldBool, Default: false},
	}, "", seoFields)

	ProductVariant = newSchema(KindProductVariant, "product_variants", "sku", []Field{
		{Name: "product_id", Type: FieldRef, Ref: KindProduct, Required: true},
		{Name: "price", Type: FieldDecimal, Required: true},
		{Name: "stock", Type: FieldInt, Default: int64(0)},
	}, "product_id", []string{"name"})
)

// Relations written by the seeder.
var (
	ZoneCountries = &Relation{
		Table: "zone_countries", Left: KindZone, LeftColumn: "zone_id",
		Right: KindCountry, RightColumn: "country_id",
	}
	ProductCategories = &Relation{
		Table: "product_categories", Left: KindProduct, LeftColumn: "product_id",
		Right: KindCategory, RightColumn: "category_id",
	}
	ProductAttributeValues = &Relation{
		Table: "product_attribute_values", Left: KindProduct, LeftColumn: "product_id",
		Right: KindAttributeValue, RightColumn: "attribute_value_id",
	}
	ProductImages = &Relation{
		Table: "product_images", Left: KindProduct, LeftColumn: "product_id",
		Right: KindImage, RightColumn: "image_id", Ordered: true,
	}
)

var registry = map[Kind]*Schema{}

func init() {
	for _, s := range []*Schema{
		Currency, Zone, Country, Region, City, Image, Brand,
		Category, Attribute, AttributeValue, Product, ProductVariant,
	} {
		registry[s.Kind] = s
	}
}

// SchemaFor returns the schema registered for kind.
func SchemaFor(kind Kind) (*Schema, error) {
	s, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("no schema for kind %q", kind)
	}
	return s, nil
}
