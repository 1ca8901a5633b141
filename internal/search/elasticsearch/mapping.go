package elasticsearch

// DefaultIndexName is the index that receives seeded product documents.
const DefaultIndexName = "catalog_products"

// buildIndexMapping returns the mapping for the products index. Localized
// names are mapped dynamically per locale code.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "dynamic_templates": [
      {
        "localized_names": {
          "path_match": "names.*",
          "mapping": { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } }
        }
      }
    ],
    "properties": {
      "id":           { "type": "keyword" },
      "sku":          { "type": "keyword" },
      "slug":         { "type": "keyword" },
      "brand_id":     { "type": "keyword" },
      "names":        { "type": "object" },
      "price":        { "type": "scaled_float", "scaling_factor": 100 },
      "sale_price":   { "type": "scaled_float", "scaling_factor": 100 },
      "on_sale":      { "type": "boolean" },
      "is_featured":  { "type": "boolean" },
      "category_ids": { "type": "keyword" },
      "variants":     { "type": "integer" }
    }
  }
}`
}
