package redisx

import "time"

// Default storefront catalog listing (active products, no filters):
// catalog:products -> JSON array of priced product responses.
const KeyCatalogProducts = "catalog:products"

var TTLCatalog = 5 * time.Minute
