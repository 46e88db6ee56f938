package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
)

// Import IDs are derived from stable natural keys so repeated parses of the
// same source converge on the same ids instead of duplicating catalog rows.

// ProductID derives a stable product id from the organization, brand and name.
func ProductID(orgID, brand, name string) string {
	return fmt.Sprintf("%s-%s", slug.Make(brand+" "+name), shortHash(orgID, brand, name))
}

// VariantID derives a stable variant id from its product id and size.
func VariantID(productID, sizeWeight string) string {
	return fmt.Sprintf("%s-%s-%s", productID, slug.Make(sizeWeight), shortHash(productID, sizeWeight))
}

func shortHash(parts ...string) string {
	normalized := make([]string, len(parts))
	for i, part := range parts {
		normalized[i] = strings.ToLower(strings.TrimSpace(part))
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(sum[:4])
}
