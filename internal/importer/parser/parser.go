// Package parser converts raw dispensary menu documents into canonical
// import batches. The input dialect is markdown-like: `## ` headings open a
// product block, and metadata appears either as bulleted `- **Field:** value`
// lines or as inline `**Field:** value` fragments.
package parser

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/canopyhq/canopy/internal/config"
	"github.com/canopyhq/canopy/internal/importer/domain"
	"go.uber.org/zap"
)

var (
	headingRe   = regexp.MustCompile(`^#{2,3}\s+(.+?)\s*#*\s*$`)
	imageRe     = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)\)`)
	bulletRe    = regexp.MustCompile(`^[-*]\s+\*\*\s*([^:*]+?)\s*:?\s*\*\*\s*:?\s*(.+)$`)
	inlineRe    = regexp.MustCompile(`\*\*\s*([^:*]+?)\s*:\s*\*\*\s*([^*]+)`)
	pricePairRe = regexp.MustCompile(`\$\s*(\d+(?:\.\d+)?)\s*/\s*([0-9][0-9a-zA-Z.]*)`)
	priceRe     = regexp.MustCompile(`\$\s*(\d+(?:\.\d+)?)`)
	numericRe   = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// Parser builds canonical batches out of raw text menus.
type Parser struct {
	policy *config.ImportPolicyHolder
	log    *zap.Logger
}

func New(policy *config.ImportPolicyHolder, log *zap.Logger) *Parser {
	return &Parser{
		policy: policy,
		log:    log.Named("importer.parser"),
	}
}

// Parse converts one or more documents into a single batch. Category
// inference runs per document; products merge across documents in order.
func (p *Parser) Parse(docs []domain.Document, orgID string) (domain.Batch, error) {
	if len(docs) == 0 {
		return domain.Batch{}, domain.ErrEmptyDocuments
	}

	now := time.Now().UTC()
	batch := domain.Batch{
		Metadata: domain.Metadata{
			FormatVersion:  domain.FormatVersion,
			OrganizationID: orgID,
			Timestamp:      &now,
		},
	}
	for _, doc := range docs {
		batch.Products = append(batch.Products, p.parseDocument(doc, orgID)...)
	}
	return batch, nil
}

// parseDocument scans a document line by line, flushing an in-progress
// product whenever a new heading starts.
func (p *Parser) parseDocument(doc domain.Document, orgID string) []domain.Product {
	category := inferCategory(doc.Name, doc.Content)
	policy := p.policy.Get()

	var (
		products    []domain.Product
		current     *productDraft
		afterHeader bool
	)

	flush := func() {
		if current == nil {
			return
		}
		if product, ok := current.toProduct(orgID, category, policy); ok {
			products = append(products, product)
		} else {
			p.log.Warn("dropping product without name or brand",
				zap.String("document", doc.Name),
				zap.String("name", current.name),
			)
		}
		current = nil
	}

	for _, rawLine := range strings.Split(doc.Content, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &productDraft{name: cleanHeading(m[1]), fields: map[string]string{}}
			afterHeader = true
			continue
		}
		if current == nil {
			continue
		}

		// An image directly under the heading belongs to the product.
		if afterHeader {
			afterHeader = false
			if m := imageRe.FindStringSubmatch(line); m != nil {
				current.imageURL = m[1]
				continue
			}
		}

		if m := bulletRe.FindStringSubmatch(line); m != nil {
			current.setField(m[1], m[2])
			continue
		}
		for _, m := range inlineRe.FindAllStringSubmatch(line, -1) {
			current.setField(m[1], m[2])
		}
	}
	flush()

	return products
}

// productDraft accumulates one product block until it is flushed.
type productDraft struct {
	name     string
	imageURL string
	fields   map[string]string
}

func (d *productDraft) setField(key, value string) {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	switch key {
	case "brand":
		d.fields["brand"] = value
	case "type", "strain", "strain type":
		d.fields["type"] = value
	case "thc":
		d.fields["thc"] = value
	case "cbd":
		d.fields["cbd"] = value
	case "size", "weight", "size/weight":
		d.fields["size"] = value
	case "price", "prices", "pricing":
		d.fields["pricing"] = value
	case "description":
		d.fields["description"] = value
	}
}

// toProduct converts the draft into a canonical product. Drafts missing a
// name or brand are dropped rather than reported, mirroring how partial menu
// scraps show up in real documents.
func (d *productDraft) toProduct(orgID, category string, policy config.ImportPolicy) (domain.Product, bool) {
	name := strings.TrimSpace(d.name)
	brand := strings.TrimSpace(d.fields["brand"])
	if name == "" || brand == "" {
		return domain.Product{}, false
	}

	thc := parseNumeric(d.fields["thc"])
	cbd := parseNumeric(d.fields["cbd"])

	product := domain.Product{
		ID:          ProductID(orgID, brand, name),
		Name:        name,
		Brand:       brand,
		Category:    category,
		Subcategory: inferSubcategory(category, name),
		Description: d.fields["description"],
		ImageURL:    d.imageURL,
		StrainType:  mapStrainType(d.fields["type"]),
	}
	product.Variants = buildVariants(product.ID, d.fields, thc, cbd, category, policy)
	return product, true
}

// buildVariants derives variants from the pricing field. Every variant shares
// the product's THC/CBD values.
func buildVariants(productID string, fields map[string]string, thc, cbd *float64, category string, policy config.ImportPolicy) []domain.Variant {
	pricing := fields["pricing"]

	if pairs := pricePairRe.FindAllStringSubmatch(pricing, -1); len(pairs) > 0 {
		variants := make([]domain.Variant, 0, len(pairs))
		for _, pair := range pairs {
			price := parseNumeric(pair[1])
			variants = append(variants, newVariant(productID, pair[2], price, thc, cbd, policy))
		}
		return variants
	}

	if m := priceRe.FindStringSubmatch(pricing); m != nil {
		price := parseNumeric(m[1])
		size := strings.TrimSpace(fields["size"])
		if size == "" {
			size = sizeForPrice(*price)
		}
		return []domain.Variant{newVariant(productID, size, price, thc, cbd, policy)}
	}

	// No price anywhere; synthesize one variant so a valid product never
	// violates the non-empty variants invariant.
	size := strings.TrimSpace(fields["size"])
	if size == "" {
		size = policy.DefaultSize(category)
	}
	defaultPrice := policy.DefaultPrice
	return []domain.Variant{newVariant(productID, size, &defaultPrice, thc, cbd, policy)}
}

func newVariant(productID, sizeWeight string, price, thc, cbd *float64, policy config.ImportPolicy) domain.Variant {
	sizeWeight = strings.TrimSpace(sizeWeight)
	inventory := synthesizeInventory(policy)
	available := true
	return domain.Variant{
		ID:             VariantID(productID, sizeWeight),
		SizeWeight:     sizeWeight,
		Price:          price,
		THCPercentage:  thc,
		CBDPercentage:  cbd,
		InventoryLevel: &inventory,
		IsAvailable:    &available,
		TerpeneProfile: map[string]float64{},
	}
}

// synthesizeInventory picks a stock level in the configured range. Menus
// carry no inventory data, so this is a declared approximation.
func synthesizeInventory(policy config.ImportPolicy) int {
	if policy.InventoryMax <= policy.InventoryMin {
		return policy.InventoryMin
	}
	return policy.InventoryMin + rand.IntN(policy.InventoryMax-policy.InventoryMin+1)
}

// sizeForPrice assigns a flower-weight band when a menu lists a single price
// with no size.
func sizeForPrice(price float64) string {
	switch {
	case price <= 15:
		return "1g"
	case price <= 30:
		return "3.5g"
	case price <= 50:
		return "7g"
	case price <= 100:
		return "14g"
	default:
		return "28g"
	}
}

func mapStrainType(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(value, "indica"):
		return "indica"
	case strings.Contains(value, "sativa"):
		return "sativa"
	case strings.Contains(value, "cbd"):
		return "cbd"
	case strings.Contains(value, "balanced"), strings.Contains(value, "1:1"):
		return "balanced"
	default:
		return "hybrid"
	}
}

// categoryOrder fixes the scan order so keyword ties resolve the same way
// on every run; map iteration would flap the inferred category.
var categoryOrder = []string{"flower", "edible", "concentrate", "vaporizer", "pre-roll", "tincture"}

var categoryKeywords = map[string][]string{
	"flower":      {"flower", "bud", "eighth", "strain"},
	"edible":      {"edible", "gummy", "gummies", "chocolate", "beverage"},
	"concentrate": {"concentrate", "rosin", "resin", "shatter", "wax", "dab"},
	"vaporizer":   {"vaporizer", "vape", "cartridge", "cart"},
	"pre-roll":    {"pre-roll", "preroll", "joint", "blunt"},
	"tincture":    {"tincture", "sublingual"},
}

// inferCategory guesses a document's default category from its filename,
// falling back to keyword counts in the body.
func inferCategory(name, content string) string {
	lowerName := strings.ToLower(name)
	for _, category := range categoryOrder {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(lowerName, keyword) {
				return category
			}
		}
	}

	lowerContent := strings.ToLower(content)
	best, bestCount := "flower", 0
	for _, category := range categoryOrder {
		count := 0
		for _, keyword := range categoryKeywords[category] {
			count += strings.Count(lowerContent, keyword)
		}
		if count > bestCount {
			best, bestCount = category, count
		}
	}
	return best
}

var subcategoryKeywords = map[string][]struct {
	keyword     string
	subcategory string
}{
	"edible": {
		{"gummy", "gummies"},
		{"gummies", "gummies"},
		{"chocolate", "chocolate"},
		{"cookie", "baked goods"},
		{"brownie", "baked goods"},
		{"drink", "beverages"},
		{"soda", "beverages"},
		{"mint", "mints"},
	},
	"concentrate": {
		{"live resin", "live resin"},
		{"rosin", "rosin"},
		{"shatter", "shatter"},
		{"wax", "wax"},
		{"badder", "badder"},
	},
	"vaporizer": {
		{"disposable", "disposable"},
		{"cartridge", "cartridge"},
		{"cart", "cartridge"},
	},
	"pre-roll": {
		{"infused", "infused"},
		{"pack", "multi-pack"},
	},
	"flower": {
		{"shake", "shake"},
		{"small bud", "small buds"},
	},
}

// inferSubcategory matches name keywords scoped to the detected category.
func inferSubcategory(category, name string) string {
	lower := strings.ToLower(name)
	for _, entry := range subcategoryKeywords[category] {
		if strings.Contains(lower, entry.keyword) {
			return entry.subcategory
		}
	}
	return ""
}

// parseNumeric extracts the first number from a free-text field, stripping
// units and stray characters (`"24.5% THC"` -> 24.5).
func parseNumeric(raw string) *float64 {
	m := numericRe.FindString(raw)
	if m == "" {
		return nil
	}
	value, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &value
}

func cleanHeading(raw string) string {
	cleaned := strings.Trim(raw, "*_` ")
	return strings.TrimSpace(cleaned)
}
