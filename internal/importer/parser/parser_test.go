package parser

import (
	"testing"

	"github.com/canopyhq/canopy/internal/config"
	"github.com/canopyhq/canopy/internal/importer/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestParser() *Parser {
	return New(config.NewStaticImportPolicyHolder(config.DefaultImportPolicy()), zap.NewNop())
}

const flowerMenu = `# Weekly Flower Menu

## Blue Dream ##
![Blue Dream](https://img.example.com/blue-dream.png)
- **Brand:** Coastal Farms
- **Type:** Sativa
- **THC:** 24.5% THC
- **CBD:** 0.2%
- **Prices:** $25/1g, $80/3.5g

### OG Kush
**Brand:** Valley Grove **Strain:** Indica **THC:** 21%
**Price:** $22.00
**Description:** Classic earthy indica.
`

func TestParseFlowerMenu(t *testing.T) {
	p := newTestParser()

	batch, err := p.Parse([]domain.Document{{Name: "flower-menu.md", Content: flowerMenu}}, "42")
	assert.NoError(t, err)

	assert.Equal(t, domain.FormatVersion, batch.Metadata.FormatVersion)
	assert.Equal(t, "42", batch.Metadata.OrganizationID)
	assert.NotNil(t, batch.Metadata.Timestamp)
	assert.Len(t, batch.Products, 2)

	blue := batch.Products[0]
	assert.Equal(t, "Blue Dream", blue.Name)
	assert.Equal(t, "Coastal Farms", blue.Brand)
	assert.Equal(t, "flower", blue.Category)
	assert.Equal(t, "sativa", blue.StrainType)
	assert.Equal(t, "https://img.example.com/blue-dream.png", blue.ImageURL)

	assert.Len(t, blue.Variants, 2)
	assert.Equal(t, "1g", blue.Variants[0].SizeWeight)
	assert.Equal(t, 25.0, *blue.Variants[0].Price)
	assert.Equal(t, "3.5g", blue.Variants[1].SizeWeight)
	assert.Equal(t, 80.0, *blue.Variants[1].Price)
	for _, v := range blue.Variants {
		assert.Equal(t, 24.5, *v.THCPercentage)
		assert.Equal(t, 0.2, *v.CBDPercentage)
		assert.True(t, *v.IsAvailable)
		assert.GreaterOrEqual(t, *v.InventoryLevel, 5)
		assert.LessOrEqual(t, *v.InventoryLevel, 50)
	}

	og := batch.Products[1]
	assert.Equal(t, "OG Kush", og.Name)
	assert.Equal(t, "Valley Grove", og.Brand)
	assert.Equal(t, "indica", og.StrainType)
	assert.Equal(t, "Classic earthy indica.", og.Description)

	// A single price with no size picks the weight band for that price.
	assert.Len(t, og.Variants, 1)
	assert.Equal(t, "3.5g", og.Variants[0].SizeWeight)
	assert.Equal(t, 22.0, *og.Variants[0].Price)
}

func TestParseIsDeterministic(t *testing.T) {
	p := newTestParser()
	doc := domain.Document{Name: "flower-menu.md", Content: flowerMenu}

	first, err := p.Parse([]domain.Document{doc}, "42")
	assert.NoError(t, err)
	second, err := p.Parse([]domain.Document{doc}, "42")
	assert.NoError(t, err)

	for i := range first.Products {
		assert.Equal(t, first.Products[i].ID, second.Products[i].ID)
		for j := range first.Products[i].Variants {
			assert.Equal(t, first.Products[i].Variants[j].ID, second.Products[i].Variants[j].ID)
		}
	}
}

func TestParseDropsProductWithoutBrand(t *testing.T) {
	p := newTestParser()

	content := `## Mystery Strain
- **THC:** 20%
- **Price:** $30

## Known Strain
- **Brand:** Coastal Farms
- **Price:** $30
`
	batch, err := p.Parse([]domain.Document{{Name: "menu.md", Content: content}}, "42")
	assert.NoError(t, err)
	assert.Len(t, batch.Products, 1)
	assert.Equal(t, "Known Strain", batch.Products[0].Name)
}

func TestParseSynthesizesVariantWithoutPrice(t *testing.T) {
	p := newTestParser()

	content := `## Sleepy Tincture
- **Brand:** Herbal Co
`
	batch, err := p.Parse([]domain.Document{{Name: "tincture-list.md", Content: content}}, "42")
	assert.NoError(t, err)
	assert.Len(t, batch.Products, 1)

	product := batch.Products[0]
	assert.Equal(t, "tincture", product.Category)
	assert.Len(t, product.Variants, 1)
	assert.Equal(t, "30ml", product.Variants[0].SizeWeight)
	assert.Equal(t, 25.0, *product.Variants[0].Price)
}

func TestParseEmptyDocuments(t *testing.T) {
	p := newTestParser()

	_, err := p.Parse(nil, "42")
	assert.ErrorIs(t, err, domain.ErrEmptyDocuments)
}

func TestSizeForPrice(t *testing.T) {
	cases := []struct {
		price float64
		size  string
	}{
		{10, "1g"},
		{15, "1g"},
		{22, "3.5g"},
		{30, "3.5g"},
		{45, "7g"},
		{50, "7g"},
		{99, "14g"},
		{100, "14g"},
		{150, "28g"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.size, sizeForPrice(tc.price), "price %.2f", tc.price)
	}
}

func TestMapStrainType(t *testing.T) {
	cases := map[string]string{
		"Indica":           "indica",
		"Sativa-dominant":  "sativa",
		"High CBD":         "cbd",
		"Balanced blend":   "balanced",
		"1:1 THC/CBD":      "balanced",
		"Something exotic": "hybrid",
		"":                 "hybrid",
	}
	for raw, want := range cases {
		assert.Equal(t, want, mapStrainType(raw), "raw %q", raw)
	}
}

func TestInferCategory(t *testing.T) {
	assert.Equal(t, "vaporizer", inferCategory("vape-carts.md", ""))
	assert.Equal(t, "edible", inferCategory("list.md", "Our gummies and chocolate selection. More gummies weekly."))
	assert.Equal(t, "flower", inferCategory("list.md", "nothing recognizable"))
}

func TestInferCategoryStableOnKeywordTies(t *testing.T) {
	// One edible and one vaporizer keyword each; the fixed scan order decides.
	content := "our gummy and vape selection"
	assert.Equal(t, "edible", inferCategory("menu.md", content))
	for i := 0; i < 25; i++ {
		assert.Equal(t, "edible", inferCategory("menu.md", content))
	}

	// A filename matching several categories resolves in scan order too.
	assert.Equal(t, "edible", inferCategory("gummies-and-carts.md", ""))
}

func TestProductIDStableAcrossCase(t *testing.T) {
	a := ProductID("42", "Coastal Farms", "Blue Dream")
	b := ProductID("42", "coastal farms", "blue dream")
	assert.Equal(t, a, b)

	// Different orgs yield different ids for the same product.
	c := ProductID("43", "Coastal Farms", "Blue Dream")
	assert.NotEqual(t, a, c)
}
