package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	catalogdomain "github.com/canopyhq/canopy/internal/catalog/domain"
	catalogrepo "github.com/canopyhq/canopy/internal/catalog/repository"
	"github.com/canopyhq/canopy/internal/clock"
	"github.com/canopyhq/canopy/internal/config"
	"github.com/canopyhq/canopy/internal/importer/domain"
	"github.com/canopyhq/canopy/internal/importer/parser"
	importerrepo "github.com/canopyhq/canopy/internal/importer/repository"
	"github.com/canopyhq/canopy/internal/importer/service"
	"github.com/canopyhq/canopy/internal/orgcontext"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   domain.Service
	orgID snowflake.ID
	ctx   context.Context
}

func setup(t *testing.T, policy config.ImportPolicy, products catalogdomain.ProductRepository, variants catalogdomain.VariantRepository) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(
		&catalogdomain.Product{},
		&catalogdomain.Variant{},
		&domain.ImportJob{},
	)
	assert.NoError(t, err)

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	holder := config.NewStaticImportPolicyHolder(policy)

	if products == nil {
		products = catalogrepo.ProvideProducts()
	}
	if variants == nil {
		variants = catalogrepo.ProvideVariants()
	}

	svc := service.New(service.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Policy:   holder,
		Parser:   parser.New(holder, zap.NewNop()),
		Products: products,
		Variants: variants,
		Jobs:     importerrepo.ProvideJobs(),
	})

	orgID := node.Generate()
	return &fixture{
		db:    db,
		node:  node,
		clock: fake,
		svc:   svc,
		orgID: orgID,
		ctx:   orgcontext.WithOrgID(context.Background(), int64(orgID)),
	}
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }
func ptrBool(v bool) *bool        { return &v }

func testBatch(orgID snowflake.ID) domain.Batch {
	return domain.Batch{
		Metadata: domain.Metadata{
			FormatVersion:  domain.FormatVersion,
			OrganizationID: orgID.String(),
		},
		Products: []domain.Product{
			{
				ID:         "coastal-farms-blue-dream-1a2b3c4d",
				Name:       "Blue Dream",
				Brand:      "Coastal Farms",
				Category:   "flower",
				StrainType: "sativa",
				Variants: []domain.Variant{
					{
						ID:             "coastal-farms-blue-dream-1a2b3c4d-3-5g-0a0b0c0d",
						SizeWeight:     "3.5g",
						Price:          ptrFloat(35),
						THCPercentage:  ptrFloat(24.5),
						InventoryLevel: ptrInt(12),
						IsAvailable:    ptrBool(true),
						TerpeneProfile: map[string]float64{"myrcene": 0.8},
					},
					{
						ID:             "coastal-farms-blue-dream-1a2b3c4d-7g-0e0f0a0b",
						SizeWeight:     "7g",
						Price:          ptrFloat(60),
						InventoryLevel: ptrInt(6),
						IsAvailable:    ptrBool(true),
					},
				},
			},
			{
				ID:         "valley-grove-og-kush-9f8e7d6c",
				Name:       "OG Kush",
				Brand:      "Valley Grove",
				Category:   "flower",
				StrainType: "indica",
				Variants: []domain.Variant{
					{
						ID:             "valley-grove-og-kush-9f8e7d6c-3-5g-1b2c3d4e",
						SizeWeight:     "3.5g",
						Price:          ptrFloat(30),
						InventoryLevel: ptrInt(8),
						IsAvailable:    ptrBool(true),
					},
				},
			},
		},
	}
}

func countRows(t *testing.T, db *gorm.DB, table string, orgID snowflake.ID) int64 {
	t.Helper()
	var count int64
	err := db.Table(table).Where("org_id = ?", orgID).Count(&count).Error
	assert.NoError(t, err)
	return count
}

func TestImportBatchCreatesCatalog(t *testing.T) {
	f := setup(t, config.DefaultImportPolicy(), nil, nil)

	result := f.svc.ImportBatch(f.ctx, testBatch(f.orgID), domain.ModeUpdate)

	assert.True(t, result.Success)
	assert.NotNil(t, result.Stats)
	assert.Equal(t, 2, result.Stats.ProductsProcessed)
	assert.Equal(t, 2, result.Stats.ProductsCreated)
	assert.Equal(t, 3, result.Stats.VariantsCreated)
	assert.Empty(t, result.Stats.Errors)

	assert.Equal(t, int64(2), countRows(t, f.db, "products", f.orgID))
	assert.Equal(t, int64(3), countRows(t, f.db, "variants", f.orgID))

	jobs, err := f.svc.ListJobs(f.ctx)
	assert.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, domain.SourceBatch, jobs[0].Source)
	assert.True(t, jobs[0].Success)
}

func TestImportBatchUpdatesExistingByExternalID(t *testing.T) {
	f := setup(t, config.DefaultImportPolicy(), nil, nil)

	first := f.svc.ImportBatch(f.ctx, testBatch(f.orgID), domain.ModeUpdate)
	assert.True(t, first.Success)

	updated := testBatch(f.orgID)
	updated.Products[0].Name = "Blue Dream #5"
	updated.Products[0].Variants[0].Price = ptrFloat(32)

	second := f.svc.ImportBatch(f.ctx, updated, domain.ModeUpdate)
	assert.True(t, second.Success)
	assert.Equal(t, 2, second.Stats.ProductsUpdated)
	assert.Equal(t, 0, second.Stats.ProductsCreated)
	assert.Equal(t, 3, second.Stats.VariantsUpdated)

	assert.Equal(t, int64(2), countRows(t, f.db, "products", f.orgID))
	assert.Equal(t, int64(3), countRows(t, f.db, "variants", f.orgID))

	var product catalogdomain.Product
	err := f.db.Where("org_id = ? AND external_id = ?", f.orgID, "coastal-farms-blue-dream-1a2b3c4d").First(&product).Error
	assert.NoError(t, err)
	assert.Equal(t, "Blue Dream #5", product.Name)

	var variant catalogdomain.Variant
	err = f.db.Where("product_id = ? AND external_id = ?", product.ID, "coastal-farms-blue-dream-1a2b3c4d-3-5g-0a0b0c0d").First(&variant).Error
	assert.NoError(t, err)
	assert.Equal(t, 32.0, variant.Price)
}

func TestImportBatchRejectsInvalidBatchBeforeStoreAccess(t *testing.T) {
	f := setup(t, config.DefaultImportPolicy(), nil, nil)

	batch := testBatch(f.orgID)
	batch.Products[0].Variants[0].Price = nil

	result := f.svc.ImportBatch(f.ctx, batch, domain.ModeUpdate)

	assert.False(t, result.Success)
	assert.Equal(t, "batch failed validation", result.Message)
	assert.Contains(t, result.Stats.Errors, "products[0].variants[0].price: required and must be a number")
	assert.Equal(t, int64(0), countRows(t, f.db, "products", f.orgID))
}

func TestImportBatchRejectsOrganizationMismatch(t *testing.T) {
	f := setup(t, config.DefaultImportPolicy(), nil, nil)

	batch := testBatch(f.orgID)
	batch.Metadata.OrganizationID = "999"

	result := f.svc.ImportBatch(f.ctx, batch, domain.ModeUpdate)

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "organization mismatch")
	assert.Equal(t, int64(0), countRows(t, f.db, "products", f.orgID))
}

func TestReplaceModeWipesExistingCatalog(t *testing.T) {
	f := setup(t, config.DefaultImportPolicy(), nil, nil)

	first := f.svc.ImportBatch(f.ctx, testBatch(f.orgID), domain.ModeUpdate)
	assert.True(t, first.Success)

	replacement := domain.Batch{
		Metadata: domain.Metadata{
			FormatVersion:  domain.FormatVersion,
			OrganizationID: f.orgID.String(),
		},
		Products: []domain.Product{
			{
				ID:         "herbal-co-sleepy-tincture-5a6b7c8d",
				Name:       "Sleepy Tincture",
				Brand:      "Herbal Co",
				Category:   "tincture",
				StrainType: "cbd",
				Variants: []domain.Variant{
					{
						ID:             "herbal-co-sleepy-tincture-5a6b7c8d-30ml-2c3d4e5f",
						SizeWeight:     "30ml",
						Price:          ptrFloat(45),
						InventoryLevel: ptrInt(20),
						IsAvailable:    ptrBool(true),
					},
				},
			},
		},
	}

	result := f.svc.ImportBatch(f.ctx, replacement, domain.ModeReplace)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Stats.ProductsCreated)

	assert.Equal(t, int64(1), countRows(t, f.db, "products", f.orgID))
	assert.Equal(t, int64(1), countRows(t, f.db, "variants", f.orgID))

	var remaining catalogdomain.Product
	err := f.db.Where("org_id = ?", f.orgID).First(&remaining).Error
	assert.NoError(t, err)
	assert.Equal(t, "herbal-co-sleepy-tincture-5a6b7c8d", remaining.ExternalID)
}

// flakyVariants fails creation of one external id and delegates the rest.
type flakyVariants struct {
	catalogdomain.VariantRepository
	failID string
}

func (f *flakyVariants) Create(ctx context.Context, db *gorm.DB, variant *catalogdomain.Variant) error {
	if variant.ExternalID == f.failID {
		return errors.New("variant store rejected the row")
	}
	return f.VariantRepository.Create(ctx, db, variant)
}

func TestPartialFailureDoesNotAbortBatch(t *testing.T) {
	flaky := &flakyVariants{
		VariantRepository: catalogrepo.ProvideVariants(),
		failID:            "coastal-farms-blue-dream-1a2b3c4d-7g-0e0f0a0b",
	}
	f := setup(t, config.DefaultImportPolicy(), nil, flaky)

	result := f.svc.ImportBatch(f.ctx, testBatch(f.orgID), domain.ModeUpdate)

	// Lenient policy: something was written, so the run still succeeds.
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Stats.ProductsCreated)
	assert.Equal(t, 2, result.Stats.VariantsCreated)
	assert.Len(t, result.Stats.Errors, 1)
	assert.Contains(t, result.Stats.Errors[0], "coastal-farms-blue-dream-1a2b3c4d-7g-0e0f0a0b")

	assert.Equal(t, int64(2), countRows(t, f.db, "products", f.orgID))
	assert.Equal(t, int64(2), countRows(t, f.db, "variants", f.orgID))
}

// flakyProducts fails creation of one external id and delegates the rest.
type flakyProducts struct {
	catalogdomain.ProductRepository
	failID string
}

func (f *flakyProducts) Create(ctx context.Context, db *gorm.DB, product *catalogdomain.Product) error {
	if product.ExternalID == f.failID {
		return errors.New("product store rejected the row")
	}
	return f.ProductRepository.Create(ctx, db, product)
}

func TestFailedProductSkipsItsVariants(t *testing.T) {
	flaky := &flakyProducts{
		ProductRepository: catalogrepo.ProvideProducts(),
		failID:            "coastal-farms-blue-dream-1a2b3c4d",
	}
	f := setup(t, config.DefaultImportPolicy(), flaky, nil)

	result := f.svc.ImportBatch(f.ctx, testBatch(f.orgID), domain.ModeUpdate)

	// Lenient policy: the second product landed, so the run still succeeds.
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Stats.ProductsProcessed)
	assert.Equal(t, 1, result.Stats.ProductsCreated)
	assert.Len(t, result.Stats.Errors, 1)
	assert.Contains(t, result.Stats.Errors[0], "coastal-farms-blue-dream-1a2b3c4d")

	// The failed product's variants are never attempted.
	assert.Equal(t, 1, result.Stats.VariantsProcessed)
	assert.Equal(t, 1, result.Stats.VariantsCreated)

	assert.Equal(t, int64(1), countRows(t, f.db, "products", f.orgID))
	assert.Equal(t, int64(1), countRows(t, f.db, "variants", f.orgID))

	var remaining catalogdomain.Product
	err := f.db.Where("org_id = ?", f.orgID).First(&remaining).Error
	assert.NoError(t, err)
	assert.Equal(t, "valley-grove-og-kush-9f8e7d6c", remaining.ExternalID)
}

func TestStrictPolicyFailsRunWithAnyError(t *testing.T) {
	policy := config.DefaultImportPolicy()
	policy.SuccessPolicy = config.SuccessPolicyStrict

	flaky := &flakyVariants{
		VariantRepository: catalogrepo.ProvideVariants(),
		failID:            "coastal-farms-blue-dream-1a2b3c4d-7g-0e0f0a0b",
	}
	f := setup(t, policy, nil, flaky)

	result := f.svc.ImportBatch(f.ctx, testBatch(f.orgID), domain.ModeUpdate)

	assert.False(t, result.Success)
	assert.Len(t, result.Stats.Errors, 1)
	// The rest of the batch still persisted; strict only changes the verdict.
	assert.Equal(t, int64(2), countRows(t, f.db, "products", f.orgID))
}

func TestExportRoundTrip(t *testing.T) {
	f := setup(t, config.DefaultImportPolicy(), nil, nil)

	imported := f.svc.ImportBatch(f.ctx, testBatch(f.orgID), domain.ModeUpdate)
	assert.True(t, imported.Success)

	exported, err := f.svc.Export(f.ctx)
	assert.NoError(t, err)
	assert.NotNil(t, exported)
	assert.Equal(t, domain.FormatVersion, exported.Metadata.FormatVersion)
	assert.Equal(t, f.orgID.String(), exported.Metadata.OrganizationID)
	assert.NotNil(t, exported.Metadata.Timestamp)

	gotProducts := map[string]domain.Product{}
	for _, p := range exported.Products {
		gotProducts[p.ID] = p
	}
	assert.Len(t, gotProducts, 2)

	blue, ok := gotProducts["coastal-farms-blue-dream-1a2b3c4d"]
	assert.True(t, ok)
	assert.Equal(t, "Blue Dream", blue.Name)
	assert.Equal(t, "sativa", blue.StrainType)
	assert.Len(t, blue.Variants, 2)

	gotVariants := map[string]domain.Variant{}
	for _, v := range blue.Variants {
		gotVariants[v.ID] = v
	}
	small, ok := gotVariants["coastal-farms-blue-dream-1a2b3c4d-3-5g-0a0b0c0d"]
	assert.True(t, ok)
	assert.Equal(t, 35.0, *small.Price)
	assert.Equal(t, 24.5, *small.THCPercentage)
	assert.Equal(t, 12, *small.InventoryLevel)
	assert.Equal(t, map[string]float64{"myrcene": 0.8}, small.TerpeneProfile)
}

func TestExportEmptyOrganization(t *testing.T) {
	f := setup(t, config.DefaultImportPolicy(), nil, nil)

	exported, err := f.svc.Export(f.ctx)
	assert.NoError(t, err)
	assert.Nil(t, exported)
}

func TestImportDocumentsParsesAndReconciles(t *testing.T) {
	f := setup(t, config.DefaultImportPolicy(), nil, nil)

	docs := []domain.Document{
		{
			Name: "flower-menu.md",
			Content: `## Blue Dream
- **Brand:** Coastal Farms
- **Type:** Sativa
- **THC:** 24.5%
- **Prices:** $25/1g, $80/3.5g
`,
		},
	}

	result := f.svc.ImportDocuments(f.ctx, docs, domain.ModeUpdate)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Stats.ProductsCreated)
	assert.Equal(t, 2, result.Stats.VariantsCreated)

	jobs, err := f.svc.ListJobs(f.ctx)
	assert.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, domain.SourceDocuments, jobs[0].Source)
}

func TestListJobsNewestFirstWithStats(t *testing.T) {
	f := setup(t, config.DefaultImportPolicy(), nil, nil)

	first := f.svc.ImportBatch(f.ctx, testBatch(f.orgID), domain.ModeUpdate)
	assert.True(t, first.Success)

	f.clock.Advance(time.Hour)

	second := f.svc.ImportBatch(f.ctx, testBatch(f.orgID), domain.ModeReplace)
	assert.True(t, second.Success)

	jobs, err := f.svc.ListJobs(f.ctx)
	assert.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.Equal(t, string(domain.ModeReplace), jobs[0].Mode)
	assert.Equal(t, string(domain.ModeUpdate), jobs[1].Mode)

	assert.NotNil(t, jobs[0].Stats)
	assert.Equal(t, 2, jobs[0].Stats.ProductsProcessed)
}
