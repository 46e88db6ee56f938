package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/catalog/domain"
	"github.com/canopyhq/canopy/internal/catalog/repository"
	"github.com/canopyhq/canopy/internal/catalog/service"
	"github.com/canopyhq/canopy/internal/orgcontext"
)

func setup(t *testing.T) (*gorm.DB, domain.Service, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&domain.Product{}, &domain.Variant{})
	assert.NoError(t, err)

	node, err := snowflake.NewNode(2)
	assert.NoError(t, err)

	svc := service.New(service.Params{
		DB:       db,
		Log:      zap.NewNop(),
		Products: repository.ProvideProducts(),
		Variants: repository.ProvideVariants(),
	})
	return db, svc, node
}

func seedProduct(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, name, brand, category string) snowflake.ID {
	t.Helper()

	now := time.Now().UTC()
	product := domain.Product{
		ID:         node.Generate(),
		OrgID:      orgID,
		ExternalID: fmt.Sprintf("%s-%s", brand, name),
		Name:       name,
		Brand:      brand,
		Category:   category,
		StrainType: domain.StrainHybrid,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	assert.NoError(t, db.Create(&product).Error)

	variant := domain.Variant{
		ID:             node.Generate(),
		OrgID:          orgID,
		ProductID:      product.ID,
		ExternalID:     product.ExternalID + "-3-5g",
		SizeWeight:     "3.5g",
		Price:          40,
		InventoryLevel: 10,
		IsAvailable:    true,
		TerpeneProfile: datatypes.JSONMap{"limonene": 1.2},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	assert.NoError(t, db.Create(&variant).Error)
	return product.ID
}

func TestListFiltersByCategoryAndBrand(t *testing.T) {
	db, svc, node := setup(t)

	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	seedProduct(t, db, node, orgID, "Blue Dream", "Coastal Farms", "flower")
	seedProduct(t, db, node, orgID, "Citrus Gummies", "Herbal Co", "edible")
	seedProduct(t, db, node, orgID, "OG Kush", "Coastal Farms", "flower")

	all, err := svc.List(ctx, domain.ListRequest{})
	assert.NoError(t, err)
	assert.Len(t, all, 3)

	flower, err := svc.List(ctx, domain.ListRequest{Category: "Flower"})
	assert.NoError(t, err)
	assert.Len(t, flower, 2)

	coastalEdibles, err := svc.List(ctx, domain.ListRequest{Category: "edible", Brand: "Coastal Farms"})
	assert.NoError(t, err)
	assert.Empty(t, coastalEdibles)
}

func TestListScopedToOrganization(t *testing.T) {
	db, svc, node := setup(t)

	orgA := node.Generate()
	orgB := node.Generate()
	seedProduct(t, db, node, orgA, "Blue Dream", "Coastal Farms", "flower")
	seedProduct(t, db, node, orgB, "OG Kush", "Valley Grove", "flower")

	resp, err := svc.List(orgcontext.WithOrgID(context.Background(), int64(orgA)), domain.ListRequest{})
	assert.NoError(t, err)
	assert.Len(t, resp, 1)
	assert.Equal(t, "Blue Dream", resp[0].Name)
}

func TestListRequiresOrganization(t *testing.T) {
	_, svc, _ := setup(t)

	_, err := svc.List(context.Background(), domain.ListRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestGetReturnsProductWithVariants(t *testing.T) {
	db, svc, node := setup(t)

	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	productID := seedProduct(t, db, node, orgID, "Blue Dream", "Coastal Farms", "flower")

	resp, err := svc.Get(ctx, productID.String())
	assert.NoError(t, err)
	assert.Equal(t, "Blue Dream", resp.Name)
	assert.Len(t, resp.Variants, 1)
	assert.Equal(t, 40.0, resp.Variants[0].Price)
	assert.Equal(t, map[string]float64{"limonene": 1.2}, resp.Variants[0].TerpeneProfile)
}

func TestGetUnknownID(t *testing.T) {
	_, svc, node := setup(t)

	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	_, err := svc.Get(ctx, node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
