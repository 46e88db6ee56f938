package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/organization/domain"
	"github.com/canopyhq/canopy/internal/organization/repository"
	"github.com/canopyhq/canopy/internal/organization/service"
)

func setup(t *testing.T) domain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&domain.Organization{}))

	node, err := snowflake.NewNode(3)
	assert.NoError(t, err)

	return service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestCreateDerivesSlugFromName(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, domain.CreateRequest{Name: "Green Leaf Dispensary"})
	assert.NoError(t, err)
	assert.Equal(t, "green-leaf-dispensary", resp.Slug)

	got, err := svc.Get(ctx, resp.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Green Leaf Dispensary", got.Name)
}

func TestCreateRejectsDuplicateSlug(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Name: "Green Leaf"})
	assert.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Other", Slug: "green-leaf"})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
}

func TestCreateRequiresName(t *testing.T) {
	svc := setup(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestGetValidation(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.Get(ctx, "123456789")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListReturnsAll(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Name: "First"})
	assert.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Second"})
	assert.NoError(t, err)

	items, err := svc.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, items, 2)
}
