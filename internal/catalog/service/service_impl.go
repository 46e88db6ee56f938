package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/canopyhq/canopy/internal/catalog/domain"
	"github.com/canopyhq/canopy/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Products domain.ProductRepository
	Variants domain.VariantRepository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	products domain.ProductRepository
	variants domain.VariantRepository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		products: p.Products,
		variants: p.Variants,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.ProductResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	products, err := s.products.FindAll(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}

	category := strings.ToLower(strings.TrimSpace(req.Category))
	brand := strings.ToLower(strings.TrimSpace(req.Brand))
	filtered := products[:0]
	for _, p := range products {
		if category != "" && strings.ToLower(p.Category) != category {
			continue
		}
		if brand != "" && strings.ToLower(p.Brand) != brand {
			continue
		}
		filtered = append(filtered, p)
	}

	productIDs := make([]snowflake.ID, 0, len(filtered))
	for _, p := range filtered {
		productIDs = append(productIDs, p.ID)
	}
	variants, err := s.variants.FindByProducts(ctx, s.db, orgID, productIDs)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[snowflake.ID][]domain.Variant, len(filtered))
	for _, v := range variants {
		byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
	}

	resp := make([]domain.ProductResponse, 0, len(filtered))
	for i := range filtered {
		resp = append(resp, toProductResponse(&filtered[i], byProduct[filtered[i].ID]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.ProductResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	product, err := s.products.FindByID(ctx, s.db, orgID, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	variants, err := s.variants.FindByProducts(ctx, s.db, orgID, []snowflake.ID{product.ID})
	if err != nil {
		return nil, err
	}

	resp := toProductResponse(product, variants)
	return &resp, nil
}

func toProductResponse(p *domain.Product, variants []domain.Variant) domain.ProductResponse {
	resp := domain.ProductResponse{
		ID:          p.ID.String(),
		ExternalID:  p.ExternalID,
		Name:        p.Name,
		Brand:       p.Brand,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		StrainType:  p.StrainType,
		Variants:    make([]domain.VariantResponse, 0, len(variants)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}

	for _, v := range variants {
		resp.Variants = append(resp.Variants, domain.VariantResponse{
			ID:                v.ID.String(),
			ExternalID:        v.ExternalID,
			SizeWeight:        v.SizeWeight,
			Price:             v.Price,
			OriginalPrice:     v.OriginalPrice,
			THCPercentage:     v.THCPercentage,
			CBDPercentage:     v.CBDPercentage,
			TotalCannabinoids: v.TotalCannabinoids,
			InventoryLevel:    v.InventoryLevel,
			IsAvailable:       v.IsAvailable,
			TerpeneProfile:    terpenesFromJSON(v.TerpeneProfile),
		})
	}
	return resp
}

func terpenesFromJSON(raw map[string]any) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for name, value := range raw {
		if f, ok := value.(float64); ok {
			out[name] = f
		}
	}
	return out
}
