// Package service implements catalog reconciliation and export against the
// catalog store. Reconciliation is sequential and deliberately transaction
// free: one bad record must not abort the remaining batch, so partial
// failures leave the store in a mixed state and are itemized in the result.
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/canopyhq/canopy/internal/catalog/domain"
	"github.com/canopyhq/canopy/internal/clock"
	"github.com/canopyhq/canopy/internal/config"
	"github.com/canopyhq/canopy/internal/importer/domain"
	"github.com/canopyhq/canopy/internal/importer/parser"
	"github.com/canopyhq/canopy/internal/importer/validator"
	obsmetrics "github.com/canopyhq/canopy/internal/observability/metrics"
	"github.com/canopyhq/canopy/internal/orgcontext"
	"github.com/canopyhq/canopy/internal/ratelimit"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Policy   *config.ImportPolicyHolder
	Parser   *parser.Parser
	Products catalogdomain.ProductRepository
	Variants catalogdomain.VariantRepository
	Jobs     domain.JobRepository
	Metrics  *obsmetrics.Metrics             `optional:"true"`
	Limiter  *ratelimit.ImportLimiter        `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	policy   *config.ImportPolicyHolder
	parser   *parser.Parser
	products catalogdomain.ProductRepository
	variants catalogdomain.VariantRepository
	jobs     domain.JobRepository
	metrics  *obsmetrics.Metrics
	limiter  *ratelimit.ImportLimiter
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("importer.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		policy:   p.Policy,
		parser:   p.Parser,
		products: p.Products,
		variants: p.Variants,
		jobs:     p.Jobs,
		metrics:  p.Metrics,
		limiter:  p.Limiter,
	}
}

// ImportBatch validates and reconciles a canonical batch for the context
// organization. Failures are always folded into the result; no error escapes
// the pipeline boundary.
func (s *Service) ImportBatch(ctx context.Context, batch domain.Batch, mode domain.Mode) (result domain.Result) {
	defer s.recoverInto(ctx, &result)

	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Result{Success: false, Message: "no organization in request context"}
	}

	unlock, ok := s.lockOrg(ctx, orgID)
	if !ok {
		return domain.Result{Success: false, Message: "another import is already running for this organization"}
	}
	defer unlock()

	result = s.reconcile(ctx, batch, orgID, mode)
	s.finishRun(ctx, orgID, mode, domain.SourceBatch, result)
	return result
}

// ImportDocuments parses raw text menus and reconciles the resulting batch.
func (s *Service) ImportDocuments(ctx context.Context, docs []domain.Document, mode domain.Mode) (result domain.Result) {
	defer s.recoverInto(ctx, &result)

	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Result{Success: false, Message: "no organization in request context"}
	}

	batch, err := s.parser.Parse(docs, orgID.String())
	if err != nil {
		return domain.Result{Success: false, Message: "no documents provided"}
	}

	unlock, ok := s.lockOrg(ctx, orgID)
	if !ok {
		return domain.Result{Success: false, Message: "another import is already running for this organization"}
	}
	defer unlock()

	result = s.reconcile(ctx, batch, orgID, mode)
	s.finishRun(ctx, orgID, mode, domain.SourceDocuments, result)
	return result
}

// lockOrg serializes imports per organization. Lock failures fail open so a
// redis outage cannot block catalog updates.
func (s *Service) lockOrg(ctx context.Context, orgID snowflake.ID) (func(), bool) {
	if !s.limiter.Enabled() {
		return func() {}, true
	}

	token, acquired, err := s.limiter.TryLockOrg(ctx, orgID.String())
	if err != nil {
		s.log.Warn("import lock unavailable", zap.Error(err), zap.String("org_id", orgID.String()))
		return func() {}, true
	}
	if !acquired {
		return nil, false
	}
	return func() {
		if err := s.limiter.ReleaseOrg(ctx, orgID.String(), token); err != nil {
			s.log.Warn("failed to release import lock", zap.Error(err), zap.String("org_id", orgID.String()))
		}
	}, true
}

// reconcile runs the validator, then walks products and variants in document
// order, upserting by external natural id. Per-item persistence failures are
// recorded and skipped; validation and organization mismatches are fatal and
// happen before any store access.
func (s *Service) reconcile(ctx context.Context, batch domain.Batch, orgID snowflake.ID, mode domain.Mode) domain.Result {
	report := validator.Validate(batch)
	if !report.Valid {
		return domain.Result{
			Success: false,
			Message: "batch failed validation",
			Stats:   &domain.Stats{Errors: report.Errors},
		}
	}

	if batch.Metadata.OrganizationID != orgID.String() {
		return domain.Result{
			Success: false,
			Message: fmt.Sprintf("organization mismatch: batch declares %s, target is %s", batch.Metadata.OrganizationID, orgID),
		}
	}

	// Replace wipes unconditionally, before any insert. There is no backup.
	if mode == domain.ModeReplace {
		if err := s.products.DeleteByOrg(ctx, s.db, orgID); err != nil {
			return domain.Result{
				Success: false,
				Message: fmt.Sprintf("failed to clear existing catalog: %v", err),
			}
		}
	}

	stats := &domain.Stats{Errors: []string{}}
	for _, product := range batch.Products {
		s.reconcileProduct(ctx, orgID, product, stats)
	}

	success := len(stats.Errors) == 0
	if s.policy.Get().SuccessPolicy == config.SuccessPolicyLenient {
		success = success || stats.Changed()
	}

	return domain.Result{
		Success: success,
		Message: fmt.Sprintf("processed %d products and %d variants: %d/%d products created/updated, %d/%d variants created/updated, %d errors",
			stats.ProductsProcessed, stats.VariantsProcessed,
			stats.ProductsCreated, stats.ProductsUpdated,
			stats.VariantsCreated, stats.VariantsUpdated,
			len(stats.Errors)),
		Stats: stats,
	}
}

func (s *Service) reconcileProduct(ctx context.Context, orgID snowflake.ID, product domain.Product, stats *domain.Stats) {
	stats.ProductsProcessed++

	existing, err := s.products.FindByExternalID(ctx, s.db, orgID, product.ID)
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("product %s: lookup failed: %v", product.ID, err))
		return
	}

	now := s.clock.Now()
	var row *catalogdomain.Product
	if existing != nil {
		existing.Name = product.Name
		existing.Brand = product.Brand
		existing.Category = product.Category
		existing.Subcategory = optional(product.Subcategory)
		existing.Description = optional(product.Description)
		existing.ImageURL = optional(product.ImageURL)
		existing.StrainType = normalizeStrain(product.StrainType)
		existing.UpdatedAt = now
		if err := s.products.Update(ctx, s.db, existing); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("product %s: update failed: %v", product.ID, err))
			return
		}
		stats.ProductsUpdated++
		row = existing
	} else {
		row = &catalogdomain.Product{
			ID:          s.genID.Generate(),
			OrgID:       orgID,
			ExternalID:  product.ID,
			Name:        product.Name,
			Brand:       product.Brand,
			Category:    product.Category,
			Subcategory: optional(product.Subcategory),
			Description: optional(product.Description),
			ImageURL:    optional(product.ImageURL),
			StrainType:  normalizeStrain(product.StrainType),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.products.Create(ctx, s.db, row); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("product %s: insert failed: %v", product.ID, err))
			return
		}
		stats.ProductsCreated++
	}

	for _, variant := range product.Variants {
		s.reconcileVariant(ctx, orgID, row.ID, product.ID, variant, stats)
	}
}

func (s *Service) reconcileVariant(ctx context.Context, orgID, productRowID snowflake.ID, productExternalID string, variant domain.Variant, stats *domain.Stats) {
	stats.VariantsProcessed++

	existing, err := s.variants.FindByExternalID(ctx, s.db, productRowID, variant.ID)
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("variant %s of product %s: lookup failed: %v", variant.ID, productExternalID, err))
		return
	}

	now := s.clock.Now()
	if existing != nil {
		existing.SizeWeight = variant.SizeWeight
		existing.Price = *variant.Price
		existing.OriginalPrice = variant.OriginalPrice
		existing.THCPercentage = variant.THCPercentage
		existing.CBDPercentage = variant.CBDPercentage
		existing.TotalCannabinoids = variant.TotalCannabinoids
		existing.InventoryLevel = *variant.InventoryLevel
		existing.IsAvailable = *variant.IsAvailable
		existing.TerpeneProfile = terpenesToJSON(variant.TerpeneProfile)
		existing.UpdatedAt = now
		if err := s.variants.Update(ctx, s.db, existing); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("variant %s of product %s: update failed: %v", variant.ID, productExternalID, err))
			return
		}
		stats.VariantsUpdated++
		return
	}

	row := &catalogdomain.Variant{
		ID:                s.genID.Generate(),
		OrgID:             orgID,
		ProductID:         productRowID,
		ExternalID:        variant.ID,
		SizeWeight:        variant.SizeWeight,
		Price:             *variant.Price,
		OriginalPrice:     variant.OriginalPrice,
		THCPercentage:     variant.THCPercentage,
		CBDPercentage:     variant.CBDPercentage,
		TotalCannabinoids: variant.TotalCannabinoids,
		InventoryLevel:    *variant.InventoryLevel,
		IsAvailable:       *variant.IsAvailable,
		TerpeneProfile:    terpenesToJSON(variant.TerpeneProfile),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.variants.Create(ctx, s.db, row); err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("variant %s of product %s: insert failed: %v", variant.ID, productExternalID, err))
		return
	}
	stats.VariantsCreated++
}

// Export reads the organization's catalog back into the portable format.
func (s *Service) Export(ctx context.Context) (*domain.Batch, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	products, err := s.products.FindAll(ctx, s.db, orgID)
	if err != nil {
		s.metrics.RecordExportRun(ctx, "error")
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		s.metrics.RecordExportRun(ctx, "empty")
		return nil, nil
	}

	productIDs := make([]snowflake.ID, 0, len(products))
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
	}
	variants, err := s.variants.FindByProducts(ctx, s.db, orgID, productIDs)
	if err != nil {
		s.metrics.RecordExportRun(ctx, "error")
		return nil, fmt.Errorf("list variants: %w", err)
	}

	byProduct := make(map[snowflake.ID][]catalogdomain.Variant, len(products))
	for _, v := range variants {
		byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
	}

	now := s.clock.Now()
	batch := &domain.Batch{
		Metadata: domain.Metadata{
			FormatVersion:  domain.FormatVersion,
			OrganizationID: orgID.String(),
			Timestamp:      &now,
		},
		Products: make([]domain.Product, 0, len(products)),
	}
	for i := range products {
		batch.Products = append(batch.Products, exportProduct(&products[i], byProduct[products[i].ID]))
	}

	s.metrics.RecordExportRun(ctx, "ok")
	return batch, nil
}

// ListJobs returns the organization's reconciliation history, newest first.
func (s *Service) ListJobs(ctx context.Context) ([]domain.JobResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	jobs, err := s.jobs.FindByOrg(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.JobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, domain.JobResponse{
			ID:        job.ID,
			Mode:      job.Mode,
			Source:    job.Source,
			Success:   job.Success,
			Message:   job.Message,
			Stats:     statsFromJSON(job.Stats),
			CreatedAt: job.CreatedAt,
		})
	}
	return resp, nil
}

// finishRun records the audit job row and emits metrics. Both are
// best-effort; a failed job insert never fails the import itself.
func (s *Service) finishRun(ctx context.Context, orgID snowflake.ID, mode domain.Mode, source string, result domain.Result) {
	outcome := "failed"
	if result.Success {
		outcome = "ok"
	}
	s.metrics.RecordImportRun(ctx, string(mode), outcome)
	if result.Stats != nil {
		s.metrics.RecordImportProducts(ctx, "created", result.Stats.ProductsCreated)
		s.metrics.RecordImportProducts(ctx, "updated", result.Stats.ProductsUpdated)
		s.metrics.RecordImportVariants(ctx, "created", result.Stats.VariantsCreated)
		s.metrics.RecordImportVariants(ctx, "updated", result.Stats.VariantsUpdated)
		s.metrics.RecordImportErrors(ctx, len(result.Stats.Errors))
	}

	job := &domain.ImportJob{
		ID:        ulid.Make().String(),
		OrgID:     orgID,
		Mode:      string(mode),
		Source:    source,
		Success:   result.Success,
		Message:   result.Message,
		Stats:     statsToJSON(result.Stats),
		CreatedAt: s.clock.Now(),
	}
	if err := s.jobs.Create(ctx, s.db, job); err != nil {
		s.log.Warn("failed to record import job", zap.Error(err), zap.String("org_id", orgID.String()))
	}
}

// recoverInto converts a panic inside the pipeline into a failed result so
// callers always get a structured outcome.
func (s *Service) recoverInto(ctx context.Context, result *domain.Result) {
	if r := recover(); r != nil {
		s.log.Error("import pipeline panic", zap.Any("panic", r))
		s.metrics.RecordImportRun(ctx, "unknown", "panic")
		*result = domain.Result{
			Success: false,
			Message: fmt.Sprintf("unexpected import failure: %v", r),
		}
	}
}

func exportProduct(p *catalogdomain.Product, variants []catalogdomain.Variant) domain.Product {
	product := domain.Product{
		ID:          p.ExternalID,
		Name:        p.Name,
		Brand:       p.Brand,
		Category:    p.Category,
		Subcategory: deref(p.Subcategory),
		Description: deref(p.Description),
		ImageURL:    deref(p.ImageURL),
		StrainType:  p.StrainType,
		Variants:    make([]domain.Variant, 0, len(variants)),
	}
	for i := range variants {
		v := variants[i]
		price := v.Price
		inventory := v.InventoryLevel
		available := v.IsAvailable
		product.Variants = append(product.Variants, domain.Variant{
			ID:                v.ExternalID,
			SizeWeight:        v.SizeWeight,
			Price:             &price,
			OriginalPrice:     v.OriginalPrice,
			THCPercentage:     v.THCPercentage,
			CBDPercentage:     v.CBDPercentage,
			TotalCannabinoids: v.TotalCannabinoids,
			InventoryLevel:    &inventory,
			IsAvailable:       &available,
			TerpeneProfile:    terpenesFromJSON(v.TerpeneProfile),
		})
	}
	return product
}

func normalizeStrain(raw string) string {
	switch raw {
	case catalogdomain.StrainIndica, catalogdomain.StrainSativa, catalogdomain.StrainCBD, catalogdomain.StrainBalanced:
		return raw
	default:
		return catalogdomain.StrainHybrid
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func terpenesToJSON(profile map[string]float64) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for name, value := range profile {
		out[name] = value
	}
	return out
}

func terpenesFromJSON(raw datatypes.JSONMap) map[string]float64 {
	if len(raw) == 0 {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(raw))
	for name, value := range raw {
		switch typed := value.(type) {
		case float64:
			out[name] = typed
		case json.Number:
			if f, err := typed.Float64(); err == nil {
				out[name] = f
			}
		}
	}
	return out
}

func statsToJSON(stats *domain.Stats) datatypes.JSONMap {
	if stats == nil {
		return datatypes.JSONMap{}
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return datatypes.JSONMap{}
	}
	out := datatypes.JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return datatypes.JSONMap{}
	}
	return out
}

func statsFromJSON(raw datatypes.JSONMap) *domain.Stats {
	if len(raw) == 0 {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var stats domain.Stats
	if err := json.Unmarshal(encoded, &stats); err != nil {
		return nil
	}
	return &stats
}
