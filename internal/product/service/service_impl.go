package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lis/internal/clock"
	"github.com/smallbiznis/lis/internal/config"
	"github.com/smallbiznis/lis/internal/orgcontext"
	"github.com/smallbiznis/lis/internal/product/domain"
	"github.com/smallbiznis/lis/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Catalog *config.CatalogConfigHolder `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	genID   *snowflake.Node
	clock   clock.Clock
	catalog *config.CatalogConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("product.service"),
		repo:    p.Repo,
		genID:   p.GenID,
		clock:   p.Clock,
		catalog: p.Catalog,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	filter := domain.ListRequest{
		Term:    strings.TrimSpace(req.Term),
		Type:    strings.TrimSpace(req.Type),
		Size:    strings.TrimSpace(req.Size),
		Status:  req.Status,
		SortBy:  strings.TrimSpace(req.SortBy),
		OrderBy: strings.TrimSpace(req.OrderBy),
	}

	items, err := s.repo.List(ctx, s.db, orgID.Int64(), filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}

	return resp, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	productType := strings.TrimSpace(req.Type)
	if productType == "" {
		return nil, domain.ErrInvalidType
	}
	if req.Quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if req.SaleValue.IsNegative() {
		return nil, domain.ErrInvalidSaleValue
	}
	if req.PurchaseValue.IsNegative() {
		return nil, domain.ErrInvalidPurchaseValue
	}

	status := domain.StatusActive
	if req.Status != nil {
		if !validStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		status = *req.Status
	}

	supplierID, err := s.resolveSupplier(ctx, orgID, req.SupplierID)
	if err != nil {
		return nil, err
	}

	purchase := req.PurchaseValue.Round(2)
	sale := req.SaleValue.Round(2)
	now := s.clock.Now()
	p := &domain.Product{
		ID:            s.genID.Generate(),
		OrgID:         orgID,
		Code:          code,
		Type:          productType,
		Name:          name,
		Model:         strings.TrimSpace(req.Model),
		Description:   trimmedOrNil(req.Description),
		ImageURL:      trimmedOrNil(req.ImageURL),
		Size:          trimmedOrNil(req.Size),
		SizeNumber:    req.SizeNumber,
		Color:         strings.TrimSpace(req.Color),
		Material:      strings.TrimSpace(req.Material),
		PurchaseValue: purchase,
		SaleValue:     sale,
		Margin:        domain.ComputeMargin(purchase, sale),
		Status:        status,
		Quantity:      req.Quantity,
		SupplierID:    supplierID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, s.db, p); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrCodeExists
		}
		if db.IsCheckViolationErr(err) {
			return nil, domain.ErrInvalidQuantity
		}
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, s.db, orgID.Int64(), p.ID.Int64())
	if err != nil {
		return nil, err
	}
	if created == nil {
		created = p
	}

	resp := toResponse(created)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	item, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Type != nil {
		productType := strings.TrimSpace(*req.Type)
		if productType == "" {
			return nil, domain.ErrInvalidType
		}
		item.Type = productType
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Model != nil {
		item.Model = strings.TrimSpace(*req.Model)
	}
	if req.Description != nil {
		item.Description = trimmedOrNil(req.Description)
	}
	if req.ImageURL != nil {
		item.ImageURL = trimmedOrNil(req.ImageURL)
	}
	if req.Size != nil {
		item.Size = trimmedOrNil(req.Size)
	}
	if req.SizeNumber != nil {
		item.SizeNumber = *req.SizeNumber
	}
	if req.Color != nil {
		item.Color = strings.TrimSpace(*req.Color)
	}
	if req.Material != nil {
		item.Material = strings.TrimSpace(*req.Material)
	}
	if req.PurchaseValue != nil {
		if req.PurchaseValue.IsNegative() {
			return nil, domain.ErrInvalidPurchaseValue
		}
		item.PurchaseValue = req.PurchaseValue.Round(2)
	}
	if req.SaleValue != nil {
		if req.SaleValue.IsNegative() {
			return nil, domain.ErrInvalidSaleValue
		}
		item.SaleValue = req.SaleValue.Round(2)
	}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		item.Status = *req.Status
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, domain.ErrInvalidQuantity
		}
		item.Quantity = *req.Quantity
	}
	if req.SupplierID != nil {
		supplierID, err := s.resolveSupplier(ctx, item.OrgID, req.SupplierID)
		if err != nil {
			return nil, err
		}
		item.SupplierID = supplierID
	}

	item.Margin = domain.ComputeMargin(item.PurchaseValue, item.SaleValue)
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		if db.IsCheckViolationErr(err) {
			return nil, domain.ErrInvalidQuantity
		}
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, s.db, item.OrgID.Int64(), item.ID.Int64())
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(updated)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	item, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	affected, err := s.repo.Delete(ctx, s.db, item.OrgID.Int64(), item.ID.Int64())
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	s.log.Info("product deleted",
		zap.String("product_id", item.ID.String()),
		zap.String("code", item.Code),
	)
	return nil
}

func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	stats, err := s.repo.Stats(ctx, s.db, orgID.Int64(), s.catalog.Get().LowStockBelow)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.Product, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || productID == 0 {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID.Int64(), productID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

// resolveSupplier returns nil for an absent or blank reference.
func (s *Service) resolveSupplier(ctx context.Context, orgID snowflake.ID, raw *string) (*snowflake.ID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	supplierID, err := snowflake.ParseString(strings.TrimSpace(*raw))
	if err != nil || supplierID == 0 {
		return nil, domain.ErrInvalidSupplier
	}
	exists, err := s.repo.SupplierExists(ctx, s.db, orgID.Int64(), supplierID.Int64())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrInvalidSupplier
	}
	return &supplierID, nil
}

func toResponse(p *domain.Product) domain.Response {
	var supplierID *string
	if p.SupplierID != nil {
		value := p.SupplierID.String()
		supplierID = &value
	}

	return domain.Response{
		ID:             p.ID.String(),
		OrganizationID: p.OrgID.String(),
		Code:           p.Code,
		Type:           p.Type,
		Name:           p.Name,
		Model:          p.Model,
		Description:    p.Description,
		ImageURL:       p.ImageURL,
		Size:           p.Size,
		SizeNumber:     p.SizeNumber,
		Color:          p.Color,
		Material:       p.Material,
		PurchaseValue:  p.PurchaseValue,
		SaleValue:      p.SaleValue,
		Margin:         p.Margin,
		Status:         p.Status,
		Quantity:       p.Quantity,
		SupplierID:     supplierID,
		SupplierName:   p.SupplierName,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func validStatus(status int) bool {
	return status == domain.StatusActive || status == domain.StatusInactive
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
