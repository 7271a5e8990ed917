package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lis/internal/clock"
	"github.com/smallbiznis/lis/internal/orgcontext"
	"github.com/smallbiznis/lis/internal/supplier/domain"
	"github.com/smallbiznis/lis/pkg/db/option"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("supplier.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	email, err := normalizeOptionalEmail(req.Email)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	supplier := &domain.Supplier{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		Document:  trimmedOrNil(req.Document),
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, err
	}

	resp := toResponse(supplier)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	opts := []option.QueryOption{
		option.WithSortBy(option.WithQuerySortBy(req.SortBy, req.OrderBy, map[string]bool{
			"name":       true,
			"created_at": true,
		})),
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		opts = append(opts, option.QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
			return db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
		}))
	}

	items, err := s.repo.Find(ctx, &domain.Supplier{OrgID: orgID}, opts...)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	supplier, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(supplier)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	supplier, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		supplier.Name = name
		fields["name"] = name
	}
	if req.Document != nil {
		supplier.Document = trimmedOrNil(req.Document)
		fields["document"] = supplier.Document
	}
	if req.Email != nil {
		email, err := normalizeOptionalEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		supplier.Email = email
		fields["email"] = email
	}
	if req.Phone != nil {
		supplier.Phone = strings.TrimSpace(*req.Phone)
		fields["phone"] = supplier.Phone
	}
	if len(fields) == 0 {
		resp := toResponse(supplier)
		return &resp, nil
	}

	supplier.UpdatedAt = s.clock.Now()
	fields["updated_at"] = supplier.UpdatedAt
	if _, err := s.repo.Update(ctx, &domain.Supplier{ID: supplier.ID, OrgID: supplier.OrgID}, fields); err != nil {
		return nil, err
	}

	resp := toResponse(supplier)
	return &resp, nil
}

// Delete removes the supplier and clears it from every product that referenced it.
func (s *Service) Delete(ctx context.Context, id string) error {
	supplier, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`UPDATE products SET supplier_id = NULL, updated_at = ? WHERE org_id = ? AND supplier_id = ?`,
			s.clock.Now(),
			supplier.OrgID,
			supplier.ID,
		).Error; err != nil {
			return err
		}
		_, err := s.repo.WithTrx(tx).Delete(ctx, &domain.Supplier{ID: supplier.ID, OrgID: supplier.OrgID})
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info("supplier deleted", zap.String("supplier_id", supplier.ID.String()))
	return nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.Supplier, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	supplierID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || supplierID == 0 {
		return nil, domain.ErrInvalidID
	}

	supplier, err := s.repo.FindOne(ctx, &domain.Supplier{ID: supplierID, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, domain.ErrNotFound
	}
	return supplier, nil
}

func toResponse(s *domain.Supplier) domain.Response {
	return domain.Response{
		ID:             s.ID.String(),
		OrganizationID: s.OrgID.String(),
		Name:           s.Name,
		Document:       s.Document,
		Email:          s.Email,
		Phone:          s.Phone,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func normalizeOptionalEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
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
