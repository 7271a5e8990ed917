package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lis/internal/clock"
	"github.com/smallbiznis/lis/internal/config"
	"github.com/smallbiznis/lis/internal/observability/metrics"
	"github.com/smallbiznis/lis/internal/order/domain"
	"github.com/smallbiznis/lis/internal/orgcontext"
	productdomain "github.com/smallbiznis/lis/internal/product/domain"
	"github.com/smallbiznis/lis/internal/providers/pdf"
	"github.com/smallbiznis/lis/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	ProductRepo productdomain.Repository
	PDF         pdf.Provider
	Catalog     *config.CatalogConfigHolder `optional:"true"`
	Metrics     *metrics.Metrics            `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	productRepo productdomain.Repository
	pdf         pdf.Provider
	catalog     *config.CatalogConfigHolder
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("order.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		productRepo: p.ProductRepo,
		pdf:         p.PDF,
		catalog:     p.Catalog,
		metrics:     p.Metrics,
	}
}

type lineRequest struct {
	productID snowflake.ID
	quantity  int
}

// Create places an order and takes the ordered quantities out of stock in the same transaction.
func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
	if err != nil || clientID == 0 {
		return nil, domain.ErrInvalidClient
	}

	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	order := &domain.Order{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Number:    ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		ClientID:  clientID,
		Status:    domain.StatusPending,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := s.repo.FindClient(ctx, tx, orgID, clientID)
		if err != nil {
			return err
		}
		if client == nil {
			return domain.ErrInvalidClient
		}

		total := decimal.Zero
		for _, line := range lines {
			product, err := s.productRepo.FindByID(ctx, tx, orgID.Int64(), line.productID.Int64())
			if err != nil {
				return err
			}
			if product == nil || product.Status != productdomain.StatusActive {
				return domain.ErrInvalidProduct
			}

			ok, err := s.productRepo.AdjustQuantity(ctx, tx, orgID.Int64(), product.ID.Int64(), -line.quantity)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrInsufficientStock
			}

			subtotal := product.SaleValue.Mul(decimal.NewFromInt(int64(line.quantity))).Round(2)
			total = total.Add(subtotal)
			order.Items = append(order.Items, domain.OrderItem{
				ID:          s.genID.Generate(),
				OrderID:     order.ID,
				OrgID:       orgID,
				ProductID:   product.ID,
				ProductCode: product.Code,
				ProductName: product.Name,
				UnitPrice:   product.SaleValue,
				Quantity:    line.quantity,
				Subtotal:    subtotal,
				CreatedAt:   now,
			})
		}
		order.Total = total

		return s.repo.Insert(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("number", order.Number),
		zap.Int("items", len(order.Items)),
	)

	resp := toResponse(order)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrderRequest) (domain.ListOrderResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ListOrderResponse{}, domain.ErrInvalidOrganization
	}

	var filter domain.ListOrderFilter
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := domain.ParseStatus(strings.ToLower(raw))
		if !ok {
			return domain.ListOrderResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		clientID, err := snowflake.ParseString(raw)
		if err != nil || clientID == 0 {
			return domain.ListOrderResponse{}, domain.ErrInvalidClient
		}
		value := clientID.Int64()
		filter.ClientID = &value
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: int(req.PageSize)}
	limit := page.Limit()

	items, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		return domain.ListOrderResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, limit, func(order *domain.Order) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        order.ID.String(),
			CreatedAt: order.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > limit {
		items = items[:limit]
	}

	orders := make([]domain.Response, 0, len(items))
	for _, item := range items {
		orders = append(orders, toResponse(item))
	}

	resp := domain.ListOrderResponse{Orders: orders}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	order, err := s.find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(order)
	return &resp, nil
}

// UpdateStatus moves an order along its lifecycle. Cancelling needs admin notes and puts the items back in stock.
func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Response, error) {
	next, ok := domain.ParseStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !ok {
		return nil, domain.ErrInvalidStatus
	}

	var adminNotes *string
	if req.AdminNotes != nil {
		if trimmed := strings.TrimSpace(*req.AdminNotes); trimmed != "" {
			adminNotes = &trimmed
		}
	}
	if next == domain.StatusCancelled && adminNotes == nil {
		return nil, domain.ErrAdminNotesRequired
	}

	var (
		order *domain.Order
		from  domain.Status
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.find(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		from = order.Status
		if !from.CanTransition(next) {
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now()
		order.Status = next
		order.UpdatedAt = now
		if adminNotes != nil {
			order.AdminNotes = adminNotes
		}
		switch next {
		case domain.StatusProcessing:
			order.ConfirmedAt = &now
		case domain.StatusShipped:
			order.ShippedAt = &now
		case domain.StatusCompleted:
			order.DeliveredAt = &now
		case domain.StatusCancelled:
			order.CancelledAt = &now
			for _, item := range order.Items {
				// A product deleted since the order was placed has nothing to restore.
				if _, err := s.productRepo.AdjustQuantity(ctx, tx, order.OrgID.Int64(), item.ProductID.Int64(), item.Quantity); err != nil {
					return err
				}
			}
		}

		updated, err := s.repo.UpdateStatus(ctx, tx, order, from)
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrderStatusChange(ctx, order.OrgID.String(), string(from), string(next))
	s.log.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
	)

	resp := toResponse(order)
	return &resp, nil
}

func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	counts, err := s.repo.CountByStatus(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{ByStatus: make(map[domain.Status]int64, len(domain.Statuses))}
	for _, status := range domain.Statuses {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}
	return stats, nil
}

// Receipt renders the order as a PDF.
func (s *Service) Receipt(ctx context.Context, id string) (*domain.ReceiptFile, error) {
	order, err := s.find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	client, err := s.repo.FindClient(ctx, s.db, order.OrgID, order.ClientID)
	if err != nil {
		return nil, err
	}
	orgName, err := s.repo.OrganizationName(ctx, s.db, order.OrgID)
	if err != nil {
		return nil, err
	}

	prefix := s.catalog.Get().CurrencyPrefix
	receipt := pdf.OrderReceipt{
		OrgName:     orgName,
		OrderNumber: order.Number,
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt.Format("02/01/2006 15:04"),
		Notes:       order.Notes,
		Total:       formatMoney(prefix, order.Total),
	}
	if client != nil {
		receipt.ClientName = client.Name
		receipt.ClientEmail = client.Email
		if client.Phone != nil {
			receipt.ClientPhone = *client.Phone
		}
	}
	for _, item := range order.Items {
		receipt.Items = append(receipt.Items, pdf.ReceiptItem{
			Code:      item.ProductCode,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: formatMoney(prefix, item.UnitPrice),
			Subtotal:  formatMoney(prefix, item.Subtotal),
		})
	}

	content, err := s.pdf.GenerateOrderReceipt(ctx, receipt)
	if err != nil {
		if errors.Is(err, pdf.ErrEmptyReceipt) {
			return nil, domain.ErrInvalidItems
		}
		return nil, err
	}

	return &domain.ReceiptFile{
		Filename: "pedido-" + order.Number + ".pdf",
		Content:  content,
	}, nil
}

func (s *Service) find(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || orderID == 0 {
		return nil, domain.ErrInvalidID
	}

	order, err := s.repo.FindByID(ctx, db, orgID, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// mergeLines folds repeated products into one line and keeps a stable order.
func mergeLines(items []domain.CreateOrderItem) ([]lineRequest, error) {
	if len(items) == 0 {
		return nil, domain.ErrInvalidItems
	}

	quantities := make(map[snowflake.ID]int, len(items))
	for _, item := range items {
		productID, err := snowflake.ParseString(strings.TrimSpace(item.ProductID))
		if err != nil || productID == 0 {
			return nil, domain.ErrInvalidProduct
		}
		if item.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		quantities[productID] += item.Quantity
	}

	lines := make([]lineRequest, 0, len(quantities))
	for productID, quantity := range quantities {
		lines = append(lines, lineRequest{productID: productID, quantity: quantity})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].productID < lines[j].productID })
	return lines, nil
}

func formatMoney(prefix string, value decimal.Decimal) string {
	return prefix + " " + value.StringFixed(2)
}

func toResponse(o *domain.Order) domain.Response {
	items := make([]domain.ItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, domain.ItemResponse{
			ProductID:   item.ProductID.String(),
			ProductCode: item.ProductCode,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal,
		})
	}

	return domain.Response{
		ID:             o.ID.String(),
		OrganizationID: o.OrgID.String(),
		Number:         o.Number,
		ClientID:       o.ClientID.String(),
		Status:         o.Status,
		Total:          o.Total,
		Notes:          o.Notes,
		AdminNotes:     o.AdminNotes,
		Items:          items,
		ConfirmedAt:    o.ConfirmedAt,
		ShippedAt:      o.ShippedAt,
		DeliveredAt:    o.DeliveredAt,
		CancelledAt:    o.CancelledAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}
