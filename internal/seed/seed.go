package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/lis/internal/auth/domain"
	"github.com/smallbiznis/lis/internal/auth/password"
	organizationdomain "github.com/smallbiznis/lis/internal/organization/domain"
	productdomain "github.com/smallbiznis/lis/internal/product/domain"
	supplierdomain "github.com/smallbiznis/lis/internal/supplier/domain"
	"gorm.io/gorm"
)

const (
	defaultOrgName       = "Main"
	defaultOrgSlug       = "main"
	defaultAdminEmail    = "admin@lis.local"
	defaultAdminPassword = "admin"
	defaultAdminDisplay  = "LIS Admin"
)

// EnsureMainOrg seeds the default organization for startup bootstrap.
func EnsureMainOrg(db *gorm.DB) error {
	return EnsureMainOrgWithID(db, 0)
}

// EnsureMainOrgWithID seeds the default organization using a fixed id when one is configured.
func EnsureMainOrgWithID(db *gorm.DB, orgID int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureMainOrgTx(ctx, tx, node, orgID)
		return err
	})
}

// EnsureMainOrgAndAdmin seeds the default organization and its owner account.
func EnsureMainOrgAndAdmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := ensureMainOrgTx(ctx, tx, node, 0)
		if err != nil {
			return err
		}

		var user authdomain.User
		err = tx.WithContext(ctx).
			Where("email = ?", strings.ToLower(defaultAdminEmail)).
			First(&user).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			hashed, err := password.Hash(defaultAdminPassword)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			user = authdomain.User{
				ID:           node.Generate(),
				DisplayName:  defaultAdminDisplay,
				Email:        strings.ToLower(defaultAdminEmail),
				PasswordHash: &hashed,
				IsDefault:    true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
				return err
			}
		}

		var member organizationdomain.OrganizationMember
		err = tx.WithContext(ctx).
			Where("org_id = ? AND user_id = ?", org.ID, user.ID).
			First(&member).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		member = organizationdomain.OrganizationMember{
			ID:        node.Generate(),
			OrgID:     org.ID,
			UserID:    user.ID,
			Role:      organizationdomain.RoleOwner,
			CreatedAt: time.Now().UTC(),
		}
		return tx.WithContext(ctx).Create(&member).Error
	})
}

type sampleProduct struct {
	code, typ, name, model, size, color, material string
	sizeNumber                                    int
	purchase, sale                                string
	quantity                                      int
	supplier                                      int
}

var sampleSuppliers = []string{"Calçados Aurora", "Bolsas Horizonte"}

var sampleProducts = []sampleProduct{
	{"SAP-001", "Sapato", "Scarpin Clássico", "Scarpin", "36", "Preto", "Couro", 36, "80.00", "160.00", 12, 0},
	{"SAP-002", "Sapato", "Sapatilha Conforto", "Sapatilha", "37", "Nude", "Couro", 37, "45.00", "99.90", 3, 0},
	{"SAN-001", "Sandália", "Sandália Rasteira", "Rasteira", "35", "Dourado", "Sintético", 35, "30.00", "69.90", 0, 0},
	{"BOT-001", "Bota", "Bota Cano Curto", "Ankle boot", "38", "Caramelo", "Camurça", 38, "120.00", "259.90", 7, 0},
	{"BOL-001", "Bolsa", "Bolsa Tiracolo", "Tiracolo", "", "Azul", "Couro", 0, "90.00", "199.00", 20, 1},
}

// EnsureSampleCatalog seeds a small catalog for the main organization when it has no products yet.
func EnsureSampleCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := ensureMainOrgTx(ctx, tx, node, 0)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.WithContext(ctx).Model(&productdomain.Product{}).Where("org_id = ?", org.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		supplierIDs := make([]snowflake.ID, 0, len(sampleSuppliers))
		for _, name := range sampleSuppliers {
			s := supplierdomain.Supplier{
				ID:        node.Generate(),
				OrgID:     org.ID,
				Name:      name,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&s).Error; err != nil {
				return err
			}
			supplierIDs = append(supplierIDs, s.ID)
		}

		for _, sp := range sampleProducts {
			purchase := decimal.RequireFromString(sp.purchase)
			sale := decimal.RequireFromString(sp.sale)
			supplierID := supplierIDs[sp.supplier]
			p := productdomain.Product{
				ID:            node.Generate(),
				OrgID:         org.ID,
				Code:          sp.code,
				Type:          sp.typ,
				Name:          sp.name,
				Model:         sp.model,
				Size:          optional(sp.size),
				SizeNumber:    sp.sizeNumber,
				Color:         sp.color,
				Material:      sp.material,
				PurchaseValue: purchase,
				SaleValue:     sale,
				Margin:        productdomain.ComputeMargin(purchase, sale),
				Status:        productdomain.StatusActive,
				Quantity:      sp.quantity,
				SupplierID:    &supplierID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := tx.WithContext(ctx).Create(&p).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func ensureMainOrgTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID int64) (organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := tx.WithContext(ctx).Where("slug = ?", defaultOrgSlug).First(&org).Error
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return org, err
	}
	id := node.Generate()
	if orgID != 0 {
		id = snowflake.ID(orgID)
	}
	now := time.Now().UTC()
	org = organizationdomain.Organization{
		ID:        id,
		Name:      defaultOrgName,
		Slug:      defaultOrgSlug,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&org).Error; err != nil {
		return org, err
	}
	return org, nil
}
