package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/honeynil/UdhaarLedger/internal/models"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	shopTracer  = "shop-repository"
	shopColumns = `s.id, s.owner_id, s.shop_name, u.name`
	shopFrom    = ` FROM shops s JOIN users u ON u.id = s.owner_id`
)

type PostgresShopRepository struct {
	db *sql.DB
}

func NewPostgresShopRepository(db *sql.DB) *PostgresShopRepository {
	return &PostgresShopRepository{db: db}
}

func (r *PostgresShopRepository) List(ctx context.Context) (shops []models.Shop, err error) {
	ctx, done := observe(ctx, shopTracer, "ListShops")
	defer done(&err)

	rows, err := r.db.QueryContext(ctx, `SELECT `+shopColumns+shopFrom+` ORDER BY s.shop_name, s.id`)
	if err != nil {
		slog.Error("failed to list shops", "method", "List", "error", err)
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	defer rows.Close()

	shops = make([]models.Shop, 0)
	for rows.Next() {
		var shop models.Shop
		if err = rows.Scan(&shop.ID, &shop.OwnerID, &shop.Name, &shop.OwnerName); err != nil {
			return nil, fmt.Errorf("failed to scan shop: %w", err)
		}
		shops = append(shops, shop)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shops: %w", err)
	}
	return shops, nil
}

func (r *PostgresShopRepository) GetByID(ctx context.Context, id int64) (*models.Shop, error) {
	return r.getOne(ctx, "GetShopByID", `s.id = $1`, id)
}

func (r *PostgresShopRepository) GetByOwner(ctx context.Context, ownerID int64) (*models.Shop, error) {
	return r.getOne(ctx, "GetShopByOwner", `s.owner_id = $1`, ownerID)
}

func (r *PostgresShopRepository) getOne(ctx context.Context, method, where string, arg int64) (shop *models.Shop, err error) {
	ctx, done := observe(ctx, shopTracer, method, attribute.Int64("arg", arg))
	defer done(&err)

	var s models.Shop
	err = r.db.QueryRowContext(ctx, `SELECT `+shopColumns+shopFrom+` WHERE `+where, arg).
		Scan(&s.ID, &s.OwnerID, &s.Name, &s.OwnerName)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrShopNotFound
	}
	if err != nil {
		slog.Error("failed to get shop", "method", method, "arg", arg, "error", err)
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return &s, nil
}

type PostgresProductRepository struct {
	db *sql.DB
}

func NewPostgresProductRepository(db *sql.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

func (r *PostgresProductRepository) Create(ctx context.Context, product *models.Product) (err error) {
	ctx, done := observe(ctx, shopTracer, "CreateProduct")
	defer done(&err)

	if product == nil {
		err = pkgerrors.ErrNilProduct
		return err
	}

	query := `INSERT INTO products (shop_id, name, price, category) VALUES ($1, $2, $3, $4) RETURNING id`
	err = r.db.QueryRowContext(ctx, query, product.ShopID, product.Name, product.Price, product.Category).Scan(&product.ID)
	if err != nil {
		if code, _ := pqCode(err); code == pqForeignKeyViolation {
			err = pkgerrors.ErrShopNotFound
			return err
		}
		slog.Error("failed to create product", "method", "Create", "shop_id", product.ShopID, "error", err)
		return fmt.Errorf("failed to create product: %w", err)
	}

	slog.Info("product created", "method", "Create", "product_id", product.ID, "shop_id", product.ShopID)
	return nil
}

func (r *PostgresProductRepository) ListByShop(ctx context.Context, shopID int64) (products []models.Product, err error) {
	ctx, done := observe(ctx, shopTracer, "ListProducts", attribute.Int64("shop_id", shopID))
	defer done(&err)

	rows, err := r.db.QueryContext(ctx, `SELECT id, shop_id, name, price, category FROM products WHERE shop_id = $1 ORDER BY name, id`, shopID)
	if err != nil {
		slog.Error("failed to list products", "method", "ListByShop", "shop_id", shopID, "error", err)
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products = make([]models.Product, 0)
	for rows.Next() {
		var p models.Product
		if err = rows.Scan(&p.ID, &p.ShopID, &p.Name, &p.Price, &p.Category); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}
