package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/honeynil/UdhaarLedger/internal/models"
	"github.com/honeynil/UdhaarLedger/internal/repository"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"go.opentelemetry.io/otel/codes"
)

const catalogTracer = "catalog-service"

type CatalogService struct {
	shops    repository.ShopRepository
	products repository.ProductRepository
}

func NewCatalogService(shops repository.ShopRepository, products repository.ProductRepository) *CatalogService {
	return &CatalogService{shops: shops, products: products}
}

func (s *CatalogService) ListShops(ctx context.Context) ([]models.Shop, error) {
	ctx, span := startSpan(ctx, catalogTracer, "ListShops")
	defer span.End()

	shops, err := s.shops.List(ctx)
	if err != nil {
		spanError(span, err, "list shops failed")
		return nil, err
	}
	return shops, nil
}

func (s *CatalogService) GetShop(ctx context.Context, shopID int64) (*models.Shop, error) {
	ctx, span := startSpan(ctx, catalogTracer, "GetShop")
	defer span.End()

	shop, err := s.shops.GetByID(ctx, shopID)
	if err != nil {
		spanError(span, err, "get shop failed")
		return nil, err
	}
	return shop, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, shopID int64) ([]models.Product, error) {
	ctx, span := startSpan(ctx, catalogTracer, "ListProducts")
	defer span.End()

	if _, err := s.shops.GetByID(ctx, shopID); err != nil {
		spanError(span, err, "shop lookup failed")
		return nil, err
	}
	products, err := s.products.ListByShop(ctx, shopID)
	if err != nil {
		spanError(span, err, "list products failed")
		return nil, err
	}
	return products, nil
}

func (s *CatalogService) AddProduct(ctx context.Context, product *models.Product) error {
	ctx, span := startSpan(ctx, catalogTracer, "AddProduct")
	defer span.End()

	if product == nil {
		span.SetStatus(codes.Error, "nil product")
		return pkgerrors.ErrNilProduct
	}
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		span.SetStatus(codes.Error, "empty product name")
		return pkgerrors.Validationf("product name is required")
	}
	if product.Price.IsNegative() {
		span.SetStatus(codes.Error, "negative price")
		return pkgerrors.Validationf("price cannot be negative")
	}
	if !models.ValidMoneyScale(product.Price) {
		span.SetStatus(codes.Error, "price scale")
		return pkgerrors.Validationf("price has more than %d decimal places", models.MoneyScale)
	}
	if product.Category == "" {
		product.Category = models.DefaultCategory
	}

	if err := s.products.Create(ctx, product); err != nil {
		spanError(span, err, "product creation failed")
		slog.Error("failed to add product", "shop_id", product.ShopID, "name", product.Name, "error", err)
		return err
	}
	slog.Info("product added", "product_id", product.ID, "shop_id", product.ShopID)
	return nil
}
