package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace-service/models"
	awspkg "marketplace-service/pkg/aws"
	"marketplace-service/repository"
)

// PresignedUpload is returned to clients uploading an image directly to S3.
type PresignedUpload struct {
	UploadURL string            `json:"upload_url"`
	ObjectKey string            `json:"object_key"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// ProductService manages the catalog. Writes require the caller to own the
// product unless the caller is an admin.
type ProductService interface {
	Create(ctx context.Context, caller Caller, req *models.CreateProductRequest) (*models.Product, *ServiceError)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, *ServiceError)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, *ServiceError)
	Update(ctx context.Context, caller Caller, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, *ServiceError)
	Delete(ctx context.Context, caller Caller, id uuid.UUID) *ServiceError

	UploadImage(ctx context.Context, caller Caller, id uuid.UUID, filename, contentType string, body io.Reader) (*models.ProductImage, *ServiceError)
	PresignImage(ctx context.Context, caller Caller, id uuid.UUID, contentType string) (*PresignedUpload, *ServiceError)
	AttachImage(ctx context.Context, caller Caller, id uuid.UUID, objectKey string) (*models.ProductImage, *ServiceError)
	DeleteImage(ctx context.Context, caller Caller, id, imageID uuid.UUID) *ServiceError
}

type productService struct {
	products     repository.ProductRepository
	store        awspkg.ObjectStore
	uploadExpiry time.Duration
	logger       *zap.Logger
}

// NewProductService creates a ProductService. A nil store disables image
// uploads.
func NewProductService(products repository.ProductRepository, store awspkg.ObjectStore, uploadExpiry time.Duration, logger *zap.Logger) ProductService {
	if uploadExpiry <= 0 {
		uploadExpiry = 15 * time.Minute
	}
	return &productService{products: products, store: store, uploadExpiry: uploadExpiry, logger: logger}
}

func validPrice(p decimal.Decimal) bool {
	return p.GreaterThan(decimal.Zero) && p.Exponent() >= -2
}

func (s *productService) Create(ctx context.Context, caller Caller, req *models.CreateProductRequest) (*models.Product, *ServiceError) {
	if !validPrice(req.Price) {
		return nil, badRequest("Price must be greater than zero with at most two decimals")
	}

	product := &models.Product{
		ProducerID:        caller.UserID,
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		Category:          strings.ToLower(strings.TrimSpace(req.Category)),
		Unit:              req.Unit,
		Price:             req.Price,
		QuantityAvailable: req.QuantityAvailable,
		IsAvailable:       true,
	}
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}

	if err := s.products.Create(ctx, product); err != nil {
		s.logger.Error("Failed to create product", zap.Error(err))
		return nil, internalError()
	}
	return product, nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*models.Product, *ServiceError) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("Product not found")
		}
		s.logger.Error("Failed to load product", zap.String("product_id", id.String()), zap.Error(err))
		return nil, internalError()
	}
	return product, nil
}

func (s *productService) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, *ServiceError) {
	filter.Category = strings.ToLower(strings.TrimSpace(filter.Category))
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list products", zap.Error(err))
		return nil, 0, internalError()
	}
	return products, total, nil
}

// owned loads a product and checks the caller may modify it.
func (s *productService) owned(ctx context.Context, caller Caller, id uuid.UUID) (*models.Product, *ServiceError) {
	product, svcErr := s.Get(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if product.ProducerID != caller.UserID && !caller.IsAdmin() {
		return nil, forbidden("You do not own this product")
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, caller Caller, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, *ServiceError) {
	product, svcErr := s.owned(ctx, caller, id)
	if svcErr != nil {
		return nil, svcErr
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Category != nil {
		product.Category = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	if req.Price != nil {
		if !validPrice(*req.Price) {
			return nil, badRequest("Price must be greater than zero with at most two decimals")
		}
		product.Price = *req.Price
	}
	if req.QuantityAvailable != nil {
		product.QuantityAvailable = *req.QuantityAvailable
	}
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}

	if err := s.products.Update(ctx, product); err != nil {
		s.logger.Error("Failed to update product", zap.String("product_id", id.String()), zap.Error(err))
		return nil, internalError()
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, caller Caller, id uuid.UUID) *ServiceError {
	product, svcErr := s.owned(ctx, caller, id)
	if svcErr != nil {
		return svcErr
	}
	if err := s.products.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete product", zap.String("product_id", id.String()), zap.Error(err))
		return internalError()
	}

	// Orphaned objects are harmless; a failed delete is only logged.
	for _, img := range product.Images {
		if s.store == nil {
			break
		}
		if err := s.store.Delete(ctx, img.ObjectKey); err != nil {
			s.logger.Warn("Failed to delete image object", zap.String("key", img.ObjectKey), zap.Error(err))
		}
	}
	return nil
}

var errStorageDisabled = serviceUnavailable("Image storage is not configured")

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func imageKey(productID uuid.UUID, contentType, filename string) (string, bool) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", false
	}
	if filename != "" {
		if e := strings.ToLower(path.Ext(filename)); e == ".jpeg" || e == ext {
			ext = e
		}
	}
	return fmt.Sprintf("products/%s/%s%s", productID, uuid.NewString(), ext), true
}

func (s *productService) UploadImage(ctx context.Context, caller Caller, id uuid.UUID, filename, contentType string, body io.Reader) (*models.ProductImage, *ServiceError) {
	if s.store == nil {
		return nil, errStorageDisabled
	}
	if _, svcErr := s.owned(ctx, caller, id); svcErr != nil {
		return nil, svcErr
	}
	key, ok := imageKey(id, contentType, filename)
	if !ok {
		return nil, badRequest("Unsupported image type")
	}

	url, err := s.store.Upload(ctx, key, contentType, body)
	if err != nil {
		s.logger.Error("Failed to upload image", zap.String("key", key), zap.Error(err))
		return nil, internalError()
	}

	image := &models.ProductImage{ProductID: id, URL: url, ObjectKey: key}
	if err := s.products.AddImage(ctx, image); err != nil {
		s.logger.Error("Failed to save image", zap.String("key", key), zap.Error(err))
		return nil, internalError()
	}
	return image, nil
}

func (s *productService) PresignImage(ctx context.Context, caller Caller, id uuid.UUID, contentType string) (*PresignedUpload, *ServiceError) {
	if s.store == nil {
		return nil, errStorageDisabled
	}
	if _, svcErr := s.owned(ctx, caller, id); svcErr != nil {
		return nil, svcErr
	}
	key, ok := imageKey(id, contentType, "")
	if !ok {
		return nil, badRequest("Unsupported image type")
	}

	url, headers, err := s.store.PresignPut(ctx, key, contentType, s.uploadExpiry)
	if err != nil {
		s.logger.Error("Failed to presign upload", zap.String("key", key), zap.Error(err))
		return nil, internalError()
	}
	return &PresignedUpload{
		UploadURL: url,
		ObjectKey: key,
		Headers:   headers,
		ExpiresAt: time.Now().Add(s.uploadExpiry),
	}, nil
}

// AttachImage records an object the client uploaded with a presigned URL.
func (s *productService) AttachImage(ctx context.Context, caller Caller, id uuid.UUID, objectKey string) (*models.ProductImage, *ServiceError) {
	if s.store == nil {
		return nil, errStorageDisabled
	}
	if _, svcErr := s.owned(ctx, caller, id); svcErr != nil {
		return nil, svcErr
	}
	if !strings.HasPrefix(objectKey, fmt.Sprintf("products/%s/", id)) {
		return nil, badRequest("Object key does not belong to this product")
	}

	image := &models.ProductImage{ProductID: id, URL: s.store.URLFor(objectKey), ObjectKey: objectKey}
	if err := s.products.AddImage(ctx, image); err != nil {
		s.logger.Error("Failed to save image", zap.String("key", objectKey), zap.Error(err))
		return nil, internalError()
	}
	return image, nil
}

func (s *productService) DeleteImage(ctx context.Context, caller Caller, id, imageID uuid.UUID) *ServiceError {
	if _, svcErr := s.owned(ctx, caller, id); svcErr != nil {
		return svcErr
	}
	image, err := s.products.FindImage(ctx, id, imageID)
	if err != nil {
		if repository.IsNotFound(err) {
			return notFound("Image not found")
		}
		s.logger.Error("Failed to load image", zap.Error(err))
		return internalError()
	}
	if err := s.products.DeleteImage(ctx, image.ID); err != nil {
		s.logger.Error("Failed to delete image", zap.Error(err))
		return internalError()
	}
	if s.store == nil {
		return nil
	}
	if err := s.store.Delete(ctx, image.ObjectKey); err != nil {
		s.logger.Warn("Failed to delete image object", zap.String("key", image.ObjectKey), zap.Error(err))
	}
	return nil
}
