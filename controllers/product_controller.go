package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace-service/models"
	"marketplace-service/services"
)

// maxImageSize caps multipart image uploads.
const maxImageSize = 5 << 20

type ProductController struct {
	products services.ProductService
}

func NewProductController(products services.ProductService) *ProductController {
	return &ProductController{products: products}
}

// ListProducts handles GET /products?category=&producer_id=&search=.
func (pc *ProductController) ListProducts(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	filter := models.ProductFilter{
		Category:      ctx.Query("category"),
		Search:        ctx.Query("search"),
		AvailableOnly: ctx.DefaultQuery("available", "true") == "true",
		Page:          page,
		Limit:         limit,
	}
	if raw := ctx.Query("producer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid producer_id"})
			return
		}
		filter.ProducerID = &id
	}

	products, total, svcErr := pc.products.List(ctx.Request.Context(), filter)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	paginated(ctx, "products", products, page, limit, total)
}

// ListMyProducts handles GET /provider/products.
func (pc *ProductController) ListMyProducts(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	page, limit := parsePaginationParams(ctx)
	products, total, svcErr := pc.products.List(ctx.Request.Context(), models.ProductFilter{
		ProducerID: &caller.UserID,
		Page:       page,
		Limit:      limit,
	})
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	paginated(ctx, "products", products, page, limit, total)
}

// GetProduct handles GET /product/:id.
func (pc *ProductController) GetProduct(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	product, svcErr := pc.products.Get(ctx.Request.Context(), id)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"product": product})
}

// CreateProduct handles POST /product.
func (pc *ProductController) CreateProduct(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	var req models.CreateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	product, svcErr := pc.products.Create(ctx.Request.Context(), caller, &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"product": product})
}

// UpdateProduct handles PUT /product/:id.
func (pc *ProductController) UpdateProduct(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.UpdateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	product, svcErr := pc.products.Update(ctx.Request.Context(), caller, id, &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct handles DELETE /product/:id.
func (pc *ProductController) DeleteProduct(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	if svcErr := pc.products.Delete(ctx.Request.Context(), caller, id); svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// UploadImage handles multipart POST /product/:id/images (field "image").
func (pc *ProductController) UploadImage(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxImageSize)
	header, err := ctx.FormFile("image")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read image"})
		return
	}
	defer file.Close()

	image, svcErr := pc.products.UploadImage(ctx.Request.Context(), caller, id, header.Filename, header.Header.Get("Content-Type"), file)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"image": image})
}

// PresignImage handles POST /product/:id/images/presign.
func (pc *ProductController) PresignImage(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.PresignImageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	upload, svcErr := pc.products.PresignImage(ctx.Request.Context(), caller, id, req.ContentType)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, upload)
}

// AttachImage handles POST /product/:id/images/attach.
func (pc *ProductController) AttachImage(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.AttachImageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	image, svcErr := pc.products.AttachImage(ctx.Request.Context(), caller, id, req.ObjectKey)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"image": image})
}

// DeleteImage handles DELETE /product/:id/images/:imageId.
func (pc *ProductController) DeleteImage(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	imageID, ok := uuidParam(ctx, "imageId")
	if !ok {
		return
	}
	if svcErr := pc.products.DeleteImage(ctx.Request.Context(), caller, id, imageID); svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
}
