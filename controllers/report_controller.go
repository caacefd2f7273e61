package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-service/models"
	"marketplace-service/services"
)

// ReportController serves revenue, profits and invoices.
type ReportController struct {
	reports services.ReportService
}

func NewReportController(reports services.ReportService) *ReportController {
	return &ReportController{reports: reports}
}

// ProviderRevenue handles GET /provider/revenue?from=&to=.
func (rc *ReportController) ProviderRevenue(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	from, to, ok := parsePeriod(ctx)
	if !ok {
		return
	}
	summary, svcErr := rc.reports.Revenue(ctx.Request.Context(), caller.UserID, from, to)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// Profits handles GET /admin/profits/:providerId?from=&to=.
func (rc *ReportController) Profits(ctx *gin.Context) {
	providerID, ok := uuidParam(ctx, "providerId")
	if !ok {
		return
	}
	from, to, ok := parsePeriod(ctx)
	if !ok {
		return
	}
	summary, svcErr := rc.reports.Profits(ctx.Request.Context(), providerID, from, to)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// ListProviders handles GET /admin/providers.
func (rc *ReportController) ListProviders(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	providers, total, svcErr := rc.reports.ListProviders(ctx.Request.Context(), page, limit)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	paginated(ctx, "providers", providers, page, limit, total)
}

// GeneratePDF handles POST /admin/generate-pdf.
func (rc *ReportController) GeneratePDF(ctx *gin.Context) {
	var req models.GeneratePDFRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	pdf, filename, svcErr := rc.reports.InvoicePDF(ctx.Request.Context(), &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, "application/pdf", pdf)
}
