package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace-service/models"
	"marketplace-service/repository"
)

// ReportService computes provider revenue and the platform's commission.
type ReportService interface {
	Revenue(ctx context.Context, providerID uuid.UUID, from, to *time.Time) (*models.RevenueSummary, *ServiceError)
	Profits(ctx context.Context, providerID uuid.UUID, from, to *time.Time) (*models.RevenueSummary, *ServiceError)
	// InvoicePDF renders the revenue summary and its sold lines as a PDF.
	InvoicePDF(ctx context.Context, req *models.GeneratePDFRequest) ([]byte, string, *ServiceError)
	ListProviders(ctx context.Context, page, limit int) ([]models.ProviderSummary, int64, *ServiceError)
}

type reportService struct {
	reports           repository.ReportRepository
	users             repository.UserRepository
	commissionPercent int
	now               func() time.Time
	logger            *zap.Logger
}

func NewReportService(reports repository.ReportRepository, users repository.UserRepository, commissionPercent int, logger *zap.Logger) ReportService {
	return &reportService{
		reports:           reports,
		users:             users,
		commissionPercent: commissionPercent,
		now:               time.Now,
		logger:            logger,
	}
}

// BuildRevenueSummary totals sold lines into gross revenue, commission and
// payout with a per-month breakdown in ascending month order.
func BuildRevenueSummary(lines []models.RevenueLine, commissionPercent int) models.RevenueSummary {
	summary := models.RevenueSummary{
		CommissionPercent: commissionPercent,
		IndividualRevenue: decimal.Zero,
		GroupRevenue:      decimal.Zero,
	}
	months := make(map[string]decimal.Decimal)

	for _, line := range lines {
		amount := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		if line.Group {
			summary.GroupRevenue = summary.GroupRevenue.Add(amount)
			summary.GroupItemCount++
		} else {
			summary.IndividualRevenue = summary.IndividualRevenue.Add(amount)
		}
		key := line.SoldAt.UTC().Format("2006-01")
		months[key] = months[key].Add(amount)
	}

	summary.GrossRevenue = summary.IndividualRevenue.Add(summary.GroupRevenue)
	summary.Commission = summary.GrossRevenue.
		Mul(decimal.NewFromInt(int64(commissionPercent))).
		Div(decimal.NewFromInt(100)).
		Round(2)
	summary.NetPayout = summary.GrossRevenue.Sub(summary.Commission)

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		summary.Monthly = append(summary.Monthly, models.MonthlyRevenue{Month: k, Revenue: months[k]})
	}
	return summary
}

func (s *reportService) summarize(ctx context.Context, providerID uuid.UUID, from, to *time.Time) (*models.RevenueSummary, []models.RevenueLine, *ServiceError) {
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, badRequest("'from' must be before 'to'")
	}

	provider, err := s.users.FindByID(ctx, providerID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, notFound("Provider not found")
		}
		s.logger.Error("Failed to load provider", zap.Error(err))
		return nil, nil, internalError()
	}
	if provider.Role != models.RoleProvider {
		return nil, nil, notFound("Provider not found")
	}

	lines, err := s.reports.RevenueLines(ctx, providerID, from, to)
	if err != nil {
		s.logger.Error("Failed to load revenue lines", zap.String("provider_id", providerID.String()), zap.Error(err))
		return nil, nil, internalError()
	}
	orders, err := s.reports.CountOrders(ctx, providerID, from, to)
	if err != nil {
		s.logger.Error("Failed to count orders", zap.String("provider_id", providerID.String()), zap.Error(err))
		return nil, nil, internalError()
	}

	summary := BuildRevenueSummary(lines, s.commissionPercent)
	summary.ProviderID = providerID
	summary.ProviderName = provider.Name
	summary.StoreName = provider.StoreName
	summary.From = from
	summary.To = to
	summary.OrderCount = orders
	return &summary, lines, nil
}

// Revenue is the provider's own view; commission fields are included so the
// provider sees the expected payout.
func (s *reportService) Revenue(ctx context.Context, providerID uuid.UUID, from, to *time.Time) (*models.RevenueSummary, *ServiceError) {
	summary, _, svcErr := s.summarize(ctx, providerID, from, to)
	return summary, svcErr
}

func (s *reportService) Profits(ctx context.Context, providerID uuid.UUID, from, to *time.Time) (*models.RevenueSummary, *ServiceError) {
	summary, _, svcErr := s.summarize(ctx, providerID, from, to)
	return summary, svcErr
}

func (s *reportService) InvoicePDF(ctx context.Context, req *models.GeneratePDFRequest) ([]byte, string, *ServiceError) {
	summary, lines, svcErr := s.summarize(ctx, req.ProviderID, req.From, req.To)
	if svcErr != nil {
		return nil, "", svcErr
	}

	var buf bytes.Buffer
	if err := RenderInvoice(&buf, summary, lines, s.now()); err != nil {
		s.logger.Error("Failed to render invoice", zap.String("provider_id", req.ProviderID.String()), zap.Error(err))
		return nil, "", internalError()
	}
	filename := fmt.Sprintf("invoice-%s-%s.pdf", req.ProviderID.String()[:8], s.now().Format("20060102"))
	return buf.Bytes(), filename, nil
}

func (s *reportService) ListProviders(ctx context.Context, page, limit int) ([]models.ProviderSummary, int64, *ServiceError) {
	providers, total, err := s.users.ListProviders(ctx, page, limit)
	if err != nil {
		s.logger.Error("Failed to list providers", zap.Error(err))
		return nil, 0, internalError()
	}
	return providers, total, nil
}
