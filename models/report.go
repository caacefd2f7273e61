package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RevenueSummary aggregates a provider's paid sales over a period.
type RevenueSummary struct {
	ProviderID        uuid.UUID        `json:"provider_id"`
	ProviderName      string           `json:"provider_name"`
	StoreName         string           `json:"store_name,omitempty"`
	From              *time.Time       `json:"from,omitempty"`
	To                *time.Time       `json:"to,omitempty"`
	OrderCount        int64            `json:"order_count"`
	GroupItemCount    int64            `json:"group_item_count"`
	IndividualRevenue decimal.Decimal  `json:"individual_revenue"`
	GroupRevenue      decimal.Decimal  `json:"group_revenue"`
	GrossRevenue      decimal.Decimal  `json:"gross_revenue"`
	CommissionPercent int              `json:"commission_percent"`
	Commission        decimal.Decimal  `json:"commission"`
	NetPayout         decimal.Decimal  `json:"net_payout"`
	Monthly           []MonthlyRevenue `json:"monthly,omitempty"`
}

type MonthlyRevenue struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

// RevenueLine is one sold line used to build summaries and invoices.
type RevenueLine struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	SoldAt      time.Time
	Group       bool
}

type GeneratePDFRequest struct {
	ProviderID uuid.UUID  `json:"provider_id" binding:"required"`
	From       *time.Time `json:"from"`
	To         *time.Time `json:"to"`
}
