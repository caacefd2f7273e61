package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"marketplace-service/config"
	"marketplace-service/database"
	"marketplace-service/models"
	"marketplace-service/repository"
	"marketplace-service/services"
)

func main() {
	var providerFlag, fromFlag, toFlag string
	flag.StringVar(&providerFlag, "provider", "", "provider id; omit to summarise every provider")
	flag.StringVar(&fromFlag, "from", "", "start date (YYYY-MM-DD, inclusive)")
	flag.StringVar(&toFlag, "to", "", "end date (YYYY-MM-DD, inclusive)")
	flag.Parse()

	from, err := parseDate(fromFlag, false)
	if err != nil {
		log.Fatalf("invalid -from: %v", err)
	}
	to, err := parseDate(toFlag, true)
	if err != nil {
		log.Fatalf("invalid -to: %v", err)
	}

	ctx := context.Background()
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := database.Connect(cfg, zap.NewNop())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close(db)

	users := repository.NewGormUserRepository(db)
	reports := services.NewReportService(repository.NewGormReportRepository(db), users, cfg.CommissionPercent, zap.NewNop())

	if providerFlag != "" {
		id, err := uuid.Parse(providerFlag)
		if err != nil {
			log.Fatalf("invalid -provider: %v", err)
		}
		summary, svcErr := reports.Profits(ctx, id, from, to)
		if svcErr != nil {
			log.Fatalf("report: %s", svcErr.Message)
		}
		if err := renderMonthly(os.Stdout, summary); err != nil {
			log.Fatalf("render: %v", err)
		}
		return
	}

	var summaries []models.RevenueSummary
	for page := 1; ; page++ {
		providers, total, svcErr := reports.ListProviders(ctx, page, 100)
		if svcErr != nil {
			log.Fatalf("list providers: %s", svcErr.Message)
		}
		for _, p := range providers {
			summary, svcErr := reports.Profits(ctx, p.ID, from, to)
			if svcErr != nil {
				log.Fatalf("report %s: %s", p.ID, svcErr.Message)
			}
			summaries = append(summaries, *summary)
		}
		if int64(page*100) >= total {
			break
		}
	}
	if err := renderProviders(os.Stdout, summaries); err != nil {
		log.Fatalf("render: %v", err)
	}
}

func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

func renderProviders(w io.Writer, summaries []models.RevenueSummary) error {
	table := tablewriter.NewWriter(w)
	table.Header("Provider", "Store", "Orders", "Group items", "Gross", "Commission", "Payout")
	for _, s := range summaries {
		if err := table.Append(
			s.ProviderName,
			s.StoreName,
			fmt.Sprintf("%d", s.OrderCount),
			fmt.Sprintf("%d", s.GroupItemCount),
			s.GrossRevenue.StringFixed(2),
			s.Commission.StringFixed(2),
			s.NetPayout.StringFixed(2),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderMonthly(w io.Writer, s *models.RevenueSummary) error {
	fmt.Fprintf(w, "%s: gross %s, commission %s (%d%%), payout %s\n",
		s.ProviderName, s.GrossRevenue.StringFixed(2), s.Commission.StringFixed(2),
		s.CommissionPercent, s.NetPayout.StringFixed(2))

	table := tablewriter.NewWriter(w)
	table.Header("Month", "Revenue")
	for _, m := range s.Monthly {
		if err := table.Append(m.Month, m.Revenue.StringFixed(2)); err != nil {
			return err
		}
	}
	return table.Render()
}
