package services_test

import (
	"time"

	"github.com/kardan-dev/kardan-api/config"
	"github.com/kardan-dev/kardan-api/internal/models"
	"github.com/kardan-dev/kardan-api/pkg/logger"
)

func init() {
	// Initialize logger for tests
	if err := logger.Initialize(logger.Config{
		Level:       "debug",
		Environment: "development",
	}); err != nil {
		panic(err)
	}
}

func ptr[T any](v T) *T { return &v }

func testConfig(loc *time.Location) *config.Config {
	return &config.Config{
		Sheets: config.SheetsConfig{Location: loc},
		Email:  config.EmailConfig{NotifyTo: "ops@kardan.dev"},
		Site:   config.SiteConfig{URL: "https://www.kardan.dev/"},
	}
}

// scenarioSubmission is a complete company lead for "Other" services
func scenarioSubmission() *models.LeadSubmission {
	return &models.LeadSubmission{
		ClientName:   ptr("Ana Ruiz"),
		IsCompany:    ptr(true),
		CompanyName:  ptr("Acme"),
		Industry:     ptr("E-commerce"),
		ServiceType:  ptr("Other"),
		OtherService: ptr("Inventory sync"),
		Phone:        ptr("+1 555 0100"),
		Email:        ptr("ana@acme.io"),
		Country:      ptr("USA"),
		State:        ptr("CA"),
		City:         ptr("San Diego"),
		Message:      ptr("Need a quote"),
	}
}

func scenarioRecord(submittedAt time.Time) models.LeadRecord {
	return models.NewLeadRecord(models.LeadFields{
		Reference:    "ref-1",
		ClientName:   "Ana Ruiz",
		IsCompany:    true,
		CompanyName:  "Acme",
		Industry:     "E-commerce",
		ServiceType:  "Other",
		OtherService: "Inventory sync",
		Phone:        "+1 555 0100",
		Email:        "ana@acme.io",
		Country:      "USA",
		State:        "CA",
		City:         "San Diego",
		Message:      "Need a quote",
		SubmittedAt:  submittedAt,
	})
}
