package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kardan-dev/kardan-api/internal/models"
	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
	"github.com/kardan-dev/kardan-api/pkg/logger"
	"github.com/kardan-dev/kardan-api/pkg/metrics"
	"github.com/kardan-dev/kardan-api/pkg/sheets"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LeadSheetHeader is the canonical header row of every daily lead tab
var LeadSheetHeader = []string{
	"TimestampISO",
	"ClientName",
	"IsCompany",
	"CompanyName",
	"Industry",
	"ServiceType",
	"OtherService",
	"Phone",
	"Email",
	"Country",
	"State",
	"City",
	"Message",
}

// TimestampLayout is how submission times are stored in column A (UTC, millisecond precision)
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// timestampInputLayouts are accepted for caller-supplied timestamps
var timestampInputLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// LeadLogRepository appends lead rows to a per-day tab of a Google spreadsheet.
// Tabs are created on demand with a frozen header row.
type LeadLogRepository struct {
	api      sheets.API
	location *time.Location
	now      func() time.Time
	tabs     singleflight.Group
	// lastFailed holds the outcome of the most recent AppendRow
	lastFailed atomic.Bool
}

var _ LeadLogDataSource = (*LeadLogRepository)(nil)

// NewLeadLogRepository creates a repository writing through api. Tab dates are
// computed in loc (UTC when nil).
func NewLeadLogRepository(api sheets.API, loc *time.Location) *LeadLogRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &LeadLogRepository{
		api:      api,
		location: loc,
		now:      time.Now,
	}
}

// Append writes one validated lead to the tab for its submission day
func (r *LeadLogRepository) Append(ctx context.Context, record models.LeadRecord) error {
	return r.AppendRow(ctx, LeadRow(record))
}

// AppendRow writes a raw row. values[0] may hold a timestamp; when it parses,
// it picks the tab and is stored normalized, otherwise the current time is used.
// Short rows are padded and long rows truncated to the header width.
func (r *LeadLogRepository) AppendRow(ctx context.Context, values []string) error {
	err := r.appendRow(ctx, values)
	r.lastFailed.Store(err != nil)
	return err
}

// Healthy is false while the most recent write failed. A fresh repository is healthy.
func (r *LeadLogRepository) Healthy() bool {
	return !r.lastFailed.Load()
}

func (r *LeadLogRepository) appendRow(ctx context.Context, values []string) error {
	if r.api == nil {
		return apperrors.MissingConfig("GOOGLE_SHEETS_SPREADSHEET_ID")
	}

	submittedAt := r.now()
	if len(values) > 0 {
		if ts, ok := ParseTimestamp(values[0]); ok {
			submittedAt = ts
		}
	}

	row := make([]string, len(LeadSheetHeader))
	copy(row, values)
	row[0] = FormatTimestamp(submittedAt)

	title := DailyTabTitle(submittedAt, r.location)
	if err := r.ensureTab(ctx, title); err != nil {
		logger.Error("Failed to prepare lead tab", zap.String("tab", title), zap.Error(err))
		return sheetWriteError("ensureTab", err)
	}

	if err := r.api.AppendRows(ctx, title+"!"+headerColumns(), [][]string{row}); err != nil {
		logger.Error("Failed to append lead row", zap.String("tab", title), zap.Error(err))
		return sheetWriteError("appendRows", err)
	}

	logger.Info("Lead row appended", zap.String("tab", title))
	return nil
}

// ensureTab makes sure title exists with the canonical header. Concurrent
// callers for the same title share one call.
func (r *LeadLogRepository) ensureTab(ctx context.Context, title string) error {
	_, err, _ := r.tabs.Do(title, func() (interface{}, error) {
		// a shared call must not fail for every waiter because the first caller went away
		return nil, r.ensureTabOnce(context.WithoutCancel(ctx), title)
	})
	return err
}

func (r *LeadLogRepository) ensureTabOnce(ctx context.Context, title string) error {
	tab, found, err := r.findTab(ctx, title)
	if err != nil {
		return err
	}

	if !found {
		tab, err = r.api.AddTab(ctx, title, 1)
		switch {
		case err == nil:
			if err := r.api.UpdateRange(ctx, headerRange(title, len(LeadSheetHeader)), [][]string{LeadSheetHeader}); err != nil {
				return err
			}
			metrics.SheetTabsCreated.Inc()
			logger.Info("Created daily lead tab", zap.String("tab", title))
			return nil
		case errors.Is(err, sheets.ErrTabExists):
			// another instance created it between our read and our add
			tab, found, err = r.findTab(ctx, title)
			if err != nil {
				return err
			}
			if !found {
				return apperrors.ExternalService("google_sheets", "addTab", apperrors.CodeSheetWriteFailed,
					fmt.Errorf("tab %q reported as existing but not listed", title))
			}
		default:
			return err
		}
	}

	return r.repairHeader(ctx, tab)
}

func (r *LeadLogRepository) findTab(ctx context.Context, title string) (sheets.Tab, bool, error) {
	tabs, err := r.api.ListTabs(ctx)
	if err != nil {
		return sheets.Tab{}, false, err
	}
	for _, t := range tabs {
		if t.Title == title {
			return t, true, nil
		}
	}
	return sheets.Tab{}, false, nil
}

// repairHeader rewrites row 1 when it differs from LeadSheetHeader in any value or in length
func (r *LeadLogRepository) repairHeader(ctx context.Context, tab sheets.Tab) error {
	rows, err := r.api.ReadRange(ctx, tab.Title+"!1:1")
	if err != nil {
		return err
	}
	var current []string
	if len(rows) > 0 {
		current = rows[0]
	}
	if headerMatches(current) {
		return nil
	}

	// blank out any extra trailing cells so the next read matches
	width := max(len(current), len(LeadSheetHeader))
	header := make([]string, width)
	copy(header, LeadSheetHeader)

	if err := r.api.UpdateRange(ctx, headerRange(tab.Title, width), [][]string{header}); err != nil {
		return err
	}
	if err := r.api.SetFrozenRows(ctx, tab.ID, 1); err != nil {
		return err
	}

	metrics.SheetHeaderRepairs.Inc()
	logger.Warn("Repaired lead tab header", zap.String("tab", tab.Title), zap.Strings("found", current))
	return nil
}

// sheetWriteError gives errors that carry no public code the sheet_write_failed code
func sheetWriteError(operation string, err error) error {
	var ext *apperrors.ExternalServiceError
	if errors.As(err, &ext) || errors.Is(err, apperrors.ErrConfiguration) {
		return err
	}
	return apperrors.ExternalService("google_sheets", operation, apperrors.CodeSheetWriteFailed, err)
}

// headerMatches reports whether row is the canonical header, ignoring surrounding whitespace in cells
func headerMatches(row []string) bool {
	if len(row) != len(LeadSheetHeader) {
		return false
	}
	for i, v := range LeadSheetHeader {
		if strings.TrimSpace(row[i]) != v {
			return false
		}
	}
	return true
}

func headerRange(title string, width int) string {
	return title + "!A1:" + sheets.ColumnName(width) + "1"
}

func headerColumns() string {
	return "A:" + sheets.ColumnName(len(LeadSheetHeader))
}

// LeadRow projects a record onto the header columns
func LeadRow(record models.LeadRecord) []string {
	timestamp := ""
	if !record.SubmittedAt().IsZero() {
		timestamp = FormatTimestamp(record.SubmittedAt())
	}
	return []string{
		timestamp,
		record.ClientName(),
		strconv.FormatBool(record.IsCompany()),
		record.CompanyName(),
		record.Industry(),
		record.ServiceType(),
		record.OtherService(),
		record.Phone(),
		record.Email(),
		record.Country(),
		record.State(),
		record.City(),
		record.Message(),
	}
}

// DailyTabTitle names the tab for t's calendar date in loc, e.g. leads_2025_01_02
func DailyTabTitle(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return fmt.Sprintf("leads_%04d_%02d_%02d", y, int(m), d)
}

// FormatTimestamp renders t in the stored column-A format
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts the stored format and common ISO-8601 variants.
// Values without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
