package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
	"github.com/kardan-dev/kardan-api/pkg/logger"
	"github.com/kardan-dev/kardan-api/pkg/metrics"
	"github.com/kardan-dev/kardan-api/pkg/tracing"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const serviceName = "google_sheets"

// ErrTabExists is returned by AddTab when another writer created the title first
var ErrTabExists = errors.New("sheet tab already exists")

// Tab is one sheet (tab) inside the spreadsheet
type Tab struct {
	ID    int64
	Title string
}

// API is the subset of the Google Sheets API the lead log needs.
// All ranges are A1 notation including the tab title, e.g. "leads_2025_01_02!A1:M1".
type API interface {
	ListTabs(ctx context.Context) ([]Tab, error)
	AddTab(ctx context.Context, title string, frozenRows int64) (Tab, error)
	ReadRange(ctx context.Context, a1Range string) ([][]string, error)
	UpdateRange(ctx context.Context, a1Range string, rows [][]string) error
	SetFrozenRows(ctx context.Context, sheetID, rows int64) error
	AppendRows(ctx context.Context, a1Range string, rows [][]string) error
}

// Config holds the service-account credentials and target spreadsheet
type Config struct {
	SpreadsheetID string
	ClientEmail   string
	PrivateKey    string
	// HTTPClient is the base transport for token and API calls; optional.
	HTTPClient *http.Client
}

// Client is a Google Sheets client bound to a single spreadsheet
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string
}

var _ API = (*Client)(nil)

// NewClient authenticates with a service-account JWT and binds to cfg.SpreadsheetID.
// Missing configuration is reported before any network call.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, apperrors.MissingConfig("GOOGLE_SHEETS_SPREADSHEET_ID")
	}
	if cfg.ClientEmail == "" {
		return nil, apperrors.MissingConfig("GOOGLE_SHEETS_CLIENT_EMAIL")
	}
	if cfg.PrivateKey == "" {
		return nil, apperrors.MissingConfig("GOOGLE_SHEETS_PRIVATE_KEY")
	}

	jwtConfig := &jwt.Config{
		Email:      cfg.ClientEmail,
		PrivateKey: []byte(cfg.PrivateKey),
		Scopes:     []string{gsheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}

	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}

	return NewClientWithOptions(ctx, cfg.SpreadsheetID, option.WithHTTPClient(jwtConfig.Client(ctx)))
}

// NewClientWithOptions builds a client from raw API options (tests point it at a fake endpoint)
func NewClientWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	if spreadsheetID == "" {
		return nil, apperrors.MissingConfig("GOOGLE_SHEETS_SPREADSHEET_ID")
	}

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	logger.Info("Google Sheets client initialized", zap.String("spreadsheet_id", spreadsheetID))

	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// ListTabs returns every tab in the spreadsheet
func (c *Client) ListTabs(ctx context.Context) ([]Tab, error) {
	var tabs []Tab
	err := c.observe(ctx, "listTabs", func(ctx context.Context) error {
		resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
			Fields("sheets.properties(sheetId,title)").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		for _, s := range resp.Sheets {
			if s.Properties == nil {
				continue
			}
			tabs = append(tabs, Tab{ID: s.Properties.SheetId, Title: s.Properties.Title})
		}
		return nil
	})
	return tabs, err
}

// AddTab creates a tab with the given number of frozen rows.
// It returns ErrTabExists when the title is already taken.
func (c *Client) AddTab(ctx context.Context, title string, frozenRows int64) (Tab, error) {
	var tab Tab
	err := c.observe(ctx, "addTab", func(ctx context.Context) error {
		req := &gsheets.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheets.Request{{
				AddSheet: &gsheets.AddSheetRequest{
					Properties: &gsheets.SheetProperties{
						Title:          title,
						GridProperties: &gsheets.GridProperties{FrozenRowCount: frozenRows},
					},
				},
			}},
		}
		resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		if err != nil {
			if isDuplicateTitle(err) {
				return fmt.Errorf("add tab %q: %w", title, ErrTabExists)
			}
			return err
		}
		if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
			return fmt.Errorf("failed to create sheet tab %q: empty reply", title)
		}
		props := resp.Replies[0].AddSheet.Properties
		tab = Tab{ID: props.SheetId, Title: props.Title}
		return nil
	})
	return tab, err
}

// ReadRange returns the cell values of a range, rendered as strings
func (c *Client) ReadRange(ctx context.Context, a1Range string) ([][]string, error) {
	var rows [][]string
	err := c.observe(ctx, "readRange", func(ctx context.Context) error {
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, a1Range).Context(ctx).Do()
		if err != nil {
			return err
		}
		rows = make([][]string, 0, len(resp.Values))
		for _, raw := range resp.Values {
			row := make([]string, len(raw))
			for i, cell := range raw {
				if cell != nil {
					row[i] = fmt.Sprint(cell)
				}
			}
			rows = append(rows, row)
		}
		return nil
	})
	return rows, err
}

// UpdateRange overwrites a range with raw (unparsed) values
func (c *Client) UpdateRange(ctx context.Context, a1Range string, rows [][]string) error {
	return c.observe(ctx, "updateRange", func(ctx context.Context) error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1Range, valueRange(rows)).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	})
}

// SetFrozenRows sets the frozen row count of a tab
func (c *Client) SetFrozenRows(ctx context.Context, sheetID, rows int64) error {
	return c.observe(ctx, "setFrozenRows", func(ctx context.Context) error {
		req := &gsheets.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheets.Request{{
				UpdateSheetProperties: &gsheets.UpdateSheetPropertiesRequest{
					Properties: &gsheets.SheetProperties{
						SheetId:         sheetID,
						GridProperties:  &gsheets.GridProperties{FrozenRowCount: rows},
						ForceSendFields: []string{"SheetId"}, // the first tab has id 0
					},
					Fields: "gridProperties.frozenRowCount",
				},
			}},
		}
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		return err
	})
}

// AppendRows inserts rows after the last row of the table in a1Range; existing rows are never overwritten
func (c *Client) AppendRows(ctx context.Context, a1Range string, rows [][]string) error {
	return c.observe(ctx, "appendRows", func(ctx context.Context) error {
		_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, a1Range, valueRange(rows)).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return err
	})
}

// observe wraps one API call with a span, metrics and an API-call log line.
// Errors other than ErrTabExists come back as ExternalServiceError.
func (c *Client) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := tracing.StartClientSpan(ctx, serviceName, operation)

	err := fn(ctx)

	duration := metrics.MeasureDuration(start)
	status := metrics.StatusLabel(err)
	if errors.Is(err, ErrTabExists) {
		status = "conflict"
	}
	metrics.SheetsRequestDuration.WithLabelValues(operation, status).Observe(duration)
	metrics.SheetsRequestTotal.WithLabelValues(operation, status).Inc()

	if status == "conflict" {
		logger.Warn("Sheet tab already exists", zap.String("operation", operation), zap.Error(err))
		tracing.End(span, nil)
		return err
	}

	logger.LogAPICall(serviceName, operation, status, duration, zap.String("spreadsheet_id", c.spreadsheetID))
	tracing.End(span, err)

	return apperrors.ExternalService(serviceName, operation, apperrors.CodeSheetWriteFailed, err)
}

func valueRange(rows [][]string) *gsheets.ValueRange {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}
	return &gsheets.ValueRange{Values: values}
}

// isDuplicateTitle recognises the 400 the API returns for addSheet on a taken title
func isDuplicateTitle(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadRequest {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "already exists")
}

// ColumnName converts a 1-based column index to its A1 letters (1 -> A, 27 -> AA)
func ColumnName(n int) string {
	name := ""
	for n > 0 {
		m := (n - 1) % 26
		name = string(rune('A'+m)) + name
		n = (n - 1) / 26
	}
	return name
}
