package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/kardan-dev/kardan-api/internal/models"
	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
	"github.com/kardan-dev/kardan-api/pkg/sheets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTab struct {
	id     int64
	rows   [][]string
	frozen int64
}

// fakeSpreadsheet is an in-memory sheets.API shared by any number of repositories
type fakeSpreadsheet struct {
	mu     sync.Mutex
	tabs   map[string]*fakeTab
	order  []string
	nextID int64

	addCalls    int
	headerCalls int

	appendErr error
	// afterList runs once ListTabs has computed its answer, outside the lock
	afterList func()
}

var _ sheets.API = (*fakeSpreadsheet)(nil)

func newFakeSpreadsheet() *fakeSpreadsheet {
	return &fakeSpreadsheet{tabs: map[string]*fakeTab{}, nextID: 100}
}

func splitRange(a1 string) (string, string) {
	title, cells, _ := strings.Cut(a1, "!")
	return title, cells
}

func (f *fakeSpreadsheet) ListTabs(_ context.Context) ([]sheets.Tab, error) {
	f.mu.Lock()
	tabs := make([]sheets.Tab, 0, len(f.order))
	for _, title := range f.order {
		tabs = append(tabs, sheets.Tab{ID: f.tabs[title].id, Title: title})
	}
	hook := f.afterList
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return tabs, nil
}

func (f *fakeSpreadsheet) AddTab(_ context.Context, title string, frozenRows int64) (sheets.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.addCalls++
	if _, ok := f.tabs[title]; ok {
		return sheets.Tab{}, fmt.Errorf("add tab %q: %w", title, sheets.ErrTabExists)
	}
	f.nextID++
	f.tabs[title] = &fakeTab{id: f.nextID, frozen: frozenRows}
	f.order = append(f.order, title)
	return sheets.Tab{ID: f.nextID, Title: title}, nil
}

func (f *fakeSpreadsheet) ReadRange(_ context.Context, a1 string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	title, _ := splitRange(a1)
	tab, ok := f.tabs[title]
	if !ok {
		return nil, fmt.Errorf("unable to parse range: %s", a1)
	}
	if len(tab.rows) == 0 {
		return nil, nil
	}
	// the API drops trailing empty cells
	row := tab.rows[0]
	for len(row) > 0 && row[len(row)-1] == "" {
		row = row[:len(row)-1]
	}
	return [][]string{append([]string(nil), row...)}, nil
}

func (f *fakeSpreadsheet) UpdateRange(_ context.Context, a1 string, rows [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	title, cells := splitRange(a1)
	tab, ok := f.tabs[title]
	if !ok {
		return fmt.Errorf("unable to parse range: %s", a1)
	}
	if !strings.HasPrefix(cells, "A1:") {
		return fmt.Errorf("unexpected update range %s", a1)
	}
	f.headerCalls++
	if len(tab.rows) == 0 {
		tab.rows = append(tab.rows, nil)
	}
	tab.rows[0] = append([]string(nil), rows[0]...)
	return nil
}

func (f *fakeSpreadsheet) SetFrozenRows(_ context.Context, sheetID, rows int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, tab := range f.tabs {
		if tab.id == sheetID {
			tab.frozen = rows
			return nil
		}
	}
	return fmt.Errorf("no sheet with id %d", sheetID)
}

func (f *fakeSpreadsheet) AppendRows(_ context.Context, a1 string, rows [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.appendErr != nil {
		return f.appendErr
	}
	title, _ := splitRange(a1)
	tab, ok := f.tabs[title]
	if !ok {
		return fmt.Errorf("unable to parse range: %s", a1)
	}
	if len(tab.rows) == 0 {
		tab.rows = append(tab.rows, nil)
	}
	for _, row := range rows {
		tab.rows = append(tab.rows, append([]string(nil), row...))
	}
	return nil
}

// seed creates a tab directly, bypassing the repository
func (f *fakeSpreadsheet) seed(title string, rows ...[]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.tabs[title] = &fakeTab{id: f.nextID, rows: rows}
	f.order = append(f.order, title)
}

func (f *fakeSpreadsheet) tab(title string) *fakeTab {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tabs[title]
}

func testRecord(submittedAt time.Time) models.LeadRecord {
	return models.NewLeadRecord(models.LeadFields{
		ClientName:  "Jo",
		IsCompany:   true,
		CompanyName: "Acme",
		Industry:    "Technology",
		ServiceType: "Landing page",
		Phone:       "+1 555 0100",
		Email:       "jo@x.com",
		Country:     "US",
		State:       "CA",
		City:        "Oakland",
		Message:     "Hello",
		SubmittedAt: submittedAt,
	})
}

func TestLeadLogRepository_Append_CreatesTabWithHeader(t *testing.T) {
	sheet := newFakeSpreadsheet()
	repo := NewLeadLogRepository(sheet, time.UTC)
	at := time.Date(2025, 1, 2, 15, 4, 5, 123_000_000, time.UTC)

	require.NoError(t, repo.Append(context.Background(), testRecord(at)))

	tab := sheet.tab("leads_2025_01_02")
	require.NotNil(t, tab)
	assert.Equal(t, int64(1), tab.frozen)
	require.Len(t, tab.rows, 2)
	assert.Equal(t, LeadSheetHeader, tab.rows[0])
	assert.Equal(t, []string{
		"2025-01-02T15:04:05.123Z", "Jo", "true", "Acme", "Technology", "Landing page", "",
		"+1 555 0100", "jo@x.com", "US", "CA", "Oakland", "Hello",
	}, tab.rows[1])
}

func TestLeadLogRepository_Append_IsIdempotentOnTabSetup(t *testing.T) {
	sheet := newFakeSpreadsheet()
	repo := NewLeadLogRepository(sheet, time.UTC)
	at := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Append(context.Background(), testRecord(at.Add(time.Duration(i)*time.Minute))))
	}

	assert.Equal(t, 1, sheet.addCalls)
	assert.Equal(t, 1, sheet.headerCalls)
	assert.Len(t, sheet.tab("leads_2025_01_02").rows, 4)
}

func TestLeadLogRepository_Append_UsesConfiguredTimeZone(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	sheet := newFakeSpreadsheet()
	repo := NewLeadLogRepository(sheet, loc)

	// 03:00 UTC on the 2nd is still the 1st in Los Angeles
	at := time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(context.Background(), testRecord(at)))

	tab := sheet.tab("leads_2025_01_01")
	require.NotNil(t, tab)
	assert.Equal(t, "2025-01-02T03:00:00.000Z", tab.rows[1][0])
}

func TestLeadLogRepository_AppendRow_NormalizesTimestampAndWidth(t *testing.T) {
	sheet := newFakeSpreadsheet()
	repo := NewLeadLogRepository(sheet, time.UTC)

	require.NoError(t, repo.AppendRow(context.Background(), []string{"2025-03-04T10:11:12+02:00", "Jo"}))

	tab := sheet.tab("leads_2025_03_04")
	require.NotNil(t, tab)
	row := tab.rows[1]
	assert.Len(t, row, len(LeadSheetHeader))
	assert.Equal(t, "2025-03-04T08:11:12.000Z", row[0])
	assert.Equal(t, "Jo", row[1])
	assert.Equal(t, "", row[12])
}

func TestLeadLogRepository_AppendRow_TruncatesLongRows(t *testing.T) {
	sheet := newFakeSpreadsheet()
	repo := NewLeadLogRepository(sheet, time.UTC)
	values := make([]string, 20)
	values[0] = "2025-03-04T00:00:00.000Z"
	values[19] = "overflow"

	require.NoError(t, repo.AppendRow(context.Background(), values))

	assert.Len(t, sheet.tab("leads_2025_03_04").rows[1], len(LeadSheetHeader))
}

func TestLeadLogRepository_AppendRow_UnparseableTimestampUsesNow(t *testing.T) {
	sheet := newFakeSpreadsheet()
	repo := NewLeadLogRepository(sheet, time.UTC)
	repo.now = func() time.Time { return time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC) }

	require.NoError(t, repo.AppendRow(context.Background(), []string{"yesterday-ish", "Jo"}))

	tab := sheet.tab("leads_2025_06_07")
	require.NotNil(t, tab)
	assert.Equal(t, "2025-06-07T08:09:10.000Z", tab.rows[1][0])
}

func TestLeadLogRepository_RepairsMismatchedHeader(t *testing.T) {
	tests := []struct {
		name   string
		header []string
	}{
		{name: "missing", header: nil},
		{name: "short", header: []string{"TimestampISO", "ClientName"}},
		{name: "renamed column", header: append(append([]string{}, LeadSheetHeader[:12]...), "Notes")},
		{name: "extra column", header: append(append([]string{}, LeadSheetHeader...), "Extra")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := newFakeSpreadsheet()
			if tt.header == nil {
				sheet.seed("leads_2025_01_02")
			} else {
				sheet.seed("leads_2025_01_02", tt.header)
			}
			repo := NewLeadLogRepository(sheet, time.UTC)

			require.NoError(t, repo.Append(context.Background(), testRecord(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))))

			rows, err := sheet.ReadRange(context.Background(), "leads_2025_01_02!1:1")
			require.NoError(t, err)
			assert.Equal(t, LeadSheetHeader, rows[0])
			assert.Equal(t, int64(1), sheet.tab("leads_2025_01_02").frozen)
			assert.Equal(t, 0, sheet.addCalls)

			// a second append sees a matching header and leaves it alone
			calls := sheet.headerCalls
			require.NoError(t, repo.Append(context.Background(), testRecord(time.Date(2025, 1, 2, 1, 0, 0, 0, time.UTC))))
			assert.Equal(t, calls, sheet.headerCalls)
		})
	}
}

func TestLeadLogRepository_ExactHeaderIsNotRewritten(t *testing.T) {
	sheet := newFakeSpreadsheet()
	sheet.seed("leads_2025_01_02", LeadSheetHeader)
	repo := NewLeadLogRepository(sheet, time.UTC)

	require.NoError(t, repo.Append(context.Background(), testRecord(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))))

	assert.Equal(t, 0, sheet.headerCalls)
	assert.Len(t, sheet.tab("leads_2025_01_02").rows, 2)
}

func TestLeadLogRepository_HeaderWithPaddedCellsIsNotRewritten(t *testing.T) {
	header := append([]string(nil), LeadSheetHeader...)
	header[1] = "ClientName "
	header[12] = "  Message"
	sheet := newFakeSpreadsheet()
	sheet.seed("leads_2025_01_02", header)
	repo := NewLeadLogRepository(sheet, time.UTC)

	require.NoError(t, repo.Append(context.Background(), testRecord(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))))

	assert.Equal(t, 0, sheet.headerCalls)
	assert.Equal(t, header, sheet.tab("leads_2025_01_02").rows[0])
}

func TestLeadLogRepository_ConcurrentAppendsShareOneTab(t *testing.T) {
	sheet := newFakeSpreadsheet()
	repo := NewLeadLogRepository(sheet, time.UTC)
	at := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.Append(context.Background(), testRecord(at.Add(time.Duration(i)*time.Second)))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, sheet.order, 1)
	assert.Len(t, sheet.tab("leads_2025_01_02").rows, writers+1)
	assert.Equal(t, LeadSheetHeader, sheet.tab("leads_2025_01_02").rows[0])
}

func TestLeadLogRepository_RaceAcrossInstancesRecoversFromTabExists(t *testing.T) {
	sheet := newFakeSpreadsheet()

	// hold the first two listings until both writers have seen "no tab"
	var listed sync.WaitGroup
	listed.Add(2)
	var calls atomic.Int32
	sheet.afterList = func() {
		if calls.Add(1) <= 2 {
			listed.Done()
			listed.Wait()
		}
	}

	first := NewLeadLogRepository(sheet, time.UTC)
	second := NewLeadLogRepository(sheet, time.UTC)
	at := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, repo := range []*LeadLogRepository{first, second} {
		wg.Add(1)
		go func(i int, repo *LeadLogRepository) {
			defer wg.Done()
			errs[i] = repo.Append(context.Background(), testRecord(at))
		}(i, repo)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 2, sheet.addCalls)
	assert.Len(t, sheet.order, 1)

	tab := sheet.tab("leads_2025_01_02")
	assert.Equal(t, LeadSheetHeader, tab.rows[0])
	assert.Len(t, tab.rows, 3)
}

func TestLeadLogRepository_AppendFailureCarriesSheetCode(t *testing.T) {
	sheet := newFakeSpreadsheet()
	sheet.appendErr = errors.New("quota exceeded")
	repo := NewLeadLogRepository(sheet, time.UTC)

	err := repo.Append(context.Background(), testRecord(time.Now()))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExternalService)
	assert.Equal(t, apperrors.CodeSheetWriteFailed, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestLeadLogRepository_HealthyTracksLatestWrite(t *testing.T) {
	sheet := newFakeSpreadsheet()
	repo := NewLeadLogRepository(sheet, time.UTC)
	assert.True(t, repo.Healthy())

	sheet.appendErr = errors.New("quota exceeded")
	require.Error(t, repo.Append(context.Background(), testRecord(time.Now())))
	assert.False(t, repo.Healthy())

	sheet.appendErr = nil
	require.NoError(t, repo.Append(context.Background(), testRecord(time.Now())))
	assert.True(t, repo.Healthy())
}

func TestLeadLogRepository_NilAPIIsConfigurationError(t *testing.T) {
	repo := NewLeadLogRepository(nil, nil)

	err := repo.Append(context.Background(), testRecord(time.Now()))

	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	assert.Equal(t, apperrors.CodeConfiguration, apperrors.CodeOf(err))
}

func TestLeadRow_IndividualLead(t *testing.T) {
	record := models.NewLeadRecord(models.LeadFields{
		ClientName:   "Jo",
		CompanyName:  "ignored",
		Industry:     "Other",
		ServiceType:  "Other",
		OtherService: "Data audit",
		Email:        "jo@x.com",
	})

	row := LeadRow(record)

	assert.Len(t, row, len(LeadSheetHeader))
	assert.Equal(t, "", row[0])
	assert.Equal(t, "false", row[2])
	assert.Equal(t, "", row[3])
	assert.Equal(t, "Data audit", row[6])
}

func TestDailyTabTitle(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	at := time.Date(2024, 12, 31, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "leads_2024_12_31", DailyTabTitle(at, time.UTC))
	assert.Equal(t, "leads_2025_01_01", DailyTabTitle(at, tokyo))
	assert.Equal(t, "leads_2024_12_31", DailyTabTitle(at, nil))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "2025-01-02T15:04:05.123Z", want: "2025-01-02T15:04:05.123Z", ok: true},
		{in: "2025-01-02T15:04:05Z", want: "2025-01-02T15:04:05.000Z", ok: true},
		{in: "2025-01-02T17:04:05+02:00", want: "2025-01-02T15:04:05.000Z", ok: true},
		{in: "2025-01-02", want: "2025-01-02T00:00:00.000Z", ok: true},
		{in: "", ok: false},
		{in: "not a date", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, FormatTimestamp(got))
			}
		})
	}
}
