package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"studioledger/internal/finance"
	"studioledger/internal/sheets"
)

// Column layout of the export sheet. Row 1 holds the header.
var header = []any{
	"Project ID", "Customer", "Location", "Quoted", "Received",
	"Remaining", "Expenses", "Profit", "Margin %", "Health",
}

const lastColumn = "J"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// mu serialises find-then-write so concurrent upserts of different
	// projects never claim the same empty row.
	mu      sync.Mutex
	sheetID *int64
}

var _ sheets.SummaryWriter = (*Client)(nil)

// Config names the target spreadsheet and the service account used to reach
// it. CredentialsJSON wins over CredentialsFile when both are set.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	var creds goption.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials", "component", "sheets")
		creds = goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		slog.InfoContext(ctx, "Using service account credentials file", "component", "sheets", "path", cfg.CredentialsFile)
		creds = goption.WithCredentialsFile(cfg.CredentialsFile)
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx, creds, goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Projects"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func (c *Client) UpsertSummary(ctx context.Context, s finance.ProjectSummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if s.ProjectID == "" {
		return errors.New("summary has no project id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		if err := c.writeRow(ctx, 1, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		ids = [][]any{header[:1]}
	}

	row := findRow(ids, s.ProjectID)
	if row == 0 {
		row = len(ids) + 1
	}
	if err := c.writeRow(ctx, row, summaryRow(s)); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Upserted project row",
		"component", "sheets",
		"project_id", s.ProjectID,
		"sheet_row", row)
	return nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row := findRow(ids, id)
	if row == 0 {
		return nil
	}
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
					// The first sheet has id 0, which would otherwise be dropped.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", row, c.sheetName, err)
	}
	slog.DebugContext(ctx, "Deleted project row",
		"component", "sheets",
		"project_id", id,
		"sheet_row", row)
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) writeRow(ctx context.Context, row int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, lastColumn, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// resolveSheetID looks up the numeric id of the export tab once.
func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}

// summaryRow lays a summary out in column order. Amounts are plain decimal
// strings so USER_ENTERED parses them as numbers.
func summaryRow(s finance.ProjectSummary) []any {
	return []any{
		s.ProjectID,
		s.CustomerName,
		s.Location,
		s.QuotedPrice.String(),
		s.TotalPayments.String(),
		s.RemainingAmount.String(),
		s.TotalExpenses.String(),
		s.ProfitAmount.String(),
		s.ProfitMargin,
		string(s.Health),
	}
}

// findRow returns the 1-based sheet row whose first cell equals id, or 0.
// Row 1 is the header and never matches.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}
