package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
	ports "bilancio/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// valuesAPI is the subset of the Sheets values service used by the client.
type valuesAPI interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

type Client struct {
	values        valuesAPI
	spreadsheetID string
	incomeSheet   string
	expensesSheet string
}

var _ ports.LedgerExporter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: GOOGLE_INCOME_SHEET_NAME (default "Income"),
// GOOGLE_EXPENSES_SHEET_NAME (default "Expenses").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return newClient(serviceValues{svc: svc}, spreadsheetID,
		os.Getenv("GOOGLE_INCOME_SHEET_NAME"), os.Getenv("GOOGLE_EXPENSES_SHEET_NAME")), nil
}

func newClient(values valuesAPI, spreadsheetID, incomeSheet, expensesSheet string) *Client {
	incomeSheet = strings.TrimSpace(incomeSheet)
	if incomeSheet == "" {
		incomeSheet = "Income"
	}
	expensesSheet = strings.TrimSpace(expensesSheet)
	if expensesSheet == "" {
		expensesSheet = "Expenses"
	}
	return &Client{
		values:        values,
		spreadsheetID: spreadsheetID,
		incomeSheet:   incomeSheet,
		expensesSheet: expensesSheet,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportLedger rewrites the income and expenses sheets with the snapshot.
func (c *Client) ExportLedger(ctx context.Context, snap ledger.Snapshot) (string, error) {
	if c.values == nil {
		return "", errors.New("sheets service not initialized")
	}

	refs := make([]string, 0, 2)
	for _, part := range []struct {
		sheet   string
		entries []core.Entry
	}{
		{c.incomeSheet, snap.Income},
		{c.expensesSheet, snap.Expenses},
	} {
		ref, err := c.writeSheet(ctx, part.sheet, part.entries)
		if err != nil {
			return "", err
		}
		refs = append(refs, ref)
	}

	slog.InfoContext(ctx, "Ledger exported to Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		"income_rows", len(snap.Income),
		"expense_rows", len(snap.Expenses))

	return strings.Join(refs, ","), nil
}

func (c *Client) writeSheet(ctx context.Context, sheet string, entries []core.Entry) (string, error) {
	clearRange := fmt.Sprintf("%s!A:C", sheet)
	if err := c.values.Clear(ctx, c.spreadsheetID, clearRange); err != nil {
		return "", fmt.Errorf("failed to clear %s: %w", clearRange, err)
	}

	rows := ledgerRows(entries)
	rng := fmt.Sprintf("%s!A1:C%d", sheet, len(rows))
	if err := c.values.Update(ctx, c.spreadsheetID, rng, rows); err != nil {
		return "", fmt.Errorf("failed to update %s: %w", rng, err)
	}
	return rng, nil
}

// ledgerRows lays out a header, one row per entry and a total row.
func ledgerRows(entries []core.Entry) [][]any {
	rows := make([][]any, 0, len(entries)+2)
	rows = append(rows, []any{"ID", "Title", "Amount"})
	var total core.Money
	for _, e := range entries {
		rows = append(rows, []any{e.ID, e.Title, e.Amount.Float()})
		total = total.Add(e.Amount)
	}
	rows = append(rows, []any{"", "Total", total.Float()})
	return rows
}

// serviceValues adapts the generated Sheets service to valuesAPI.
type serviceValues struct {
	svc *gsheet.Service
}

func (s serviceValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s serviceValues) Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	vr := &gsheet.ValueRange{Values: rows}
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}
