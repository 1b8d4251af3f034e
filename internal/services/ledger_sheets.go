package services

import (
	"context"
	"fmt"

	"meishi-bot/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsLedger acrescenta uma linha por cartão na planilha configurada.
type SheetsLedger struct {
	service       *sheets.Service
	spreadsheetID string
	sheetRange    string
}

func NewSheetsLedger(ctx context.Context, credentialsJSON, spreadsheetID, sheetRange string, opts ...option.ClientOption) (*SheetsLedger, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("NewSheetsLedger: spreadsheetID cannot be empty")
	}
	if credentialsJSON != "" {
		opts = append(opts,
			option.WithCredentialsJSON([]byte(credentialsJSON)),
			option.WithScopes(sheets.SpreadsheetsScope),
		)
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets.NewService: %w", err)
	}

	return &SheetsLedger{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetRange:    sheetRange,
	}, nil
}

func (l *SheetsLedger) Append(ctx context.Context, row models.LedgerRow) error {
	values := row.Values()
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}

	_, err := l.service.Spreadsheets.Values.
		Append(l.spreadsheetID, l.sheetRange, &sheets.ValueRange{Values: [][]interface{}{cells}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row to spreadsheet: %w", err)
	}
	return nil
}
