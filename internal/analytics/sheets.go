package analytics

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSink appends one row per turn to a Google Sheets range.
type SheetsSink struct {
	service       *sheets.Service
	spreadsheetID string
	writeRange    string
}

// NewSheetsSink authenticates with a service-account credentials file.
func NewSheetsSink(ctx context.Context, credentialsFile, spreadsheetID, writeRange string) (*SheetsSink, error) {
	return NewSheetsSinkWithOptions(ctx, spreadsheetID, writeRange,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
}

func NewSheetsSinkWithOptions(ctx context.Context, spreadsheetID, writeRange string, opts ...option.ClientOption) (*SheetsSink, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service failed: %w", err)
	}
	if writeRange == "" {
		writeRange = "Data1!A:C"
	}
	return &SheetsSink{service: svc, spreadsheetID: spreadsheetID, writeRange: writeRange}, nil
}

func (s *SheetsSink) Record(ctx context.Context, ev TurnEvent) error {
	body := &sheets.ValueRange{Values: [][]interface{}{ev.Row()}}
	_, err := s.service.Spreadsheets.Values.
		Append(s.spreadsheetID, s.writeRange, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append sheets row failed: %w", err)
	}
	return nil
}
