// Package history persists one audit row per submitted report to a Google
// Sheets worksheet and reads prior rows back for the restore feature.
package history

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/sheets/v4"

	"github.com/careworks-jp/careform/report"
)

const (
	// Worksheet is the fixed tab name for the audit trail.
	Worksheet = "履歴"

	// MaxRecords caps the number of rows returned by a history lookup.
	MaxRecords = 10

	dateFormat      = "2006/01/02"
	timestampFormat = "2006/01/02 15:04:05"
)

// Header is the fixed 6-column worksheet schema: subject, report date,
// author, serialized items, narrative, write timestamp.
var Header = []string{"利用者名", "報告日", "記録者", "サービス提供記録", "特記事項", "記録日時"}

type Store struct {
	google        *sheets.Service
	spreadsheetId string
}

func NewStore(google *sheets.Service, spreadsheetId string) *Store {
	return &Store{
		google:        google,
		spreadsheetId: spreadsheetId,
	}
}

// EnsureHeader writes the column labels to the first row of the worksheet if
// (and only if) the first row is currently empty. Safe to call on every
// startup.
func (s *Store) EnsureHeader(ctx context.Context) error {
	area := fmt.Sprintf("%s!A1:F1", Worksheet)

	response, err := s.google.Spreadsheets.Values.Get(s.spreadsheetId, area).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to read header row (%w)", err)
	}

	if len(response.Values) > 0 {
		return nil
	}

	row := make([]interface{}, len(Header))
	for i, h := range Header {
		row[i] = h
	}

	rq := sheets.ValueRange{
		Range:  area,
		Values: [][]interface{}{row},
	}

	if _, err := s.google.Spreadsheets.Values.Update(s.spreadsheetId, area, &rq).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("unable to write header row (%w)", err)
	}

	return nil
}

// Append adds one row for the submitted record. The write timestamp is
// assigned here, not by the caller.
func (s *Store) Append(ctx context.Context, record report.Record) error {
	row, err := rowFromRecord(record, time.Now())
	if err != nil {
		return err
	}

	rq := sheets.ValueRange{
		Values: [][]interface{}{row},
	}

	if _, err := s.google.Spreadsheets.Values.Append(s.spreadsheetId, fmt.Sprintf("%s!A:F", Worksheet), &rq).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("unable to append history row (%w)", err)
	}

	return nil
}

// Fetch returns the stored records for a subject (exact match), most recent
// first, capped at MaxRecords. Rows whose item text does not decode yield a
// record with an empty item mapping rather than being dropped.
func (s *Store) Fetch(ctx context.Context, subject string) ([]report.Record, error) {
	response, err := s.google.Spreadsheets.Values.Get(s.spreadsheetId, fmt.Sprintf("%s!A2:F", Worksheet)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to read history rows (%w)", err)
	}

	return recordsForSubject(response.Values, subject), nil
}

func rowFromRecord(record report.Record, now time.Time) ([]interface{}, error) {
	items, err := report.EncodeItems(record.Items)
	if err != nil {
		return nil, err
	}

	return []interface{}{
		record.Subject,
		record.Date.Format(dateFormat),
		record.Author,
		items,
		record.Narrative,
		now.Format(timestampFormat),
	}, nil
}

func recordsForSubject(values [][]interface{}, subject string) []report.Record {
	matched := []report.Record{}

	for _, row := range values {
		if cell(row, 0) != subject {
			continue
		}

		record := report.Record{
			Subject:   subject,
			Author:    cell(row, 2),
			Items:     report.DecodeItems(cell(row, 3)),
			Narrative: cell(row, 4),
		}

		if date, err := time.ParseInLocation(dateFormat, cell(row, 1), time.Local); err == nil {
			record.Date = date
		}

		matched = append(matched, record)
	}

	// ... most recent first
	records := []report.Record{}
	for i := len(matched) - 1; i >= 0 && len(records) < MaxRecords; i-- {
		records = append(records, matched[i])
	}

	return records
}

func cell(row []interface{}, ix int) string {
	if ix >= len(row) {
		return ""
	}

	if v, ok := row[ix].(string); ok {
		return v
	}

	return fmt.Sprintf("%v", row[ix])
}
