package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"sponsor-portal/internal/application"
	"sponsor-portal/internal/domain"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	expirySheet  = "Expiries"
	summarySheet = "Summary"
)

// ExpiryWorkbook renders one row per worker with the expiry date, days left
// and urgency of every tracked document, plus a per-document summary sheet.
func ExpiryWorkbook(summaries []application.WorkerSummary, generated time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", expirySheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	header := []any{"Worker", "Department", "Visa type", "Status"}
	for _, doc := range domain.ExpiryDocuments {
		name := documentLabel(doc)
		header = append(header, name+" expiry", name+" days left", name+" urgency")
	}
	header = append(header, "Overall urgency", "Checklist %")
	if err := f.SetSheetRow(expirySheet, "A1", &header); err != nil {
		return nil, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(expirySheet, "A1", lastCol+"1", bold); err != nil {
		return nil, err
	}

	for i, s := range summaries {
		row := []any{s.FullName, s.Department, s.VisaType, s.Status}
		for _, doc := range domain.ExpiryDocuments {
			e := s.Expiry(doc)
			row = append(row, dateCell(e.ExpiresOn), daysCell(e.DaysLeft), string(e.Urgency))
		}
		row = append(row, string(s.Urgency), s.ChecklistPercent)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(expirySheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if len(summaries) > 0 {
		ref := fmt.Sprintf("A1:%s%d", lastCol, len(summaries)+1)
		if err := f.AutoFilter(expirySheet, ref, nil); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(expirySheet, "A", "A", 28); err != nil {
		return nil, err
	}

	if err := writeSummary(f, summaries, generated, bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, summaries []application.WorkerSummary, generated time.Time, bold int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(summarySheet, "A1", &[]any{"Generated", generated.UTC().Format(time.RFC3339)}); err != nil {
		return err
	}
	header := []any{"Document", "Expired", "Critical", "Warning", "Monitor", "OK", "Total"}
	if err := f.SetSheetRow(summarySheet, "A3", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A3", "G3", bold); err != nil {
		return err
	}
	for i, doc := range domain.ExpiryDocuments {
		var counts domain.UrgencyCounts
		for _, s := range summaries {
			counts.Add(s.Expiry(doc).Urgency)
		}
		row := []any{documentLabel(doc), counts.Expired, counts.Critical, counts.Warning, counts.Monitor, counts.OK, counts.Total()}
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+4), &row); err != nil {
			return err
		}
	}
	return nil
}

func documentLabel(doc domain.ExpiryDocument) string {
	if doc == domain.DocumentBRP {
		return "BRP"
	}
	s := string(doc)
	return strings.ToUpper(s[:1]) + s[1:]
}

func dateCell(d *domain.Date) any {
	if d == nil {
		return ""
	}
	return d.String()
}

func daysCell(days *int) any {
	if days == nil {
		return ""
	}
	return *days
}
