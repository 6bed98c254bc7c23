package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"sponsor-portal/internal/application"
	"sponsor-portal/internal/domain"
)

func TestExpiryWorkbook(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	visa := domain.Date("2025-03-25")
	s1, err := application.Summarize(domain.Worker{ID: "w1", FullName: "Rahul Mehta", Department: "Engineering", VisaExpiry: &visa, ChecklistTotal: 4, ChecklistCompleted: 1}, now)
	require.NoError(t, err)
	s2, err := application.Summarize(domain.Worker{ID: "w2", FullName: "Tomasz Nowak"}, now)
	require.NoError(t, err)

	raw, err := ExpiryWorkbook([]application.WorkerSummary{s1, s2}, now)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{expirySheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(expirySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Worker", rows[0][0])
	assert.Equal(t, "Visa expiry", rows[0][4])
	assert.Equal(t, "BRP urgency", rows[0][12])

	assert.Equal(t, "Rahul Mehta", rows[1][0])
	assert.Equal(t, "2025-03-25", rows[1][4])
	assert.Equal(t, "15", rows[1][5])
	assert.Equal(t, "critical", rows[1][6])
	assert.Equal(t, "25", rows[1][14])

	assert.Equal(t, "Tomasz Nowak", rows[2][0])
	assert.Equal(t, "ok", rows[2][13])

	visaRow, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, visaRow, 6)
	assert.Equal(t, []string{"Visa", "0", "1", "0", "0", "1", "2"}, visaRow[3])
	assert.Equal(t, "2025-03-10T09:00:00Z", visaRow[0][1])
}

func TestExpiryWorkbook_Empty(t *testing.T) {
	raw, err := ExpiryWorkbook(nil, time.Now())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(expirySheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
