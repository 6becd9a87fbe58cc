// Package report renders summaries as printable documents.
package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/warp/worklog/generic"
	"github.com/warp/worklog/summary"
)

// WriteTimesheet renders one page per user with the daily worked vs
// expected table and range totals.
func WriteTimesheet(w io.Writer, summaries []summary.UserSummary, start, end generic.Date) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Timesheet", true)

	if len(summaries) == 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 8, "No users in range")
	}

	for _, us := range summaries {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.Cell(40, 10, "Timesheet")
		pdf.Ln(12)
		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", us.User.Username))
		pdf.Ln(7)
		pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s", start, end))
		pdf.Ln(10)

		pdf.SetFont("Helvetica", "B", 10)
		for _, h := range []struct {
			label string
			width float64
		}{{"Date", 30}, {"Day", 15}, {"Worked", 25}, {"Expected", 25}, {"Holiday", 75}} {
			pdf.CellFormat(h.width, 7, h.label, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 10)
		for _, d := range us.Days {
			pdf.CellFormat(30, 6, d.Date.String(), "1", 0, "L", false, 0, "")
			pdf.CellFormat(15, 6, d.Weekday, "1", 0, "C", false, 0, "")
			pdf.CellFormat(25, 6, d.HoursWorked.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(25, 6, d.ExpectedHours.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(75, 6, d.HolidayLabel, "1", 0, "L", false, 0, "")
			pdf.Ln(-1)
		}

		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 8, fmt.Sprintf("Total worked: %s h   Expected: %s h",
			us.TotalWorked.StringFixed(2), us.TotalExpected.StringFixed(2)))
	}

	return pdf.Output(w)
}
