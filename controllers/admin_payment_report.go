package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/tealeg/xlsx"

	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/utils"
)

// PaymentReportSummary aggregates the payments of a report window
type PaymentReportSummary struct {
	TotalPayments  int
	PaidPayments   int
	GrossRevenue   int64
	TotalRefunds   int64
	NetRevenue     int64
	TotalCustomers int
	AveragePayment int64
}

// reportWindow resolves day, week or month into a time range ending today
func reportWindow(period string, now time.Time) (time.Time, time.Time, bool) {
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 999999999, now.Location())
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case "day":
		return startOfDay, endOfDay, true
	case "week":
		return startOfDay.AddDate(0, 0, -6), endOfDay, true
	case "month":
		return startOfDay.AddDate(0, 0, -29), endOfDay, true
	}
	return time.Time{}, time.Time{}, false
}

// summarizePayments counts revenue from paid payments and refunds from every payment
func summarizePayments(payments []models.Payment) PaymentReportSummary {
	var s PaymentReportSummary
	customers := make(map[string]bool)
	for i := range payments {
		p := &payments[i]
		s.TotalPayments++
		s.TotalRefunds += p.RefundAmount
		if p.IsPaid() || p.RefundAmount > 0 {
			s.PaidPayments++
			s.GrossRevenue += p.Amount
		}
		if p.CustomerEmail != "" {
			customers[strings.ToLower(p.CustomerEmail)] = true
		}
	}
	s.TotalCustomers = len(customers)
	s.NetRevenue = s.GrossRevenue - s.TotalRefunds
	if s.PaidPayments > 0 {
		s.AveragePayment = s.GrossRevenue / int64(s.PaidPayments)
	}
	return s
}

func loadReportPayments(c *gin.Context) (string, time.Time, time.Time, []models.Payment, bool) {
	period := c.DefaultQuery("period", "day")
	startDate, endDate, ok := reportWindow(period, time.Now())
	if !ok {
		utils.LogError("Invalid period specified: %s", period)
		utils.BadRequest(c, "Invalid period", "Period must be day, week, or month")
		return "", startDate, endDate, nil, false
	}

	var payments []models.Payment
	err := config.DB.Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		utils.LogError("Failed to fetch payments: %v", err)
		utils.InternalServerError(c, "Failed to fetch payments", nil)
		return "", startDate, endDate, nil, false
	}
	utils.LogDebug("Retrieved %d payments for %s report", len(payments), period)
	return period, startDate, endDate, payments, true
}

func summaryRows(s PaymentReportSummary) [][]string {
	return [][]string{
		{"Total Payments", fmt.Sprintf("%d", s.TotalPayments)},
		{"Paid Payments", fmt.Sprintf("%d", s.PaidPayments)},
		{"Gross Revenue (KRW)", fmt.Sprintf("%d", s.GrossRevenue)},
		{"Total Refunds (KRW)", fmt.Sprintf("%d", s.TotalRefunds)},
		{"Net Revenue (KRW)", fmt.Sprintf("%d", s.NetRevenue)},
		{"Total Customers", fmt.Sprintf("%d", s.TotalCustomers)},
		{"Avg. Payment (KRW)", fmt.Sprintf("%d", s.AveragePayment)},
	}
}

var reportHeaders = []string{"Payment ID", "Customer", "Date", "Amount", "Refunded", "Net", "Method", "Status"}

// DownloadPaymentReportExcel exports the payments of a period as a spreadsheet
func DownloadPaymentReportExcel(c *gin.Context) {
	utils.LogInfo("DownloadPaymentReportExcel called")

	period, startDate, endDate, payments, ok := loadReportPayments(c)
	if !ok {
		return
	}
	summary := summarizePayments(payments)

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Payment Report")
	if err != nil {
		utils.LogError("Failed to create Excel sheet: %v", err)
		utils.InternalServerError(c, "Failed to create Excel sheet", nil)
		return
	}

	bold := xlsx.NewStyle()
	font := xlsx.DefaultFont()
	font.Bold = true
	bold.Font = *font

	sheet.AddRow().AddCell().SetString("TOURGUIDER - Payment Report")
	sheet.AddRow().AddCell().SetString("Period: " + strings.ToUpper(period) + " | " + startDate.Format("2006-01-02") + " to " + endDate.Format("2006-01-02"))
	sheet.AddRow()

	headerRow := sheet.AddRow()
	for _, h := range reportHeaders {
		cell := headerRow.AddCell()
		cell.SetString(h)
		cell.SetStyle(bold)
	}

	for _, p := range payments {
		row := sheet.AddRow()
		row.AddCell().SetString(p.ID)
		row.AddCell().SetString(p.CustomerEmail)
		row.AddCell().SetString(p.CreatedAt.Format("2006-01-02 15:04"))
		row.AddCell().SetInt64(p.Amount)
		row.AddCell().SetInt64(p.RefundAmount)
		row.AddCell().SetInt64(p.Amount - p.RefundAmount)
		row.AddCell().SetString(p.PaymentMethod)
		row.AddCell().SetString(p.Status)
	}

	sheet.AddRow()
	summaryRow := sheet.AddRow()
	summaryRow.AddCell().SetString("Summary")
	summaryRow.Cells[0].SetStyle(bold)
	for _, data := range summaryRows(summary) {
		row := sheet.AddRow()
		row.AddCell().SetString(data[0])
		row.AddCell().SetString(data[1])
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=payment_report_%s.xlsx", period))
	if err := file.Write(c.Writer); err != nil {
		utils.LogError("Failed to write Excel file: %v", err)
		return
	}
	utils.LogInfo("Successfully generated Excel payment report for period %s", period)
}

// DownloadPaymentReportPDF exports the payments of a period as a PDF
func DownloadPaymentReportPDF(c *gin.Context) {
	utils.LogInfo("DownloadPaymentReportPDF called")

	period, startDate, endDate, payments, ok := loadReportPayments(c)
	if !ok {
		return
	}
	summary := summarizePayments(payments)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.Cell(0, 12, "TOURGUIDER - Payment Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, "Period: "+strings.ToUpper(period)+" | "+startDate.Format("2006-01-02")+" to "+endDate.Format("2006-01-02"))
	pdf.Ln(12)

	colWidths := []float64{62, 55, 32, 25, 25, 25, 20, 30}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	for i, h := range reportHeaders {
		pdf.CellFormat(colWidths[i], 9, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	fill := false
	for _, p := range payments {
		pdf.SetFillColor(245, 245, 245)
		if fill {
			pdf.SetFillColor(230, 240, 255)
		}
		fill = !fill
		pdf.CellFormat(colWidths[0], 8, truncate(p.ID, 38), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[1], 8, truncate(p.CustomerEmail, 34), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[2], 8, p.CreatedAt.Format("2006-01-02 15:04"), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[3], 8, fmt.Sprintf("%d", p.Amount), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(colWidths[4], 8, fmt.Sprintf("%d", p.RefundAmount), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(colWidths[5], 8, fmt.Sprintf("%d", p.Amount-p.RefundAmount), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(colWidths[6], 8, p.PaymentMethod, "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[7], 8, p.Status, "1", 0, "C", fill, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 13)
	pdf.SetFillColor(220, 230, 250)
	pdf.CellFormat(90, 10, "Summary", "1", 0, "C", true, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 11)
	for _, data := range summaryRows(summary) {
		pdf.CellFormat(50, 8, data[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, data[1], "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=payment_report_%s.pdf", period))
	if err := pdf.Output(c.Writer); err != nil {
		utils.LogError("Failed to write PDF file: %v", err)
		return
	}
	utils.LogInfo("Successfully generated PDF payment report for period %s", period)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
