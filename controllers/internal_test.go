package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/utils"
)

func TestReportWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	start, end, ok := reportWindow("day", now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 15, end.Day())
	assert.Equal(t, 23, end.Hour())

	start, _, ok = reportWindow("week", now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), start)

	start, _, ok = reportWindow("month", now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), start)

	_, _, ok = reportWindow("year", now)
	assert.False(t, ok)
}

func TestSummarizePayments(t *testing.T) {
	s := summarizePayments([]models.Payment{
		{Amount: 100000, Status: models.PaymentStatusSucceeded, CustomerEmail: "Kim@example.com"},
		{Amount: 50000, Status: models.PaymentStatusRefunded, RefundAmount: 50000, CustomerEmail: "kim@example.com"},
		{Amount: 30000, Status: models.PaymentStatusFailed, CustomerEmail: "lee@example.com"},
		{Amount: 20000, Status: models.PaymentStatusPending},
	})
	assert.Equal(t, PaymentReportSummary{
		TotalPayments:  4,
		PaidPayments:   2,
		GrossRevenue:   150000,
		TotalRefunds:   50000,
		NetRevenue:     100000,
		TotalCustomers: 2,
		AveragePayment: 75000,
	}, s)

	assert.Equal(t, PaymentReportSummary{}, summarizePayments(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "제주도~", truncate("제주도여행", 4))
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="plan.pdf"; filename*=UTF-8''plan.pdf`, contentDisposition("plan.pdf"))

	header := contentDisposition(`제주 "일정".pdf`)
	assert.Contains(t, header, `filename="__ ____.pdf"`)
	assert.Contains(t, header, "filename*=UTF-8''%EC%A0%9C%EC%A3%BC%20")
}

func TestRefundableAmount(t *testing.T) {
	payment := &models.Payment{Amount: 50000, RefundAmount: 20000, Status: models.PaymentStatusPartiallyRefunded}

	tests := []struct {
		name     string
		payment  *models.Payment
		amount   int64
		partial  bool
		want     int64
		wantCode int
	}{
		{"full refund takes the remainder", payment, 0, false, 30000, 0},
		{"explicit amount", payment, 10000, false, 10000, 0},
		{"partial within remainder", payment, 30000, true, 30000, 0},
		{"partial equal to payment", payment, 50000, true, 0, http.StatusBadRequest},
		{"more than remaining", payment, 40000, false, 0, http.StatusBadRequest},
		{"negative", payment, -1, false, 0, http.StatusBadRequest},
		{"partial without amount", payment, 0, true, 0, http.StatusBadRequest},
		{"already refunded", &models.Payment{Amount: 50000, RefundAmount: 50000, Status: models.PaymentStatusRefunded}, 0, false, 0, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := refundableAmount(tt.payment, tt.amount, tt.partial)
			if tt.wantCode == 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			appErr := utils.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestParseProfile(t *testing.T) {
	p, err := parseProfile(models.ProviderGoogle, []byte(`{"id":"1087","email":"a@example.com","name":"Kim","picture":"https://lh3/p.jpg"}`))
	require.NoError(t, err)
	assert.Equal(t, &SocialProfile{Provider: "google", ID: "1087", Email: "a@example.com", Name: "Kim", PhotoURL: "https://lh3/p.jpg"}, p)

	p, err = parseProfile(models.ProviderKakao, []byte(`{"id":4021,"kakao_account":{"email":"b@example.com","profile":{"nickname":"여행자","profile_image_url":"https://k/p.jpg"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "4021", p.ID)
	assert.Equal(t, "여행자", p.Name)

	p, err = parseProfile(models.ProviderNaver, []byte(`{"response":{"id":"nv1","email":"c@example.com","nickname":"nick"}}`))
	require.NoError(t, err)
	assert.Equal(t, "nick", p.Name)

	_, err = parseProfile(models.ProviderKakao, []byte(`{"kakao_account":{}}`))
	assert.Error(t, err)

	_, err = parseProfile("github", []byte(`{}`))
	assert.Error(t, err)
}
