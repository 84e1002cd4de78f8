package services

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePaymentAmount(t *testing.T) {
	assert.Error(t, ValidatePaymentAmount(999))
	assert.NoError(t, ValidatePaymentAmount(MinPaymentAmount))
	assert.NoError(t, ValidatePaymentAmount(MaxPaymentAmount))
	assert.Error(t, ValidatePaymentAmount(MaxPaymentAmount+1))
}

func TestCalculatePaymentFee(t *testing.T) {
	tests := []struct {
		method string
		amount int64
		want   int64
	}{
		{"card", 50000, 1250},
		{"toss", 50000, 1450},
		{"kakao", 10001, 350},
		{"naver", 100000, 3200},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			fee, err := CalculatePaymentFee(tt.amount, tt.method)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fee)
		})
	}

	_, err := CalculatePaymentFee(50000, "cash")
	assert.Error(t, err)
}

func TestGenerateOrderID(t *testing.T) {
	id := GenerateOrderID("tg")
	require.True(t, strings.HasPrefix(id, "TG_"), id)
	_, err := ulid.Parse(strings.TrimPrefix(id, "TG_"))
	assert.NoError(t, err)

	assert.True(t, strings.HasPrefix(GenerateOrderID(""), "ORDER_"))
	assert.NotEqual(t, GenerateOrderID("TG"), GenerateOrderID("TG"))
}

func TestFormatKRW(t *testing.T) {
	assert.Equal(t, "0원", FormatKRW(0))
	assert.Equal(t, "999원", FormatKRW(999))
	assert.Equal(t, "50,000원", FormatKRW(50000))
	assert.Equal(t, "1,234,567원", FormatKRW(1234567))
	assert.Equal(t, "-2,500원", FormatKRW(-2500))
}

func TestProductsSortedByPrice(t *testing.T) {
	products := Products()
	require.Len(t, products, 3)
	assert.Equal(t, "BASIC_CONSULTATION", products[0].ID)
	assert.Equal(t, "FULL_PACKAGE", products[2].ID)

	p, ok := LookupProduct("PREMIUM_CONSULTATION")
	require.True(t, ok)
	assert.Equal(t, int64(100000), p.Price)

	_, ok = LookupProduct("NOPE")
	assert.False(t, ok)
}
