package services

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

const (
	MinPaymentAmount = 1000
	MaxPaymentAmount = 10000000
)

// fee rates per payment method
var feeRates = map[string]decimal.Decimal{
	"toss":  decimal.RequireFromString("0.029"),
	"kakao": decimal.RequireFromString("0.035"),
	"naver": decimal.RequireFromString("0.032"),
	"card":  decimal.RequireFromString("0.025"),
}

// ValidatePaymentAmount checks the amount is within the accepted range
func ValidatePaymentAmount(amount int64) error {
	if amount < MinPaymentAmount {
		return fmt.Errorf("minimum payment amount is %d KRW", MinPaymentAmount)
	}
	if amount > MaxPaymentAmount {
		return fmt.Errorf("maximum payment amount is %d KRW", MaxPaymentAmount)
	}
	return nil
}

// CalculatePaymentFee returns the processor fee for method, rounded down to the won
func CalculatePaymentFee(amount int64, method string) (int64, error) {
	rate, ok := feeRates[method]
	if !ok {
		return 0, fmt.Errorf("unknown payment method %q", method)
	}
	return decimal.NewFromInt(amount).Mul(rate).Floor().IntPart(), nil
}

// GenerateOrderID returns "<PREFIX>_<ULID>"; prefix defaults to ORDER
func GenerateOrderID(prefix string) string {
	if prefix == "" {
		prefix = "ORDER"
	}
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	return strings.ToUpper(prefix) + "_" + id.String()
}

// FormatKRW renders an amount like 50,000원
func FormatKRW(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String() + "원"
	}
	return b.String() + "원"
}
