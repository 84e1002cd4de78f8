package services

import "sort"

// Product is a consultation package sold through checkout
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
}

var catalog = map[string]Product{
	"BASIC_CONSULTATION": {
		ID:          "BASIC_CONSULTATION",
		Name:        "기본 상담 서비스",
		Description: "전문 가이드와의 1:1 맞춤 상담",
		Price:       50000,
		Currency:    "krw",
	},
	"PREMIUM_CONSULTATION": {
		ID:          "PREMIUM_CONSULTATION",
		Name:        "프리미엄 상담 서비스",
		Description: "VIP 맞춤 여행 계획 및 상담",
		Price:       100000,
		Currency:    "krw",
	},
	"FULL_PACKAGE": {
		ID:          "FULL_PACKAGE",
		Name:        "완전 패키지 서비스",
		Description: "여행 계획부터 현지 가이드까지 모든 서비스",
		Price:       200000,
		Currency:    "krw",
	},
}

// LookupProduct returns the catalog entry for id
func LookupProduct(id string) (Product, bool) {
	p, ok := catalog[id]
	return p, ok
}

// Products returns the catalog ordered by price
func Products() []Product {
	out := make([]Product, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}
