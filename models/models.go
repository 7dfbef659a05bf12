package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	Username     string
	Email        string
	PasswordHash string
}

type WatchlistEntry struct {
	UserID       string
	CryptoSymbol string
}

type MarketSnapshot struct {
	Symbol                   string          `json:"symbol"`
	Name                     string          `json:"name"`
	CurrentPrice             decimal.Decimal `json:"current_price"`
	PriceChangePercentage24h decimal.Decimal `json:"price_change_percentage_24h"`
	MarketCap                decimal.Decimal `json:"market_cap"`
	Image                    string          `json:"image"`
	Sparkline7d              []string        `json:"sparkline_7d"`
	LastUpdated              time.Time       `json:"last_updated"`
}

type ViewItem struct {
	CryptoSymbol string    `json:"crypto_symbol"`
	Name         string    `json:"name"`
	CurrentPrice string    `json:"current_price"`
	Change24h    string    `json:"price_change_percentage_24h,omitempty"`
	MarketCap    string    `json:"market_cap,omitempty"`
	Image        string    `json:"image,omitempty"`
	LastUpdated  string    `json:"last_updated,omitempty"`
}
