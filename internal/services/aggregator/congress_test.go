package aggregator

import (
	"testing"

	"StockSense/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func trades(types ...string) []models.CongressTrade {
	out := make([]models.CongressTrade, len(types))
	for i, tt := range types {
		out[i] = models.CongressTrade{TradeType: tt}
	}
	return out
}

func TestAnalyzeCongressActivity(t *testing.T) {
	cases := []struct {
		name   string
		trades []models.CongressTrade
		want   int
	}{
		{"empty", nil, 0},
		{"all buys", trades("buy", "buy", "buy"), 50},
		{"even split", trades("buy", "sell"), 0},
		{"sell majority", trades("sell", "sell", "sell", "buy"), -47},
		{"two thirds buy", trades("buy", "buy", "sell"), 46},
		{"case insensitive", trades("BUY", "Buy", "SELL"), 46},
		{"only unknown types", trades("exchange", "", "partial sale"), 0},
		{"unknown types ignored", trades("exchange", "sell", "", "sell"), -50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AnalyzeCongressActivity(tc.trades))
		})
	}
}
