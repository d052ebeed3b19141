package aggregator

import (
	"math"
	"strings"

	"StockSense/internal/domain/models"
)

const (
	congressBaseScore  = 40
	congressRatioScale = 10
)

// AnalyzeCongressActivity scores a list of trades by the share of buys versus sells.
// Trade types other than buy or sell are ignored. A majority side scores
// 40 + floor(ratio*10) with its sign; an even split or no buy/sell trades scores 0.
func AnalyzeCongressActivity(trades []models.CongressTrade) int {
	var buys, sells int
	for _, t := range trades {
		switch {
		case strings.EqualFold(t.TradeType, "buy"):
			buys++
		case strings.EqualFold(t.TradeType, "sell"):
			sells++
		}
	}
	if buys+sells == 0 {
		return 0
	}

	buyRatio := float64(buys) / float64(buys+sells)
	sellRatio := 1 - buyRatio

	switch {
	case buyRatio > 0.5:
		return congressBaseScore + int(math.Floor(buyRatio*congressRatioScale))
	case sellRatio > 0.5:
		return -(congressBaseScore + int(math.Floor(sellRatio*congressRatioScale)))
	default:
		return 0
	}
}
