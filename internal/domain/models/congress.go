package models

// CongressTrade is one disclosed trade by a member of Congress.
type CongressTrade struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Party        string `json:"party"`
	State        string `json:"state"`
	TradeType    string `json:"trade_type"`
	Size         string `json:"size"`
	TradeDate    string `json:"trade_date"`
	FilingDate   string `json:"filing_date"`
	ReportingGap string `json:"reporting_gap"`
	PhotoURL     string `json:"photo_url"`
}

// CongressActivity is the trades for a ticker together with the score they produce.
type CongressActivity struct {
	Ticker string          `json:"ticker"`
	Score  int             `json:"score"`
	Trades []CongressTrade `json:"trades"`
}
