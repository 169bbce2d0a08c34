// Package finance implements a multi-agent trading-strategy workflow: three
// specialist analysts examine tick, concept and kline market data in
// parallel, and a decision agent merges their signals into a strategy.
package finance

import (
	"context"
	"fmt"
)

// TickData is a single intraday trade snapshot with order book depth.
type TickData struct {
	Code      string    `json:"code"`
	Time      string    `json:"time"`
	Price     float64   `json:"price"`
	Volume    int64     `json:"volume"`
	Amount    float64   `json:"amount"`
	BidPrice  []float64 `json:"bid_price"`
	BidVolume []int64   `json:"bid_volume"`
	AskPrice  []float64 `json:"ask_price"`
	AskVolume []int64   `json:"ask_volume"`
}

// ConceptData describes a thematic sector and its limit-up activity.
type ConceptData struct {
	ConceptName   string             `json:"concept_name"`
	Stocks        []string           `json:"stocks"`
	LimitUpStocks []string           `json:"limit_up_stocks"`
	LimitUpTime   map[string]string  `json:"limit_up_time"`
	LeaderStocks  []string           `json:"leader_stocks"`
	SealAmount    map[string]float64 `json:"seal_amount"`
}

// KlineData is a daily OHLCV bar.
type KlineData struct {
	Code     string  `json:"code"`
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`
	Amount   float64 `json:"amount"`
	Turnover float64 `json:"turnover"`
}

// MarketData bundles the inputs for one strategy run.
type MarketData struct {
	Tick           TickData    `json:"tick_data"`
	Concept        ConceptData `json:"concept_data"`
	Kline          KlineData   `json:"kline_data"`
	RiskPreference string      `json:"risk_preference"`
}

// DataProvider fetches market data for a stock code.
type DataProvider interface {
	Fetch(ctx context.Context, code string) (MarketData, error)
}

// SimulatedProvider serves canned market data, useful for demos and tests.
type SimulatedProvider struct{}

func (SimulatedProvider) Fetch(ctx context.Context, code string) (MarketData, error) {
	if code == "" {
		return MarketData{}, fmt.Errorf("stock code is required")
	}
	return MarketData{
		Tick: TickData{
			Code:      code,
			Time:      "2024-03-04 09:30:00",
			Price:     25.68,
			Volume:    10000,
			Amount:    256800.0,
			BidPrice:  []float64{25.67, 25.66, 25.65, 25.64, 25.63},
			BidVolume: []int64{2000, 3000, 5000, 4000, 6000},
			AskPrice:  []float64{25.69, 25.70, 25.71, 25.72, 25.73},
			AskVolume: []int64{1500, 2500, 3500, 4500, 5500},
		},
		Concept: ConceptData{
			ConceptName:   "robotics",
			Stocks:        []string{code, "sz300024", "sh688169"},
			LimitUpStocks: []string{code, "sz300024"},
			LimitUpTime:   map[string]string{code: "09:45:00", "sz300024": "10:15:00"},
			LeaderStocks:  []string{code},
			SealAmount:    map[string]float64{code: 50000000.0, "sz300024": 30000000.0},
		},
		Kline: KlineData{
			Code:     code,
			Date:     "2024-03-04",
			Open:     25.10,
			High:     26.80,
			Low:      25.05,
			Close:    26.61,
			Volume:   1500000,
			Amount:   39915000.0,
			Turnover: 2.5,
		},
		RiskPreference: "moderate",
	}, nil
}
