package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/jemygraw/agentflow/graph"
	"github.com/jemygraw/agentflow/log"
)

const hftPrompt = "You are a professional high-frequency trading signal analyst. Analyze the " +
	"real-time tick data, detecting large-order anomalies (single trades above twice the daily " +
	"average, flagged as institutional activity) and order-queue behavior at the best bid/ask. " +
	"Report the key signals and anomalies."

const conceptPrompt = "You are a professional thematic-sector analyst. Analyze today's limit-up " +
	"list and concept mapping: quantify concept heat (limit-ups within the concept relative to the " +
	"market, weighted by the leader's seal amount) and assess the ladder health from limit-up " +
	"timing. Report the hottest concepts and the capital dynamics."

const priceVolumePrompt = "You are a professional price-volume analyst. Analyze the daily OHLCV " +
	"data and key levels: evaluate volume-price elasticity, breakout validity and multi-timeframe " +
	"alignment. Report support/resistance levels, a trend strength score and any divergence warnings."

const decisionPrompt = "You are a trading decision synthesizer. Merge the specialist analyses with " +
	"a weighted-vote view, resolving conflicting signals, and produce a concrete strategy: candidate " +
	"symbols, entry/exit rules and position sizing."

const decisionInputTemplate = `Merge the following analyses:
High-frequency signals: %s
Concept analysis: %s
Price-volume analysis: %s
Risk preference: %s`

// Config configures the trading-strategy workflow.
type Config struct {
	Model llms.Model

	// Provider fetches market data in the collect node. Defaults to
	// SimulatedProvider.
	Provider DataProvider
}

// Strategy is the outcome of one workflow run.
type Strategy struct {
	HFTSignal           string
	ConceptAnalysis     string
	PriceVolumeAnalysis string
	FinalStrategy       string
}

// NewGraph builds the workflow: collect_data fans out to the three analysts,
// which all feed decision_agent.
func NewGraph(cfg Config) (*graph.Runnable, error) {
	if cfg.Model == nil {
		return nil, errors.New("model is required")
	}
	if cfg.Provider == nil {
		cfg.Provider = SimulatedProvider{}
	}

	workflow := graph.NewStateGraph()
	workflow.AddNode("collect_data", "Fetch market data", cfg.collectData)
	workflow.AddNode("hft_agent", "Analyze tick data for HFT signals", cfg.hftSignals)
	workflow.AddNode("concept_agent", "Analyze concept heat", cfg.conceptAnalysis)
	workflow.AddNode("price_volume_agent", "Analyze price-volume relationship", cfg.priceVolumeAnalysis)
	workflow.AddNode("decision_agent", "Merge signals into a strategy", cfg.decide)

	workflow.SetEntryPoint("collect_data")
	workflow.AddEdge("collect_data", "hft_agent")
	workflow.AddEdge("collect_data", "concept_agent")
	workflow.AddEdge("collect_data", "price_volume_agent")
	workflow.AddEdge("hft_agent", "decision_agent")
	workflow.AddEdge("concept_agent", "decision_agent")
	workflow.AddEdge("price_volume_agent", "decision_agent")
	workflow.AddEdge("decision_agent", graph.END)

	return workflow.Compile()
}

// Run executes the workflow for a stock code and collects the strategy.
func Run(ctx context.Context, cfg Config, code string) (*Strategy, error) {
	runnable, err := NewGraph(cfg)
	if err != nil {
		return nil, err
	}
	state, err := runnable.Invoke(ctx, graph.State{"code": code})
	if err != nil {
		return nil, err
	}
	return &Strategy{
		HFTSignal:           stringValue(state, "hft_signal"),
		ConceptAnalysis:     stringValue(state, "concept_analysis"),
		PriceVolumeAnalysis: stringValue(state, "price_volume_analysis"),
		FinalStrategy:       stringValue(state, "final_strategy"),
	}, nil
}

func (c *Config) collectData(ctx context.Context, state graph.State) (any, error) {
	if _, ok := state["market_data"].(MarketData); ok {
		return graph.State{}, nil
	}
	code, _ := state["code"].(string)
	data, err := c.Provider.Fetch(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market data: %w", err)
	}
	return graph.State{"market_data": data}, nil
}

func (c *Config) hftSignals(ctx context.Context, state graph.State) (any, error) {
	data := marketData(state)
	result := c.analyze(ctx, hftPrompt,
		fmt.Sprintf("Analyze this tick data: %s", asJSON(data.Tick)),
		"high-frequency signal analysis unavailable")
	return graph.State{"hft_signal": result}, nil
}

func (c *Config) conceptAnalysis(ctx context.Context, state graph.State) (any, error) {
	data := marketData(state)
	result := c.analyze(ctx, conceptPrompt,
		fmt.Sprintf("Analyze this concept data: %s", asJSON(data.Concept)),
		"concept analysis unavailable")
	return graph.State{"concept_analysis": result}, nil
}

func (c *Config) priceVolumeAnalysis(ctx context.Context, state graph.State) (any, error) {
	data := marketData(state)
	result := c.analyze(ctx, priceVolumePrompt,
		fmt.Sprintf("Analyze this kline data: %s", asJSON(data.Kline)),
		"price-volume analysis unavailable")
	return graph.State{"price_volume_analysis": result}, nil
}

func (c *Config) decide(ctx context.Context, state graph.State) (any, error) {
	risk := marketData(state).RiskPreference
	if risk == "" {
		risk = "moderate"
	}
	input := fmt.Sprintf(decisionInputTemplate,
		stringValue(state, "hft_signal"),
		stringValue(state, "concept_analysis"),
		stringValue(state, "price_volume_analysis"),
		risk)

	resp, err := c.Model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, decisionPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, input),
	})
	if err != nil {
		return nil, fmt.Errorf("decision integration failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}
	return graph.State{"final_strategy": resp.Choices[0].Content}, nil
}

// analyze runs one specialist prompt. Analyst failures degrade to a fallback
// note so the decision agent still runs on the remaining signals.
func (c *Config) analyze(ctx context.Context, system, input, fallback string) string {
	resp, err := c.Model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, input),
	})
	if err != nil || len(resp.Choices) == 0 {
		log.Warn("analyst call failed: %v", err)
		return fallback
	}
	return resp.Choices[0].Content
}

func marketData(state graph.State) MarketData {
	data, _ := state["market_data"].(MarketData)
	return data
}

func stringValue(state graph.State, key string) string {
	s, _ := state[key].(string)
	return s
}

func asJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
