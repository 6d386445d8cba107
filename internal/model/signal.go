package model

import "time"

// Strategy is a short label explaining why a symbol is notable.
type Strategy string

const (
	StrategyPerfectSetup   Strategy = "🎯 Perfect Setup"
	StrategyLowFloatRunner Strategy = "🚀 Low Float Runner"
	StrategySqueezeAlert   Strategy = "🔥 Squeeze Alert"
	StrategyVWAPReclaim    Strategy = "📈 VWAP Reclaim"
	StrategyHODBreak       Strategy = "⚡ HOD Break"
	StrategyGapAndGo       Strategy = "💥 Gap & Go"
	StrategyMomentum       Strategy = "📊 Momentum"
	StrategyInPlay         Strategy = "👀 In Play"
)

// AlertType indicates what triggered an alert.
type AlertType string

const (
	AlertNewMover    AlertType = "new"
	AlertSpike       AlertType = "spike"
	AlertVolumeSpike AlertType = "volume"
)

// Alert is a single change-detector event.
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Symbol    string    `json:"symbol"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
