package strategy

import "MomentumWatch/internal/model"

const (
	perfectSetupMaxFloat = 20_000_000
	lowFloatMaxFloat     = 10_000_000
)

// Rule pairs a tag with the predicate that earns it.
type Rule struct {
	Tag   model.Strategy
	Match func(r *model.DerivedRecord) bool
}

// Rules is evaluated in order; a record may match several.
var Rules = []Rule{
	{model.StrategyPerfectSetup, func(r *model.DerivedRecord) bool {
		return r.Float > 0 && r.Float < perfectSetupMaxFloat &&
			r.GapPercent >= 4 &&
			r.Price >= 1 && r.Price <= 20 &&
			r.RelativeVolume >= 5
	}},
	{model.StrategyLowFloatRunner, func(r *model.DerivedRecord) bool {
		return r.Float > 0 && r.Float < lowFloatMaxFloat && r.RelativeVolume > 5
	}},
	{model.StrategySqueezeAlert, func(r *model.DerivedRecord) bool {
		return r.GapPercent > 20
	}},
	{model.StrategyVWAPReclaim, func(r *model.DerivedRecord) bool {
		return r.VWAPDistance > -2 && r.VWAPDistance < 2 && r.ChangePercent > 3
	}},
	{model.StrategyHODBreak, func(r *model.DerivedRecord) bool {
		return r.Price >= r.High*0.99 && r.ChangePercent > 0
	}},
	{model.StrategyGapAndGo, func(r *model.DerivedRecord) bool {
		return r.GapPercent > 10 && r.RelativeVolume > 3
	}},
}

// Classify returns between one and model.MaxStrategies tags for r.
func Classify(r *model.DerivedRecord) []model.Strategy {
	tags := make([]model.Strategy, 0, model.MaxStrategies)
	for _, rule := range Rules {
		if rule.Match(r) {
			tags = append(tags, rule.Tag)
			if len(tags) == model.MaxStrategies {
				return tags
			}
		}
	}
	if len(tags) == 0 {
		if r.ChangePercent > 5 {
			tags = append(tags, model.StrategyMomentum)
		} else {
			tags = append(tags, model.StrategyInPlay)
		}
	}
	return tags
}

// MatchesSetupCriteria is the "qualifying" filter used by the setups-only
// view and by new-mover alerts. Unlike the Perfect Setup tag it accepts an
// unknown (zero) float.
func MatchesSetupCriteria(r *model.DerivedRecord) bool {
	if r.GapPercent < 4 || r.Price < 1 || r.Price > 20 || r.RelativeVolume < 5 {
		return false
	}
	return r.Float == 0 || r.Float < perfectSetupMaxFloat
}
