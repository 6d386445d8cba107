package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"MomentumWatch/internal/model"
)

func TestClassify_PerfectSetup(t *testing.T) {
	r := &model.DerivedRecord{
		Price:          8,
		High:           9,
		GapPercent:     6,
		RelativeVolume: 7,
		Float:          15_000_000,
		VWAPDistance:   5,
		ChangePercent:  2,
	}
	tags := Classify(r)
	assert.Contains(t, tags, model.StrategyPerfectSetup)
	assert.True(t, MatchesSetupCriteria(r))
}

func TestClassify_StopsAtThree(t *testing.T) {
	// Matches every rule in the table.
	r := &model.DerivedRecord{
		Price:          10,
		High:           10,
		GapPercent:     25,
		RelativeVolume: 8,
		Float:          5_000_000,
		VWAPDistance:   1,
		ChangePercent:  30,
	}
	tags := Classify(r)
	assert.Equal(t, []model.Strategy{
		model.StrategyPerfectSetup,
		model.StrategyLowFloatRunner,
		model.StrategySqueezeAlert,
	}, tags)
}

func TestClassify_PreservesRuleOrder(t *testing.T) {
	r := &model.DerivedRecord{
		Price:          50,
		High:           50,
		GapPercent:     12,
		RelativeVolume: 4,
		VWAPDistance:   10,
		ChangePercent:  4,
	}
	assert.Equal(t, []model.Strategy{model.StrategyHODBreak, model.StrategyGapAndGo}, Classify(r))
}

func TestClassify_Fallbacks(t *testing.T) {
	tests := []struct {
		name   string
		change float64
		want   model.Strategy
	}{
		{"momentum", 6, model.StrategyMomentum},
		{"in play at boundary", 5, model.StrategyInPlay},
		{"in play negative", -3, model.StrategyInPlay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// High far above price keeps HOD Break from matching.
			r := &model.DerivedRecord{Price: 5, High: 10, ChangePercent: tt.change, VWAPDistance: 10}
			assert.Equal(t, []model.Strategy{tt.want}, Classify(r))
		})
	}
}

func TestClassify_FloatBoundaries(t *testing.T) {
	base := model.DerivedRecord{Price: 5, High: 10, GapPercent: 5, RelativeVolume: 6, VWAPDistance: 10}

	unknown := base
	assert.NotContains(t, Classify(&unknown), model.StrategyPerfectSetup, "zero float is not a perfect setup")

	atLimit := base
	atLimit.Float = 20_000_000
	assert.NotContains(t, Classify(&atLimit), model.StrategyPerfectSetup)

	lowFloat := base
	lowFloat.Float = 9_999_999
	assert.Contains(t, Classify(&lowFloat), model.StrategyLowFloatRunner)
}

func TestMatchesSetupCriteria(t *testing.T) {
	tests := []struct {
		name string
		r    model.DerivedRecord
		want bool
	}{
		{"unknown float qualifies", model.DerivedRecord{GapPercent: 4, Price: 1, RelativeVolume: 5}, true},
		{"large float rejected", model.DerivedRecord{GapPercent: 4, Price: 20, RelativeVolume: 5, Float: 25_000_000}, false},
		{"small gap rejected", model.DerivedRecord{GapPercent: 3.99, Price: 5, RelativeVolume: 9}, false},
		{"price above range", model.DerivedRecord{GapPercent: 8, Price: 20.01, RelativeVolume: 9}, false},
		{"price below range", model.DerivedRecord{GapPercent: 8, Price: 0.99, RelativeVolume: 9}, false},
		{"thin volume rejected", model.DerivedRecord{GapPercent: 8, Price: 5, RelativeVolume: 4.99}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesSetupCriteria(&tt.r))
		})
	}
}
