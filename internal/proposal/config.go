package proposal

import (
	"time"

	"github.com/nicodishanthj/Modeval_phase1/internal/llm"
)

// Config tunes the generation pipeline. The feedback predicates compare
// against these thresholds; they are deliberately configuration rather than
// hard-coded business rules because their exact values are a calibration
// concern.
type Config struct {
	// ModernizationOpportunityLimit: more opportunities on a single
	// assignment than this triggers a wave re-plan.
	ModernizationOpportunityLimit int
	// ComplexStrategies also trigger a wave re-plan when present.
	ComplexStrategies []Strategy
	// MaxProjectWeeks: a total estimate beyond this triggers strategy
	// reclassification toward simpler approaches.
	MaxProjectWeeks int
	// MaxWavePersonWeeks: any single wave above this triggers the same.
	MaxWavePersonWeeks int
	// ComplexPatterns in the architecture advice trigger a scope update.
	ComplexPatterns []string
	// ServiceCountLimit: more recommended services than this triggers a
	// scope update.
	ServiceCountLimit int
	// MaxFeedbackIterations caps how often any single feedback edge may
	// fire before the run is declared non-convergent.
	MaxFeedbackIterations int
	// CallTimeout bounds each model call.
	CallTimeout time.Duration
	// NodeTimeout bounds a whole workflow step.
	NodeTimeout time.Duration
	// OutputRoot is where the emitted proposal artifacts land.
	OutputRoot string
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		ModernizationOpportunityLimit: 2,
		ComplexStrategies:             []Strategy{StrategyRefactor, StrategyRepurchase},
		MaxProjectWeeks:               52,
		MaxWavePersonWeeks:            100,
		ComplexPatterns:               []string{"Microservices", "Event-driven", "Serverless-first"},
		ServiceCountLimit:             10,
		MaxFeedbackIterations:         3,
		CallTimeout:                   llm.DefaultCallTimeout,
		NodeTimeout:                   3 * time.Minute,
		OutputRoot:                    "outputs",
	}
}

func (c Config) isComplexStrategy(s Strategy) bool {
	for _, candidate := range c.ComplexStrategies {
		if s == candidate {
			return true
		}
	}
	return false
}

func (c Config) isComplexPattern(pattern string) bool {
	for _, candidate := range c.ComplexPatterns {
		if pattern == candidate {
			return true
		}
	}
	return false
}
