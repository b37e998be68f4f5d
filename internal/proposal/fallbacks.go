package proposal

import (
	"fmt"
	"strings"

	"github.com/nicodishanthj/Modeval_phase1/internal/coerce"
)

// Fallback records for every model call site. When a response cannot be
// coerced into JSON the pipeline degrades to these instead of failing the
// run.

func discoveryExtractionFallback(raw string) map[string]interface{} {
	return map[string]interface{}{
		"applications": []interface{}{
			map[string]interface{}{
				"name":        "Unknown Application",
				"description": truncate(raw, 500),
			},
		},
	}
}

func classificationFallback(record map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":                   coerce.String(record, "name", "Unknown Application"),
		"type":                   "Unknown",
		"complexity":             "Medium",
		"migration_readiness":    "Needs Assessment",
		"business_criticality":   "Medium",
		"estimated_effort_weeks": 4,
	}
}

func contentFallback(input *DiscoveryInput) map[string]interface{} {
	return map[string]interface{}{
		"executive_summary": fmt.Sprintf("This migration proposal outlines the strategy for %s to modernise applications to cloud-native architecture.", input.ClientName),
		"overview":          fmt.Sprintf("The %s project involves migrating existing applications to cloud infrastructure with modernisation opportunities.", input.ProjectName),
		"scope":             "The scope includes application assessment, migration planning and implementation across multiple waves.",
	}
}

// strategyFallback derives a 6-R assignment from the classification alone,
// preferring modernisation over lift-and-shift where the workload supports
// it.
func strategyFallback(app Application) map[string]interface{} {
	complexity := strings.ToLower(app.Complexity)
	readiness := strings.ToLower(app.MigrationReadiness)
	criticality := strings.ToLower(app.BusinessCriticality)
	stack := strings.ToLower(strings.Join(app.TechnologyStack, " "))

	var (
		strategy      Strategy
		opportunities []string
		effortWeeks   int
		riskLevel     string
	)
	switch {
	case complexity == "low" && strings.Contains(readiness, "ready"):
		if strings.Contains(stack, "docker") || strings.Contains(stack, "container") {
			strategy = StrategyRefactor
			opportunities = []string{"Container orchestration", "Cloud-native patterns"}
			effortWeeks, riskLevel = 6, "Medium"
		} else {
			strategy = StrategyReplatform
			opportunities = []string{"Managed services", "Auto-scaling"}
			effortWeeks, riskLevel = 4, "Low"
		}
	case complexity == "medium":
		if strings.Contains(criticality, "critical") {
			strategy = StrategyReplatform
			opportunities = []string{"Managed databases", "Backup automation"}
			effortWeeks, riskLevel = 8, "Medium"
		} else {
			strategy = StrategyRefactor
			opportunities = []string{"API modernisation", "Database optimisation"}
			effortWeeks, riskLevel = 10, "Medium"
		}
	default:
		if strings.Contains(strings.ToLower(app.Name), "legacy") {
			if strings.Contains(criticality, "critical") {
				strategy = StrategyRefactor
				opportunities = []string{"Complete modernisation", "API-first design"}
				effortWeeks, riskLevel = 16, "High"
			} else {
				strategy = StrategyRepurchase
				opportunities = []string{"SaaS replacement"}
				effortWeeks, riskLevel = 12, "Medium"
			}
		} else {
			strategy = StrategyReplatform
			opportunities = []string{"Performance optimisation", "Cost optimisation"}
			effortWeeks, riskLevel = 12, "High"
		}
	}

	opps := make([]interface{}, 0, len(opportunities))
	for _, opportunity := range opportunities {
		opps = append(opps, opportunity)
	}
	return map[string]interface{}{
		"application_name":            app.Name,
		"recommended_strategy":        string(strategy),
		"modernization_opportunities": opps,
		"rationale":                   fmt.Sprintf("Fallback strategy based on %s complexity and %s criticality", complexity, criticality),
		"effort_estimate_weeks":       effortWeeks,
		"risk_level":                  riskLevel,
		"prerequisites":               []interface{}{"Infrastructure assessment", "Dependency mapping"},
		"success_metrics":             []interface{}{"Migration completed", "Performance maintained"},
	}
}

func architectureFallback() map[string]interface{} {
	return map[string]interface{}{
		"architecture_patterns": []interface{}{"Cloud-native"},
		"technology_stack": map[string]interface{}{
			"compute":    []interface{}{"Container Services", "Serverless Functions"},
			"storage":    []interface{}{"Managed Databases", "Object Storage"},
			"networking": []interface{}{"Load Balancers", "API Gateway"},
		},
		"recommendations": []interface{}{
			map[string]interface{}{
				"category":       "General",
				"recommendation": "Adopt cloud-native architecture patterns",
				"rationale":      "Improved scalability and maintainability",
				"priority":       "High",
			},
		},
	}
}

func genaiFallback() map[string]interface{} {
	return map[string]interface{}{
		"tool_categories": []interface{}{
			map[string]interface{}{
				"category":              "Code Modernization",
				"tools":                 []interface{}{"GitHub Copilot", "AWS CodeWhisperer"},
				"use_cases":             []interface{}{"Code refactoring", "Cloud-native development"},
				"expected_benefits":     []interface{}{"Faster development", "Improved code quality"},
				"implementation_effort": "Medium",
			},
		},
		"automation_opportunities": []interface{}{
			map[string]interface{}{
				"opportunity":       "Automated code review and refactoring",
				"potential_savings": "30% reduction in development time",
				"complexity":        "Medium",
			},
		},
	}
}
