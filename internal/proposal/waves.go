package proposal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nicodishanthj/Modeval_phase1/internal/coerce"
	"github.com/nicodishanthj/Modeval_phase1/internal/engine"
)

// wavePlanningNode plans migration waves with the dual-track delivery model:
// a discovery track investigating feasibility one sprint ahead and a
// delivery track building validated increments in time-boxed sprints. When
// the model response cannot be used the deterministic grouping below takes
// over, so a plan always exists.
func (p *Pipeline) wavePlanningNode(ctx context.Context, state engine.State) (engine.State, error) {
	applications := applicationsFrom(state)
	if len(applications) == 0 {
		return nil, fmt.Errorf("no classified workloads available for wave planning")
	}

	system := `You are an expert cloud migration strategist specialising in dual-track agile delivery methodology.
The Discovery track runs one sprint ahead investigating user needs and
technical feasibility; the Delivery track builds validated migration
increments in 2-week sprints. Plan waves that keep the tracks inter-locked.
Respond with ONLY valid JSON:
{"methodology": "Dual-Track Agile Delivery", "methodology_description": "...", "total_waves": 0, "total_sprints": 0, "estimated_duration_months": 0, "key_principles": ["..."], "waves": [{"wave_number": 1, "name": "...", "track": "Discovery|Delivery", "track_description": "...", "applications": ["..."], "duration_weeks": 0, "sprint_count": 0, "dependencies_satisfied": ["..."], "risk_level": "Low|Medium|High", "success_criteria": ["..."], "delivery_approach": "...", "stakeholder_collaboration": "...", "notes": "..."}]}`

	detail, _ := json.Marshal(applications)
	var strategyNote string
	if strategies := strategiesFrom(state); len(strategies) > 0 {
		strategyNote = "\n\nAssigned strategies:\n" + formatStrategies(strategies)
	}
	response, err := p.chat(ctx, system, "Create a migration wave plan for these classified workloads:\n\n"+string(detail)+strategyNote)
	if err != nil {
		return nil, fmt.Errorf("wave planning: %w", err)
	}

	var plan *WavePlan
	if record, err := coerce.Extract(response); err == nil {
		plan = wavePlanFromRecord(record)
	}
	if plan == nil || len(plan.Waves) == 0 {
		plan = fallbackWavePlan(applications)
	}

	return engine.State{
		fieldWavePlan: plan,
		fieldWarnings: validateWavePlan(plan, applications),
	}, nil
}

func wavePlanFromRecord(record map[string]interface{}) *WavePlan {
	plan := &WavePlan{
		Methodology:             coerce.String(record, "methodology", "Dual-Track Agile Delivery"),
		MethodologyDescription:  coerce.String(record, "methodology_description", ""),
		EstimatedDurationMonths: coerce.Float(record, "estimated_duration_months", 0),
		KeyPrinciples:           coerce.Strings(record, "key_principles"),
	}
	for _, entry := range coerce.Records(record, "waves") {
		plan.Waves = append(plan.Waves, WaveGroup{
			WaveNumber:               coerce.Int(entry, "wave_number", len(plan.Waves)+1),
			Name:                     coerce.String(entry, "name", fmt.Sprintf("Wave %d", len(plan.Waves)+1)),
			Track:                    coerce.String(entry, "track", "Delivery"),
			TrackDescription:         coerce.String(entry, "track_description", ""),
			Applications:             coerce.Strings(entry, "applications"),
			DurationWeeks:            coerce.Int(entry, "duration_weeks", 4),
			SprintCount:              coerce.Int(entry, "sprint_count", 2),
			DependenciesSatisfied:    coerce.Strings(entry, "dependencies_satisfied"),
			RiskLevel:                coerce.String(entry, "risk_level", "Medium"),
			SuccessCriteria:          coerce.Strings(entry, "success_criteria"),
			DeliveryApproach:         coerce.String(entry, "delivery_approach", ""),
			StakeholderCollaboration: coerce.String(entry, "stakeholder_collaboration", ""),
			Notes:                    coerce.String(entry, "notes", ""),
		})
	}
	plan.TotalWaves = len(plan.Waves)
	for _, wave := range plan.Waves {
		plan.TotalSprints += wave.SprintCount
	}
	if plan.EstimatedDurationMonths == 0 {
		plan.EstimatedDurationMonths = monthsFromWeeks(totalDuration(plan.Waves))
	}
	return plan
}

// fallbackWavePlan groups the portfolio deterministically: workloads that
// are ready and low-complexity go straight onto the delivery track, the rest
// run through paired discovery/delivery waves, with the more complex half
// held back for the deeper second batch.
func fallbackWavePlan(applications []Application) *WavePlan {
	var ready, needsDiscovery []Application
	for _, app := range applications {
		if strings.Contains(strings.ToLower(app.MigrationReadiness), "ready") &&
			strings.EqualFold(app.Complexity, "low") {
			ready = append(ready, app)
		} else {
			needsDiscovery = append(needsDiscovery, app)
		}
	}
	half := (len(needsDiscovery) + 1) / 2
	batch1, batch2 := needsDiscovery[:half], needsDiscovery[half:]

	var waves []WaveGroup
	if len(ready) > 0 {
		waves = append(waves, WaveGroup{
			WaveNumber:       len(waves) + 1,
			Name:             "Discovery-Ready Migration",
			Track:            "Delivery",
			TrackDescription: "Validated workloads ready for immediate migration execution",
			Applications:     applicationNames(ready),
			DurationWeeks:    4,
			SprintCount:      2,
			RiskLevel:        "Low",
			SuccessCriteria: []string{
				"Migration increments delivered in 2-week sprints",
				"Migration patterns validated and documented",
			},
			DeliveryApproach:         "Time-boxed sprints with continuous delivery",
			StakeholderCollaboration: "Weekly demos and feedback sessions",
		})
	}
	if len(batch1) > 0 {
		waves = append(waves, WaveGroup{
			WaveNumber:            len(waves) + 1,
			Name:                  "Discovery Track - Batch 1",
			Track:                 "Discovery",
			TrackDescription:      "Investigation of user needs, technical feasibility and solution prototyping",
			Applications:          applicationNames(batch1),
			DurationWeeks:         6,
			SprintCount:           3,
			DependenciesSatisfied: []string{"Initial migration patterns established"},
			RiskLevel:             "Medium",
			SuccessCriteria: []string{
				"Technical feasibility validated",
				"Backlog items refined and sized",
			},
			DeliveryApproach:         "Discovery sprints feeding validated backlog to the delivery track",
			StakeholderCollaboration: "Continuous validation sessions",
		}, WaveGroup{
			WaveNumber:            len(waves) + 2,
			Name:                  "Delivery Track - Batch 1",
			Track:                 "Delivery",
			TrackDescription:      "Building and releasing validated migration increments",
			Applications:          applicationNames(batch1),
			DurationWeeks:         8,
			SprintCount:           4,
			DependenciesSatisfied: []string{"Discovery track validation completed"},
			RiskLevel:             "Medium",
			SuccessCriteria: []string{
				"Migration increments built and tested",
				"Production deployment successful",
			},
			DeliveryApproach:         "Short time-boxed sprints with continuous delivery",
			StakeholderCollaboration: "Sprint reviews and continuous feedback",
		})
	}
	if len(batch2) > 0 {
		waves = append(waves, WaveGroup{
			WaveNumber:            len(waves) + 1,
			Name:                  "Discovery Track - Complex Systems",
			Track:                 "Discovery",
			TrackDescription:      "Deep investigation of complex and critical systems",
			Applications:          applicationNames(batch2),
			DurationWeeks:         8,
			SprintCount:           4,
			DependenciesSatisfied: []string{"Batch 1 delivery patterns established"},
			RiskLevel:             "High",
			SuccessCriteria: []string{
				"Complex system dependencies mapped",
				"Detailed migration blueprints created",
			},
			DeliveryApproach:         "Extended discovery for complex systems",
			StakeholderCollaboration: "Intensive stakeholder workshops",
		}, WaveGroup{
			WaveNumber:            len(waves) + 2,
			Name:                  "Delivery Track - Complex Systems",
			Track:                 "Delivery",
			TrackDescription:      "Careful delivery of complex and critical systems",
			Applications:          applicationNames(batch2),
			DurationWeeks:         12,
			SprintCount:           6,
			DependenciesSatisfied: []string{"Complex systems discovery completed"},
			RiskLevel:             "High",
			SuccessCriteria: []string{
				"Complex systems migrated without downtime",
				"Performance and security validated",
			},
			DeliveryApproach:         "Careful incremental delivery with extensive testing",
			StakeholderCollaboration: "Continuous monitoring and feedback",
		})
	}

	totalSprints := 0
	for _, wave := range waves {
		totalSprints += wave.SprintCount
	}
	return &WavePlan{
		Methodology:             "Dual-Track Agile Delivery",
		MethodologyDescription:  "Discovery track investigates feasibility one sprint ahead while the delivery track builds validated migration increments in time-boxed sprints",
		TotalWaves:              len(waves),
		TotalSprints:            totalSprints,
		EstimatedDurationMonths: monthsFromWeeks(totalDuration(waves)),
		KeyPrinciples: []string{
			"Discovery track runs one sprint ahead of the delivery track",
			"Continuous flow of validated-then-built work",
			"Reduced rework through validation before building",
		},
		Waves: waves,
	}
}

// validateWavePlan reports coverage and sizing problems as warnings.
func validateWavePlan(plan *WavePlan, applications []Application) []string {
	var warnings []string
	covered := map[string]bool{}
	for _, wave := range plan.Waves {
		for _, name := range wave.Applications {
			covered[name] = true
		}
		if len(wave.Applications) == 0 {
			warnings = append(warnings, fmt.Sprintf("wave %d has no applications", wave.WaveNumber))
		} else if len(wave.Applications) > 10 {
			warnings = append(warnings, fmt.Sprintf("wave %d has too many applications (%d)", wave.WaveNumber, len(wave.Applications)))
		}
	}
	for _, app := range applications {
		if !covered[app.Name] {
			warnings = append(warnings, fmt.Sprintf("application %q is not included in any wave", app.Name))
		}
	}
	return warnings
}

func applicationNames(applications []Application) []string {
	names := make([]string, 0, len(applications))
	for _, app := range applications {
		names = append(names, app.Name)
	}
	return names
}

func totalDuration(waves []WaveGroup) int {
	total := 0
	for _, wave := range waves {
		total += wave.DurationWeeks
	}
	return total
}

// monthsFromWeeks converts using the average weeks-per-month factor.
func monthsFromWeeks(weeks int) float64 {
	return round1(float64(weeks) / 4.33)
}
