package evaluation

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nicodishanthj/Modeval_phase1/internal/common"
)

//go:embed config/modernize_ai_spec.yaml
var embeddedSpec []byte

// Workstream is one delivery track inside a migration phase.
type Workstream struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// PhaseSpec describes what good looks like for one phase.
type PhaseSpec struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Workstreams []Workstream `yaml:"workstreams"`
}

// Spec is the migrate.ai assessment framework the evaluators score against.
type Spec struct {
	Name           string              `yaml:"name"`
	Version        string              `yaml:"version"`
	Phases         map[Phase]PhaseSpec `yaml:"phases"`
	CorePrinciples []string            `yaml:"core_principles"`
	RedFlags       []string            `yaml:"red_flags"`
}

type specFile struct {
	Spec Spec `yaml:"migrate_ai_specification"`
}

// LoadSpec returns the assessment framework. The embedded copy is the
// default; a non-empty path overrides it so the framework can evolve without
// a rebuild.
func LoadSpec(path string) (*Spec, error) {
	data := embeddedSpec
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read spec override: %w", err)
		}
		data = fileData
		common.Logger().Info("evaluation: using spec override", "path", path)
	}
	var parsed specFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse spec: %w", err)
	}
	if len(parsed.Spec.Phases) == 0 {
		return nil, fmt.Errorf("parse spec: no phases defined")
	}
	for _, phase := range AllPhases {
		if _, ok := parsed.Spec.Phases[phase]; !ok {
			return nil, fmt.Errorf("parse spec: phase %s missing", phase)
		}
	}
	return &parsed.Spec, nil
}
