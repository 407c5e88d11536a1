// Package registry loads signal definitions and the ICP profile from YAML
// configuration, falling back to embedded defaults.
package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/signals-cli/internal/model"
)

// signalFile is the on-disk shape of a signal registry file.
type signalFile struct {
	Signals []model.SignalDefinition `yaml:"signals"`
}

// LoadSignals reads signal definitions from the given YAML path. An empty
// path returns the embedded defaults.
func LoadSignals(path string) ([]model.SignalDefinition, error) {
	if path == "" {
		return DefaultSignals(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read signals file")
	}

	var f signalFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal signals file")
	}

	if err := ValidateSignals(f.Signals); err != nil {
		return nil, err
	}
	return f.Signals, nil
}

// LoadProfile reads the ICP profile from the given YAML path. An empty path
// returns the embedded default.
func LoadProfile(path string) (model.Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Profile{}, eris.Wrap(err, "registry: read profile file")
	}

	var p model.Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return model.Profile{}, eris.Wrap(err, "registry: unmarshal profile file")
	}
	if strings.TrimSpace(p.Offer) == "" {
		return model.Profile{}, eris.New("registry: profile offer must not be empty")
	}
	return p, nil
}

// ValidateSignals checks structural invariants: at least one signal, unique
// non-empty ids, valid priorities, positive weights on scoring signals.
func ValidateSignals(signals []model.SignalDefinition) error {
	if len(signals) == 0 {
		return eris.New("registry: no signals defined")
	}

	seen := make(map[string]bool, len(signals))
	var problems []string
	for _, s := range signals {
		if s.ID == "" {
			problems = append(problems, "signal with empty id")
			continue
		}
		if seen[s.ID] {
			problems = append(problems, fmt.Sprintf("duplicate signal id %q", s.ID))
		}
		seen[s.ID] = true
		if !s.Priority.Valid() {
			problems = append(problems, fmt.Sprintf("signal %q has invalid priority %q", s.ID, s.Priority))
		}
		if !s.IsDisqualifier && s.Weight <= 0 {
			problems = append(problems, fmt.Sprintf("signal %q must have weight > 0", s.ID))
		}
		if strings.TrimSpace(s.Question) == "" {
			problems = append(problems, fmt.Sprintf("signal %q has no question", s.ID))
		}
	}

	hasScoring := false
	for _, s := range signals {
		if !s.IsDisqualifier {
			hasScoring = true
			break
		}
	}
	if !hasScoring {
		problems = append(problems, "at least one non-disqualifier signal is required")
	}

	if len(problems) > 0 {
		return eris.New("registry: " + strings.Join(problems, "; "))
	}
	return nil
}
