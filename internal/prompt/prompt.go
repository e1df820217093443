// Package prompt holds the versioned generation prompts and the difficulty
// calibration policy they render. Changing calibration is a data change: the
// defaults here can be overridden from a YAML file.
package prompt

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template is one stage's prompt
type Template struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	System    string `yaml:"system"`
	User      string `yaml:"user"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Policy is the difficulty calibration rendered into the synthesis prompt
type Policy struct {
	NumberChangeMinPct int `yaml:"number_change_min_pct"`
	NumberChangeMaxPct int `yaml:"number_change_max_pct"`
	PercentPointsMin   int `yaml:"percent_points_min"`
	PercentPointsMax   int `yaml:"percent_points_max"`
	// TemporalUnits names how far dates may move, e.g. "months or quarters"
	TemporalUnits string `yaml:"temporal_units"`
}

// Set is the full collection of prompts used by one run
type Set struct {
	Extract    Template `yaml:"extract"`
	Synthesize Template `yaml:"synthesize"`
	Feedback   Template `yaml:"feedback"`
	Policy     Policy   `yaml:"policy"`
}

// Rendered is a template filled with per-call data
type Rendered struct {
	Name      string
	Version   string
	System    string
	User      string
	MaxTokens int
}

// Render executes the system and user templates against data
func (t Template) Render(data any) (Rendered, error) {
	system, err := execute(t.Name+".system", t.System, data)
	if err != nil {
		return Rendered{}, err
	}
	user, err := execute(t.Name+".user", t.User, data)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{
		Name:      t.Name,
		Version:   t.Version,
		System:    strings.TrimSpace(system),
		User:      strings.TrimSpace(user),
		MaxTokens: t.MaxTokens,
	}, nil
}

// ID identifies the template for logs, e.g. "synthesize@v3"
func (t Template) ID() string {
	return t.Name + "@" + t.Version
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

func execute(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Load returns the default set with any fields present in the YAML file at path
// overriding it. An empty path returns the defaults.
func Load(path string) (Set, error) {
	set := Default()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read prompt file: %w", err)
	}
	if err := yaml.Unmarshal(data, &set); err != nil {
		return Set{}, fmt.Errorf("parse prompt file: %w", err)
	}
	if err := set.Validate(); err != nil {
		return Set{}, fmt.Errorf("prompt file %s: %w", path, err)
	}
	return set, nil
}

// Validate checks that every template parses and the policy ranges are sane
func (s Set) Validate() error {
	for _, t := range []Template{s.Extract, s.Synthesize, s.Feedback} {
		if strings.TrimSpace(t.User) == "" {
			return fmt.Errorf("template %q has no user prompt", t.Name)
		}
		if _, err := template.New(t.Name).Funcs(funcs).Parse(t.System + t.User); err != nil {
			return fmt.Errorf("template %q: %w", t.Name, err)
		}
	}
	p := s.Policy
	if p.NumberChangeMinPct <= 0 || p.NumberChangeMaxPct < p.NumberChangeMinPct {
		return fmt.Errorf("policy: invalid number change range %d-%d%%", p.NumberChangeMinPct, p.NumberChangeMaxPct)
	}
	if p.PercentPointsMin <= 0 || p.PercentPointsMax < p.PercentPointsMin {
		return fmt.Errorf("policy: invalid percentage point range %d-%d", p.PercentPointsMin, p.PercentPointsMax)
	}
	return nil
}
