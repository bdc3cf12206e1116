package orchestration

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/powerskills-labs/powerskills-go/internal/domain"
)

// ChainDeriver turns a free-text task description into an ordered
// skill chain. Implementations must be deterministic and total: every
// non-empty description yields at least one step, numbered 1..n.
type ChainDeriver interface {
	Derive(taskDescription string) []domain.SkillChainStep
}

// Rule appends one step when any trigger appears in the lowercased
// task description. Rules fire in declaration order.
type Rule struct {
	Name              string         `yaml:"name"`
	Triggers          []string       `yaml:"triggers"`
	SkillID           string         `yaml:"skill_id"`
	SkillName         string         `yaml:"skill_name"`
	Platform          string         `yaml:"platform"`
	Input             map[string]any `yaml:"input"`
	OutputFormat      string         `yaml:"output_format"`
	DependsOnPrevious bool           `yaml:"depends_on_previous"`
}

func (r Rule) validate(requireTriggers bool) error {
	if strings.TrimSpace(r.SkillID) == "" {
		return fmt.Errorf("rule %q: skill_id is required", r.Name)
	}
	if strings.TrimSpace(r.SkillName) == "" {
		return fmt.Errorf("rule %q: skill_name is required", r.Name)
	}
	if !domain.ValidPlatform(r.Platform) {
		return fmt.Errorf("rule %q: unknown platform %q", r.Name, r.Platform)
	}
	if requireTriggers && len(r.Triggers) == 0 {
		return fmt.Errorf("rule %q: at least one trigger is required", r.Name)
	}
	return nil
}

type RuleSet struct {
	Rules    []Rule `yaml:"rules"`
	Fallback Rule   `yaml:"fallback"`
}

func (rs RuleSet) Validate() error {
	if len(rs.Rules) == 0 {
		return errors.New("rule set needs at least one rule")
	}
	for _, rule := range rs.Rules {
		if err := rule.validate(true); err != nil {
			return err
		}
	}
	return rs.Fallback.validate(false)
}

// DefaultRuleSet is the built-in planner: web scraping, content
// analysis, and report generation, with a catch-all default skill.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Rules: []Rule{
			{
				Name:         "web-scrape",
				Triggers:     []string{"网站", "网页", "url", "http", "website", "webpage"},
				SkillID:      "sk_web_scraper",
				SkillName:    "Web Scraper Pro",
				Platform:     domain.PlatformCoze,
				Input:        map[string]any{"url": "input_url"},
				OutputFormat: "JSON",
			},
			{
				Name:              "content-analysis",
				Triggers:          []string{"分析", "analysis", "analyze"},
				SkillID:           "sk_content_analyzer",
				SkillName:         "Content Analyzer",
				Platform:          domain.PlatformDify,
				OutputFormat:      "JSON",
				DependsOnPrevious: true,
			},
			{
				Name:              "report-generation",
				Triggers:          []string{"报告", "生成", "report", "generate"},
				SkillID:           "sk_report_generator",
				SkillName:         "Report Generator",
				Platform:          domain.PlatformLangchain,
				OutputFormat:      "PDF",
				DependsOnPrevious: true,
			},
		},
		Fallback: Rule{
			Name:         "default",
			SkillID:      "sk_default",
			SkillName:    "Default Skill",
			Platform:     domain.PlatformCustom,
			OutputFormat: "JSON",
		},
	}
}

// LoadRuleSet reads a YAML rule file, letting deployments swap the
// planner's rules without a rebuild.
func LoadRuleSet(path string) (RuleSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rule set: %w", err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parse rule set: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

type RuleDeriver struct {
	rules RuleSet
}

func NewRuleDeriver(rules RuleSet) (*RuleDeriver, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &RuleDeriver{rules: rules}, nil
}

func (d *RuleDeriver) Derive(taskDescription string) []domain.SkillChainStep {
	taskLower := strings.ToLower(taskDescription)

	var chain []domain.SkillChainStep
	for _, rule := range d.rules.Rules {
		if !matchesAny(taskLower, rule.Triggers) {
			continue
		}
		chain = append(chain, d.step(rule, len(chain)+1))
	}
	if len(chain) == 0 {
		chain = append(chain, d.step(d.rules.Fallback, 1))
	}
	return chain
}

func (d *RuleDeriver) step(rule Rule, number int) domain.SkillChainStep {
	outputFormat := rule.OutputFormat
	if outputFormat == "" {
		outputFormat = "JSON"
	}
	input := make(map[string]any, len(rule.Input))
	for k, v := range rule.Input {
		input[k] = v
	}
	var dependsOn []int
	if rule.DependsOnPrevious && number > 1 {
		dependsOn = []int{number - 1}
	}
	return domain.SkillChainStep{
		Step:         number,
		SkillID:      rule.SkillID,
		SkillName:    rule.SkillName,
		Platform:     rule.Platform,
		Input:        input,
		OutputFormat: outputFormat,
		DependsOn:    dependsOn,
	}
}

func matchesAny(text string, triggers []string) bool {
	for _, trigger := range triggers {
		if trigger == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(trigger)) {
			return true
		}
	}
	return false
}
