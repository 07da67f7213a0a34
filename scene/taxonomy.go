package scene

import (
	"sort"
	"strings"
)

// Category is coarse class of a detection label
type Category string

const (
	CategoryPPE       = Category("ppe")
	CategoryBlock     = Category("block")
	CategoryTool      = Category("tool")
	CategoryWorker    = Category("worker")
	CategoryEquipment = Category("equipment")
	CategoryOther     = Category("other")
)

// CategoryRule matches a label either exactly (case-insensitive) or by keyword substring.
type CategoryRule struct {
	Category Category `yaml:"category"`
	Labels   []string `yaml:"labels"`
	Keywords []string `yaml:"keywords"`
}

func (rule CategoryRule) matches(lowered string) bool {
	for _, label := range rule.Labels {
		if strings.ToLower(label) == lowered {
			return true
		}
	}
	for _, keyword := range rule.Keywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// Taxonomy classifies labels. Rules are evaluated in order, first match wins.
type Taxonomy struct {
	Rules        []CategoryRule `yaml:"rules"`
	HandKeywords []string       `yaml:"hand_keywords"`
}

// DefaultTaxonomy returns label taxonomy for construction worksites
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Rules: []CategoryRule{
			{
				Category: CategoryPPE,
				Labels:   []string{"safety vest", "hard hat", "safety helmet", "head protection", "hand protection", "gloves", "gloved hand", "safety"},
				Keywords: []string{"vest", "helmet", "hat", "glove", "safety"},
			},
			{
				Category: CategoryBlock,
				Labels:   []string{"concrete block", "cinder block", "brick"},
				Keywords: []string{"block", "brick"},
			},
			{
				Category: CategoryTool,
				Labels:   []string{"trowel", "bucket", "hammer", "wheelbarrow"},
				Keywords: []string{"trowel", "bucket"},
			},
			{
				Category: CategoryWorker,
				Labels:   []string{"worker", "person"},
				Keywords: []string{"worker", "person"},
			},
			{
				Category: CategoryEquipment,
				Labels:   []string{"crane", "scaffolding", "ladder", "machinery"},
				Keywords: []string{"crane", "scaffold"},
			},
		},
		HandKeywords: []string{"hand", "glove"},
	}
}

// Classify returns category of label
func (tx Taxonomy) Classify(label string) Category {
	lowered := strings.ToLower(label)
	for _, rule := range tx.Rules {
		if rule.matches(lowered) {
			return rule.Category
		}
	}
	return CategoryOther
}

// IsHand reports whether label denotes a hand-like object
func (tx Taxonomy) IsHand(label string) bool {
	lowered := strings.ToLower(label)
	for _, keyword := range tx.HandKeywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func sortObjectIDs(ids []ObjectID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
