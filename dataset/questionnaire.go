// SPDX-License-Identifier: MIT

package dataset

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Item is one questionnaire item.
type Item struct {
	Name     string   `yaml:"name" json:"name"`
	Question string   `yaml:"question,omitempty" json:"question,omitempty"`
	Levels   []string `yaml:"levels" json:"levels"`
}

// NLevels returns the number of response levels.
func (it Item) NLevels() int { return len(it.Levels) }

// Questionnaire is the ordered list of items.
type Questionnaire struct {
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Items []Item `yaml:"items" json:"items"`
}

// NItems returns the number of items.
func (q Questionnaire) NItems() int { return len(q.Items) }

// Validate checks item names and level counts.
func (q Questionnaire) Validate() error {
	if len(q.Items) == 0 {
		return ErrNoItems
	}
	seen := make(map[string]bool, len(q.Items))
	for i, it := range q.Items {
		if seen[it.Name] {
			return fmt.Errorf("item %d %q: %w", i, it.Name, ErrDuplicateItem)
		}
		seen[it.Name] = true
		if it.NLevels() < 2 {
			return fmt.Errorf("item %d %q: %d levels: %w", i, it.Name, it.NLevels(), ErrLevels)
		}
	}
	return nil
}

// NewQuestionnaire returns a questionnaire of n items named "Q1".."Qn",
// each with the given number of levels labelled "1".."levels".
func NewQuestionnaire(n, levels int) Questionnaire {
	lv := make([]string, levels)
	for l := range lv {
		lv[l] = fmt.Sprint(l + 1)
	}
	q := Questionnaire{Items: make([]Item, n)}
	for i := range q.Items {
		q.Items[i] = Item{Name: fmt.Sprintf("Q%d", i+1), Levels: lv}
	}
	return q
}

// ReadQuestionnaire decodes a YAML questionnaire and validates it.
func ReadQuestionnaire(r io.Reader) (Questionnaire, error) {
	var q Questionnaire
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&q); err != nil {
		return Questionnaire{}, fmt.Errorf("read questionnaire: %w", err)
	}
	if err := q.Validate(); err != nil {
		return Questionnaire{}, fmt.Errorf("read questionnaire: %w", err)
	}
	return q, nil
}
