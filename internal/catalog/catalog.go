// Package catalog provides the content items a learner can practice.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Item is one practicable piece of content.
type Item struct {
	ID            string `yaml:"id" json:"id" validate:"required"`
	SkillCategory string `yaml:"skill_category" json:"skill_category" validate:"required"`
	Difficulty    int    `yaml:"difficulty" json:"difficulty" validate:"gte=0"`
	XPBase        int    `yaml:"xp_base" json:"xp_base" validate:"gte=0"`
	CorrectAnswer string `yaml:"correct_answer" json:"correct_answer"`
}

// Catalog is an immutable, id-indexed set of items.
type Catalog struct {
	items []Item
	byID  map[string]int
}

// New builds a catalog, rejecting duplicate or empty ids.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	for _, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return nil, fmt.Errorf("catalog item with empty id (category %q)", item.SkillCategory)
		}
		if _, ok := c.byID[item.ID]; ok {
			return nil, fmt.Errorf("duplicate catalog item id %q", item.ID)
		}
		c.byID[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}
	return c, nil
}

// Get returns the item for id.
func (c *Catalog) Get(id string) (Item, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Items returns all items ordered by id.
func (c *Catalog) Items() []Item {
	result := make([]Item, len(c.items))
	copy(result, c.items)
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

func (c *Catalog) Len() int {
	return len(c.items)
}

// Unseen returns the items whose id is not in seen, ordered by id.
func (c *Catalog) Unseen(seen map[string]struct{}) []Item {
	var result []Item
	for _, item := range c.Items() {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		result = append(result, item)
	}
	return result
}

// IsCorrectAnswer compares answers ignoring case and surrounding or repeated whitespace.
func (item Item) IsCorrectAnswer(answer string) bool {
	if item.CorrectAnswer == "" {
		return false
	}
	return normalizeAnswer(answer) == normalizeAnswer(item.CorrectAnswer)
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
