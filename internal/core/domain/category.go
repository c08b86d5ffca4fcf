package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// OtherCategory is the fallback every taxonomy carries.
const OtherCategory = "Other"

type Category struct {
	Name          string   `json:"name" yaml:"name"`
	Subcategories []string `json:"subcategories,omitempty" yaml:"subcategories,omitempty"`
}

// Categories is the normalized label taxonomy. Build it with NewCategories,
// CategoriesFromList or CategoriesFromMap; it is read-only afterwards.
type Categories struct {
	items []Category
	index map[string]int
}

// NewCategories normalizes an ordered category list. Names are trimmed, empty
// names are dropped, repeated names merge their sub-categories, and "Other" is
// appended when missing. An empty input is a configuration error.
func NewCategories(items []Category) (Categories, error) {
	out := Categories{index: make(map[string]int, len(items)+1)}
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		pos, ok := out.index[name]
		if !ok {
			pos = len(out.items)
			out.index[name] = pos
			out.items = append(out.items, Category{Name: name})
		}
		out.items[pos].Subcategories = mergeSubcategories(out.items[pos].Subcategories, item.Subcategories)
	}
	if len(out.items) == 0 {
		return Categories{}, WrapError(ErrConfiguration, "normalize categories", errors.New("no categories configured"))
	}
	if _, ok := out.index[OtherCategory]; !ok {
		out.index[OtherCategory] = len(out.items)
		out.items = append(out.items, Category{Name: OtherCategory})
	}
	return out, nil
}

// CategoriesFromList treats a flat label list as categories without sub-categories.
func CategoriesFromList(names []string) (Categories, error) {
	items := make([]Category, 0, len(names))
	for _, name := range names {
		items = append(items, Category{Name: name})
	}
	return NewCategories(items)
}

// CategoriesFromMap accepts the hierarchical form. Go maps are unordered, so
// categories are sorted by name to keep prompts and directory layout stable.
func CategoriesFromMap(labels map[string][]string) (Categories, error) {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]Category, 0, len(names))
	for _, name := range names {
		items = append(items, Category{Name: name, Subcategories: labels[name]})
	}
	return NewCategories(items)
}

// NormalizeCategories accepts every label shape the CLI and config files
// produce: a flat list, a hierarchical map, their loosely typed YAML
// decodings, or an already normalized value.
func NormalizeCategories(labels any) (Categories, error) {
	switch v := labels.(type) {
	case Categories:
		if v.Len() == 0 {
			return Categories{}, WrapError(ErrConfiguration, "normalize categories", errors.New("no categories configured"))
		}
		return v, nil
	case []Category:
		return NewCategories(v)
	case []string:
		return CategoriesFromList(v)
	case map[string][]string:
		return CategoriesFromMap(v)
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return Categories{}, WrapError(ErrConfiguration, "normalize categories", fmt.Errorf("label %v is not a string", item))
			}
			names = append(names, name)
		}
		return CategoriesFromList(names)
	case map[string]any:
		out := make(map[string][]string, len(v))
		for name, raw := range v {
			subs, err := subcategoryList(raw)
			if err != nil {
				return Categories{}, WrapError(ErrConfiguration, "normalize categories", fmt.Errorf("category %q: %w", name, err))
			}
			out[name] = subs
		}
		return CategoriesFromMap(out)
	case nil:
		return Categories{}, WrapError(ErrConfiguration, "normalize categories", errors.New("no categories configured"))
	default:
		return Categories{}, WrapError(ErrConfiguration, "normalize categories", fmt.Errorf("unsupported labels type %T", labels))
	}
}

func subcategoryList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("sub-category %v is not a string", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported sub-categories type %T", raw)
	}
}

func mergeSubcategories(existing, extra []string) []string {
	for _, sub := range extra {
		sub = strings.TrimSpace(sub)
		if sub == "" || containsExact(existing, sub) {
			continue
		}
		existing = append(existing, sub)
	}
	return existing
}

func containsExact(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

func (c Categories) Len() int {
	return len(c.items)
}

// Items returns a copy of the categories in configured order.
func (c Categories) Items() []Category {
	out := make([]Category, len(c.items))
	for i, item := range c.items {
		out[i] = Category{Name: item.Name, Subcategories: append([]string(nil), item.Subcategories...)}
	}
	return out
}

func (c Categories) Names() []string {
	out := make([]string, len(c.items))
	for i, item := range c.items {
		out[i] = item.Name
	}
	return out
}

func (c Categories) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

func (c Categories) Subcategories(name string) []string {
	pos, ok := c.index[name]
	if !ok {
		return nil
	}
	return append([]string(nil), c.items[pos].Subcategories...)
}

// HasSubcategories reports whether any category is hierarchical.
func (c Categories) HasSubcategories() bool {
	for _, item := range c.items {
		if len(item.Subcategories) > 0 {
			return true
		}
	}
	return false
}

// ToMap is the JSON/YAML friendly view used in logs.
func (c Categories) ToMap() map[string][]string {
	out := make(map[string][]string, len(c.items))
	for _, item := range c.items {
		out[item.Name] = append([]string{}, item.Subcategories...)
	}
	return out
}
