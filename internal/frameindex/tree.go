package frameindex

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/config"
)

// DuplicatePolicy decides what BuildTree does with a second record for a
// tuple that is already indexed.
type DuplicatePolicy int

const (
	KeepFirst DuplicatePolicy = iota
	FailOnDuplicate
)

func (p DuplicatePolicy) String() string {
	if p == FailOnDuplicate {
		return config.DuplicateFail
	}
	return config.DuplicateKeepFirst
}

// ParseDuplicatePolicy maps the configuration spelling onto a policy.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "", config.DuplicateKeepFirst:
		return KeepFirst, nil
	case config.DuplicateFail:
		return FailOnDuplicate, nil
	default:
		return KeepFirst, fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// level is one mapping of the tree. keys keeps insertion order.
type level[V any] struct {
	keys     []string
	children map[string]V
}

func newLevel[V any]() *level[V] {
	return &level[V]{children: make(map[string]V)}
}

func (l *level[V]) get(key string) (V, bool) {
	v, ok := l.children[key]
	return v, ok
}

func (l *level[V]) getOrCreate(key string, create func() V) V {
	if v, ok := l.children[key]; ok {
		return v
	}
	v := create()
	l.children[key] = v
	l.keys = append(l.keys, key)
	return v
}

func (l *level[V]) keyList() []string {
	out := make([]string, len(l.keys))
	copy(out, l.keys)
	return out
}

type (
	yearLevel  = level[string]
	sizeLevel  = level[*yearLevel]
	modelLevel = level[*sizeLevel]
	brandLevel = level[*modelLevel]
)

// Tree is the brand → model → size → year → id index. It is built once by
// BuildTree and read-only afterwards.
type Tree struct {
	brands *brandLevel
	size   int
}

// BuildTree indexes records in input order. Under KeepFirst the first id
// seen for a tuple wins and later ones are dropped.
func BuildTree(records []frame.Record, policy DuplicatePolicy) (*Tree, error) {
	t := &Tree{brands: newLevel[*modelLevel]()}
	for _, rec := range records {
		models := t.brands.getOrCreate(rec.Brand, newLevel[*sizeLevel])
		sizes := models.getOrCreate(rec.Model, newLevel[*yearLevel])
		years := sizes.getOrCreate(rec.Size, newLevel[string])
		if existing, ok := years.get(rec.Year); ok {
			if policy == FailOnDuplicate {
				return nil, &DuplicateError{Path: rec.Path(), ExistingID: existing, DuplicateID: rec.ID}
			}
			continue
		}
		years.getOrCreate(rec.Year, func() string { return rec.ID })
		t.size++
	}
	return t, nil
}

// Len is the number of indexed tuples.
func (t *Tree) Len() int {
	return t.size
}

func (t *Tree) Brands() []string {
	return t.brands.keyList()
}

func (t *Tree) Models(brand string) ([]string, error) {
	models, err := t.models(brand)
	if err != nil {
		return nil, err
	}
	return models.keyList(), nil
}

func (t *Tree) Sizes(brand, model string) ([]string, error) {
	sizes, err := t.sizes(brand, model)
	if err != nil {
		return nil, err
	}
	return sizes.keyList(), nil
}

func (t *Tree) Years(brand, model, size string) ([]string, error) {
	years, err := t.years(brand, model, size)
	if err != nil {
		return nil, err
	}
	return years.keyList(), nil
}

// ID returns the record id indexed under the full path.
func (t *Tree) ID(brand, model, size, year string) (string, error) {
	years, err := t.years(brand, model, size)
	if err != nil {
		return "", err
	}
	id, ok := years.get(year)
	if !ok {
		return "", &NotFoundError{Level: LevelYear, Path: []string{brand, model, size, year}}
	}
	return id, nil
}

func (t *Tree) models(brand string) (*modelLevel, error) {
	models, ok := t.brands.get(brand)
	if !ok {
		return nil, &NotFoundError{Level: LevelBrand, Path: []string{brand}}
	}
	return models, nil
}

func (t *Tree) sizes(brand, model string) (*sizeLevel, error) {
	models, err := t.models(brand)
	if err != nil {
		return nil, err
	}
	sizes, ok := models.get(model)
	if !ok {
		return nil, &NotFoundError{Level: LevelModel, Path: []string{brand, model}}
	}
	return sizes, nil
}

func (t *Tree) years(brand, model, size string) (*yearLevel, error) {
	sizes, err := t.sizes(brand, model)
	if err != nil {
		return nil, err
	}
	years, ok := sizes.get(size)
	if !ok {
		return nil, &NotFoundError{Level: LevelSize, Path: []string{brand, model, size}}
	}
	return years, nil
}
