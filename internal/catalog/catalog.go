// Package catalog loads the static technology catalog: items, their
// condition trees and modifier chains, swap rules and the unlock index.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"github.com/xtding233/techdraw/internal/condition"
)

const (
	TechnologiesFile = "technologies.json"
	SwapsFile        = "technology_swaps.json"
)

var (
	//go:embed schemas/technologies.schema.json
	technologiesSchema string
	//go:embed schemas/technology_swaps.schema.json
	swapsSchema string

	techSchema = jsonschema.MustCompileString("technologies.schema.json", technologiesSchema)
	swapSchema = jsonschema.MustCompileString("technology_swaps.schema.json", swapsSchema)
)

var (
	ErrEmptyCatalog = errors.New("catalog: no technologies")
	ErrSchema       = errors.New("catalog: schema violation")
)

// Catalog is read-only after Load.
type Catalog struct {
	Items []*Item
	// Areas lists top-level categories in first-seen order.
	Areas []string
	// Unlocks maps an item to the items whose prerequisites reference it.
	Unlocks map[string][]string
	// Warnings lists suspect entries found while loading.
	Warnings []condition.Warning

	byID map[string]*Item
}

// Item returns the item with the given id.
func (c *Catalog) Item(id string) (*Item, bool) {
	it, ok := c.byID[id]
	return it, ok
}

func (c *Catalog) Len() int { return len(c.Items) }

// MaxTier returns the highest tier present in the catalog.
func (c *Catalog) MaxTier() int {
	m := 0
	for _, it := range c.Items {
		if it.Tier > m {
			m = it.Tier
		}
	}
	return m
}

// Load reads technologies.json and the optional technology_swaps.json from dir.
func Load(dir string) (*Catalog, error) {
	techs, err := os.ReadFile(filepath.Join(dir, TechnologiesFile))
	if err != nil {
		return nil, fmt.Errorf("read technologies: %w", err)
	}
	swaps, err := os.ReadFile(filepath.Join(dir, SwapsFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read swaps: %w", err)
	}
	return Parse(techs, swaps)
}

// Parse builds a catalog from raw JSON documents. swaps may be empty.
func Parse(techs, swaps []byte) (*Catalog, error) {
	if err := validate(techSchema, techs); err != nil {
		return nil, fmt.Errorf("%s: %w", TechnologiesFile, err)
	}
	if len(bytes.TrimSpace(swaps)) > 0 {
		if err := validate(swapSchema, swaps); err != nil {
			return nil, fmt.Errorf("%s: %w", SwapsFile, err)
		}
	}

	c := &Catalog{
		Unlocks: make(map[string][]string),
		byID:    make(map[string]*Item),
	}
	seenArea := make(map[string]bool)
	gjson.ParseBytes(techs).ForEach(func(k, v gjson.Result) bool {
		it := c.parseItem(k.String(), v)
		it.Index = len(c.Items)
		c.Items = append(c.Items, it)
		c.byID[it.ID] = it
		if !seenArea[it.Area] {
			seenArea[it.Area] = true
			c.Areas = append(c.Areas, it.Area)
		}
		return true
	})
	if len(c.Items) == 0 {
		return nil, ErrEmptyCatalog
	}

	if len(swaps) > 0 {
		gjson.ParseBytes(swaps).ForEach(func(k, v gjson.Result) bool {
			c.parseSwaps(k.String(), v)
			return true
		})
	}

	c.buildUnlocks()
	return c, nil
}

func validate(s *jsonschema.Schema, raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

func (c *Catalog) warn(ws ...condition.Warning) {
	c.Warnings = append(c.Warnings, ws...)
}

func (c *Catalog) parseItem(id string, v gjson.Result) *Item {
	it := &Item{
		ID:        id,
		Area:      v.Get("area").String(),
		Category:  v.Get("category").String(),
		Tier:      int(v.Get("tier").Int()),
		Weight:    v.Get("weight").Float(),
		Group:     v.Get("group").String(),
		Rare:      v.Get("is_rare").Bool(),
		Dangerous: v.Get("is_dangerous").Bool(),
		Permanent: v.Get("permanent").Bool(),
		Icon:      v.Get("icon").String(),
	}
	var ws []condition.Warning
	it.Availability, ws = condition.ParseResult(v.Get("potential"), id+".potential")
	c.warn(ws...)
	it.Prerequisites, ws = condition.ParseResult(v.Get("prerequisites"), id+".prerequisites")
	c.warn(ws...)

	i := 0
	v.Get("weight_modifiers").ForEach(func(_, m gjson.Result) bool {
		path := fmt.Sprintf("%s.weight_modifiers[%d]", id, i)
		i++
		if mod, ok := c.parseModifier(m, path); ok {
			it.Modifiers = append(it.Modifiers, mod)
		}
		return true
	})
	return it
}

// parseModifier accepts {"factor": f, "condition": tree}, the inline form
// {"factor": f, <atoms>...}, or {"script": name}.
func (c *Catalog) parseModifier(m gjson.Result, path string) (Modifier, bool) {
	if s := m.Get("script"); s.Exists() {
		name := s.String()
		if !KnownScript(name) {
			c.warn(condition.Warning{Path: path, Message: fmt.Sprintf("unrecognized script %q contributes nothing", name)})
			return UnknownScript{Name: name}, true
		}
		return ScriptCall{Script: Script(name)}, true
	}
	f := m.Get("factor")
	if !f.Exists() {
		c.warn(condition.Warning{Path: path, Message: "modifier has neither factor nor script; skipped"})
		return nil, false
	}
	var (
		cond condition.Node
		ws   []condition.Warning
	)
	if cr := m.Get("condition"); cr.Exists() {
		cond, ws = condition.ParseResult(cr, path+".condition")
	} else {
		// Inline atoms: everything except the factor itself.
		var terms []condition.Node
		m.ForEach(func(k, v gjson.Result) bool {
			if k.String() == "factor" {
				return true
			}
			obj := fmt.Sprintf(`{%s:%s}`, k.Raw, v.Raw)
			n, w := condition.ParseResult(gjson.Parse(obj), path+"."+k.String())
			ws = append(ws, w...)
			terms = append(terms, n)
			return true
		})
		cond = condition.And{Terms: terms}
	}
	c.warn(ws...)
	return Factor{Factor: f.Float(), Condition: cond}, true
}

func (c *Catalog) parseSwaps(id string, list gjson.Result) {
	it, ok := c.byID[id]
	if !ok {
		c.warn(condition.Warning{Path: "swaps." + id, Message: "swap for unknown technology ignored"})
		return
	}
	i := 0
	list.ForEach(func(_, s gjson.Result) bool {
		path := fmt.Sprintf("swaps.%s[%d]", id, i)
		i++
		trig, ws := condition.ParseResult(s.Get("trigger"), path+".trigger")
		c.warn(ws...)
		wf := 1.0
		if f := s.Get("weight_factor"); f.Exists() {
			wf = f.Float()
		}
		it.Swaps = append(it.Swaps, Swap{
			Name:         s.Get("name").String(),
			Trigger:      trig,
			Category:     s.Get("category").String(),
			WeightFactor: wf,
		})
		return true
	})
}

func (c *Catalog) buildUnlocks() {
	for _, it := range c.Items {
		for _, ref := range condition.References(it.Prerequisites) {
			if _, ok := c.byID[ref]; !ok {
				c.warn(condition.Warning{Path: it.ID + ".prerequisites", Message: fmt.Sprintf("references unknown technology %q", ref)})
				continue
			}
			c.Unlocks[ref] = append(c.Unlocks[ref], it.ID)
		}
	}
	for k := range c.Unlocks {
		sort.Strings(c.Unlocks[k])
	}
}
