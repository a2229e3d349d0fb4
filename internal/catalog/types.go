package catalog

import "github.com/xtding233/techdraw/internal/condition"

// Item is one research technology.
type Item struct {
	ID        string
	Area      string // top-level category: draws never compete across areas
	Category  string // sub-category, key of the category bonus map
	Tier      int
	Weight    float64 // base weight
	Group     string  // related items for diminishing returns
	Rare      bool
	Dangerous bool
	Permanent bool
	Icon      string

	Availability  condition.Node
	Prerequisites condition.Node
	Modifiers     []Modifier
	Swaps         []Swap

	// Index is the item's position in catalog order.
	Index int
}

// Modifier is one entry of an item's weight modifier chain.
type Modifier interface {
	isModifier()
}

// Factor multiplies the weight by Factor while Condition holds.
type Factor struct {
	Factor    float64
	Condition condition.Node
}

// ScriptCall invokes a registered weight script.
type ScriptCall struct {
	Script Script
}

// UnknownScript is a script name the registry does not know. It contributes
// nothing and was reported when the catalog was loaded.
type UnknownScript struct {
	Name string
}

func (Factor) isModifier()        {}
func (ScriptCall) isModifier()    {}
func (UnknownScript) isModifier() {}

// Script names the closed set of scripted weight adjustments.
type Script string

const (
	ScriptRareTech    Script = "rare_tech"
	ScriptDiminishing Script = "diminishing_returns"
	ScriptEnvironment Script = "environment"
)

// KnownScript reports whether name is in the registry.
func KnownScript(name string) bool {
	switch Script(name) {
	case ScriptRareTech, ScriptDiminishing, ScriptEnvironment:
		return true
	}
	return false
}

// Swap replaces an item's presentation, and optionally its category and
// weight, while Trigger holds.
type Swap struct {
	Name         string
	Trigger      condition.Node
	Category     string
	WeightFactor float64
}
