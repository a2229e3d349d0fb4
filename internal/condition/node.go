// Package condition holds the typed condition trees attached to catalog
// entries and the evaluator that runs them against a fact store.
//
// Trees are parsed once when the catalog is loaded. Evaluation never
// touches raw JSON.
package condition

// Node is one of And, Or, Not, Nor, Atom, HasTechnology or Literal.
type Node interface {
	isNode()
}

// And is true when every term is true. No terms means true.
type And struct{ Terms []Node }

// Or is true when any term is true. No terms means false.
type Or struct{ Terms []Node }

// Not negates its term.
type Not struct{ Term Node }

// Nor is true when no term is true. No terms means true.
type Nor struct{ Terms []Node }

// Atom compares the fact Key against Want.
type Atom struct {
	Key  string
	Want bool
}

// HasTechnology is true when every listed item is obtained.
type HasTechnology struct{ Items []string }

// Literal is a constant.
type Literal bool

func (And) isNode()           {}
func (Or) isNode()            {}
func (Not) isNode()           {}
func (Nor) isNode()           {}
func (Atom) isNode()          {}
func (HasTechnology) isNode() {}
func (Literal) isNode()       {}

// References returns the item ids a tree positively depends on through
// has_technology atoms, in first-seen order. Atoms under Not or Nor are
// skipped: obtaining those items never satisfies the tree.
func References(n Node) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case And:
			for _, t := range v.Terms {
				walk(t)
			}
		case Or:
			for _, t := range v.Terms {
				walk(t)
			}
		case HasTechnology:
			for _, id := range v.Items {
				if !seen[id] {
					seen[id] = true
					out = append(out, id)
				}
			}
		}
	}
	walk(n)
	return out
}
