package condition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// HasTechnologyKey is the atomic key that references catalog items.
const HasTechnologyKey = "has_technology"

var ErrInvalidJSON = errors.New("condition: invalid JSON")

// Warning flags a suspect but still usable catalog entry.
type Warning struct {
	Path    string
	Message string
}

func (w Warning) String() string { return w.Path + ": " + w.Message }

type operator string

const (
	opAnd operator = "AND"
	opOr  operator = "OR"
	opNot operator = "NOT"
	opNor operator = "NOR"
)

func operatorOf(key string) (operator, bool) {
	switch op := operator(strings.ToUpper(key)); op {
	case opAnd, opOr, opNot, opNor:
		return op, true
	}
	return "", false
}

// Parse decodes a JSON condition tree.
func Parse(raw []byte) (Node, []Warning, error) {
	if !gjson.ValidBytes(raw) {
		return nil, nil, ErrInvalidJSON
	}
	p := &parser{}
	n := p.node(gjson.ParseBytes(raw), "$")
	return n, p.warnings, nil
}

// ParseResult decodes a tree already located by gjson. An absent result
// yields a nil tree, which evaluates to true.
func ParseResult(r gjson.Result, path string) (Node, []Warning) {
	if !r.Exists() {
		return nil, nil
	}
	p := &parser{}
	n := p.node(r, path)
	return n, p.warnings
}

type parser struct {
	warnings []Warning
}

func (p *parser) warn(path, format string, args ...any) {
	p.warnings = append(p.warnings, Warning{Path: path, Message: fmt.Sprintf(format, args...)})
}

type entry struct {
	key   string
	value gjson.Result
}

func entries(r gjson.Result) []entry {
	var out []entry
	r.ForEach(func(k, v gjson.Result) bool {
		out = append(out, entry{key: k.String(), value: v})
		return true
	})
	return out
}

// node parses a tree in node position: arrays are implicit And, objects
// apply their first operator key or are implicit And over their pairs.
func (p *parser) node(r gjson.Result, path string) Node {
	switch {
	case r.IsArray():
		var terms []Node
		i := 0
		r.ForEach(func(_, v gjson.Result) bool {
			terms = append(terms, p.node(v, fmt.Sprintf("%s[%d]", path, i)))
			i++
			return true
		})
		return And{Terms: terms}
	case r.IsObject():
		es := entries(r)
		first := -1
		for i, e := range es {
			if _, ok := operatorOf(e.key); ok {
				first = i
				break
			}
		}
		if first < 0 {
			terms := make([]Node, 0, len(es))
			for _, e := range es {
				terms = append(terms, p.pair(e, path+"."+e.key))
			}
			return And{Terms: terms}
		}
		if len(es) > 1 {
			ignored := make([]string, 0, len(es)-1)
			for i, e := range es {
				if i != first {
					ignored = append(ignored, e.key)
				}
			}
			p.warn(path, "operator %s shares an object with %s; only %s is evaluated",
				es[first].key, strings.Join(ignored, ", "), es[first].key)
		}
		return p.pair(es[first], path+"."+es[first].key)
	case r.Type == gjson.True:
		return Literal(true)
	case r.Type == gjson.False:
		return Literal(false)
	default:
		p.warn(path, "unexpected %s in node position; treated as false", r.Type)
		return Literal(false)
	}
}

// operands splits an operator's value into terms: array elements, or one
// single-pair term per object entry.
func (p *parser) operands(r gjson.Result, path string) []Node {
	switch {
	case r.IsArray():
		var terms []Node
		i := 0
		r.ForEach(func(_, v gjson.Result) bool {
			terms = append(terms, p.node(v, fmt.Sprintf("%s[%d]", path, i)))
			i++
			return true
		})
		return terms
	case r.IsObject():
		es := entries(r)
		terms := make([]Node, 0, len(es))
		for _, e := range es {
			terms = append(terms, p.pair(e, path+"."+e.key))
		}
		return terms
	default:
		return []Node{p.node(r, path)}
	}
}

// pair parses one key/value entry as a single-key object.
func (p *parser) pair(e entry, path string) Node {
	if op, ok := operatorOf(e.key); ok {
		switch op {
		case opAnd:
			return And{Terms: p.operands(e.value, path)}
		case opOr:
			return Or{Terms: p.operands(e.value, path)}
		case opNor:
			return Nor{Terms: p.operands(e.value, path)}
		default:
			return Not{Term: p.node(e.value, path)}
		}
	}
	if e.key == HasTechnologyKey {
		return p.hasTechnology(e.value, path)
	}
	v := e.value
	switch {
	case v.Type == gjson.True:
		return Atom{Key: e.key, Want: true}
	case v.Type == gjson.False:
		return Atom{Key: e.key, Want: false}
	case v.Type == gjson.String:
		return Atom{Key: e.key + ":" + v.Str, Want: true}
	case v.Type == gjson.Number:
		return Atom{Key: e.key + ":" + v.Raw, Want: true}
	case v.IsArray():
		var terms []Node
		i := 0
		v.ForEach(func(_, item gjson.Result) bool {
			terms = append(terms, p.pair(entry{key: e.key, value: item}, fmt.Sprintf("%s[%d]", path, i)))
			i++
			return true
		})
		return And{Terms: terms}
	case v.IsObject():
		return p.node(v, path)
	default:
		p.warn(path, "null value for %q; treated as false", e.key)
		return Literal(false)
	}
}

func (p *parser) hasTechnology(v gjson.Result, path string) Node {
	switch {
	case v.Type == gjson.String:
		return HasTechnology{Items: []string{v.Str}}
	case v.IsArray():
		var ids []string
		v.ForEach(func(_, item gjson.Result) bool {
			if item.Type == gjson.String {
				ids = append(ids, item.Str)
			} else {
				p.warn(path, "non-string item reference %s ignored", item.Raw)
			}
			return true
		})
		return HasTechnology{Items: ids}
	default:
		p.warn(path, "has_technology expects a string or list; got %s", v.Type)
		return Literal(false)
	}
}
