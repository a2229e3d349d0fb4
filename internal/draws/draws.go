package draws

import "github.com/xtding233/techdraw/internal/condition"

// Extra adds options to an area while Fact holds. An empty Area applies to all areas.
type Extra struct {
	Fact    string `yaml:"fact"`
	Area    string `yaml:"area,omitempty"`
	Options int    `yaml:"options"`
}

// Policy defines how many options are offered per area each round.
type Policy struct {
	Base    int            // options per area, e.g. 3
	PerArea map[string]int // optional per-area base; overrides Base
	Extras  []Extra
}

func DefaultPolicy() Policy {
	return Policy{Base: 3}
}

// Count returns the number of options drawn for area. Never negative.
func (p Policy) Count(area string, env condition.Env) int {
	n := p.Base
	if v, ok := p.PerArea[area]; ok {
		n = v
	}
	for _, e := range p.Extras {
		if e.Area != "" && e.Area != area {
			continue
		}
		if env != nil && env.Fact(e.Fact) {
			n += e.Options
		}
	}
	if n < 0 {
		return 0
	}
	return n
}
