package draws

import (
	"testing"

	"github.com/xtding233/techdraw/internal/condition"
)

func TestCount(t *testing.T) {
	p := Policy{
		Base:    3,
		PerArea: map[string]int{"society": 4},
		Extras: []Extra{
			{Fact: "civic:civic_technocracy", Options: 1},
			{Fact: "perk:ap_technological_ascendancy", Area: "physics", Options: 1},
			{Fact: "cursed", Options: -10},
		},
	}
	env := condition.MapEnv{Facts: map[string]bool{"civic:civic_technocracy": true, "perk:ap_technological_ascendancy": true}}

	if got := p.Count("physics", env); got != 5 {
		t.Fatalf("physics: got %d want 5", got)
	}
	if got := p.Count("society", env); got != 5 {
		t.Fatalf("society: got %d want 5", got)
	}
	if got := p.Count("engineering", condition.MapEnv{}); got != 3 {
		t.Fatalf("engineering: got %d want 3", got)
	}
	env.Facts["cursed"] = true
	if got := p.Count("engineering", env); got != 0 {
		t.Fatalf("clamped: got %d want 0", got)
	}
	if got := DefaultPolicy().Count("physics", nil); got != 3 {
		t.Fatalf("default: got %d", got)
	}
}
