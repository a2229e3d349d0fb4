package condition

// Env is the read side of the state a tree is evaluated against.
type Env interface {
	Fact(key string) bool
	Obtained(item string) bool
}

// Evaluate reports whether n holds in env. When hypothetical is non-empty,
// has_technology atoms treat that one item as obtained regardless of env.
// A nil tree is true.
func Evaluate(n Node, env Env, hypothetical string) bool {
	switch v := n.(type) {
	case nil:
		return true
	case Literal:
		return bool(v)
	case And:
		for _, t := range v.Terms {
			if !Evaluate(t, env, hypothetical) {
				return false
			}
		}
		return true
	case Or:
		for _, t := range v.Terms {
			if Evaluate(t, env, hypothetical) {
				return true
			}
		}
		return false
	case Nor:
		for _, t := range v.Terms {
			if Evaluate(t, env, hypothetical) {
				return false
			}
		}
		return true
	case Not:
		return !Evaluate(v.Term, env, hypothetical)
	case HasTechnology:
		for _, id := range v.Items {
			if id == hypothetical && hypothetical != "" {
				continue
			}
			if env == nil || !env.Obtained(id) {
				return false
			}
		}
		return true
	case Atom:
		has := env != nil && env.Fact(v.Key)
		return has == v.Want
	default:
		return false
	}
}

// MapEnv is an Env over plain maps, used by tools and tests.
type MapEnv struct {
	Facts map[string]bool
	Items map[string]bool
}

func (m MapEnv) Fact(key string) bool { return m.Facts[key] }

func (m MapEnv) Obtained(item string) bool { return m.Items[item] }
