package save

import "strings"

// MatchBrace returns the index of the '}' closing the '{' at open, or -1.
// Braces inside double-quoted strings do not count.
func MatchBrace(doc string, open int) int {
	if open < 0 || open >= len(doc) || doc[open] != '{' {
		return -1
	}
	depth := 0
	for i := open; i < len(doc); i++ {
		switch doc[i] {
		case '"':
			i = skipQuoted(doc, i)
			if i < 0 {
				return -1
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// skipQuoted returns the index of the quote closing the one at i, or -1.
func skipQuoted(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j
		}
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

// Section returns the body of a top-level block "key={...}". Only keys at
// the start of a line match, so nested blocks of the same name are ignored.
func Section(doc, key string) (string, bool) {
	needle := key + "="
	from := 0
	for {
		i := strings.Index(doc[from:], needle)
		if i < 0 {
			return "", false
		}
		i += from
		from = i + len(needle)
		if i > 0 && doc[i-1] != '\n' {
			continue
		}
		open := skipSpace(doc, from)
		if open >= len(doc) || doc[open] != '{' {
			continue
		}
		end := MatchBrace(doc, open)
		if end < 0 {
			return "", false
		}
		return doc[open+1 : end], true
	}
}

// entry is one top-level element of a block body: key=value, key={...},
// a bare list item, or an anonymous {...}.
type entry struct {
	key   string
	value string
	block bool
}

// walk calls fn for every entry at the top level of body, stopping when
// fn returns false.
func walk(body string, fn func(entry) bool) {
	i := 0
	for {
		i = skipSpace(body, i)
		if i >= len(body) {
			return
		}
		if body[i] == '}' {
			i++
			continue
		}
		if body[i] == '{' {
			end := MatchBrace(body, i)
			if end < 0 {
				return
			}
			if !fn(entry{value: body[i+1 : end], block: true}) {
				return
			}
			i = end + 1
			continue
		}

		tok, next := token(body, i)
		if next < 0 {
			return
		}
		j := skipSpace(body, next)
		if j >= len(body) || body[j] != '=' {
			if !fn(entry{value: tok}) {
				return
			}
			i = next
			continue
		}

		j = skipSpace(body, j+1)
		if j >= len(body) {
			return
		}
		if body[j] == '{' {
			end := MatchBrace(body, j)
			if end < 0 {
				return
			}
			if !fn(entry{key: tok, value: body[j+1 : end], block: true}) {
				return
			}
			i = end + 1
			continue
		}
		val, after := token(body, j)
		if after < 0 {
			return
		}
		if !fn(entry{key: tok, value: val}) {
			return
		}
		i = after
	}
}

// token reads a quoted or bare token at i. Quotes are stripped. It returns
// the index after the token, or -1 for an unterminated quote.
func token(s string, i int) (string, int) {
	if s[i] == '"' {
		end := skipQuoted(s, i)
		if end < 0 {
			return "", -1
		}
		return s[i+1 : end], end + 1
	}
	j := i
	for j < len(s) && !isSpace(s[j]) && s[j] != '=' && s[j] != '{' && s[j] != '}' {
		j++
	}
	if j == i {
		// lone '=' or similar junk
		return s[i : i+1], i + 1
	}
	return s[i:j], j
}

// Block returns the body of the first top-level "key={...}" in body.
func Block(body, key string) (string, bool) {
	var out string
	found := false
	walk(body, func(e entry) bool {
		if e.key == key && e.block {
			out, found = e.value, true
			return false
		}
		return true
	})
	return out, found
}

// Record returns the body of record id inside a section such as
// country={ 0={...} 1={...} }. Records whose value is not a block
// (e.g. 3=none) do not match.
func Record(section, id string) (string, bool) {
	body, ok := Records(section, []string{id})[id]
	return body, ok
}

// Records resolves many ids in one pass over section. A key counts only at
// the start of a line (indentation allowed) and every block it passes is
// skipped whole, so keys nested inside another record never match. A record
// with an unterminated quote is stepped over line by line. Missing ids are
// absent from the result.
func Records(section string, ids []string) map[string]string {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[string]string, len(want))
	i := 0
	for i < len(section) && len(out) < len(want) {
		lineEnd := strings.IndexByte(section[i:], '\n')
		if lineEnd < 0 {
			lineEnd = len(section)
		} else {
			lineEnd += i
		}
		k := i
		for k < lineEnd && (section[k] == ' ' || section[k] == '\t' || section[k] == '\r') {
			k++
		}
		eq := strings.IndexByte(section[k:lineEnd], '=')
		if eq <= 0 {
			i = lineEnd + 1
			continue
		}
		key := strings.TrimRight(section[k:k+eq], " \t")
		open := skipSpace(section, k+eq+1)
		if open >= len(section) || section[open] != '{' {
			i = lineEnd + 1
			continue
		}
		end := MatchBrace(section, open)
		if end < 0 {
			i = lineEnd + 1
			continue
		}
		if _, seen := out[key]; want[key] && !seen {
			out[key] = section[open+1 : end]
		}
		i = end + 1
	}
	return out
}

// Values collects the top-level values of key in body. A block value
// contributes its list items, so both `trait="a" trait="b"` and
// `traits={ "a" "b" }` read naturally.
func Values(body, key string) []string {
	var out []string
	walk(body, func(e entry) bool {
		if e.key != key {
			return true
		}
		if e.block {
			out = append(out, List(e.value)...)
		} else {
			out = append(out, e.value)
		}
		return true
	})
	return out
}

// Value returns the first scalar value of key.
func Value(body, key string) (string, bool) {
	var out string
	found := false
	walk(body, func(e entry) bool {
		if e.key == key && !e.block {
			out, found = e.value, true
			return false
		}
		return true
	})
	return out, found
}

// List returns the bare or quoted items of a list body like { "a" "b" 3 }.
func List(body string) []string {
	var out []string
	walk(body, func(e entry) bool {
		if e.key == "" && !e.block {
			out = append(out, e.value)
		}
		return true
	})
	return out
}

// Anonymous returns the bodies of the unnamed blocks in body.
func Anonymous(body string) []string {
	var out []string
	walk(body, func(e entry) bool {
		if e.key == "" && e.block {
			out = append(out, e.value)
		}
		return true
	})
	return out
}
