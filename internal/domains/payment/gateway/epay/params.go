package epay

import (
	"net/url"
	"sort"
	"strings"
)

// Params is an ordered string parameter set. Iteration and encoding follow
// insertion order, which is what the final redirect URL must preserve.
type Params struct {
	keys   []string
	values map[string]string
}

func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

// ParamsFromMap copies m with keys in ascending order.
func ParamsFromMap(m map[string]string) *Params {
	p := NewParams()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// ParamsFromValues takes the first value of every key, keys ascending.
func ParamsFromValues(v url.Values) *Params {
	m := make(map[string]string, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			m[k] = vals[0]
		} else {
			m[k] = ""
		}
	}
	return ParamsFromMap(m)
}

// Set adds or replaces a key. A replaced key keeps its original position.
func (p *Params) Set(key, value string) {
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

func (p *Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Value returns the value of key or "" when absent.
func (p *Params) Value(key string) string {
	return p.values[key]
}

func (p *Params) Del(key string) {
	if _, exists := p.values[key]; !exists {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
}

func (p *Params) Len() int {
	return len(p.keys)
}

func (p *Params) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p *Params) Clone() *Params {
	c := &Params{
		keys:   make([]string, len(p.keys)),
		values: make(map[string]string, len(p.values)),
	}
	copy(c.keys, p.keys)
	for k, v := range p.values {
		c.values[k] = v
	}
	return c
}

// Sorted returns a copy with keys in ascending byte order.
func (p *Params) Sorted() *Params {
	c := p.Clone()
	sort.Strings(c.keys)
	return c
}

func (p *Params) Map() map[string]string {
	m := make(map[string]string, len(p.values))
	for k, v := range p.values {
		m[k] = v
	}
	return m
}

// Encode serializes the set in insertion order the way PHP's
// http_build_query does for flat string arrays.
func (p *Params) Encode() string {
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(phpURLEncode(k))
		b.WriteByte('=')
		b.WriteString(phpURLEncode(p.values[k]))
	}
	return b.String()
}
