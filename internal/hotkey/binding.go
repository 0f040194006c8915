// Package hotkey turns a global modifier+key binding into Pressed/Released
// signals, composing an OS registration with an optional raw key watcher.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// Modifier is a bit set of binding modifiers.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModSuper
)

var modifierOrder = []Modifier{ModCtrl, ModAlt, ModShift, ModSuper}

var modifierNames = map[Modifier]string{
	ModCtrl:  "ctrl",
	ModAlt:   "alt",
	ModShift: "shift",
	ModSuper: "super",
}

// Has reports whether every bit in m2 is set in m.
func (m Modifier) Has(m2 Modifier) bool {
	return m&m2 == m2
}

// Key is a canonical, side-agnostic key name such as "space", "f9", or "ctrl".
type Key string

// Modifier keys as reported by raw key watchers. Left and right variants
// collapse onto one name.
const (
	KeyCtrl  Key = "ctrl"
	KeyAlt   Key = "alt"
	KeyShift Key = "shift"
	KeySuper Key = "super"
)

var modifierKeys = map[Key]Modifier{
	KeyCtrl:  ModCtrl,
	KeyAlt:   ModAlt,
	KeyShift: ModShift,
	KeySuper: ModSuper,
}

// ModifierOf reports the modifier a key represents, if any.
func ModifierOf(k Key) (Modifier, bool) {
	m, ok := modifierKeys[k]
	return m, ok
}

var modifierAliases = map[string]Key{
	"ctrl":    KeyCtrl,
	"control": KeyCtrl,
	"alt":     KeyAlt,
	"option":  KeyAlt,
	"shift":   KeyShift,
	"super":   KeySuper,
	"win":     KeySuper,
	"cmd":     KeySuper,
	"meta":    KeySuper,
	"logo":    KeySuper,
}

var keyAliases = map[string]Key{
	"return": "enter",
	"esc":    "escape",
	"del":    "delete",
	"ins":    "insert",
	"pgup":   "pageup",
	"pgdn":   "pagedown",
	"spc":    "space",
}

var primaryKeys = func() map[Key]struct{} {
	keys := map[Key]struct{}{}
	for c := 'a'; c <= 'z'; c++ {
		keys[Key(string(c))] = struct{}{}
	}
	for c := '0'; c <= '9'; c++ {
		keys[Key(string(c))] = struct{}{}
	}
	for i := 1; i <= 12; i++ {
		keys[Key(fmt.Sprintf("f%d", i))] = struct{}{}
	}
	for _, k := range []Key{
		"space", "enter", "tab", "escape", "delete", "insert",
		"home", "end", "pageup", "pagedown", "left", "right", "up", "down",
	} {
		keys[k] = struct{}{}
	}
	return keys
}()

// Binding is an immutable modifier set plus one non-modifier key. Build it
// with ParseBinding.
type Binding struct {
	mods Modifier
	key  Key
}

var errEmptyBinding = errors.New("hotkey binding is empty")

// ParseBinding parses strings such as "ctrl+shift+space" or "Ctrl-Alt-F9".
// At least one modifier is required and the primary key must not be a
// modifier.
func ParseBinding(raw string) (Binding, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Binding{}, errEmptyBinding
	}

	var b Binding
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '+' || r == '-' })
	if len(parts) != strings.Count(raw, "+")+strings.Count(raw, "-")+1 {
		return Binding{}, fmt.Errorf("hotkey binding %q has an empty segment", raw)
	}
	for _, part := range parts {
		token := strings.ToLower(strings.TrimSpace(part))
		if token == "" {
			return Binding{}, fmt.Errorf("hotkey binding %q has an empty segment", raw)
		}
		if mk, ok := modifierAliases[token]; ok {
			b.mods |= modifierKeys[mk]
			continue
		}
		if alias, ok := keyAliases[token]; ok {
			token = string(alias)
		}
		if _, ok := primaryKeys[Key(token)]; !ok {
			return Binding{}, fmt.Errorf("hotkey binding %q: unsupported key %q", raw, token)
		}
		if b.key != "" {
			return Binding{}, fmt.Errorf("hotkey binding %q has more than one key", raw)
		}
		b.key = Key(token)
	}

	if b.key == "" {
		return Binding{}, fmt.Errorf("hotkey binding %q needs a non-modifier key", raw)
	}
	if b.mods == 0 {
		return Binding{}, fmt.Errorf("hotkey binding %q needs at least one modifier", raw)
	}
	return b, nil
}

// MustParseBinding is ParseBinding for compile-time constants.
func MustParseBinding(raw string) Binding {
	b, err := ParseBinding(raw)
	if err != nil {
		panic(err)
	}
	return b
}

func (b Binding) Modifiers() Modifier { return b.mods }

func (b Binding) Key() Key { return b.key }

// IsZero reports whether b was never parsed.
func (b Binding) IsZero() bool { return b.key == "" }

func (b Binding) Equal(other Binding) bool {
	return b.mods == other.mods && b.key == other.key
}

// Involves reports whether releasing k ends a hold of b: the primary key or
// any bound modifier.
func (b Binding) Involves(k Key) bool {
	if k == b.key {
		return true
	}
	m, ok := modifierKeys[k]
	return ok && b.mods.Has(m)
}

// String renders the canonical form, e.g. "ctrl+shift+space".
func (b Binding) String() string {
	if b.IsZero() {
		return ""
	}
	parts := make([]string, 0, 5)
	for _, m := range modifierOrder {
		if b.mods.Has(m) {
			parts = append(parts, modifierNames[m])
		}
	}
	parts = append(parts, string(b.key))
	return strings.Join(parts, "+")
}
