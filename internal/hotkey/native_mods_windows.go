//go:build windows

package hotkey

import xhotkey "golang.design/x/hotkey"

var nativeModifiers = map[Modifier]xhotkey.Modifier{
	ModCtrl:  xhotkey.ModCtrl,
	ModShift: xhotkey.ModShift,
	ModAlt:   xhotkey.ModAlt,
	ModSuper: xhotkey.ModWin,
}

// Virtual-key codes without a named constant in x/hotkey.
var nativeExtraKeys = map[Key]xhotkey.Key{
	"home":     xhotkey.Key(0x24),
	"end":      xhotkey.Key(0x23),
	"pageup":   xhotkey.Key(0x21),
	"pagedown": xhotkey.Key(0x22),
	"insert":   xhotkey.Key(0x2D),
}
