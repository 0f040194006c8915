//go:build linux && cgo && x11hotkey

package hotkey

import xhotkey "golang.design/x/hotkey"

// X11 maps Alt to Mod1 and Super to Mod4.
var nativeModifiers = map[Modifier]xhotkey.Modifier{
	ModCtrl:  xhotkey.ModCtrl,
	ModShift: xhotkey.ModShift,
	ModAlt:   xhotkey.Mod1,
	ModSuper: xhotkey.Mod4,
}

// X keysyms without a named constant in x/hotkey.
var nativeExtraKeys = map[Key]xhotkey.Key{
	"home":     xhotkey.Key(0xff50),
	"end":      xhotkey.Key(0xff57),
	"pageup":   xhotkey.Key(0xff55),
	"pagedown": xhotkey.Key(0xff56),
	"insert":   xhotkey.Key(0xff63),
}
