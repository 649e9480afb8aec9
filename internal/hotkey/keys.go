package hotkey

import (
	"fmt"
	"strings"

	evdev "github.com/holoplot/go-evdev"
	xhotkey "golang.design/x/hotkey"
)

// evdevKeyNames maps shortcut key names to kernel input codes. Modifiers map
// to their left-side variant; incoming events are normalised to match.
var evdevKeyNames = map[string]evdev.EvCode{
	// Modifiers
	"ctrl":  evdev.KEY_LEFTCTRL,
	"alt":   evdev.KEY_LEFTALT,
	"super": evdev.KEY_LEFTMETA,
	"shift": evdev.KEY_LEFTSHIFT,
	// Letters
	"a": evdev.KEY_A, "b": evdev.KEY_B, "c": evdev.KEY_C, "d": evdev.KEY_D,
	"e": evdev.KEY_E, "f": evdev.KEY_F, "g": evdev.KEY_G, "h": evdev.KEY_H,
	"i": evdev.KEY_I, "j": evdev.KEY_J, "k": evdev.KEY_K, "l": evdev.KEY_L,
	"m": evdev.KEY_M, "n": evdev.KEY_N, "o": evdev.KEY_O, "p": evdev.KEY_P,
	"q": evdev.KEY_Q, "r": evdev.KEY_R, "s": evdev.KEY_S, "t": evdev.KEY_T,
	"u": evdev.KEY_U, "v": evdev.KEY_V, "w": evdev.KEY_W, "x": evdev.KEY_X,
	"y": evdev.KEY_Y, "z": evdev.KEY_Z,
	// Digits
	"0": evdev.KEY_0, "1": evdev.KEY_1, "2": evdev.KEY_2, "3": evdev.KEY_3,
	"4": evdev.KEY_4, "5": evdev.KEY_5, "6": evdev.KEY_6, "7": evdev.KEY_7,
	"8": evdev.KEY_8, "9": evdev.KEY_9,
	// Function keys
	"f1": evdev.KEY_F1, "f2": evdev.KEY_F2, "f3": evdev.KEY_F3,
	"f4": evdev.KEY_F4, "f5": evdev.KEY_F5, "f6": evdev.KEY_F6,
	"f7": evdev.KEY_F7, "f8": evdev.KEY_F8, "f9": evdev.KEY_F9,
	"f10": evdev.KEY_F10, "f11": evdev.KEY_F11, "f12": evdev.KEY_F12,
	// Navigation
	"enter":     evdev.KEY_ENTER,
	"escape":    evdev.KEY_ESC,
	"tab":       evdev.KEY_TAB,
	"backspace": evdev.KEY_BACKSPACE,
	"delete":    evdev.KEY_DELETE,
	"insert":    evdev.KEY_INSERT,
	"home":      evdev.KEY_HOME,
	"end":       evdev.KEY_END,
	"pageup":    evdev.KEY_PAGEUP,
	"pagedown":  evdev.KEY_PAGEDOWN,
	// Arrows
	"up":    evdev.KEY_UP,
	"down":  evdev.KEY_DOWN,
	"left":  evdev.KEY_LEFT,
	"right": evdev.KEY_RIGHT,
	// Misc
	"space":        evdev.KEY_SPACE,
	"capslock":     evdev.KEY_CAPSLOCK,
	"numlock":      evdev.KEY_NUMLOCK,
	"printscreen":  evdev.KEY_SYSRQ,
	"scrolllock":   evdev.KEY_SCROLLLOCK,
	"scroll_lock":  evdev.KEY_SCROLLLOCK,
	"pause":        evdev.KEY_PAUSE,
	"minus":        evdev.KEY_MINUS,
	"equal":        evdev.KEY_EQUAL,
	"leftbracket":  evdev.KEY_LEFTBRACE,
	"rightbracket": evdev.KEY_RIGHTBRACE,
	"backslash":    evdev.KEY_BACKSLASH,
	"semicolon":    evdev.KEY_SEMICOLON,
	"apostrophe":   evdev.KEY_APOSTROPHE,
	"grave":        evdev.KEY_GRAVE,
	"comma":        evdev.KEY_COMMA,
	"period":       evdev.KEY_DOT,
	"slash":        evdev.KEY_SLASH,
}

// evdevKeys converts a "+"-separated shortcut such as "ctrl+space" into the
// set of kernel key codes that must be held simultaneously.
func evdevKeys(shortcut string) ([]evdev.EvCode, error) {
	var keys []evdev.EvCode
	for _, part := range strings.Split(strings.ToLower(shortcut), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, ok := evdevKeyNames[part]
		if !ok {
			return nil, fmt.Errorf("unknown key %q in shortcut %q", part, shortcut)
		}
		keys = append(keys, code)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("empty shortcut %q", shortcut)
	}
	return keys, nil
}

// rightSideModifiers maps right-hand modifier codes onto the left-hand codes
// the target sets are defined in.
var rightSideModifiers = map[evdev.EvCode]evdev.EvCode{
	evdev.KEY_RIGHTCTRL:  evdev.KEY_LEFTCTRL,
	evdev.KEY_RIGHTALT:   evdev.KEY_LEFTALT,
	evdev.KEY_RIGHTSHIFT: evdev.KEY_LEFTSHIFT,
	evdev.KEY_RIGHTMETA:  evdev.KEY_LEFTMETA,
}

func normalizeKey(code evdev.EvCode) evdev.EvCode {
	if left, ok := rightSideModifiers[code]; ok {
		return left
	}
	return code
}

// windowModifiers maps shortcut modifier names to X modifier masks. Alt and
// Super follow the conventional Mod1/Mod4 assignment.
var windowModifiers = map[string]xhotkey.Modifier{
	"ctrl":  xhotkey.ModCtrl,
	"shift": xhotkey.ModShift,
	"alt":   xhotkey.Mod1,
	"super": xhotkey.Mod4,
}

// windowKeyNames covers the keys the window-system backend can register.
// It is a subset of the kernel table; exotic keys only work on the kernel
// backend.
var windowKeyNames = map[string]xhotkey.Key{
	"a": xhotkey.KeyA, "b": xhotkey.KeyB, "c": xhotkey.KeyC, "d": xhotkey.KeyD,
	"e": xhotkey.KeyE, "f": xhotkey.KeyF, "g": xhotkey.KeyG, "h": xhotkey.KeyH,
	"i": xhotkey.KeyI, "j": xhotkey.KeyJ, "k": xhotkey.KeyK, "l": xhotkey.KeyL,
	"m": xhotkey.KeyM, "n": xhotkey.KeyN, "o": xhotkey.KeyO, "p": xhotkey.KeyP,
	"q": xhotkey.KeyQ, "r": xhotkey.KeyR, "s": xhotkey.KeyS, "t": xhotkey.KeyT,
	"u": xhotkey.KeyU, "v": xhotkey.KeyV, "w": xhotkey.KeyW, "x": xhotkey.KeyX,
	"y": xhotkey.KeyY, "z": xhotkey.KeyZ,
	"0": xhotkey.Key0, "1": xhotkey.Key1, "2": xhotkey.Key2, "3": xhotkey.Key3,
	"4": xhotkey.Key4, "5": xhotkey.Key5, "6": xhotkey.Key6, "7": xhotkey.Key7,
	"8": xhotkey.Key8, "9": xhotkey.Key9,
	"f1": xhotkey.KeyF1, "f2": xhotkey.KeyF2, "f3": xhotkey.KeyF3,
	"f4": xhotkey.KeyF4, "f5": xhotkey.KeyF5, "f6": xhotkey.KeyF6,
	"f7": xhotkey.KeyF7, "f8": xhotkey.KeyF8, "f9": xhotkey.KeyF9,
	"f10": xhotkey.KeyF10, "f11": xhotkey.KeyF11, "f12": xhotkey.KeyF12,
	"space":  xhotkey.KeySpace,
	"enter":  xhotkey.KeyReturn,
	"escape": xhotkey.KeyEscape,
	"tab":    xhotkey.KeyTab,
	"delete": xhotkey.KeyDelete,
	"up":     xhotkey.KeyUp,
	"down":   xhotkey.KeyDown,
	"left":   xhotkey.KeyLeft,
	"right":  xhotkey.KeyRight,
}

// windowBinding parses a shortcut into a modifier set plus exactly one
// non-modifier key, the shape the display-server registration needs.
func windowBinding(shortcut string) ([]xhotkey.Modifier, xhotkey.Key, error) {
	var (
		mods    []xhotkey.Modifier
		key     xhotkey.Key
		haveKey bool
	)
	for _, part := range strings.Split(strings.ToLower(shortcut), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if mod, ok := windowModifiers[part]; ok {
			mods = append(mods, mod)
			continue
		}
		k, ok := windowKeyNames[part]
		if !ok {
			return nil, 0, fmt.Errorf("unsupported key %q in shortcut %q", part, shortcut)
		}
		if haveKey {
			return nil, 0, fmt.Errorf("shortcut %q has more than one non-modifier key", shortcut)
		}
		key, haveKey = k, true
	}
	if !haveKey {
		return nil, 0, fmt.Errorf("shortcut %q has no non-modifier key", shortcut)
	}
	return mods, key, nil
}
