package config

import (
	"errors"
	"strings"
)

// dangerousShortcuts are bindings almost every application already uses.
// Registering one of these would shadow copy/paste/undo system-wide, so the
// loader warns when a configured shortcut matches.
var dangerousShortcuts = map[string]struct{}{
	"ctrl+c": {}, "ctrl+v": {}, "ctrl+x": {}, "ctrl+z": {}, "ctrl+y": {},
	"ctrl+s": {}, "ctrl+w": {}, "ctrl+q": {}, "ctrl+a": {}, "ctrl+f": {},
	"ctrl+p": {}, "ctrl+n": {}, "ctrl+t": {}, "ctrl+o": {},
	"alt+f4": {}, "ctrl+shift+t": {},
}

// standaloneKeys may be bound without a modifier.
var standaloneKeys = map[string]struct{}{
	"f1": {}, "f2": {}, "f3": {}, "f4": {}, "f5": {}, "f6": {},
	"f7": {}, "f8": {}, "f9": {}, "f10": {}, "f11": {}, "f12": {},
	"scrolllock": {}, "scroll_lock": {}, "pause": {}, "printscreen": {},
	"capslock": {}, "numlock": {},
}

// modifierNames are the recognised modifier parts of a shortcut string.
var modifierNames = map[string]struct{}{
	"ctrl": {}, "alt": {}, "shift": {}, "super": {},
}

// IsDangerousShortcut reports whether shortcut collides with a binding in
// near-universal use by other applications.
func IsDangerousShortcut(shortcut string) bool {
	_, ok := dangerousShortcuts[strings.ToLower(shortcut)]
	return ok
}

// ValidateShortcut checks a "+"-separated shortcut string such as
// "ctrl+space". A shortcut needs exactly one non-modifier key and, unless
// that key is in the standalone list, at least one modifier.
func ValidateShortcut(shortcut string) error {
	if shortcut == "" {
		return errors.New("no shortcut entered")
	}

	var modifiers, base []string
	for _, part := range strings.Split(strings.ToLower(shortcut), "+") {
		part = strings.TrimSpace(part)
		if _, ok := modifierNames[part]; ok {
			modifiers = append(modifiers, part)
		} else {
			base = append(base, part)
		}
	}

	if len(base) == 0 {
		return errors.New("press a non-modifier key")
	}
	if len(modifiers) == 0 {
		if _, ok := standaloneKeys[base[0]]; !ok {
			return errors.New("add a modifier (Ctrl, Alt, Shift, Super)")
		}
	}
	return nil
}

// prettyNames maps internal key names to their display form where simple
// capitalisation is not enough.
var prettyNames = map[string]string{
	"ctrl": "Ctrl", "alt": "Alt", "shift": "Shift", "super": "Super",
	"scrolllock": "Scroll Lock", "scroll_lock": "Scroll Lock",
	"pageup": "Page Up", "pagedown": "Page Down",
	"printscreen": "Print Screen", "capslock": "Caps Lock",
	"numlock": "Num Lock", "backspace": "Backspace",
	"leftbracket": "[", "rightbracket": "]", "semicolon": ";",
	"apostrophe": "'", "grave": "`", "comma": ",", "period": ".",
	"slash": "/", "backslash": "\\", "minus": "-", "equal": "=",
}

// DisplayShortcut converts the internal shortcut format to a pretty form for
// tray tooltips, e.g. "ctrl+shift+a" becomes "Ctrl + Shift + A".
func DisplayShortcut(shortcut string) string {
	parts := strings.Split(shortcut, "+")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if pretty, ok := prettyNames[part]; ok {
			out = append(out, pretty)
			continue
		}
		if part == "" {
			continue
		}
		out = append(out, strings.ToUpper(part[:1])+part[1:])
	}
	return strings.Join(out, " + ")
}
