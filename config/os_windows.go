//go:build windows

package config

import (
	"os"
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/term"
)

// CleanFileName makes a base name of an output file out of a name which may
// come from inside an archive: characters Windows does not allow are dropped
// together with trailing dots and spaces.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if sym < 0x20 || strings.ContainsRune(`<>":/\|?*`, sym) {
			return -1
		}
		return sym
	}, in)
	if out = strings.TrimRight(out, ". "); len(out) == 0 {
		return "_unnamed_"
	}
	return out
}

// EnableColorOutput reports whether stream is a console which accepts VT100
// sequences, switching their processing on. Consoles before Windows 10 do
// not support it.
func EnableColorOutput(stream *os.File) bool {
	if windows.RtlGetVersion().MajorVersion < 10 || !term.IsTerminal(int(stream.Fd())) {
		return false
	}

	h := windows.Handle(stream.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return false
	}
	return windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING) == nil
}
