package ui

import (
	"github.com/pterm/pterm"
)

// SetDebug toggles whether Debug messages are actually printed, driven by
// the daemon's --verbose flag.
func SetDebug(enabled bool) {
	pterm.PrintDebugMessages = enabled
}

// SetStyling toggles pterm's ANSI styling, driven by --no-style/--no-color.
func SetStyling(enabled bool) {
	if enabled {
		pterm.EnableStyling()
	} else {
		pterm.DisableStyling()
	}
}

func Printf(format string, a ...interface{}) {
	pterm.Printf(format, a...)
}

func Printfln(format string, a ...interface{}) {
	pterm.Printfln(format, a...)
}

func Debug(format string, a ...interface{}) {
	pterm.Debug.Printfln(format, a...)
}

func Info(format string, a ...interface{}) {
	pterm.Info.Printfln(format, a...)
}

func Warning(format string, a ...interface{}) {
	pterm.Warning.Printfln(format, a...)
}

func Error(format string, a ...interface{}) {
	pterm.Error.Printfln(format, a...)
}

func Fatal(format string, a ...interface{}) {
	pterm.Fatal.Printfln(format, a...)
}
