package logger

import (
	"github.com/fatih/color" // Import the fatih/color package for colored console output
)

// Define colorized printing functions for different log levels using fatih/color.
// These are package-level variables holding functions that behave like fmt.Printf,
// but with text colored appropriately for the log level.

// Info logs informational messages in cyan color.
var Info = color.New(color.FgCyan).PrintfFunc()

// Warn logs warning messages in yellow color.
// Warnings mark a recoverable condition that triggered a fallback.
var Warn = color.New(color.FgYellow).PrintfFunc()

// Error logs error messages in red color.
var Error = color.New(color.FgRed).PrintfFunc()

// Success logs the outcome of a stage that completed, in green color.
var Success = color.New(color.FgGreen).PrintfFunc()

// Plain prints uncolored text, used for captured tool output and report lines.
var Plain = color.New(color.Reset).PrintfFunc()

// Debug logs debug messages in gray if enabled, otherwise is a no-op.
// This is a function variable that is assigned dynamically during Init based on debug flag.
var Debug = func(format string, a ...any) {}

// Init initializes the logger package, specifically enabling or disabling debug logging.
// When enabled, Debug will print messages in gray.
// When disabled, Debug will be a no-op function that silently ignores debug logs.
func Init(enableDebug bool) {
	if enableDebug {
		Debug = color.New(color.FgHiBlack).PrintfFunc()
	} else {
		Debug = func(format string, a ...any) {}
	}
}

// DisableColor turns off ANSI coloring for every level, e.g. when output is piped.
func DisableColor() {
	color.NoColor = true
}
