package main

import (
	"os"

	"acfgen/cmd" // Import the cmd package which contains the CLI commands and execution logic
)

// main is the program entry point.
// It delegates to cmd.Execute() which handles command line argument parsing and execution.
//
// acfgen prepares and drives SKSAppManifestGenerator, a closed-source Windows tool that
// writes Steam appmanifest (.acf) files for numeric application ids:
//   - Normalizes free-form app id input (any script's digits, mixed separators)
//   - Provisions the generator from a password-protected release archive, or falls back
//     to a raw binary download, trying curl, wget and a built-in HTTP client in turn
//   - Ensures a compatibility layer (wine) is present when not running on Windows
//   - Runs the generator with a bounded timeout and captures its output leniently
//   - Verifies by directory scan which app ids actually produced a manifest
//
// The exit status is 0 when the pipeline reaches the generator, and 1 when provisioning
// fails or no valid app ids were supplied.
func main() {
	os.Exit(cmd.Execute())
}
