// Package output formats snapshots for the typescope CLI.
//
// Commands pick text, JSON or YAML with the --output flag and print through
// a Printer. Text output is tabular; structured output uses the view types
// in this package, which carry stable snake_case keys independent of the
// wire payload.
package output
