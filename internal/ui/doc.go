// Package ui styles roomcast's command line output with lipgloss.
//
// A [Palette] names the handful of styles the CLI uses: titles, success and error lines, warnings
// and help text. The package level helpers ([Title], [OK], [Err], [Warn], [Help]) render with the
// default palette. lipgloss drops the colors when stdout is not a terminal, so piped output stays plain.
package ui
