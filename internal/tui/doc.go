// Package tui provides terminal user interface components for netblocker.
//
// This package uses the Bubble Tea framework for the interactive rule
// browser behind "netblocker rules --interactive".
//
// # Rule Browser
//
// The browser lists the loaded table grouped by selector kind and lets the
// user filter and pick a rule:
//
//	result, err := tui.RunBrowser(table)
//	switch result.Action {
//	case tui.ActionSelect:
//	    // Inspect result.Rule
//	case tui.ActionQuit:
//	    // Exit
//	}
//
// # Browser Features
//
//   - Rules grouped by kind in match order, headers auto-skipped
//   - Keyboard navigation (j/k or arrows) and "/" filtering
//   - Enter selects, q or esc quits
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
