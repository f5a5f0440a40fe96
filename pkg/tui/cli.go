// Package tui provides the CLI output layer.
// Simple, streaming, no complex TUI - just clean prompts and output.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// PrintHeader prints the tool banner.
func PrintHeader(version string) {
	fmt.Println()
	fmt.Println(titleStyle.Render("  DECLAREFLOW") + mutedStyle.Render(" v"+version))
	fmt.Println(mutedStyle.Render("  Object-centric Declare discovery and conformance checking"))
	fmt.Println()
}

// PrintError prints a failure line.
func PrintError(msg string) {
	fmt.Println(accentStyle.Render("  ✗ " + msg))
}

// ShowProgress creates a progress bar for long operations.
func ShowProgress(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// ClearLine clears the current terminal line.
func ClearLine() {
	fmt.Print("\r\033[K")
}

// DiscoveryReport summarizes a discovery pass.
type DiscoveryReport struct {
	Activities  int
	Pairs       int
	Constraints int
	Duration    time.Duration
}

// PrintDiscoveryReport prints results after discovery.
func PrintDiscoveryReport(report *DiscoveryReport) {
	fmt.Println()
	fmt.Println(successStyle.Render("  ✓ DISCOVERY COMPLETE"))
	fmt.Println()
	fmt.Printf("  %s %s\n", mutedStyle.Render("Activities: "), titleStyle.Render(fmt.Sprintf("%d", report.Activities)))
	fmt.Printf("  %s %s\n", mutedStyle.Render("Pairs:      "), titleStyle.Render(fmt.Sprintf("%d", report.Pairs)))
	fmt.Printf("  %s %s\n", mutedStyle.Render("Constraints:"), titleStyle.Render(fmt.Sprintf("%d", report.Constraints)))
	fmt.Printf("  %s %s\n", mutedStyle.Render("Duration:   "), titleStyle.Render(report.Duration.Round(time.Millisecond).String()))
	fmt.Println()
}

// CheckReport summarizes a conformance checking pass.
type CheckReport struct {
	Constraints int
	Failures    int
	Duration    time.Duration
}

// PrintCheckReport prints results after conformance checking.
func PrintCheckReport(report *CheckReport) {
	fmt.Println()
	if report.Failures == 0 {
		fmt.Println(successStyle.Render("  ✓ CHECK COMPLETE"))
	} else {
		fmt.Println(accentStyle.Render(fmt.Sprintf("  ✗ CHECK COMPLETE (%d could not be evaluated)", report.Failures)))
	}
	fmt.Println()
	fmt.Printf("  %s %s\n", mutedStyle.Render("Constraints:"), titleStyle.Render(fmt.Sprintf("%d", report.Constraints)))
	fmt.Printf("  %s %s\n", mutedStyle.Render("Duration:   "), titleStyle.Render(report.Duration.Round(time.Millisecond).String()))
	fmt.Println()
}
