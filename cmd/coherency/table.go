package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/xlr8harder/llmclient/coherency"
)

var (
	passStyle = color.New(color.FgGreen, color.Bold)
	failStyle = color.New(color.FgRed, color.Bold)
)

// renderReport prints a width-aligned table of the run outcome: one
// row per sub-provider, or a single row for targets without fan-out.
func renderReport(w io.Writer, model string, report *coherency.Report) {
	fmt.Fprintf(w, "\nCoherency results for %s\n\n", model)

	rows := make([][2]string, 0, len(report.Targets))
	for _, target := range report.Targets {
		name := target.SubProvider
		if name == "" {
			name = "(provider)"
		}
		rows = append(rows, [2]string{name, detail(target)})
	}

	nameWidth := runewidth.StringWidth("SUB-PROVIDER")
	for _, row := range rows {
		if width := runewidth.StringWidth(row[0]); width > nameWidth {
			nameWidth = width
		}
	}

	fmt.Fprintf(w, "  %s  RESULT  DETAIL\n", pad("SUB-PROVIDER", nameWidth))
	for i, target := range report.Targets {
		verdict := passStyle.Sprint("PASS")
		if !target.Passed {
			verdict = failStyle.Sprint("FAIL")
		}
		fmt.Fprintf(w, "  %s  %s    %s\n", pad(rows[i][0], nameWidth), verdict, rows[i][1])
	}

	fmt.Fprintln(w)
	if report.Success {
		passStyle.Fprintf(w, "PASS")
		fmt.Fprintf(w, ": %d of %d target(s) passed\n", passed(report), len(report.Targets))
	} else {
		failStyle.Fprintf(w, "FAIL")
		fmt.Fprintf(w, ": no target passed all checks\n")
	}
}

func pad(s string, width int) string {
	if gap := width - runewidth.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func passed(report *coherency.Report) int {
	count := 0
	for _, target := range report.Targets {
		if target.Passed {
			count++
		}
	}
	return count
}

// detail summarizes a target's checks: passed count plus the first
// failure reason, if any.
func detail(target coherency.TargetResult) string {
	passedChecks := 0
	var firstFailure string
	for _, check := range target.Checks {
		if check.Passed {
			passedChecks++
			continue
		}
		if firstFailure == "" {
			if check.Err != "" {
				firstFailure = fmt.Sprintf("%s: %s", check.PromptID, check.Err)
			} else {
				firstFailure = fmt.Sprintf("%s: judged incoherent", check.PromptID)
			}
		}
	}
	summary := fmt.Sprintf("%d/%d checks passed", passedChecks, len(target.Checks))
	if firstFailure != "" {
		summary += " (" + firstFailure + ")"
	}
	return summary
}
