package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rancher/cherry-pick-replay/internal/orchestrator"
)

// report is the machine-readable record of one replay, written to the report
// file and to the GitHub Actions outputs.
type report struct {
	RunID  string `json:"run_id"`
	Source string `json:"source"`
	DryRun bool   `json:"dry_run"`
	orchestrator.Result
	NotAttempted int `json:"not_attempted"`
}

func (r *Runner) newReport(source string, result orchestrator.Result) report {
	return report{
		RunID:        r.runID,
		Source:       source,
		DryRun:       r.cfg.DryRun,
		Result:       result,
		NotAttempted: result.NotAttempted(),
	}
}

// writeOutputs persists the optional summary, report and Actions outputs.
// Failures are logged; the run itself already completed.
func (r *Runner) writeOutputs(rep report) {
	if err := r.writeStepSummary(rep); err != nil && r.log != nil {
		r.log.Warn("failed to write step summary", "error", err)
	}

	if err := r.writeReportFile(rep); err != nil && r.log != nil {
		r.log.Warn("failed to write report file", "error", err)
	}

	if err := r.writeGitHubOutputs(rep); err != nil && r.log != nil {
		r.log.Warn("failed to write action outputs", "error", err)
	}
}

func (r *Runner) writeStepSummary(rep report) error {
	path := r.cfg.SummaryFile
	if path == "" {
		return nil
	}

	var builder strings.Builder
	builder.WriteString("## Cherry-pick replay summary\n\n")
	builder.WriteString(renderResultDetails(rep))

	return appendFile(path, "step summary", func(w io.Writer) error {
		_, err := io.WriteString(w, builder.String())
		return err
	})
}

func (r *Runner) writeReportFile(rep report) error {
	path := r.cfg.ReportFile
	if path == "" {
		return nil
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	ensureDir(path)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

func (r *Runner) writeGitHubOutputs(rep report) error {
	path := strings.TrimSpace(os.Getenv("GITHUB_OUTPUT"))
	if path == "" {
		return nil
	}

	reportJSON, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	return appendFile(path, "github output", func(w io.Writer) error {
		outputs := []struct{ key, value string }{
			{"classification", string(rep.Classification)},
			{"stop_reason", string(rep.Stop)},
			{"succeeded", fmt.Sprint(rep.Succeeded)},
			{"skipped", fmt.Sprint(rep.Skipped)},
			{"failed", fmt.Sprint(rep.Failed)},
			{"report", string(reportJSON)},
		}
		for _, o := range outputs {
			if err := writeMultilineOutput(w, o.key, o.value); err != nil {
				return err
			}
		}
		return nil
	})
}

func renderResultDetails(rep report) string {
	var builder strings.Builder

	if rep.DryRun {
		builder.WriteString("_Dry run: no changes were made._\n\n")
	}
	if rep.Source != "" {
		builder.WriteString(fmt.Sprintf("Commits from `%s` (run `%s`)\n\n", sanitizeMarkdownCell(rep.Source), rep.RunID))
	}

	builder.WriteString(fmt.Sprintf("- Total: %d\n", rep.Total))
	builder.WriteString(fmt.Sprintf("- Succeeded: %d\n", rep.Succeeded))
	builder.WriteString(fmt.Sprintf("- Skipped: %d\n", rep.Skipped))
	builder.WriteString(fmt.Sprintf("- Failed: %d\n", rep.Failed))
	builder.WriteString(fmt.Sprintf("- Result: %s\n", rep.Classification))

	if rep.Stop != orchestrator.StopCompleted {
		builder.WriteString(fmt.Sprintf("\nRun stopped early (%s); %d commit(s) not attempted.", rep.Stop, rep.NotAttempted))
		if rep.StoppedAt != "" {
			builder.WriteString(fmt.Sprintf(" Resume with `--start-from %s`.", rep.StoppedAt))
		}
		builder.WriteString("\n")
	}
	builder.WriteString("\n")

	if len(rep.Outcomes) == 0 {
		builder.WriteString("No commits were processed.\n")
		return builder.String()
	}

	builder.WriteString("| # | Commit | Outcome | Details |\n")
	builder.WriteString("| --- | --- | --- | --- |\n")
	for _, outcome := range rep.Outcomes {
		status := string(outcome.Kind)
		if outcome.Reason != "" {
			status = fmt.Sprintf("%s (%s)", outcome.Kind, outcome.Reason)
		}
		details := outcome.Detail
		if details == "" {
			details = "-"
		}

		builder.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
			rep.Offset+outcome.Index+1,
			sanitizeMarkdownCell(outcome.Short),
			sanitizeMarkdownCell(status),
			sanitizeMarkdownCell(details),
		))
	}

	return builder.String()
}

func appendFile(path, what string, write func(io.Writer) error) error {
	ensureDir(path)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", what, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "failed to close %s file: %v\n", what, closeErr)
		}
	}()

	if err := write(file); err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}
	return nil
}

// ensureDir creates the parent directory of path. Failures are reported but
// the following open may still succeed.
func ensureDir(path string) {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not create directory %s: %v\n", dir, mkErr)
		}
	}
}

func writeMultilineOutput(w io.Writer, key, value string) error {
	if _, err := fmt.Fprintf(w, "%s<<EOF\n%s\nEOF\n", key, value); err != nil {
		return fmt.Errorf("write output %s: %w", key, err)
	}
	return nil
}

func sanitizeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	value = strings.ReplaceAll(value, "\n", "<br>")
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}
