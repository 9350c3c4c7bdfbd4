package commits

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// DefaultListFile is where diff-tag writes its commit list by default.
const DefaultListFile = "remote-only-commits.txt"

const (
	generatedLayout  = "Mon Jan 02 15:04:05 MST 2006"
	commitDateLayout = "Mon Jan 2 15:04:05 2006 -0700"
	detailSeparator  = "----------------------------------------"
)

// WriteList renders result as a text commit list that ParseText reads back in
// the same order.
func WriteList(w io.Writer, result DiffResult, now time.Time) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Commits in %s that are not in HEAD\n", result.Ref.Tag)
	fmt.Fprintf(&b, "# Generated on %s\n", now.Format(generatedLayout))
	fmt.Fprintf(&b, "# Repository: %s\n", result.RemoteURL)
	fmt.Fprintf(&b, "# Tag: %s (%s)\n", result.Ref.Tag, result.TagCommit)
	fmt.Fprintf(&b, "# Current HEAD: %s\n", result.Head)
	b.WriteString("\n")

	b.WriteString("# Commit IDs (oldest first - for cherry-picking):\n")
	for _, c := range result.Commits {
		b.WriteString(c.Hash)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString("# Detailed commit information:\n")
	for _, c := range result.Commits {
		b.WriteString(detailSeparator + "\n")
		fmt.Fprintf(&b, "Commit: %s\n", c.Hash)
		fmt.Fprintf(&b, "Author: %s\n", authorLine(c.Author, c.Email))
		fmt.Fprintf(&b, "Date: %s\n", dateLine(c.Date))
		fmt.Fprintf(&b, "Subject: %s\n", c.Subject)
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteListFile writes the commit list to path, replacing any existing file.
func WriteListFile(path string, result DiffResult, now time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteList(f, result, now); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func authorLine(name, email string) string {
	if name == "" {
		name = "Unknown"
	}
	if email == "" {
		return name
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

func dateLine(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format(commitDateLayout)
}
