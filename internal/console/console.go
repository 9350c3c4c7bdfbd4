package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const ruleWidth = 60

// Options controls how the console renders.
type Options struct {
	// NoColor disables ANSI styling regardless of the terminal.
	NoColor bool
}

// Console is the human interaction surface: progress lines, status messages
// and single-character prompts. It is safe for use by one goroutine at a
// time; writes are serialized so log output on another stream never splits a
// line.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	in     *lineReader
	styles styles
}

type styles struct {
	title   lipgloss.Style
	rule    lipgloss.Style
	info    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	failure lipgloss.Style
	skip    lipgloss.Style
	key     lipgloss.Style
	muted   lipgloss.Style
}

// New returns a Console reading answers from in and writing to out.
func New(in io.Reader, out io.Writer, opts Options) *Console {
	renderer := lipgloss.NewRenderer(out)
	if opts.NoColor {
		renderer.SetColorProfile(termenv.Ascii)
	}

	return &Console{
		out:    out,
		in:     newLineReader(in),
		styles: newStyles(renderer),
	}
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true),
		rule:    r.NewStyle().Foreground(lipgloss.Color("3")),
		info:    r.NewStyle().Foreground(lipgloss.Color("4")),
		success: r.NewStyle().Foreground(lipgloss.Color("2")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		failure: r.NewStyle().Foreground(lipgloss.Color("1")),
		skip:    r.NewStyle().Foreground(lipgloss.Color("5")),
		key:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		muted:   r.NewStyle().Faint(true),
	}
}

// Header prints a bold title framed by horizontal rules.
func (c *Console) Header(title string) {
	rule := c.styles.rule.Render(strings.Repeat("=", ruleWidth))
	c.println("")
	c.println(rule)
	c.println(c.styles.title.Render(title))
	c.println(rule)
}

// Progress prints the position of the commit about to be processed.
func (c *Console) Progress(index, total int) {
	c.println("")
	c.println(c.styles.title.Render(fmt.Sprintf("Progress: %d/%d", index, total)))
}

// Info prints a neutral status line.
func (c *Console) Info(msg string) {
	c.println(c.styles.info.Render(msg))
}

// Success prints a status line for a completed step.
func (c *Console) Success(msg string) {
	c.println(c.styles.success.Render("✓ " + msg))
}

// Warn prints a status line that needs attention but is not a failure.
func (c *Console) Warn(msg string) {
	c.println(c.styles.warn.Render("⚠ " + msg))
}

// Failure prints a status line for a failed step.
func (c *Console) Failure(msg string) {
	c.println(c.styles.failure.Render("✗ " + msg))
}

// Skipped prints a status line for a skipped commit.
func (c *Console) Skipped(msg string) {
	c.println(c.styles.skip.Render("⊘ " + msg))
}

// Detail prints an indented, de-emphasized line, such as a commit
// description or git's diagnostic output.
func (c *Console) Detail(msg string) {
	for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		c.println("  " + c.styles.muted.Render(line))
	}
}

// List prints a title followed by one bullet per item. Nothing is printed
// for an empty list.
func (c *Console) List(title string, items []string) {
	if len(items) == 0 {
		return
	}
	c.println(c.styles.title.Render(title))
	for _, item := range items {
		c.println("  - " + item)
	}
}

// Steps prints numbered instructions.
func (c *Console) Steps(title string, steps []string) {
	c.println("")
	c.println(c.styles.info.Render(title))
	for i, step := range steps {
		c.println(fmt.Sprintf("%d. %s", i+1, step))
	}
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

func (c *Console) print(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, text)
}
