package commits

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoCommits indicates a commit list that yielded no commit hashes.
var ErrNoCommits = errors.New("commits: no commits found")

const (
	FormatText = "text"
	FormatYAML = "yaml"
)

var (
	hashLine = regexp.MustCompile(`^([0-9a-fA-F]{7,40})(?:\s|$)`)
	hashOnly = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)
)

// List is a parsed commit list, oldest first.
type List struct {
	Path   string
	Format string
	Refs   []string

	// Repo and ReleaseBranch are only populated by the YAML format.
	Repo          string
	ReleaseBranch string
}

// File is the YAML commit list layout.
type File struct {
	Repo          string  `yaml:"repo"`
	ReleaseBranch string  `yaml:"releaseBranch"`
	Label         string  `yaml:"label,omitempty"`
	Commits       []Entry `yaml:"commits"`
}

// Entry is a single commit in a YAML commit list.
type Entry struct {
	SHA     string    `yaml:"sha"`
	Date    time.Time `yaml:"date,omitempty"`
	Author  string    `yaml:"author,omitempty"`
	Message string    `yaml:"message,omitempty"`
	PR      int       `yaml:"pr,omitempty"`
}

// Load reads the commit list at path. Files ending in .yaml or .yml use the
// YAML layout; everything else is parsed as text.
func Load(path string) (List, error) {
	f, err := os.Open(path)
	if err != nil {
		return List{}, fmt.Errorf("read commit list %s: %w", path, err)
	}
	defer f.Close()

	list := List{Path: path, Format: FormatText}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		list.Format = FormatYAML
		file, err := ParseYAML(f)
		if err != nil {
			return List{}, fmt.Errorf("parse commit list %s: %w", path, err)
		}
		list.Repo = file.Repo
		list.ReleaseBranch = file.ReleaseBranch
		list.Refs = file.Refs()
	default:
		refs, err := ParseText(f)
		if err != nil {
			return List{}, fmt.Errorf("parse commit list %s: %w", path, err)
		}
		list.Refs = refs
	}

	return list, nil
}

// ParseText extracts commit hashes from a text commit list. Blank lines and
// '#' comments are ignored, and each remaining line contributes the hash it
// starts with. When the list carries an "oldest first" section header only the
// hashes inside that section are returned; the section ends at a "newest
// first" or "Detailed" header.
func ParseText(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var all, section []string
	hasSection, inSection := false, false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "oldest first"):
			hasSection, inSection = true, true
			continue
		case strings.Contains(lower, "newest first"),
			strings.HasPrefix(strings.TrimLeft(lower, "# "), "detailed"):
			inSection = false
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		match := hashLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		all = append(all, match[1])
		if inSection {
			section = append(section, match[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan commit list: %w", err)
	}

	refs := all
	if hasSection {
		refs = section
	}
	if len(refs) == 0 {
		return nil, ErrNoCommits
	}
	return refs, nil
}

// ParseYAML decodes a YAML commit list and validates every entry's sha.
func ParseYAML(r io.Reader) (File, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, ErrNoCommits
		}
		return File{}, fmt.Errorf("decode yaml: %w", err)
	}

	for i, entry := range file.Commits {
		sha := strings.TrimSpace(entry.SHA)
		if !hashOnly.MatchString(sha) {
			return File{}, fmt.Errorf("commit %d: invalid sha %q", i+1, entry.SHA)
		}
		file.Commits[i].SHA = sha
	}

	if len(file.Commits) == 0 {
		return File{}, ErrNoCommits
	}
	return file, nil
}

// Refs returns the commit hashes in file order.
func (f File) Refs() []string {
	refs := make([]string, 0, len(f.Commits))
	for _, c := range f.Commits {
		refs = append(refs, c.SHA)
	}
	return refs
}
