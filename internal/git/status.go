package git

import "strings"

// IsUnmerged reports whether a porcelain v1 XY pair denotes an unmerged path
// (both modified, added by both, deleted by both, or either side unmerged).
func IsUnmerged(x, y byte) bool {
	if x == 'U' || y == 'U' {
		return true
	}
	return (x == 'A' && y == 'A') || (x == 'D' && y == 'D')
}

// ConflictedPaths extracts the unmerged paths from porcelain v1 status lines,
// preserving their order.
func ConflictedPaths(lines []string) []string {
	var paths []string
	for _, line := range lines {
		if len(line) < 3 {
			continue
		}
		if !IsUnmerged(line[0], line[1]) {
			continue
		}
		path := strings.TrimSpace(line[3:])
		if path == "" {
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

// HasConflicts reports whether any status line is unmerged.
func HasConflicts(lines []string) bool {
	for _, line := range lines {
		if len(line) >= 2 && IsUnmerged(line[0], line[1]) {
			return true
		}
	}
	return false
}

func splitStatusOutput(output string) []string {
	output = strings.TrimRight(output, "\r\n")
	if output == "" {
		return nil
	}
	raw := strings.Split(output, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
