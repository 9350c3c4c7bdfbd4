package gh

import (
	"fmt"
	"regexp"
	"strings"
)

var disallowedRemoteChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

const remotePrefix = "upstream"

// RemoteNameFor computes the git remote name used to fetch tags from
// owner/repo, e.g. "upstream_rancher_rancher". Characters git rejects in
// remote names are replaced with '-'.
func RemoteNameFor(owner, repo string) string {
	return fmt.Sprintf("%s_%s_%s", remotePrefix, sanitizeRemoteSegment(owner), sanitizeRemoteSegment(repo))
}

// RemoteURL returns the https clone URL for owner/repo on host. An empty host
// means github.com.
func RemoteURL(host, owner, repo string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = "github.com"
	}
	return fmt.Sprintf("https://%s/%s/%s.git", host, owner, repo)
}

func sanitizeRemoteSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	segment = strings.TrimSuffix(segment, ".git")
	segment = disallowedRemoteChars.ReplaceAllString(segment, "-")
	for strings.Contains(segment, "--") {
		segment = strings.ReplaceAll(segment, "--", "-")
	}
	segment = strings.Trim(segment, "-.")
	if segment == "" {
		return "unknown"
	}
	return segment
}
