package commits

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	gh "github.com/rancher/cherry-pick-replay/internal/github"
)

const tagURLFormat = "https://github.com/<owner>/<repo>/releases/tag/<tag>"

// TagRef identifies a release tag on a GitHub (or GitHub Enterprise) host.
type TagRef struct {
	Host  string
	Owner string
	Repo  string
	Tag   string
}

// ParseTagURL parses a release tag URL such as
// https://github.com/rancher/rancher/releases/tag/v2.9.1.
func ParseTagURL(raw string) (TagRef, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil {
		return TagRef{}, fmt.Errorf("invalid tag url %q: %w", raw, err)
	}
	if parsed.Scheme != "https" || parsed.Host == "" {
		return TagRef{}, fmt.Errorf("invalid tag url %q: expected %s", raw, tagURLFormat)
	}

	parts := strings.SplitN(strings.Trim(parsed.Path, "/"), "/", 5)
	if len(parts) != 5 || parts[2] != "releases" || parts[3] != "tag" {
		return TagRef{}, fmt.Errorf("invalid tag url %q: expected %s", raw, tagURLFormat)
	}

	ref := TagRef{
		Host:  strings.ToLower(parsed.Host),
		Owner: parts[0],
		Repo:  strings.TrimSuffix(parts[1], ".git"),
		Tag:   parts[4],
	}
	if ref.Owner == "" || ref.Repo == "" {
		return TagRef{}, fmt.Errorf("invalid tag url %q: missing owner or repository", raw)
	}
	if err := validateTagName(ref.Tag); err != nil {
		return TagRef{}, fmt.Errorf("invalid tag %q in url: %w", ref.Tag, err)
	}
	return ref, nil
}

// RemoteName is the git remote the tag is fetched through.
func (r TagRef) RemoteName() string {
	return gh.RemoteNameFor(r.Owner, r.Repo)
}

// RemoteURL is the clone URL of the tag's repository.
func (r TagRef) RemoteURL() string {
	host := r.Host
	if host == "github.com" {
		host = ""
	}
	return gh.RemoteURL(host, r.Owner, r.Repo)
}

func (r TagRef) String() string {
	return fmt.Sprintf("%s/%s@%s", r.Owner, r.Repo, r.Tag)
}

func validateTagName(tag string) error {
	if tag == "" {
		return errors.New("tag cannot be empty")
	}

	if strings.ContainsAny(tag, " \t\n\r") {
		return errors.New("tag cannot contain whitespace")
	}

	if strings.Contains(tag, "..") || strings.Contains(tag, "@{") {
		return errors.New("tag cannot contain '..' or '@{'")
	}

	if strings.ContainsAny(tag, "~^:?*[\\") {
		return errors.New("tag contains forbidden git characters")
	}

	if strings.HasPrefix(tag, "-") || strings.HasSuffix(tag, "/") || strings.HasSuffix(tag, ".lock") {
		return errors.New("tag is not a valid git ref name")
	}

	return nil
}
