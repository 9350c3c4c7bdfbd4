package commits_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rancher/cherry-pick-replay/internal/commits"
)

var _ = Describe("ParseText", func() {
	It("returns every hash line in file order when there is no section header", func() {
		refs, err := commits.ParseText(strings.NewReader(`
# release backports
abc1234 fix the thing
def5678901234

# a comment in between
0123456789abcdef0123456789abcdef01234567
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(refs).To(Equal([]string{"abc1234", "def5678901234", "0123456789abcdef0123456789abcdef01234567"}))
	})

	It("uses only the oldest first section when present", func() {
		refs, err := commits.ParseText(strings.NewReader(`# Commits in v1.2.3 that are not in HEAD
# Commit IDs (newest first):
ccccccc
bbbbbbb

# Commit IDs (oldest first - for cherry-picking):
aaaaaaa
bbbbbbb
ccccccc

# Detailed commit information:
----------------------------------------
Commit: aaaaaaa
Author: Jane <jane@example.com>
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(refs).To(Equal([]string{"aaaaaaa", "bbbbbbb", "ccccccc"}))
	})

	It("ignores lines that do not start with a hash", func() {
		refs, err := commits.ParseText(strings.NewReader("see abc1234\nabc12 too short\nabc1234\nabc1234zz not a hash\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(refs).To(Equal([]string{"abc1234"}))
	})

	It("keeps duplicates", func() {
		refs, err := commits.ParseText(strings.NewReader("abc1234\nabc1234\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(refs).To(HaveLen(2))
	})

	It("fails with ErrNoCommits when no hashes are present", func() {
		_, err := commits.ParseText(strings.NewReader("# only comments\n\n"))
		Expect(err).To(MatchError(commits.ErrNoCommits))
	})

	It("fails with ErrNoCommits when the oldest first section is empty", func() {
		_, err := commits.ParseText(strings.NewReader("abc1234\n# Commit IDs (oldest first):\n# Detailed commit information:\n"))
		Expect(err).To(MatchError(commits.ErrNoCommits))
	})
})

var _ = Describe("ParseYAML", func() {
	It("reads commits in file order with metadata", func() {
		file, err := commits.ParseYAML(strings.NewReader(`repo: rancher/rancher
releaseBranch: release/v2.9
commits:
  - sha: aaaaaaa1
    author: Jane Doe
    message: first change
    date: 2024-03-01T12:00:00Z
  - sha: " bbbbbbb2 "
    author: John Roe
    message: second change
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(file.Repo).To(Equal("rancher/rancher"))
		Expect(file.ReleaseBranch).To(Equal("release/v2.9"))
		Expect(file.Refs()).To(Equal([]string{"aaaaaaa1", "bbbbbbb2"}))
		Expect(file.Commits[0].Date.IsZero()).To(BeFalse())
	})

	It("rejects entries without a valid sha", func() {
		_, err := commits.ParseYAML(strings.NewReader("commits:\n  - sha: not-a-sha\n"))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("invalid sha"))
	})

	It("fails with ErrNoCommits for an empty document or list", func() {
		_, err := commits.ParseYAML(strings.NewReader(""))
		Expect(err).To(MatchError(commits.ErrNoCommits))

		_, err = commits.ParseYAML(strings.NewReader("repo: x\ncommits: []\n"))
		Expect(err).To(MatchError(commits.ErrNoCommits))
	})
})

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("dispatches on the file extension", func() {
		textPath := filepath.Join(dir, "commits.txt")
		Expect(os.WriteFile(textPath, []byte("abc1234\n"), 0o644)).To(Succeed())
		list, err := commits.Load(textPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Format).To(Equal(commits.FormatText))
		Expect(list.Refs).To(Equal([]string{"abc1234"}))

		yamlPath := filepath.Join(dir, "commits.YAML")
		Expect(os.WriteFile(yamlPath, []byte("repo: o/r\nreleaseBranch: main\ncommits:\n  - sha: abc1234\n"), 0o644)).To(Succeed())
		list, err = commits.Load(yamlPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Format).To(Equal(commits.FormatYAML))
		Expect(list.Repo).To(Equal("o/r"))
		Expect(list.ReleaseBranch).To(Equal("main"))
		Expect(list.Refs).To(Equal([]string{"abc1234"}))
	})

	It("reports unreadable files", func() {
		_, err := commits.Load(filepath.Join(dir, "missing.txt"))
		Expect(err).To(MatchError(os.ErrNotExist))
	})

	It("wraps ErrNoCommits with the path", func() {
		path := filepath.Join(dir, "empty.txt")
		Expect(os.WriteFile(path, []byte("# nothing\n"), 0o644)).To(Succeed())
		_, err := commits.Load(path)
		Expect(err).To(MatchError(commits.ErrNoCommits))
		Expect(err.Error()).To(ContainSubstring("empty.txt"))
	})
})
