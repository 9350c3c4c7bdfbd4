package commits_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rancher/cherry-pick-replay/internal/commits"
	"github.com/rancher/cherry-pick-replay/internal/git"
)

var _ = Describe("WriteList", func() {
	It("writes the header, the oldest first ids and the details", func() {
		result := commits.DiffResult{
			Ref:       commits.TagRef{Owner: "rancher", Repo: "rancher", Tag: "v2.9.1"},
			RemoteURL: "https://github.com/rancher/rancher.git",
			Head:      "1111111111111111111111111111111111111111",
			TagCommit: "2222222222222222222222222222222222222222",
			Commits: []git.CommitInfo{
				{
					Hash:    "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
					Author:  "Jane Doe",
					Email:   "jane@example.com",
					Date:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
					Subject: "Fix the widget",
				},
				{Hash: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"},
			},
		}

		var out strings.Builder
		Expect(commits.WriteList(&out, result, time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC))).To(Succeed())

		text := out.String()
		Expect(text).To(HavePrefix("# Commits in v2.9.1 that are not in HEAD\n# Generated on Sat Mar 02 09:30:00 UTC 2024\n"))
		Expect(text).To(ContainSubstring("# Repository: https://github.com/rancher/rancher.git\n"))
		Expect(text).To(ContainSubstring("# Tag: v2.9.1 (2222222222222222222222222222222222222222)\n"))
		Expect(text).To(ContainSubstring("# Current HEAD: 1111111111111111111111111111111111111111\n"))
		Expect(text).To(ContainSubstring("# Commit IDs (oldest first - for cherry-picking):\naaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\nbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb\n\n"))
		Expect(text).To(ContainSubstring("Commit: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\nAuthor: Jane Doe <jane@example.com>\nDate: Fri Mar 1 12:00:00 2024 +0000\nSubject: Fix the widget\n"))
		Expect(text).To(ContainSubstring("Commit: bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb\nAuthor: Unknown\nDate: Unknown\n"))
	})
})
