package commits

import "strings"

// minPrefixMatch is the shortest start-from value matched as a hash prefix.
const minPrefixMatch = 7

// Queue is the ordered, read-only commit sequence handed to the orchestrator.
// Refs before Offset were handled by an earlier run and are never attempted.
type Queue struct {
	Refs   []string
	Offset int
}

// NewQueue builds a queue that starts at startFrom. An exact entry wins;
// otherwise a start-from of at least seven characters matches the single
// entry it is a prefix of (or that is a prefix of it). found is false when
// startFrom is set but matched nothing, in which case the queue starts at the
// beginning.
func NewQueue(refs []string, startFrom string) (q Queue, found bool) {
	q = Queue{Refs: refs}
	startFrom = strings.TrimSpace(startFrom)
	if startFrom == "" {
		return q, true
	}

	for i, ref := range refs {
		if ref == startFrom {
			q.Offset = i
			return q, true
		}
	}

	if len(startFrom) < minPrefixMatch {
		return q, false
	}

	needle := strings.ToLower(startFrom)
	match := -1
	for i, ref := range refs {
		ref = strings.ToLower(ref)
		if strings.HasPrefix(ref, needle) || (len(ref) >= minPrefixMatch && strings.HasPrefix(needle, ref)) {
			if match >= 0 {
				return q, false
			}
			match = i
		}
	}
	if match < 0 {
		return q, false
	}
	q.Offset = match
	return q, true
}

// Pending returns the refs that will be attempted, in order.
func (q Queue) Pending() []string {
	if q.Offset <= 0 {
		return q.Refs
	}
	if q.Offset >= len(q.Refs) {
		return nil
	}
	return q.Refs[q.Offset:]
}

// Len is the number of refs that will be attempted.
func (q Queue) Len() int {
	return len(q.Pending())
}
