package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrNoInput is returned by Ask when the input stream is closed.
var ErrNoInput = errors.New("console: input closed")

// Choice is one answer accepted by Ask.
type Choice struct {
	Key   string
	Label string
}

// Ask prints question with its choices and blocks until the human enters one
// of the choice keys. Invalid answers are rejected and the question is asked
// again; nothing is ever defaulted. It returns ErrNoInput when the input is
// exhausted and ctx.Err() when ctx is canceled.
func (c *Console) Ask(ctx context.Context, question string, choices []Choice) (string, error) {
	if len(choices) == 0 {
		return "", errors.New("console: no choices")
	}

	keys := make([]string, 0, len(choices))
	for _, choice := range choices {
		keys = append(keys, choice.Key)
	}

	for {
		c.println("")
		c.println(c.styles.title.Render(question))
		for _, choice := range choices {
			c.println(fmt.Sprintf("  %s - %s", c.styles.key.Render(choice.Key), choice.Label))
		}
		c.print(c.styles.title.Render(fmt.Sprintf("Your choice [%s]: ", strings.Join(keys, "/"))))

		line, err := c.in.ReadLine(ctx)
		if err != nil {
			c.println("")
			return "", err
		}

		answer := strings.ToLower(strings.TrimSpace(line))
		for _, choice := range choices {
			if answer == strings.ToLower(choice.Key) {
				return choice.Key, nil
			}
		}

		c.println(c.styles.failure.Render(fmt.Sprintf("Invalid choice %q. Please enter %s.", answer, joinChoices(keys))))
	}
}

func joinChoices(keys []string) string {
	switch len(keys) {
	case 1:
		return keys[0]
	case 2:
		return keys[0] + " or " + keys[1]
	default:
		return strings.Join(keys[:len(keys)-1], ", ") + ", or " + keys[len(keys)-1]
	}
}

type lineResult struct {
	line string
	err  error
}

// lineReader reads lines on a background goroutine so a blocked read can be
// abandoned when the context is canceled. The goroutine is started on the
// first read and delivers one line per request.
type lineReader struct {
	src      *bufio.Reader
	once     sync.Once
	requests chan struct{}
	results  chan lineResult
	pending  bool
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{
		src:      bufio.NewReader(r),
		requests: make(chan struct{}),
		results:  make(chan lineResult, 1),
	}
}

func (l *lineReader) start() {
	go func() {
		for range l.requests {
			line, err := l.src.ReadString('\n')
			if err != nil && !(errors.Is(err, io.EOF) && line != "") {
				if errors.Is(err, io.EOF) {
					err = ErrNoInput
				}
				l.results <- lineResult{err: err}
				continue
			}
			l.results <- lineResult{line: strings.TrimRight(line, "\r\n")}
		}
	}()
}

// ReadLine returns the next input line without its terminator.
func (l *lineReader) ReadLine(ctx context.Context) (string, error) {
	l.once.Do(l.start)

	// A read abandoned on cancellation is still in flight; its line is the
	// answer to this request.
	if !l.pending {
		select {
		case l.requests <- struct{}{}:
			l.pending = true
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	select {
	case res := <-l.results:
		l.pending = false
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
