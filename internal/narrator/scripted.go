package narrator

import (
	"context"
	"strings"
	"sync"
)

// Scripted replays canned replies in order and repeats the last one. With no
// replies it echoes the final prompt line. It is used offline and in tests.
type Scripted struct {
	mu      sync.Mutex
	replies []string
	next    int
	err     error
	calls   []Request
}

func NewScripted(replies ...string) *Scripted {
	return &Scripted{replies: replies}
}

// Fail makes every following call return err. A nil err clears it.
func (s *Scripted) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns the requests received so far.
func (s *Scripted) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.calls...)
}

func (s *Scripted) Model() string { return "scripted" }

func (s *Scripted) Available(context.Context) bool { return true }

func (s *Scripted) Complete(ctx context.Context, r Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, r)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		lines := strings.Split(strings.TrimSpace(r.Prompt), "\n")
		return "[scripted] " + lines[len(lines)-1], nil
	}
	reply := s.replies[min(s.next, len(s.replies)-1)]
	s.next++
	return reply, nil
}
