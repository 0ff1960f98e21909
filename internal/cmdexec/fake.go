package cmdexec

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeResponse is the scripted result for a command prefix.
type FakeResponse struct {
	Output string
	Err    error
}

// Fake is an in-memory Runner for tests. Responses are matched by the longest
// registered prefix of "name arg1 arg2 ...".
type Fake struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	Calls     []Command
}

// NewFake returns an empty Fake; unmatched commands succeed with no output.
func NewFake() *Fake {
	return &Fake{responses: make(map[string]FakeResponse)}
}

// On scripts the response for commands starting with prefix.
func (f *Fake) On(prefix string, resp FakeResponse) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = resp
	return f
}

func (f *Fake) Output(_ context.Context, cmd Command) (string, error) {
	resp := f.record(cmd)
	return strings.TrimSpace(resp.Output), resp.Err
}

func (f *Fake) Stream(_ context.Context, cmd Command, onLine func(string)) error {
	resp := f.record(cmd)
	if onLine != nil && resp.Output != "" {
		for _, line := range strings.Split(resp.Output, "\n") {
			onLine(line)
		}
	}
	return resp.Err
}

// Ran reports whether any recorded command line starts with prefix.
func (f *Fake) Ran(prefix string) bool {
	return f.Count(prefix) > 0
}

// Count returns how many recorded command lines start with prefix.
func (f *Fake) Count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(line(c), prefix) {
			n++
		}
	}
	return n
}

func (f *Fake) record(cmd Command) FakeResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, cmd)
	full := line(cmd)
	best := ""
	for prefix := range f.responses {
		if strings.HasPrefix(full, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return FakeResponse{}
	}
	return f.responses[best]
}

func line(c Command) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", c.Name, strings.Join(c.Args, " ")))
}
