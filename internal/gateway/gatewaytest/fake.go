// Package gatewaytest provides a scripted Gateway for tests.
package gatewaytest

import (
	"context"
	"sync"
)

// Reply is one scripted Generate result.
type Reply struct {
	Text string
	Err  error
}

// Fake is a gateway.Gateway that returns scripted replies in order. Once the
// script is exhausted the last reply repeats. Fake is safe for concurrent use.
type Fake struct {
	ProviderName string
	ModelName    string

	// Func, when set, computes the reply instead of the script.
	Func func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	script  []Reply
	prompts []string
}

// New returns a Fake that answers with texts in order.
func New(texts ...string) *Fake {
	f := &Fake{ProviderName: "fake", ModelName: "fake-model"}
	for _, t := range texts {
		f.script = append(f.script, Reply{Text: t})
	}
	return f
}

// Failing returns a Fake whose every call fails with err.
func Failing(err error) *Fake {
	return &Fake{ProviderName: "fake", ModelName: "fake-model", script: []Reply{{Err: err}}}
}

// Then appends a reply to the script.
func (f *Fake) Then(text string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, Reply{Text: text, Err: err})
	return f
}

// Generate records the prompt and returns the next scripted reply. A done
// context fails the call with ctx.Err() without consuming the script.
func (f *Fake) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	call := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	fn := f.Func
	var reply Reply
	if len(f.script) > 0 {
		idx := call
		if idx >= len(f.script) {
			idx = len(f.script) - 1
		}
		reply = f.script[idx]
	}
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	return reply.Text, reply.Err
}

// Provider returns ProviderName.
func (f *Fake) Provider() string { return f.ProviderName }

// Model returns ModelName.
func (f *Fake) Model() string { return f.ModelName }

// Calls returns the number of Generate calls so far.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// Prompts returns a copy of every prompt received, in call order.
func (f *Fake) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}

// ListModels returns ModelName, or the first scripted error so a Failing
// fake also fails credential checks.
func (f *Fake) ListModels(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	var err error
	if len(f.script) > 0 {
		err = f.script[0].Err
	}
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return []string{f.ModelName}, nil
}
