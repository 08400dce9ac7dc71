// Package testutil provides shared fakes for exercising the command,
// registry and device layers without spawning real processes.
package testutil

import (
	"regexp"
	"testing"

	"touchctl/pkg/powershell"
)

// RunCall records one invocation of the fake runner.
type RunCall struct {
	Cmd  string
	Opts powershell.Options
}

// FakeRunner is a scripted powershell.Runner. Handler receives every
// command and decides the outcome; all calls are recorded.
type FakeRunner struct {
	Handler func(cmd string, opts powershell.Options) (powershell.Result, error)
	Calls   []RunCall
}

// Run implements powershell.Runner.
func (f *FakeRunner) Run(cmd string, opts powershell.Options) (powershell.Result, error) {
	f.Calls = append(f.Calls, RunCall{Cmd: cmd, Opts: opts})
	if f.Handler == nil {
		return powershell.Result{}, nil
	}
	return f.Handler(cmd, opts)
}

// CallCount returns how many commands were issued.
func (f *FakeRunner) CallCount() int {
	return len(f.Calls)
}

// LastCall returns the most recent invocation and fails the test if there
// was none.
func (f *FakeRunner) LastCall(t *testing.T) RunCall {
	t.Helper()
	if len(f.Calls) == 0 {
		t.Fatal("no runner calls recorded")
	}
	return f.Calls[len(f.Calls)-1]
}

// ConsentYes approves every elevation request.
func ConsentYes() powershell.Consent {
	return powershell.ConsentFunc(func() bool { return true })
}

// ConsentNo declines every elevation request.
func ConsentNo() powershell.Consent {
	return powershell.ConsentFunc(func() bool { return false })
}

// ConsentCounter counts prompts and answers with a fixed reply.
type ConsentCounter struct {
	Reply bool
	Asked int
}

// ConfirmElevate implements powershell.Consent.
func (c *ConsentCounter) ConfirmElevate() bool {
	c.Asked++
	return c.Reply
}

var exchangePathRe = regexp.MustCompile(`\$jsonFile = '([^']+)'`)

// ExchangePath extracts the JSON exchange-file path from a registry get
// command, failing the test when the command carries none.
func ExchangePath(t *testing.T, cmd string) string {
	t.Helper()
	m := exchangePathRe.FindStringSubmatch(cmd)
	if m == nil {
		t.Fatalf("command carries no exchange file: %q", cmd)
	}
	return m[1]
}
