package autostudent

import (
	"context"
	"sync"
	"time"
)

// GateState is the acknowledgment state of one run's ethics gate.
type GateState string

const (
	GateStatePending      GateState = "pending"
	GateStateAcknowledged GateState = "acknowledged"
	GateStateRejected     GateState = "rejected"
)

// AcknowledgmentNotice is the statement a human confirms before any
// generation call is issued.
const AcknowledgmentNotice = "The draft you are about to generate is AI-produced. " +
	"Submitting it as your own work is plagiarism, and responsibility for how it is used rests with you."

// PlagiarismWarnings rotate alongside the acknowledgment prompt, as in the
// original dashboard.
var PlagiarismWarnings = []string{
	"Remember, originality is key to learning. Submitting others' work as your own is plagiarism.",
	"Plagiarism can lead to serious academic penalties, including failing grades or expulsion.",
	"Always cite your sources properly to avoid unintentional plagiarism.",
	"Understanding the material yourself is more valuable than any shortcut.",
	"Think critically and express your own ideas. That's what education is about!",
	"Learning to research and write effectively are skills for life, don't cheat yourself out of them.",
	"When in doubt, ask your instructor about proper citation and academic integrity policies.",
}

// EthicsGate is the mandatory human checkpoint preceding generation. It
// holds no default: absence of an explicit acknowledgment within the timeout
// is rejection, never consent. The gate can be driven by an interactive UI
// or by a programmed test double; either way the pipeline only observes the
// resulting state.
type EthicsGate struct {
	timeout time.Duration

	mu      sync.Mutex
	state   GateState
	decided chan struct{}
}

// NewEthicsGate creates a pending gate with the given implicit-rejection
// timeout.
func NewEthicsGate(timeout time.Duration) *EthicsGate {
	return &EthicsGate{
		timeout: timeout,
		state:   GateStatePending,
		decided: make(chan struct{}),
	}
}

// State returns the current gate state.
func (g *EthicsGate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Acknowledge records the human's explicit confirmation. The first decision
// wins; later calls are no-ops.
func (g *EthicsGate) Acknowledge() {
	g.decide(GateStateAcknowledged)
}

// Reject records an explicit decline.
func (g *EthicsGate) Reject() {
	g.decide(GateStateRejected)
}

func (g *EthicsGate) decide(state GateState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != GateStatePending {
		return
	}
	g.state = state
	close(g.decided)
}

// Await blocks until the gate is decided, the timeout elapses, or the
// context is canceled. Timeout and cancellation both resolve to Rejected;
// the caller distinguishes cancellation via ctx.Err.
func (g *EthicsGate) Await(ctx context.Context) GateState {
	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case <-g.decided:
	case <-timer.C:
		g.decide(GateStateRejected)
	case <-ctx.Done():
		g.decide(GateStateRejected)
	}
	return g.State()
}
