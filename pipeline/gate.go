package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Decision is an operator verdict at one of the two gates.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// GateState tracks the confirmation machine. Review and execution are separate
// gates because reading saved code and running it carry different risk; they
// are never collapsed into one prompt.
type GateState string

const (
	GateAwaitingReview  GateState = "awaiting-review"
	GateAwaitingExecute GateState = "awaiting-execute"
	GateApproved        GateState = "approved"
	GateAborted         GateState = "aborted"
)

// ErrGateOrder is returned when a gate is consulted out of sequence.
var ErrGateOrder = errors.New("confirmation gate consulted out of order")

// ConfirmationGate runs the two sequential operator prompts over an injected
// stream pair so tests can script decisions without a terminal.
type ConfirmationGate struct {
	in    *bufio.Reader
	out   io.Writer
	state GateState
}

// NewConfirmationGate builds a gate in the awaiting-review state.
func NewConfirmationGate(in io.Reader, out io.Writer) *ConfirmationGate {
	return &ConfirmationGate{
		in:    bufio.NewReader(in),
		out:   out,
		state: GateAwaitingReview,
	}
}

// State exposes the current machine state.
func (g *ConfirmationGate) State() GateState {
	return g.state
}

// ConfirmReview asks the operator to approve the saved script for execution
// consideration. A rejection moves the whole run to the aborted state.
func (g *ConfirmationGate) ConfirmReview(ctx context.Context, scriptPath string) (Decision, error) {
	if g.state != GateAwaitingReview {
		return DecisionRejected, fmt.Errorf("%w: state %s", ErrGateOrder, g.state)
	}
	decision, err := g.ask(ctx, fmt.Sprintf("Review the file %q. Proceed toward execution? (y/N) ", scriptPath))
	if err != nil {
		g.state = GateAborted
		return DecisionRejected, err
	}
	if decision == DecisionApproved {
		g.state = GateAwaitingExecute
	} else {
		g.state = GateAborted
	}
	return decision, nil
}

// ConfirmExecute asks for the final authorization to run the script. Only an
// approval here hands control to the executor.
func (g *ConfirmationGate) ConfirmExecute(ctx context.Context) (Decision, error) {
	if g.state != GateAwaitingExecute {
		return DecisionRejected, fmt.Errorf("%w: state %s", ErrGateOrder, g.state)
	}
	decision, err := g.ask(ctx, "Execute the script now? (y/N) ")
	if err != nil {
		g.state = GateAborted
		return DecisionRejected, err
	}
	if decision == DecisionApproved {
		g.state = GateApproved
	} else {
		g.state = GateAborted
	}
	return decision, nil
}

type gateAnswer struct {
	line string
	err  error
}

// ask reads one line and interprets it. Anything but an explicit yes is a
// rejection; a closed input stream must never authorize execution, so EOF
// rejects too. The read runs on its own goroutine so a canceled run context
// unblocks the prompt instead of hanging on input that will never come.
func (g *ConfirmationGate) ask(ctx context.Context, prompt string) (Decision, error) {
	if _, err := fmt.Fprint(g.out, prompt); err != nil {
		return DecisionRejected, err
	}
	ch := make(chan gateAnswer, 1)
	go func() {
		line, err := g.in.ReadString('\n')
		ch <- gateAnswer{line: line, err: err}
	}()
	select {
	case <-ctx.Done():
		return DecisionRejected, ctx.Err()
	case ans := <-ch:
		if ans.err != nil && ans.err != io.EOF {
			return DecisionRejected, ans.err
		}
		answer := strings.ToLower(strings.TrimSpace(ans.line))
		if answer == "y" || answer == "yes" {
			return DecisionApproved, nil
		}
		return DecisionRejected, nil
	}
}
