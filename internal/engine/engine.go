// Package engine drives a Rook run: repeated rounds of trigger evaluation,
// concurrent agent dispatch against a frozen snapshot, and synchronized
// commits back to the blackboard, until the roster converges or a limit is
// hit. Within a round all triggered agents observe an identical view - a
// round is a consistent iteration, never a live race against half-written
// state.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/corvidlabs/rook/internal/verdict"
	"github.com/corvidlabs/rook/pkg/agent"
	"github.com/corvidlabs/rook/pkg/blackboard"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// State is the engine's position in its round lifecycle, exposed for
// observability and structured logging.
type State string

const (
	StateInit         State = "init"
	StateRoundPending State = "round_pending"
	StateDispatching  State = "dispatching"
	StateCommitting   State = "committing"
	StateConverged    State = "converged"
	StateStalled      State = "stalled"
	StateTimedOut     State = "timed_out"
	StateCancelled    State = "cancelled"
)

// Outcome classifies how a run terminated.
type Outcome string

const (
	OutcomeConverged Outcome = "converged"
	OutcomeStalled   Outcome = "stalled"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeCancelled Outcome = "cancelled"
)

// Result is the read-only export of a finished run: the full fact log, the
// terminal verdict when the run converged, and how it got there. It is a pure
// projection of committed facts and never triggers further computation.
type Result struct {
	RunID   string
	Mode    blackboard.Mode
	Outcome Outcome
	Rounds  int
	Facts   []blackboard.Fact
	Verdict *blackboard.Fact // nil unless Outcome is OutcomeConverged
}

// SeedProducer is the producer recorded on seed facts appended at INIT.
const SeedProducer = "seed"

// aggregatorProducer is recorded on the terminal verdict fact.
const aggregatorProducer = "aggregator"

// Engine coordinates one run: it owns the fact store, the agent roster, and
// the round state machine. An Engine is single-use; construct a new one per
// run.
type Engine struct {
	store  *blackboard.Store
	roster *agent.Roster
	cfg    Config
	runID  string
	state  State
	marks  map[string]evalMark
}

// evalMark remembers the last trigger evaluation for an agent so rounds that
// changed none of its input kinds can skip re-evaluating it.
type evalMark struct {
	valid     bool
	triggered bool
	counts    map[blackboard.Kind]int
}

// New creates an engine for a single run. Config errors are rejected here;
// nothing that happens during the run itself is fatal to the process.
func New(roster *agent.Roster, cfg Config) (*Engine, error) {
	if roster == nil {
		return nil, fmt.Errorf("roster is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}

	return &Engine{
		store:  blackboard.NewStore(),
		roster: roster,
		cfg:    cfg,
		runID:  uuid.New().String(),
		state:  StateInit,
		marks:  make(map[string]evalMark),
	}, nil
}

// RunID returns the unique identifier assigned to this run.
func (e *Engine) RunID() string { return e.runID }

// Run executes the state machine to a terminal state. Seeds are committed at
// INIT; rounds proceed until no agent triggers (converged), the round cap is
// hit (stalled), the wall-clock budget elapses (timed out), or the context is
// cancelled between rounds. The returned Result always carries the committed
// fact log; the error is non-nil exactly when the run did not converge.
func (e *Engine) Run(ctx context.Context, seeds []agent.Proposal) (*Result, error) {
	if e.state != StateInit {
		return nil, fmt.Errorf("engine has already run")
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("at least one seed fact is required")
	}

	// INIT: commit seed facts. A malformed seed is a caller error, not a
	// run outcome.
	for _, seed := range seeds {
		if _, err := e.commit(SeedProducer, seed); err != nil {
			return nil, fmt.Errorf("invalid seed: %w", err)
		}
	}

	var deadline time.Time
	if e.cfg.RunTimeout > 0 {
		deadline = time.Now().Add(e.cfg.RunTimeout)
	}

	e.logEvent("run_started", map[string]interface{}{
		"mode":       string(e.cfg.Mode),
		"agents":     e.roster.Names(),
		"seeds":      len(seeds),
		"max_rounds": e.cfg.MaxRounds,
	})

	round := 0
	for {
		round++

		// Cancellation is honored only at the round boundary so no
		// partial-round state is ever exposed.
		if err := ctx.Err(); err != nil {
			return e.terminate(StateCancelled, OutcomeCancelled, round-1, nil), err
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			result := e.terminate(StateTimedOut, OutcomeTimedOut, round-1, nil)
			return result, &TimeoutError{Budget: e.cfg.RunTimeout, Rounds: result.Rounds, FactCount: len(result.Facts)}
		}

		e.setState(StateRoundPending, round)
		snap := e.store.Snapshot()
		triggered := e.evaluateTriggers(snap)

		if len(triggered) == 0 {
			// The quiescent evaluation counts as the final round.
			return e.converge(snap, round)
		}

		if round > e.cfg.MaxRounds {
			names := make([]string, len(triggered))
			for i, a := range triggered {
				names[i] = a.Descriptor().Name
			}
			result := e.terminate(StateStalled, OutcomeStalled, e.cfg.MaxRounds, nil)
			return result, &StallError{Rounds: e.cfg.MaxRounds, FactCount: snap.Len(), Triggered: names}
		}

		e.setState(StateDispatching, round)
		outputs := e.dispatch(ctx, snap, triggered, deadline)

		e.setState(StateCommitting, round)
		e.commitRound(round, triggered, outputs)
	}
}

// evaluateTriggers returns the agents triggered by the snapshot, in roster
// order. Agents whose declared input kinds have not changed since their last
// negative evaluation are skipped without calling the predicate.
func (e *Engine) evaluateTriggers(snap *blackboard.Snapshot) []agent.Agent {
	var triggered []agent.Agent

	for _, a := range e.roster.Agents() {
		desc := a.Descriptor()
		mark := e.marks[desc.Name]

		if mark.valid && !mark.triggered && len(desc.Reads) > 0 && !inputsChanged(snap, desc.Reads, mark.counts) {
			continue
		}

		counts := make(map[blackboard.Kind]int, len(desc.Reads))
		for _, kind := range desc.Reads {
			counts[kind] = snap.Count(kind)
		}

		fired := a.Triggered(snap)
		e.marks[desc.Name] = evalMark{valid: true, triggered: fired, counts: counts}
		if fired {
			triggered = append(triggered, a)
		}
	}

	return triggered
}

func inputsChanged(snap *blackboard.Snapshot, reads []blackboard.Kind, prev map[blackboard.Kind]int) bool {
	for _, kind := range reads {
		if snap.Count(kind) != prev[kind] {
			return true
		}
	}
	return false
}

// agentOutput is what one dispatched agent produced in a round.
type agentOutput struct {
	proposals []agent.Proposal
	err       error
	timedOut  bool
}

// dispatch runs every triggered agent concurrently against the same frozen
// snapshot and blocks at the round barrier until all of them finish or time
// out. A per-agent timeout discards that agent's proposals for the round
// without affecting the others.
func (e *Engine) dispatch(ctx context.Context, snap *blackboard.Snapshot, triggered []agent.Agent, deadline time.Time) []agentOutput {
	outputs := make([]agentOutput, len(triggered))

	// A bare group, not WithContext: agents are isolated and one failure
	// must not cancel the rest.
	var g errgroup.Group

	for i, a := range triggered {
		i, a := i, a
		g.Go(func() error {
			outputs[i] = e.runAgent(ctx, snap, a, deadline)
			return nil
		})
	}

	// Goroutines never return errors; Wait is purely the round barrier.
	_ = g.Wait()
	return outputs
}

// runAgent invokes one agent under its round budget. The budget is enforced
// with a timer rather than the context alone: an agent that never observes
// its context is abandoned when the timer fires, its goroutine left to drain
// into the buffered channel, so the round barrier always releases and the
// other agents' proposals still commit.
func (e *Engine) runAgent(ctx context.Context, snap *blackboard.Snapshot, a agent.Agent, deadline time.Time) agentOutput {
	wait := e.cfg.AgentTimeout
	if !deadline.IsZero() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			remaining = time.Millisecond
		}
		if wait <= 0 || remaining < wait {
			wait = remaining
		}
	}

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if wait > 0 {
		runCtx, cancel = context.WithTimeout(ctx, wait)
	}
	defer cancel()

	done := make(chan agentOutput, 1)
	go func() {
		proposals, err := a.Run(runCtx, snap)
		done <- agentOutput{proposals: proposals, err: err}
	}()

	if wait <= 0 {
		return <-done
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) && (deadline.IsZero() || time.Now().Before(deadline)) {
			return agentOutput{timedOut: true}
		}
		return out
	case <-timer.C:
		return agentOutput{timedOut: true}
	}
}

// commitRound appends the round's proposals in deterministic order: roster
// order across agents, proposal order within an agent. Agent failures and
// rejected proposals are recorded as agent_error facts so the audit trail is
// self-describing; neither aborts the round.
func (e *Engine) commitRound(round int, triggered []agent.Agent, outputs []agentOutput) {
	committed := 0

	for i, a := range triggered {
		name := a.Descriptor().Name
		out := outputs[i]

		if out.timedOut {
			e.logEvent("agent_timed_out", map[string]interface{}{
				"agent": name,
				"round": round,
			})
			continue
		}

		if out.err != nil {
			e.recordAgentError(name, round, out.err.Error())
			continue
		}

		for _, proposal := range out.proposals {
			if _, err := e.commit(name, proposal); err != nil {
				e.recordAgentError(name, round, fmt.Sprintf("proposal rejected: %v", err))
				continue
			}
			committed++
		}
	}

	e.logEvent("round_committed", map[string]interface{}{
		"round":      round,
		"dispatched": len(triggered),
		"committed":  committed,
		"facts":      e.store.Len(),
	})
}

// commit appends one proposal to the store, applying the default confidence.
func (e *Engine) commit(producer string, p agent.Proposal) (blackboard.Fact, error) {
	confidence := p.Confidence
	if confidence == 0 {
		confidence = 1.0
	}
	return e.store.Append(p.Kind, producer, p.Payload, confidence, p.DependsOn)
}

// recordAgentError appends a non-authoritative agent_error fact. The failing
// agent is skipped for this round only; it may trigger again next round.
func (e *Engine) recordAgentError(agentName string, round int, message string) {
	payload := &blackboard.AgentErrorPayload{
		Agent:   agentName,
		Round:   round,
		Message: message,
	}
	if _, err := e.store.Append(blackboard.KindAgentError, agentName, payload, 1.0, nil); err != nil {
		log.Printf("[engine] failed to record agent_error fact for %s: %v", agentName, err)
	}
	e.logEvent("agent_failed", map[string]interface{}{
		"agent": agentName,
		"round": round,
		"error": message,
	})
}

// converge appends the terminal verdict fact and closes the run.
// The verdict's depends_on set references every fact that contributed to the
// aggregation, or the seed facts alone when nothing did.
func (e *Engine) converge(snap *blackboard.Snapshot, round int) (*Result, error) {
	payload, contributors, err := verdict.Aggregate(snap, e.cfg.Mode, round)
	if err != nil {
		return e.terminate(StateStalled, OutcomeStalled, round, nil), fmt.Errorf("verdict aggregation failed: %w", err)
	}

	fact, err := e.store.Append(blackboard.KindVerdict, aggregatorProducer, payload, 1.0, contributors)
	if err != nil {
		return e.terminate(StateStalled, OutcomeStalled, round, nil), fmt.Errorf("failed to append verdict: %w", err)
	}

	result := e.terminate(StateConverged, OutcomeConverged, round, &fact)

	e.logEvent("run_converged", map[string]interface{}{
		"rounds":  round,
		"facts":   len(result.Facts),
		"verdict": fact.ID,
	})
	return result, nil
}

// terminate closes the store and builds the run result. After this the store
// is read-only and eligible for inspection and export.
func (e *Engine) terminate(state State, outcome Outcome, rounds int, verdictFact *blackboard.Fact) *Result {
	e.state = state
	e.store.Close()

	result := &Result{
		RunID:   e.runID,
		Mode:    e.cfg.Mode,
		Outcome: outcome,
		Rounds:  rounds,
		Facts:   e.store.Snapshot().Facts(),
		Verdict: verdictFact,
	}

	if outcome != OutcomeConverged {
		e.logEvent("run_terminated", map[string]interface{}{
			"outcome": string(outcome),
			"rounds":  rounds,
			"facts":   len(result.Facts),
		})
	}
	return result
}

func (e *Engine) setState(state State, round int) {
	e.state = state
	if state == StateRoundPending {
		e.logEvent("round_started", map[string]interface{}{"round": round})
	}
}

// logEvent logs a structured event in JSON format.
func (e *Engine) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "engine"
	data["event_type"] = eventType
	data["run_id"] = e.runID

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[engine] failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
