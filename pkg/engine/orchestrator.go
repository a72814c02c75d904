package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/config-genie/genie/pkg/connector"
	"github.com/config-genie/genie/pkg/inventory"
	"github.com/config-genie/genie/pkg/plan"
	"github.com/config-genie/genie/pkg/util"
	"github.com/config-genie/genie/pkg/validate"
)

// DefaultWorkers bounds in-flight device sessions when Config.Workers
// is zero.
const DefaultWorkers = 5

// Config wires an Engine. Connector and Decider are required; the rest
// have working defaults.
type Config struct {
	Connector connector.Connector
	Creds     connector.Credentials
	Validator validate.Validator
	Decider   Decider
	Emitter   Emitter

	// Workers bounds concurrent device sessions.
	Workers int
	// Retry governs apply-phase sends. Rollback sends never retry.
	Retry connector.RetryPolicy

	ConnectTimeout time.Duration
	CommandTimeout time.Duration

	// NoRollback leaves partial config in place after failures.
	NoRollback bool
	// ConfirmAbove is the highest finding severity that applies
	// without asking the Decider.
	ConfirmAbove plan.Severity
}

// Engine pushes one plan to a set of devices per run.
type Engine struct {
	cfg Config

	// confirmMu serializes Decider calls so interactive prompts
	// never interleave.
	confirmMu sync.Mutex

	stopped atomic.Bool
}

// New builds an engine. Zero-value config fields get defaults.
func New(cfg Config) (*Engine, error) {
	if cfg.Connector == nil {
		return nil, fmt.Errorf("engine: connector is required")
	}
	if cfg.Decider == nil {
		return nil, fmt.Errorf("engine: decider is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.Backoff == nil {
		cfg.Retry = connector.DefaultRetryPolicy()
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 15 * time.Second
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 30 * time.Second
	}
	if cfg.Validator == nil {
		cfg.Validator = validate.NewCommandValidator()
	}
	if cfg.ConfirmAbove == 0 {
		cfg.ConfirmAbove = plan.SeverityMedium
	}
	return &Engine{cfg: cfg}, nil
}

// Run executes the plan on each device with bounded parallelism and
// returns exactly one result. It never returns an error: every failure
// mode is expressed in the result. The first device failure stops
// dispatch of devices that have not started and halts in-flight
// sessions after their current command finishes; cancelling ctx does
// the same.
func (e *Engine) Run(ctx context.Context, devices []*inventory.Device, p *plan.Plan) *RunResult {
	started := time.Now()
	e.stopped.Store(false)

	// Sealing freezes risk annotations so concurrent per-device
	// validation cannot mutate the shared plan mid-run.
	p.Seal()

	mgr := connector.NewManager(e.cfg.Connector, e.cfg.Creds, e.cfg.ConnectTimeout)
	defer mgr.CloseAll()

	sessions := make([]*DeviceSession, len(devices))
	for i, dev := range devices {
		sessions[i] = newSession(dev, p, e.cfg.Emitter)
	}

	sem := make(chan struct{}, e.cfg.Workers)
	var wg sync.WaitGroup
	for i := range sessions {
		sess := sessions[i]
		if e.shouldStop(ctx) {
			sess.abort(e.abortKind(ctx), e.abortErr(ctx))
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			sess.abort(ErrKindUserAborted, ctx.Err())
			continue
		}
		if e.shouldStop(ctx) {
			<-sem
			sess.abort(e.abortKind(ctx), e.abortErr(ctx))
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			e.runDevice(ctx, mgr, sess)
		}()
	}
	wg.Wait()

	if !e.cfg.NoRollback {
		e.sweepRollback(ctx, mgr, sessions)
	} else {
		for _, sess := range sessions {
			if sess.State() == StateFailed && len(sess.Applied()) > 0 {
				sess.mu.Lock()
				sess.errKind = ErrKindRollbackSkipped
				sess.mu.Unlock()
			}
		}
	}

	result := e.buildResult(sessions, started)
	if e.cfg.Emitter != nil {
		e.cfg.Emitter.Emit(Event{
			Type:   EventRunCompleted,
			Time:   time.Now(),
			Result: result,
		})
	}
	return result
}

func (e *Engine) shouldStop(ctx context.Context) bool {
	return e.stopped.Load() || ctx.Err() != nil
}

func (e *Engine) abortKind(ctx context.Context) ErrorKind {
	if ctx.Err() != nil {
		return ErrKindUserAborted
	}
	return ErrKindNone
}

func (e *Engine) abortErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", util.ErrUserAborted, err)
	}
	return nil
}

// haltInFlight stops a session once the stop flag is set, between state
// transitions and between command sends. A session that has sent
// nothing is aborted; a session partway through applying fails so the
// rollback sweep picks it up.
func (e *Engine) haltInFlight(ctx context.Context, sess *DeviceSession) bool {
	if !e.shouldStop(ctx) {
		return false
	}
	util.WithDevice(sess.Device.Name).Warn("Run stopped, halting session")
	if len(sess.Applied()) == 0 {
		sess.abort(e.abortKind(ctx), e.abortErr(ctx))
		return true
	}
	err := e.abortErr(ctx)
	if err == nil {
		err = fmt.Errorf("%w: run halted after another device failed", util.ErrUserAborted)
	}
	sess.fail(ErrKindUserAborted, err)
	return true
}

// runDevice walks one session through its lifecycle. Any failure sets
// the stop flag so no further devices are dispatched.
func (e *Engine) runDevice(ctx context.Context, mgr *connector.Manager, sess *DeviceSession) {
	dev := sess.Device
	log := util.WithDevice(dev.Name)

	sess.Metrics.markStart()
	defer sess.Metrics.markEnd()

	if sess.Plan.DryRun {
		e.runDryRun(sess)
		return
	}

	// Connect.
	sess.transition(StateConnecting)
	connStart := time.Now()
	conn, err := mgr.Get(ctx, dev)
	sess.Metrics.markConnect(time.Since(connStart))
	if err != nil {
		log.Errorf("Connection failed: %v", err)
		sess.fail(ErrKindConnection, fmt.Errorf("%w: %v", util.ErrConnectionFailed, err))
		e.stopped.Store(true)
		return
	}
	defer mgr.Release(dev.Name)

	if e.haltInFlight(ctx, sess) {
		return
	}

	// Validate against the live config.
	sess.transition(StateValidating)
	valStart := time.Now()
	snapshot, err := conn.Snapshot(ctx)
	if err != nil {
		log.Warnf("Could not snapshot running config: %v", err)
		snapshot = ""
	}
	findings := e.cfg.Validator.Validate(sess.Plan, snapshot, dev)
	sess.setFindings(findings)
	sess.Metrics.markValidate(time.Since(valStart))

	if validate.HasBlocking(findings) {
		log.Errorf("Validation blocked the plan: %s", validate.MaxSeverity(findings))
		sess.fail(ErrKindValidationBlocked, fmt.Errorf("%w: %d findings at %s",
			util.ErrValidationBlocked, len(findings), validate.MaxSeverity(findings)))
		e.stopped.Store(true)
		return
	}

	// Ask before applying anything riskier than the threshold.
	if validate.MaxSeverity(findings) > e.cfg.ConfirmAbove {
		sess.transition(StateAwaitingConfirmation)
		ok := e.confirm(ConfirmationRequest{
			Kind:     RequestApply,
			Device:   dev,
			Commands: sess.Plan.Texts(),
			Findings: findings,
		})
		if !ok {
			log.Info("Apply declined by operator")
			sess.fail(ErrKindUserAborted, util.ErrUserAborted)
			e.stopped.Store(true)
			return
		}
	}

	// Apply.
	if e.haltInFlight(ctx, sess) {
		return
	}
	sess.transition(StateApplying)
	for _, cmd := range sess.Plan.Commands {
		if e.haltInFlight(ctx, sess) {
			return
		}
		sendStart := time.Now()
		_, retries, err := connector.SendWithRetry(ctx, conn, cmd.Text, e.cfg.CommandTimeout, e.cfg.Retry)
		sess.Metrics.recordSend(time.Since(sendStart), retries)
		if err != nil {
			if ctx.Err() != nil {
				log.Warn("Run cancelled during send")
				sess.fail(ErrKindUserAborted, fmt.Errorf("%w: %v", util.ErrUserAborted, ctx.Err()))
			} else {
				log.Errorf("Command %q failed: %v", cmd.Text, err)
				sess.fail(ErrKindCommand, fmt.Errorf("%w: %v", util.ErrCommandFailed, err))
			}
			e.stopped.Store(true)
			return
		}
		sess.recordApplied(cmd)
	}
	if e.haltInFlight(ctx, sess) {
		return
	}

	// Verify, if the plan names a check. Output is attached for the
	// operator; it does not gate the commit.
	if sess.Plan.VerifyCommand != "" {
		sess.transition(StateVerifying)
		out, err := conn.Send(ctx, sess.Plan.VerifyCommand, e.cfg.CommandTimeout)
		if err != nil {
			out = fmt.Sprintf("verify command failed: %v", err)
		}
		sess.setVerifyOutput(out)
	}

	sess.transition(StateCommitted)
	log.Infof("Committed %d commands", len(sess.Applied()))
}

// runDryRun validates the plan without touching the device and commits
// with zero sends. Even Critical findings only warn here.
func (e *Engine) runDryRun(sess *DeviceSession) {
	sess.transition(StateValidating)
	valStart := time.Now()
	findings := e.cfg.Validator.Validate(sess.Plan, "", sess.Device)
	sess.setFindings(findings)
	sess.Metrics.markValidate(time.Since(valStart))
	sess.transition(StateCommitted)
}

// confirm serializes decider calls. Errors count as denial.
func (e *Engine) confirm(req ConfirmationRequest) bool {
	e.confirmMu.Lock()
	defer e.confirmMu.Unlock()
	ok, err := e.cfg.Decider.Confirm(req)
	if err != nil {
		util.WithDevice(req.Device.Name).Warnf("Confirmation failed: %v", err)
		return false
	}
	return ok
}

// sweepRollback undoes applied commands on every failed session, in
// dispatch order. A rollback failure halts the sweep: remaining
// candidates are marked skipped rather than risk compounding damage.
func (e *Engine) sweepRollback(ctx context.Context, mgr *connector.Manager, sessions []*DeviceSession) {
	halted := false
	for _, sess := range sessions {
		if sess.State() != StateFailed || len(sess.Applied()) == 0 {
			continue
		}
		if halted {
			e.markSkipped(sess, errors.New("rollback sweep halted by earlier failure"))
			continue
		}
		if !e.rollbackDevice(ctx, mgr, sess) {
			halted = true
		}
		sess.Metrics.markEnd()
	}
}

// rollbackDevice undoes one session's applied commands. Returns false
// when the rollback itself failed.
func (e *Engine) rollbackDevice(ctx context.Context, mgr *connector.Manager, sess *DeviceSession) bool {
	dev := sess.Device
	log := util.WithDevice(dev.Name)

	rb, err := plan.GenerateRollback(sess.Applied())
	if err != nil {
		log.Errorf("Cannot build rollback plan: %v", err)
		e.markSkipped(sess, err)
		return true
	}

	ok := e.confirm(ConfirmationRequest{
		Kind:     RequestRollback,
		Device:   dev,
		Commands: rb.Texts(),
		Findings: sess.Findings(),
	})
	if !ok {
		log.Warn("Rollback declined, leaving partial config in place")
		e.markSkipped(sess, util.ErrUserAborted)
		return true
	}

	// The apply-phase session may be gone (connection failure is one
	// reason we are here), so dial fresh if needed. Use a background
	// context: a cancelled run must still clean up after itself.
	rbCtx := context.WithoutCancel(ctx)
	conn, err := mgr.Get(rbCtx, dev)
	if err != nil {
		log.Errorf("Cannot reconnect for rollback: %v", err)
		sess.transition(StateRollingBack)
		e.markRollbackFailed(sess, err)
		return false
	}
	defer mgr.Release(dev.Name)

	sess.transition(StateRollingBack)
	for _, cmd := range rb.Commands {
		// No retries here: a flaky device mid-rollback needs a
		// human, not more traffic.
		if _, err := conn.Send(rbCtx, cmd.Text, e.cfg.CommandTimeout); err != nil {
			log.Errorf("Rollback command %q failed: %v", cmd.Text, err)
			e.markRollbackFailed(sess, err)
			return false
		}
	}
	sess.transition(StateRolledBack)
	log.Infof("Rolled back %d commands", rb.Len())
	return true
}

func (e *Engine) markSkipped(sess *DeviceSession, cause error) {
	sess.mu.Lock()
	sess.errKind = ErrKindRollbackSkipped
	if cause != nil {
		sess.err = fmt.Errorf("%w: %v", util.ErrRollbackSkipped, cause)
	}
	sess.mu.Unlock()
}

func (e *Engine) markRollbackFailed(sess *DeviceSession, cause error) {
	sess.mu.Lock()
	sess.errKind = ErrKindRollbackFailed
	sess.err = fmt.Errorf("%w: %v", util.ErrRollbackFailed, cause)
	sess.mu.Unlock()
	sess.transition(StateRollbackFailed)
}

func (e *Engine) buildResult(sessions []*DeviceSession, started time.Time) *RunResult {
	metrics := RunMetrics{
		Started: started,
		Elapsed: time.Since(started),
		Devices: len(sessions),
	}
	for _, sess := range sessions {
		switch sess.State() {
		case StateCommitted:
			metrics.Committed++
		case StateAborted:
			metrics.Aborted++
		case StateRolledBack:
			metrics.RolledBack++
			metrics.RollbackOccurred = true
		case StateRollbackFailed:
			metrics.Failed++
			metrics.RollbackOccurred = true
		default:
			metrics.Failed++
		}
	}
	return &RunResult{
		Status:   computeStatus(sessions),
		Sessions: sessions,
		Metrics:  metrics,
	}
}
