package events

import (
	"context"
	"sort"
	"time"
)

// attach subscribes to pid and records the outcome
func (p *Pipeline) attach(pid int) bool {
	if err := p.src.Attach(pid); err != nil {
		p.log.Warn().Err(err).Int("pid", pid).Msg("Failed to attach to process")
		p.setState(pid, Detached)
		return false
	}
	p.setState(pid, Attached)
	p.log.Debug().Int("pid", pid).Msg("Attached to process")
	return true
}

// detach drops the subscriptions of pid
func (p *Pipeline) detach(pid int) {
	p.src.Detach(pid)
	p.setState(pid, Detached)
}

func (p *Pipeline) setState(pid int, s AttachState) {
	p.mu.Lock()
	p.states[pid] = s
	p.mu.Unlock()
}

func (p *Pipeline) touch(now time.Time) {
	p.mu.Lock()
	p.lastEvent = now
	p.mu.Unlock()
}

// evaluate computes the health state at now
func (p *Pipeline) evaluate(now time.Time) HealthState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	attached := 0
	for _, s := range p.states {
		if s == Attached {
			attached++
		}
	}
	if attached > 0 && now.Sub(p.lastEvent) <= p.opts.Config.HealthWindow {
		return Healthy
	}
	return Degraded
}

// checkHealth arms the recovery timer on entering Degraded and disarms it
// once the pipeline is healthy again
func (p *Pipeline) checkHealth(now time.Time) HealthState {
	state := p.evaluate(now)
	switch {
	case state == Degraded && p.recoveryTick == nil:
		p.degradedSince = now
		p.log.Warn().
			Dur("recovery_interval", p.opts.Config.RecoveryInterval).
			Msg("Event pipeline degraded, scheduling recovery")
		p.armRecovery()
	case state == Healthy && p.recoveryTick != nil:
		p.log.Info().Dur("degraded_for", now.Sub(p.degradedSince)).Msg("Event pipeline healthy again")
		p.disarmRecovery()
	}
	return state
}

func (p *Pipeline) armRecovery() {
	if p.recoveryTick == nil {
		p.recoveryTick = time.NewTicker(p.opts.Config.RecoveryInterval)
	}
}

func (p *Pipeline) disarmRecovery() {
	if p.recoveryTick != nil {
		p.recoveryTick.Stop()
		p.recoveryTick = nil
	}
}

// onRecoveryTick recovers when still degraded
func (p *Pipeline) onRecoveryTick(ctx context.Context, now time.Time) {
	if p.evaluate(now) == Healthy {
		p.disarmRecovery()
		return
	}
	p.recover(ctx, now)
}

// recover stops every subscription, rediscovers and attaches afresh
func (p *Pipeline) recover(ctx context.Context, now time.Time) {
	p.mu.Lock()
	var attached []int
	for pid, s := range p.states {
		if s == Attached {
			attached = append(attached, pid)
		}
	}
	p.mu.Unlock()

	p.log.Info().Int("attached", len(attached)).Msg("Recovering event pipeline")
	for _, pid := range attached {
		p.src.Detach(pid)
	}

	p.mu.Lock()
	for pid := range p.states {
		p.states[pid] = Unattached
	}
	p.mu.Unlock()

	for id := range p.pending {
		delete(p.pending, id)
	}
	p.syncPending()

	var pids []int
	if p.opts.Rediscover != nil {
		pids = p.opts.Rediscover(ctx)
	}
	for _, pid := range pids {
		p.attach(pid)
	}

	p.mu.Lock()
	p.lastEvent = now
	p.recoveries++
	p.mu.Unlock()

	if p.evaluate(now) == Healthy {
		p.disarmRecovery()
	}
	p.emit(Event{Kind: KindRecovered, At: now})
}

// Health returns a snapshot of the pipeline health
func (p *Pipeline) Health() Health {
	state := p.evaluate(p.opts.Env.Time())

	p.mu.RLock()
	defer p.mu.RUnlock()
	h := Health{
		State:      state,
		Processes:  make(map[int]AttachState, len(p.states)),
		LastEvent:  p.lastEvent,
		Recoveries: p.recoveries,
		Pending:    p.pendingN,
		Running:    p.running,
	}
	for pid, s := range p.states {
		h.Processes[pid] = s
		if s == Attached {
			h.Attached++
		}
	}
	return h
}

// AttachedPIDs lists the processes with an active subscription
func (p *Pipeline) AttachedPIDs() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []int
	for pid, s := range p.states {
		if s == Attached {
			out = append(out, pid)
		}
	}
	sort.Ints(out)
	return out
}
