// Package pump drives the tracker from a single goroutine.
//
// The tracker is not safe for concurrent use, so every mutation goes through
// the pump: frames tick on a fixed interval and out-of-band requests (rearm,
// manual scan) are queued and drained at the start of the next frame. Other
// goroutines read the snapshot published after each frame.
package pump

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"playermap/internal/domain"
	"playermap/internal/service"
)

// DefaultFrameInterval is the tick period
const DefaultFrameInterval = 100 * time.Millisecond

const queueSize = 32

// ErrQueueFull is returned when the command queue cannot take another request
var ErrQueueFull = errors.New("pump: command queue full")

// Tracker is the part of service.TrackerService the pump drives
type Tracker interface {
	Tick(ctx context.Context, now time.Time) service.TickResult
	Rearm(ctx context.Context, now time.Time, reason string)
	ManualScan(ctx context.Context, now time.Time) (domain.ScanReport, error)
	Snapshot(now time.Time) service.Snapshot
}

// Config holds pump settings
type Config struct {
	FrameInterval time.Duration
	// Now is the clock; time.Now when nil
	Now func() time.Time
}

type commandKind int

const (
	cmdRearm commandKind = iota
	cmdManualScan
)

type command struct {
	kind   commandKind
	reason string
	reply  chan scanReply
}

type scanReply struct {
	report domain.ScanReport
	err    error
}

// Pump owns the tracker goroutine
type Pump struct {
	tracker  Tracker
	interval time.Duration
	now      func() time.Time
	logger   *log.Logger
	commands chan command

	mu       sync.RWMutex
	snapshot service.Snapshot
	last     service.TickResult
	frames   uint64
}

// New creates a pump for tracker
func New(tracker Tracker, cfg Config, logger *log.Logger) *Pump {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pump{
		tracker:  tracker,
		interval: cfg.FrameInterval,
		now:      cfg.Now,
		logger:   logger,
		commands: make(chan command, queueSize),
	}
}

// Run rearms the tracker and then ticks every frame until ctx is done
func (p *Pump) Run(ctx context.Context) error {
	p.logger.Printf("pump: starting (frame %s)", p.interval)
	p.tracker.Rearm(ctx, p.now(), "start")
	p.publish(p.now(), service.TickResult{})

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Printf("pump: stopping after %d frames", p.Frames())
			p.cancelPending(ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			p.Step(ctx)
		}
	}
}

// Step runs one frame: drain queued commands, tick, publish the snapshot.
// Run calls it on every frame; it must not be called concurrently with Run.
func (p *Pump) Step(ctx context.Context) service.TickResult {
	p.drain(ctx)

	now := p.now()
	res := p.tracker.Tick(ctx, now)
	if res.Err != nil {
		p.logger.Printf("pump: tick error: %v", res.Err)
	}
	p.publish(now, res)
	return res
}

func (p *Pump) drain(ctx context.Context) {
	for {
		select {
		case cmd := <-p.commands:
			p.execute(ctx, cmd)
		default:
			return
		}
	}
}

func (p *Pump) execute(ctx context.Context, cmd command) {
	now := p.now()
	switch cmd.kind {
	case cmdRearm:
		p.tracker.Rearm(ctx, now, cmd.reason)
	case cmdManualScan:
		report, err := p.tracker.ManualScan(ctx, now)
		if cmd.reply != nil {
			cmd.reply <- scanReply{report: report, err: err}
		}
	}
}

// cancelPending answers waiting manual scans once the pump stops
func (p *Pump) cancelPending(err error) {
	for {
		select {
		case cmd := <-p.commands:
			if cmd.reply != nil {
				cmd.reply <- scanReply{err: err}
			}
		default:
			return
		}
	}
}

func (p *Pump) publish(now time.Time, res service.TickResult) {
	snap := p.tracker.Snapshot(now)

	p.mu.Lock()
	p.snapshot = snap
	p.last = res
	p.frames++
	p.mu.Unlock()
}

// RequestRearm queues a world-change notification
func (p *Pump) RequestRearm(reason string) error {
	return p.enqueue(command{kind: cmdRearm, reason: reason})
}

// RequestManualScan queues a manual scan without waiting for its result
func (p *Pump) RequestManualScan() error {
	return p.enqueue(command{kind: cmdManualScan})
}

// ManualScan queues a manual scan and waits for the pump to run it
func (p *Pump) ManualScan(ctx context.Context) (domain.ScanReport, error) {
	reply := make(chan scanReply, 1)
	if err := p.enqueue(command{kind: cmdManualScan, reply: reply}); err != nil {
		return domain.ScanReport{}, err
	}

	select {
	case r := <-reply:
		return r.report, r.err
	case <-ctx.Done():
		return domain.ScanReport{}, ctx.Err()
	}
}

func (p *Pump) enqueue(cmd command) error {
	select {
	case p.commands <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Snapshot returns the state published after the latest frame
func (p *Pump) Snapshot() service.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// LastTick returns the result of the latest frame
func (p *Pump) LastTick() service.TickResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Frames returns the number of published frames
func (p *Pump) Frames() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.frames
}
