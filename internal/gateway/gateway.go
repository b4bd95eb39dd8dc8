// Package gateway wires C1-C9 together into the running process (C10):
// it fans inbound messages from every enabled channel into the Agent
// Loop, binds a per-session memory-write tool before each run, dispatches
// due cron jobs back into the loop, and drives an optional heartbeat
// task. Grounded on haasonsaas-nexus/internal/channels/channel.go's
// Registry.AggregateMessages fan-in (same wg.Wait-then-close shape) and
// internal/cron/scheduler.go's ticker pattern for the heartbeat, the
// closest the teacher comes to a standalone periodic task since it has
// no heartbeat subsystem of its own.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/local/squidbot/internal/agent"
	"github.com/local/squidbot/internal/channel"
	"github.com/local/squidbot/internal/cron"
	"github.com/local/squidbot/internal/registry"
	"github.com/local/squidbot/internal/store"
	"github.com/local/squidbot/internal/tools"
	"github.com/local/squidbot/pkg/models"
)

// HeartbeatConfig configures the optional periodic prompt task (spec §5:
// "one optional heartbeat task" feeding into the same agent loop).
type HeartbeatConfig struct {
	Interval time.Duration
	Prompt   string
	Session  models.Session
}

// Gateway is the composition root: it owns the channel set, the cron
// scheduler, and the heartbeat, and drives every InboundMessage and due
// cron job through one shared Agent Loop.
type Gateway struct {
	store     *store.Store
	loop      *agent.Loop
	scheduler *cron.Scheduler
	logger    *slog.Logger

	mu       sync.RWMutex
	channels map[string]channel.Channel

	heartbeat HeartbeatConfig
}

// New creates a Gateway. channels is keyed by Channel.Name().
func New(st *store.Store, loop *agent.Loop, channels []channel.Channel, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gateway")

	byName := make(map[string]channel.Channel, len(channels))
	for _, ch := range channels {
		byName[ch.Name()] = ch
	}

	g := &Gateway{
		store:    st,
		loop:     loop,
		logger:   logger,
		channels: byName,
	}
	g.scheduler = cron.New(st, g.dispatchCronJob, logger)
	return g
}

// WithHeartbeat enables the periodic heartbeat task.
func (g *Gateway) WithHeartbeat(cfg HeartbeatConfig) *Gateway {
	g.heartbeat = cfg
	return g
}

// Run starts every channel's inbound loop, the cron scheduler, and the
// heartbeat (if configured), then fans inbound messages into the agent
// loop until ctx is cancelled. It returns once ctx is cancelled and every
// in-flight run has finished (spec §5: "a channel shutdown cancels its
// inbound iterator; in-flight runs ... continue to completion").
func (g *Gateway) Run(ctx context.Context) error {
	g.scheduler.Start(ctx)
	defer g.scheduler.Stop()

	inbound, err := g.startChannels(ctx)
	if err != nil {
		return err
	}

	var hbWG sync.WaitGroup
	if g.heartbeat.Interval > 0 {
		hbWG.Add(1)
		go func() {
			defer hbWG.Done()
			g.runHeartbeat(ctx)
		}()
	}

	// Runs for one session are chained: each waits for the previous run on
	// that session to finish, so a session's turns never overlap and run in
	// arrival order, while different sessions run in parallel.
	var runWG sync.WaitGroup
	lastRun := make(map[string]chan struct{})
	for msg := range inbound {
		msg := msg
		prev := lastRun[msg.Session.ID()]
		done := make(chan struct{})
		lastRun[msg.Session.ID()] = done
		runWG.Add(1)
		go func() {
			defer runWG.Done()
			defer close(done)
			if prev != nil {
				<-prev
			}
			g.handleInbound(ctx, msg)
		}()
	}
	// Inbound streams may close before ctx is cancelled; the scheduler and
	// heartbeat keep running until then.
	<-ctx.Done()
	runWG.Wait()
	hbWG.Wait()
	return nil
}

// startChannels launches every channel's Receive loop and fans them into
// one aggregate InboundMessage channel, matching the teacher's
// Registry.AggregateMessages.
func (g *Gateway) startChannels(ctx context.Context) (<-chan channel.InboundMessage, error) {
	out := make(chan channel.InboundMessage)
	var wg sync.WaitGroup

	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, ch := range g.channels {
		msgs, err := ch.Receive(ctx)
		if err != nil {
			return nil, fmt.Errorf("start channel %s: %w", ch.Name(), err)
		}
		wg.Add(1)
		go func(msgs <-chan channel.InboundMessage) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-msgs:
					if !ok {
						return
					}
					select {
					case out <- msg:
					case <-ctx.Done():
						return
					}
				}
			}
		}(msgs)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

// handleInbound looks up the originating channel, binds the per-session
// extra tools (spec §2: "notably the memory-write tool bound to this
// session"), and runs one agent turn.
func (g *Gateway) handleInbound(ctx context.Context, msg channel.InboundMessage) {
	ch, ok := g.lookupChannel(msg.Session.Channel)
	if !ok {
		g.logger.Warn("inbound message from unregistered channel", "channel", msg.Session.Channel)
		return
	}

	extraTools := []registry.Tool{tools.NewMemoryWriteTool(g.store, msg.Session.ID())}
	g.loop.Run(ctx, msg.Session, msg.Text, ch, agent.RunOptions{ExtraTools: extraTools})
}

// dispatchCronJob is the cron.DispatchFunc wired into the scheduler: it
// resolves job.Channel (prefix form "channel:sender_id", spec §3) to a
// concrete channel and session, then runs job.Message through the agent
// loop exactly as an inbound message would be.
func (g *Gateway) dispatchCronJob(ctx context.Context, job models.CronJob) {
	channelName, senderID, ok := splitSessionRef(job.Channel)
	if !ok {
		g.logger.Warn("cron job has malformed channel reference, skipping dispatch", "job", job.Name, "channel", job.Channel)
		return
	}

	ch, ok := g.lookupChannel(channelName)
	if !ok {
		g.logger.Warn("cron job targets unregistered channel, skipping dispatch", "job", job.Name, "channel", channelName)
		return
	}

	session := models.Session{Channel: channelName, SenderID: senderID}
	extraTools := []registry.Tool{tools.NewMemoryWriteTool(g.store, session.ID())}
	g.loop.Run(ctx, session, job.Message, ch, agent.RunOptions{ExtraTools: extraTools})
}

// runHeartbeat periodically runs the configured heartbeat prompt through
// the agent loop, the way cron.Scheduler's tick loop shape itself
// suggests: ticker in a goroutine, context-cancellable.
func (g *Gateway) runHeartbeat(ctx context.Context) {
	ch, ok := g.lookupChannel(g.heartbeat.Session.Channel)
	if !ok {
		g.logger.Warn("heartbeat targets unregistered channel, heartbeat disabled", "channel", g.heartbeat.Session.Channel)
		return
	}

	ticker := time.NewTicker(g.heartbeat.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			extraTools := []registry.Tool{tools.NewMemoryWriteTool(g.store, g.heartbeat.Session.ID())}
			g.loop.Run(ctx, g.heartbeat.Session, g.heartbeat.Prompt, ch, agent.RunOptions{ExtraTools: extraTools})
		}
	}
}

func (g *Gateway) lookupChannel(name string) (channel.Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ch, ok := g.channels[name]
	return ch, ok
}

// splitSessionRef parses the CronJob.Channel prefix form "channel:sender"
// (spec §3: "channel: string (prefix form, e.g. cli:local)").
func splitSessionRef(ref string) (channelName, senderID string, ok bool) {
	idx := strings.Index(ref, ":")
	if idx <= 0 || idx == len(ref)-1 {
		return "", "", false
	}
	return ref[:idx], ref[idx+1:], true
}
