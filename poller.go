package main

import (
	"bytes"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// EventSource is a pull feed of push events.
type EventSource interface {
	Fetch(ctx context.Context) ([]pushEvent, error)
}

type publisher interface {
	publish(name string, payload []byte) error
}

// poller fetches a source periodically and publishes the events whose
// payload changed since the previous fetch.
type poller struct {
	name              string
	source            EventSource
	pub               publisher
	minRefreshSeconds int
	timeout           time.Duration
	log               logrus.FieldLogger

	// only touched from run
	last              map[string][]byte
	mostRecentFetchMs int64
}

func newPoller(name string, source EventSource, pub publisher, minRefreshSeconds int, timeout time.Duration, log logrus.FieldLogger) *poller {
	return &poller{
		name:              name,
		source:            source,
		pub:               pub,
		minRefreshSeconds: minRefreshSeconds,
		timeout:           timeout,
		log:               log.WithField("feed", name),
		last:              make(map[string][]byte),
	}
}

func (p *poller) run(ctx context.Context) {
	interval := time.Duration(p.minRefreshSeconds) * time.Second
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			start := time.Now()
			p.tick(ctx)
			elapsed := time.Since(start)
			if p.mostRecentFetchMs != 0 {
				interval = maxDuration(elapsed/2, time.Duration(p.minRefreshSeconds)*time.Second)
			}
			t.Reset(interval)
		}
	}
}

func (p *poller) tick(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	events, err := p.source.Fetch(cctx)
	if err != nil {
		p.log.WithError(err).Warn("poll failed")
		return
	}
	p.log.WithField("events", len(events)).Debug("fetched")
	p.mostRecentFetchMs = time.Now().UnixMilli()

	changed := p.detectChanges(events)
	for _, ev := range changed {
		if err := p.pub.publish(ev.Name, ev.Payload); err != nil {
			p.log.WithError(err).WithField("key", ev.Key).Warn("publish failed")
		}
	}
	if len(changed) > 0 {
		p.log.WithField("changed", len(changed)).Info("updates published")
	}
}

// detectChanges keeps the events whose payload differs from the last fetch.
func (p *poller) detectChanges(in []pushEvent) []pushEvent {
	var changed []pushEvent
	for _, ev := range in {
		k := ev.Name + "/" + ev.Key
		if prev, ok := p.last[k]; ok && bytes.Equal(prev, ev.Payload) {
			continue
		}
		p.last[k] = ev.Payload
		changed = append(changed, ev)
	}
	return changed
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
