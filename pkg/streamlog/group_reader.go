package streamlog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is a single delivery from the per-stream log, carrying the
// Redis-assigned message id alongside the decoded symbol/data fields.
type Entry struct {
	Stream string
	ID     string
	Symbol string
	Data   string
}

// GroupReader reads one or more streams under a durable consumer group,
// draining this consumer's pending list before reading new entries, and
// acknowledging only after the caller confirms successful dispatch.
type GroupReader struct {
	client       *redis.Client
	group        string
	consumer     string
	streams      []string
	blockTimeout time.Duration

	drained map[string]bool
}

// NewGroupReader creates a GroupReader over the given streams. It does
// not create consumer groups; call EnsureGroups before the first Read.
func NewGroupReader(client *redis.Client, group, consumer string, streams []string, blockTimeout time.Duration) *GroupReader {
	return &GroupReader{
		client:       client,
		group:        group,
		consumer:     consumer,
		streams:      streams,
		blockTimeout: blockTimeout,
		drained:      make(map[string]bool, len(streams)),
	}
}

// EnsureGroups creates the consumer group on each stream if it does not
// already exist.
func (g *GroupReader) EnsureGroups(ctx context.Context) error {
	for _, s := range g.streams {
		err := g.client.XGroupCreateMkStream(ctx, s, g.group, "0").Err()
		if err != nil && !isBusyGroupErr(err) {
			return err
		}
	}
	return nil
}

func isBusyGroupErr(err error) bool {
	return strings.Contains(err.Error(), "BUSYGROUP")
}

// Read returns the next batch of entries. On first call per stream it
// drains this consumer's pending-entries list (entries previously
// delivered but never acked, e.g. after a crash); once pending is empty
// it switches to reading new (">") entries, per spec §4.3.
func (g *GroupReader) Read(ctx context.Context) ([]Entry, error) {
	streamArgs := make([]string, 0, len(g.streams)*2)
	ids := make([]string, 0, len(g.streams))

	for _, s := range g.streams {
		streamArgs = append(streamArgs, s)
		if g.drained[s] {
			ids = append(ids, ">")
		} else {
			ids = append(ids, "0")
		}
	}
	streamArgs = append(streamArgs, ids...)

	res, err := g.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    g.group,
		Consumer: g.consumer,
		Streams:  streamArgs,
		Block:    g.blockTimeout,
		Count:    100,
	}).Result()

	if errors.Is(err, redis.Nil) {
		// Empty pending list for an undrained stream means it's caught up;
		// flip it to reading new entries within this same call.
		flipped := false
		for _, s := range g.streams {
			if !g.drained[s] {
				g.drained[s] = true
				flipped = true
			}
		}
		if flipped {
			return g.Read(ctx)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	flipped := false
	for _, stream := range res {
		if len(stream.Messages) == 0 && !g.drained[stream.Stream] {
			g.drained[stream.Stream] = true
			flipped = true
			continue
		}
		for _, msg := range stream.Messages {
			symbol, _ := msg.Values["symbol"].(string)
			data, _ := msg.Values["data"].(string)
			entries = append(entries, Entry{
				Stream: stream.Stream,
				ID:     msg.ID,
				Symbol: symbol,
				Data:   data,
			})
		}
	}
	if len(entries) == 0 && flipped {
		return g.Read(ctx)
	}
	return entries, nil
}

// Ack acknowledges an entry, removing it from the consumer group's
// pending list.
func (g *GroupReader) Ack(ctx context.Context, stream, id string) error {
	return g.client.XAck(ctx, stream, g.group, id).Err()
}
