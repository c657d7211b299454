package production

import (
	"context"

	"github.com/comalice/rtdevs"
)

// PublishedRecord bundles a trace record with the run it belongs to.
type PublishedRecord struct {
	Run    string
	Record rtdevs.Record
}

// ChannelPublisher forwards records to a Go channel. Publishing never blocks
// the simulation: records are dropped when the channel is full.
type ChannelPublisher struct {
	run     string
	ch      chan<- PublishedRecord
	dropped int
}

// NewChannelPublisher creates a ChannelPublisher for run writing to ch.
func NewChannelPublisher(run string, ch chan<- PublishedRecord) *ChannelPublisher {
	return &ChannelPublisher{run: run, ch: ch}
}

func (p *ChannelPublisher) Record(ctx context.Context, r rtdevs.Record) error {
	select {
	case p.ch <- PublishedRecord{Run: p.run, Record: r}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.dropped++
		return nil
	}
}

// Dropped returns the number of records lost to backpressure.
func (p *ChannelPublisher) Dropped() int { return p.dropped }

func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
