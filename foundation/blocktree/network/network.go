// Package network provides the broadcaster used to hand mined blocks to the
// rest of the system without blocking the miner.
package network

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
)

// DefaultQueueSize is the number of blocks that can be waiting to be
// delivered before Publish starts to fail.
const DefaultQueueSize = 100

// Range of the synthetic latency between two nodes in milliseconds.
const (
	minLatency = 10.0
	maxLatency = 100.0
)

// Broadcaster interface represents the behavior required to be implemented by
// any package providing support for publishing mined blocks.
type Broadcaster interface {
	Publish(block database.Block) error
	EstimatedLatency(nodeA uint32, nodeB uint32) float64
}

// Sink is called by the queue for every block that is delivered.
type Sink func(block database.Block)

// =============================================================================

// Queue implements the Broadcaster interface with a bounded channel that is
// drained by a single goroutine. Publish never blocks.
type Queue struct {
	blocks    chan database.Block
	shut      chan struct{}
	wg        sync.WaitGroup
	once      sync.Once
	sink      Sink
	evHandler func(v string, args ...any)
}

// NewQueue constructs a queue with the specified capacity and starts the
// goroutine delivering blocks to the sink.
func NewQueue(size int, sink Sink, evHandler func(v string, args ...any)) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}

	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	q := Queue{
		blocks:    make(chan database.Block, size),
		shut:      make(chan struct{}),
		sink:      sink,
		evHandler: ev,
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.deliverOperations()
	}()

	return &q
}

// Shutdown stops the delivery goroutine. Blocks still in the queue are
// dropped.
func (q *Queue) Shutdown() {
	q.once.Do(func() {
		q.evHandler("network: shutdown: started")
		defer q.evHandler("network: shutdown: completed")

		close(q.shut)
		q.wg.Wait()
	})
}

// Publish queues the block for delivery. If the queue is full or has been
// shut down, or the hash of the block is stale, the block is rejected.
func (q *Queue) Publish(block database.Block) error {
	if err := block.VerifyHash(); err != nil {
		return fmt.Errorf("%w: %w", database.ErrNetwork, err)
	}

	select {
	case <-q.shut:
		return fmt.Errorf("%w: broadcaster is shut down", database.ErrNetwork)
	default:
	}

	select {
	case q.blocks <- block:
		q.evHandler("network: Publish: queued: branch[%s]: blk[%s]", block.Header.BranchID, block.Hash)
		return nil
	default:
		return fmt.Errorf("%w: broadcast queue is full", database.ErrNetwork)
	}
}

// EstimatedLatency returns a synthetic latency between two nodes.
func (q *Queue) EstimatedLatency(nodeA uint32, nodeB uint32) float64 {
	if nodeA == nodeB {
		return 0
	}

	return minLatency + rand.Float64()*(maxLatency-minLatency)
}

// deliverOperations hands every queued block to the sink until shutdown.
func (q *Queue) deliverOperations() {
	q.evHandler("network: deliverOperations: G started")
	defer q.evHandler("network: deliverOperations: G completed")

	for {
		select {
		case block := <-q.blocks:
			if q.sink != nil {
				q.sink(block)
			}
		case <-q.shut:
			return
		}
	}
}
