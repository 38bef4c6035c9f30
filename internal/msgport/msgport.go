// Package msgport provides an in-process message channel between the loader
// and its background worker.
package msgport

import (
	"context"
	"errors"
	"sync"

	"github.com/reglet-dev/packload/domain/ports"
)

// ErrPortClosed is returned when posting on a closed port.
var ErrPortClosed = errors.New("message port closed")

// DefaultBuffer is the per-direction delivery buffer used when Pipe is given
// a non-positive size.
const DefaultBuffer = 16

// Port is one end of a Pipe.
//
// Posted messages go to an unbounded queue that a pump goroutine feeds into
// the peer's Messages channel in order, so Post never waits on the peer.
type Port struct {
	out  chan any
	in   <-chan any
	wake chan struct{}

	mu     sync.Mutex
	queue  []any
	closed bool
}

var _ ports.MessagePort = (*Port)(nil)

// Pipe returns two connected ports. Messages posted on main arrive on
// worker.Messages() and vice versa. buffer sizes each delivery channel; it
// never limits how many messages may be queued.
func Pipe(buffer int) (main, worker *Port) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	toWorker := make(chan any, buffer)
	toMain := make(chan any, buffer)
	main = newPort(toWorker, toMain)
	worker = newPort(toMain, toWorker)
	return main, worker
}

func newPort(out chan any, in <-chan any) *Port {
	p := &Port{out: out, in: in, wake: make(chan struct{}, 1)}
	go p.pump()
	return p
}

// Post queues msg for the peer and returns at once. It fails only when the
// port is closed or ctx is already done.
func (p *Port) Post(ctx context.Context, msg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPortClosed
	}
	p.queue = append(p.queue, msg)
	p.mu.Unlock()
	p.notify()
	return nil
}

// Messages yields payloads posted by the peer.
func (p *Port) Messages() <-chan any {
	return p.in
}

// Close closes the outbound direction. The peer's Messages channel is closed
// once everything already queued has been delivered. Close is idempotent.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	p.notify()
	return nil
}

// Pending reports how many posted messages have not yet entered the
// delivery buffer.
func (p *Port) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Port) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// pump moves queued messages into out until the port is closed and drained.
func (p *Port) pump() {
	defer close(p.out)
	for {
		p.mu.Lock()
		batch := p.queue
		p.queue = nil
		closed := p.closed
		p.mu.Unlock()

		for _, msg := range batch {
			p.out <- msg
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-p.wake
	}
}
