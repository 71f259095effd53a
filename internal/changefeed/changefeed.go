// Package changefeed carries "collection changed" signals between
// processes. Signals carry no payload; listeners re-read the collection.
package changefeed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Feed publishes and listens for change signals on a topic, usually a
// collection path.
type Feed interface {
	Publish(ctx context.Context, topic string) error
	Listen(ctx context.Context, topic string) (*Listener, error)
}

// Listener delivers coalesced change signals. C is closed when the
// underlying stream ends, either through Close or a transport failure.
type Listener struct {
	c       chan struct{}
	stop    func()
	stopped chan struct{}
	once    sync.Once
}

func newListener(stop func()) *Listener {
	return &Listener{
		c:       make(chan struct{}, 1),
		stop:    stop,
		stopped: make(chan struct{}),
	}
}

func (l *Listener) C() <-chan struct{} {
	return l.c
}

// Close stops the stream and waits for the delivery goroutine to exit.
func (l *Listener) Close() error {
	l.once.Do(l.stop)
	<-l.stopped
	return nil
}

// signal never blocks; pending signals collapse into one.
func (l *Listener) signal() {
	select {
	case l.c <- struct{}{}:
	default:
	}
}

// finish is called once by the delivery goroutine on exit.
func (l *Listener) finish() {
	close(l.c)
	close(l.stopped)
}

func channelName(prefix, topic string) string {
	sum := sha256.Sum256([]byte(topic))
	return prefix + hex.EncodeToString(sum[:8])
}
