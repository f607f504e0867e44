package sync

import "sync"

// Closer implements a shutdown signal that can be closed from multiple
// goroutines without panicking.
type Closer struct {
	closeOnce sync.Once
	doneCh    chan struct{}
}

func NewCloser() *Closer {
	return &Closer{doneCh: make(chan struct{})}
}

// Done returns the channel closed by the first Close call.
func (c *Closer) Done() <-chan struct{} {
	return c.doneCh
}

// Close closes the underlying channel exactly once.
func (c *Closer) Close() {
	c.closeOnce.Do(func() { close(c.doneCh) })
}
