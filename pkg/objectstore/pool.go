package objectstore

import (
	"errors"
	"sync"

	"plankton/pkg/log"
)

// DefaultPoolSize is used when a non-positive size is requested.
const DefaultPoolSize = 8

// ErrPoolClosed is returned by Get after Close.
var ErrPoolClosed = errors.New("pool closed")

// Conn is a pooled store connection.
type Conn interface {
	Backend
	// Reset aborts any open transaction before the connection is reused.
	Reset() error
}

// Pool lends at most size connections at a time. Get blocks until one is free.
type Pool struct {
	create func() (Conn, error)
	slots  chan struct{}
	mu     sync.Mutex
	idle   []Conn
	closed bool
}

// NewPool returns a pool creating connections lazily with create.
func NewPool(size int, create func() (Conn, error)) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{
		create: create,
		slots:  make(chan struct{}, size),
	}
}

// Get borrows a connection. Closing the returned Backend gives it back to the pool.
func (p *Pool) Get() (Backend, error) {
	p.slots <- struct{}{}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.slots
		return nil, ErrPoolClosed
	}
	var conn Conn
	if n := len(p.idle); n > 0 {
		conn = p.idle[n-1]
		p.idle = p.idle[:n-1]
	}
	p.mu.Unlock()

	if conn == nil {
		var err error
		conn, err = p.create()
		if err != nil {
			<-p.slots
			return nil, err
		}
	}
	return &pooled{Conn: conn, pool: p}, nil
}

func (p *Pool) put(conn Conn) {
	defer func() { <-p.slots }()

	if err := conn.Reset(); err != nil {
		log.Warn().Err(err).Msg("Dropping store connection that failed to reset")
		_ = conn.Close()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = conn.Close()
		return
	}
	p.idle = append(p.idle, conn)
}

// Close closes idle connections. Borrowed connections are closed when returned.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	var errs []error
	for _, conn := range p.idle {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.idle = nil
	return errors.Join(errs...)
}

// pooled returns its connection to the pool instead of closing it.
type pooled struct {
	Conn
	pool *Pool
	once sync.Once
}

func (c *pooled) Close() error {
	c.once.Do(func() { c.pool.put(c.Conn) })
	return nil
}
