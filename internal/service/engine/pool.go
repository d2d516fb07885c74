package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"plateserver/internal/apperror"

	"golang.org/x/sync/errgroup"
)

// Session is one detector and one reader. Model objects are not safe for
// concurrent use, so a session serves one request at a time.
type Session struct {
	Detector Detector
	Reader   Reader
}

func (s *Session) Close() error {
	var errs []error
	if s.Detector != nil {
		errs = append(errs, s.Detector.Close())
	}
	if s.Reader != nil {
		errs = append(errs, s.Reader.Close())
	}
	return errors.Join(errs...)
}

var ErrPoolClosed = errors.New("session pool closed")

// SessionFactory loads the models for session number id.
type SessionFactory func(id int) (*Session, error)

// Pool hands out sessions through a buffered channel.
type Pool struct {
	sessions chan *Session
	all      []*Session
	closed   chan struct{}
	once     sync.Once
}

// NewPool builds size sessions concurrently. If any of them fails the ones
// already loaded are closed.
func NewPool(size int, factory SessionFactory) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}

	all := make([]*Session, size)
	var g errgroup.Group
	for i := 0; i < size; i++ {
		g.Go(func() error {
			s, err := factory(i)
			if err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			all[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, s := range all {
			if s != nil {
				s.Close()
			}
		}
		return nil, err
	}

	p := &Pool{sessions: make(chan *Session, size), all: all, closed: make(chan struct{})}
	for _, s := range all {
		p.sessions <- s
	}
	return p, nil
}

// Acquire waits for a free session until ctx is done or the pool is closed.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	select {
	case <-p.closed:
		return nil, apperror.Wrap(apperror.KindUnavailable, ErrPoolClosed)
	default:
	}

	select {
	case s := <-p.sessions:
		return s, nil
	case <-p.closed:
		return nil, apperror.Wrap(apperror.KindUnavailable, ErrPoolClosed)
	case <-ctx.Done():
		return nil, apperror.Wrap(apperror.KindUnavailable, ctx.Err())
	}
}

// Release returns s to the pool.
func (p *Pool) Release(s *Session) {
	p.sessions <- s
}

func (p *Pool) Size() int {
	return len(p.all)
}

// Idle reports how many sessions are currently free.
func (p *Pool) Idle() int {
	return len(p.sessions)
}

// Close stops handing out sessions, waits for every session to be released
// and frees the models of each one it gets back. Sessions still held when ctx
// is done are left untouched.
func (p *Pool) Close(ctx context.Context) error {
	err := ErrPoolClosed
	p.once.Do(func() {
		close(p.closed)

		var errs []error
		for returned := 0; returned < len(p.all); returned++ {
			select {
			case s := <-p.sessions:
				errs = append(errs, s.Close())
			case <-ctx.Done():
				errs = append(errs, fmt.Errorf("%d session(s) still in use: %w", len(p.all)-returned, ctx.Err()))
				err = errors.Join(errs...)
				return
			}
		}
		err = errors.Join(errs...)
	})
	return err
}
