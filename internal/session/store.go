package session

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Store holds the single current support session id.
type Store interface {
	Get() (string, bool)
	Set(id string)
	Clear()
}

// Backend is a durable medium for the session id. LoadSessionID returns
// ErrNotFound, or the sentinel given to WithNotFound, when nothing was saved.
type Backend interface {
	LoadSessionID() (string, error)
	SaveSessionID(id string) error
	ClearSessionID() error
}

// ErrNotFound is the default "never saved" error. Backends with their own
// sentinel register it with WithNotFound.
var ErrNotFound = errors.New("session: not found")

// Memory is a Store that lives for the current process only.
type Memory struct {
	mu sync.RWMutex
	id string
	ok bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id, m.ok
}

func (m *Memory) Set(id string) {
	m.mu.Lock()
	m.id, m.ok = id, true
	m.mu.Unlock()
}

func (m *Memory) Clear() {
	m.mu.Lock()
	m.id, m.ok = "", false
	m.mu.Unlock()
}

// Persistent mirrors a Backend in memory. Once the backend fails it is
// dropped for the rest of the run and the in-memory slot keeps working.
type Persistent struct {
	mem      Memory
	mu       sync.Mutex
	backend  Backend
	notFound func(error) bool
	logger   *zap.Logger
}

type Option func(*Persistent)

// WithNotFound tells Persistent how to recognise the backend's "never saved" error.
func WithNotFound(fn func(error) bool) Option {
	return func(p *Persistent) {
		p.notFound = fn
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Persistent) {
		p.logger = logger
	}
}

// NewPersistent reads the current id from backend. A nil backend gives a
// memory-only store.
func NewPersistent(backend Backend, opts ...Option) *Persistent {
	p := &Persistent{
		backend:  backend,
		notFound: func(err error) bool { return errors.Is(err, ErrNotFound) },
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.backend == nil {
		return p
	}

	id, err := p.backend.LoadSessionID()
	switch {
	case err == nil:
		p.mem.Set(id)
	case p.notFound(err):
	default:
		p.degrade("load", err)
	}
	return p
}

func (p *Persistent) Get() (string, bool) {
	return p.mem.Get()
}

func (p *Persistent) Set(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mem.Set(id)
	if p.backend == nil {
		return
	}
	if err := p.backend.SaveSessionID(id); err != nil {
		p.degrade("save", err)
	}
}

func (p *Persistent) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mem.Clear()
	if p.backend == nil {
		return
	}
	if err := p.backend.ClearSessionID(); err != nil {
		p.degrade("clear", err)
	}
}

// Durable reports whether writes still reach the backend.
func (p *Persistent) Durable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backend != nil
}

// degrade must be called with p.mu held, or from the constructor.
func (p *Persistent) degrade(op string, err error) {
	p.logger.Warn("session store unavailable, keeping session id in memory only",
		zap.String("op", op),
		zap.Error(err))
	p.backend = nil
}
