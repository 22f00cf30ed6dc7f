package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ashendes/pickle-storefront/internal/metrics"
	"github.com/ashendes/pickle-storefront/internal/models"
)

// GuestCartKey is the local store key of the guest cart
const GuestCartKey = "guestCart"

// ErrClosed is returned by operations on a closed Session
var ErrClosed = errors.New("cart session closed")

// LocalStore persists the guest cart on the device
type LocalStore interface {
	Save(ctx context.Context, key string, items []models.LineItem) error
	// Load reports found=false when nothing was ever saved under key
	Load(ctx context.Context, key string) (items []models.LineItem, found bool, err error)
}

// RemoteStore persists account carts keyed by user ID
type RemoteStore interface {
	SaveCart(ctx context.Context, userID string, items []models.LineItem) error
	LoadCart(ctx context.Context, userID string) ([]models.LineItem, error)
}

// State is the load state of a Session
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the session's cart
type Snapshot struct {
	Identity   models.Identity
	State      State
	Items      []models.LineItem
	TotalItems int
	TotalPrice float64

	generation uint64
}

// Options tunes a Session
type Options struct {
	LoadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       log.FieldLogger
}

type writeJob struct {
	identity models.Identity
	items    []models.LineItem
	barrier  chan struct{}
}

// Session owns the active cart. It loads the cart of each identity it is
// told about, and writes every mutation back to the store that owns the
// loaded cart.
//
// Every identity change starts a new fetch generation. A fetch result is
// applied only while its generation is current, and mutations are written
// only while the loaded cart belongs to the current identity, so carts of
// different identities never leak into each other's keys.
type Session struct {
	local  LocalStore
	remote RemoteStore
	opts   Options
	logger log.FieldLogger

	mu          sync.Mutex
	cond        *sync.Cond
	cart        Cart
	state       State
	identity    models.Identity
	loaded      models.Identity
	loadFailed  bool
	generation  uint64
	cancelFetch context.CancelFunc
	loadedCh    chan struct{}
	queue       []writeJob
	closed      bool

	fetches    sync.WaitGroup
	writerDone chan struct{}
}

// NewSession starts a session in the Unloaded state. Call SetIdentity (or
// subscribe it to an identity provider) to load a cart, and Close when done.
func NewSession(local LocalStore, remote RemoteStore, opts Options) *Session {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 5 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-session")
	}

	s := &Session{
		local:      local,
		remote:     remote,
		opts:       opts,
		logger:     logger,
		loadedCh:   make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	go s.runWriter()
	return s
}

// SetIdentity makes id the current identity. Any change of user starts a
// new load; the active cart is emptied until the new identity's cart arrives.
func (s *Session) SetIdentity(id models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.state != StateUnloaded && id.UserID == s.identity.UserID {
		// same account, refreshed profile
		s.identity = id
		if s.state == StateLoaded {
			s.loaded = id
		}
		return
	}

	s.generation++
	gen := s.generation
	if s.cancelFetch != nil {
		s.cancelFetch()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFetch = cancel

	s.identity = id
	s.state = StateLoading
	s.loadFailed = false
	s.cart.Clear()
	s.wakeWaitersLocked()

	s.logger.WithFields(log.Fields{
		"user_id":    id.UserID,
		"generation": gen,
	}).Debug("Identity changed, loading cart")

	s.fetches.Add(1)
	go s.fetch(ctx, gen, id)
}

func (s *Session) fetch(ctx context.Context, gen uint64, id models.Identity) {
	defer s.fetches.Done()

	items, err := s.load(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.WithFields(log.Fields{
			"user_id":    id.UserID,
			"generation": gen,
			"current":    s.generation,
		}).Debug("Discarding cart load for superseded identity")
		return
	}
	s.cancelFetch()

	if err != nil {
		s.logger.WithFields(log.Fields{
			"user_id": id.UserID,
			"error":   err,
		}).Error("Failed to load cart, starting empty")
		items = nil
	}
	// the stored cart was never seen, so nothing may overwrite it
	s.loadFailed = err != nil

	s.cart = *NewCart(items)
	s.loaded = id
	s.state = StateLoaded
	s.wakeWaitersLocked()
}

// wakeWaitersLocked releases AwaitLoaded callers so they re-check the state
func (s *Session) wakeWaitersLocked() {
	close(s.loadedCh)
	s.loadedCh = make(chan struct{})
}

func (s *Session) load(ctx context.Context, id models.Identity) ([]models.LineItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.LoadTimeout)
	defer cancel()

	if id.IsGuest() {
		items, _, err := s.local.Load(ctx, GuestCartKey)
		metrics.CartLoads.WithLabelValues("local", result(err)).Inc()
		return items, err
	}

	items, err := s.remote.LoadCart(ctx, id.UserID)
	metrics.CartLoads.WithLabelValues("remote", result(err)).Inc()
	return items, err
}

// AddToCart merges item into the active cart
func (s *Session) AddToCart(item models.LineItem) {
	s.mutate(func(c *Cart) { c.Add(item) })
}

// RemoveFromCart deletes the (productID, size) line if present
func (s *Session) RemoveFromCart(productID, size string) {
	s.mutate(func(c *Cart) { c.Remove(productID, size) })
}

// UpdateQuantity sets a line's quantity; zero or less removes it
func (s *Session) UpdateQuantity(productID, size string, quantity int) {
	s.mutate(func(c *Cart) { c.UpdateQuantity(productID, size, quantity) })
}

// ClearCart empties the active cart
func (s *Session) ClearCart() {
	s.mutate(func(c *Cart) { c.Clear() })
}

func (s *Session) mutate(fn func(*Cart)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.cart)
	s.persistLocked()
}

// persistLocked queues a write of the whole cart if, and only if, the
// loaded cart belongs to the current identity and its load succeeded.
func (s *Session) persistLocked() {
	if s.closed {
		return
	}
	if s.loadFailed {
		metrics.CartWritesSkipped.Inc()
		s.logger.WithField("user_id", s.identity.UserID).Warn("Skipping cart save, stored cart failed to load")
		return
	}
	if s.state != StateLoaded || s.loaded.UserID != s.identity.UserID {
		metrics.CartWritesSkipped.Inc()
		s.logger.WithField("state", s.state.String()).Debug("Skipping cart save while loading")
		return
	}
	s.enqueueLocked(writeJob{identity: s.loaded, items: s.cart.Items()})
}

func (s *Session) enqueueLocked(job writeJob) {
	s.queue = append(s.queue, job)
	s.cond.Signal()
}

// ClearAfterCheckout empties the cart an order was taken from. When the
// identity changed while the order was being placed, the active cart is
// left alone and only the ordering identity's stored cart is emptied.
func (s *Session) ClearAfterCheckout(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if snap.generation == s.generation {
		s.cart.Clear()
		s.persistLocked()
		return
	}

	s.logger.WithField("user_id", snap.Identity.UserID).Warn("Identity changed during checkout, clearing the ordering cart only")
	s.enqueueLocked(writeJob{identity: snap.Identity, items: []models.LineItem{}})
}

// Snapshot returns a copy of the active cart and its identity
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Identity:   s.identity,
		State:      s.state,
		Items:      s.cart.Items(),
		TotalItems: s.cart.TotalItems(),
		TotalPrice: s.cart.TotalPrice(),
		generation: s.generation,
	}
}

// Items returns a copy of the active cart's lines
func (s *Session) Items() []models.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items()
}

// TotalItems is the sum of quantities in the active cart
func (s *Session) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalItems()
}

// TotalPrice is the sum of price × quantity in the active cart
func (s *Session) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalPrice()
}

// State returns the current load state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AwaitLoaded blocks until the cart of the current identity is loaded
func (s *Session) AwaitLoaded(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}
		if s.state == StateLoaded {
			s.mu.Unlock()
			return nil
		}
		ch := s.loadedCh
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Sync waits until every write queued before the call has been attempted
func (s *Session) Sync(ctx context.Context) error {
	barrier := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.enqueueLocked(writeJob{barrier: barrier})
	s.mu.Unlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes queued writes, abandons in-flight loads and stops the session
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancelFetch != nil {
		s.cancelFetch()
	}
	s.wakeWaitersLocked()
	s.cond.Broadcast()
	s.mu.Unlock()

	<-s.writerDone
	s.fetches.Wait()
	return nil
}

func (s *Session) runWriter() {
	defer close(s.writerDone)

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		jobs := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, job := range jobs {
			if job.barrier != nil {
				close(job.barrier)
				continue
			}
			s.write(job)
		}
	}
}

func (s *Session) write(job writeJob) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
	defer cancel()

	var err error
	store := "remote"
	if job.identity.IsGuest() {
		store = "local"
		err = s.local.Save(ctx, GuestCartKey, job.items)
	} else {
		err = s.remote.SaveCart(ctx, job.identity.UserID, job.items)
	}
	metrics.CartWrites.WithLabelValues(store, result(err)).Inc()

	if err != nil {
		s.logger.WithFields(log.Fields{
			"user_id": job.identity.UserID,
			"store":   store,
			"error":   err,
		}).Error("Failed to save cart")
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
