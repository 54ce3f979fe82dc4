package cache

import (
	"sync"

	"chatvault/internal/store"
	"go.uber.org/zap"
)

// Config carries the cache-wide settings.
type Config struct {
	// BaseDir is the data directory holding per-profile subdirectories.
	BaseDir string
	// NotifyBuffer is the capacity of the notification mailbox.
	NotifyBuffer int
}

// Cache is the per-process message cache: a registry of profile stores,
// a shared FIFO of pending requests drained by one background worker, and
// a notification mailbox delivering results back to the owner.
//
// Two locks exist. queueMu guards only the FIFO; mu guards the profile
// table, per-chat sync state, and every storage operation. Handlers are
// never invoked under either lock: the execution routine only collects
// notifications, which are sent to the mailbox after mu is released and
// delivered from a dedicated goroutine.
type Cache struct {
	logger  *zap.Logger
	baseDir string

	queueMu   sync.Mutex
	queueCond *sync.Cond
	queue     []request
	running   bool

	mu       sync.Mutex
	profiles map[string]*profileEntry

	handlerMu sync.RWMutex
	handler   func(Notification)

	notifyMu     sync.RWMutex
	notifyClosed bool
	notifyCh     chan Notification

	workerDone  chan struct{}
	deliverDone chan struct{}
	closeOnce   sync.Once
}

type profileEntry struct {
	store     *store.ProfileStore
	checkSync bool
	// inSync records, per chat, whether the cached tail is provably
	// contiguous with the origin's. In-memory only; reset on restart.
	inSync map[string]bool
}

// New creates the cache, starting its worker and delivery goroutines.
func New(cfg Config, logger *zap.Logger) *Cache {
	if cfg.NotifyBuffer <= 0 {
		cfg.NotifyBuffer = 256
	}
	c := &Cache{
		logger:      logger,
		baseDir:     cfg.BaseDir,
		running:     true,
		profiles:    make(map[string]*profileEntry),
		notifyCh:    make(chan Notification, cfg.NotifyBuffer),
		workerDone:  make(chan struct{}),
		deliverDone: make(chan struct{}),
	}
	c.queueCond = sync.NewCond(&c.queueMu)
	go c.worker()
	go c.deliver()
	return c
}

// SetMessageHandler registers the single handler notifications are
// delivered to. A nil handler drops notifications.
func (c *Cache) SetMessageHandler(h func(Notification)) {
	c.handlerMu.Lock()
	c.handler = h
	c.handlerMu.Unlock()
}

// Publish passes a caller-supplied notification through the same mailbox
// cache-originated notifications use. After Close the notification is
// dropped with a warning.
func (c *Cache) Publish(n Notification) {
	if !c.send(n) {
		c.logger.Warn("notification published after close")
	}
}

// send delivers one notification to the mailbox unless it has been
// closed. The read lock keeps Close from closing the channel mid-send.
func (c *Cache) send(n Notification) bool {
	c.notifyMu.RLock()
	defer c.notifyMu.RUnlock()
	if c.notifyClosed {
		return false
	}
	c.notifyCh <- n
	return true
}

// Close stops the worker after the item it currently holds, drains the
// mailbox, and closes every profile store. Requests still queued are
// dropped with a warning; callers must not assume queued asynchronous
// mutations survive a close.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		c.queueMu.Lock()
		c.running = false
		c.queueCond.Broadcast()
		c.queueMu.Unlock()
		<-c.workerDone

		c.notifyMu.Lock()
		c.notifyClosed = true
		c.notifyMu.Unlock()
		close(c.notifyCh)
		<-c.deliverDone

		c.mu.Lock()
		for id, entry := range c.profiles {
			if err := entry.store.Close(); err != nil {
				c.logger.Warn("closing profile store",
					zap.String("profile", id), zap.Error(err))
			}
			delete(c.profiles, id)
		}
		c.mu.Unlock()
	})
}

// enqueue appends a request to the FIFO and wakes the worker.
func (c *Cache) enqueue(req request) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	if !c.running {
		c.logger.Warn("request submitted after close",
			zap.String("kind", req.kind()), zap.String("profile", req.profile()))
		return
	}
	c.queue = append(c.queue, req)
	c.queueCond.Signal()
}

// submit routes a request to the worker or, for synchronous calls, runs
// it immediately on the caller's goroutine. A synchronous call is ordered
// only against work that has already executed, not against requests still
// sitting in the queue.
func (c *Cache) submit(req request, sync bool) {
	if sync {
		_ = c.perform(req)
		return
	}
	c.enqueue(req)
}

func (c *Cache) worker() {
	defer close(c.workerDone)
	for {
		c.queueMu.Lock()
		for c.running && len(c.queue) == 0 {
			c.queueCond.Wait()
		}
		if !c.running {
			if n := len(c.queue); n > 0 {
				c.logger.Warn("dropping queued requests on shutdown", zap.Int("count", n))
			}
			c.queueMu.Unlock()
			return
		}
		req := c.queue[0]
		c.queue = c.queue[1:]
		c.queueMu.Unlock()

		_ = c.perform(req)
	}
}

// perform runs one request through the execution routine under the
// storage lock, then hands collected notifications to the mailbox.
// Errors abort the request and are logged; the worker moves on.
func (c *Cache) perform(req request) error {
	c.mu.Lock()
	notifs, err := c.execute(req)
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("request failed",
			zap.String("kind", req.kind()),
			zap.String("profile", req.profile()),
			zap.Error(err))
		return err
	}
	for _, n := range notifs {
		if !c.send(n) {
			c.logger.Warn("dropping notifications after close",
				zap.String("kind", req.kind()), zap.String("profile", req.profile()))
			break
		}
	}
	return nil
}

func (c *Cache) deliver() {
	defer close(c.deliverDone)
	for n := range c.notifyCh {
		c.handlerMu.RLock()
		h := c.handler
		c.handlerMu.RUnlock()
		if h != nil {
			h(n)
		}
	}
}
