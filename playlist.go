package groove

import (
	"log/slog"
	"sync"

	"pipelined.dev/groove/media"
)

// coordinator is the engine's single synchronisation object: one mutex
// guarding the decode head, the item list, sinkMap structure, volume/
// rebuild-flag/sent-end-of-queue bookkeeping, and two condition variables on
// that same mutex. Each sink's queue has its own independent mutex/condition
// (queue.go). Lock order is coordinator mutex, then queue mutex: purge,
// sentinel delivery and the fill check take queue mutexes while the
// coordinator mutex is held; nothing takes the coordinator mutex while
// holding a queue mutex.
type coordinator struct {
	mu sync.Mutex

	decodeHeadCond *sync.Cond // signalled when decode_head becomes non-null, on seek, on attach, on destroy
	drainCond      *sync.Cond // signalled when a sink's queue drops below min_queue_bytes, on attach/remove/destroy
}

func newCoordinator() *coordinator {
	c := &coordinator{}
	c.decodeHeadCond = sync.NewCond(&c.mu)
	c.drainCond = sync.NewCond(&c.mu)
	return c
}

// Playlist is the engine's public aggregate: a doubly-linked list of Items,
// a SinkMap of attached consumers, a FilterGraph, and the coordinator
// guarding all of it. Grounded on track.go's Track (list owner) generalized
// to playable items, and mixer.go/repeat.go's per-consumer bookkeeping
// generalized into sinkMap.
type Playlist struct {
	*coordinator

	head, tail *Item
	count      int

	decodeHead *Item
	volume     float64

	filterGraph *filterGraph
	sinks       sinkMap

	paused      bool
	fillMode    FillMode
	sentEndOfQ  bool
	abortRequest bool

	log *slog.Logger

	workerDone chan struct{}
}

// New constructs an empty, playing (unpaused) Playlist and starts its
// DecodeWorker goroutine. Call Destroy to stop it.
func New(opts ...Option) *Playlist {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Playlist{
		coordinator: newCoordinator(),
		volume:      1.0,
		filterGraph: newFilterGraph(),
		fillMode:    cfg.fillMode,
		// sentEndOfQ starts true: an empty playlist created before any sink
		// attaches must not fire a spurious sentinel the instant a sink
		// does attach.
		sentEndOfQ: true,
		log:        cfg.logger,
		workerDone: make(chan struct{}),
	}
	go p.runWorker()
	return p
}

// Insert allocates an item binding file and gain, splicing it before next
// (or appending when next is nil). Inserting into an empty playlist also
// makes the new item the decode head and requests a seek-to-zero on its
// file.
func (p *Playlist) Insert(file *media.File, gain float64, next *Item) *Item {
	p.mu.Lock()
	defer p.mu.Unlock()

	it := NewItem(file, gain)
	wasEmpty := p.head == nil
	spliceBefore(&p.head, &p.tail, it, next)
	p.count++

	if wasEmpty {
		p.decodeHead = it
		it.file.RequestSeek(0, false)
	}
	p.decodeHeadCond.Signal()
	return it
}

// Remove unsplices item, advancing the decode head first if item is
// currently the decode head, then purges every sink's queue of buffers
// referencing item before returning. On return, no queue contains any
// buffer whose item is the removed one.
func (p *Playlist) Remove(item *Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(item)
}

func (p *Playlist) removeLocked(item *Item) {
	if item == p.decodeHead {
		p.decodeHead = item.next
		if p.decodeHead != nil {
			p.decodeHead.file.RequestSeek(0, false)
		}
	}
	unsplice(&p.head, &p.tail, item)
	p.count--

	p.sinks.forEach(func(g *sinkGroup) {
		for _, s := range g.sinks {
			s.queue.purge(func(b *Buffer) bool { return b.BelongsTo(item) })
			s.mu.Lock()
			hook := s.onPurge
			s.mu.Unlock()
			if hook != nil {
				hook(item)
			}
		}
	})
	p.drainCond.Broadcast()
}

// Clear repeatedly removes the head item until the playlist is empty.
func (p *Playlist) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.head != nil {
		p.removeLocked(p.head)
	}
}

// Seek records a pending seek on item's file, in seconds with a flush flag
// set, makes item the decode head, and wakes the worker. Takes the
// coordinator lock then the file's seek lock (inside RequestSeek), never the
// reverse.
func (p *Playlist) Seek(item *Item, seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	item.file.RequestSeek(seconds, true)

	p.decodeHead = item
	p.decodeHeadCond.Signal()
}

// Play clears the paused flag. A single boolean flip; no lock required (the
// worker samples it once per iteration and calls Resume on the decode head's
// file).
func (p *Playlist) Play() { p.paused = false }

// Pause sets the paused flag. A single boolean flip; no lock required. The
// worker calls Pause on the decode head's file on its next iteration; it
// does not stop decoding, since File.Decode does not consult that flag.
func (p *Playlist) Pause() { p.paused = true }

// Playing reports whether the playlist is currently unpaused.
func (p *Playlist) Playing() bool { return !p.paused }

// SetGain sets item's per-item gain. If item is the current decode head,
// the cached effective volume is implicitly recomputed on the worker's next
// iteration (FilterGraph.ensure compares against the live value each pass).
func (p *Playlist) SetGain(item *Item, gain float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	item.gain = gain
}

// SetVolume sets the playlist-wide volume. Symmetric with SetGain.
func (p *Playlist) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
}

// Position returns the current decode head item and its audio-clock
// position in seconds.
func (p *Playlist) Position() (item *Item, seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.decodeHead == nil {
		return nil, 0
	}
	return p.decodeHead, p.decodeHead.file.AudioClock()
}

// SetFillMode selects the worker's backpressure predicate.
func (p *Playlist) SetFillMode(mode FillMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fillMode = mode
}

// Count returns the number of items currently in the playlist.
func (p *Playlist) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Attach binds sink to the playlist: computes its per-frame/per-second byte
// rates and minimum queue size, inserts it into the sinkMap, signals the
// drain condition, and resets its queue.
func (p *Playlist) Attach(s *Sink) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := s.attach(p); err != nil {
		return err
	}
	p.sinks.add(s)
	p.filterGraph.markDirty()
	p.decodeHeadCond.Signal()
	p.drainCond.Signal()
	return nil
}

// Detach aborts and flushes sink's queue, then removes it from the sinkMap
// under the coordinator lock.
func (p *Playlist) Detach(s *Sink) error {
	if err := s.detach(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.sinks.remove(s)
	p.filterGraph.markDirty()
	p.drainCond.Broadcast()
	return err
}

// Destroy requests abort, signals both condition variables, and waits for
// the worker goroutine to exit.
func (p *Playlist) Destroy() {
	p.mu.Lock()
	p.abortRequest = true
	p.decodeHeadCond.Broadcast()
	p.drainCond.Broadcast()
	p.mu.Unlock()

	<-p.workerDone

	p.sinks.forEach(func(g *sinkGroup) {
		for _, s := range g.sinks {
			s.queue.abort()
			s.queue.flush()
		}
	})
}
