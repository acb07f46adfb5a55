package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/pslang/internal/logging"
)

// Jobs arrive in the inbox by atomic rename of a .tmp file. Only the
// renamed .json file is a job.

const (
	// settleDelay groups a burst of arrivals into one dispatch.
	settleDelay = 200 * time.Millisecond
	// jobWorkers bounds how many documents are projected at once.
	jobWorkers = 5
	// queueDepth must exceed jobWorkers so a burst does not stall the event loop.
	queueDepth = 200
	pollDefault = 5 * time.Second
)

// JobHandler processes one inbox file. A file already claimed by another
// pass is the handler's concern.
type JobHandler func(path string)

// pool runs a handler on a fixed set of workers and survives handler panics.
type pool struct {
	handler JobHandler
	queue   chan string
	g       errgroup.Group
	log     *zap.Logger
}

func startPool(handler JobHandler, log *zap.Logger) *pool {
	p := &pool{handler: handler, queue: make(chan string, queueDepth), log: log}
	for range jobWorkers {
		p.g.Go(func() error {
			for path := range p.queue {
				p.run(path)
			}
			return nil
		})
	}
	return p
}

func (p *pool) run(path string) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("job handler panic", zap.String("file", filepath.Base(path)), zap.Any("panic", r))
		}
	}()
	p.handler(path)
}

// submit queues paths in order. It gives up when ctx is done.
func (p *pool) submit(ctx context.Context, paths []string) {
	for _, path := range paths {
		select {
		case p.queue <- path:
		case <-ctx.Done():
			return
		}
	}
}

// drain waits for queued jobs to finish. No submit may follow.
func (p *pool) drain() {
	close(p.queue)
	_ = p.g.Wait()
}

// InboxWatcher dispatches jobs as fsnotify reports them.
type InboxWatcher struct {
	inbox   string
	handler JobHandler
	settle  time.Duration
	log     *zap.Logger
}

// NewInboxWatcher creates a watcher for the inbox directory.
func NewInboxWatcher(inbox string, handler JobHandler, logger *zap.Logger) *InboxWatcher {
	return &InboxWatcher{
		inbox:   inbox,
		handler: handler,
		settle:  settleDelay,
		log:     logging.OrNop(logger),
	}
}

// Run blocks until ctx is cancelled, then waits for in-flight jobs.
func (w *InboxWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.inbox); err != nil {
		return err
	}

	p := startPool(w.handler, w.log)
	var arrived pending

	// One timer for the whole inbox: every arrival pushes the dispatch back.
	timer := time.NewTimer(w.settle)
	timer.Stop()

	defer func() {
		timer.Stop()
		p.submit(ctx, arrived.take())
		p.drain()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			p.submit(ctx, arrived.take())

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) || !isJobFile(event.Name) {
				continue
			}
			arrived.add(event.Name)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.settle)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("inbox watcher error", zap.String("inbox", w.inbox), zap.Error(err))
		}
	}
}

// pending is the set of arrivals waiting for the settle delay.
type pending struct {
	mu    sync.Mutex
	paths []string
	set   map[string]bool
}

func (p *pending) add(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.set == nil {
		p.set = make(map[string]bool)
	}
	if p.set[path] {
		return
	}
	p.set[path] = true
	p.paths = append(p.paths, path)
}

// take empties the set, returning paths in arrival order.
func (p *pending) take() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.paths
	p.paths = nil
	p.set = nil
	return out
}

// PollWatcher lists the inbox on an interval, for filesystems where
// fsnotify does not deliver events (NFS, some container mounts).
type PollWatcher struct {
	inbox    string
	handler  JobHandler
	interval time.Duration
	seen     map[string]bool
	log      *zap.Logger
}

// NewPollWatcher creates a polling watcher. A zero interval selects five seconds.
func NewPollWatcher(inbox string, handler JobHandler, interval time.Duration, logger *zap.Logger) *PollWatcher {
	if interval <= 0 {
		interval = pollDefault
	}
	return &PollWatcher{
		inbox:    inbox,
		handler:  handler,
		interval: interval,
		seen:     make(map[string]bool),
		log:      logging.OrNop(logger),
	}
}

// Run blocks until ctx is cancelled, then waits for dispatched jobs.
func (w *PollWatcher) Run(ctx context.Context) error {
	p := startPool(w.handler, w.log)
	defer p.drain()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.submit(ctx, w.scan())
		}
	}
}

// scan returns jobs not reported by an earlier scan. A name that left the
// inbox is forgotten, so a later job reusing it is reported again.
func (w *PollWatcher) scan() []string {
	paths, err := listJobs(w.inbox)
	if err != nil {
		w.log.Warn("poll inbox", zap.String("inbox", w.inbox), zap.Error(err))
		return nil
	}
	present := make(map[string]bool, len(paths))
	var fresh []string
	for _, path := range paths {
		present[path] = true
		if !w.seen[path] {
			w.seen[path] = true
			fresh = append(fresh, path)
		}
	}
	for path := range w.seen {
		if !present[path] {
			delete(w.seen, path)
		}
	}
	return fresh
}

// ScanExisting hands every job already in the inbox to handler, in name
// order. The daemon calls it at startup for jobs queued while it was down.
// A missing inbox has no jobs.
func ScanExisting(inbox string, handler JobHandler) error {
	paths, err := listJobs(inbox)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, path := range paths {
		handler(path)
	}
	return nil
}

func listJobs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && isJobFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

// isJobFile accepts finished .json jobs. Partial writes (.tmp) and hidden
// files such as editor swap files are skipped.
func isJobFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}
