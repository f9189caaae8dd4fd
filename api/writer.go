package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"join-board/domain"
)

// saveJob is a full snapshot of the collections touched by one change.
type saveJob struct {
	session  string
	seq      uint64
	change   domain.Change
	tasks    []domain.Task
	contacts []domain.Contact

	saveTasks    bool
	saveContacts bool
}

type sessionSeq struct {
	tasks    uint64
	contacts uint64
}

// saveWriter persists board snapshots on a single background worker so saves
// reach the gateway in mutation order. When the buffer is saturated the save
// runs inline. A snapshot older than one already written for the same
// session and collection is skipped.
type saveWriter struct {
	gateway domain.Gateway
	feed    Feed
	log     *log.Logger

	timeout        time.Duration
	handoffTimeout time.Duration

	jobs  chan saveJob
	wg    sync.WaitGroup
	once  sync.Once
	clock eventClock

	mu      sync.Mutex
	written map[string]sessionSeq
}

func newSaveWriter(gw domain.Gateway, feed Feed, logger *log.Logger, buffer int, timeout, handoff time.Duration) *saveWriter {
	if logger == nil {
		panic("Logger is not initialized")
	}
	if buffer <= 0 {
		buffer = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	w := &saveWriter{
		gateway:        gw,
		feed:           feed,
		log:            logger,
		timeout:        timeout,
		handoffTimeout: handoff,
		jobs:           make(chan saveJob, buffer),
		written:        make(map[string]sessionSeq),
	}
	w.wg.Add(1)
	go w.run()
	logger.Infof("save writer started, buffer: %d, timeout: %v, handoff: %v", buffer, timeout, handoff)
	return w
}

func (w *saveWriter) run() {
	defer w.wg.Done()
	for j := range w.jobs {
		_ = w.write(j)
	}
}

// submit hands the job to the worker, or writes it inline when the worker
// cannot take it in time.
func (w *saveWriter) submit(job saveJob) {
	if w.tryEnqueue(job) {
		return
	}
	w.log.Warn("save buffer saturated; saving inline")
	_ = w.write(job)
}

// close stops accepting jobs and waits for queued saves to finish.
func (w *saveWriter) close() {
	w.once.Do(func() {
		close(w.jobs)
	})
	w.wg.Wait()
}

func (w *saveWriter) write(job saveJob) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	last := w.written[job.session]
	saveTasks := job.saveTasks && job.seq > last.tasks
	saveContacts := job.saveContacts && job.seq > last.contacts
	if !saveTasks && !saveContacts {
		w.log.Debugf("skipping stale save, session: %s, seq: %d", job.session, job.seq)
		return nil
	}
	if saveTasks {
		last.tasks = job.seq
	}
	if saveContacts {
		last.contacts = job.seq
	}
	w.written[job.session] = last

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	var errs []error
	if saveContacts {
		if err := w.gateway.SaveContacts(ctx, job.contacts); err != nil {
			errs = append(errs, fmt.Errorf("contacts: %w", err))
		}
	}
	if saveTasks {
		if err := w.gateway.SaveTasks(ctx, job.tasks); err != nil {
			errs = append(errs, fmt.Errorf("tasks: %w", err))
		}
	}
	if len(errs) > 0 {
		err := fmt.Errorf("%w: %w", domain.ErrSaveFailed, errors.Join(errs...))
		w.log.WithFields(log.Fields{
			"session": job.session,
			"change":  job.change.Kind,
			"task":    job.change.TaskID,
		}).Errorf("save failed, board keeps the change: %v", err)
		return err
	}

	if w.feed != nil {
		ev := domain.ChangeEvent{
			Session:   job.session,
			Kind:      job.change.Kind,
			TaskID:    job.change.TaskID,
			Timestamp: w.clock.next(),
		}
		if err := w.feed.Publish(ctx, ev); err != nil {
			w.log.Errorf("publish change failed, err: %v, session: %s", err, job.session)
		}
	}
	return nil
}

func (w *saveWriter) tryEnqueue(job saveJob) bool {
	if ok, closed := trySendNonBlocking(w.jobs, job); closed {
		return false
	} else if ok {
		return true
	}

	if w.handoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(w.handoffTimeout)
	defer timer.Stop()

	ok, closed := sendWithTimer(w.jobs, job, timer.C)
	if closed {
		return false
	}
	return ok
}

func trySendNonBlocking(ch chan saveJob, job saveJob) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan saveJob, job saveJob, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	case <-timer:
		return false, false
	}
}
