package api

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"join-board/domain"
)

type session struct {
	id    string
	board *domain.Board

	loadMu sync.Mutex

	// seqMu keeps snapshot order and sequence order identical.
	seqMu sync.Mutex
	seq   uint64
}

// sessionRegistry owns one board per session. Boards are created on first
// use and loaded from the gateway. A failed load leaves the board unloaded so
// the next request retries.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session

	gateway       domain.Gateway
	writer        *saveWriter
	broker        *updateBroker
	log           *log.Logger
	newNormalizer func() *domain.Normalizer
}

func newSessionRegistry(gw domain.Gateway, writer *saveWriter, broker *updateBroker, logger *log.Logger) *sessionRegistry {
	return &sessionRegistry{
		sessions:      make(map[string]*session),
		gateway:       gw,
		writer:        writer,
		broker:        broker,
		log:           logger,
		newNormalizer: domain.NewNormalizer,
	}
}

// board returns the loaded board of the session.
func (r *sessionRegistry) board(ctx context.Context, id string) (*domain.Board, error) {
	s := r.get(id)
	if s.board.Loaded() {
		return s.board, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.board.Loaded() {
		return s.board, nil
	}
	res, err := s.board.LoadAll(ctx, r.gateway)
	if err != nil && !errors.Is(err, domain.ErrSaveFailed) {
		return nil, err
	}
	entry := r.log.WithFields(log.Fields{
		"session":  id,
		"tasks":    res.Tasks,
		"contacts": res.Contacts,
		"seeded":   res.Seeded,
	})
	if err != nil {
		entry.Warnf("board loaded but seed was not saved: %v", err)
	} else {
		entry.Debug("board loaded")
	}
	return s.board, nil
}

func (r *sessionRegistry) get(id string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := &session{id: id, board: domain.NewBoard(r.newNormalizer())}
	s.board.Subscribe(r.observe(s))
	r.sessions[id] = s
	return s
}

func (r *sessionRegistry) observe(s *session) func(domain.Change) {
	return func(c domain.Change) {
		r.broker.notify(s.id)
		if !c.SavesTasks() && !c.SavesContacts() {
			return
		}
		job := saveJob{session: s.id, change: c}
		s.seqMu.Lock()
		s.seq++
		job.seq = s.seq
		if c.SavesTasks() {
			job.saveTasks = true
			job.tasks = s.board.Tasks()
		}
		if c.SavesContacts() {
			job.saveContacts = true
			job.contacts = s.board.Contacts()
		}
		s.seqMu.Unlock()
		r.writer.submit(job)
	}
}
