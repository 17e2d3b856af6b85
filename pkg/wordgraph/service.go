package wordgraph

import (
	"context"
	"sync"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
)

type request struct {
	ctx          context.Context
	seq          uint64
	corpus       common.Corpus
	minFrequency int
	reply        chan response
}

type response struct {
	result *Result
	err    error
}

// Service computes graphs on a background goroutine, one request at a time,
// and only ever delivers the result of the most recently submitted request.
// Results of older requests are dropped with ErrSuperseded.
//
// A Service belongs to one owner (typically a client session). It must be
// created with NewService and released with Close.
type Service struct {
	builder  *Builder
	requests chan request

	mu       sync.Mutex
	nextSeq  uint64
	waiting  map[uint64]struct{} // submitted, not yet taken by the worker
	accepted uint64              // highest seq taken by the worker

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewService starts a Service backed by builder.
func NewService(builder *Builder) *Service {
	s := newService(builder)
	s.start()
	return s
}

func newService(builder *Builder) *Service {
	return &Service{
		builder:  builder,
		requests: make(chan request),
		waiting:  make(map[uint64]struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Service) start() {
	s.wg.Add(1)
	go s.run()
}

// Submit hands a corpus to the service and waits for its graph.
//
// It returns ErrSuperseded when another Submit started after this one before
// the result was ready, ErrClosed when the service is closed and ctx.Err()
// when the caller gives up. A newer request only supersedes older ones once
// the worker has taken it or while it is still waiting for the worker; one
// withdrawn before that no longer counts.
func (s *Service) Submit(ctx context.Context, corpus common.Corpus, minFrequency int) (*Result, error) {
	select {
	case <-s.done:
		return nil, ErrClosed
	default:
	}

	req := request{
		ctx:          ctx,
		seq:          s.enqueue(),
		corpus:       corpus,
		minFrequency: minFrequency,
		reply:        make(chan response, 1),
	}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		s.withdraw(req.seq)
		return nil, ctx.Err()
	case <-s.done:
		s.withdraw(req.seq)
		return nil, ErrClosed
	}

	select {
	case resp := <-req.reply:
		return resp.result, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	}
}

// Close stops the service and waits for the in-flight computation to end.
// It is safe to call Close more than once.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Service) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case req := <-s.requests:
			s.take(req.seq)
			req.reply <- s.handle(req)
		}
	}
}

func (s *Service) handle(req request) response {
	if err := req.ctx.Err(); err != nil {
		return response{err: err}
	}
	if s.superseded(req) {
		logger.Debug("[Graph] Skipping superseded request", "seq", req.seq)
		return response{err: ErrSuperseded}
	}

	res, err := s.builder.Build(req.corpus, req.minFrequency)
	if err != nil {
		return response{err: err}
	}
	if s.superseded(req) {
		logger.Debug("[Graph] Discarding stale result", "seq", req.seq)
		return response{err: ErrSuperseded}
	}
	return response{result: res}
}

func (s *Service) enqueue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	s.waiting[s.nextSeq] = struct{}{}
	return s.nextSeq
}

func (s *Service) withdraw(seq uint64) {
	s.mu.Lock()
	delete(s.waiting, seq)
	s.mu.Unlock()
}

func (s *Service) take(seq uint64) {
	s.mu.Lock()
	delete(s.waiting, seq)
	s.accepted = max(s.accepted, seq)
	s.mu.Unlock()
}

// latest is the newest sequence number that still counts: taken by the
// worker or waiting for it.
func (s *Service) latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	newest := s.accepted
	for seq := range s.waiting {
		newest = max(newest, seq)
	}
	return newest
}

func (s *Service) superseded(req request) bool {
	return req.seq < s.latest()
}
