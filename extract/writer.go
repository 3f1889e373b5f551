package extract

import (
	"bufio"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/syncqueue"
)

// plainSink is an output writer in the default, non-strict-order mode: it
// simply appends whatever packs arrive, in arrival order, to its output.
type plainSink struct {
	ch   chan []byte
	done chan struct{}
	err  error
}

func newPlainSink(w *bufio.Writer, queueDepth int) *plainSink {
	s := &plainSink{ch: make(chan []byte, queueDepth), done: make(chan struct{})}
	go func() {
		defer close(s.done)
		for data := range s.ch {
			// Keep draining after a write error so the dispatcher
			// never blocks on send.
			if s.err != nil || len(data) == 0 {
				continue
			}
			if _, err := w.Write(data); err != nil {
				s.err = errors.E(err, "extract: writer")
			}
		}
		if s.err == nil {
			if err := w.Flush(); err != nil {
				s.err = errors.E(err, "extract: writer flush")
			}
		}
	}()
	return s
}

func (s *plainSink) send(data []byte) { s.ch <- data }

func (s *plainSink) close() error {
	close(s.ch)
	<-s.done
	return s.err
}

// orderedSink is an output writer in strict-order mode: packs arrive
// tagged with a contiguous sequence number and may arrive out of order
// across filter goroutines, so writes are buffered in a
// syncqueue.OrderedQueue and replayed in sequence order before reaching
// the underlying writer.
//
// queueSize must be at least the maximum number of packs in flight between
// the collator and this sink, otherwise Insert can block on a full queue
// while the pack needed to advance it is still waiting behind the caller.
type orderedSink struct {
	queue *syncqueue.OrderedQueue
	done  chan struct{}
	err   error
}

func newOrderedSink(w *bufio.Writer, queueSize int) *orderedSink {
	s := &orderedSink{queue: syncqueue.NewOrderedQueue(queueSize), done: make(chan struct{})}
	go func() {
		defer close(s.done)
		for {
			entry, ok, err := s.queue.Next()
			if err != nil {
				s.err = errors.E(err, "extract: ordered writer")
				return
			}
			if !ok {
				break
			}
			data := entry.([]byte)
			if len(data) == 0 {
				continue
			}
			if _, err := w.Write(data); err != nil {
				s.err = errors.E(err, "extract: ordered writer")
				s.queue.Close(s.err)
				return
			}
		}
		if err := w.Flush(); err != nil {
			s.err = errors.E(err, "extract: ordered writer flush")
		}
	}()
	return s
}

func (s *orderedSink) insert(seq int, data []byte) error {
	return s.queue.Insert(seq, data)
}

func (s *orderedSink) close() error {
	err := s.queue.Close(nil)
	<-s.done
	if s.err != nil {
		return s.err
	}
	return err
}
