package classify

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"

	"github.com/grailbio/taxoreads/internal/lineio"
	"github.com/grailbio/taxoreads/internal/queue"
)

var (
	taxidPrefix = []byte("(taxid ")
	taxidSuffix = byte(')')
)

// ParseOptions configures ParseReport's concurrency and batching.
type ParseOptions struct {
	// Threads is the number of parser goroutines. Must be >= 1.
	Threads int
	// BatchSize is the number of tuples a parser batches before sending
	// downstream, and the number of lines the reader batches per send.
	BatchSize int
	// NQueue is the depth of the bounded reader->parser queue. <= 0 means
	// a generous default rather than a literal unbounded queue, since the
	// reader is typically the bottleneck's upstream, not its sink.
	NQueue int
}

// DefaultParseOptions returns reasonable defaults.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{Threads: 4, BatchSize: 4096, NQueue: 8}
}

func (o ParseOptions) validate() error {
	if o.Threads < 1 {
		return errors.E("classify: threads must be >= 1")
	}
	if o.BatchSize < 1 {
		return errors.E("classify: batch_size must be >= 1")
	}
	return nil
}

type tuple struct {
	id    string
	entry Entry
}

// ParseReport streams the classification report at path (gzip-decoded if
// its name ends in ".gz", case-insensitively) and returns the selection map
// of reads that pass the include-set and exclusion-automaton filters.
//
// One reader goroutine batches lines onto a bounded channel; opts.Threads
// parser goroutines tokenize and filter each line, batching matching tuples
// onto an unbounded queue drained by the calling goroutine into the
// returned Selection.
func ParseReport(ctx context.Context, path string, include IncludeSet, exclude *Exclusion, opts ParseOptions) (Selection, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opened, r, err := lineio.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	lineQueueDepth := opts.NQueue
	if lineQueueDepth <= 0 {
		lineQueueDepth = opts.Threads * 2
	}
	lineCh := make(chan [][]byte, lineQueueDepth)
	out := queue.NewUnbounded()

	var errOnce errors.Once

	var parserWG sync.WaitGroup
	parserWG.Add(opts.Threads)
	for i := 0; i < opts.Threads; i++ {
		go func() {
			defer parserWG.Done()
			runParser(lineCh, out, include, exclude, opts.BatchSize, &errOnce)
		}()
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		runReader(r, lineCh, opts.BatchSize, &errOnce)
	}()

	go func() {
		parserWG.Wait()
		out.Close()
	}()

	sel := make(Selection)
	for {
		v, ok := out.Recv()
		if !ok {
			break
		}
		batch := v.([]tuple)
		for _, t := range batch {
			sel[t.id] = t.entry
		}
	}
	<-readerDone

	if cerr := opened.Close(ctx); cerr != nil {
		errOnce.Set(cerr)
	}
	if err := errOnce.Err(); err != nil {
		return nil, errors.E(err, "classify: parse", path)
	}
	log.Printf("classify: %s: %d reads selected", path, len(sel))
	return sel, nil
}

// runReader reads lines from r, batching batchSize lines at a time onto
// lineCh. Each line is copied into its own owned slice before batching,
// since the underlying scanner buffer is reused on the next Scan.
func runReader(r io.Reader, lineCh chan<- [][]byte, batchSize int, errOnce *errors.Once) {
	defer close(lineCh)
	s := lineio.NewScanner(r)
	batch := make([][]byte, 0, batchSize)
	for {
		if errOnce.Err() != nil {
			return
		}
		line, ok := s.Line()
		if !ok {
			break
		}
		owned := make([]byte, len(line))
		copy(owned, line)
		batch = append(batch, owned)
		if len(batch) >= batchSize {
			lineCh <- batch
			batch = make([][]byte, 0, batchSize)
		}
	}
	if err := s.Err(); err != nil {
		errOnce.Set(errors.E(err, "classify: reader"))
		return
	}
	if len(batch) > 0 {
		lineCh <- batch
	}
}

// runParser consumes line batches from lineCh, tokenizes and filters each
// line, and batches surviving tuples onto out.
func runParser(lineCh <-chan [][]byte, out *queue.Unbounded, include IncludeSet, exclude *Exclusion, batchSize int, errOnce *errors.Once) {
	batch := make([]tuple, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		out.Send(batch)
		batch = make([]tuple, 0, batchSize)
	}
	for lines := range lineCh {
		if errOnce.Err() != nil {
			continue
		}
		for _, line := range lines {
			id, entry, ok := parseLine(line, include, exclude)
			if !ok {
				continue
			}
			batch = append(batch, tuple{id: id, entry: entry})
			if len(batch) >= batchSize {
				flush()
			}
		}
	}
	flush()
}

// parseLine tokenizes one report line and applies the status, include-set,
// and exclusion filters. line must not include its trailing newline.
func parseLine(line []byte, include IncludeSet, exclude *Exclusion) (id string, entry Entry, ok bool) {
	var (
		fieldStart = 0
		fieldIndex = 0
		seqID      []byte
		taxid      []byte
	)
	for {
		tab := bytes.IndexByte(line[fieldStart:], '\t')
		if tab < 0 {
			return "", Entry{}, false
		}
		switch fieldIndex {
		case 0:
			field := line[fieldStart : fieldStart+tab]
			if len(field) != 1 || field[0] != 'C' {
				return "", Entry{}, false
			}
		case 1:
			seqID = line[fieldStart : fieldStart+tab]
		case 2:
			field := line[fieldStart : fieldStart+tab]
			if idx := bytes.Index(field, taxidPrefix); idx >= 0 {
				rest := field[idx+len(taxidPrefix):]
				end := bytes.IndexByte(rest, taxidSuffix)
				if end < 0 {
					return "", Entry{}, false
				}
				candidate := rest[:end]
				if !include.Contains(candidate) {
					return "", Entry{}, false
				}
				taxid = candidate
			} else {
				if !include.Contains(field) {
					return "", Entry{}, false
				}
				taxid = field
			}
		case 3:
			// field is the length field, between the 3rd and 4th tabs.
			length := line[fieldStart : fieldStart+tab]
			lcaStart := fieldStart + tab + 1
			var lca []byte
			if pos := bytes.IndexByte(line[lcaStart:], '\t'); pos >= 0 {
				lca = line[lcaStart : lcaStart+pos]
			} else {
				lca = line[lcaStart:]
			}
			if exclude.MatchAny(lca) {
				return "", Entry{}, false
			}
			if seqID == nil || taxid == nil {
				return "", Entry{}, false
			}
			return string(seqID), Entry{Length: string(length), Taxid: string(taxid), LCA: string(lca)}, true
		}
		fieldIndex++
		fieldStart += tab + 1
	}
}
