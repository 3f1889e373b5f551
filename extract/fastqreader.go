package extract

import (
	"fmt"
	"io"

	"github.com/grailbio/taxoreads/encoding/fastq"
)

// fastqReader reads four-line FASTQ records out of r by delegating to
// encoding/fastq's Scanner, counting records read so format errors can
// cite a position in the file.
type fastqReader struct {
	s     *fastq.Scanner
	path  string
	count int64
}

func newFastqReader(r io.Reader, path string) *fastqReader {
	return &fastqReader{s: fastq.NewScanner(r, fastq.All), path: path}
}

// readRecord returns the next record, or ok == false at end of stream (err
// == nil) or on a format/IO error.
func (f *fastqReader) readRecord() (rec Record, ok bool, err error) {
	var r fastq.Read
	if !f.s.Scan(&r) {
		if serr := f.s.Err(); serr != nil {
			return Record{}, false, fmt.Errorf("%s: record %d: %w", f.path, f.count, serr)
		}
		return Record{}, false, nil
	}
	f.count++
	return Record{ID: r.ID, Seq: r.Seq, Sep: r.Unk, Qual: r.Qual}, true, nil
}

// readBatch reads up to n records into a fresh batch, returning a shorter
// (possibly empty) batch at end of stream. err is non-nil only on a
// genuine read/format failure, never on a clean EOF.
func (f *fastqReader) readBatch(n int) (batch []Record, err error) {
	batch = make([]Record, 0, n)
	for len(batch) < n {
		rec, ok, err := f.readRecord()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		batch = append(batch, rec)
	}
	return batch, nil
}
