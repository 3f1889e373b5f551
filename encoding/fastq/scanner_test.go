package fastq

import (
	"bytes"
	"testing"
)

const fq = `@NB500956:89:HW2FHBGX2:1:11101:25648:1069 1:N:0:ATCACG
ATACAGGCCTGANCCACTGTGCCCAGNCTANNTNATTANTGAANANAGAATNGTTNTAAATANANNNNNTNTNNNC
+
AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEE#EEEE#E#EEEEE#EEE#EEEAEE#A#####E#E###E
@NB500956:89:HW2FHBGX2:1:11101:13871:1070 1:N:0:ATCACG
CTCAACTCTGAGNCAGACAGAAATACNTTTNNTNTGAGTTACANCNTTCTTTTTCNACATATNCNNNNNTNGNNNT
+
AAAAAEEEEEEE#EEEEEEEEEEEEE#EEE##E#EEEEEEEEE#E#EEEEEEEEE#EAEEEE#A#####E#A###E
@NB500956:89:HW2FHBGX2:1:11101:9975:1070 1:N:0:ATCACG
GAGTAACCACGTNCCCATGGCCACAGNTGANNGNGTCACACCTNANCCGGGAGAGNCAATCCNGNNNNNGNANNNC
+
AAAAAEEEEEEE#EEEEEEEEEAEEE#EEA##E#EEEEEEEE<#E#<EEEEEEEE#<EEEA/#/#####A#E###A
@NB500956:89:HW2FHBGX2:1:11101:20247:1070 1:N:0:ATCACG
GATCGGAAGAGCNCACGTCTGAACTCNAGTNNCNTCCCGATCTNGNATGCCGTCTNCTGCTTNANNNNNANANNNG
+
AAAAAEEEEEEE#EEEEEEEEEEEEE#AEE##E#A////6AE<#E#EEEEEEEEA#A/EE/E#E#####/#E###E
@NB500956:89:HW2FHBGX2:1:11101:17754:1070 1:N:0:ATCACG
CAAGCAACTTACNTTACTTTAGGCTGNAAANNGNCTGCCTGAANTNCCTGCTCACNAATCCCNCNNNNNCNTNNNT
+
AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEEEEEEE#E#EEEEEEEEE#EAEAEA#/#####E#A###E
@NB500956:89:HW2FHBGX2:1:11101:26223:1070 1:N:0:ATCACG
TCAATTTCAGAACTTTTTATTGGTCTNTTCNNGNATTCATCTTNTNCCTGGTTTANTCTTGGNANNNNNTNTNNNT
+
AAAAAEEEEEEEEEEEEEEEEEEEEE#EEA##E#EEEEEEEEE#E#<EAEEEEEE#EEEEEE#E#####E#E###E
`

func stringScanner(s string) *Scanner {
	return NewScanner(bytes.NewReader([]byte(s)), All)
}

func scanErr(s string) error {
	scan := stringScanner(s)
	var r Read
	for scan.Scan(&r) {
	}
	return scan.Err()
}

func TestFASTQ(t *testing.T) {
	s := stringScanner(fq)
	var r Read
	if !s.Scan(&r) {
		t.Fatal(s.Err())
	}
	expect := Read{
		ID:   []byte("NB500956:89:HW2FHBGX2:1:11101:25648:1069"),
		Seq:  []byte("ATACAGGCCTGANCCACTGTGCCCAGNCTANNTNATTANTGAANANAGAATNGTTNTAAATANANNNNNTNTNNNC"),
		Unk:  []byte("+"),
		Qual: []byte("AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEE#EEEE#E#EEEEE#EEE#EEEAEE#A#####E#E###E"),
	}
	if !bytes.Equal(r.ID, expect.ID) || !bytes.Equal(r.Seq, expect.Seq) ||
		!bytes.Equal(r.Unk, expect.Unk) || !bytes.Equal(r.Qual, expect.Qual) {
		t.Errorf("got %+v, want %+v", r, expect)
	}
	var n int
	for s.Scan(&r) {
		n++
	}
	if got, want := n, 5; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if err := s.Err(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestFASTQIDTrimmedAtWhitespace(t *testing.T) {
	s := stringScanner("@read1 extra stuff\nACGT\n+\nIIII\n")
	var r Read
	if !s.Scan(&r) {
		t.Fatal(s.Err())
	}
	if got, want := string(r.ID), "read1"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBadFASTQ(t *testing.T) {
	if got, want := scanErr("12312#"), ErrInvalid; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := scanErr("@1234\n123"), ErrShort; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := scanErr("@1234\nACGT\n+\nII"), ErrLengthMismatch; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTrim(t *testing.T) {
	r := Read{Seq: []byte("ACGTACGT"), Qual: []byte("IIIIIIII")}
	r.Trim(4)
	if got, want := string(r.Seq), "ACGT"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := string(r.Qual), "IIII"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPairScanner(t *testing.T) {
	s := NewPairScanner(
		bytes.NewReader([]byte("@r1\nACGT\n+\nIIII\n@r2\nACGT\n+\nIIII\n")),
		bytes.NewReader([]byte("@r1\nTGCA\n+\nIIII\n@r2\nTGCA\n+\nIIII\n")),
		All)
	var r1, r2 Read
	var n int
	for s.Scan(&r1, &r2) {
		if !bytes.Equal(r1.ID, r2.ID) {
			t.Errorf("pair %d: id mismatch %q vs %q", n, r1.ID, r2.ID)
		}
		n++
	}
	if err := s.Err(); err != nil {
		t.Fatal(err)
	}
	if got, want := n, 2; got != want {
		t.Errorf("got %d pairs, want %d", got, want)
	}
}

func TestPairScannerDiscordant(t *testing.T) {
	s := NewPairScanner(
		bytes.NewReader([]byte("@r1\nACGT\n+\nIIII\n@r2\nACGT\n+\nIIII\n")),
		bytes.NewReader([]byte("@r1\nTGCA\n+\nIIII\n")),
		All)
	var r1, r2 Read
	for s.Scan(&r1, &r2) {
	}
	if got, want := s.Err(), ErrDiscordant; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWriter(t *testing.T) {
	var (
		b = new(bytes.Buffer)
		w = NewWriter(b)
	)
	r := Read{ID: []byte("r1"), Seq: []byte("ACGT"), Unk: []byte("+"), Qual: []byte("IIII")}
	if err := w.Write(&r); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), "@r1\nACGT\n+\nIIII\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
