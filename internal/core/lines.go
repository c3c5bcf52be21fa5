package core

import (
	"bytes"
	"strings"
)

// lineSplitter reassembles complete lines from stream fragments. The
// residue is the trailing portion of the stream not yet terminated by a
// newline, carried across fragment boundaries. The residue is capped:
// once it exceeds limit, the oldest bytes are dropped so a stream that
// never emits a newline cannot grow memory without bound.
type lineSplitter struct {
	residue []byte
	limit   int
}

func newLineSplitter(limit int) *lineSplitter {
	return &lineSplitter{limit: limit}
}

// feed ingests one fragment and returns the complete lines it closed, in
// order. Trailing carriage returns are stripped, so CRLF streams yield
// the same lines as LF streams.
func (s *lineSplitter) feed(fragment []byte) []string {
	pieces := bytes.Split(fragment, []byte{'\n'})
	if len(pieces) == 1 {
		s.carry(pieces[0])
		return nil
	}

	lines := make([]string, 0, len(pieces)-1)
	lines = append(lines, chomp(append(s.residue, pieces[0]...)))
	for _, p := range pieces[1 : len(pieces)-1] {
		lines = append(lines, chomp(p))
	}
	s.residue = nil
	s.carry(pieces[len(pieces)-1])
	return lines
}

// flush returns the remaining residue as a final line, if any. Called
// once when the stream ends.
func (s *lineSplitter) flush() (string, bool) {
	if len(s.residue) == 0 {
		return "", false
	}
	line := chomp(s.residue)
	s.residue = nil
	return line, true
}

// carry appends b to the residue, trimming the oldest bytes beyond the
// cap.
func (s *lineSplitter) carry(b []byte) {
	if len(b) == 0 {
		return
	}
	s.residue = append(s.residue, b...)
	if len(s.residue) > s.limit {
		tail := s.residue[len(s.residue)-s.limit:]
		s.residue = append([]byte(nil), tail...)
	}
}

func chomp(b []byte) string {
	return strings.TrimSuffix(string(b), "\r")
}
