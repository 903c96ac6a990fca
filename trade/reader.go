package trade

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

const maxLineLength = 1024 * 1024

// Reader reads trades line by line. Blank lines are skipped, and so is a
// header as the first non-blank line. A malformed line, including a header
// anywhere else, is returned as a *ParseError and the next call to Read
// continues with the following line.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	started bool
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	return &Reader{scanner: scanner}
}

// Read returns the next trade, io.EOF once the input is exhausted, a
// *ParseError for a bad line, or the underlying read error.
func (r *Reader) Read() (Trade, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" {
			continue
		}
		t, err := Parse(text)
		first := !r.started
		r.started = true
		if errors.Is(err, ErrHeader) {
			if first {
				continue
			}
			return Trade{}, &ParseError{Line: r.line, Text: text, Reason: "unexpected header line"}
		}
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Line = r.line
			return Trade{}, perr
		}
		return t, err
	}
	if err := r.scanner.Err(); err != nil {
		return Trade{}, err
	}
	return Trade{}, io.EOF
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int {
	return r.line
}

// ReadAll reads every trade from r. Parse errors are collected and do not
// stop the read; any other error is returned together with what was read so
// far.
func ReadAll(r io.Reader) ([]Trade, []*ParseError, error) {
	var (
		trades []Trade
		bad    []*ParseError
	)
	tr := NewReader(r)
	for {
		t, err := tr.Read()
		if err == io.EOF {
			return trades, bad, nil
		}
		var perr *ParseError
		if errors.As(err, &perr) {
			bad = append(bad, perr)
			continue
		}
		if err != nil {
			return trades, bad, err
		}
		trades = append(trades, t)
	}
}
