package dictionary

import (
	"bufio"
	"errors"
	"io"
)

// LineReader tokenizes a corpus stream into words. It treats newlines as an
// end-of-sentence token and can rewind the stream when it reaches the end,
// which lets training workers loop over a file for several epochs.
type LineReader struct {
	src io.ReadSeeker
	r   *bufio.Reader
	eof bool
	err error
}

// NewLineReader wraps r. Rewinding is only possible when r implements
// io.Seeker.
func NewLineReader(r io.Reader) *LineReader {
	lr := &LineReader{r: bufio.NewReader(r)}
	if rs, ok := r.(io.ReadSeeker); ok {
		lr.src = rs
	}
	return lr
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\n', '\r', '\t', '\v', '\f', 0:
		return true
	}
	return false
}

// ReadWord returns the next token. A newline that ends an empty token is
// reported as EOS; a newline that ends a word is kept for the next call. At
// the end of the stream the pending word, if any, is returned.
func (lr *LineReader) ReadWord() (string, bool) {
	var word []byte
	for {
		c, err := lr.r.ReadByte()
		if err != nil {
			lr.eof = true
			if !errors.Is(err, io.EOF) {
				lr.err = err
			}
			return string(word), len(word) > 0
		}
		if !isDelimiter(c) {
			word = append(word, c)
			continue
		}
		if len(word) == 0 {
			if c == '\n' {
				return EOS, true
			}
			continue
		}
		if c == '\n' {
			_ = lr.r.UnreadByte()
		}
		return string(word), true
	}
}

// EOF reports whether the underlying stream has been exhausted.
func (lr *LineReader) EOF() bool { return lr.eof }

// Err returns the first read error other than io.EOF.
func (lr *LineReader) Err() error { return lr.err }

// Rewind seeks back to the beginning of the stream if the end was reached.
func (lr *LineReader) Rewind() error {
	if !lr.eof || lr.src == nil {
		return nil
	}
	if _, err := lr.src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	lr.r.Reset(lr.src)
	lr.eof = false
	return nil
}
