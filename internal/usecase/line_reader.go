package usecase

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// rawPrefixSize bounds how much of an oversized line is kept for its rejection.
const rawPrefixSize = 1024

// lineReader splits input on '\n' like bufio.Scanner, but reports lines
// longer than max instead of failing.
type lineReader struct {
	r   *bufio.Reader
	max int
	buf []byte
}

func newLineReader(r io.Reader, max int) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024), max: max}
}

// next returns the next line without its line ending. For an oversized
// line it returns a prefix and tooLong set. At end of input err is io.EOF.
func (lr *lineReader) next() (line []byte, tooLong bool, err error) {
	lr.buf = lr.buf[:0]
	limit := lr.max + 2 // room for "\r\n"
	read := false

	for {
		chunk, err := lr.r.ReadSlice('\n')
		if len(chunk) > 0 {
			read = true
		}
		if !tooLong {
			if len(lr.buf)+len(chunk) > limit {
				tooLong = true
				lr.buf = append(lr.buf, chunk...)
				if len(lr.buf) > rawPrefixSize {
					lr.buf = lr.buf[:rawPrefixSize]
				}
			} else {
				lr.buf = append(lr.buf, chunk...)
			}
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if !read {
				return nil, false, io.EOF
			}
		case err != nil:
			return nil, false, err
		}
		break
	}

	line = bytes.TrimSuffix(lr.buf, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) > lr.max {
		tooLong = true
	}
	return line, tooLong, nil
}
