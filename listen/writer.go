package listen

import (
	"bytes"
	"errors"
	"io"
)

// WriterSeeker is an in-memory io.WriteSeeker for the wav encoder, which
// seeks back to patch the header on Close.
type WriterSeeker struct {
	buf bytes.Buffer
	pos int
}

func (ws *WriterSeeker) Write(p []byte) (int, error) {
	if extra := ws.pos - ws.buf.Len(); extra > 0 {
		ws.buf.Write(make([]byte, extra))
	}
	n := 0
	if ws.pos < ws.buf.Len() {
		n = copy(ws.buf.Bytes()[ws.pos:], p)
		p = p[n:]
	}
	if len(p) > 0 {
		bn, _ := ws.buf.Write(p)
		n += bn
	}
	ws.pos += n
	return n, nil
}

func (ws *WriterSeeker) Seek(offset int64, whence int) (int64, error) {
	var pos int
	switch whence {
	case io.SeekStart:
		pos = int(offset)
	case io.SeekCurrent:
		pos = ws.pos + int(offset)
	case io.SeekEnd:
		pos = ws.buf.Len() + int(offset)
	}
	if pos < 0 {
		return 0, errors.New("negative result pos")
	}
	ws.pos = pos
	return int64(pos), nil
}

// Bytes returns a copy of everything written so far.
func (ws *WriterSeeker) Bytes() []byte {
	return bytes.Clone(ws.buf.Bytes())
}

func (ws *WriterSeeker) Close() error {
	return nil
}
