package middleware

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
)

// sessionResponseWriter persists the session right before the wrapped writer
// commits its headers. Streaming goes through http.ResponseController, which
// finds FlushError here and the rest of the underlying writer through Unwrap.
type sessionResponseWriter struct {
	http.ResponseWriter
	persist   func()
	persisted bool
}

func (w *sessionResponseWriter) persistOnce() {
	if w.persisted {
		return
	}
	w.persisted = true
	w.persist()
}

func (w *sessionResponseWriter) WriteHeader(code int) {
	w.persistOnce()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionResponseWriter) Write(p []byte) (int, error) {
	w.persistOnce()
	return w.ResponseWriter.Write(p)
}

func (w *sessionResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not support hijacking")
	}
	// The connection leaves HTTP; there is no response header to carry a cookie.
	w.persisted = true
	return hj.Hijack()
}

// FlushError lets http.ResponseController flush through the wrapper after the
// cookie is written. It returns http.ErrNotSupported when the underlying
// writer cannot flush. The wrapper deliberately does not implement
// http.Flusher, so a type assertion reflects what the connection can do.
func (w *sessionResponseWriter) FlushError() error {
	w.persistOnce()
	return http.NewResponseController(w.ResponseWriter).Flush()
}

func (w *sessionResponseWriter) ReadFrom(r io.Reader) (int64, error) {
	w.persistOnce()
	if rf, ok := w.ResponseWriter.(io.ReaderFrom); ok {
		return rf.ReadFrom(r)
	}
	return io.Copy(w.ResponseWriter, r)
}

func (w *sessionResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
