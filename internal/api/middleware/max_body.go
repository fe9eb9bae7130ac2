package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/api/response"
)

// RequestBodyTooLargeRecorder records rejected uploads. Pass nil when metrics are disabled.
type RequestBodyTooLargeRecorder interface {
	RecordRequestBodyTooLarge(ctx context.Context)
}

// MaxBody limits request bodies to maxBytes (config.MaxRequestBodyBytes) and answers 413 when a
// handler read past the limit, whatever status the handler itself chose. maxBytes <= 0 disables it.
func MaxBody(maxBytes int64, recorder RequestBodyTooLargeRecorder) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	l := &bodyLimiter{maxBytes: maxBytes, recorder: recorder}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l.serve(next, w, r)
		})
	}
}

type bodyLimiter struct {
	maxBytes int64
	recorder RequestBodyTooLargeRecorder
}

func (l *bodyLimiter) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	body := &limitedBody{rc: http.MaxBytesReader(w, r.Body, l.maxBytes)}
	r.Body = body

	// Resume uploads and JSON creates are held back so a 413 can replace the handler's reply.
	// Other methods stream straight through.
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		next.ServeHTTP(w, r)

		return
	}

	held := &heldResponse{ResponseWriter: w}
	next.ServeHTTP(held, r)

	if !body.exceeded {
		held.release()

		return
	}

	if l.recorder != nil {
		l.recorder.RecordRequestBodyTooLarge(r.Context())
	}

	response.RespondError(w, http.StatusRequestEntityTooLarge,
		"Request Entity Too Large", fmt.Sprintf("request body exceeds %d bytes", l.maxBytes))
}

// limitedBody notes whether the wrapped MaxBytesReader ever refused a read.
type limitedBody struct {
	rc       io.ReadCloser
	exceeded bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if err == nil || errors.Is(err, io.EOF) {
		return n, err //nolint:wrapcheck // io.EOF is compared by identity
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		b.exceeded = true
	}

	return n, fmt.Errorf("read body: %w", err)
}

func (b *limitedBody) Close() error {
	if err := b.rc.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}

	return nil
}

// heldResponse buffers status and body until the handler returns.
type heldResponse struct {
	http.ResponseWriter

	status int
	body   bytes.Buffer
}

func (h *heldResponse) WriteHeader(code int) {
	if h.status == 0 {
		h.status = code
	}
}

func (h *heldResponse) Write(p []byte) (int, error) {
	n, err := h.body.Write(p)
	if err != nil {
		return n, fmt.Errorf("hold response: %w", err)
	}

	return n, nil
}

func (h *heldResponse) release() {
	if h.status != 0 {
		h.ResponseWriter.WriteHeader(h.status)
	}

	_, _ = h.body.WriteTo(h.ResponseWriter)
}
