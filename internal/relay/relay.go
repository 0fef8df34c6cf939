// Package relay turns a provider's server-sent event stream into plain
// text deltas, forwarding each one as soon as it is decoded.
package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrTransport marks a failed read from the upstream stream.
	ErrTransport = errors.New("upstream stream read failed")
	// ErrEmit marks a downstream consumer that refused a delta.
	ErrEmit = errors.New("downstream write failed")
)

const defaultReadSize = 4096

// EmitFunc receives each non-empty delta in arrival order. Returning an
// error stops the relay.
type EmitFunc func(delta string) error

// Stats summarises one relay run.
type Stats struct {
	Bytes     int64 `json:"bytes"`
	Events    int   `json:"events"`
	Deltas    int   `json:"deltas"`
	Sentinels int   `json:"sentinels"`
	Malformed int   `json:"malformed"`
	Empty     int   `json:"empty"`
}

// Relay reads one upstream stream. It keeps no state between runs, so a
// single Relay may serve concurrent requests.
type Relay struct {
	dialect  Dialect
	readSize int
}

// Option configures a Relay.
type Option func(*Relay)

// WithReadSize sets the size of each upstream read.
func WithReadSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.readSize = n
		}
	}
}

// New returns a relay for the given dialect.
func New(dialect Dialect, opts ...Option) *Relay {
	r := &Relay{dialect: dialect, readSize: defaultReadSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dialect returns the framing this relay expects.
func (r *Relay) Dialect() Dialect {
	return r.dialect
}

// Run consumes src until it ends, forwarding deltas to emit.
//
// Bytes are decoded incrementally so a multi-byte character split across
// reads is completed by the next read. Lines without the dialect prefix,
// the sentinel, payloads that are not JSON and payloads without text are
// dropped. A final line with no terminating newline is discarded.
//
// When ctx is cancelled and src is an io.Closer, src is closed so a
// blocked read returns; Run then reports ctx.Err().
func (r *Relay) Run(ctx context.Context, src io.Reader, emit EmitFunc) (Stats, error) {
	var stats Stats

	if closer, ok := src.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = closer.Close() })
		defer stop()
	}

	decoded := transform.NewReader(src, unicode.UTF8BOM.NewDecoder())
	buf := make([]byte, r.readSize)
	var pending []byte
	prefix := []byte(r.dialect.Prefix)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		n, readErr := decoded.Read(buf)
		if n > 0 {
			stats.Bytes += int64(n)
			pending = append(pending, buf[:n]...)

			start := 0
			for {
				idx := bytes.IndexByte(pending[start:], '\n')
				if idx < 0 {
					break
				}
				line := pending[start : start+idx]
				start += idx + 1
				if err := r.handleLine(line, prefix, emit, &stats); err != nil {
					return stats, err
				}
			}
			pending = append(pending[:0], pending[start:]...)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return stats, nil
			}
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			return stats, fmt.Errorf("%w: %w", ErrTransport, readErr)
		}
	}
}

func (r *Relay) handleLine(line, prefix []byte, emit EmitFunc, stats *Stats) error {
	if !bytes.HasPrefix(line, prefix) {
		return nil
	}
	stats.Events++

	payload := bytes.TrimSpace(line[len(prefix):])
	if string(payload) == r.dialect.Sentinel {
		stats.Sentinels++
		return nil
	}

	delta, ok := r.dialect.Extract(payload)
	if !ok {
		stats.Malformed++
		return nil
	}
	if delta == "" {
		stats.Empty++
		return nil
	}

	stats.Deltas++
	if err := emit(delta); err != nil {
		return fmt.Errorf("%w: %w", ErrEmit, err)
	}
	return nil
}
