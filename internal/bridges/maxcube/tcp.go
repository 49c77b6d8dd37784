package maxcube

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TCP session constants.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second

	// liveListRequest asks the gateway to resend its live device list.
	liveListRequest = "l:\r\n"

	// liveListType is the message type that terminates both the greeting
	// and the response to liveListRequest.
	liveListType = "L"

	// maxResponseLines bounds how many lines are read waiting for liveListType.
	maxResponseLines = 512
)

// TCPDialer opens line-oriented TCP sessions to MAX! Cube gateways.
//
// Zero timeouts select the defaults (10 seconds each).
type TCPDialer struct {
	// ConnectTimeout bounds establishing the TCP connection.
	ConnectTimeout time.Duration

	// ReadTimeout bounds the wait for each line from the gateway.
	ReadTimeout time.Duration
}

// Ensure TCPDialer implements Dialer.
var _ Dialer = TCPDialer{}

// Dial connects to the gateway and reads its greeting. The returned
// Connection already holds the initial snapshot.
//
// Returns:
//   - Connection: Ready for Refresh
//   - error wrapping ErrTimeout: the connect or greeting timed out
//   - any other error: refused, reset, or an invalid greeting
func (d TCPDialer) Dial(ctx context.Context, host string, port int) (Connection, error) {
	if port == 0 {
		port = DefaultPort
	}

	c := &tcpConnection{
		addr:           net.JoinHostPort(host, strconv.Itoa(port)),
		connectTimeout: d.ConnectTimeout,
		readTimeout:    d.ReadTimeout,
	}
	if c.connectTimeout <= 0 {
		c.connectTimeout = defaultConnectTimeout
	}
	if c.readTimeout <= 0 {
		c.readTimeout = defaultReadTimeout
	}

	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// tcpConnection is a persistent session with one gateway. A failed refresh
// drops the socket and the next Refresh reconnects and rereads the greeting.
type tcpConnection struct {
	addr           string
	connectTimeout time.Duration
	readTimeout    time.Duration

	// mu guards the socket and serialises request/response exchanges.
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	closed bool

	stateMu  sync.RWMutex
	snapshot Snapshot
}

// Refresh re-fetches the live device list. On a fresh socket the full
// greeting replaces the snapshot; on an open socket only the live list is
// replaced and the other message types are kept.
func (c *tcpConnection) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	reconnected := false
	if c.conn == nil {
		if err := c.open(ctx); err != nil {
			return err
		}
		reconnected = true
	}

	conn := c.conn
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	var (
		msgs map[string][]string
		err  error
	)
	if reconnected {
		msgs, err = c.readUntilLive()
	} else {
		msgs, err = c.requestLive()
	}
	if err != nil {
		c.drop()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("refresh %s: %w", c.addr, ctxErr)
		}
		return c.classify("refresh", err)
	}

	c.store(msgs, !reconnected)
	return nil
}

// open dials the gateway. Caller must hold c.mu.
func (c *tcpConnection) open(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return c.classify("dial", err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// requestLive sends the live-list request and reads the response.
func (c *tcpConnection) requestLive() (map[string][]string, error) {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return nil, err
	}
	if _, err := c.conn.Write([]byte(liveListRequest)); err != nil {
		return nil, err
	}
	return c.readUntilLive()
}

// readUntilLive reads raw message lines until a live-list line arrives.
func (c *tcpConnection) readUntilLive() (map[string][]string, error) {
	msgs := make(map[string][]string)

	for i := 0; i < maxResponseLines; i++ {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return nil, err
		}
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		msgType, payload, ok := parseLine(line)
		if !ok {
			return nil, fmt.Errorf("%w: malformed line %q", ErrInvalidResponse, line)
		}
		msgs[msgType] = append(msgs[msgType], payload)

		if msgType == liveListType {
			return msgs, nil
		}
	}

	return nil, fmt.Errorf("%w: no live list after %d lines", ErrInvalidResponse, maxResponseLines)
}

// parseLine splits "X:payload" into its type letter and payload.
func parseLine(line string) (msgType, payload string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 1 {
		return "", "", false
	}
	return line[:idx], line[idx+1:], true
}

// store replaces the snapshot. With merge set, message types absent from
// msgs keep their previous lines.
func (c *tcpConnection) store(msgs map[string][]string, merge bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if merge && c.snapshot.Messages != nil {
		for k, v := range c.snapshot.Messages {
			if _, ok := msgs[k]; !ok {
				msgs[k] = v
			}
		}
	}
	c.snapshot = Snapshot{Messages: msgs, UpdatedAt: time.Now()}
}

// classify maps timeouts to ErrTimeout and annotates everything else
// without changing its identity.
func (c *tcpConnection) classify(op string, err error) error {
	if IsTimeout(err) {
		return fmt.Errorf("%w: %s %s: %w", ErrTimeout, op, c.addr, err)
	}
	return fmt.Errorf("%s %s: %w", op, c.addr, err)
}

// drop closes the socket after a failed exchange. Caller must hold c.mu.
func (c *tcpConnection) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
}

// Snapshot returns a copy of the latest gateway messages.
func (c *tcpConnection) Snapshot() Snapshot {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.snapshot.clone()
}

// Close closes the socket. Further refreshes return ErrClosed.
func (c *tcpConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}
