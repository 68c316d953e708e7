// Package tor requests fresh Tor circuits through the control port, so a
// browser routed through the Tor SOCKS proxy gets a new exit IP.
package tor

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"net/textproto"
	"sync"
	"time"
)

const defaultDialTimeout = 5 * time.Second

// Controller talks to one Tor control port.
type Controller struct {
	addr     string
	password string
	timeout  time.Duration

	// Tor rate-limits NEWNYM; calls inside minInterval are skipped.
	minInterval  time.Duration
	mu           sync.Mutex
	lastRotation time.Time
}

func NewController(addr, password string) *Controller {
	return &Controller{
		addr:        addr,
		password:    password,
		timeout:     defaultDialTimeout,
		minInterval: 10 * time.Second,
	}
}

// NewCircuit authenticates and sends SIGNAL NEWNYM. It reports whether a
// rotation was actually requested.
func (c *Controller) NewCircuit(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastRotation.IsZero() && time.Since(c.lastRotation) < c.minInterval {
		return false, nil
	}

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return false, fmt.Errorf("connect to tor control port: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(c.timeout))
	}

	tp := textproto.NewConn(conn)
	if err := command(tp, "AUTHENTICATE "+authArg(c.password)); err != nil {
		return false, fmt.Errorf("authenticate: %w", err)
	}
	if err := command(tp, "SIGNAL NEWNYM"); err != nil {
		return false, fmt.Errorf("signal newnym: %w", err)
	}
	_ = tp.PrintfLine("QUIT")

	c.lastRotation = time.Now()
	return true, nil
}

// authArg encodes the password in the hex form AUTHENTICATE accepts, so
// arbitrary bytes never need QuotedString escaping.
func authArg(password string) string {
	if password == "" {
		return `""`
	}
	return hex.EncodeToString([]byte(password))
}

// command sends one line and expects a 250 reply.
func command(tp *textproto.Conn, line string) error {
	if err := tp.PrintfLine("%s", line); err != nil {
		return err
	}
	_, _, err := tp.ReadResponse(250)
	return err
}
