package conn

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"smartclient/pkg/frame"
	"smartclient/pkg/markup"
)

// RejectedError is returned when the server answers the start request with
// anything other than ok.
type RejectedError struct {
	Reply string
	Msg   string
}

// Error implements the error interface
func (e *RejectedError) Error() string {
	return fmt.Sprintf("server rejected session (%s): %s", e.Reply, e.Msg)
}

// StartElement builds the session-open request. listenPort is announced
// when the client waits for the server to connect back.
func StartElement(cfg ConnConfig, listenPort int) *markup.Element {
	e := markup.New("start")
	if cfg.User != "" {
		e.SetAttr("user", cfg.User)
	}
	if cfg.Dir != "" {
		e.SetAttr("dir", cfg.Dir)
	}
	if cfg.Encryption {
		e.SetAttr("encryption", "y")
	}
	if listenPort != 0 {
		e.SetAttrInt("port", listenPort)
	}
	e.SetAttr("gui", "y")
	if cfg.Params != "" {
		e.AddText(cfg.Params)
	}
	return e
}

// Identity builds the version frame sent once the data connection is up.
func Identity(version string, now time.Time) *markup.Element {
	return markup.New("smartclient").
		SetAttr("version", version).
		SetAttr("utcoffset", UTCOffset(now))
}

// UTCOffset formats the zone offset of t as +HHMM or -HHMM.
func UTCOffset(t time.Time) string {
	_, secs := t.Zone()
	sign := '+'
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	mins := secs / 60
	return fmt.Sprintf("%c%02d%02d", sign, mins/60, mins%60)
}

// parseReply interprets the start reply. When the client is not listening
// the ok reply must carry the data port.
func parseReply(reply *markup.Element, listening bool) (int, error) {
	text := strings.TrimSpace(reply.Text())
	if reply.Name != "ok" {
		if text == "" {
			text = "server connection error"
		}
		return 0, &RejectedError{Reply: reply.Name, Msg: text}
	}
	if listening {
		return 0, nil
	}
	if text == "" {
		return 0, errors.New("server did not supply a data port")
	}
	port, err := strconv.Atoi(text)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid data port %q in reply", text)
	}
	return port, nil
}

// Connect runs the handshake and returns the data connection the session
// runs on. The control connection is always closed before returning.
func (d *Dialer) Connect(ctx context.Context) (net.Conn, error) {
	if err := d.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	d.setState(StateConnecting, nil)
	c, err := d.connect(ctx)
	if err != nil {
		d.setState(StateError, err)
		return nil, err
	}
	d.setState(StateConnected, nil)
	return c, nil
}

func (d *Dialer) connect(ctx context.Context) (net.Conn, error) {
	log := d.logger()
	addr := d.Config.Addr()

	var ln net.Listener
	if d.Config.LocalPort != LocalPortNone {
		laddr := ":" + strconv.Itoa(max(d.Config.LocalPort, 0))
		var err error
		ln, err = net.Listen("tcp", laddr)
		if err != nil {
			return nil, NewConnError("listen", laddr, err)
		}
		defer ln.Close()
	}

	ctrl, err := d.dialWithRetry(ctx, addr)
	if err != nil {
		return nil, err
	}

	d.setState(StateHandshaking, nil)
	listenPort := 0
	if ln != nil {
		listenPort = ln.Addr().(*net.TCPAddr).Port
	}
	reply, err := d.exchange(ctx, ctrl, StartElement(d.Config, listenPort))
	ctrl.Close()
	if err != nil {
		return nil, NewConnError("handshake", addr, err)
	}
	port, err := parseReply(reply, ln != nil)
	if err != nil {
		return nil, NewConnError("handshake", addr, err)
	}
	log.Debug("handshake accepted", "addr", addr, "reply", reply.Name, "data_port", port, "listen_port", listenPort)

	var data net.Conn
	if ln == nil {
		dataAddr := net.JoinHostPort(d.Config.Host, strconv.Itoa(port))
		nd := net.Dialer{Timeout: d.Config.DialTimeout}
		data, err = nd.DialContext(ctx, "tcp", dataAddr)
		if err != nil {
			return nil, NewConnError("dial", dataAddr, err)
		}
	} else {
		data, err = d.accept(ctx, ln)
		if err != nil {
			return nil, err
		}
	}

	if tc, ok := data.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}

	if d.Config.Encryption {
		data, err = d.secure(ctx, data)
		if err != nil {
			return nil, err
		}
	}

	log.Info("data connection open", "local", data.LocalAddr().String(), "remote", data.RemoteAddr().String(), "encrypted", d.Config.Encryption)
	return data, nil
}

// exchange sends req in a single frame with the initial sync token and
// reads the one-frame reply.
func (d *Dialer) exchange(ctx context.Context, c net.Conn, req *markup.Element) (*markup.Element, error) {
	if d.Config.HandshakeTimeout > 0 {
		c.SetDeadline(time.Now().Add(d.Config.HandshakeTimeout))
	}
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	if err := frame.NewWriter(c).WriteFrame(frame.InitialSync, markup.Marshal(req)); err != nil {
		return nil, d.ctxErr(ctx, err)
	}
	f, err := frame.NewReader(c).ReadFrame()
	if err != nil {
		return nil, d.ctxErr(ctx, fmt.Errorf("failed to read reply: %w", err))
	}
	reply, err := markup.ParseOne(f.Payload)
	if err != nil {
		return nil, fmt.Errorf("malformed reply %q: %w", f.Payload, err)
	}
	return reply, nil
}

func (d *Dialer) accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	if tl, ok := ln.(*net.TCPListener); ok && d.Config.HandshakeTimeout > 0 {
		tl.SetDeadline(time.Now().Add(d.Config.HandshakeTimeout))
	}
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	c, err := ln.Accept()
	if err != nil {
		return nil, NewConnError("accept", ln.Addr().String(), d.ctxErr(ctx, err))
	}
	return c, nil
}

func (d *Dialer) secure(ctx context.Context, c net.Conn) (net.Conn, error) {
	cfg := d.TLS
	if cfg == nil {
		cfg = &tls.Config{
			ServerName:         d.Config.Host,
			InsecureSkipVerify: d.Config.InsecureSkipVerify,
			MinVersion:         tls.VersionTLS12,
		}
	}
	tc := tls.Client(c, cfg)
	hctx := ctx
	if d.Config.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, d.Config.HandshakeTimeout)
		defer cancel()
	}
	if err := tc.HandshakeContext(hctx); err != nil {
		c.Close()
		return nil, NewConnError("tls", c.RemoteAddr().String(), err)
	}
	return tc, nil
}

// ctxErr prefers the context error when the context closed the connection.
func (d *Dialer) ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
