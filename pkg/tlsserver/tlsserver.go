// Copyright (c) 2024 Jerzy Dąbrowski
//
// Package tlsserver accepts TCP connections, performs the TLS handshake,
// and hands ready byte-duplex streams plus peer addresses to a Handler. It
// is an external collaborator to the connection driver: the driver never
// sees a raw net.Listener, only accepted net.Conn values.
package tlsserver

import (
	"crypto/tls"
	"net"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/rsr-chat/rsrserver/pkg/netdiag"
)

// DefaultPoolSize bounds how many connections may be mid-handshake or
// inside a Handler concurrently before Accept blocks; a connection holds its
// slot until Handle returns.
const DefaultPoolSize = 128

// Config configures a Server.
type Config struct {
	Addr     string
	CertPath string
	KeyPath  string
	PoolSize int
	// NetDiag, if set, is populated with the raw fd of every accepted
	// connection before the TLS handshake wraps it. Register must happen
	// here: once a conn is wrapped in *tls.Conn, netfd.GetFdFromConn can no
	// longer unwrap it to recover the underlying socket.
	NetDiag *netdiag.Table
}

// Handler processes one accepted, TLS-handshaked connection, keyed by the
// session id the Server minted for it (and, if NetDiag is set, already
// registered the pre-handshake fd under). Implementations must not block
// the Server's accept loop beyond acquiring their own goroutine; Serve
// always dispatches Handle on its own goroutine.
type Handler interface {
	Handle(conn net.Conn, sessionID string)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(conn net.Conn, sessionID string)

// Handle calls f(conn, sessionID).
func (f HandlerFunc) Handle(conn net.Conn, sessionID string) { f(conn, sessionID) }

// Server is a TLS-terminating TCP listener with a bounded number of
// in-flight handshakes/handlers.
type Server struct {
	listener net.Listener
	tlsConf  *tls.Config
	sem      chan struct{}
	log      *logrus.Logger
	netDiag  *netdiag.Table
}

// New loads the PEM certificate chain and key at cfg.CertPath/cfg.KeyPath,
// binds cfg.Addr, and returns a Server ready to Serve.
func New(cfg Config, log *logrus.Logger) (*Server, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if log == nil {
		log = logrus.New()
	}
	return &Server{
		listener: ln,
		tlsConf:  &tls.Config{Certificates: []tls.Certificate{cert}},
		sem:      make(chan struct{}, poolSize),
		log:      log,
		netDiag:  cfg.NetDiag,
	}, nil
}

// Serve accepts connections until the listener is closed, TLS-handshaking
// each one and dispatching it to handler on its own goroutine. A failed
// handshake or a temporary accept error is logged and does not stop the
// loop; any other accept error (including a closed listener) is logged and
// ends Serve.
func (s *Server) Serve(handler Handler) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.log.WithError(err).Warn("accept failed")
			if isTemporary(err) {
				continue
			}
			return
		}
		s.sem <- struct{}{}
		go s.serveOne(conn, handler)
	}
}

func (s *Server) serveOne(conn net.Conn, handler Handler) {
	defer func() { <-s.sem }()

	sessionID := xid.New().String()
	if s.netDiag != nil {
		// Must register against conn, not tlsConn: once tls.Server wraps it
		// below, netfd.GetFdFromConn can no longer unwrap the concrete
		// *net.TCPConn to recover the fd.
		s.netDiag.Register(sessionID, conn, conn.RemoteAddr().String())
	}

	tlsConn := tls.Server(conn, s.tlsConf)
	if err := tlsConn.Handshake(); err != nil {
		s.log.WithError(err).WithField("client_addr", conn.RemoteAddr().String()).Warn("TLS handshake failed")
		if s.netDiag != nil {
			s.netDiag.Unregister(sessionID)
		}
		conn.Close()
		return
	}
	handler.Handle(tlsConn, sessionID)
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

type temporaryError interface {
	Temporary() bool
}

func isTemporary(err error) bool {
	te, ok := err.(temporaryError)
	return ok && te.Temporary()
}
