// Package transport is the TCP accept loop and connection table: spec
// §4.D, "Transport/Fan-out". It owns all network I/O; chatsession stays a
// pure command generator that this package drives and executes against.
//
// Grounded on the teacher's internal/server package (server.go's accept
// loop and per-connection read/write-pump split, hub.go's single-owner
// connection table and non-blocking slow-client drop), generalized from
// a single-goroutine Hub to a mutex-protected table per spec §5 (the
// table is only ever held for a snapshot, never across a write), and
// from newline-delimited JSON packets to the length-prefixed frames of
// internal/protocol. Idle-timeout handling follows client.go's readTimeout
// idea, made configurable via internal/config.
package transport

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"lenchat/internal/chatsession"
	"lenchat/internal/config"
	"lenchat/internal/logging"
	"lenchat/internal/protocol"
)

const sendBufSize = 256

// connection is one accepted TCP connection's transport-side state. send is
// drained by exactly one writePump goroutine so frames for a single
// connection are never interleaved.
type connection struct {
	id   string
	conn net.Conn
	send chan []byte
}

// Server accepts TCP connections on cfg.Addr(), decodes framed requests,
// drives sessions through a chatsession.Manager, and executes the
// resulting fan-out commands.
type Server struct {
	cfg      config.Config
	sessions *chatsession.Manager
	log      *logging.Logger

	listener net.Listener

	mu    sync.Mutex
	conns map[string]*connection

	closing chan struct{}
	closeWg sync.WaitGroup
	once    sync.Once
}

// New builds a Server. sessions must already be wired to a userservice for
// authentication/registration.
func New(cfg config.Config, sessions *chatsession.Manager, log *logging.Logger) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		log:      log,
		conns:    make(map[string]*connection),
		closing:  make(chan struct{}),
	}
}

// ListenAndServe binds cfg.Addr() and accepts connections until Shutdown is
// called, at which point it returns nil.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info("listening on %s", s.cfg.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.closing:
				s.closeWg.Wait()
				return nil
			default:
				return err
			}
		}
		s.closeWg.Add(1)
		go s.serve(conn)
	}
}

// Shutdown stops accepting new connections and closes every tracked
// connection. It returns without waiting; ListenAndServe waits for the
// connection goroutines to exit before it returns.
func (s *Server) Shutdown() {
	s.once.Do(func() {
		close(s.closing)
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Lock()
		conns := make([]*connection, 0, len(s.conns))
		for _, c := range s.conns {
			conns = append(conns, c)
		}
		s.mu.Unlock()
		for _, c := range conns {
			c.conn.Close()
		}
	})
}

func (s *Server) serve(conn net.Conn) {
	defer s.closeWg.Done()

	id := uuid.NewString()
	c := &connection{id: id, conn: conn, send: make(chan []byte, sendBufSize)}

	s.mu.Lock()
	s.conns[id] = c
	s.mu.Unlock()
	s.sessions.OnConnect(id)
	s.log.Info("connection %s established from %s", id, conn.RemoteAddr())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writePump(c)
	}()

	s.readPump(c)

	close(c.send)
	wg.Wait()

	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
	cmds := s.sessions.OnDisconnect(id)
	s.execute(cmds)
	conn.Close()
	s.log.Info("connection %s closed", id)
}

func (s *Server) idleTimeout() time.Duration {
	if s.cfg.IdleTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(s.cfg.IdleTimeoutSeconds) * time.Second
}

func (s *Server) maxFrame() int {
	if s.cfg.MaxFrameBytes <= 0 {
		return protocol.DefaultMaxFrame
	}
	return s.cfg.MaxFrameBytes
}

// readPump reads frames off the connection until it closes or a frame
// violates the size bound, dispatching each to the session manager and
// executing the resulting commands.
func (s *Server) readPump(c *connection) {
	for {
		if d := s.idleTimeout(); d > 0 {
			c.conn.SetReadDeadline(time.Now().Add(d))
		}

		body, err := protocol.ReadFrame(c.conn, s.maxFrame())
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Warn("connection %s read error: %v", c.id, err)
			}
			return
		}

		cmds := s.sessions.OnMessage(c.id, body)
		s.execute(cmds)
	}
}

// writePump serializes every outbound frame for one connection so concurrent
// fan-out goroutines never interleave bytes on the wire.
func (s *Server) writePump(c *connection) {
	for frame := range c.send {
		if err := protocol.WriteFrame(c.conn, frame); err != nil {
			s.log.Warn("connection %s write error: %v", c.id, err)
			return
		}
	}
}

// execute runs each command's fan-out concurrently, one goroutine per
// destination connection, so a single slow or stuck peer cannot delay
// delivery to the rest.
func (s *Server) execute(cmds []chatsession.Command) {
	for _, cmd := range cmds {
		switch cmd.Kind {
		case chatsession.SendToAll:
			s.fanOut(s.allIDs(""), cmd.Response)
		case chatsession.SendToAllExcept:
			s.fanOut(s.allIDs(cmd.Except), cmd.Response)
		case chatsession.SendToSome:
			s.fanOut(cmd.Targets, cmd.Response)
		case chatsession.DisconnectUser:
			s.disconnect(cmd.Target)
		}
	}
}

func (s *Server) allIDs(except string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.conns))
	for id := range s.conns {
		if id == except {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (s *Server) fanOut(targets []string, resp protocol.Response) {
	if len(targets) == 0 {
		return
	}
	payload, err := protocol.Encode(resp)
	if err != nil {
		s.log.Warn("failed to encode response for fan-out: %v", err)
		return
	}

	var wg sync.WaitGroup
	for _, id := range targets {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			s.deliver(id, payload)
		}(id)
	}
	wg.Wait()
}

func (s *Server) deliver(id string, payload []byte) {
	s.mu.Lock()
	c, ok := s.conns[id]
	s.mu.Unlock()
	if !ok {
		return
	}

	select {
	case c.send <- payload:
	default:
		s.log.Warn("connection %s send buffer full, dropping frame", id)
	}
}

func (s *Server) disconnect(id string) {
	s.mu.Lock()
	c, ok := s.conns[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	c.conn.Close()
}
