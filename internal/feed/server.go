package feed

import (
	"bufio"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// Server accepts raw TCP subscribers for the event feed. Each client
// gets every broadcast as one JSON line.
type Server struct {
	Addr string
	Hub  *Hub
	Log  *logrus.Entry

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, hub *Hub, log *logrus.Logger) *Server {
	return &Server{Addr: addr, Hub: hub, Log: log.WithField("component", "feed-tcp")}
}

// Run accepts connections until Close is called.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.Log.WithField("addr", s.Addr).Info("listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.ln == nil
			s.mu.Unlock()
			if closed {
				return nil
			}
			continue
		}

		s.Hub.Add(conn)
		s.Hub.Welcome(conn)
		s.Log.WithField("remote", conn.RemoteAddr().String()).Info("client connected")

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				s.Log.WithField("remote", c.RemoteAddr().String()).Info("client disconnected")
			}()

			// Keep the connection alive; anything the client sends is
			// consumed and ignored.
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}

// Close stops accepting new subscribers. Existing connections are
// dropped on their next failed write.
func (s *Server) Close() error {
	s.mu.Lock()
	ln := s.ln
	s.ln = nil
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}
