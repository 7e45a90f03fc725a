// Package ipc carries control commands from fala-ctl to the daemon over a
// unix socket, one JSON message per connection.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultSocketPath = "/tmp/fala.sock"

const (
	CmdListen = "listen"
	CmdStop   = "stop"
	CmdSay    = "say"
	CmdBack   = "back"
	CmdGo     = "go"
	CmdSelect = "select"
	CmdPhrase = "phrase"
)

type ControlMessage struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type ControlReply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type Handler func(ControlMessage) ControlReply

type Server struct {
	path    string
	ln      net.Listener
	handler Handler
	log     *zap.Logger
	wg      sync.WaitGroup
}

// Listen removes a stale socket at path and starts accepting connections.
func Listen(path string, handler Handler, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	s := &Server{path: path, ln: ln, handler: handler, log: log}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

func (s *Server) Addr() string { return s.path }

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("ipc accept", zap.Error(err))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		s.log.Debug("ipc decode", zap.Error(err))
		return
	}
	s.log.Debug("ipc command", zap.String("cmd", msg.Cmd), zap.String("text", msg.Text))
	reply := s.handler(msg)
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		s.log.Debug("ipc reply", zap.Error(err))
	}
}

// Close stops accepting, waits for in-flight commands and removes the socket.
func (s *Server) Close() error {
	err := s.ln.Close()
	s.wg.Wait()
	_ = os.Remove(s.path)
	return err
}

// Send delivers msg to the daemon at path and returns its reply.
func Send(path string, msg ControlMessage) (ControlReply, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return ControlReply{}, fmt.Errorf("dial %s: %w", path, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return ControlReply{}, fmt.Errorf("send: %w", err)
	}
	var reply ControlReply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return ControlReply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}
