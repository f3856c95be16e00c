// Package ipc carries control commands from emovox-ctl to the daemon over a
// unix socket. Each connection carries one JSON request and one JSON reply.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"
)

const DefaultSocketPath = "/tmp/emovox.sock"

type Command string

const (
	CmdToggle Command = "toggle"
	CmdStart  Command = "start"
	CmdStop   Command = "stop"
	CmdSay    Command = "say"
)

type ControlMessage struct {
	Cmd  Command `json:"cmd"`
	Text string  `json:"text,omitempty"`
}

type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Handler processes one command. Its error is reported back to the sender.
type Handler func(ControlMessage) error

type Server struct {
	path string
	ln   net.Listener
	log  *log.Logger
}

// StartServer listens on path, replacing a stale socket file, and serves
// commands in the background until Close.
func StartServer(path string, handler Handler, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}

	s := &Server{path: path, ln: ln, log: logger.With("component", "ipc")}
	go s.serve(handler)

	return s, nil
}

func (s *Server) serve(handler Handler) {
	for {
		conn, err := s.ln.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			s.log.Warn("Accept failed", "err", err)
			continue
		}
		go s.handleConn(conn, handler)
	}
}

func (s *Server) handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		s.log.Warn("Bad control message", "err", err)
		json.NewEncoder(conn).Encode(Reply{Error: "bad request: " + err.Error()})
		return
	}

	s.log.Debug("Command", "cmd", msg.Cmd)

	reply := Reply{OK: true}
	if err := handler(msg); err != nil {
		reply = Reply{Error: err.Error()}
	}
	json.NewEncoder(conn).Encode(reply)
}

func (s *Server) Close() error {
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

// SendCommand delivers msg to the daemon and returns the error it reported.
func SendCommand(path string, msg ControlMessage) error {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return err
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if !reply.OK {
		return errors.New(reply.Error)
	}
	return nil
}
