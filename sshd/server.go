// Package sshd is the connection acceptor: it terminates SSH, runs the
// pluggable credential check, and hands each session channel to the chat
// core. All room and user state lives behind the injected registries; the
// acceptor only binds identities to sinks.
package sshd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"

	"chat-shell/auth"
	"chat-shell/repositories"
	"chat-shell/services"
)

type Server struct {
	config *ssh.ServerConfig
	users  repositories.IUserRegistry
	chat   services.IChatService
	log    *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool

	wg sync.WaitGroup
}

// NewServer wires the credential policy into the SSH handshake. The policy
// only answers accept/reject; identity binding happens per session channel.
func NewServer(policy auth.Policy, hostKey ssh.Signer, users repositories.IUserRegistry, chat services.IChatService, log *slog.Logger) *Server {
	config := &ssh.ServerConfig{
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if err := policy.AuthorizePublicKey(conn.User(), key); err != nil {
				return nil, err
			}
			return &ssh.Permissions{
				Extensions: map[string]string{"pubkey-fp": ssh.FingerprintSHA256(key)},
			}, nil
		},
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if err := policy.AuthorizePassword(conn.User(), string(password)); err != nil {
				return nil, err
			}
			return &ssh.Permissions{}, nil
		},
	}
	config.AddHostKey(hostKey)

	return &Server{
		config: config,
		users:  users,
		chat:   chat,
		log:    log,
		conns:  make(map[net.Conn]struct{}),
	}
}

// Listen binds the TCP listener. Kept separate from Serve so callers can
// learn the bound address before accepting (port 0 in tests).
func (s *Server) Listen(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until the listener is closed. Accept-time faults
// are logged and never take down active sessions or shared state.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			s.log.Error("Accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Close stops accepting and drops every active connection; Serve returns
// once their sessions have wound down.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	return err
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	s.track(conn)
	defer s.untrack(conn)

	serverConn, channels, requests, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		s.log.Debug("Handshake failed", "remote", conn.RemoteAddr(), "error", err)
		_ = conn.Close()
		return
	}
	defer func() { _ = serverConn.Close() }()

	s.log.Info("SSH connection received", "remote", serverConn.RemoteAddr(), "user", serverConn.User())
	go ssh.DiscardRequests(requests)

	for newChannel := range channels {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}

		channel, channelRequests, err := newChannel.Accept()
		if err != nil {
			s.log.Debug("Channel accept failed", "error", err)
			continue
		}
		go acceptSessionRequests(channelRequests)

		session := newSession(channel, serverConn.User(), s.chat, s.log)
		user := s.users.Rebind(serverConn.User(), session)
		session.bind(user)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			session.run(ctx)
			// Channel closed: the user becomes unreachable but keeps
			// room membership; disconnection is not a leave.
			s.users.Release(user.Username, session)
			_ = channel.Close()
		}()
	}
}

// acceptSessionRequests acknowledges the requests an interactive client sends
// (shell, pty-req, env) so it proceeds to the data phase; everything else is
// refused.
func acceptSessionRequests(in <-chan *ssh.Request) {
	for req := range in {
		switch req.Type {
		case "shell", "pty-req", "env":
			if req.WantReply {
				_ = req.Reply(true, nil)
			}
		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}
