package e2e

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/ssh"

	"chat-shell/auth"
	"chat-shell/moderation"
	"chat-shell/repositories"
	"chat-shell/search"
	"chat-shell/services"
	"chat-shell/sshd"
)

// BaseSSHSuite boots the whole server stack in-process and talks to it with
// real SSH clients, so the full path from handshake to room broadcast is
// exercised.
type BaseSSHSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSSHSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

// Step prints a colorized header for one scenario step in logs.
func (s *BaseSSHSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)
}

// StartServer brings up an acceptor on an ephemeral port and returns its
// address. The server is torn down when the test finishes.
func (s *BaseSSHSuite) StartServer(policy auth.Policy, moderator *moderation.Moderator) string {
	t := s.T()
	log := logs.GetLoggerFromLevel(slog.LevelError)

	index, err := search.NewTranscriptIndex()
	s.Require().NoError(err)
	t.Cleanup(func() { _ = index.Close() })

	users := repositories.NewUserRegistry()
	rooms := repositories.NewRoomRegistry()
	chatService := services.NewChatService(rooms, moderator, index, log)

	hostKey, err := sshd.LoadOrGenerateHostKey("")
	s.Require().NoError(err)

	server := sshd.NewServer(policy, hostKey, users, chatService, log)
	s.Require().NoError(server.Listen("127.0.0.1:0"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Serve(ctx)
	}()

	t.Cleanup(func() {
		_ = server.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
		}
	})

	return server.Addr().String()
}

// chatClient is one SSH connection speaking the line protocol.
type chatClient struct {
	t       *testing.T
	conn    *ssh.Client
	session *ssh.Session
	in      io.WriteCloser
	lines   chan string
	timeout time.Duration
}

// DialChat connects and authenticates with the given methods, returning the
// raw error so handshake-rejection tests can assert on it.
func (s *BaseSSHSuite) DialChat(addr, username string, methods ...ssh.AuthMethod) (*chatClient, error) {
	if len(methods) == 0 {
		methods = []ssh.AuthMethod{ssh.Password("anything")}
	}

	conn, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            username,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	session, err := conn.NewSession()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	in, err := session.StdinPipe()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	out, err := session.StdoutPipe()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := session.Shell(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	client := &chatClient{
		t:       s.T(),
		conn:    conn,
		session: session,
		in:      in,
		lines:   make(chan string, 64),
		timeout: s.Config.ReadTimeout,
	}

	go func() {
		scanner := bufio.NewScanner(out)
		scanner.Split(scanServerLines)
		for scanner.Scan() {
			client.lines <- scanner.Text()
		}
		close(client.lines)
	}()

	return client, nil
}

// MustDial is DialChat for the happy path.
func (s *BaseSSHSuite) MustDial(addr, username string) *chatClient {
	client, err := s.DialChat(addr, username)
	s.Require().NoError(err)
	s.T().Cleanup(client.Close)
	return client
}

func (c *chatClient) Send(line string) {
	c.t.Helper()
	_, err := fmt.Fprintf(c.in, "%s\n", line)
	if err != nil {
		c.t.Fatalf("send %q failed: %v", line, err)
	}
}

// ExpectLine blocks for the next server line and compares it.
func (c *chatClient) ExpectLine(expected string) {
	c.t.Helper()
	select {
	case line, ok := <-c.lines:
		if !ok {
			c.t.Fatalf("connection closed while waiting for %q", expected)
		}
		if line != expected {
			c.t.Fatalf("expected line %q, got %q", expected, line)
		}
	case <-time.After(c.timeout):
		c.t.Fatalf("timed out waiting for %q", expected)
	}
}

func (c *chatClient) Close() {
	_ = c.session.Close()
	_ = c.conn.Close()
}

// scanServerLines splits the \r\n terminated protocol stream.
func scanServerLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, bytes.TrimRight(data[:i], "\r"), nil
	}
	if atEOF {
		return len(data), bytes.TrimRight(data, "\r"), nil
	}
	return 0, nil, nil
}
