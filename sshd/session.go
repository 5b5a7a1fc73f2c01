package sshd

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"chat-shell/domain"
	"chat-shell/services"
)

const welcomeLine = "Welcome to the chat server!"

// maxLineBytes bounds one decoded input line. Input that fills the buffer
// without a terminator is refused line by line instead of ending the session.
const maxLineBytes = 64 * 1024

// Session binds one live channel to at most one authenticated User. It owns
// the single outbound write path for the channel and forwards inbound lines
// to the command processor.
type Session struct {
	rw       io.ReadWriter
	username string
	chat     services.IChatService
	log      *slog.Logger

	mu   sync.Mutex
	user *domain.User
}

func newSession(rw io.ReadWriter, username string, chat services.IChatService, log *slog.Logger) *Session {
	return &Session{
		rw:       rw,
		username: username,
		chat:     chat,
		log:      log,
	}
}

// WriteLine implements contract.LineSink. The mutex serializes a room
// broadcast racing a direct reply on the same channel.
func (s *Session) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.rw, line+"\r\n")
	return err
}

// bind attaches the resolved User once the credential check accepted the
// connection.
func (s *Session) bind(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

func (s *Session) boundUser() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// run sends the welcome line, then decodes input lines and dispatches them
// until the channel closes. The welcome is tied to channel open, not to
// authentication state.
func (s *Session) run(ctx context.Context) {
	_ = s.WriteLine(welcomeLine)

	scanner := bufio.NewScanner(s.rw)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	scanner.Split(scanTerminalLines)

	overflowing := false
	for scanner.Scan() {
		// A token at the cap is a flushed fragment of an over-long line.
		// Refuse it once, then swallow the rest of the line up to and
		// including its terminated tail.
		if len(scanner.Bytes()) >= maxLineBytes {
			if !overflowing {
				_ = s.WriteLine("Line too long.")
			}
			overflowing = true
			continue
		}
		if overflowing {
			overflowing = false
			continue
		}

		line := strings.TrimSpace(scanner.Text())

		user := s.boundUser()
		if user == nil {
			_ = s.WriteLine("Please authenticate first. ")
			continue
		}

		s.chat.Dispatch(ctx, user, line)
	}

	if err := scanner.Err(); err != nil {
		s.log.Debug("Session read ended", "user", s.username, "error", err)
	}
}

// scanTerminalLines splits on \n, \r or \r\n, so both piped input and raw
// terminal carriage returns produce lines. A full buffer with no terminator
// is flushed as a cap-sized token rather than erroring the scanner; the read
// loop recognizes those by length.
func scanTerminalLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	if len(data) >= maxLineBytes {
		return len(data), data, nil
	}
	return 0, nil, nil
}
