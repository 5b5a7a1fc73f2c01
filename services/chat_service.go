package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"chat-shell/domain"
	"chat-shell/domain/chat"
	"chat-shell/moderation"
	"chat-shell/repositories"
	"chat-shell/search"
)

const mustJoinFirst = "You must join a room first."

// searchLimit caps how many transcript lines a /search reply returns.
const searchLimit = 10

type IChatService interface {
	Dispatch(ctx context.Context, user *domain.User, line string)
}

// ChatService is the command processor: it parses one decoded input line and
// runs the corresponding mutation against the room registry, writing every
// reply to the issuing user's sink. No operation here is fatal; malformed
// input produces a usage line and leaves all state unchanged.
type ChatService struct {
	rooms     repositories.IRoomRegistry
	moderator *moderation.Moderator
	index     *search.TranscriptIndex
	log       *slog.Logger
}

func NewChatService(rooms repositories.IRoomRegistry, moderator *moderation.Moderator, index *search.TranscriptIndex, log *slog.Logger) *ChatService {
	return &ChatService{
		rooms:     rooms,
		moderator: moderator,
		index:     index,
		log:       log,
	}
}

func (s *ChatService) Dispatch(ctx context.Context, user *domain.User, line string) {
	switch cmd := chat.Parse(line).(type) {
	case chat.Join:
		s.join(user, cmd.Room)
	case chat.ListRooms:
		s.listRooms(user)
	case chat.Leave:
		s.leave(user)
	case chat.ListUsers:
		s.listUsers(user)
	case chat.Search:
		s.search(ctx, user, cmd.Term)
	case chat.Message:
		s.message(user, cmd.Text)
	case chat.Invalid:
		s.reply(user, cmd.Usage)
	}
}

// join resolves-or-creates the target room and moves the user into it. The
// registry performs the whole transition atomically; a user already in a room
// gets the full leave notices for it first, so membership never counts the
// same user twice.
func (s *ChatService) join(user *domain.User, name string) {
	room := s.rooms.GetOrCreate(name)

	if prev, ok := s.rooms.Move(user, room); ok {
		s.announceLeave(prev, user)
	}

	notice := user.Username + " joined the room."
	room.Broadcast(notice, user)
	s.record(room, notice, user)

	s.reply(user, "Joined room "+name)
}

// leave is a silent no-op when the user has no current room.
func (s *ChatService) leave(user *domain.User) {
	room, ok := s.rooms.Depart(user)
	if !ok {
		return
	}
	s.announceLeave(room, user)
}

// announceLeave runs the departure notices for a room the user has already
// been removed from.
func (s *ChatService) announceLeave(room *domain.Room, user *domain.User) {
	notice := user.Username + " left the room."
	room.Broadcast(notice, user)
	s.record(room, notice, user)
	s.reply(user, "Left the room.")
}

func (s *ChatService) listRooms(user *domain.User) {
	rooms := s.rooms.List()
	if len(rooms) == 0 {
		s.reply(user, "There are no rooms available. ")
		return
	}
	names := lo.Map(rooms, func(r *domain.Room, _ int) string { return r.Name })
	s.reply(user, "Available rooms: "+strings.Join(names, ", "))
}

func (s *ChatService) listUsers(user *domain.User) {
	room, ok := s.rooms.CurrentRoom(user.Username)
	if !ok {
		s.reply(user, mustJoinFirst)
		return
	}
	names := lo.Map(room.Members(), func(u *domain.User, _ int) string { return u.Username })
	s.reply(user, "Users in "+room.Name+": "+strings.Join(names, ", "))
}

// message broadcasts chat text to the other occupants and records it in the
// transcript, both unconditionally once a room is present.
func (s *ChatService) message(user *domain.User, text string) {
	room, ok := s.rooms.CurrentRoom(user.Username)
	if !ok {
		s.reply(user, mustJoinFirst)
		return
	}

	text = s.moderator.Censor(text)
	room.Broadcast(text, user)
	s.record(room, text, user)
}

func (s *ChatService) search(ctx context.Context, user *domain.User, term string) {
	room, ok := s.rooms.CurrentRoom(user.Username)
	if !ok {
		s.reply(user, mustJoinFirst)
		return
	}
	if s.index == nil {
		s.reply(user, "Search is not available.")
		return
	}

	results, err := s.index.Search(ctx, room.Name, term, searchLimit)
	if err != nil {
		s.log.Error("Transcript search failed", "room", room.Name, "error", err)
		s.reply(user, "Search is not available.")
		return
	}
	if len(results) == 0 {
		s.reply(user, "No results for "+term+".")
		return
	}

	s.reply(user, "Results in "+room.Name+":")
	for _, res := range results {
		s.reply(user, "- "+res.Sender+": "+res.Text)
	}
}

// record appends to the room transcript and feeds the search index. Indexing
// is best-effort: a failed index write never blocks the chat path.
func (s *ChatService) record(room *domain.Room, text string, sender *domain.User) {
	entry := room.Record(text, sender)
	if s.index == nil {
		return
	}
	if err := s.index.Add(room.Name, entry); err != nil {
		s.log.Debug("Transcript indexing failed", "room", room.Name, "error", err)
	}
}

// reply writes one line to the issuing user's current sink. Users with no
// live connection are silently skipped, like any unreachable recipient.
func (s *ChatService) reply(user *domain.User, line string) {
	sink := user.Sink()
	if sink == nil {
		return
	}
	if err := sink.WriteLine(line); err != nil {
		s.log.Debug("Reply write failed", "user", user.Username, "error", err)
	}
}
