// Package chat defines the closed set of commands a session can issue and the
// parser that produces them from one decoded input line.
package chat

import "strings"

// Command is one parsed client instruction. The set is closed so the
// processor can match it exhaustively.
type Command interface {
	isCommand()
}

// Join moves the issuing user into the named room, creating it on demand.
type Join struct {
	Room string
}

// ListRooms lists every registered room.
type ListRooms struct{}

// Leave removes the issuing user from its current room.
type Leave struct{}

// ListUsers lists the occupants of the issuing user's current room.
type ListUsers struct{}

// Search queries the transcript of the issuing user's current room.
type Search struct {
	Term string
}

// Message is plain chat text addressed to the current room.
type Message struct {
	Text string
}

// Invalid is a recognized command with missing arguments; Usage is the
// reply line to send back.
type Invalid struct {
	Usage string
}

func (Join) isCommand()      {}
func (ListRooms) isCommand() {}
func (Leave) isCommand()     {}
func (ListUsers) isCommand() {}
func (Search) isCommand()    {}
func (Message) isCommand()   {}
func (Invalid) isCommand()   {}

// Parse turns one line of input into a Command. The line is trimmed first;
// dispatch is on case-sensitive literal prefixes, first match wins. Anything
// that matches no command, including the empty string, is a Message.
func Parse(line string) Command {
	trimmed := strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(trimmed, "/join"):
		fields := strings.Fields(trimmed)
		if len(fields) < 2 {
			return Invalid{Usage: "Usage: /join <room_name>"}
		}
		// Extra words after the room name are ignored.
		return Join{Room: fields[1]}
	case trimmed == "/list":
		return ListRooms{}
	case strings.HasPrefix(trimmed, "/leave"):
		return Leave{}
	case strings.HasPrefix(trimmed, "/users"):
		return ListUsers{}
	case strings.HasPrefix(trimmed, "/search"):
		term := strings.TrimSpace(strings.TrimPrefix(trimmed, "/search"))
		if term == "" {
			return Invalid{Usage: "Usage: /search <term>"}
		}
		return Search{Term: term}
	default:
		return Message{Text: trimmed}
	}
}
