// Package contract holds the seams between the chat core and its collaborators.
package contract

// LineSink is the outbound write path of one live connection.
// Implementations append the protocol line terminator themselves, so callers
// pass the bare line content. Writes must be safe for concurrent use: a room
// broadcast and a direct reply may target the same sink at the same time.
type LineSink interface {
	WriteLine(line string) error
}
