package chat

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// HelpText is sent on connect and in reply to /help.
const HelpText = `Welcome to linechat!
Commands:
  /help           show this help
  /rooms          list rooms and their member count
  /users          list users in your room
  /join <room>    switch to another room, creating it if needed
  /name <name>    change your display name
  /quit           disconnect
Any other line is sent to everyone in your room.`

// Reply writes one line back to the client that issued a command.
type Reply func(line string) error

type command struct {
	prefix string
	run    func(p *Processor, line string, s *Session, reply Reply) error
}

// commands are tried in order; the first prefix the line starts with wins.
var commands = []command{
	{"/quit", (*Processor).quit},
	{"/help", (*Processor).help},
	{"/rooms", (*Processor).listRooms},
	{"/join", (*Processor).join},
	{"/users", (*Processor).listUsers},
	{"/name", (*Processor).rename},
}

// Processor executes slash-commands against the shared registries.
type Processor struct {
	names    *Names
	rooms    *Rooms
	observer Observer
	logger   zerolog.Logger
}

// NewProcessor creates a command processor bound to the given registries.
func NewProcessor(names *Names, rooms *Rooms, observer Observer) *Processor {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Processor{
		names:    names,
		rooms:    rooms,
		observer: observer,
		logger:   zerolog.Nop(),
	}
}

// IsCommand reports whether line should be handled as a command.
func IsCommand(line string) bool {
	return strings.HasPrefix(line, "/")
}

// Execute runs the command in line for session s. Commands match on a
// case-sensitive prefix, so "/quitx" quits and "/joinlobby x" joins x.
// It returns nil when the command was applied, ErrQuit, ErrWrongCommand,
// ErrNotEnoughArg, or the error returned by reply.
func (p *Processor) Execute(line string, s *Session, reply Reply) error {
	for _, cmd := range commands {
		if strings.HasPrefix(line, cmd.prefix) {
			p.observer.Command(cmd.prefix)
			return cmd.run(p, line, s, reply)
		}
	}
	return ErrWrongCommand
}

// firstArgument returns the token following the command name.
func firstArgument(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", ErrNotEnoughArg
	}
	return fields[1], nil
}

func (p *Processor) quit(string, *Session, Reply) error {
	return ErrQuit
}

func (p *Processor) help(_ string, _ *Session, reply Reply) error {
	return reply(HelpText)
}

func (p *Processor) listRooms(_ string, _ *Session, reply Reply) error {
	list := p.rooms.List()
	parts := make([]string, 0, len(list))
	for _, info := range list {
		parts = append(parts, fmt.Sprintf("%s (%d)", info.Name, info.Members))
	}
	return reply("Rooms - " + strings.Join(parts, ", "))
}

func (p *Processor) listUsers(_ string, s *Session, reply Reply) error {
	users, _ := p.rooms.ListUsers(s.Room())
	return reply("Users - " + strings.Join(users, ", "))
}

func (p *Processor) join(line string, s *Session, reply Reply) error {
	target, err := firstArgument(line)
	if err != nil {
		return err
	}

	current := s.Room()
	if target == current {
		return reply("You already are in " + current)
	}

	p.observer.Published(s.Publish(fmt.Sprintf("%s has left %s", s.Name, current)))
	p.observer.Dropped(s.takeLag())
	s.move(p.rooms.Change(current, target, s.Name))
	p.observer.Published(s.Publish(fmt.Sprintf("%s joined %s", s.Name, target)))
	return nil
}

func (p *Processor) rename(line string, s *Session, reply Reply) error {
	newName, err := firstArgument(line)
	if err != nil {
		return err
	}

	if !p.names.Insert(newName) {
		return reply(newName + " is already taken")
	}

	oldName := s.Name
	if !p.rooms.Rename(s.Room(), oldName, newName) {
		p.logger.Debug().Str("room", s.Room()).Str("name", oldName).Msg("Renamed session has no room membership")
	}
	p.names.Remove(oldName)
	s.Name = newName
	p.observer.Published(s.Publish(fmt.Sprintf("%s is now %s", oldName, newName)))
	return nil
}
