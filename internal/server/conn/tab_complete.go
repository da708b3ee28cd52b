package conn

import (
	"bytes"
	"strings"

	"github.com/go-theft-craft/hologram/internal/server/packet"
	"github.com/go-theft-craft/hologram/internal/server/player"
	"github.com/go-theft-craft/hologram/pkg/protocol"
)

// handleTabComplete processes a TabComplete (0x14) packet and sends completions back.
func (c *Connection) handleTabComplete(data []byte) error {
	var p packet.TabComplete
	if err := protocol.Unmarshal(data, &p); err != nil {
		return err
	}
	matches := computeCompletions(p.Text, c.players, c.self.PermissionLevel())
	return c.sendTabCompleteResponse(matches)
}

// computeCompletions returns tab-completion matches for the given input text.
func computeCompletions(text string, players *player.Manager, level int) []string {
	if strings.HasPrefix(text, "/") {
		return completeCommand(text, players, level)
	}
	parts := strings.Fields(text)
	var partial string
	if len(parts) > 0 && !strings.HasSuffix(text, " ") {
		partial = parts[len(parts)-1]
	}
	return matchPlayerNames(partial, players)
}

func completeCommand(text string, players *player.Manager, level int) []string {
	parts := strings.Fields(text)
	trailingSpace := strings.HasSuffix(text, " ")

	if len(parts) == 1 && !trailingSpace {
		partial := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
		var matches []string
		for _, cmd := range commands {
			if level >= cmd.level && strings.HasPrefix(cmd.name, partial) {
				matches = append(matches, "/"+cmd.name)
			}
		}
		return matches
	}

	if len(parts) == 0 {
		return nil
	}
	cmdName := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	var argPartial string
	if !trailingSpace && len(parts) > 1 {
		argPartial = parts[len(parts)-1]
	}
	argIndex := len(parts) - 1
	if trailingSpace {
		argIndex = len(parts)
	}

	switch cmdName {
	case "tp":
		if argIndex == 1 {
			return matchPlayerNames(argPartial, players)
		}
	case "holo":
		if argIndex == 1 {
			return filterStrings(argPartial, holoSubNames(level))
		}
	}
	return nil
}

// holoSubNames lists the /holo subcommands available at level.
func holoSubNames(level int) []string {
	names := make([]string, 0, len(holoSubs)+1)
	for _, sub := range holoSubs {
		if level >= sub.level {
			names = append(names, sub.name)
		}
	}
	return append(names, "list")
}

func matchPlayerNames(partial string, players *player.Manager) []string {
	partial = strings.ToLower(partial)
	var matches []string
	players.ForEach(func(p *player.Player) {
		if partial == "" || strings.HasPrefix(strings.ToLower(p.Username), partial) {
			matches = append(matches, p.Username)
		}
	})
	return matches
}

func filterStrings(partial string, options []string) []string {
	partial = strings.ToLower(partial)
	var matches []string
	for _, opt := range options {
		if strings.HasPrefix(opt, partial) {
			matches = append(matches, opt)
		}
	}
	return matches
}

func (c *Connection) sendTabCompleteResponse(matches []string) error {
	var buf bytes.Buffer
	_, _ = protocol.WriteVarInt(&buf, int32(len(matches)))
	for _, m := range matches {
		_, _ = protocol.WriteString(&buf, m)
	}
	return c.writePacket(&packet.TabCompleteResponse{Data: buf.Bytes()})
}
