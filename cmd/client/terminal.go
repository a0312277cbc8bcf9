package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cbodonnell/platespotter/pkg/catalog"
	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/messages"
	"github.com/cbodonnell/platespotter/pkg/session"
)

const helpText = `Commands:
  <code>               spot or unspot a plate for the active player, e.g. "ca"
  add                  add a player
  remove <player>      remove a player
  rename <player> <n>  rename a player
  select <player>      make a player the active one
  reset                start a new game with the same players
  players              show the players
  regions              list every region
  help                 show this help
  quit                 leave
`

// terminal is a line based game against a session manager.
type terminal struct {
	m            *session.Manager
	catalog      *catalog.Catalog
	in           io.Reader
	out          io.Writer
	seenWarnings int
}

func newTerminal(m *session.Manager, c *catalog.Catalog, in io.Reader, out io.Writer) *terminal {
	return &terminal{
		m:       m,
		catalog: c,
		in:      in,
		out:     out,
	}
}

// Run reads commands until quit, end of input or ctx is done.
func (t *terminal) Run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(t.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprint(t.out, helpText)
	t.printSession()
	for {
		fmt.Fprint(t.out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := t.execute(line); quit {
				return nil
			}
			t.printWarnings()
		}
	}
}

// execute runs one command and reports whether the game should end.
func (t *terminal) execute(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	var err error
	switch cmd := strings.ToLower(fields[0]); cmd {
	case "quit", "exit":
		return true
	case "help", "?":
		fmt.Fprint(t.out, helpText)
		return false
	case "players", "list":
		t.printSession()
		return false
	case "regions":
		printRegions(t.out, t.catalog.Regions())
		return false
	case "add":
		_, err = t.m.AddPlayer()
	case "reset":
		_, err = t.m.ResetSession()
	case "remove", "select", "rename":
		if len(fields) < 2 || (cmd == "rename" && len(fields) < 3) {
			fmt.Fprintf(t.out, "usage: see help\n")
			return false
		}
		id, convErr := strconv.Atoi(fields[1])
		if convErr != nil {
			fmt.Fprintf(t.out, "%q is not a player number\n", fields[1])
			return false
		}
		playerID := types.PlayerID(id)
		switch cmd {
		case "remove":
			_, err = t.m.RemovePlayer(playerID)
		case "select":
			_, err = t.m.SelectPlayer(playerID)
		case "rename":
			_, err = t.m.RenamePlayer(playerID, strings.Join(fields[2:], " "))
		}
	default:
		region, ok := t.catalog.LookupAbbreviation(fields[0])
		if !ok {
			fmt.Fprintf(t.out, "unknown command or plate %q, type help\n", fields[0])
			return false
		}
		_, err = t.m.ToggleActiveClaim(region.ID)
	}

	if err != nil {
		fmt.Fprintf(t.out, "%v\n", err)
		return false
	}
	t.printSession()
	return false
}

func (t *terminal) printSession() {
	s, err := t.m.Snapshot()
	if err != nil {
		fmt.Fprintf(t.out, "%v\n", err)
		return
	}
	printSnapshot(t.out, messages.NewSessionSnapshot(s, t.catalog, t.m.Status().String(), nil))
}

func (t *terminal) printWarnings() {
	warnings := t.m.Warnings()
	if len(warnings) < t.seenWarnings {
		t.seenWarnings = 0
	}
	for _, w := range warnings[t.seenWarnings:] {
		fmt.Fprintf(t.out, "warning: %s\n", w.Message)
	}
	t.seenWarnings = len(warnings)
}

func printSnapshot(w io.Writer, s *messages.SessionSnapshot) {
	for _, p := range s.Players {
		marker := " "
		if p.ID == s.ActivePlayerID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %d. %-20s %3d plates %4d pts  %s\n", marker, p.ID, p.Name, p.ClaimCount, p.Score, strings.Join(p.Claims, " "))
	}
	fmt.Fprintf(w, "Spotted %d of %d regions (%.1f%%)\n", len(s.GlobalClaimed), len(s.Regions), s.Progress)
}

func printRegions(w io.Writer, regions []catalog.Region) {
	for _, r := range regions {
		fmt.Fprintf(w, "%-4s %-28s %s %d pts\n", r.ID, r.Name, r.Country, r.Points)
	}
}

// printMessage prints a message pushed by the server.
func printMessage(w io.Writer, msg *messages.Message) error {
	switch msg.Type {
	case messages.MessageTypeSessionSnapshot:
		snapshot := &messages.SessionSnapshot{}
		if err := messages.DecodePayload(msg, snapshot); err != nil {
			return err
		}
		fmt.Fprintf(w, "session %s (%s)\n", snapshot.SessionID, snapshot.Status)
		printSnapshot(w, snapshot)
	case messages.MessageTypeWarning:
		warning := &messages.Warning{}
		if err := messages.DecodePayload(msg, warning); err != nil {
			return err
		}
		fmt.Fprintf(w, "warning: %s\n", warning.Message)
	default:
		return fmt.Errorf("unexpected message type %s", msg.Type)
	}
	return nil
}
