// Terminal client for a planning poker room: joins (or creates) a room and
// prints what happens. Votes are typed on stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/dkeye/Poker/internal/client"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/protocol"
)

func main() {
	addr := pflag.String("addr", "ws://localhost:8080/api/ws/signal", "signal endpoint")
	room := pflag.String("room", "", "room id to join (empty: create a new room)")
	name := pflag.String("name", "", "display name")
	preset := pflag.String("scale", "fibonacci", "voting scale preset for a new room")
	pflag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if *name == "" {
		fmt.Fprintln(os.Stderr, "--name is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var c *client.Client
	var firstConnect sync.Once

	c = client.New(client.Options{URL: *addr}, client.Handlers{
		OnStatus: func(s client.Status) {
			fmt.Printf("* connection: %s\n", s)
			if s != client.StatusConnected {
				return
			}
			// The first action is decided here; the client handles
			// rejoins on its own afterwards.
			firstConnect.Do(func() {
				if *room != "" {
					_ = c.JoinRoom(*room, *name)
				} else {
					cfg := domain.ScaleConfig{Kind: domain.ScalePreset, Name: *preset}
					_ = c.CreateRoom(*name, &cfg)
				}
			})
		},
		OnRoomState: func(snap core.RoomSnapshot) {
			printRoom(snap)
		},
		OnRoomCreated: func(snap core.RoomSnapshot) {
			fmt.Printf("* room created: %s (share ?room=%s)\n", snap.ID, snap.ID)
			printRoom(snap)
		},
		OnParticipantJoined: func(evt protocol.ParticipantJoinedEvent) {
			fmt.Printf("* %s joined\n", evt.Participant.Name)
		},
		OnParticipantLeft: func(evt protocol.ParticipantLeftEvent) {
			fmt.Printf("* %s left\n", evt.Name)
		},
		OnParticipantVoted: func(evt protocol.ParticipantVotedEvent) {
			fmt.Printf("* %s voted\n", evt.ParticipantID)
		},
		OnVotePreview: func(evt protocol.ParticipantVotedValueEvent) {
			fmt.Printf("* (creator) %s voted %s\n", evt.ParticipantID, evt.Value)
		},
		OnVotesRevealed: func(evt protocol.VotesRevealedEvent) {
			fmt.Println("* votes revealed:")
			for _, p := range evt.Participants {
				v := "-"
				if p.CurrentVote != nil {
					v = *p.CurrentVote
				}
				fmt.Printf("    %-20s %s\n", p.Name, v)
			}
			s := evt.Statistics
			fmt.Printf("    avg=%.2f mode=%v total=%d\n", s.Average, s.Mode, s.TotalVotes)
		},
		OnVotingReset: func(protocol.VotingResetEvent) {
			fmt.Println("* voting reset")
		},
		OnScaleUpdated: func(evt protocol.ScaleUpdatedEvent) {
			fmt.Printf("* scale updated: %v\n", evt.VotingCards)
		},
		OnParticipantUpdated: func(evt protocol.ParticipantUpdatedEvent) {
			fmt.Printf("* %s spectator=%v\n", evt.Participant.Name, evt.Participant.IsSpectator)
		},
		OnError: func(code, message string) {
			fmt.Printf("! %s: %s\n", code, message)
		},
		OnRejoinFailed: func(roomID, reason string) {
			fmt.Printf("! could not rejoin %s: %s\n", roomID, reason)
		},
	})

	go func() {
		c.Connect(ctx)
		cancel()
	}()

	go readCommands(ctx, c)

	<-ctx.Done()
	c.Close()
}

func readCommands(ctx context.Context, c *client.Client) {
	fmt.Println("commands: <token> to vote, /reveal /reset /spectator /leave")
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case line == "/reveal":
			_ = c.Reveal()
		case line == "/reset":
			_ = c.Reset()
		case line == "/spectator":
			_ = c.ToggleSpectator()
		case line == "/leave":
			_ = c.Leave()
		default:
			_ = c.Vote(line)
		}
	}
}

func printRoom(snap core.RoomSnapshot) {
	fmt.Printf("* room %s, cards %v\n", snap.ID, snap.VotingCards)
	for _, p := range snap.Participants {
		marks := ""
		if p.ID == snap.CreatorID {
			marks += " (creator)"
		}
		if p.IsSpectator {
			marks += " (spectator)"
		}
		if p.HasVoted {
			marks += " ✓"
		}
		fmt.Printf("    %s%s\n", p.Name, marks)
	}
}
