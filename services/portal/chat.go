package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fydp-portal/internal/chat"
	"github.com/fydp-portal/internal/model"
	"github.com/fydp-portal/internal/portal"
)

const chatHelp = `commands:
  /sessions            list chat sessions
  /new                 start a new chat
  /switch N            open session N from /sessions
  /rename N TITLE      rename session N (local only)
  /history             print the current transcript
  /quit                exit
anything else is sent to the assistant
`

func runChat(ctx context.Context, backend chat.Backend, in io.Reader, out io.Writer) error {
	m := chat.NewManager(backend)
	if err := m.ListSessions(ctx); err != nil {
		fmt.Fprintln(out, portal.Message(err, "Failed to load chat sessions."))
	}
	printSessions(out, m)
	printTranscript(out, m.Messages())
	fmt.Fprint(out, chatHelp)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			sendLine(ctx, out, m, line)
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		switch cmd {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprint(out, chatHelp)
		case "/sessions":
			printSessions(out, m)
		case "/history":
			printTranscript(out, m.Messages())
		case "/new":
			if _, err := m.NewSession(ctx); err != nil {
				fmt.Fprintln(out, portal.Message(err, "Failed to create a new chat."))
				continue
			}
			printSessions(out, m)
		case "/switch":
			s, ok := sessionByNumber(m, rest)
			if !ok {
				fmt.Fprintln(out, "unknown session number")
				continue
			}
			if err := m.SelectSession(ctx, s.ID); err != nil {
				fmt.Fprintln(out, portal.Message(err, "Failed to load chat history."))
				continue
			}
			printTranscript(out, m.Messages())
		case "/rename":
			num, title, _ := strings.Cut(rest, " ")
			s, ok := sessionByNumber(m, num)
			if !ok {
				fmt.Fprintln(out, "unknown session number")
				continue
			}
			if err := m.RenameSession(s.ID, title); err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			printSessions(out, m)
		default:
			fmt.Fprintln(out, "unknown command, /help for the list")
		}
	}
}

func sendLine(ctx context.Context, out io.Writer, m *chat.Manager, text string) {
	sessionID := m.ActiveSessionID()
	if sessionID == "" {
		fmt.Fprintln(out, "no active session, use /new")
		return
	}
	reply, err := m.SendMessage(ctx, sessionID, text)
	if err != nil {
		var sendErr *chat.SendError
		if errors.As(err, &sendErr) {
			fmt.Fprintf(out, "assistant: %s\n", chat.SendErrorText)
			return
		}
		fmt.Fprintln(out, portal.Message(err, chat.SendErrorText))
		return
	}
	fmt.Fprintf(out, "assistant: %s\n", reply.Content)
}

func sessionByNumber(m *chat.Manager, s string) (model.ChatSession, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	sessions := m.Sessions()
	if err != nil || n < 1 || n > len(sessions) {
		return model.ChatSession{}, false
	}
	return sessions[n-1], true
}

func printSessions(out io.Writer, m *chat.Manager) {
	active := m.ActiveSessionID()
	for i, s := range m.Sessions() {
		mark := " "
		if s.ID == active {
			mark = "*"
		}
		line := fmt.Sprintf("%s %2d. %s", mark, i+1, s.Title)
		if s.LastMessage != "" {
			line += "  (" + truncate(s.LastMessage, 40) + ")"
		}
		fmt.Fprintln(out, line)
	}
}

func printTranscript(out io.Writer, msgs []model.ChatMessage) {
	for _, msg := range msgs {
		fmt.Fprintf(out, "%s: %s\n", msg.Role, msg.Content)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
