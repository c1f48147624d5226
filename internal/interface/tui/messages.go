package tui

import (
	"context"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/chatify/internal/core/conversation"
	"github.com/neilberkman/chatify/internal/core/gateway"
	"github.com/neilberkman/chatify/internal/core/workspace"
)

type errMsg struct {
	err error
}

type authDoneMsg struct {
	message string
	err     error
}

type historyLoadedMsg struct {
	err error
}

type conversationLoadedMsg struct {
	id  string
	err error
}

type answerMsg struct {
	turn   *conversation.Turn
	answer string
	err    error
}

type uploadDoneMsg struct {
	result *gateway.UploadResult
	err    error
}

type deletedMsg struct {
	id    string
	title string
	err   error
}

type copiedMsg struct {
	err error
}

type authRejectedMsg struct {
	op string
}

func submitLogin(ws *workspace.Workspace, username, password string, signup bool) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if signup {
			msg, err := ws.Signup(ctx, username, password)
			if msg == "" {
				msg = "Account created"
			}
			return authDoneMsg{message: msg, err: err}
		}
		if err := ws.Login(ctx, username, password); err != nil {
			return authDoneMsg{err: err}
		}
		return authDoneMsg{message: "Signed in as " + username}
	}
}

func refreshHistory(ws *workspace.Workspace) tea.Cmd {
	return func() tea.Msg {
		return historyLoadedMsg{err: ws.History.Refresh(context.Background())}
	}
}

func selectConversation(ws *workspace.Workspace, id string) tea.Cmd {
	return func() tea.Msg {
		return conversationLoadedMsg{id: id, err: ws.Conversation.Select(context.Background(), id)}
	}
}

// sendTurn runs the network half of a turn. Update resolves it, so the
// answer lands only if the conversation is still the one on screen.
func sendTurn(ws *workspace.Workspace, turn *conversation.Turn) tea.Cmd {
	return func() tea.Msg {
		answer, err := ws.Backend().SendMessage(context.Background(), turn.ConversationID, turn.Text)
		return answerMsg{turn: turn, answer: answer, err: err}
	}
}

func uploadFile(ws *workspace.Workspace, path string) tea.Cmd {
	return func() tea.Msg {
		res, err := ws.Upload(context.Background(), path)
		return uploadDoneMsg{result: res, err: err}
	}
}

func deleteConversation(ws *workspace.Workspace, id, title string) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{id: id, title: title, err: ws.Delete(context.Background(), id)}
	}
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: clipboard.WriteAll(text)}
	}
}

// waitForRejection blocks until the session is rejected. Update re-arms it
// after each signal.
func waitForRejection(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		return authRejectedMsg{op: <-ch}
	}
}
