package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/chatify/internal/core/gateway"
	"github.com/neilberkman/chatify/internal/core/models"
	"github.com/neilberkman/chatify/internal/core/workspace"
)

type viewMode int

const (
	loginView viewMode = iota
	listView
	chatView
	uploadView
	deleteView
	helpView
)

const sessionExpiredNotice = "Your session has expired. Please sign in again."

type Model struct {
	ws       *workspace.Workspace
	mode     viewMode
	helpFrom viewMode
	list     list.Model
	viewport viewport.Model
	width    int
	height   int
	err      error

	login     loginForm
	composer  textinput.Model
	pathInput textinput.Model

	// opening is the conversation being fetched for the chat pane
	opening       string
	summaries     []models.ConversationSummary
	pendingDelete *models.ConversationSummary

	// busy is shown instead of the help line while a blocking call runs
	busy   string
	status string

	rejected chan string
	md       *markdown
}

// New builds the TUI over ws. Signed-out users start at the login form.
func New(ws *workspace.Workspace) Model {
	rejected := make(chan string, 1)
	ws.OnAuthRejected(func(op string) {
		select {
		case rejected <- op:
		default:
		}
	})

	m := Model{
		ws:        ws,
		mode:      loginView,
		login:     newLoginForm(),
		composer:  newComposer(),
		pathInput: newPathInput(),
		list:      createConversationList(nil, "", 80, 24),
		viewport:  createViewport(80, 24),
		width:     80,
		height:    24,
		rejected:  rejected,
		md:        newMarkdown(),
	}
	if ws.Authenticated() {
		m.mode = listView
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForRejection(m.rejected), textinput.Blink}
	if m.mode == listView {
		cmds = append(cmds, refreshHistory(m.ws))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, listHeight(msg.Height))
		m.viewport.Width = msg.Width
		m.viewport.Height = chatHeight(msg.Height)
		m.composer.Width = msg.Width - 4
		return m.refreshChat(), nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.busy != "" && m.mode != chatView {
			return m, nil
		}

		switch m.mode {
		case loginView:
			return m.updateLogin(msg)
		case listView:
			return m.updateList(msg)
		case chatView:
			return m.updateChat(msg)
		case uploadView:
			return m.updateUpload(msg)
		case deleteView:
			return m.updateDelete(msg)
		case helpView:
			return m.updateHelp(msg)
		}

	case tea.MouseMsg:
		if m.mode == chatView {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil

	case authDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = msg.message
		m.login = newLoginForm()
		m.mode = listView
		return m.syncList(), nil

	case historyLoadedMsg:
		m.busy = ""
		if msg.err != nil && !gateway.IsAuthRejected(msg.err) {
			m.err = msg.err
		}
		return m.syncList(), nil

	case conversationLoadedMsg:
		wasOpening := msg.id == m.opening
		if wasOpening {
			m.opening = ""
		}
		if msg.err != nil {
			if wasOpening && !gateway.IsAuthRejected(msg.err) {
				m.err = msg.err
				if m.mode == chatView {
					m.mode = listView
				}
			}
			return m.syncList(), nil
		}
		if msg.id != m.ws.Conversation.ActiveID() {
			return m, nil
		}
		m = m.refreshChat()
		m.viewport.GotoBottom()
		return m, nil

	case answerMsg:
		if !m.ws.Conversation.Resolve(msg.turn, msg.answer, msg.err) {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
		}
		m = m.refreshChat()
		m.viewport.GotoBottom()
		return m, nil

	case uploadDoneMsg:
		m.busy = ""
		m.pathInput.Reset()
		if gateway.IsAuthRejected(msg.err) {
			return m, nil
		}
		m = m.syncList()
		if msg.result == nil {
			m.err = msg.err
			m.mode = listView
			return m, nil
		}
		m.status = msg.result.Message
		if msg.err != nil {
			m.err = msg.err
			m.mode = listView
			return m, nil
		}
		m.err = nil
		return m.enterChat(), nil

	case deletedMsg:
		m.busy = ""
		m.pendingDelete = nil
		m.mode = listView
		if gateway.IsAuthRejected(msg.err) {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = "Deleted " + msg.title
		}
		return m.syncList(), nil

	case copiedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = "Answer copied to clipboard"
		}
		return m, nil

	case authRejectedMsg:
		m.mode = loginView
		m.login = newLoginForm()
		m.composer.Reset()
		m.pathInput.Reset()
		m.pendingDelete = nil
		m.opening = ""
		m.busy = ""
		m.err = nil
		m.status = sessionExpiredNotice
		m = m.syncList().refreshChat()
		return m, waitForRejection(m.rejected)

	case errMsg:
		m.busy = ""
		m.err = msg.err
		return m, nil
	}

	if m.mode == chatView {
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.mode {
	case loginView:
		return m.viewLogin()
	case listView:
		return m.viewList()
	case chatView:
		return m.viewChat()
	case uploadView:
		return m.viewUpload()
	case deleteView:
		return m.viewDelete()
	case helpView:
		return m.viewHelp()
	}

	return ""
}

// footer renders the busy indicator, the last error or status, then help
func (m Model) footer(help string) string {
	switch {
	case m.busy != "":
		return metaStyle.Render("⏳ " + m.busy)
	case m.err != nil:
		return errorStyle.Render("Error: "+gateway.UserMessage(m.err)) + "\n" + helpStyle.Render(help)
	case m.status != "":
		return statusStyle.Render(m.status) + "\n" + helpStyle.Render(help)
	}
	return helpStyle.Render(help)
}

func (m Model) showHelp() Model {
	m.helpFrom = m.mode
	m.mode = helpView
	return m
}

func listHeight(height int) int {
	if height < 6 {
		return 1
	}
	return height - 4 // title + status + help
}

func chatHeight(height int) int {
	if height < 8 {
		return 1
	}
	return height - 7 // header, composer, status and help
}
