// lenchat terminal client.
//
// Screens
// -------
//
//	stateLogin – centered login / register form
//	stateChat  – full-screen chat with a scrollable message viewport
//
// Concurrency
// -----------
// A single goroutine reads length-prefixed frames off the TCP connection
// and forwards decoded protocol.Response values to the resps channel. The
// Bubbletea event loop consumes one response at a time via waitForResp (a
// tea.Cmd), immediately queuing the next read after each response is
// processed — the same reader-goroutine-to-channel bridge the teacher's
// client used, adapted from newline-delimited JSON to the framed protocol.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lenchat/internal/protocol"
)

var (
	purple = lipgloss.Color("99")
	cyan   = lipgloss.Color("86")
	red    = lipgloss.Color("196")
	yellow = lipgloss.Color("220")
	gray   = lipgloss.Color("241")
	white  = lipgloss.Color("255")
	orange = lipgloss.Color("214")
	blue   = lipgloss.Color("75")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(purple).
			Foreground(white).
			Padding(0, 1)

	footerBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), true, false, false, false).
				BorderForeground(gray).
				Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(purple).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(gray).
			Width(10)

	focusedLabelStyle = lipgloss.NewStyle().
				Foreground(cyan).
				Width(10)

	hintStyle = lipgloss.NewStyle().
			Foreground(gray).
			Italic(true)

	errorStyle  = lipgloss.NewStyle().Foreground(red)
	sysStyle    = lipgloss.NewStyle().Foreground(yellow).Italic(true)
	tsStyle     = lipgloss.NewStyle().Foreground(gray)
	myNameStyle = lipgloss.NewStyle().Bold(true).Foreground(orange)
	peerStyle   = lipgloss.NewStyle().Bold(true).Foreground(blue)
)

type serverRespMsg protocol.Response
type disconnectedMsg struct{}

type appState int

const (
	stateLogin appState = iota
	stateChat
)

type model struct {
	conn  net.Conn
	resps chan protocol.Response

	state appState
	me    string

	loginIsReg  bool
	loginFocus  int
	loginFields [2]textinput.Model // [0]=name [1]=password
	statusMsg   string

	ready       bool
	viewport    viewport.Model
	chatInput   textinput.Model
	chatLines   []string
	onlineCount int

	width, height int
}

func newModel(conn net.Conn, resps chan protocol.Response) model {
	nf := textinput.New()
	nf.Placeholder = "name"
	nf.Focus()
	nf.CharLimit = 32
	nf.Width = 32

	pf := textinput.New()
	pf.Placeholder = "password"
	pf.EchoMode = textinput.EchoPassword
	pf.EchoCharacter = '•'
	pf.CharLimit = 32
	pf.Width = 32

	ci := textinput.New()
	ci.Placeholder = "Type a message…"
	ci.CharLimit = 2000

	return model{
		conn:        conn,
		resps:       resps,
		state:       stateLogin,
		loginFields: [2]textinput.Model{nf, pf},
		chatInput:   ci,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForResp(m.resps))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.vpHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.vpHeight()
		}
		m.chatInput.Width = msg.Width - 4
		return m, nil

	case serverRespMsg:
		m = m.handleServerResp(protocol.Response(msg))
		return m, waitForResp(m.resps)

	case disconnectedMsg:
		m.statusMsg = "disconnected from server"
		return m, tea.Quit

	case tea.KeyMsg:
		switch m.state {
		case stateLogin:
			return m.handleLoginKey(msg)
		case stateChat:
			return m.handleChatKey(msg)
		}
	}
	return m, nil
}

func (m model) vpHeight() int {
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

func (m model) handleLoginKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyTab, tea.KeyShiftTab:
		m.loginFocus = (m.loginFocus + 1) % 2
		for i := range m.loginFields {
			if i == m.loginFocus {
				m.loginFields[i].Focus()
			} else {
				m.loginFields[i].Blur()
			}
		}
		return m, textinput.Blink

	case tea.KeyCtrlR:
		m.loginIsReg = !m.loginIsReg
		m.statusMsg = ""
		return m, nil

	case tea.KeyEnter:
		name := strings.TrimSpace(m.loginFields[0].Value())
		pass := m.loginFields[1].Value()
		if name == "" || pass == "" {
			m.statusMsg = "name and password are required"
			return m, nil
		}
		var req protocol.Request
		if m.loginIsReg {
			req = protocol.NewRegistrationRequest(name, pass)
		} else {
			req = protocol.NewAuthenticationRequest(name, pass)
		}
		m.me = name
		sendRequest(m.conn, req)
		m.statusMsg = "Contacting server…"
		return m, nil
	}

	var cmd tea.Cmd
	m.loginFields[m.loginFocus], cmd = m.loginFields[m.loginFocus].Update(msg)
	return m, cmd
}

func (m model) handleChatKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlQ:
		return m, tea.Quit

	case tea.KeyEnter:
		text := strings.TrimSpace(m.chatInput.Value())
		if text != "" {
			sendRequest(m.conn, protocol.NewMessageRequest(text))
			m.chatInput.Reset()
		}
		return m, nil

	case tea.KeyPgUp:
		m.viewport.HalfViewUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func (m model) handleServerResp(resp protocol.Response) model {
	switch resp.Kind {

	case protocol.ResponseAuthenticationResult:
		if resp.AuthenticationResult.Result {
			m.state = stateChat
			m.chatInput.Focus()
			m.onlineCount = 1
			m.appendChat(sysStyle.Render("⚡ connected as " + m.me))
		} else {
			m.statusMsg = "authentication failed: " + resp.AuthenticationResult.Error.Error()
			m.me = ""
		}

	case protocol.ResponseRegistrationResult:
		if resp.RegistrationResult.Result {
			m.statusMsg = "registered — press Enter to log in"
			m.loginIsReg = false
		} else {
			m.statusMsg = "registration failed: " + resp.RegistrationResult.Error.Error()
		}

	case protocol.ResponseMessage:
		ts := tsStyle.Render("[" + time.Now().Format("15:04:05") + "]")
		var name string
		if resp.Message.UserName == m.me {
			name = myNameStyle.Render(resp.Message.UserName)
		} else {
			name = peerStyle.Render(resp.Message.UserName)
		}
		m.appendChat(ts + " " + name + ": " + resp.Message.Message)

	case protocol.ResponseConnection:
		if resp.Connection.IsConnected {
			m.onlineCount++
			m.appendChat(sysStyle.Render("⚡ " + resp.Connection.UserName + " joined"))
		} else if m.onlineCount > 0 {
			m.onlineCount--
			m.appendChat(sysStyle.Render("⚡ " + resp.Connection.UserName + " left"))
		}
	}
	return m
}

func (m *model) appendChat(line string) {
	m.chatLines = append(m.chatLines, line)
	m.viewport.SetContent(strings.Join(m.chatLines, "\n"))
	m.viewport.GotoBottom()
}

func (m model) View() string {
	switch m.state {
	case stateLogin:
		return m.viewLogin()
	case stateChat:
		return m.viewChat()
	}
	return ""
}

func (m model) viewLogin() string {
	if m.width == 0 {
		return "\n  Connecting to server…"
	}

	mode := "Login"
	other := "Register"
	if m.loginIsReg {
		mode, other = "Register", "Login"
	}

	title := titleStyle.Render("  lenchat  ")

	renderField := func(label string, f textinput.Model, focused bool) string {
		var lbl string
		if focused {
			lbl = focusedLabelStyle.Render(label)
		} else {
			lbl = labelStyle.Render(label)
		}
		return lbl + "  " + f.View()
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		renderField("Name", m.loginFields[0], m.loginFocus == 0),
		renderField("Password", m.loginFields[1], m.loginFocus == 1),
		"",
		hintStyle.Render(fmt.Sprintf("Tab: switch field   Enter: %s   Ctrl+R: switch to %s", mode, other)),
		hintStyle.Render("Ctrl+C: quit"),
		"",
		m.renderStatus(),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}

func (m model) viewChat() string {
	if !m.ready {
		return "\n  Connecting…"
	}

	hdr := headerStyle.
		Width(m.width).
		Render(fmt.Sprintf(" lenchat  ·  %s  ·  %d online  ·  PgUp/Dn: Scroll  Ctrl+C: Quit",
			m.me, m.onlineCount))

	footer := footerBorderStyle.
		Width(m.width - 2).
		Render(m.chatInput.View())

	return lipgloss.JoinVertical(lipgloss.Left, hdr, m.viewport.View(), footer)
}

func (m model) renderStatus() string {
	if m.statusMsg == "" {
		return ""
	}
	if strings.Contains(m.statusMsg, "Contacting") {
		return hintStyle.Render(m.statusMsg)
	}
	return errorStyle.Render(m.statusMsg)
}

// waitForResp returns a tea.Cmd that blocks until the next response arrives
// on ch. When ch is closed (server disconnected), it returns disconnectedMsg.
func waitForResp(ch <-chan protocol.Response) tea.Cmd {
	return func() tea.Msg {
		resp, ok := <-ch
		if !ok {
			return disconnectedMsg{}
		}
		return serverRespMsg(resp)
	}
}

// sendRequest encodes req and writes it as one length-prefixed frame.
func sendRequest(conn net.Conn, req protocol.Request) {
	body, err := req.MarshalJSON()
	if err != nil {
		return
	}
	protocol.WriteFrame(conn, body)
}

func main() {
	addr := flag.String("addr", "localhost:6969", "server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	resps := make(chan protocol.Response, 64)

	go func() {
		defer close(resps)
		for {
			body, err := protocol.ReadFrame(conn, protocol.DefaultMaxFrame)
			if err != nil {
				return
			}
			var resp protocol.Response
			if err := resp.UnmarshalJSON(body); err != nil {
				continue
			}
			resps <- resp
		}
	}()

	p := tea.NewProgram(
		newModel(conn, resps),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
