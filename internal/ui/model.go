package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agent-chat/internal/agent"
	"agent-chat/internal/attach"
	"agent-chat/internal/chat"
	"agent-chat/internal/clipboard"
	"agent-chat/internal/export"
	"agent-chat/internal/highlight"
	"agent-chat/internal/history"
	"agent-chat/internal/sniff"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

type focus int

const (
	focusInput focus = iota
	focusList
	focusTranscript
)

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeRename
	modeAttach
	modeModel
	modeConfirmDelete
)

type Model struct {
	mgr      *chat.Manager
	exporter *export.Exporter
	copier   *clipboard.Copier
	logger   *zap.Logger

	list     list.Model
	viewport viewport.Model
	help     help.Model
	spinner  spinner.Model
	input    textinput.Model
	prompt   textinput.Model
	keys     keyMap

	width  int
	height int

	focus       focus
	mode        mode
	searchQuery string
	deleteID    string
	renameID    string

	buckets  []history.Bucket
	session  history.Session
	loaded   bool
	selected int
	offsets  []int
	failure  string
	inFlight int

	matchLines []int
	matchCount int
	matchIndex int

	status string
	err    error
}

type loadedMsg struct{ err error }
type sessionsMsg struct {
	buckets []history.Bucket
	err     error
}
type activeMsg struct {
	session history.Session
	ok      bool
	err     error
}
type postedMsg struct {
	out chat.Outgoing
	err error
}
type replyMsg struct {
	sessionID string
	err       error
}
type changedMsg struct {
	status string
	err    error
}
type exportMsg struct {
	path string
	err  error
}
type downloadMsg struct {
	path string
	err  error
}
type copyMsg struct {
	err error
}

func NewModel(mgr *chat.Manager, exp *export.Exporter, copier *clipboard.Copier, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	if copier == nil {
		copier = clipboard.NewCopier(nil)
	}

	l := list.New([]list.Item{}, sidebarDelegate{}, 30, 20)
	l.Title = "Chats"
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	vp := viewport.New(60, 20)
	vp.SetContent("Loading chats...")

	h := help.New()
	h.ShowAll = false

	sp := spinner.New()
	sp.Spinner = spinner.Points

	in := textinput.New()
	in.Placeholder = "Type a message..."
	in.Prompt = "> "
	in.CharLimit = 0
	in.Focus()

	pr := textinput.New()
	pr.CharLimit = 1024

	return Model{
		mgr:      mgr,
		exporter: exp,
		copier:   copier,
		logger:   logger,
		list:     l,
		viewport: vp,
		help:     h,
		spinner:  sp,
		input:    in,
		prompt:   pr,
		keys:     defaultKeys(),

		focus:      focusInput,
		selected:   -1,
		matchIndex: -1,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadCmd())
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.mgr.Load(context.Background())}
	}
}

func (m Model) sessionsCmd() tea.Cmd {
	query := m.searchQuery
	return func() tea.Msg {
		var (
			b   []history.Bucket
			err error
		)
		if strings.TrimSpace(query) != "" {
			b, err = m.mgr.Search(context.Background(), query)
		} else {
			b, err = m.mgr.Grouped(context.Background())
		}
		return sessionsMsg{buckets: b, err: err}
	}
}

func (m Model) activeCmd() tea.Cmd {
	return func() tea.Msg {
		s, ok, err := m.mgr.Active(context.Background())
		return activeMsg{session: s, ok: ok, err: err}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	return tea.Batch(m.sessionsCmd(), m.activeCmd())
}

func (m Model) postCmd(text string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.mgr.Post(context.Background(), text)
		return postedMsg{out: out, err: err}
	}
}

func (m Model) dispatchCmd(out chat.Outgoing) tea.Cmd {
	return func() tea.Msg {
		_, err := m.mgr.Dispatch(context.Background(), out)
		return replyMsg{sessionID: out.SessionID, err: err}
	}
}

func (m Model) newChatCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.mgr.NewChat(context.Background())
		return changedMsg{status: "New chat started", err: err}
	}
}

func (m Model) selectCmd(id string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.mgr.Select(context.Background(), id)
		return changedMsg{err: err}
	}
}

func (m Model) renameCmd(id, title string) tea.Cmd {
	return func() tea.Msg {
		err := m.mgr.Rename(context.Background(), id, title)
		return changedMsg{status: "Chat renamed", err: err}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	return func() tea.Msg {
		err := m.mgr.Delete(context.Background(), id)
		return changedMsg{status: "Chat deleted", err: err}
	}
}

func (m Model) attachCmd(path string) tea.Cmd {
	return func() tea.Msg {
		a, err := attach.FromFile(path)
		if err != nil {
			return changedMsg{err: err}
		}
		m.mgr.Attach(a)
		return changedMsg{status: "Attached " + a.Filename}
	}
}

func (m Model) exportCmd(session history.Session) tea.Cmd {
	return func() tea.Msg {
		path, err := m.exporter.ExportSession(session)
		return exportMsg{path: path, err: err}
	}
}

func (m Model) downloadCmd(text string) tea.Cmd {
	return func() tea.Msg {
		res, err := sniff.Sniff(text)
		if err != nil {
			return downloadMsg{err: err}
		}
		path, err := m.exporter.SaveResponse(res)
		return downloadMsg{path: path, err: err}
	}
}

func (m Model) copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		res, err := sniff.Sniff(text)
		if err == nil {
			text = res.Text
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return copyMsg{err: m.copier.Copy(ctx, text)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.renderSession(false)

	case loadedMsg:
		if msg.err != nil {
			m.fail("Could not load chats", msg.err)
			break
		}
		cmds = append(cmds, m.refreshCmd())

	case sessionsMsg:
		if msg.err != nil {
			m.fail("Session query failed", msg.err)
			break
		}
		m.buckets = msg.buckets
		m.applySidebar()

	case activeMsg:
		if msg.err != nil {
			m.fail("Could not load chat", msg.err)
			break
		}
		m.applySession(msg.session, msg.ok)

	case postedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, chat.ErrEmptyMessage) {
				break
			}
			m.fail("Could not send", msg.err)
			break
		}
		m.failure = ""
		m.inFlight++
		cmds = append(cmds, m.refreshCmd(), m.dispatchCmd(msg.out))
		if m.inFlight == 1 {
			cmds = append(cmds, m.spinner.Tick)
		}

	case replyMsg:
		m.inFlight--
		if m.inFlight < 0 {
			m.inFlight = 0
		}
		switch {
		case msg.err == nil:
			m.status = ""
			m.err = nil
		case errors.Is(msg.err, agent.ErrAccessDenied):
			m.status = "Access denied by the agent"
			m.err = msg.err
		case errors.Is(msg.err, agent.ErrUnavailable):
			if msg.sessionID == m.session.ID {
				m.failure = chat.UnreachableText
			}
			m.err = msg.err
		default:
			m.fail("Could not store reply", msg.err)
		}
		cmds = append(cmds, m.refreshCmd())

	case changedMsg:
		if msg.err != nil {
			m.fail("Action failed", msg.err)
			break
		}
		m.err = nil
		if msg.status != "" {
			m.status = msg.status
		}
		cmds = append(cmds, m.refreshCmd())

	case exportMsg:
		if msg.err != nil {
			m.fail("Export failed", msg.err)
		} else {
			m.status = "Exported: " + msg.path
		}

	case downloadMsg:
		switch {
		case errors.Is(msg.err, sniff.ErrMalformedPayload):
			m.fail("Reply is not valid base64 data", msg.err)
		case msg.err != nil:
			m.fail("Save failed", msg.err)
		default:
			m.status = "Saved: " + msg.path
		}

	case copyMsg:
		if msg.err != nil {
			m.fail("Clipboard copy failed.", msg.err)
		} else {
			m.status = "Copied to clipboard."
		}

	case spinner.TickMsg:
		if m.inFlight > 0 {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.mode != modeNormal {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Tab):
		m.setFocus((m.focus + 1) % 3)
		return m, nil
	case key.Matches(msg, m.keys.NewChat):
		return m, m.newChatCmd()
	case key.Matches(msg, m.keys.Rename):
		id, title := m.targetSession()
		if id == "" {
			return m, nil
		}
		m.renameID = id
		return m, m.openPrompt(modeRename, "Rename: ", title)
	case key.Matches(msg, m.keys.Delete):
		id, _ := m.targetSession()
		if id == "" {
			return m, nil
		}
		m.deleteID = id
		m.mode = modeConfirmDelete
		return m, nil
	case key.Matches(msg, m.keys.Attach):
		return m, m.openPrompt(modeAttach, "Attach file: ", "")
	case key.Matches(msg, m.keys.Detach):
		pending := m.mgr.Pending()
		if len(pending) == 0 {
			return m, nil
		}
		if err := m.mgr.Detach(len(pending) - 1); err == nil {
			m.status = "Removed " + pending[len(pending)-1].Filename
		}
		m.resize()
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		if reply, ok := m.selectedReply(); ok {
			return m, m.copyCmd(reply.Text)
		}
		m.status = "No reply selected"
		return m, nil
	case key.Matches(msg, m.keys.Download):
		if reply, ok := m.selectedReply(); ok {
			return m, m.downloadCmd(reply.Text)
		}
		m.status = "No reply selected"
		return m, nil
	case key.Matches(msg, m.keys.Export):
		if !m.loaded {
			return m, nil
		}
		return m, m.exportCmd(m.session)
	case key.Matches(msg, m.keys.Search):
		return m, m.openPrompt(modeSearch, "/ ", m.searchQuery)
	case key.Matches(msg, m.keys.CycleStyle):
		m.mgr.SetStyle(nextStyle(m.mgr.Style()))
		m.status = "Style: " + m.mgr.Style()
		return m, nil
	case key.Matches(msg, m.keys.SetModel):
		return m, m.openPrompt(modeModel, "Model: ", m.mgr.Model())
	case key.Matches(msg, m.keys.Esc):
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.renderSession(false)
			return m, m.sessionsCmd()
		}
		m.setFocus(focusInput)
		return m, nil
	}

	switch m.focus {
	case focusInput:
		if key.Matches(msg, m.keys.Send) {
			text := m.input.Value()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			m.input.Reset()
			return m, m.postCmd(text)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case focusList:
		if key.Matches(msg, m.keys.Send) {
			if item, ok := m.list.SelectedItem().(sessionItem); ok {
				m.setFocus(focusInput)
				return m, m.selectCmd(item.s.ID)
			}
			return m, nil
		}
		prev := m.list.Index()
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		dir := 1
		if m.list.Index() < prev {
			dir = -1
		}
		if idx := nextSelectable(m.list.Items(), m.list.Index(), dir); idx >= 0 {
			m.list.Select(idx)
		}
		return m, cmd

	case focusTranscript:
		switch {
		case key.Matches(msg, m.keys.Up):
			m.viewport.LineUp(1)
		case key.Matches(msg, m.keys.Down):
			m.viewport.LineDown(1)
		case key.Matches(msg, m.keys.PageUp):
			m.viewport.HalfViewUp()
		case key.Matches(msg, m.keys.PageDown):
			m.viewport.HalfViewDown()
		case key.Matches(msg, m.keys.PrevReply):
			m.moveReply(-1)
		case key.Matches(msg, m.keys.NextReply):
			m.moveReply(1)
		case key.Matches(msg, m.keys.PrevMatch):
			m.jumpToMatch(-1)
		case key.Matches(msg, m.keys.NextMatch):
			m.jumpToMatch(1)
		}
	}
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeConfirmDelete {
		id := m.deleteID
		m.mode = modeNormal
		m.deleteID = ""
		switch strings.ToLower(msg.String()) {
		case "y", "enter":
			return m, m.deleteCmd(id)
		}
		m.status = "Delete cancelled"
		return m, nil
	}

	switch msg.String() {
	case "esc":
		if m.mode == modeSearch {
			m.searchQuery = ""
			m.renderSession(false)
			m.closePrompt()
			return m, m.sessionsCmd()
		}
		m.closePrompt()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.prompt.Value())
		current := m.mode
		m.closePrompt()
		switch current {
		case modeSearch:
			m.searchQuery = value
			m.renderSession(true)
			return m, m.sessionsCmd()
		case modeRename:
			return m, m.renameCmd(m.renameID, value)
		case modeAttach:
			if value == "" {
				return m, nil
			}
			return m, m.attachCmd(value)
		case modeModel:
			m.mgr.SetModel(value)
			m.status = "Model: " + m.mgr.Model()
			return m, nil
		}
		return m, nil
	}

	before := m.prompt.Value()
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	if m.mode == modeSearch && strings.TrimSpace(m.prompt.Value()) != strings.TrimSpace(before) {
		m.searchQuery = strings.TrimSpace(m.prompt.Value())
		m.renderSession(false)
		return m, tea.Batch(cmd, m.sessionsCmd())
	}
	return m, cmd
}

func (m *Model) openPrompt(md mode, label, value string) tea.Cmd {
	m.mode = md
	m.prompt.Prompt = label
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	m.input.Blur()
	return m.prompt.Focus()
}

func (m *Model) closePrompt() {
	m.mode = modeNormal
	m.prompt.Blur()
	m.prompt.SetValue("")
	if m.focus == focusInput {
		m.input.Focus()
	}
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// targetSession is the highlighted sidebar row when the sidebar has focus,
// otherwise the active session.
func (m Model) targetSession() (string, string) {
	if m.focus == focusList {
		if item, ok := m.list.SelectedItem().(sessionItem); ok {
			return item.s.ID, item.s.Title
		}
	}
	if m.loaded {
		return m.session.ID, m.session.Title
	}
	return "", ""
}

func (m *Model) fail(status string, err error) {
	m.status = status
	m.err = err
	m.logger.Warn(strings.ToLower(strings.TrimSuffix(status, ".")), zap.Error(err))
}

func (m *Model) applySidebar() {
	items := sidebarItems(m.buckets, m.session.ID)
	m.list.SetItems(items)
	idx := indexOfSession(items, m.session.ID)
	if idx < 0 {
		idx = nextSelectable(items, m.list.Index(), 1)
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
}

func (m *Model) applySession(s history.Session, ok bool) {
	changed := !ok || s.ID != m.session.ID
	grown := ok && len(s.Messages) != len(m.session.Messages)
	if changed {
		m.failure = ""
	}
	m.session = s
	m.loaded = ok
	if !ok {
		m.session = history.Session{}
	}
	if changed || grown || m.selected >= len(s.Messages) {
		m.selected = s.LastReply()
	}
	m.applySidebar()
	m.renderSession(changed)
	if grown && !changed {
		m.viewport.GotoBottom()
	}
}

// renderSession redraws the transcript. jump moves to the first search match,
// or to the newest message when there is none; otherwise the scroll position
// is kept.
func (m *Model) renderSession(jump bool) {
	if !m.loaded {
		m.offsets = nil
		m.clearMatches()
		m.viewport.SetContent("No chat selected. Press ctrl+n to start one.")
		return
	}

	rendered, offsets := renderTranscript(m.session, m.selected, m.viewport.Width-2, m.failure)
	m.offsets = offsets

	content := rendered
	if strings.TrimSpace(m.searchQuery) != "" {
		res := highlight.Apply(rendered, m.searchQuery, func(s string) string {
			return searchMatchStyle.Render(s)
		})
		content = res.Text
		m.setMatchMeta(res)
	} else {
		m.clearMatches()
	}

	oldOffset := m.viewport.YOffset
	m.viewport.SetContent(content)
	switch {
	case jump && len(m.matchLines) > 0:
		m.matchIndex = 0
		m.viewport.SetYOffset(m.clampViewportOffset(m.matchLines[0]))
	case jump:
		m.viewport.GotoBottom()
	default:
		m.viewport.SetYOffset(m.clampViewportOffset(oldOffset))
	}
}

func (m Model) selectedReply() (history.Message, bool) {
	if !m.loaded || m.selected < 0 || m.selected >= len(m.session.Messages) {
		return history.Message{}, false
	}
	msg := m.session.Messages[m.selected]
	if msg.Sender != history.SenderAgent {
		return history.Message{}, false
	}
	return msg, true
}

func (m *Model) moveReply(delta int) {
	msgs := m.session.Messages
	for i := m.selected + delta; i >= 0 && i < len(msgs); i += delta {
		if msgs[i].Sender != history.SenderAgent {
			continue
		}
		m.selected = i
		m.renderSession(false)
		if i < len(m.offsets) {
			m.viewport.SetYOffset(m.clampViewportOffset(m.offsets[i]))
		}
		return
	}
}

func (m *Model) setMatchMeta(res highlight.Result) {
	if res.Count == 0 || len(res.LineIndex) == 0 {
		m.clearMatches()
		return
	}
	m.matchCount = res.Count
	m.matchLines = append(m.matchLines[:0], res.LineIndex...)
	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	}
}

func (m *Model) clearMatches() {
	m.matchLines = nil
	m.matchCount = 0
	m.matchIndex = -1
}

func (m *Model) jumpToMatch(delta int) {
	if len(m.matchLines) == 0 {
		m.status = "No search matches in transcript"
		return
	}

	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	} else if delta > 0 {
		m.matchIndex = (m.matchIndex + 1) % len(m.matchLines)
	} else if delta < 0 {
		m.matchIndex = (m.matchIndex - 1 + len(m.matchLines)) % len(m.matchLines)
	}

	line := m.matchLines[m.matchIndex]
	m.viewport.SetYOffset(m.clampViewportOffset(line))
	m.status = fmt.Sprintf("Match %d/%d", m.matchIndex+1, m.matchCount)
}

func (m *Model) clampViewportOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

func nextStyle(current string) string {
	styles := agent.Styles()
	for i, s := range styles {
		if s == current {
			return styles[(i+1)%len(styles)]
		}
	}
	return styles[0]
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	left, right := m.paneWidths()

	bodyHeight := m.bodyHeight()
	m.list.SetSize(left-4, bodyHeight-2)
	m.viewport.Width = right - 4
	m.viewport.Height = bodyHeight - 2
	m.input.Width = m.width - 8
	m.prompt.Width = m.width - 8
}

// bodyHeight is what is left for the panes after the status line, compose box,
// attachment line and help.
func (m Model) bodyHeight() int {
	h := m.height - 1 - 3 - 1
	if len(m.mgr.Pending()) > 0 {
		h--
	}
	if h < 8 {
		h = 8
	}
	return h
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	left, right := m.paneWidths()
	bodyHeight := m.bodyHeight()
	leftPane := panelStyle(m.focus == focusList).Width(left - 2).Height(bodyHeight - 2).Render(m.list.View())
	rightPane := panelStyle(m.focus == focusTranscript).Width(right - 2).Height(bodyHeight - 2).Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	var compose string
	switch m.mode {
	case modeConfirmDelete:
		compose = promptStyle.Render(fmt.Sprintf("Delete %q? (y/n)", m.deleteTitle()))
	case modeNormal:
		compose = m.input.View()
	default:
		compose = m.prompt.View()
	}
	composeBox := panelStyle(m.focus == focusInput || m.mode != modeNormal).Width(m.width - 2).Render(compose)

	parts := []string{m.statusLine(), body}
	if line := attachmentLine(m.mgr.Pending(), m.width); line != "" {
		parts = append(parts, line)
	}
	parts = append(parts, composeBox, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) deleteTitle() string {
	for _, b := range m.buckets {
		for _, s := range b.Sessions {
			if s.ID == m.deleteID {
				return s.Title
			}
		}
	}
	return m.deleteID
}

func (m Model) statusLine() string {
	status := fmt.Sprintf("model=%s  style=%s", m.mgr.Model(), m.mgr.Style())
	if m.loaded {
		status = shorten(m.session.Title, 40) + "  " + status
	}
	if m.inFlight > 0 {
		status += "  " + m.spinner.View() + " waiting for agent..."
	}
	if m.searchQuery != "" {
		status += "  [search: " + shorten(m.searchQuery, 24) + "]"
		if m.matchCount > 0 {
			cur := m.matchIndex + 1
			if cur < 1 {
				cur = 1
			}
			status += fmt.Sprintf("  [match %d/%d]", cur, m.matchCount)
		} else {
			status += "  [match 0]"
		}
	}
	if strings.TrimSpace(m.status) != "" {
		status += "  " + shorten(strings.TrimSpace(m.status), 80)
	}
	if m.err != nil {
		status += "  err=" + shorten(m.err.Error(), 80)
	}
	return statusStyle.Width(m.width).Render(status)
}

func (m *Model) paneWidths() (int, int) {
	left := m.width / 4
	if left < 28 {
		left = 28
	}
	if left > m.width-32 {
		left = m.width - 32
	}
	if left < 20 {
		left = 20
	}
	right := m.width - left
	if right < 20 {
		right = 20
	}
	return left, right
}
