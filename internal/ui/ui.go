package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/soundlift/stemx/internal/history"
	"github.com/soundlift/stemx/internal/models"
	"github.com/soundlift/stemx/internal/player"
	"github.com/soundlift/stemx/internal/shared"
	"github.com/soundlift/stemx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	HomeView ViewState = iota
	ProcessingView
	PlayerView
)

// tickInterval drives position refresh and loop resync checks.
const tickInterval = 250 * time.Millisecond

// seekStep is the fractional distance one arrow keypress scrubs.
const seekStep = 0.05

// Deps holds everything the TUI talks to.
type Deps struct {
	Monitor *tasks.Monitor
	Player  *player.Player
	Mixer   *player.Mixer
	Store   *history.Store
	Logger  *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	deps    Deps
	view    ViewState
	width   int
	height  int
	keys    keyMap
	help    help.Model
	logger  *log.Logger

	// home
	historyList list.Model
	listReady   bool
	pathInput   textinput.Model
	statusMsg   string
	errMsg      string

	// processing
	task        models.Task
	taskPresent bool
	progressBar progress.Model

	// player
	channels []player.ChannelInfo
	selected int
}

// entryItem wraps [models.HistoryEntry] to implement list.Item.
type entryItem struct {
	entry models.HistoryEntry
}

func (i entryItem) FilterValue() string { return i.entry.Name }
func (i entryItem) Title() string {
	if i.entry.Key != "" {
		return fmt.Sprintf("%s (%s)", i.entry.Name, i.entry.Key)
	}
	return i.entry.Name
}
func (i entryItem) Description() string {
	var stems []string
	for _, stem := range i.entry.PresentStems() {
		stems = append(stems, string(stem))
	}
	saved := time.UnixMilli(i.entry.Timestamp).Format("2006-01-02 15:04")
	return fmt.Sprintf("%s • %s", strings.Join(stems, ", "), saved)
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}

	input := textinput.New()
	input.Placeholder = "path to an audio file (wav/mp3)"
	input.CharLimit = 512

	return &Model{
		ctx:         ctx,
		deps:        deps,
		view:        HomeView,
		keys:        newKeyMap(),
		help:        help.New(),
		logger:      deps.Logger,
		pathInput:   input,
		progressBar: progress.New(progress.WithDefaultGradient()),
	}
}

// StartAtPlayer opens the session directly on the player view. The caller is
// expected to have loaded a manifest into the Player already.
func (m *Model) StartAtPlayer() {
	m.channels = m.deps.Player.Channels()
	m.selected = 0
	m.view = PlayerView
}

// Init loads history and starts the event and tick loops.
//
// If a task is already in flight (e.g. the TUI was reopened mid-job), the
// model re-attaches to it instead of starting idle.
func (m *Model) Init() tea.Cmd {
	if task, ok := m.deps.Monitor.Snapshot(); ok {
		m.task = task
		m.taskPresent = true
		m.view = ProcessingView
	}
	return tea.Batch(m.loadHistory(), m.waitForEvent(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.listReady {
			m.historyList.SetSize(msg.Width-4, msg.Height-12)
		}
		m.progressBar.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case HomeView:
			return m.handleHomeKeys(msg)
		case ProcessingView:
			return m.handleProcessingKeys(msg)
		case PlayerView:
			return m.handlePlayerKeys(msg)
		}

	case historyLoadedMsg:
		if msg.err != nil {
			// History is best-effort; an unreadable store never blocks the UI.
			m.logger.Error("failed to load history", "error", msg.err)
			return m, nil
		}
		items := make([]list.Item, len(msg.entries))
		for i, entry := range msg.entries {
			items[i] = entryItem{entry: entry}
		}
		m.historyList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.historyList.Title = "Past Separations"
		m.historyList.SetShowHelp(false)
		m.historyList.SetSize(m.width-4, m.height-12)
		m.listReady = true
		return m, nil

	case submitResultMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.statusMsg = ""
		if task, ok := m.deps.Monitor.Snapshot(); ok {
			m.task = task
			m.taskPresent = true
		}
		m.view = ProcessingView
		return m, nil

	case taskEventMsg:
		return m.handleTaskEvent(tasks.Event(msg))

	case manifestLoadedMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Failed to load track: %v", msg.err)
			m.view = HomeView
			return m, nil
		}
		m.channels = m.deps.Player.Channels()
		m.selected = 0
		m.view = PlayerView
		m.deps.Player.Play()
		return m, nil

	case entryDeletedMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Delete failed: %v", msg.err)
			return m, nil
		}
		m.statusMsg = "Entry deleted"
		return m, m.loadHistory()

	case tickMsg:
		m.deps.Player.OnTick()
		if m.view == PlayerView {
			m.channels = m.deps.Player.Channels()
		}
		return m, m.tick()
	}

	if m.listReady && m.view == HomeView {
		var cmd tea.Cmd
		m.historyList, cmd = m.historyList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleTaskEvent folds one Monitor event into the model.
//
// Cancellation is a clean transition: no error text, ever. Failure carries a
// user-visible message. Both land back on the home view unless the user
// already navigated elsewhere.
func (m *Model) handleTaskEvent(ev tasks.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.waitForEvent()}

	switch ev.Kind {
	case tasks.EventProgress:
		m.task = ev.Task
		m.taskPresent = true

	case tasks.EventCompleted:
		m.taskPresent = false
		m.statusMsg = fmt.Sprintf("Separation complete: %s", ev.Task.FileName)
		m.errMsg = ""
		cmds = append(cmds, m.loadHistory())
		if ev.Manifest != nil {
			cmds = append(cmds, m.loadManifest(*ev.Manifest))
		}

	case tasks.EventCancelled:
		m.taskPresent = false
		m.statusMsg = "Separation cancelled"
		m.errMsg = ""
		if m.view == ProcessingView {
			m.view = HomeView
		}

	case tasks.EventFailed:
		m.taskPresent = false
		m.errMsg = ev.Message
		if m.view == ProcessingView {
			m.view = HomeView
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleHomeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pathInput.Focused() {
		switch msg.String() {
		case "enter":
			path := strings.TrimSpace(m.pathInput.Value())
			m.pathInput.Blur()
			if path == "" {
				return m, nil
			}
			return m, m.submitFile(path)
		case "esc":
			m.pathInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.pathInput, cmd = m.pathInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "u":
		m.pathInput.Focus()
		return m, textinput.Blink
	case "p":
		if m.taskPresent {
			m.view = ProcessingView
		}
		return m, nil
	case "enter":
		if item, ok := m.selectedEntry(); ok {
			return m, m.loadManifest(item.Manifest)
		}
		return m, nil
	case "d":
		if item, ok := m.selectedEntry(); ok {
			return m, m.deleteEntry(item.ID)
		}
		return m, nil
	case "o":
		if item, ok := m.selectedEntry(); ok {
			m.openDownload(item)
		}
		return m, nil
	}

	if m.listReady {
		var cmd tea.Cmd
		m.historyList, cmd = m.historyList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleProcessingKeys deals with the in-flight view. Escape backgrounds the
// job (the Monitor keeps polling) while `c` actually cancels it.
func (m *Model) handleProcessingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = HomeView
		return m, nil
	case "c":
		m.deps.Monitor.Cancel()
		return m, nil
	}
	return m, nil
}

func (m *Model) handlePlayerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.deps.Player.Stop()
		return m, tea.Quit
	case "esc":
		m.deps.Player.Pause()
		m.view = HomeView
		return m, nil
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down", "j":
		if m.selected < len(m.channels)-1 {
			m.selected++
		}
		return m, nil
	case " ":
		if m.deps.Player.Playing() {
			m.deps.Player.Pause()
		} else {
			m.deps.Player.Play()
		}
		return m, nil
	case "x":
		m.deps.Player.Stop()
		return m, nil
	case "m":
		if ch, ok := m.selectedChannel(); ok {
			m.deps.Mixer.ToggleMute(ch.Stem)
			m.channels = m.deps.Player.Channels()
		}
		return m, nil
	case "s":
		if ch, ok := m.selectedChannel(); ok {
			m.deps.Mixer.ToggleSolo(ch.Stem)
			m.channels = m.deps.Player.Channels()
		}
		return m, nil
	case "left", "h":
		m.scrub(-seekStep)
		return m, nil
	case "right", "l":
		m.scrub(seekStep)
		return m, nil
	}
	return m, nil
}

// scrub seeks relative to the selected channel's current fractional position.
// Any channel is a valid seek origin; the rest follow by fraction.
func (m *Model) scrub(delta float64) {
	ch, ok := m.selectedChannel()
	if !ok || ch.Duration <= 0 {
		return
	}
	fraction := float64(ch.Position)/float64(ch.Duration) + delta
	if err := m.deps.Player.Scrub(fraction, ch.Stem); err != nil {
		m.logger.Warn("seek failed", "stem", ch.Stem, "error", err)
	}
	m.channels = m.deps.Player.Channels()
}

func (m *Model) selectedChannel() (player.ChannelInfo, bool) {
	if m.selected < 0 || m.selected >= len(m.channels) {
		return player.ChannelInfo{}, false
	}
	return m.channels[m.selected], true
}

func (m *Model) selectedEntry() (models.HistoryEntry, bool) {
	if !m.listReady {
		return models.HistoryEntry{}, false
	}
	item, ok := m.historyList.SelectedItem().(entryItem)
	if !ok {
		return models.HistoryEntry{}, false
	}
	return item.entry, true
}

// openDownload hands the selected entry's first stem download URL to the
// system browser.
func (m *Model) openDownload(entry models.HistoryEntry) {
	for _, stem := range entry.PresentStems() {
		url := entry.Stems[stem].DownloadURL
		if err := shared.OpenBrowser(url); err != nil {
			m.errMsg = fmt.Sprintf("Failed to open browser: %v", err)
		}
		return
	}
	m.errMsg = "Entry has no stems"
}

// --- Commands ---

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.deps.Monitor.Events()
		if !ok {
			return nil
		}
		return taskEventMsg(ev)
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.deps.Store.All()
		return historyLoadedMsg{entries: entries, err: err}
	}
}

func (m *Model) submitFile(path string) tea.Cmd {
	return func() tea.Msg {
		taskID, err := m.deps.Monitor.Submit(path)
		return submitResultMsg{taskID: taskID, err: err}
	}
}

func (m *Model) loadManifest(manifest models.Manifest) tea.Cmd {
	return func() tea.Msg {
		err := m.deps.Player.Load(m.ctx, manifest)
		return manifestLoadedMsg{manifest: manifest, err: err}
	}
}

func (m *Model) deleteEntry(id string) tea.Cmd {
	return func() tea.Msg {
		err := m.deps.Store.Delete(m.ctx, id)
		return entryDeletedMsg{id: id, err: err}
	}
}

// --- Views ---

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case HomeView:
		return m.renderHome()
	case ProcessingView:
		return m.renderProcessing()
	case PlayerView:
		return m.renderPlayer()
	default:
		return ""
	}
}

func (m *Model) renderHome() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("stemx stem separation studio"))
	b.WriteString("\n")

	if m.taskPresent {
		b.WriteString(styles.warn.Render(fmt.Sprintf("● separating %s (press p for progress)", m.task.FileName)))
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString(styles.err.Render(m.errMsg))
		b.WriteString("\n")
	} else if m.statusMsg != "" {
		b.WriteString(styles.ok.Render(m.statusMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.pathInput.View())
	b.WriteString("\n\n")

	if m.listReady {
		b.WriteString(m.historyList.View())
		b.WriteString("\n")
	}

	b.WriteString(m.help.ShortHelpView([]key.Binding{
		m.keys.submit, m.keys.enter, m.keys.remove, m.keys.open, m.keys.reattach, m.keys.quit,
	}))
	return b.String()
}

func (m *Model) renderProcessing() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Separating"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("File:   %s\n", m.task.FileName))
	b.WriteString(fmt.Sprintf("Status: %s\n\n", m.task.Status))

	b.WriteString(m.progressBar.ViewAs(float64(m.task.Progress) / 100))
	b.WriteString(fmt.Sprintf("  %d%%\n\n", m.task.Progress))

	b.WriteString(fmt.Sprintf("Elapsed:   %s\n", shared.FormatDuration(m.task.Elapsed())))
	if remaining, ok := tasks.EstimateRemaining(m.task.Elapsed(), m.task.Progress); ok {
		b.WriteString(fmt.Sprintf("Remaining: ~%s\n", shared.FormatDuration(remaining)))
	} else {
		b.WriteString("Remaining: calculating...\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{
		m.keys.cancel, m.keys.background, m.keys.quit,
	}))
	return b.String()
}

func (m *Model) renderPlayer() string {
	var b strings.Builder

	manifest, ok := m.deps.Player.Manifest()
	title := "Player"
	if ok {
		title = manifest.Name
		if manifest.Key != "" {
			title = fmt.Sprintf("%s (key %s)", manifest.Name, manifest.Key)
		}
	}
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")

	state := "paused"
	if m.deps.Player.Playing() {
		state = "playing"
	}
	b.WriteString(styles.dim.Render(state))
	b.WriteString("\n\n")

	soloed := m.deps.Mixer.Soloed()
	for i, ch := range m.channels {
		cursor := "  "
		if i == m.selected {
			cursor = styles.active.Render("▸ ")
		}

		flags := renderFlags(ch, soloed)
		line := fmt.Sprintf("%s%-7s %s %s / %s",
			cursor, ch.Stem, flags,
			shared.FormatDuration(ch.Position), shared.FormatDuration(ch.Duration))

		if soloed != "" && ch.Stem != soloed {
			line = styles.dim.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{
		m.keys.play, m.keys.stop, m.keys.mute, m.keys.solo,
		m.keys.seekBack, m.keys.seekFwd, m.keys.back, m.keys.quit,
	}))
	return b.String()
}

// renderFlags shows the stored mute flag and the solo marker. While a solo is
// active every other channel is effectively silent no matter its stored flag.
func renderFlags(ch player.ChannelInfo, soloed models.StemName) string {
	mute := "-"
	if ch.Muted {
		mute = "M"
	}
	solo := "-"
	if soloed == ch.Stem {
		solo = "S"
	}
	return fmt.Sprintf("[%s%s]", mute, solo)
}
