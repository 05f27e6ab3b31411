// Package ui is the interactive progress view of a detection run.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stackvity/stack-polyglot/internal/cli/hooks"
	"github.com/stackvity/stack-polyglot/pkg/polyglot"
	tpl "github.com/stackvity/stack-polyglot/pkg/polyglot/template"
)

const (
	listHeightMargin = 4
	topLanguages     = 3

	phaseInitializing = "Initializing..."
	phaseScanning     = "Scanning..."
	phaseComplete     = "Complete"
)

// Model is the bubbletea model of one run. It is driven by the messages the
// CLI hooks send.
type Model struct {
	list    list.Model
	spinner spinner.Model
	version string

	width       int
	height      int
	initialized bool

	fileItems []listItem
	itemMap   map[string]int
	summary   Summary

	phaseMessage string
	fatalError   string
	quitting     bool

	// listPending is set while a list refresh is scheduled.
	listPending bool
}

type listItem struct {
	path     string
	status   polyglot.Status
	language string
	message  string
	duration time.Duration
}

// Summary holds the live counts shown in the footer.
type Summary struct {
	TotalFilesScanned int
	DetectedCount     int
	UnknownCount      int
	CachedCount       int
	SkippedCount      int
	ErrorCount        int
	Languages         map[string]int
	StartTime         time.Time
}

// NewModel creates the initial model. version is shown in the header.
func NewModel(version string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorSpinner)

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return &Model{
		list:         l,
		spinner:      s,
		version:      version,
		summary:      Summary{StartTime: time.Now(), Languages: make(map[string]int)},
		phaseMessage: phaseInitializing,
		fileItems:    make([]listItem, 0, 1000),
		itemMap:      make(map[string]int),
	}
}

func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.width, max(m.height-listHeightMargin, 1))
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		if m.quitting || m.phaseMessage == phaseComplete {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case hooks.FileDiscoveredMsg:
		if _, exists := m.itemMap[msg.Path]; !exists {
			m.fileItems = append(m.fileItems, listItem{path: msg.Path, status: polyglot.StatusPending})
			m.itemMap[msg.Path] = len(m.fileItems) - 1
			m.summary.TotalFilesScanned++
			cmds = append(cmds, m.scheduleListUpdate())
		}
		if m.phaseMessage == phaseInitializing {
			m.phaseMessage = phaseScanning
		}

	case hooks.FileStatusUpdateMsg:
		idx, ok := m.itemMap[msg.Path]
		if !ok {
			m.fileItems = append(m.fileItems, listItem{path: msg.Path, status: polyglot.StatusPending})
			idx = len(m.fileItems) - 1
			m.itemMap[msg.Path] = idx
			m.summary.TotalFilesScanned++
		}
		item := &m.fileItems[idx]
		if isFinalStatus(item.status) {
			m.count(*item, -1)
		}
		item.status = msg.Status
		item.duration = msg.Duration
		item.language, item.message = "", ""
		if msg.Status == polyglot.StatusSuccess || msg.Status == polyglot.StatusCached {
			item.language = msg.Message
		} else {
			item.message = msg.Message
		}
		if isFinalStatus(item.status) {
			m.count(*item, 1)
		}
		cmds = append(cmds, m.scheduleListUpdate())

	case hooks.RunCompleteMsg:
		m.phaseMessage = phaseComplete
		s := msg.Report.Summary
		m.summary.DetectedCount = s.DetectedCount
		m.summary.UnknownCount = s.UnknownCount
		m.summary.CachedCount = s.CachedCount
		m.summary.SkippedCount = s.SkippedCount
		m.summary.ErrorCount = s.ErrorCount
		if s.Languages != nil {
			m.summary.Languages = s.Languages
		}
		if s.FatalErrorOccurred {
			m.fatalError = "Run halted due to fatal error."
			for _, e := range msg.Report.Errors {
				if e.IsFatal {
					m.fatalError = fmt.Sprintf("Fatal Error: %s (%s)", e.Error, e.Path)
					break
				}
			}
		}

	case updateListMsg:
		m.listPending = false
		items := make([]list.Item, len(m.fileItems))
		for i, item := range m.fileItems {
			items[i] = item
		}
		cmds = append(cmds, m.list.SetItems(items))
	}

	return m, tea.Batch(cmds...)
}

// count adds (delta 1) or removes (delta -1) a finished item from the
// summary.
func (m *Model) count(item listItem, delta int) {
	switch item.status {
	case polyglot.StatusSuccess, polyglot.StatusCached:
		if item.status == polyglot.StatusCached {
			m.summary.CachedCount += delta
		}
		if item.language == "" {
			m.summary.UnknownCount += delta
			return
		}
		m.summary.DetectedCount += delta
		m.summary.Languages[item.language] += delta
		if m.summary.Languages[item.language] <= 0 {
			delete(m.summary.Languages, item.language)
		}
	case polyglot.StatusSkipped:
		m.summary.SkippedCount += delta
	case polyglot.StatusFailed:
		m.summary.ErrorCount += delta
	}
}

func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return phaseInitializing
	}

	headerLeft := fmt.Sprintf("Stack Polyglot v%s", m.version)
	headerRight := m.phaseMessage
	if m.phaseMessage != phaseComplete && m.phaseMessage != phaseInitializing {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	header := HeaderStyle.Width(m.width).Render(spread(m.width, headerLeft, headerRight))

	elapsed := time.Since(m.summary.StartTime).Round(time.Millisecond)
	summaryText := fmt.Sprintf(
		"Detected: %d | Unknown: %d | Cached: %d | Skipped: %d | Failed: %d | Scanned: %d | Elapsed: %s",
		m.summary.DetectedCount,
		m.summary.UnknownCount,
		m.summary.CachedCount,
		m.summary.SkippedCount,
		m.summary.ErrorCount,
		m.summary.TotalFilesScanned,
		elapsed,
	)
	if langs := m.topLanguages(); langs != "" {
		summaryText += " | " + langs
	}
	footer := FooterStyle.Width(m.width).Render(spread(m.width, summaryText, "q: quit"))

	errorView := ""
	if m.fatalError != "" {
		errorView = StatusStyleFailed.Render(m.fatalError) + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View(), errorView, footer)
}

func (m *Model) topLanguages() string {
	counts := tpl.SortedCounts(m.summary.Languages)
	if len(counts) > topLanguages {
		counts = counts[:topLanguages]
	}
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%s %d", c.Name, c.Count)
	}
	return strings.Join(parts, ", ")
}

// spread places left and right at the two ends of a line of the given width.
func spread(width int, left, right string) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func isFinalStatus(status polyglot.Status) bool {
	switch status {
	case polyglot.StatusSuccess, polyglot.StatusFailed, polyglot.StatusSkipped, polyglot.StatusCached:
		return true
	}
	return false
}

func (i listItem) FilterValue() string { return i.path }

func (i listItem) Title() string { return i.path }

func (i listItem) Description() string {
	style, icon, details := StatusStylePending, " ", ""
	switch i.status {
	case polyglot.StatusSuccess, polyglot.StatusCached:
		style, icon, details = StatusStyleSuccess, "✓", i.language
		if i.status == polyglot.StatusCached {
			style, icon = StatusStyleCached, "C"
		}
		if i.language == "" {
			style, details = StatusStyleUnknown, "unknown"
		}
		if d := formatDuration(i.duration); d != "" {
			details += " · " + d
		}
	case polyglot.StatusFailed:
		style, icon, details = StatusStyleFailed, "✗", i.message
	case polyglot.StatusSkipped:
		style, icon = StatusStyleSkipped, "S"
		details = strings.TrimSpace(strings.SplitN(i.message, ":", 2)[0])
	case polyglot.StatusProcessing:
		icon = "…"
	}
	return fmt.Sprintf("%s %s", style.Render("["+icon+"]"), details)
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

type updateListMsg struct{}

const listUpdateInterval = 50 * time.Millisecond

// scheduleListUpdate coalesces bursts of hook messages into at most one list
// refresh per interval.
func (m *Model) scheduleListUpdate() tea.Cmd {
	if m.listPending {
		return nil
	}
	m.listPending = true
	return tea.Tick(listUpdateInterval, func(time.Time) tea.Msg { return updateListMsg{} })
}
