// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/numtrace/internal/model"
	"github.com/verte-zerg/numtrace/internal/stats"
	"github.com/verte-zerg/numtrace/internal/store"
)

const (
	tabOverview = iota
	tabGlyphTable
	tabGlyphCurves
)

const (
	plotHeight     = 10
	topGlyphCount  = 5
	fallbackWidth  = 80
	inputMode      = 0
	inputSince     = 1
	inputLast      = 2
	inputWindow    = 3
	dateLayout     = "2006-01-02"
	copiedNotice   = "Copied summary to clipboard."
	noAttemptsText = "No attempts found."
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3CB371"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	store *store.Store
	cfg   model.StatsConfig
	clock func() time.Time
	copy  func(string) error

	report stats.Report
	errMsg string
	notice string

	tabs        []string
	activeTab   int
	viewports   []viewport.Model
	glyphTable  table.Model
	tableLayout tableLayout

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string

	glyphSelection       []string
	glyphSelectionCustom bool

	glyphInputMode bool
	glyphInput     textinput.Model
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
}

// NewModel constructs a stats UI model.
func NewModel(st *store.Store, cfg model.StatsConfig) *Model {
	m := &Model{
		store: st,
		cfg:   cfg,
		clock: time.Now,
		copy:  clipboard.WriteAll,
		tabs:  []string{"Overview", "Glyph Table", "Glyph Curves"},
	}
	m.glyphSelection = ParseGlyphs(cfg.Glyphs)
	m.glyphSelectionCustom = len(m.glyphSelection) > 0
	m.initInputs()
	m.initGlyphInput()
	m.glyphTable = newGlyphTable()
	m.initViewports()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (msg.String() == "q" && !m.filterMode && !m.glyphInputMode) {
			return m, tea.Quit
		}
		if m.activeTab == tabGlyphTable {
			m.glyphTable.Focus()
		} else {
			m.glyphTable.Blur()
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if m.glyphInputMode {
			return m.updateGlyphInput(msg)
		}
		m.notice = ""
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			m.updateLayout()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			m.updateLayout()
			return m, nil
		case "/":
			return m.startFilter()
		case "c":
			m.copySummary()
			return m, nil
		case "enter":
			if m.activeTab == tabGlyphCurves {
				return m.startGlyphInput()
			}
			return m, nil
		case "g", "home":
			if m.activeTab == tabGlyphTable {
				m.glyphTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabGlyphTable {
				m.glyphTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabGlyphTable {
				var cmd tea.Cmd
				m.glyphTable, cmd = m.glyphTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.glyphInputMode {
		return fitLines(m.renderGlyphModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Mode (trace/draw): "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
		newFilterInput("Curve window: "),
	}
	m.setInputsFromConfig()
}

func (m *Model) initGlyphInput() {
	m.glyphInput = newFilterInput("Glyphs: ")
	m.glyphInput.Placeholder = "0123456789"
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(1, lipgloss.Height(activeNavStyle.Render("X")))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && (m.errMsg != "" || m.notice != "") {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) setInputsFromConfig() {
	if len(m.filterInputs) == 0 {
		return
	}
	m.filterInputs[inputMode].SetValue(strings.TrimSpace(m.cfg.Mode))
	if m.cfg.Since != nil {
		m.filterInputs[inputSince].SetValue(m.cfg.Since.Format(dateLayout))
	} else {
		m.filterInputs[inputSince].SetValue("")
	}
	if m.cfg.Last > 0 {
		m.filterInputs[inputLast].SetValue(strconv.Itoa(m.cfg.Last))
	} else {
		m.filterInputs[inputLast].SetValue("")
	}
	m.filterInputs[inputWindow].SetValue(strconv.Itoa(m.cfg.CurveWindow))
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setTableSize(m.width, vpHeight)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
	promptWidth := lipgloss.Width(m.glyphInput.Prompt)
	m.glyphInput.Width = max(10, modalInnerWidth(m.width)-promptWidth)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabGlyphTable {
		m.glyphTable.Focus()
	} else {
		m.glyphTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	mode := m.cfg.Mode
	if mode == "" {
		mode = "any"
	}
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format(dateLayout)
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Settings: mode=%s  since=%s  last=%s  window=%d", mode, since, last, m.cfg.CurveWindow)
	if a, ok := m.report.Last(); ok {
		summary += "  last attempt " + humanize.RelTime(a.EndedAt, m.clock(), "ago", "from now")
	}
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Copy: c  Quit: q"
	if m.activeTab == tabGlyphCurves {
		help = "Nav: left/right  Scroll: up/down/pgup/pgdn  Edit glyphs: enter  Window: -/=  Settings: /  Copy: c  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel  ctrl+c: quit")
	}
	switch {
	case m.errMsg != "":
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	case m.notice != "":
		return m.renderHelp() + "\n" + noticeStyle.Render(m.notice)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabGlyphTable {
		switch {
		case len(m.report.Attempts) == 0:
			return fitLines(noAttemptsText, m.width, height)
		case len(m.report.GlyphAggsAll) == 0:
			return fitLines("No glyph stats found.", m.width, height)
		default:
			return fitLines(tableMutedStyle.Render(m.glyphTable.View()), m.width, height)
		}
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.store, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	if !m.glyphSelectionCustom {
		m.glyphSelection = stats.TopGlyphsByAttempts(m.report.GlyphAggsAll, topGlyphCount)
	}
	width := m.width
	if width <= 0 {
		width = fallbackWidth
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.applyGlyphTable(width, bodyHeight)
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = fallbackWidth
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report.Attempts, m.cfg.CurveWindow, width))
	m.viewports[tabGlyphCurves].SetContent(renderGlyphCurves(m.report.Attempts, m.glyphSelection, m.cfg.CurveWindow, width))
}

func renderOverview(attempts []model.AttemptAggregate, window, width int) string {
	if len(attempts) == 0 {
		return noAttemptsText
	}
	summary := renderSummaryCards(attempts, width)
	curves := renderCurves(attempts, window, width)
	return strings.TrimRight(summary+"\n\n"+curves, "\n")
}

func renderSummaryCards(attempts []model.AttemptAggregate, width int) string {
	sum := stats.Summarize(attempts)
	coverage := "-"
	if sum.AvgCoverage > 0 {
		coverage = fmt.Sprintf("%.0f%%", sum.AvgCoverage*100)
	}
	cards := []string{
		metricCard("Attempts", humanize.Comma(int64(sum.Attempts))),
		metricCard("Finished", fmt.Sprintf("%.0f%%", sum.CompletionRate()*100)),
		metricCard("Avg Time", fmt.Sprintf("%.1fs", sum.AvgSeconds)),
		metricCard("Best Time", fmt.Sprintf("%.1fs", sum.BestSeconds)),
		metricCard("Avg Slips", fmt.Sprintf("%.2f", sum.AvgRegressions)),
		metricCard("Avg Coverage", coverage),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderCurves(attempts []model.AttemptAggregate, window, width int) string {
	var buf bytes.Buffer
	if err := stats.RenderCurvesWithSize(&buf, attempts, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderGlyphCurves(attempts []model.AttemptAggregate, glyphs []string, window, width int) string {
	if len(attempts) == 0 {
		return noAttemptsText
	}
	if len(glyphs) == 0 {
		return "No glyphs selected. Press Enter to pick glyphs."
	}
	header := headerStyle.Render(fmt.Sprintf("Glyphs: %s", strings.Join(glyphs, ", ")))
	var buf bytes.Buffer
	if err := stats.RenderGlyphCurvesWithSize(&buf, attempts, glyphs, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render glyph curves: %v", err)
	}
	return strings.TrimRight(header+"\n"+buf.String(), "\n")
}

// copySummary puts the plain-text summary and glyph table on the clipboard.
func (m *Model) copySummary() {
	var buf bytes.Buffer
	if err := stats.RenderSummary(&buf, m.report.Attempts); err != nil {
		m.errMsg = err.Error()
		return
	}
	if len(m.report.Attempts) > 0 {
		if err := stats.RenderGlyphTable(&buf, m.report.GlyphAggsAll); err != nil {
			m.errMsg = err.Error()
			return
		}
	}
	if err := m.copy(strings.TrimRight(buf.String(), "\n")); err != nil {
		m.errMsg = fmt.Sprintf("failed to copy to clipboard: %v", err)
		return
	}
	m.notice = copiedNotice
}

func newGlyphTable() table.Model {
	cols, rows := buildGlyphTableData(nil)
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(1),
	)
	t.SetStyles(glyphTableStyles())
	return t
}

func buildGlyphTableData(aggs []model.GlyphAggregate) ([]table.Column, []table.Row) {
	columns := []table.Column{
		{Title: "Glyph", Width: 5},
		{Title: "Attempts", Width: 8},
		{Title: "Finished", Width: 8},
		{Title: "Avg Time (s)", Width: 12},
		{Title: "Slips", Width: 5},
		{Title: "Undos", Width: 5},
		{Title: "Floods", Width: 6},
	}
	rows := make([]table.Row, 0, len(aggs))
	for _, r := range stats.GlyphRows(aggs) {
		rows = append(rows, table.Row{
			r.Glyph,
			strconv.Itoa(r.Attempts),
			fmt.Sprintf("%.0f%%", r.Rate*100),
			fmt.Sprintf("%.1f", r.AvgSeconds),
			strconv.Itoa(r.Regressions),
			strconv.Itoa(r.Undos),
			strconv.Itoa(r.Floods),
		})
	}
	return columns, rows
}

func (m *Model) applyGlyphTable(width, height int) {
	var aggs []model.GlyphAggregate
	if len(m.report.Attempts) > 0 {
		aggs = m.report.GlyphAggsAll
	}
	cols, rows := buildGlyphTableData(aggs)
	m.glyphTable.SetColumns(cols)
	m.glyphTable.SetRows(rows)
	m.tableLayout.rowCount = len(rows)
	m.tableLayout.width = 0
	m.setTableSize(width, height)
}

func (m *Model) setTableSize(width, height int) {
	viewportHeight := max(1, height-1)
	if m.tableLayout.width == width && m.tableLayout.height == viewportHeight {
		return
	}
	m.tableLayout.width = width
	m.tableLayout.height = viewportHeight
	m.glyphTable.SetWidth(width)
	m.glyphTable.SetHeight(viewportHeight)
	if fitted := m.fitTableHeight(height); fitted != viewportHeight {
		m.tableLayout.height = fitted
		m.glyphTable.SetHeight(fitted)
	}
}

func glyphTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

// fitTableHeight corrects the table height so header and border fit the
// body exactly. Two passes settle the header border.
func (m *Model) fitTableHeight(bodyHeight int) int {
	target := max(1, bodyHeight)
	height := m.glyphTable.Height()
	for pass := 0; pass < 2; pass++ {
		viewHeight := lipgloss.Height(m.glyphTable.View())
		if viewHeight == target {
			return height
		}
		height = max(1, height+target-viewHeight)
		m.glyphTable.SetHeight(height)
	}
	return height
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) startGlyphInput() (tea.Model, tea.Cmd) {
	m.glyphInputMode = true
	m.glyphInput.SetValue(strings.Join(m.glyphSelection, ","))
	return m, m.glyphInput.Focus()
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) updateGlyphInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.glyphInputMode = false
		return m, nil
	case tea.KeyEnter:
		m.applyGlyphInput()
		m.glyphInputMode = false
		m.renderTabContents()
		return m, nil
	}
	var cmd tea.Cmd
	m.glyphInput, cmd = m.glyphInput.Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	mode := strings.TrimSpace(m.filterInputs[inputMode].Value())
	if mode != "" {
		if _, err := model.ParseMode(mode); err != nil {
			return err
		}
	}

	var since *time.Time
	if sinceInput := strings.TrimSpace(m.filterInputs[inputSince].Value()); sinceInput != "" {
		parsed, err := time.ParseInLocation(dateLayout, sinceInput, time.Local)
		if err != nil {
			return fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		since = &parsed
	}

	last := 0
	if lastInput := strings.TrimSpace(m.filterInputs[inputLast].Value()); lastInput != "" {
		parsed, err := strconv.Atoi(lastInput)
		if err != nil || parsed < 0 {
			return fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		last = parsed
	}

	window := 0
	if windowInput := strings.TrimSpace(m.filterInputs[inputWindow].Value()); windowInput != "" {
		parsed, err := strconv.Atoi(windowInput)
		if err != nil {
			return fmt.Errorf("invalid curve window (use integer)")
		}
		if parsed < 1 {
			return fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		window = parsed
	}

	m.cfg = model.StatsConfig{
		Mode:        mode,
		Since:       since,
		Last:        last,
		CurveWindow: window,
		Glyphs:      m.cfg.Glyphs,
	}
	return nil
}

func (m *Model) applyGlyphInput() {
	glyphs := ParseGlyphs(m.glyphInput.Value())
	if len(glyphs) == 0 {
		m.glyphSelectionCustom = false
		m.glyphSelection = stats.TopGlyphsByAttempts(m.report.GlyphAggsAll, topGlyphCount)
		return
	}
	m.glyphSelectionCustom = true
	m.glyphSelection = glyphs
}

func (m *Model) renderGlyphModal() string {
	body := []string{
		cardValueStyle.Render("Select Glyphs"),
		m.glyphInput.View(),
		headerStyle.Render("Type glyph names, or separate longer names with commas."),
		headerStyle.Render("Enter to apply / Esc to cancel"),
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// ParseGlyphs splits on commas when present, otherwise into single runes.
// Whitespace is ignored.
func ParseGlyphs(input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	var out []string
	if strings.Contains(input, ",") {
		for _, part := range strings.Split(input, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	for _, r := range input {
		if unicode.IsSpace(r) {
			continue
		}
		out = append(out, string(r))
	}
	return out
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func modalWidth(width int) int {
	return max(40, min(width-4, 80))
}

func modalInnerWidth(width int) int {
	// 2 border + 4 padding
	return max(10, modalWidth(width)-6)
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
