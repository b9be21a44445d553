package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#EA580C")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0a84ff")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#30d158")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EA580C")).Bold(true)
	botStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#0a84ff")).Bold(true)
)

// Model defines the application state
type Model struct {
	mainMenu    list.Model
	menuTable   table.Model
	chatInput   textinput.Model
	searchInput textinput.Model
	spinner     spinner.Model
	client      *ApiClient
	session     *Session
	toasts      []Toast
	loading     bool
	currentView string
	error       string
}

// item represents a list item
type item struct {
	title, desc string
}

// FilterValue implements list.Item interface
func (i item) FilterValue() string { return i.title }

// Title implements list.Item interface
func (i item) Title() string { return i.title }

// Description implements list.Item interface
func (i item) Description() string { return i.desc }

// Initialize the model
func initialModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	items := []list.Item{
		item{title: "Chat", desc: "Talk to SeasonBot"},
		item{title: "Menu Search", desc: "Find dishes by name, code or description"},
		item{title: "Cart", desc: "Review the current order draft"},
		item{title: "Reset", desc: "Start a new conversation"},
		item{title: "Exit", desc: "Exit the application"},
	}
	mainMenu := list.New(items, list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "SeasonBot CLI"

	columns := []table.Column{
		{Title: "Code", Width: 8},
		{Title: "Item", Width: 36},
		{Title: "Price", Width: 8},
		{Title: "Section", Width: 12},
	}
	menuTable := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	chat := textinput.New()
	chat.Placeholder = "Ask about the menu or place an order..."
	chat.CharLimit = 500
	chat.Width = 60

	search := textinput.New()
	search.Placeholder = "Search the menu..."
	search.CharLimit = 100
	search.Width = 40

	return Model{
		mainMenu:    mainMenu,
		menuTable:   menuTable,
		chatInput:   chat,
		searchInput: search,
		spinner:     s,
		client:      NewApiClient(),
		currentView: "main",
		loading:     true,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.EnterAltScreen, startSession(m.client))
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.mainMenu.SetSize(msg.Width-h, msg.Height-v)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.currentView != "main" {
				m.currentView = "main"
				m.chatInput.Blur()
				m.searchInput.Blur()
				m.error = ""
				return m, nil
			}
		case "enter":
			switch m.currentView {
			case "main":
				selected, ok := m.mainMenu.SelectedItem().(item)
				if !ok {
					break
				}
				switch selected.title {
				case "Exit":
					return m, tea.Quit
				case "Chat":
					m.currentView = "chat"
					m.chatInput.Focus()
					return m, nil
				case "Menu Search":
					m.currentView = "menu"
					m.searchInput.Focus()
					return m, nil
				case "Cart":
					m.currentView = "cart"
					return m, refreshSession(m.client)
				case "Reset":
					m.loading = true
					return m, resetSession(m.client)
				}
			case "chat":
				text := strings.TrimSpace(m.chatInput.Value())
				if text == "" || m.loading {
					return m, nil
				}
				m.chatInput.SetValue("")
				m.loading = true
				m.error = ""
				return m, sendMessage(m.client, text)
			case "menu":
				return m, searchMenu(m.client, m.searchInput.Value())
			}
		}
	case sessionMsg:
		m.loading = false
		m.session = msg.session
		m.toasts = msg.toasts
		return m, nil
	case searchMsg:
		m.menuTable.SetRows(resultRows(msg.results))
		return m, nil
	case errorMsg:
		m.loading = false
		m.error = msg.err
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.currentView {
	case "main":
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case "chat":
		m.chatInput, cmd = m.chatInput.Update(msg)
	case "menu":
		var tcmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		m.menuTable, tcmd = m.menuTable.Update(msg)
		cmd = tea.Batch(cmd, tcmd)
	}

	return m, cmd
}

// View renders the UI
func (m Model) View() string {
	var footer string
	if m.error != "" {
		footer = "\n" + errorStyle.Render(m.error)
	}

	switch m.currentView {
	case "main":
		return docStyle.Render(m.mainMenu.View() + footer)
	case "chat":
		view := titleStyle.Render("Chat") + "\n\n" + chatView(m.session)
		if m.loading {
			view += m.spinner.View() + " SeasonBot is typing...\n"
		}
		for _, t := range m.toasts {
			view += toastView(t) + "\n"
		}
		view += "\n" + m.chatInput.View() + "\n\nPress 'enter' to send, 'esc' to go back"
		return docStyle.Render(view + footer)
	case "menu":
		view := titleStyle.Render("Menu Search") + "\n\n" + m.searchInput.View() + "\n\n" + m.menuTable.View()
		view += "\n\nType a query and press 'enter', 'esc' to go back"
		return docStyle.Render(view + footer)
	case "cart":
		return docStyle.Render(titleStyle.Render("Cart") + "\n\n" + cartView(m.session) + "\nPress 'esc' to go back" + footer)
	default:
		return "Loading..."
	}
}

// Custom message types for the tea.Model
type sessionMsg struct {
	session *Session
	toasts  []Toast
}

type searchMsg struct {
	results []SearchResult
}

type errorMsg struct {
	err string
}

func startSession(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		if _, err := client.CheckHealth(); err != nil {
			return errorMsg{err: fmt.Sprintf("API server at %s is not available: %v", client.BaseURL, err)}
		}
		s, err := client.StartSession()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error starting session: %v", err)}
		}
		return sessionMsg{session: s}
	}
}

func refreshSession(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		s, err := client.GetSession()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching session: %v", err)}
		}
		return sessionMsg{session: s}
	}
}

func resetSession(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		s, err := client.ResetSession()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error resetting session: %v", err)}
		}
		return sessionMsg{session: s, toasts: []Toast{{Message: "Conversation reset", Kind: "info"}}}
	}
}

func sendMessage(client *ApiClient, text string) tea.Cmd {
	return func() tea.Msg {
		s, toasts, err := client.SendMessage(text)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error sending message: %v", err)}
		}
		return sessionMsg{session: s, toasts: toasts}
	}
}

func searchMenu(client *ApiClient, query string) tea.Cmd {
	return func() tea.Msg {
		results, err := client.SearchMenu(query)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error searching menu: %v", err)}
		}
		return searchMsg{results: results}
	}
}

func resultRows(results []SearchResult) []table.Row {
	rows := make([]table.Row, len(results))
	for i, r := range results {
		rows[i] = table.Row{r.Item.Code, r.Item.Name, fmt.Sprintf("৳%d", r.Item.Price), r.CategoryID}
	}
	return rows
}

// chatView renders the last few messages
func chatView(s *Session) string {
	if s == nil {
		return "Connecting...\n"
	}
	messages := s.Messages
	if len(messages) > 12 {
		messages = messages[len(messages)-12:]
	}

	var b strings.Builder
	for _, msg := range messages {
		label := botStyle.Render("SeasonBot")
		if msg.Sender == "user" {
			label = userStyle.Render("You")
		}
		fmt.Fprintf(&b, "%s %s\n%s\n\n", label, msg.Timestamp.Format("03:04 PM"), msg.Content)
	}
	return b.String()
}

// cartView shows the draft order and totals
func cartView(s *Session) string {
	if s == nil {
		return "Connecting...\n"
	}
	var b strings.Builder
	if s.Order == nil || len(s.Order.Items) == 0 {
		b.WriteString("Your cart is empty\n")
	} else {
		for i, it := range s.Order.Items {
			fmt.Fprintf(&b, "%d. %s (x%d) ৳%d\n", i+1, it.Name, it.Quantity, it.Price*it.Quantity)
			if it.SpecialInstructions != "" {
				fmt.Fprintf(&b, "   Notes: %s\n", it.SpecialInstructions)
			}
		}
		fmt.Fprintf(&b, "\nSubtotal: ৳%d\nDelivery: ৳%d\nTotal: ৳%d\n", s.Totals.Subtotal, s.Totals.DeliveryFee, s.Totals.Total)
	}
	if s.LastOrder != nil {
		b.WriteString("\n" + successStyle.Render(fmt.Sprintf("Last order %s: ৳%d", s.LastOrder.ID, s.LastOrder.Total)) + "\n")
	}
	return b.String()
}

func toastView(t Toast) string {
	switch t.Kind {
	case "error":
		return errorStyle.Render(t.Message)
	case "info":
		return infoStyle.Render(t.Message)
	default:
		return successStyle.Render(t.Message)
	}
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v", err)
		os.Exit(1)
	}
}
