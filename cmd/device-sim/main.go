// device-sim drives a fake machine from the terminal: space starts and stops
// a run, and every stop is posted to the server as a session.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

type step int

const (
	stepEnteringDeviceID step = iota
	stepIdle
	stepRunning
	stepSending
)

type model struct {
	step         step
	client       *apiClient
	deviceID     string
	currentInput string
	startedAt    time.Time
	last         *session
	sent         int
	duplicates   int
	message      string
	quitting     bool
}

type tickMsg time.Time
type sentMsg struct {
	result  *ingestResult
	message string
}
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func initialModel(client *apiClient, deviceID string) model {
	m := model{step: stepEnteringDeviceID, client: client}
	if deviceID != "" {
		m.deviceID = deviceID
		m.step = stepIdle
	}
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func sendSession(client *apiClient, s session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		res, message, err := client.postSession(ctx, s)
		if err != nil {
			return errMsg{err}
		}
		return sentMsg{result: res, message: message}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.step == stepEnteringDeviceID {
			switch msg.String() {
			case "ctrl+c":
				m.quitting = true
				return m, tea.Quit
			case "backspace":
				if len(m.currentInput) > 0 {
					m.currentInput = m.currentInput[:len(m.currentInput)-1]
				}
			case "enter":
				if m.currentInput != "" {
					m.deviceID = strings.TrimSpace(m.currentInput)
					m.currentInput = ""
					m.step = stepIdle
				}
			default:
				m.currentInput += msg.String()
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit

		case " ":
			switch m.step {
			case stepIdle:
				m.startedAt = time.Now()
				m.step = stepRunning
				m.message = ""
				return m, tick()
			case stepRunning:
				s := newSession(m.deviceID, m.startedAt, time.Now())
				m.last = &s
				m.step = stepSending
				m.message = "Sending session..."
				return m, sendSession(m.client, s)
			}

		case "r":
			// replay the last session; the server must recognise it
			if m.step == stepIdle && m.last != nil {
				m.step = stepSending
				m.message = "Resending last session..."
				return m, sendSession(m.client, *m.last)
			}
		}

	case tickMsg:
		if m.step == stepRunning {
			return m, tick()
		}

	case sentMsg:
		m.step = stepIdle
		m.sent++
		if msg.result.IsDuplicate {
			m.duplicates++
		}
		m.message = successStyle.Render(fmt.Sprintf("✓ %s (%s, %d ms)", msg.message, msg.result.SessionID, msg.result.ComputedDurationMs))

	case errMsg:
		m.step = stepIdle
		m.message = errorStyle.Render("✗ " + msg.err.Error())
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Device Session Simulator\n\n"))

	if m.step == stepEnteringDeviceID {
		s.WriteString(promptStyle.Render("Enter device id:\n"))
		s.WriteString(inputStyle.Render("> " + m.currentInput))
		s.WriteString("\n\nPress Enter\n")
		return s.String()
	}

	s.WriteString(fmt.Sprintf("Device: %s\n", m.deviceID))
	switch m.step {
	case stepRunning:
		elapsed := time.Since(m.startedAt).Truncate(time.Second)
		s.WriteString(runningStyle.Render("● RUNNING " + elapsed.String()))
	case stepSending:
		s.WriteString(idleStyle.Render("○ STOPPED"))
	default:
		s.WriteString(idleStyle.Render("○ IDLE"))
	}
	s.WriteString(fmt.Sprintf("\n\nSessions sent: %d (duplicates: %d)\n", m.sent, m.duplicates))
	if m.message != "" {
		s.WriteString("\n" + m.message + "\n")
	}
	s.WriteString("\nspace start/stop, r resend last, q quit\n")

	return s.String()
}

func main() {
	server := flag.String("server", "http://localhost:3536", "Base URL of the monitoring server")
	token := flag.String("token", os.Getenv("DEVICE_TOKEN"), "Bearer token (defaults to $DEVICE_TOKEN)")
	deviceID := flag.String("device", "", "Device id to report as")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "a token is required; run cmd/seed to issue one")
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel(newAPIClient(*server, *token), *deviceID))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
