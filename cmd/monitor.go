// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var monitorInterval time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Continuously show the device's state",
	Long: `Polls the device and shows its metadata, port configuration and
message counters in a full-screen view. Press 'c' to switch the active
channel, 'q' to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, reply, err := Connect()
		if err != nil {
			return err
		}
		defer client.Close()

		program := tea.NewProgram(initialMonitorModel(client, reply))
		_, err = program.Run()
		return err
	},
}

type monitorReplyMsg struct {
	reply map[string]any
	err   error
}

type monitorTickMsg time.Time

type monitorModel struct {
	client *Client
	reply  map[string]any
	err    error

	channelInput textinput.Model
	editing      bool

	width    int
	height   int
	quitting bool
}

func initialMonitorModel(client *Client, reply map[string]any) monitorModel {
	input := textinput.New()
	input.Placeholder = "0"
	input.CharLimit = 3
	input.Width = 6

	return monitorModel{
		client:       client,
		reply:        reply,
		channelInput: input,
		width:        80,
		height:       24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(monitorTickCmd(), tea.EnterAltScreen)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(monitorInterval, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) pollCmd() tea.Cmd {
	return func() tea.Msg {
		reply, err := m.client.GetAll()
		return monitorReplyMsg{reply: reply, err: err}
	}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			switch msg.String() {
			case "enter":
				m.editing = false
				m.channelInput.Blur()
				if channel, err := strconv.Atoi(m.channelInput.Value()); err == nil {
					client := m.client
					return m, func() tea.Msg {
						reply, err := client.Call(map[string]any{
							"method":  "switchChannel",
							"channel": channel,
						})
						return monitorReplyMsg{reply: reply, err: err}
					}
				}
				return m, nil

			case "esc":
				m.editing = false
				m.channelInput.Blur()
				return m, nil
			}

			var cmd tea.Cmd
			m.channelInput, cmd = m.channelInput.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "c":
			m.editing = true
			m.channelInput.SetValue("")
			return m, m.channelInput.Focus()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		return m, tea.Batch(m.pollCmd(), monitorTickCmd())

	case monitorReplyMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.reply = msg.reply
	}

	return m, nil
}

// formatUptime renders a seconds count as a human-friendly duration.
func formatUptime(seconds uint64) string {
	days := seconds / 86400
	hours := (seconds / 3600) % 24
	minutes := (seconds / 60) % 60
	seconds %= 60

	parts := []string{}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))
	return strings.Join(parts, " ")
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	metadata, _ := m.reply["metadata"].(map[string]any)
	system, _ := m.reply["system"].(map[string]any)

	var s strings.Builder
	title := "V2 DEVICE"
	if metadata != nil {
		if product, ok := metadata["product"].(string); ok {
			title = strings.ToUpper(product)
		}
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render("Press 'c' to switch the channel, 'q' to quit"))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %v", m.err)))
		s.WriteString("\n\n")
	}

	info := strings.Builder{}
	if metadata != nil {
		info.WriteString(fmt.Sprintf("%s %s   %s %v\n",
			labelStyle.Render("Serial:"), valueStyle.Render(fmt.Sprintf("%v", metadata["serial"])),
			labelStyle.Render("Version:"), metadata["version"],
		))
	}

	if system != nil {
		if boot, ok := system["boot"].(map[string]any); ok {
			if uptime, ok := boot["uptime"].(float64); ok {
				info.WriteString(fmt.Sprintf("%s %s\n",
					labelStyle.Render("Uptime:"), valueStyle.Render(formatUptime(uint64(uptime)))))
			}
		}

		if hardware, ok := system["hardware"].(map[string]any); ok {
			if usb, ok := hardware["usb"].(map[string]any); ok {
				if ports, ok := usb["ports"].(map[string]any); ok {
					info.WriteString(fmt.Sprintf("%s %v configured, %v current\n",
						labelStyle.Render("Ports:"), ports["configured"], ports["current"]))
				}
			}
		}
	}

	s.WriteString(boxStyle.Render(strings.TrimRight(info.String(), "\n")))
	s.WriteString("\n\n")

	if system != nil {
		if midi, ok := system["midi"].(map[string]any); ok {
			counters := strings.Builder{}
			for _, direction := range []string{"input", "output"} {
				section, ok := midi[direction].(map[string]any)
				if !ok {
					continue
				}
				counters.WriteString(labelStyle.Render(direction + ":"))
				for _, key := range []string{"packet", "note", "noteOff", "aftertouch", "control", "program", "pitchbend"} {
					if value, ok := section[key]; ok {
						counters.WriteString(fmt.Sprintf(" %s %v", headerStyle.Render(key), value))
					}
				}
				if system, ok := section["system"].(map[string]any); ok {
					if value, ok := system["exclusive"]; ok {
						counters.WriteString(fmt.Sprintf(" %s %v", headerStyle.Render("sysex"), value))
					}
				}
				counters.WriteString("\n")
			}

			if counters.Len() > 0 {
				s.WriteString(labelStyle.Render("MIDI Counters:"))
				s.WriteString("\n")
				s.WriteString(boxStyle.Render(strings.TrimRight(counters.String(), "\n")))
				s.WriteString("\n\n")
			}
		}
	}

	if m.editing {
		s.WriteString(labelStyle.Render("Channel: "))
		s.WriteString(m.channelInput.View())
		s.WriteString("\n")
	}

	return s.String()
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", time.Second, "Poll interval")
	rootCmd.AddCommand(monitorCmd)
}
