package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-windowing/event"
	"github.com/wippyai/wasm-windowing/host"
	"github.com/wippyai/wasm-windowing/native"
	"github.com/wippyai/wasm-windowing/resource"
)

var (
	inspectTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 1)

	faultStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	ackStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	discardStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

const (
	recentEvents = 12
	// only every tickEvery-th loop tick reaches the view
	tickEvery = 15
	// msgBuffer bounds updates waiting for the view; extra updates are dropped
	msgBuffer = 256
)

type windowMsg struct {
	handle  resource.Handle
	id      uint64
	created bool
}

type recordMsg host.Record

type tickMsg uint64

// inspector is a terminal view of live windows and dispatched events. It
// never blocks the goroutine that feeds it.
type inspector struct {
	program *tea.Program
	msgs    chan tea.Msg
	done    chan struct{}
}

func newInspector(guest string, cancel context.CancelFunc) *inspector {
	m := newInspectModel(guest, cancel)
	return &inspector{
		program: tea.NewProgram(m, tea.WithOutput(os.Stderr)),
		msgs:    make(chan tea.Msg, msgBuffer),
		done:    make(chan struct{}),
	}
}

func (in *inspector) start() {
	go func() {
		defer close(in.done)
		_, _ = in.program.Run()
	}()
	go func() {
		for {
			select {
			case msg := <-in.msgs:
				in.program.Send(msg)
			case <-in.done:
				return
			}
		}
	}()
}

func (in *inspector) stop() {
	in.program.Quit()
	<-in.done
}

func (in *inspector) send(msg tea.Msg) {
	select {
	case in.msgs <- msg:
	default:
	}
}

func (in *inspector) windowObserver() resource.Observer[native.Window] {
	return resource.ObserverFunc[native.Window](func(e resource.Event[native.Window]) {
		in.send(windowMsg{handle: e.Handle, id: e.Value.ID(), created: e.Type == resource.EventCreated})
	})
}

func (in *inspector) observeDispatch(r host.Record) {
	if r.State == host.StateReceived || r.State == host.StateNormalized {
		return
	}
	in.send(recordMsg(r))
}

func (in *inspector) tick(n uint64) {
	if n%tickEvery == 0 {
		in.send(tickMsg(n))
	}
}

type inspectModel struct {
	cancel  context.CancelFunc
	windows map[resource.Handle]uint64
	table   table.Model
	guest   string
	recent  []host.Record
	ticks   uint64
	events  uint64
	dropped uint64
}

func newInspectModel(guest string, cancel context.CancelFunc) *inspectModel {
	cols := []table.Column{
		{Title: "Handle", Width: 10},
		{Title: "Window", Width: 10},
	}
	t := table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(6))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true)
	t.SetStyles(styles)
	return &inspectModel{
		cancel:  cancel,
		guest:   guest,
		table:   t,
		windows: make(map[resource.Handle]uint64),
	}
}

func (m *inspectModel) Init() tea.Cmd { return nil }

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
			return m, tea.Quit
		}
	case windowMsg:
		if msg.created {
			m.windows[msg.handle] = msg.id
		} else {
			delete(m.windows, msg.handle)
			m.dropped++
		}
		m.table.SetRows(m.rows())
		return m, nil
	case recordMsg:
		if msg.State.Terminal() {
			m.events++
		}
		m.recent = append(m.recent, host.Record(msg))
		if len(m.recent) > recentEvents {
			m.recent = m.recent[len(m.recent)-recentEvents:]
		}
		return m, nil
	case tickMsg:
		m.ticks = uint64(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *inspectModel) rows() []table.Row {
	handles := make([]resource.Handle, 0, len(m.windows))
	for h := range m.windows {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	rows := make([]table.Row, 0, len(handles))
	for _, h := range handles {
		rows = append(rows, table.Row{fmt.Sprintf("%#x", uint32(h)), fmt.Sprint(m.windows[h])})
	}
	return rows
}

func (m *inspectModel) View() string {
	var b strings.Builder

	b.WriteString(inspectTitleStyle.Render("windowhost"))
	b.WriteString(" ")
	b.WriteString(m.guest)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "windows %d live, %d dropped   events %d   ticks %d\n\n",
		len(m.windows), m.dropped, m.events, m.ticks)

	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	for _, r := range m.recent {
		line := fmt.Sprintf("#%-5d window %-4d %-28s %s", r.Seq, r.Window, describe(r.Event), r.State)
		switch r.State {
		case host.StateFaulted:
			line = faultStyle.Render(fmt.Sprintf("%s: %v", line, r.Err))
		case host.StateAcknowledged:
			line = ackStyle.Render(line)
		case host.StateDiscarded:
			line = discardStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ scroll • q quit"))
	return b.String()
}

func describe(ev event.Event) string {
	if ev == nil {
		return "-"
	}
	return event.String(ev)
}
