package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/cbridge/ctype"
	"github.com/wippyai/cbridge/proxy"
	"github.com/wippyai/cbridge/runtime"
	"github.com/wippyai/cbridge/schema"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	mockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type inspectModel struct {
	err         error
	env         *runtime.Environment
	sch         *schema.Schema
	schemaFiles string
	wasmFile    string
	result      string
	funcs       []funcEntry
	layouts     string
	inputs      []textinput.Model
	selected    int
	focusIdx    int
	state       modelState
}

type funcEntry struct {
	name     string
	ft       *ctype.Func
	unbacked bool // no native implementation; echo-mocked on call
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
	stateShowTypes
)

func newInspectModel(schemaFiles, wasmFile string) *inspectModel {
	return &inspectModel{
		schemaFiles: schemaFiles,
		wasmFile:    wasmFile,
		state:       stateSelectFunc,
	}
}

type loadedMsg struct {
	err     error
	env     *runtime.Environment
	sch     *schema.Schema
	funcs   []funcEntry
	layouts string
}

type callResultMsg struct {
	err    error
	result string
}

func (m *inspectModel) Init() tea.Cmd {
	return m.load
}

func (m *inspectModel) load() tea.Msg {
	sch, env, err := loadEnvironment(context.Background(), m.schemaFiles, m.wasmFile)
	if err != nil {
		return loadedMsg{err: err}
	}

	unresolved := make(map[string]bool)
	for _, name := range env.Unresolved() {
		unresolved[name] = true
	}

	var funcs []funcEntry
	for _, fd := range sch.Funcs {
		fn, err := env.Func(fd.Name)
		if err != nil {
			continue
		}
		funcs = append(funcs, funcEntry{
			name:     fd.Name,
			ft:       fn.Type().(*ctype.Func),
			unbacked: unresolved[fd.Name],
		})
	}

	var lb strings.Builder
	for _, decl := range sch.Types {
		t, ok := env.Type(decl.Name)
		if !ok {
			continue
		}
		if st, isStruct := t.(*ctype.Struct); isStruct && st.Complete() {
			lay, err := st.Layout()
			if err != nil {
				continue
			}
			fmt.Fprintf(&lb, "%s  (size %d, align %d)\n", st.CDef(""), lay.Size, lay.Align)
			for _, mem := range st.Members() {
				fmt.Fprintf(&lb, "  +%-4d %s\n", mem.Offset, mem.Type.CDef(mem.Name))
			}
			lb.WriteString("\n")
		} else {
			fmt.Fprintf(&lb, "%s\n\n", t.CDef(decl.Name))
		}
	}

	return loadedMsg{env: env, sch: sch, funcs: funcs, layouts: lb.String()}
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputArgs && msg.String() == "q" {
				break // let the text input consume it
			}
			if m.env != nil {
				m.env.Close()
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "t":
			if m.state == stateSelectFunc {
				m.state = stateShowTypes
				return m, nil
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					break
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult, stateShowTypes:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult, stateShowTypes:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.env = msg.env
		m.sch = msg.sch
		m.funcs = msg.funcs
		m.layouts = msg.layouts

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *inspectModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.ft.Params()))
	for i, pt := range f.ft.Params() {
		ti := textinput.New()
		ti.Placeholder = pt.String()
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *inspectModel) callFunction() tea.Msg {
	f := m.funcs[m.selected]

	// Unimplemented functions get an echo mock so browsing works without
	// writing a handler first.
	if f.unbacked {
		if err := m.env.Mock(f.name, echoMock(f.ft)); err != nil {
			return callResultMsg{err: err}
		}
	}

	fn, err := m.env.Func(f.name)
	if err != nil {
		return callResultMsg{err: err}
	}

	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = convertArg(input.Value(), f.ft.Params()[i])
	}

	result, err := fn.Call(args...)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: fmt.Sprintf("%v", result)}
}

// echoMock returns the first argument (or the return type's null value),
// enough to see data flow through the bridge.
func echoMock(ft *ctype.Func) proxy.HostFunc {
	return func(args []*proxy.Proxy) (any, error) {
		if ft.Return() == nil {
			return nil, nil
		}
		if len(args) > 0 {
			return args[0].Val()
		}
		return nil, nil
	}
}

func (m *inspectModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.env == nil {
		return "Loading schema..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("cbridge inspect"))
	b.WriteString(" ")
	b.WriteString(m.schemaFiles)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			line := m.formatFunc(f)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • t types • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(f.ft.Params()[i].String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))

	case stateShowTypes:
		b.WriteString("Type layouts:\n\n")
		b.WriteString(typeStyle.Render(m.layouts))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
	}

	return b.String()
}

func (m *inspectModel) formatFunc(f funcEntry) string {
	decl := f.ft.CDef(funcStyle.Render(f.name))
	if f.unbacked {
		return decl + mockStyle.Render("  [mock]")
	}
	return decl
}

func runInteractive(schemaFiles, wasmFile string) error {
	p := tea.NewProgram(newInspectModel(schemaFiles, wasmFile), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
