package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/wasmbind/schema"
)

type view int

const (
	viewFunctions view = iota
	viewArguments
	viewResult
)

// picker lists the exported functions of one session, collects arguments
// for the selected one and shows what the call returned.
type picker struct {
	ctx      context.Context
	err      error
	sess     *session
	filename string
	result   string
	funcs    []*schema.FunctionSignature
	inputs   []textinput.Model
	cursor   int
	focus    int
	view     view
}

type resultMsg struct {
	err    error
	result string
}

func newPicker(ctx context.Context, filename string, s *session) *picker {
	funcs := append([]*schema.FunctionSignature(nil), s.mod.Bundle().Functions...)
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].Name < funcs[j].Name })
	return &picker{ctx: ctx, sess: s, filename: filename, funcs: funcs}
}

func (p *picker) Init() tea.Cmd { return nil }

func (p *picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := p.key(msg.String()); handled {
			return p, cmd
		}
	case resultMsg:
		p.result, p.err = msg.result, msg.err
		p.view = viewResult
		return p, nil
	}

	if p.view != viewArguments {
		return p, nil
	}
	cmds := make([]tea.Cmd, len(p.inputs))
	for i := range p.inputs {
		p.inputs[i], cmds[i] = p.inputs[i].Update(msg)
	}
	return p, tea.Batch(cmds...)
}

// key handles navigation keys; anything else goes to the focused input.
func (p *picker) key(k string) (tea.Cmd, bool) {
	switch k {
	case "ctrl+c":
		return tea.Quit, true
	case "q":
		if p.view != viewArguments {
			return tea.Quit, true
		}
	case "up", "k":
		if p.view == viewFunctions {
			p.cursor = max(p.cursor-1, 0)
			return nil, true
		}
	case "down", "j":
		if p.view == viewFunctions {
			p.cursor = min(p.cursor+1, len(p.funcs)-1)
			return nil, true
		}
	case "tab", "shift+tab":
		if p.view == viewArguments && len(p.inputs) > 1 {
			step := 1
			if k == "shift+tab" {
				step = len(p.inputs) - 1
			}
			p.inputs[p.focus].Blur()
			p.focus = (p.focus + step) % len(p.inputs)
			p.inputs[p.focus].Focus()
			return nil, true
		}
	case "enter":
		switch p.view {
		case viewFunctions:
			if len(p.funcs) == 0 {
				return nil, true
			}
			p.prepareInputs()
			if len(p.inputs) == 0 {
				return p.call, true
			}
			p.view = viewArguments
		case viewArguments:
			return p.call, true
		case viewResult:
			p.reset()
		}
		return nil, true
	case "esc":
		if p.view != viewFunctions {
			p.reset()
			return nil, true
		}
	}
	return nil, false
}

func (p *picker) reset() {
	p.view = viewFunctions
	p.inputs = nil
	p.result, p.err = "", nil
}

func (p *picker) prepareInputs() {
	f := p.funcs[p.cursor]
	p.inputs = make([]textinput.Model, len(f.Params))
	for i, param := range f.Params {
		in := textinput.New()
		in.Prompt = paramLabel(param, i) + ": "
		in.Placeholder = param.Type.String()
		in.Width = 48
		if i == 0 {
			in.Focus()
		}
		p.inputs[i] = in
	}
	p.focus = 0
}

func paramLabel(p schema.Param, i int) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("arg%d", i)
}

func (p *picker) call() tea.Msg {
	f := p.funcs[p.cursor]
	args := make([]any, len(p.inputs))
	for i, in := range p.inputs {
		v, err := inputValue(f.Params[i].Type, in.Value())
		if err != nil {
			return resultMsg{err: fmt.Errorf("%s: %w", paramLabel(f.Params[i], i), err)}
		}
		args[i] = v
	}
	res, err := p.sess.inst.Call(p.ctx, f.Name, args...)
	if err != nil {
		return resultMsg{err: err}
	}
	out, err := formatResult(p.sess.records(), res)
	return resultMsg{result: out, err: err}
}

// inputValue takes string arguments verbatim and decodes everything else
// as JSON.
func inputValue(t schema.Type, raw string) (any, error) {
	if t.Kind() == schema.KindString {
		return raw, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (p *picker) View() string {
	var b strings.Builder
	b.WriteString(bannerStyle.Render("wasmbind"))
	b.WriteString(" " + p.filename + "\n\n")

	switch p.view {
	case viewFunctions:
		if len(p.funcs) == 0 {
			b.WriteString("The module exports no described functions.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select a function:\n\n")
		for i, f := range p.funcs {
			if i == p.cursor {
				b.WriteString(selectedStyle.Render("> " + formatSignature(f)))
			} else {
				b.WriteString("  " + formatSignature(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n" + helpStyle.Render("↑/↓ select • enter call • q quit"))

	case viewArguments:
		f := p.funcs[p.cursor]
		fmt.Fprintf(&b, "Calling %s\n\n", nameStyle.Render(f.Name))
		for i, in := range p.inputs {
			b.WriteString(in.View() + " " + typeStyle.Render(f.Params[i].Style.String()+f.Params[i].Type.String()) + "\n")
		}
		b.WriteString("\n" + helpStyle.Render("tab next field • enter call • esc back"))

	case viewResult:
		fmt.Fprintf(&b, "%s returned:\n\n", nameStyle.Render(p.funcs[p.cursor].Name))
		if p.err != nil {
			b.WriteString(errStyle.Render("error: ") + p.err.Error())
		} else {
			b.WriteString(resultStyle.Render(p.result))
		}
		b.WriteString("\n\n" + helpStyle.Render("enter continue • q quit"))
	}
	return b.String()
}

func runInteractive(ctx context.Context, filename string, s *session) error {
	prog := tea.NewProgram(newPicker(ctx, filename, s), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	return err
}
