package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up, Down, Left, Right key.Binding
	Toggle                key.Binding
	Play                  key.Binding
	TempoUp, TempoDown    key.Binding
	StepsUp, StepsDown    key.Binding
	Scale, Tonic          key.Binding
	Audition              key.Binding
	Randomize             key.Binding
	Edit                  key.Binding
	NudgeDown, NudgeUp    key.Binding
	Commit, Cancel        key.Binding
	Pads                  key.Binding
	Help                  key.Binding
	Quit                  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "voice up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "voice down")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "step left")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "step right")),
		Toggle:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "toggle")),
		Play:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play")),
		TempoUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "tempo up")),
		TempoDown: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "tempo down")),
		StepsUp:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "more steps")),
		StepsDown: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "fewer steps")),
		Scale:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "next scale")),
		Tonic:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "next tonic")),
		Audition:  key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8"), key.WithHelp("1-8", "audition")),
		Randomize: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "randomize")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "params")),
		NudgeDown: key.NewBinding(key.WithKeys(","), key.WithHelp(",", "param down")),
		NudgeUp:   key.NewBinding(key.WithKeys("."), key.WithHelp(".", "param up")),
		Commit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Pads:      key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "pads")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Play, k.TempoUp, k.TempoDown, k.Edit, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Toggle},
		{k.Play, k.TempoUp, k.TempoDown, k.StepsUp, k.StepsDown},
		{k.Scale, k.Tonic, k.Audition, k.Randomize},
		{k.Edit, k.NudgeDown, k.NudgeUp, k.Commit, k.Cancel},
		{k.Pads, k.Help, k.Quit},
	}
}
