package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinePrompter(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		defaultYes bool
		want       bool
	}{
		{name: "y on default no", input: "y\n", want: true},
		{name: "Y on default no", input: "  Y \n", want: true},
		{name: "yes word on default no", input: "yes\n", want: false},
		{name: "empty on default no", input: "\n", want: false},
		{name: "eof on default no", input: "", want: false},
		{name: "empty on default yes", input: "\n", defaultYes: true, want: true},
		{name: "n on default yes", input: "n\n", defaultYes: true, want: false},
		{name: "anything else on default yes", input: "maybe\n", defaultYes: true, want: true},
		{name: "eof on default yes", input: "", defaultYes: true, want: true},
		{name: "no trailing newline", input: "y", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := NewLinePrompter(strings.NewReader(tt.input), &out).Confirm("Proceed?", tt.defaultYes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Proceed? ")
		})
	}
}

func TestLinePrompter_Sequence(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("y\nn\n"), &out)

	first, err := p.Confirm("Close Orion to continue?", false)
	require.NoError(t, err)
	second, err := p.Confirm("Restart Orion?", true)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.Contains(t, out.String(), "(y/N)")
	assert.Contains(t, out.String(), "(Y/n)")
}

func TestConfirmModel(t *testing.T) {
	press := func(m confirmModel, k tea.KeyMsg) confirmModel {
		next, _ := m.Update(k)
		return next.(confirmModel)
	}

	m := press(newConfirmModel("Apply?", false), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	assert.True(t, m.done)
	assert.True(t, m.answer)
	assert.Contains(t, m.View(), "yes")

	m = press(newConfirmModel("Apply?", true), tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.answer)

	m = press(newConfirmModel("Apply?", true), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("N")})
	assert.False(t, m.answer)

	m = press(newConfirmModel("Apply?", false), tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, m.interrupted)

	m = press(newConfirmModel("Apply?", false), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.False(t, m.done, "other keys are ignored")
	assert.Contains(t, m.View(), "Apply?")
}

func TestPlainRunner(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(&out)
	require.IsType(t, &PlainRunner{}, r)

	called := false
	require.NoError(t, r.Run(context.Background(), "Scanning profile", func(context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)
	assert.Contains(t, out.String(), "Scanning profile")

	boom := errors.New("boom")
	assert.ErrorIs(t, r.Run(context.Background(), "Failing", func(context.Context) error { return boom }), boom)
}

func TestPrinter(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out)
	p.Title("ORION SPEED OPTIMIZER")
	p.Section("Diagnosis")
	p.Success("Backed up %s", "Bookmarks.plist")
	p.Warn("Failed to clean %s", "Cache")
	p.Line("Size: %.1f MB", 12.5)

	s := out.String()
	for _, want := range []string{"ORION SPEED OPTIMIZER", "Diagnosis", "Backed up Bookmarks.plist", "Failed to clean Cache", "Size: 12.5 MB"} {
		assert.Contains(t, s, want)
	}
}
