package inspect

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"golang.org/x/term"

	"github.com/wippyai/thunk-runtime/thunk"
)

var (
	funcStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#98FB98"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	branchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))
)

// Styled reports whether output to f should carry terminal styling.
func Styled(f *os.File) bool {
	if f == nil || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Tree renders the captured-argument tree of v.
func Tree(v thunk.Value, styled bool) string {
	s, err := Capture(v)
	if err != nil {
		return "<nil>"
	}
	return s.Tree(styled)
}

// Tree renders the snapshot as a tree of captured arguments. Slots that have
// not been applied yet are listed as pending.
func (s *Snapshot) Tree(styled bool) string {
	t := s.node("", styled)
	if styled {
		t = t.EnumeratorStyle(branchStyle)
	}
	return t.String()
}

func (s *Snapshot) node(prefix string, styled bool) *tree.Tree {
	t := tree.Root(s.label(prefix, styled))
	for i := range s.Args {
		arg := &s.Args[i]
		prefix := fmt.Sprintf("[%d] ", i)
		if arg.Kind == KindFunction {
			t.Child(arg.node(prefix, styled))
			continue
		}
		t.Child(arg.label(prefix, styled))
	}
	for i := s.Rank(); i < s.Arity; i++ {
		t.Child(render(pendingStyle, fmt.Sprintf("[%d] _", i), styled))
	}
	return t
}

func (s *Snapshot) label(prefix string, styled bool) string {
	if s.Kind == KindValue {
		return render(valueStyle, prefix+s.String(), styled)
	}
	return render(funcStyle, prefix+s.String(), styled)
}

func render(style lipgloss.Style, text string, styled bool) string {
	if !styled {
		return text
	}
	return style.Render(text)
}
