package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModelFinishesOnDoneMsg(t *testing.T) {
	m := newModel(context.Background(), "purge sessions", nil)

	next, _ := m.Update(tickMsg{})
	m = next.(model)
	if m.frame != 1 || m.done {
		t.Fatalf("expected spinner to advance, got frame=%d done=%v", m.frame, m.done)
	}

	next, cmd := m.Update(doneMsg{details: []string{"purged=3"}})
	m = next.(model)
	if !m.done || cmd == nil {
		t.Fatal("expected done model and quit command")
	}
	view := m.View()
	if !strings.Contains(view, "purge sessions") || !strings.Contains(view, "purged=3") {
		t.Fatalf("unexpected view %q", view)
	}
}

func TestModelShowsError(t *testing.T) {
	m := newModel(context.Background(), "migrate", nil)
	next, _ := m.Update(doneMsg{err: errors.New("db down")})
	if view := next.(model).View(); !strings.Contains(view, "db down") {
		t.Fatalf("expected error in view, got %q", view)
	}
}

func TestModelCtrlCCancels(t *testing.T) {
	m := newModel(context.Background(), "migrate", nil)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !errors.Is(next.(model).err, context.Canceled) {
		t.Fatal("expected ctrl+c to cancel")
	}
}

func TestTableAlignsColumns(t *testing.T) {
	out := Table([]string{"ID", "ACTIVE"}, [][]string{{"1", "true"}, {"1234", "false"}, {"7"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[2], "1234  false") {
		t.Fatalf("unexpected row %q", lines[2])
	}
	if !strings.HasPrefix(lines[1], "1     true") {
		t.Fatalf("expected padded first column, got %q", lines[1])
	}
}
