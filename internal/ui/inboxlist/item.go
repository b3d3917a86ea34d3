package inboxlist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/inbox-summarizer/internal/model"
	"github.com/nhle/inbox-summarizer/internal/theme"
)

// snippetWidth caps how much of the snippet is shown on the second line.
const snippetWidth = 80

// MessageItem wraps a model.NormalizedMessage so it can be used in a
// bubbles/list.
type MessageItem struct {
	Message  model.NormalizedMessage
	Analyzed bool
}

// FilterValue returns the string used for fuzzy filtering.
func (i MessageItem) FilterValue() string {
	return i.Message.Subject + " " + i.Message.Sender
}

// Title returns the message subject for the list.
func (i MessageItem) Title() string { return i.Message.Subject }

// Description returns the sender and fetch time for the list.
func (i MessageItem) Description() string {
	return i.Message.Sender + " | " + relativeTime(i.Message.FetchedAt)
}

// FailedItem represents a message that could not be fetched. It keeps
// the slot visible in the list instead of silently dropping it.
type FailedItem struct {
	ID  string
	Err error
}

// FilterValue returns the string used for fuzzy filtering.
func (i FailedItem) FilterValue() string { return i.ID }

// ItemDelegate implements list.ItemDelegate for rendering inbox rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single inbox row: subject, sender and fetch time on
// the first line, the snippet on the second.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	isSelected := index == m.Index()

	if failed, ok := item.(FailedItem); ok {
		line := theme.ErrorStyle.Render(
			fmt.Sprintf("! %s  fetch failed: %v", failed.ID, failed.Err),
		)
		if isSelected {
			line = theme.SelectedItemStyle.Render(line)
		} else {
			line = theme.ListItemStyle.Render(line)
		}
		fmt.Fprint(w, line+"\n")
		return
	}

	msgItem, ok := item.(MessageItem)
	if !ok {
		return
	}

	msg := msgItem.Message
	analyzedBadge := ""
	if msgItem.Analyzed {
		analyzedBadge = theme.SectionTitleStyle.Render(" *")
	}

	header := fmt.Sprintf(
		"%s  %s  %s%s",
		msg.Subject,
		theme.SenderStyle.Render(msg.Sender),
		theme.SnippetStyle.Render(relativeTime(msg.FetchedAt)),
		analyzedBadge,
	)
	snippet := theme.SnippetStyle.Render("  " + truncate(msg.Snippet, snippetWidth))

	if isSelected {
		header = theme.SelectedItemStyle.Render(header)
	} else {
		header = theme.ListItemStyle.Render(header)
	}

	fmt.Fprint(w, header+"\n"+snippet)
}

// truncate shortens s to at most n runes, appending an ellipsis when
// anything was cut. Newlines are flattened so the row stays one line.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case d < 24*time.Hour:
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hrs)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		weeks := int(d.Hours() / 24 / 7)
		if weeks == 1 {
			return "1w ago"
		}
		return fmt.Sprintf("%dw ago", weeks)
	}
}
