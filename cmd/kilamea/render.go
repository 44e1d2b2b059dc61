package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/kilamea/internal/model"
	ksync "github.com/nhle/kilamea/internal/sync"
	"github.com/nhle/kilamea/internal/theme"
	"github.com/nhle/kilamea/internal/transport"
)

const dateLayout = "2006-01-02 15:04"

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// cell truncates s to width runes and pads it to exactly width columns.
func cell(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) > width {
		s = string(r[:width-1]) + "…"
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(dateLayout)
}

func renderAccounts(w io.Writer, accounts []*model.Account) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("No accounts. Add one with `kilamea account add`."))
		return
	}

	for _, account := range accounts {
		header := theme.HeaderStyle.Render(account.DisplayNameAndEmail()) +
			theme.ProtocolLabelStyle(account.Protocol.String()).Render(account.Protocol.String())
		fmt.Fprintln(w, header)

		in := fmt.Sprintf("in:  %s:%d", account.IncomingHost, account.IncomingPort)
		out := fmt.Sprintf("out: %s:%d", account.OutgoingHost, account.OutgoingPort)
		if !account.SSLActive {
			out += " (no TLS)"
		}
		fmt.Fprintln(w, theme.HelpStyle.Render(in+"  "+out))

		for _, folder := range account.Folders {
			count := fmt.Sprintf("%d", len(folder.Messages))
			if unread := folder.UnreadCount(); unread > 0 {
				count = theme.UnreadStyle.Render(fmt.Sprintf("%d unread", unread)) + " / " + count
			}
			fmt.Fprintf(w, "  %s %s\n", cell(folder.Name, 20), count)
		}
		fmt.Fprintln(w)
	}
}

func renderMessages(w io.Writer, account *model.Account, folder *model.Folder) {
	title := fmt.Sprintf("%s / %s", account.Email, folder.Name)
	if !folder.Filter.IsEmpty() {
		title += fmt.Sprintf(" (filter %q)", folder.Filter.Text)
	}
	fmt.Fprintln(w, theme.HeaderStyle.Render(title))

	if len(folder.Messages) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("No messages."))
		return
	}

	fmt.Fprintln(w, theme.ColumnStyle.Render(
		cell("ID", 9)+cell("Date", 17)+cell("From", 28)+cell("Subject", 40)+"Att"))

	for _, msg := range folder.Messages {
		style := theme.ReadStyle
		if msg.Unread {
			style = theme.UnreadStyle
		}
		date := msg.SentAt
		if date.IsZero() {
			date = msg.ReceivedAt
		}
		att := ""
		if n := len(msg.Attachments); n > 0 {
			att = fmt.Sprintf("%d", n)
		}
		fmt.Fprintln(w, style.Render(
			cell(shortID(msg.ID), 9)+cell(formatTime(date), 17)+cell(msg.From, 28)+cell(msg.Subject, 40)+att))
	}
}

func renderMessage(w io.Writer, msg *model.Message) {
	var b strings.Builder
	field := func(name, value string) {
		if value == "" {
			return
		}
		b.WriteString(theme.ColumnStyle.Render(cell(name+":", 9)))
		b.WriteString(value)
		b.WriteString("\n")
	}

	field("From", msg.From)
	field("To", msg.To)
	field("Cc", msg.Cc)
	field("Bcc", msg.Bcc)
	field("Date", formatTime(msg.SentAt))
	field("Subject", msg.Subject)
	for _, att := range msg.Attachments {
		field("Attach", fmt.Sprintf("%s (%d bytes)", att.FileName, att.Size()))
	}

	fmt.Fprintln(w, theme.BorderStyle.Render(strings.TrimRight(b.String(), "\n")))
	fmt.Fprintln(w, msg.Content)
}

func renderContacts(w io.Writer, contacts []*model.Contact) {
	if len(contacts) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("No contacts."))
		return
	}
	fmt.Fprintln(w, theme.ColumnStyle.Render(cell("Email", 36)+"Name"))
	for _, c := range contacts {
		name := strings.TrimSpace(c.FirstName + " " + c.LastName)
		fmt.Fprintln(w, cell(c.Email, 36)+name)
	}
}

func renderOptions(w io.Writer, o model.Options) {
	rows := [][2]string{
		{"mail-sort-field", o.MailSortField.String()},
		{"mail-sort-order", o.MailSortOrder.String()},
		{"contact-sort-field", o.ContactSortField.String()},
		{"contact-sort-order", o.ContactSortOrder.String()},
		{"retrieve-on-start", fmt.Sprintf("%t", o.RetrieveOnStart)},
		{"delete-from-server", fmt.Sprintf("%t", o.DeleteFromServer)},
	}
	for _, r := range rows {
		fmt.Fprintln(w, theme.ColumnStyle.Render(cell(r[0], 20))+r[1])
	}
}

func renderReceiveResults(w io.Writer, results []*ksync.ReceiveResult) {
	for _, r := range results {
		if r == nil || r.Account == nil {
			continue
		}
		name := cell(r.Account.Email, 32)
		if r.Err != nil {
			msg := r.Err.Error()
			if transport.IsAuthError(r.Err) {
				msg = "authentication failed, check the password or tokens"
			}
			fmt.Fprintln(w, name+theme.ErrorStyle.Render(msg))
			continue
		}
		line := fmt.Sprintf("%d new", len(r.Received))
		if r.Skipped > 0 {
			line += fmt.Sprintf(", %d already stored", r.Skipped)
		}
		if r.Expunged > 0 {
			line += fmt.Sprintf(", %d removed from server", r.Expunged)
		}
		fmt.Fprintln(w, name+line)
	}
}

func renderPollResult(w io.Writer, res ksync.PollResult, statuses []ksync.SyncStatus) {
	stamp := theme.HelpStyle.Render(time.Now().Format(dateLayout))
	fmt.Fprintf(w, "%s %s\n", stamp, theme.UnreadStyle.Render(fmt.Sprintf("%d new", res.NewCount)))
	for _, s := range statuses {
		state := theme.SyncStateStyle(s.State.String()).Render(s.State.String())
		line := "  " + cell(s.Account, 32) + state
		if s.Error != nil {
			line += " " + theme.ErrorStyle.Render(s.Error.Error())
		}
		fmt.Fprintln(w, line)
	}
}
