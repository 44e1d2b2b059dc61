package transport

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/kilamea/internal/model"
)

// ParseMessage maps a raw RFC 5322 message to a NormalizedMessage.
// The plain text part is preferred for Content; an HTML-only message
// is flattened to text. Input that is not a parseable message is kept
// verbatim as its own content.
func ParseMessage(raw []byte) NormalizedMessage {
	nm := NormalizedMessage{RawData: string(raw)}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		nm.Content = string(raw)
		return nm
	}
	defer mr.Close()

	h := mr.Header
	nm.Reference, _ = h.MessageID()
	nm.Subject, _ = h.Subject()
	nm.SentAt, _ = h.Date()
	nm.From = addressField(h, "From")
	nm.To = addressField(h, "To")
	nm.Cc = addressField(h, "Cc")
	nm.Bcc = addressField(h, "Bcc")

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch ph := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := ph.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			switch {
			case strings.HasPrefix(contentType, "text/plain") && textBody == "":
				textBody = string(body)
			case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
				htmlBody = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := ph.Filename()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			nm.Attachments = append(nm.Attachments, NormalizedAttachment{
				FileName: filename,
				Content:  base64.StdEncoding.EncodeToString(body),
			})
		}
	}

	nm.Content = textBody
	if nm.Content == "" && htmlBody != "" {
		nm.Content = stripHTML(htmlBody)
	}

	return nm
}

func addressField(h mail.Header, key string) string {
	list, err := h.AddressList(key)
	if err != nil || len(list) == 0 {
		// Keep whatever is there when it does not parse as addresses.
		v, _ := h.Text(key)
		return v
	}
	return FormatAddresses(list)
}

// FormatAddresses renders addresses in the comma-separated display
// form stored on messages.
func FormatAddresses(list []*mail.Address) string {
	parts := make([]string, 0, len(list))
	for _, a := range list {
		if a.Name != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.Name, a.Address))
		} else {
			parts = append(parts, a.Address)
		}
	}
	return strings.Join(parts, ", ")
}

// parseAddresses parses a stored comma-separated address string.
// An empty string yields no addresses.
func parseAddresses(s string) ([]*mail.Address, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	list, err := mail.ParseAddressList(s)
	if err != nil {
		return nil, fmt.Errorf("parsing addresses %q: %w", s, err)
	}
	return list, nil
}

// Recipients returns the envelope recipients of msg: To, Cc and Bcc.
func Recipients(msg *model.Message) ([]string, error) {
	var out []string
	for _, field := range []string{msg.To, msg.Cc, msg.Bcc} {
		list, err := parseAddresses(field)
		if err != nil {
			return nil, err
		}
		for _, a := range list {
			out = append(out, a.Address)
		}
	}
	return out, nil
}

// ComposeMessage renders msg as an RFC 5322 message sent by account.
// It returns the bytes and the generated Message-ID.
func ComposeMessage(account *model.Account, msg *model.Message, date time.Time) ([]byte, string, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetSubject(msg.Subject)
	h.SetAddressList("From", []*mail.Address{{Name: account.DisplayName, Address: account.Email}})

	for _, field := range []struct{ key, value string }{
		{"To", msg.To},
		{"Cc", msg.Cc},
	} {
		list, err := parseAddresses(field.value)
		if err != nil {
			return nil, "", err
		}
		if len(list) > 0 {
			h.SetAddressList(field.key, list)
		}
	}

	if err := h.GenerateMessageID(); err != nil {
		return nil, "", fmt.Errorf("generating message id: %w", err)
	}
	messageID, _ := h.MessageID()

	var buf bytes.Buffer
	if len(msg.Attachments) == 0 {
		h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		w, err := mail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, "", fmt.Errorf("creating message writer: %w", err)
		}
		if _, err := io.WriteString(w, msg.Content); err != nil {
			return nil, "", fmt.Errorf("writing message body: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("closing message body: %w", err)
		}
		return buf.Bytes(), messageID, nil
	}

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, "", fmt.Errorf("creating multipart writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, "", fmt.Errorf("creating inline part: %w", err)
	}
	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	pw, err := tw.CreatePart(th)
	if err != nil {
		return nil, "", fmt.Errorf("creating text part: %w", err)
	}
	if _, err := io.WriteString(pw, msg.Content); err != nil {
		return nil, "", fmt.Errorf("writing text part: %w", err)
	}
	pw.Close()
	tw.Close()

	for _, att := range msg.Attachments {
		data, err := att.Bytes()
		if err != nil {
			return nil, "", err
		}

		var ah mail.AttachmentHeader
		ah.SetFilename(att.FileName)
		ah.SetContentType(contentTypeOf(att.FileName), nil)

		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, "", fmt.Errorf("creating attachment %s: %w", att.FileName, err)
		}
		if _, err := aw.Write(data); err != nil {
			return nil, "", fmt.Errorf("writing attachment %s: %w", att.FileName, err)
		}
		aw.Close()
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return buf.Bytes(), messageID, nil
}

func contentTypeOf(fileName string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName)))
	if t == "" {
		return "application/octet-stream"
	}
	mt, _, err := mime.ParseMediaType(t)
	if err != nil {
		return "application/octet-stream"
	}
	return mt
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
