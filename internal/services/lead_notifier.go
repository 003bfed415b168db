package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/kardan-dev/kardan-api/config"
	"github.com/kardan-dev/kardan-api/internal/models"
	"github.com/kardan-dev/kardan-api/pkg/email"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

const (
	emailKindConfirmation = "confirmation"
	emailKindInternal     = "internal"

	submittedAtLayout = "Jan 2, 2006 at 3:04 PM MST"
)

// confirmationTemplate is Markdown. In text mode md/bold/link render plain values.
const confirmationTemplate = `# Thanks, {{md .Greeting}}, message received

We'll review and reply within one business day. Below is a copy of what you sent.

## Summary

{{bold "Submitted:"}} {{md .SubmittedAt}}
{{bold "Email:"}} {{md .Email}}
{{- if .Phone}}
{{bold "Phone:"}} {{md .Phone}}
{{- end}}
{{bold "Service:"}} {{md .Service}}
{{bold "Industry:"}} {{md .Industry}}
{{bold "Company:"}} {{md .Company}}
{{- if .Location}}
{{bold "Location:"}} {{md .Location}}
{{- end}}
{{if .Message}}
## Your message

{{md .Message}}
{{end}}
Want to add details or files? Reply to this email or use the contact page: {{link .ContactURL}}

---

Sent from {{link .SiteURL}}
`

// mdRenderer escapes raw HTML in its input (WithUnsafe is not set)
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var (
	markdownFuncs = template.FuncMap{
		"md":   escapeMarkdown,
		"bold": func(s string) string { return "**" + s + "**" },
		"link": func(u string) string { return "[" + escapeMarkdown(u) + "](" + u + ")" },
	}
	plainFuncs = template.FuncMap{
		"md":   func(s string) string { return s },
		"bold": func(s string) string { return s },
		"link": func(u string) string { return u },
	}

	confirmationMarkdown = template.Must(template.New("confirmation.md").Funcs(markdownFuncs).Parse(confirmationTemplate))
	confirmationText     = template.Must(template.New("confirmation.txt").Funcs(plainFuncs).Parse(confirmationTemplate))
)

type confirmationView struct {
	Greeting    string
	SubmittedAt string
	Email       string
	Phone       string
	Service     string
	Industry    string
	Company     string
	Location    string
	Message     string
	SiteURL     string
	ContactURL  string
}

// LeadNotifier sends the submitter confirmation and the internal lead alert
type LeadNotifier struct {
	sender   email.Sender
	notifyTo string
	siteURL  string
	location *time.Location
}

var _ LeadNotifierService = (*LeadNotifier)(nil)

// NewLeadNotifier creates a notifier sending through sender
func NewLeadNotifier(sender email.Sender, cfg *config.Config) *LeadNotifier {
	loc := cfg.Sheets.Location
	if loc == nil {
		loc = time.UTC
	}
	return &LeadNotifier{
		sender:   sender,
		notifyTo: cfg.Email.NotifyTo,
		siteURL:  strings.TrimRight(cfg.Site.URL, "/"),
		location: loc,
	}
}

// NotifyConfirmation emails the submitter a copy of their lead
func (n *LeadNotifier) NotifyConfirmation(ctx context.Context, record models.LeadRecord) error {
	view := n.confirmationView(record)

	var text, source bytes.Buffer
	if err := confirmationText.Execute(&text, view); err != nil {
		return fmt.Errorf("render confirmation text: %w", err)
	}
	if err := confirmationMarkdown.Execute(&source, view); err != nil {
		return fmt.Errorf("render confirmation markdown: %w", err)
	}
	var html bytes.Buffer
	if err := mdRenderer.Convert(source.Bytes(), &html); err != nil {
		return fmt.Errorf("render confirmation html: %w", err)
	}

	return n.sender.Send(ctx, email.Message{
		To:      record.Email(),
		ToName:  record.ClientName(),
		Subject: ConfirmationSubject(record),
		Text:    text.String(),
		HTML:    html.String(),
		Kind:    emailKindConfirmation,
	})
}

// NotifyInternal emails the operator a plain-text summary of the lead
func (n *LeadNotifier) NotifyInternal(ctx context.Context, record models.LeadRecord) error {
	return n.sender.Send(ctx, email.Message{
		To:      n.notifyTo,
		Subject: InternalSubject(record),
		Text:    InternalBody(record),
		Kind:    emailKindInternal,
	})
}

func (n *LeadNotifier) confirmationView(record models.LeadRecord) confirmationView {
	submittedAt := record.SubmittedAt()
	if submittedAt.IsZero() {
		submittedAt = time.Now()
	}

	greeting := record.ClientName()
	if greeting == "" {
		greeting = "there"
	}

	company := "Individual"
	if record.IsCompany() {
		company = record.CompanyName()
		if company == "" {
			company = "—"
		}
	}

	return confirmationView{
		Greeting:    greeting,
		SubmittedAt: submittedAt.In(n.location).Format(submittedAtLayout),
		Email:       record.Email(),
		Phone:       record.Phone(),
		Service:     serviceLine(record),
		Industry:    record.Industry(),
		Company:     company,
		Location:    locationLine(record),
		Message:     record.Message(),
		SiteURL:     n.siteURL,
		ContactURL:  n.siteURL + "/contact",
	}
}

// ConfirmationSubject is the subject line of the submitter's copy
func ConfirmationSubject(record models.LeadRecord) string {
	name := record.ClientName()
	if name == "" {
		name = "Thanks"
	}
	return "We received your message — " + name
}

// InternalSubject is the subject line of the operator alert
func InternalSubject(record models.LeadRecord) string {
	return "New lead: " + record.ClientName() + " • " + record.ServiceType()
}

// InternalBody is the operator alert body
func InternalBody(record models.LeadRecord) string {
	company := "Individual"
	if record.IsCompany() {
		company = record.CompanyName()
	}
	message := record.Message()
	if message == "" {
		message = "-"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", record.ClientName())
	fmt.Fprintf(&b, "Email: %s\n", record.Email())
	fmt.Fprintf(&b, "Phone: %s\n", record.Phone())
	fmt.Fprintf(&b, "Company: %s\n", company)
	fmt.Fprintf(&b, "Service: %s\n", serviceLine(record))
	fmt.Fprintf(&b, "Industry: %s\n", record.Industry())
	fmt.Fprintf(&b, "Location: %s\n\n", locationLine(record))
	fmt.Fprintf(&b, "Message:\n%s", message)
	return b.String()
}

func serviceLine(record models.LeadRecord) string {
	if record.ServiceType() == models.OtherOption && record.OtherService() != "" {
		return record.ServiceType() + " — " + record.OtherService()
	}
	return record.ServiceType()
}

func locationLine(record models.LeadRecord) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{record.City(), record.State(), record.Country()} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// escapeMarkdown backslash-escapes ASCII punctuation so submitted text renders literally
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 && strings.ContainsRune("\\`*_{}[]()<>#+-.!|~&\"'=:;,?/@$%^", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
