package emails

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Sender dispatches transactional emails. Delivery is always best-effort:
// callers log failures and never roll back on them.
type Sender interface {
	SendConfirmation(ctx context.Context, toEmail, name, confirmLink string) error
	SendInvitation(ctx context.Context, toEmail, inviteLink, orgName, roleName, subject string) error
}

// LogSender composes the full HTML email and writes it to the application
// log instead of delivering it. This is the default: real delivery is a
// placeholder until an email provider is wired in.
type LogSender struct{}

func (LogSender) SendConfirmation(ctx context.Context, toEmail, name, confirmLink string) error {
	html := Layout(confirmationContent(name, confirmLink))
	log.Info().
		Str("to", toEmail).
		Str("subject", "Confirm your ApprovalFlow email").
		Str("html", html).
		Msg("email delivery placeholder: confirmation composed, not sent")
	return nil
}

func (LogSender) SendInvitation(ctx context.Context, toEmail, inviteLink, orgName, roleName, subject string) error {
	html := Layout(invitationContent(inviteLink, orgName, roleName))
	log.Info().
		Str("to", toEmail).
		Str("subject", subject).
		Str("html", html).
		Msg("email delivery placeholder: invitation composed, not sent")
	return nil
}
