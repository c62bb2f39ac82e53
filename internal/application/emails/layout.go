package emails

import (
	"fmt"
	"html"
	"time"
)

const (
	themePrimary = "#4F46E5"
	themeBgBody  = "#F3F4F6"
	themeWhite   = "#FFFFFF"
)

// Layout wraps content in the shared ApprovalFlow email shell.
func Layout(contentHTML string) string {
	year := time.Now().Year()
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>ApprovalFlow</title>
  <style>
    body { margin: 0; padding: 0; width: 100%% !important; background-color: %s; }
    body, td, p, a { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: #1F2937; }
    .content-body p { margin: 0 0 24px 0; font-size: 16px; line-height: 1.6; color: #374151; }
    .content-body h1 { color: #111827; font-size: 24px; margin: 0 0 20px 0; font-weight: 700; }
    .af-button { display: inline-block; background-color: %s; color: #ffffff !important; padding: 12px 32px; text-decoration: none !important; border-radius: 6px; font-weight: 600; font-size: 15px; }
  </style>
</head>
<body style="margin: 0; padding: 0; background-color: %s;">
  <table role="presentation" width="100%%" border="0" cellspacing="0" cellpadding="0" style="background-color: %s;">
    <tr>
      <td align="center" style="padding: 40px 0;">
        <table role="presentation" width="600" border="0" cellspacing="0" cellpadding="0" style="width: 600px; background-color: %s; border-radius: 8px; overflow: hidden;">
          <tr>
            <td align="center" style="padding: 40px 0 24px 0; font-size: 22px; font-weight: 700; color: %s;">ApprovalFlow</td>
          </tr>
          <tr>
            <td class="content-body" style="padding: 0 48px 30px 48px;">%s</td>
          </tr>
          <tr>
            <td align="center" style="padding: 24px 48px 40px 48px; font-size: 13px; color: #6B7280;">
              &copy; %d ApprovalFlow. Need help? Contact <a href="mailto:support@approvalflow.app" style="color: %s;">support@approvalflow.app</a>.
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`, themeBgBody, themePrimary, themeBgBody, themeBgBody, themeWhite, themePrimary, contentHTML, year, themePrimary)
}

func confirmationContent(name, confirmLink string) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`
    <h1>Confirm your email</h1>
    <p>Hi %s,</p>
    <p>Thanks for signing up for <strong>ApprovalFlow</strong>. Confirm your email address to finish setting up your organization.</p>
    <center>
      <a href="%s" class="af-button">Confirm Email</a>
    </center>
    <p style="margin-top: 20px; font-size: 14px; color: #666;">
      If you did not create this account, you can safely ignore this email.
    </p>`, html.EscapeString(name), confirmLink)
}

func invitationContent(inviteLink, orgName, roleName string) string {
	return fmt.Sprintf(`
    <h1>You've been invited to join %s</h1>
    <p>You have been invited to join your organization on <strong>ApprovalFlow</strong> as a <strong>%s</strong>.</p>
    <p>Click the button below to accept your invitation and create your account:</p>
    <center>
      <a href="%s" class="af-button">Accept Invitation</a>
    </center>
    <p style="margin-top: 20px; font-size: 14px; color: #666;">
      This invitation link will expire in 7 days. If you were not expecting this invitation, you can safely ignore this email.
    </p>`, html.EscapeString(orgName), html.EscapeString(roleName), inviteLink)
}
