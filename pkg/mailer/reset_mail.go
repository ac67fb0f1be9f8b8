package mailer

import "fmt"

const resetSubject = "Reset password"

// ResetMail builds the password-reset email for an account. The link embeds
// the uid and token as path segments under the configured base URL.
func ResetMail(to, name, urlBase, uid, token string) EmailJob {
	link := fmt.Sprintf("%s/%s/%s", urlBase, uid, token)
	body := fmt.Sprintf(
		"Hi %s,\nClick the link below to reset your password.\n\n%s\n\nIf you did not request this, you can ignore this email.",
		name, link,
	)
	return EmailJob{To: to, Subject: resetSubject, Text: body}
}
