package mail

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
)

// Message is a single outbound HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers outbound email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResetLink builds the frontend URL carrying the reset token.
func ResetLink(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/reset?resetToken=" + url.QueryEscape(token)
}

// PasswordResetEmail composes the reset email sent by requestReset.
func PasswordResetEmail(frontendURL, to, token string) Message {
	link := ResetLink(frontendURL, token)
	return Message{
		To:      to,
		Subject: "Your Password Reset Token",
		HTML: wrap(fmt.Sprintf(
			"Your Password Reset Token is here!\n\n<a href=\"%s\">Click Here to Reset</a>",
			html.EscapeString(link),
		)),
	}
}

func wrap(text string) string {
	return `<div className="email" style="border: 1px solid black; padding: 20px; font-family: sans-serif; line-height: 2; font-size: 20px;">` +
		"<h2>Hello There!</h2><p>" + text + "</p><p>😘, Sick Fits</p></div>"
}
