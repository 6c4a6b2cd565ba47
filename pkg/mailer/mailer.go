package mailer

// Mailer delivers a single HTML email. Send failures surface as errors for the
// caller to isolate; the mailer itself never retries.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}
