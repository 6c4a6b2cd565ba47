package mailer

import "sync"

// SentMail records one delivered message.
type SentMail struct {
	To      string
	Subject string
	Body    string
}

// Mock records sends instead of delivering; Err is returned from every Send
// when set, or FailSubjects can fail selected messages.
type Mock struct {
	mu           sync.Mutex
	Sent         []SentMail
	Err          error
	FailSubjects map[string]error
}

func (m *Mock) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if err, ok := m.FailSubjects[subject]; ok {
		return err
	}
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

// Sends returns a copy of the recorded messages.
func (m *Mock) Sends() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMail, len(m.Sent))
	copy(out, m.Sent)
	return out
}
