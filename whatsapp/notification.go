// Package whatsapp decodes webhook notifications delivered by the WhatsApp
// Business API provider.
package whatsapp

import "sort"

// Notification is a webhook body. Cloud API notifications nest their content
// under Entry; on-premise notifications carry Messages, Statuses and Contacts
// at the top level.
type Notification struct {
	Object   string    `json:"object,omitempty"`
	Entry    []Entry   `json:"entry,omitempty"`
	Contacts []Contact `json:"contacts,omitempty"`
	Messages []Message `json:"messages,omitempty"`
	Statuses []Status  `json:"statuses,omitempty"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
	Statuses         []Status  `json:"statuses,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Message is an inbound message. Only the fields used for logging are
// decoded; media and interactive payloads are left in the raw body.
type Message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// Status is a delivery report for an outbound message.
type Status struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipient_id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
}

// Summary is what gets logged for each notification.
type Summary struct {
	Messages     int
	Statuses     int
	MessageTypes []string
	StatusKinds  []string
	Senders      []string
}

// Summarize collects messages and statuses from both notification shapes.
func (n Notification) Summarize() Summary {
	messages := append([]Message(nil), n.Messages...)
	statuses := append([]Status(nil), n.Statuses...)

	for _, e := range n.Entry {
		for _, c := range e.Changes {
			messages = append(messages, c.Value.Messages...)
			statuses = append(statuses, c.Value.Statuses...)
		}
	}

	types := map[string]struct{}{}
	senders := map[string]struct{}{}
	for _, m := range messages {
		if m.Type != "" {
			types[m.Type] = struct{}{}
		}
		if m.From != "" {
			senders[m.From] = struct{}{}
		}
	}

	kinds := map[string]struct{}{}
	for _, s := range statuses {
		if s.Status != "" {
			kinds[s.Status] = struct{}{}
		}
	}

	return Summary{
		Messages:     len(messages),
		Statuses:     len(statuses),
		MessageTypes: keys(types),
		StatusKinds:  keys(kinds),
		Senders:      keys(senders),
	}
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
