package domain

import "time"

// InboundMessage is what the message-ingestion boundary delivers to the
// trigger engine. MediaType is empty for plain text messages.
type InboundMessage struct {
	ContactID   string    `json:"contactId"`
	ChannelType string    `json:"channelType"`
	Text        string    `json:"text"`
	MediaType   string    `json:"mediaType,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Contact holds the attributes exposed to Contact.<attr> conditions and to
// variable interpolation.
type Contact struct {
	Name  string   `json:"name"`
	Phone string   `json:"phone"`
	Email string   `json:"email"`
	Tags  []string `json:"tags,omitempty"`
}

// Attribute resolves a contact attribute by name. The second return is false
// for attributes outside the fixed set.
func (c Contact) Attribute(name string) (string, bool) {
	switch name {
	case "name":
		return c.Name, true
	case "phone":
		return c.Phone, true
	case "email":
		return c.Email, true
	default:
		return "", false
	}
}

// HasTag reports set membership for the tags attribute.
func (c Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
