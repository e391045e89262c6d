// Package contact derives direct-contact channel URIs from stored phone
// identifiers, for owners who opted into off-platform contact.
package contact

import (
	"net/url"
	"strings"
)

const (
	// channelBase is the WhatsApp click-to-chat endpoint.
	channelBase = "https://wa.me/"

	minDigits = 7
	maxDigits = 15
)

// NormalizePhone strips a leading "+" and then every non-digit character
// from the identifier, leaving the bare digit string used in channel
// URIs.
func NormalizePhone(phone string) string {
	phone = strings.TrimPrefix(phone, "+")
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidPhone reports whether the normalized identifier has between 7 and
// 15 digits, per international numbering standards.
func ValidPhone(phone string) bool {
	n := len(NormalizePhone(phone))
	return n >= minDigits && n <= maxDigits
}

// ChannelURL builds the contact channel URI for the given identifier.
// With a message it is appended URL-encoded as the text parameter.
func ChannelURL(phone, message string) string {
	normalized := NormalizePhone(phone)
	if message == "" {
		return channelBase + normalized
	}
	return channelBase + normalized + "?text=" + url.QueryEscape(message)
}

// DefaultMessage is the canned opener attached to listing contact links.
func DefaultMessage(listingTitle string) string {
	return "Hi! I'm interested in your listing: " + listingTitle + ". Is it still available?"
}
