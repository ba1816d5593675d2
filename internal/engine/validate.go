package engine

import (
	"regexp"
	"unicode/utf8"
)

// deliveryTimePattern captures a free-text delivery wish: an optional
// today/tomorrow qualifier and an H:MM token found anywhere in the text.
// The hour range is deliberately loose (0-29); the text is stored verbatim
// and read by the florist, not by a scheduler. Minutes are strict (00-59).
var deliveryTimePattern = regexp.MustCompile(`(?i)(today|tomorrow)?\s*([0-2]?\d):([0-5]\d)`)

// validDeliveryTime reports whether the text contains a recognizable
// delivery-time wish.
func validDeliveryTime(text string) bool {
	return deliveryTimePattern.MatchString(text)
}

// validAddress reports whether a trimmed address is long enough to be real.
func validAddress(address string) bool {
	return utf8.RuneCountInString(address) >= MinAddressLen
}
