package service

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Crockford base32: no I, L, O or U, so codes survive being read aloud.
const trackingAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	trackingPrefixLen = 6
	// Eight base32 characters give 2^40 suffixes per event prefix.
	trackingSuffixLen = 8
)

// NewTrackingCode mints a code of the form EV<prefix>-<suffix>, where the
// prefix is taken from the event id and the suffix is random.
func NewTrackingCode(eventID string) (string, error) {
	var buf [trackingSuffixLen]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("read random suffix: %w", err)
	}
	suffix := make([]byte, trackingSuffixLen)
	for i, b := range buf {
		suffix[i] = trackingAlphabet[int(b)%len(trackingAlphabet)]
	}
	return "EV" + trackingPrefix(eventID) + "-" + string(suffix), nil
}

func trackingPrefix(eventID string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(eventID) {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
		if b.Len() == trackingPrefixLen {
			break
		}
	}
	for b.Len() < trackingPrefixLen {
		b.WriteByte('0')
	}
	return b.String()
}
