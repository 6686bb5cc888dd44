package util

import (
	"log/slog"
	"strings"
)

// CallIDPrefix is the conventional prefix for generated call identifiers.
// SIP dispatch rules route both "call_..." user parts and E.164 numbers.
const CallIDPrefix = "call_"

// FormatPhoneNumberE164 normalizes a phone number to E.164 form (e.g. +14155552671).
// Returns an empty string when the input cannot be normalized.
func FormatPhoneNumberE164(phoneNumber string) string {
	if phoneNumber == "" {
		return ""
	}

	if strings.HasPrefix(phoneNumber, "+") {
		digits := keepDigits(phoneNumber[1:])
		if digits == "" {
			return ""
		}
		return "+" + digits
	}

	digits := keepDigits(phoneNumber)
	switch {
	case len(digits) == 10:
		// US number without country code
		return "+1" + digits
	case len(digits) > 10:
		return "+" + digits
	default:
		slog.Warn("FormatPhoneNumberE164: invalid phone number format", "phoneNumber", phoneNumber)
		return ""
	}
}

// ExtractCallIDFromSIPURI pulls the call identifier out of a SIP URI. The user
// part may be an E.164 number ("+14155552671@domain") or a generated call ID
// ("call_abc123@domain"). Any other user part gets the call_ prefix attached.
// Returns an empty string when no user part can be found.
func ExtractCallIDFromSIPURI(sipURI string) string {
	if sipURI == "" {
		return ""
	}

	uri := strings.TrimPrefix(sipURI, "sip:")
	at := strings.Index(uri, "@")
	if at <= 0 {
		slog.Error("ExtractCallIDFromSIPURI: no valid call ID pattern in SIP URI", "sipURI", sipURI)
		return ""
	}

	callID := uri[:at]
	switch {
	case strings.HasPrefix(callID, "+"):
		return callID
	case strings.HasPrefix(callID, CallIDPrefix):
		return callID
	default:
		slog.Warn("ExtractCallIDFromSIPURI: user part lacks call_ prefix or E.164 format, adding prefix", "userPart", callID)
		return CallIDPrefix + callID
	}
}

// SIPURIForCallID builds a SIP URI addressing the given call ID or E.164 number
// on the configured SIP domain. Inputs that already look like SIP URIs are
// returned with the sip: scheme ensured.
func SIPURIForCallID(callID, sipDomain string) string {
	if strings.Contains(callID, "@") {
		if strings.HasPrefix(callID, "sip:") {
			return callID
		}
		return "sip:" + callID
	}
	return "sip:" + callID + "@" + sipDomain
}

func keepDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
