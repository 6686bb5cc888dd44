package util

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateCallID returns a fresh call identifier in the call_<hex> convention
// used by the SIP dispatch rules.
func GenerateCallID() string {
	return CallIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
