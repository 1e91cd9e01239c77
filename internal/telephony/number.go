package telephony

import "strings"

const sipPrefix = "SIP/"

// maxExtensionLen is the longest number still treated as an internal extension.
// Longer bare numbers are routed through the outbound trunk.
const maxExtensionLen = 5

// FormatNumber turns a directory number or SIP URI into a PBX dial address.
//
//	"1001"              -> "SIP/1001"
//	"sip:1001@pbx.lan"  -> "SIP/1001@pbx.lan"
func FormatNumber(raw string) string {
	n := strings.TrimSpace(raw)
	if isSIPLike(n) {
		return sipPrefix + stripSIPMarker(n)
	}
	return sipPrefix + n
}

// FormatOutbound is FormatNumber for a number the PBX dials out. Bare numbers
// longer than an extension are qualified with the trunk when one is set.
func FormatOutbound(raw, trunk string) string {
	n := strings.TrimSpace(raw)
	if isSIPLike(n) {
		return sipPrefix + stripSIPMarker(n)
	}
	trunk = strings.TrimSpace(trunk)
	if len(n) > maxExtensionLen && trunk != "" {
		return sipPrefix + n + "@" + trunk
	}
	return sipPrefix + n
}

func isSIPLike(n string) bool {
	return strings.Contains(strings.ToLower(n), "sip") || strings.Contains(n, "@")
}

// stripSIPMarker removes one leading "sip:" or "/sip:" (any case). Nothing else
// in the number is touched.
func stripSIPMarker(n string) string {
	lower := strings.ToLower(n)
	for _, marker := range []string{"/sip:", "sip:"} {
		if strings.HasPrefix(lower, marker) {
			return n[len(marker):]
		}
	}
	return n
}
