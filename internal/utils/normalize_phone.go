package utils

import "strings"

// NormalizePhone normaliza un número de teléfono al formato de destino de
// WhatsApp: sólo dígitos con prefijo "+". Quita espacios, guiones y
// paréntesis.
func NormalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	hasPlus := strings.HasPrefix(trimmed, "+")

	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}

	if hasPlus {
		return "+" + digits.String()
	}
	return digits.String()
}
