package utils

import "strings"

// ValidateRUT checks the verifier digit of a Chilean RUT. Accepts dotted
// or plain formats ("12.345.678-5", "123456785").
func ValidateRUT(rut string) bool {
	clean := cleanRUT(rut)
	if len(clean) < 8 {
		return false
	}

	body := clean[:len(clean)-1]
	dv := clean[len(clean)-1:]

	sum := 0
	multiplier := 2
	for i := len(body) - 1; i >= 0; i-- {
		d := body[i]
		if d < '0' || d > '9' {
			return false
		}
		sum += int(d-'0') * multiplier
		if multiplier == 7 {
			multiplier = 2
		} else {
			multiplier++
		}
	}

	expected := 11 - (sum % 11)
	var calculated string
	switch expected {
	case 11:
		calculated = "0"
	case 10:
		calculated = "K"
	default:
		calculated = string(rune('0' + expected))
	}

	return dv == calculated
}

// FormatRUT normalizes a RUT to the dotted "12.345.678-5" form.
func FormatRUT(rut string) string {
	clean := cleanRUT(rut)
	if len(clean) < 2 {
		return clean
	}

	body := clean[:len(clean)-1]
	dv := clean[len(clean)-1:]

	var sb strings.Builder
	for i, d := range body {
		if i > 0 && (len(body)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(d)
	}
	return sb.String() + "-" + dv
}

func cleanRUT(rut string) string {
	clean := strings.NewReplacer(".", "", "-", "").Replace(rut)
	return strings.ToUpper(strings.TrimSpace(clean))
}
