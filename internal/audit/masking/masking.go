// Package masking redacts personal data before it lands in audit metadata.
package masking

import "strings"

const maskToken = "****"

// MaskEmail keeps the first two characters of the local part and the domain.
func MaskEmail(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	at := strings.LastIndex(trimmed, "@")
	if at <= 0 || at == len(trimmed)-1 {
		return MaskSecret(trimmed)
	}

	local, domain := trimmed[:at], trimmed[at+1:]
	if len(local) <= 2 {
		return maskToken + "@" + domain
	}
	return local[:2] + maskToken + "@" + domain
}

// MaskSecret redacts a value while keeping a four character suffix.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskFields returns a copy of input where the named keys are masked.
// Keys containing "email" use MaskEmail, everything else MaskSecret.
func MaskFields(input map[string]any, keys ...string) map[string]any {
	if len(input) == 0 {
		return nil
	}

	sensitive := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		sensitive[key] = struct{}{}
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := sensitive[trimmedKey]; !ok {
			masked[trimmedKey] = value
			continue
		}
		str, ok := value.(string)
		if !ok {
			masked[trimmedKey] = value
			continue
		}
		if strings.Contains(trimmedKey, "email") {
			masked[trimmedKey] = MaskEmail(str)
		} else {
			masked[trimmedKey] = MaskSecret(str)
		}
	}
	return masked
}
