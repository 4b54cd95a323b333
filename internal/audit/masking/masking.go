package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts a secret, keeping a short suffix only when the value is
// long enough that the suffix does not give most of it away. Expo tokens keep
// their "ExponentPushToken[" envelope.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder, suffix := splitEnvelope(trimmed)
	keep := visibleSuffix(len(remainder))
	if keep == 0 {
		return prefix + maskToken + suffix
	}
	return prefix + maskToken + remainder[len(remainder)-keep:] + suffix
}

// MaskJSON returns a copy of the input with string values masked.
func MaskJSON(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(value)
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		return MaskSecret(cast)
	case map[string]any:
		return MaskJSON(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(item))
		}
		return out
	default:
		return value
	}
}

func visibleSuffix(length int) int {
	switch {
	case length >= 16:
		return 4
	case length > 4:
		return 2
	default:
		return 0
	}
}

func splitEnvelope(value string) (string, string, string) {
	open := strings.Index(value, "[")
	if open == -1 || !strings.HasSuffix(value, "]") || open+1 >= len(value)-1 {
		return "", value, ""
	}
	return value[:open+1], value[open+1 : len(value)-1], "]"
}
