package survey

import "strings"

// NormalizeGender maps free-form gender text onto male or female.
func NormalizeGender(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "m", "man", "남", "남성", "남자":
		return GenderMale, true
	case "female", "f", "woman", "여", "여성", "여자":
		return GenderFemale, true
	default:
		return "", false
	}
}

// NormalizeFamilyHistory maps free-form family history text onto the canonical values.
func NormalizeFamilyHistory(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "both", "parents", "양쪽", "부모 모두":
		return "both", true
	case "father", "paternal", "dad", "아버지", "부계":
		return "father", true
	case "mother", "maternal", "mom", "어머니", "모계":
		return "mother", true
	case "none", "no", "없음":
		return "none", true
	default:
		return "", false
	}
}

// FamilyHistoryFromBool maps a boolean family history flag. Only false has an
// unambiguous canonical value; true does not say which side.
func FamilyHistoryFromBool(v bool) (string, bool) {
	if v {
		return "", false
	}
	return "none", true
}

// YesNo renders a boolean as yes or no.
func YesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// NormalizeYesNo maps free-form yes/no text onto yes or no.
func NormalizeYesNo(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "1", "예", "네":
		return "yes", true
	case "no", "n", "false", "0", "아니오", "아니요":
		return "no", true
	default:
		return "", false
	}
}

// NormalizeStress maps free-form stress text onto high, medium or low.
func NormalizeStress(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "very high", "높음", "매우 높음":
		return "high", true
	case "medium", "moderate", "normal", "보통":
		return "medium", true
	case "low", "very low", "낮음", "매우 낮음":
		return "low", true
	default:
		return "", false
	}
}
