package survey

import (
	"errors"
	"strconv"
	"strings"
)

// Gender values accepted by the questionnaire.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Field names addressable through SetField.
const (
	FieldGender                = "gender"
	FieldAge                   = "age"
	FieldFamilyHistory         = "familyHistory"
	FieldRecentHairLossSymptom = "recentHairLossSymptom"
	FieldStressLevel           = "stressLevel"
)

// Fields lists every questionnaire field in display order.
var Fields = []string{
	FieldGender,
	FieldAge,
	FieldFamilyHistory,
	FieldRecentHairLossSymptom,
	FieldStressLevel,
}

var (
	ErrUnknownField = errors.New("unknown survey field")
	ErrIncomplete   = errors.New("survey incomplete")
)

// Answers holds the five self-report fields exactly as entered.
type Answers struct {
	Gender                string `json:"gender"`
	Age                   string `json:"age"`
	FamilyHistory         string `json:"familyHistory"`
	RecentHairLossSymptom string `json:"recentHairLossSymptom"`
	StressLevel           string `json:"stressLevel"`
}

// SetField stores value verbatim in the named field.
func (a *Answers) SetField(name, value string) error {
	switch name {
	case FieldGender:
		a.Gender = value
	case FieldAge:
		a.Age = value
	case FieldFamilyHistory:
		a.FamilyHistory = value
	case FieldRecentHairLossSymptom:
		a.RecentHairLossSymptom = value
	case FieldStressLevel:
		a.StressLevel = value
	default:
		return ErrUnknownField
	}
	return nil
}

// Field returns the raw value of the named field.
func (a Answers) Field(name string) (string, error) {
	switch name {
	case FieldGender:
		return a.Gender, nil
	case FieldAge:
		return a.Age, nil
	case FieldFamilyHistory:
		return a.FamilyHistory, nil
	case FieldRecentHairLossSymptom:
		return a.RecentHairLossSymptom, nil
	case FieldStressLevel:
		return a.StressLevel, nil
	default:
		return "", ErrUnknownField
	}
}

// IsComplete reports whether every field is present and well-formed.
func (a Answers) IsComplete() bool {
	return a.Validate().OK()
}

// CanonicalGender returns the trimmed gender when it is male or female, and
// "" otherwise. Validation, required views and phase plans all key off it.
func CanonicalGender(raw string) string {
	switch g := strings.TrimSpace(raw); g {
	case GenderMale, GenderFemale:
		return g
	default:
		return ""
	}
}

// CanonicalGender returns the canonical gender answer.
func (a Answers) CanonicalGender() string {
	return CanonicalGender(a.Gender)
}

// Profile is the typed form of a complete questionnaire.
type Profile struct {
	Gender                string `json:"gender"`
	Age                   int    `json:"age"`
	FamilyHistory         string `json:"familyHistory"`
	RecentHairLossSymptom string `json:"recentHairLossSymptom"`
	StressLevel           string `json:"stressLevel"`
}

// Profile converts complete answers into typed values.
func (a Answers) Profile() (Profile, error) {
	if !a.IsComplete() {
		return Profile{}, ErrIncomplete
	}
	age, _ := strconv.Atoi(strings.TrimSpace(a.Age))
	return Profile{
		Gender:                a.CanonicalGender(),
		Age:                   age,
		FamilyHistory:         strings.TrimSpace(a.FamilyHistory),
		RecentHairLossSymptom: strings.TrimSpace(a.RecentHairLossSymptom),
		StressLevel:           strings.TrimSpace(a.StressLevel),
	}, nil
}
