package survey

import (
	"strconv"
	"strings"
)

const (
	MinAge = 0
	MaxAge = 100
)

var (
	genderValues        = []string{GenderMale, GenderFemale}
	familyHistoryValues = []string{"both", "father", "mother", "none"}
	yesNoValues         = []string{"yes", "no"}
	stressLevelValues   = []string{"high", "medium", "low"}
)

// FieldResult describes the state of a single questionnaire field.
type FieldResult struct {
	Present bool   `json:"present"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Validation maps field names to their results.
type Validation map[string]FieldResult

// OK reports whether all fields are present and valid.
func (v Validation) OK() bool {
	for _, name := range Fields {
		res, ok := v[name]
		if !ok || !res.Present || !res.Valid {
			return false
		}
	}
	return true
}

// Messages returns the messages of invalid fields keyed by field name.
func (v Validation) Messages() map[string]string {
	out := map[string]string{}
	for name, res := range v {
		if !res.Valid && res.Message != "" {
			out[name] = res.Message
		}
	}
	return out
}

// Validate checks every field and returns per-field results.
func (a Answers) Validate() Validation {
	return Validation{
		FieldGender:                checkEnum(a.Gender, genderValues, "Please select your gender.", "Gender must be male or female."),
		FieldAge:                   checkAge(a.Age),
		FieldFamilyHistory:         checkEnum(a.FamilyHistory, familyHistoryValues, "Please select your family history.", "Family history must be one of both, father, mother or none."),
		FieldRecentHairLossSymptom: checkEnum(a.RecentHairLossSymptom, yesNoValues, "Please tell us whether you noticed recent hair loss.", "Recent hair loss must be yes or no."),
		FieldStressLevel:           checkEnum(a.StressLevel, stressLevelValues, "Please select your stress level.", "Stress level must be high, medium or low."),
	}
}

// AgeMessage returns the validation message for a raw age value, or "" when valid.
func AgeMessage(raw string) string {
	return checkAge(raw).Message
}

func checkAge(raw string) FieldResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return FieldResult{Message: "Please enter your age."}
	}
	age, err := strconv.Atoi(trimmed)
	if err != nil {
		return FieldResult{Present: true, Message: "Age must be a whole number."}
	}
	if age < MinAge {
		return FieldResult{Present: true, Message: "Age cannot be negative."}
	}
	if age > MaxAge {
		return FieldResult{Present: true, Message: "Age must be 100 or less."}
	}
	return FieldResult{Present: true, Valid: true}
}

func checkEnum(raw string, allowed []string, missingMsg, invalidMsg string) FieldResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return FieldResult{Message: missingMsg}
	}
	for _, v := range allowed {
		if trimmed == v {
			return FieldResult{Present: true, Valid: true}
		}
	}
	return FieldResult{Present: true, Message: invalidMsg}
}
