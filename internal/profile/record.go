package profile

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"scalp-backend/internal/survey"
)

// Record is a stored user profile after normalization. Empty strings and a
// nil Age mean the field could not be mapped onto a canonical value.
type Record struct {
	Gender                string
	Age                   *int
	FamilyHistory         string
	RecentHairLossSymptom string
	StressLevel           string
}

// Complete reports whether all five fields carry canonical values.
func (r Record) Complete() bool {
	return r.Gender != "" && r.Age != nil && r.FamilyHistory != "" && r.RecentHairLossSymptom != "" && r.StressLevel != ""
}

// Answers renders the record as questionnaire answers.
func (r Record) Answers() survey.Answers {
	a := survey.Answers{
		Gender:                r.Gender,
		FamilyHistory:         r.FamilyHistory,
		RecentHairLossSymptom: r.RecentHairLossSymptom,
		StressLevel:           r.StressLevel,
	}
	if r.Age != nil {
		a.Age = strconv.Itoa(*r.Age)
	}
	return a
}

// FromAnswers builds a record from validated answers.
func FromAnswers(a survey.Answers) (Record, error) {
	p, err := a.Profile()
	if err != nil {
		return Record{}, err
	}
	age := p.Age
	return Record{
		Gender:                p.Gender,
		Age:                   &age,
		FamilyHistory:         p.FamilyHistory,
		RecentHairLossSymptom: p.RecentHairLossSymptom,
		StressLevel:           p.StressLevel,
	}, nil
}

// ParseRecord normalizes a JSON profile body. The body may be bare or nested
// under "data" or "profile". Unmappable values are left unset.
func ParseRecord(body []byte) Record {
	root := gjson.ParseBytes(body)
	for _, key := range []string{"data", "profile"} {
		if nested := root.Get(key); nested.IsObject() {
			root = nested
			break
		}
	}

	var rec Record
	rec.Gender, _ = survey.NormalizeGender(root.Get("gender").String())
	rec.Age = parseAge(root.Get("age"))
	rec.FamilyHistory = parseFamilyHistory(firstOf(root, "family_history", "familyHistory"))
	rec.RecentHairLossSymptom = parseYesNo(firstOf(root, "recent_hair_loss", "recentHairLossSymptom", "recent_hair_loss_symptom"))
	rec.StressLevel, _ = survey.NormalizeStress(firstOf(root, "stress_level", "stressLevel").String())
	return rec
}

func firstOf(root gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := root.Get(k); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func parseAge(v gjson.Result) *int {
	var age int
	switch v.Type {
	case gjson.Number:
		if v.Num != float64(int(v.Num)) {
			return nil
		}
		age = int(v.Num)
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(v.Str))
		if err != nil {
			return nil
		}
		age = n
	default:
		return nil
	}
	if age < survey.MinAge || age > survey.MaxAge {
		return nil
	}
	return &age
}

func parseFamilyHistory(v gjson.Result) string {
	switch v.Type {
	case gjson.True:
		out, _ := survey.FamilyHistoryFromBool(true)
		return out
	case gjson.False:
		out, _ := survey.FamilyHistoryFromBool(false)
		return out
	case gjson.String:
		out, _ := survey.NormalizeFamilyHistory(v.Str)
		return out
	default:
		return ""
	}
}

func parseYesNo(v gjson.Result) string {
	switch v.Type {
	case gjson.True:
		return survey.YesNo(true)
	case gjson.False:
		return survey.YesNo(false)
	case gjson.String:
		out, _ := survey.NormalizeYesNo(v.Str)
		return out
	default:
		return ""
	}
}
