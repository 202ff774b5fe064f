package dispatch

var stageAdvice = map[int][]string{
	0: {
		"Your scalp looks healthy. Keep a gentle, regular washing routine.",
		"Eat a balanced diet with enough protein, iron and zinc.",
		"Check your scalp again in a few months to track any change.",
	},
	1: {
		"Early thinning signs were found. Reduce heat styling and tight hairstyles.",
		"Manage stress and keep a consistent sleep schedule.",
		"Consider a mild anti-hair-loss shampoo and re-check in 3 months.",
	},
	2: {
		"Moderate hair loss was found. A dermatologist consultation is recommended.",
		"Ask a specialist about clinically proven topical treatments.",
		"Avoid smoking and heavy drinking, which can speed up hair loss.",
	},
	3: {
		"Advanced hair loss was found. Please see a dermatologist soon.",
		"Medical treatment or procedures may be needed; discuss options with a specialist.",
		"Keep photos over time so your doctor can track progress.",
	},
}

var genericAdvice = []string{
	"Keep your scalp clean and avoid harsh hair products.",
	"Maintain a balanced diet and regular sleep.",
	"Consult a dermatologist if you notice sudden or patchy hair loss.",
}

// DefaultAdvice returns the fallback advice for a stage. Stages outside 0..3
// get the generic list.
func DefaultAdvice(stage int) []string {
	list, ok := stageAdvice[stage]
	if !ok {
		list = genericAdvice
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}
