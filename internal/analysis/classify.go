package analysis

import "github.com/achalasani15/gut-check-app/internal/journal"

// StoolInfo is the derived classification of a stool quality code.
type StoolInfo struct {
	Code      int    `json:"code"`
	Label     string `json:"label"`
	Sublabel  string `json:"sublabel"`
	IsProblem bool   `json:"is_problem"`
	Severity  int    `json:"severity"`
}

var stoolTable = map[int]StoolInfo{
	1: {Code: 1, Label: "Problematic", Sublabel: "Very Hard", IsProblem: true, Severity: 3},
	2: {Code: 2, Label: "Less than Ideal", Sublabel: "Hard", IsProblem: true, Severity: 1},
	3: {Code: 3, Label: "Ideal", Sublabel: "Firm & Formed", IsProblem: false, Severity: 0},
	4: {Code: 4, Label: "Less than Ideal", Sublabel: "Soft", IsProblem: true, Severity: 1},
	5: {Code: 5, Label: "Problematic", Sublabel: "Liquid", IsProblem: true, Severity: 3},
}

// Classify maps a quality code to its StoolInfo. Unknown codes get the
// neutral default: not a problem, severity 0, empty labels.
func Classify(code int) StoolInfo {
	if info, ok := stoolTable[code]; ok {
		return info
	}
	return StoolInfo{Code: code}
}

// ClassifyLog classifies a record. Anything that is not a stool record with a
// payload is neutral.
func ClassifyLog(r journal.LogRecord) StoolInfo {
	if r.Kind != journal.KindStool || r.Stool == nil {
		return StoolInfo{}
	}
	return Classify(r.Stool.QualityCode)
}

// IsBadStool reports whether r is a problematic stool event.
func IsBadStool(r journal.LogRecord) bool {
	return ClassifyLog(r).IsProblem
}
