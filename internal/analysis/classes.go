package analysis

import "fmt"

// Class is a beat class in the AAMI EC57 grouping.
type Class string

const (
	ClassNormal           Class = "Normal"
	ClassSupraventricular Class = "Supraventricular"
	ClassVentricular      Class = "Ventricular"
	ClassFusion           Class = "Fusion"
	ClassUnknown          Class = "Unknown"
)

// Classes is ordered by score-vector index.
var Classes = []Class{
	ClassNormal,
	ClassSupraventricular,
	ClassVentricular,
	ClassFusion,
	ClassUnknown,
}

var classCodes = map[Class]string{
	ClassNormal:           "N",
	ClassSupraventricular: "S",
	ClassVentricular:      "V",
	ClassFusion:           "F",
	ClassUnknown:          "Q",
}

// LegacyClassLabels maps labels from the older persisted schema onto the
// canonical classes. Paced beats belong to AAMI class Q.
var LegacyClassLabels = map[string]Class{
	"Paced": ClassUnknown,
	"Other": ClassUnknown,
}

func (c Class) Valid() bool {
	_, ok := classCodes[c]
	return ok
}

// Index returns the position of c in Classes, or 0 for unknown values.
func (c Class) Index() int {
	for i, v := range Classes {
		if v == c {
			return i
		}
	}
	return 0
}

func (c Class) Code() string {
	if code, ok := classCodes[c]; ok {
		return code
	}
	return classCodes[ClassNormal]
}

// ParseClass accepts canonical names and legacy labels.
func ParseClass(label string) (Class, error) {
	c := Class(label)
	if c.Valid() {
		return c, nil
	}
	if mapped, ok := LegacyClassLabels[label]; ok {
		return mapped, nil
	}
	return "", fmt.Errorf("unknown class %q", label)
}

type ClassInfo struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

func ClassTable() []ClassInfo {
	table := make([]ClassInfo, 0, len(Classes))
	for i, c := range Classes {
		table = append(table, ClassInfo{ID: i, Code: c.Code(), Name: string(c)})
	}
	return table
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown risk level %q", s)
	}
	return r, nil
}

// IsAnomaly holds for every class other than Normal.
func IsAnomaly(c Class) bool {
	return c != ClassNormal
}
