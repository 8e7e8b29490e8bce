// Package eligibility implements the pure criteria-vs-profile matcher that
// decides whether a participant qualifies for a trial. It has no I/O and no
// state; callers may use it concurrently without synchronization.
package eligibility

import (
	"fmt"
	"time"
)

// Any is the sentinel for an unconstrained categorical criterion.
const Any = "ANY"

// Criteria is the set of constraints a trial places on applicants. A nil
// pointer (or the Any sentinel for Gender) means the dimension is
// unconstrained.
type Criteria struct {
	Gender              string  `json:"gender"`
	MinAge              *int    `json:"min_age,omitempty"`
	ObesityCategory     *string `json:"obesity_category,omitempty"`
	BPCategory          *string `json:"bp_category,omitempty"`
	DiabetesStatus      *string `json:"diabetes_status,omitempty"`
	HasAsthma           *bool   `json:"has_asthma,omitempty"`
	HasChronicIllnesses *bool   `json:"has_chronic_illnesses,omitempty"`
}

// Profile is the slice of a participant's record the evaluator reads.
type Profile struct {
	Gender              string
	DateOfBirth         time.Time
	ObesityCategory     string
	BPCategory          string
	DiabetesStatus      string
	HasAsthma           bool
	HasChronicIllnesses bool
}

// Age returns the profile's age in whole years as of now (floor).
func (p Profile) Age(now time.Time) int {
	years := now.Year() - p.DateOfBirth.Year()
	anniversary := p.DateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Result is the outcome of an eligibility evaluation. Eligible is true iff
// Reasons is empty. Reasons are ordered by criterion: gender, minimum age,
// obesity category, blood-pressure category, diabetes status, asthma,
// chronic illnesses.
type Result struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
}

// Evaluate compares a participant profile against trial criteria as of now.
// Criteria that are absent or set to ANY impose no constraint.
func Evaluate(c Criteria, p Profile, now time.Time) Result {
	var reasons []string

	if constrained(c.Gender) && c.Gender != p.Gender {
		reasons = append(reasons, fmt.Sprintf("trial requires gender %s", c.Gender))
	}
	if c.MinAge != nil {
		if age := p.Age(now); age < *c.MinAge {
			reasons = append(reasons, fmt.Sprintf("participant age %d is below the minimum age of %d", age, *c.MinAge))
		}
	}
	if c.ObesityCategory != nil && constrained(*c.ObesityCategory) && *c.ObesityCategory != p.ObesityCategory {
		reasons = append(reasons, fmt.Sprintf("trial requires obesity category %s", *c.ObesityCategory))
	}
	if c.BPCategory != nil && constrained(*c.BPCategory) && *c.BPCategory != p.BPCategory {
		reasons = append(reasons, fmt.Sprintf("trial requires blood pressure category %s", *c.BPCategory))
	}
	if c.DiabetesStatus != nil && constrained(*c.DiabetesStatus) && *c.DiabetesStatus != p.DiabetesStatus {
		reasons = append(reasons, fmt.Sprintf("trial requires diabetes status %s", *c.DiabetesStatus))
	}
	if c.HasAsthma != nil && *c.HasAsthma != p.HasAsthma {
		reasons = append(reasons, asthmaReason(*c.HasAsthma))
	}
	if c.HasChronicIllnesses != nil && *c.HasChronicIllnesses != p.HasChronicIllnesses {
		reasons = append(reasons, chronicReason(*c.HasChronicIllnesses))
	}

	return Result{Eligible: len(reasons) == 0, Reasons: reasons}
}

func constrained(v string) bool {
	return v != "" && v != Any
}

func asthmaReason(required bool) string {
	if required {
		return "trial requires participants with asthma"
	}
	return "trial requires participants without asthma"
}

func chronicReason(required bool) string {
	if required {
		return "trial requires participants with chronic illnesses"
	}
	return "trial requires participants without chronic illnesses"
}
