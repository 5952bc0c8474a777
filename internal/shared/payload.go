// Package shared holds the patient and screening payloads exchanged between
// the client and the server, together with the validation rules both sides
// apply.
package shared

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/healthsync/internal/common"
)

const MaxAge = 150

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type SmokingStatus string

const (
	SmokingNever   SmokingStatus = "Never"
	SmokingFormer  SmokingStatus = "Former"
	SmokingCurrent SmokingStatus = "Current"
)

func (s SmokingStatus) Valid() bool {
	switch s {
	case SmokingNever, SmokingFormer, SmokingCurrent:
		return true
	}
	return false
}

// Patient is the parent payload.
type Patient struct {
	FullName string  `json:"full_name"`
	Age      int     `json:"age"`
	Gender   Gender  `json:"gender"`
	Village  string  `json:"village"`
	Phone    *string `json:"phone,omitempty"`
}

// Screening is the dependent payload. Every field is optional; a screening
// may be saved before all measurements are taken.
type Screening struct {
	HeightCm         *float64       `json:"height_cm,omitempty"`
	WeightKg         *float64       `json:"weight_kg,omitempty"`
	SystolicBP       *int           `json:"systolic_bp,omitempty"`
	DiastolicBP      *int           `json:"diastolic_bp,omitempty"`
	HeartRate        *int           `json:"heart_rate,omitempty"`
	SmokingStatus    *SmokingStatus `json:"smoking_status,omitempty"`
	AlcoholUsage     *string        `json:"alcohol_usage,omitempty"`
	PhysicalActivity *string        `json:"physical_activity,omitempty"`
	GlucoseLevel     *float64       `json:"glucose_level,omitempty"`
	CholesterolLevel *float64       `json:"cholesterol_level,omitempty"`
}

// Validate returns an error wrapping common.ErrValidation that lists every
// problem found, or nil.
func (p Patient) Validate() error {
	var problems []string

	if strings.TrimSpace(p.FullName) == "" {
		problems = append(problems, "full_name is required")
	}
	if p.Age < 0 || p.Age > MaxAge {
		problems = append(problems, fmt.Sprintf("age must be between 0 and %d", MaxAge))
	}
	if !p.Gender.Valid() {
		problems = append(problems, fmt.Sprintf("gender %q is not one of Male, Female, Other", p.Gender))
	}
	if strings.TrimSpace(p.Village) == "" {
		problems = append(problems, "village is required")
	}

	return validationError(problems)
}

func (s Screening) Validate() error {
	var problems []string

	nonNegF := func(name string, v *float64) {
		if v != nil && *v < 0 {
			problems = append(problems, name+" must not be negative")
		}
	}
	nonNegI := func(name string, v *int) {
		if v != nil && *v < 0 {
			problems = append(problems, name+" must not be negative")
		}
	}

	nonNegF("height_cm", s.HeightCm)
	nonNegF("weight_kg", s.WeightKg)
	nonNegI("systolic_bp", s.SystolicBP)
	nonNegI("diastolic_bp", s.DiastolicBP)
	nonNegI("heart_rate", s.HeartRate)
	nonNegF("glucose_level", s.GlucoseLevel)
	nonNegF("cholesterol_level", s.CholesterolLevel)

	if s.SmokingStatus != nil && !s.SmokingStatus.Valid() {
		problems = append(problems, fmt.Sprintf("smoking_status %q is not one of Never, Former, Current", *s.SmokingStatus))
	}

	return validationError(problems)
}

func validationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(problems, "; "))
}
