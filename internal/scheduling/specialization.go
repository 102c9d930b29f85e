package scheduling

import (
	"errors"
	"strings"
)

// Specialization is the closed set of medical specialties a professional can
// declare. Values are stored lowercase.
type Specialization string

const (
	SpecGeneralPractice Specialization = "general_practice"
	SpecCardiology      Specialization = "cardiology"
	SpecDermatology     Specialization = "dermatology"
	SpecEndocrinology   Specialization = "endocrinology"
	SpecNeurology       Specialization = "neurology"
	SpecOrthopedics     Specialization = "orthopedics"
	SpecPediatrics      Specialization = "pediatrics"
	SpecPsychiatry      Specialization = "psychiatry"
	SpecOphthalmology   Specialization = "ophthalmology"
	SpecENT             Specialization = "ent"
)

var ErrUnknownSpecialization = errors.New("unknown specialization")

// Specializations lists every valid value, in a stable order.
func Specializations() []Specialization {
	return []Specialization{
		SpecGeneralPractice,
		SpecCardiology,
		SpecDermatology,
		SpecEndocrinology,
		SpecNeurology,
		SpecOrthopedics,
		SpecPediatrics,
		SpecPsychiatry,
		SpecOphthalmology,
		SpecENT,
	}
}

// ParseSpecialization validates raw against the closed set, tolerating case.
func ParseSpecialization(raw string) (Specialization, error) {
	s := Specialization(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Specializations() {
		if s == known {
			return s, nil
		}
	}
	return "", ErrUnknownSpecialization
}

func (s Specialization) String() string { return string(s) }
