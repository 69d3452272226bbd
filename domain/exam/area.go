package exam

import "enemtri/domain/core"

// Area identifies an ENEM knowledge area.
type Area string

const (
	Mathematics     Area = "mathematics"
	Languages       Area = "languages"
	NaturalSciences Area = "natural_sciences"
	HumanSciences   Area = "human_sciences"
	Essay           Area = "essay"
)

// TotalQuestions is the number of objective questions per knowledge area.
const TotalQuestions = 45

// ObjectiveAreas returns the four areas scored from correct-answer counts,
// in exam order. Essay is excluded: it is scored directly, never estimated.
func ObjectiveAreas() []Area {
	return []Area{Mathematics, Languages, NaturalSciences, HumanSciences}
}

// AllAreas returns every knowledge area including the essay.
func AllAreas() []Area {
	return append(ObjectiveAreas(), Essay)
}

// IsObjective reports whether the area is estimated from correct answers.
func (a Area) IsObjective() bool {
	switch a {
	case Mathematics, Languages, NaturalSciences, HumanSciences:
		return true
	}
	return false
}

// Valid reports whether the area is one of the five known areas.
func (a Area) Valid() bool {
	return a.IsObjective() || a == Essay
}

// Label returns the official Portuguese name of the area.
func (a Area) Label() string {
	switch a {
	case Mathematics:
		return "Matemática e suas Tecnologias"
	case Languages:
		return "Linguagens, Códigos e suas Tecnologias"
	case NaturalSciences:
		return "Ciências da Natureza e suas Tecnologias"
	case HumanSciences:
		return "Ciências Humanas e suas Tecnologias"
	case Essay:
		return "Redação"
	}
	return string(a)
}

// ParseArea converts an area name into an Area, failing on unknown names.
func ParseArea(name string) (Area, error) {
	a := Area(name)
	if !a.Valid() {
		return "", core.ErrUnknownArea
	}
	return a, nil
}
