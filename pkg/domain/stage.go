package domain

import "fmt"

// Stage is a named pricing regime for the sale, selected manually by an
// owner. The numeric codes are part of the external API: clients submit
// the code, not the name.
type Stage int

const (
	StageEarly Stage = 0
	StageBonus Stage = 1
	StageMain  Stage = 2
)

var stageNames = map[Stage]string{
	StageEarly: "early",
	StageBonus: "bonus",
	StageMain:  "main",
}

// ParseStage validates a stage code. Any code outside the three defined
// regimes is rejected.
func ParseStage(code int) (Stage, error) {
	s := Stage(code)
	if _, ok := stageNames[s]; !ok {
		return 0, fmt.Errorf("unknown stage code: %d", code)
	}
	return s, nil
}

// String returns the stage name.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Valid reports whether the stage is one of the defined regimes.
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}
