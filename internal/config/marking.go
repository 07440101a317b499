package config

import (
	"fmt"
	"os"

	"github.com/stemsi/exstem-prep/internal/engine"
	"gopkg.in/yaml.v3"
)

// SchemeConfig is a marking scheme as written in configuration.
type SchemeConfig struct {
	CorrectMarks float64 `yaml:"correct_marks"`
	WrongMarks   float64 `yaml:"wrong_marks"`
}

// Marking groups time allowances and marking schemes. Zero values in a file
// override leave the env value in place.
type Marking struct {
	GSSecondsPerQuestion   int          `yaml:"gs_seconds_per_question"`
	CSATSecondsPerQuestion int          `yaml:"csat_seconds_per_question"`
	GS                     SchemeConfig `yaml:"gs"`
	CSAT                   SchemeConfig `yaml:"csat"`
	CSATSubjects           []string     `yaml:"csat_subjects"`
}

// LoadMarking reads a YAML marking file.
func LoadMarking(path string) (Marking, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Marking{}, fmt.Errorf("read marking file: %w", err)
	}
	var m Marking
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Marking{}, fmt.Errorf("parse marking file %s: %w", path, err)
	}
	return m, nil
}

// Merge returns m with every non-zero field of override applied.
func (m Marking) Merge(override Marking) Marking {
	if override.GSSecondsPerQuestion > 0 {
		m.GSSecondsPerQuestion = override.GSSecondsPerQuestion
	}
	if override.CSATSecondsPerQuestion > 0 {
		m.CSATSecondsPerQuestion = override.CSATSecondsPerQuestion
	}
	if override.GS.CorrectMarks > 0 {
		m.GS.CorrectMarks = override.GS.CorrectMarks
	}
	if override.GS.WrongMarks > 0 {
		m.GS.WrongMarks = override.GS.WrongMarks
	}
	if override.CSAT.CorrectMarks > 0 {
		m.CSAT.CorrectMarks = override.CSAT.CorrectMarks
	}
	if override.CSAT.WrongMarks > 0 {
		m.CSAT.WrongMarks = override.CSAT.WrongMarks
	}
	if len(override.CSATSubjects) > 0 {
		m.CSATSubjects = override.CSATSubjects
	}
	return m
}

// EngineOptions converts the marking configuration for the session engine.
func (m Marking) EngineOptions() engine.Options {
	return engine.Options{
		Timing: engine.Timing{
			GSSecondsPerQuestion:   m.GSSecondsPerQuestion,
			CSATSecondsPerQuestion: m.CSATSecondsPerQuestion,
		},
		GS:           engine.Scheme{CorrectMarks: m.GS.CorrectMarks, WrongMarks: m.GS.WrongMarks},
		CSAT:         engine.Scheme{CorrectMarks: m.CSAT.CorrectMarks, WrongMarks: m.CSAT.WrongMarks},
		CSATSubjects: m.CSATSubjects,
	}
}
