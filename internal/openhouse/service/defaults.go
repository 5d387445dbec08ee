package service

import (
	"fmt"
	"os"

	"github.com/sngor/bayon-backend/internal/openhouse/domain"

	"gopkg.in/yaml.v3"
)

type sequenceDefaultsFile struct {
	Name  string                `yaml:"name"`
	Steps []domain.SequenceStep `yaml:"steps"`
}

// LoadDefaultSequence reads the built-in follow-up plan used for
// sessions whose owner never configured one. Missing path disables the
// fallback rather than failing startup.
func (s *Service) LoadDefaultSequence(path string) error {
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sequence defaults: %w", err)
	}

	var file sequenceDefaultsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse sequence defaults: %w", err)
	}

	if err := domain.ValidateSteps(file.Steps); err != nil {
		return fmt.Errorf("sequence defaults: %w", err)
	}

	s.defaultSequence = file.Steps
	s.log.Info("loaded default follow-up sequence", "steps", len(file.Steps))
	return nil
}
