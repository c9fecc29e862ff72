// Package evaluation runs the extractor and generator over labelled
// datasets and reports how well they score. It is the offline counterpart
// of the live coaching loop: the same collaborators and the same scorers,
// run in batch under the same rate-limited invoker.
package evaluation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-coach/internal/domain"
)

// ErrInvalidDataset indicates a dataset file could not be used.
var ErrInvalidDataset = errors.New("invalid dataset")

// Dataset is a named collection of evaluation examples as stored on disk.
//
//	name: coach-v1
//	extraction:
//	  - id: complete-upfront
//	    transcript:
//	      - {speaker: user, text: "45 minutes, dumbbells, chest"}
//	    expected: {goal: hypertrophy, focus: chest, ...}
//	generation:
//	  - id: strength-barbell
//	    fields: {goal: strength, equipment: barbell, duration: "60", focus: legs}
type Dataset struct {
	Name       string                     `yaml:"name"`
	Extraction []domain.ExtractionExample `yaml:"extraction"`
	Generation []domain.GenerationExample `yaml:"generation"`
}

// LoadDataset reads and validates a YAML dataset file.
func LoadDataset(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	ds, err := ParseDataset(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ParseDataset decodes a YAML dataset. Unknown keys are rejected so a typo
// in a field name cannot silently turn into an absent value.
func ParseDataset(r io.Reader) (*Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var ds Dataset
	if err := dec.Decode(&ds); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidDataset)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate checks every example and rejects duplicate IDs within a kind.
func (d *Dataset) Validate() error {
	if len(d.Extraction) == 0 && len(d.Generation) == 0 {
		return fmt.Errorf("%w: no examples", ErrInvalidDataset)
	}

	seen := make(map[string]struct{}, len(d.Extraction))
	for i, ex := range d.Extraction {
		if ex.ID == "" {
			return fmt.Errorf("%w: extraction example %d has no id", ErrInvalidDataset, i)
		}
		if len(ex.Transcript) == 0 {
			return fmt.Errorf("%w: extraction example %q has no transcript", ErrInvalidDataset, ex.ID)
		}
		if _, dup := seen[ex.ID]; dup {
			return fmt.Errorf("%w: duplicate extraction id %q", ErrInvalidDataset, ex.ID)
		}
		seen[ex.ID] = struct{}{}
	}

	seen = make(map[string]struct{}, len(d.Generation))
	for i, ex := range d.Generation {
		if ex.ID == "" {
			return fmt.Errorf("%w: generation example %d has no id", ErrInvalidDataset, i)
		}
		if _, dup := seen[ex.ID]; dup {
			return fmt.Errorf("%w: duplicate generation id %q", ErrInvalidDataset, ex.ID)
		}
		seen[ex.ID] = struct{}{}
	}
	return nil
}

// Request builds a runnable evaluation request over one kind of example.
func (d *Dataset) Request(kind domain.EvaluationKind, label string, limit int) (domain.EvaluationRequest, error) {
	req := domain.EvaluationRequest{Kind: kind, Label: label, Limit: limit}
	switch kind {
	case domain.EvaluationExtraction:
		req.Extraction = d.Extraction
	case domain.EvaluationGeneration:
		req.Generation = d.Generation
	}
	if req.Label == "" {
		req.Label = d.Name
	}
	if err := req.Validate(); err != nil {
		return domain.EvaluationRequest{}, err
	}
	return req, nil
}
