package normalizer

import (
	"gigsync/internal/logger"
	"gigsync/internal/models"
)

// Processor validates an extraction and builds the candidate's records.
type Processor struct {
	validator   *Validator
	transformer *Transformer
}

// NewProcessor creates a new processor instance.
func NewProcessor(log *logger.Logger) *Processor {
	return &Processor{
		validator:   NewValidator(log),
		transformer: NewTransformer(),
	}
}

// Process returns the records for candidate. Validation is idempotent, so an
// extraction that was already validated passes through unchanged.
func (p *Processor) Process(candidate models.Candidate, ext *models.Extraction) []models.Record {
	return p.transformer.Build(candidate, p.validator.Validate(ext))
}
