// Package schema implements the closed validator catalog of the gateway. Each
// SchemaKind maps to exactly one validator implementation, selected through an
// exhaustive switch so that adding a kind is a compile-time-checked change
// rather than runtime configuration.
//
// Validators check structure only: every failing field yields one {path,
// message} entry and all fields are checked so a caller receives the complete
// error set in one round trip. Sanitization of valid data happens downstream.
package schema

import (
	"fmt"

	"github.com/meritpath/secgate/pkg/domain"
)

// Validator checks an untyped data tree against one schema kind's contract.
// Implementations are immutable and safe for concurrent use.
type Validator interface {
	Kind() domain.SchemaKind
	Validate(raw any) domain.ValidationOutcome
}

// Build resolves the validator for a schema kind with the supplied tunables.
// Unknown kinds return an error wrapping domain.ErrUnsupportedSchema.
func Build(kind domain.SchemaKind, opts *domain.Options) (Validator, error) {
	if opts == nil {
		opts = &domain.Options{}
	}

	switch kind {
	case domain.SchemaEmail:
		return &emailValidator{}, nil
	case domain.SchemaPhone:
		return &phoneValidator{}, nil
	case domain.SchemaUUID:
		return &uuidValidator{}, nil
	case domain.SchemaURL:
		return &urlValidator{}, nil
	case domain.SchemaSanitizedText:
		return newSanitizedTextValidator(*opts), nil
	case domain.SchemaRichText:
		return newRichTextValidator(*opts), nil
	case domain.SchemaFileUpload:
		return newFileUploadValidator(*opts), nil
	case domain.SchemaUserProfile:
		return &userProfileValidator{}, nil
	case domain.SchemaScholarshipApplication:
		return &scholarshipApplicationValidator{}, nil
	case domain.SchemaAssessmentSubmission:
		return &assessmentSubmissionValidator{}, nil
	case domain.SchemaFinancialGoal:
		return &financialGoalValidator{}, nil
	case domain.SchemaPagination:
		return &paginationValidator{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedSchema, string(kind))
	}
}
