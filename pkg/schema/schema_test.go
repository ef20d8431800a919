package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meritpath/secgate/pkg/domain"
)

func TestBuildCoversCatalog(t *testing.T) {
	kinds := []domain.SchemaKind{
		domain.SchemaEmail,
		domain.SchemaPhone,
		domain.SchemaUUID,
		domain.SchemaURL,
		domain.SchemaSanitizedText,
		domain.SchemaRichText,
		domain.SchemaFileUpload,
		domain.SchemaUserProfile,
		domain.SchemaScholarshipApplication,
		domain.SchemaAssessmentSubmission,
		domain.SchemaFinancialGoal,
		domain.SchemaPagination,
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			v, err := Build(kind, nil)
			require.NoError(t, err)
			assert.Equal(t, kind, v.Kind())
		})
	}
}

func TestBuildUnknownKind(t *testing.T) {
	_, err := Build(domain.SchemaKind("customer_record"), nil)
	require.ErrorIs(t, err, domain.ErrUnsupportedSchema)
	assert.Contains(t, err.Error(), "customer_record")
}

func TestBuildAppliesOptions(t *testing.T) {
	v, err := Build(domain.SchemaSanitizedText, &domain.Options{MinLength: 5, MaxLength: 8})
	require.NoError(t, err)

	assert.False(t, v.Validate("abcd").Valid)
	assert.True(t, v.Validate("abcde").Valid)
	assert.True(t, v.Validate("abcdefgh").Valid)
	assert.False(t, v.Validate("abcdefghi").Valid)
}

// The exclusivity invariant: an outcome carries sanitized data or errors,
// never both.
func TestOutcomeExclusivity(t *testing.T) {
	v, err := Build(domain.SchemaUserProfile, nil)
	require.NoError(t, err)

	// firstName is valid, email is not: no partial data may leak out.
	outcome := v.Validate(map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "not-an-email",
	})
	assert.False(t, outcome.Valid)
	assert.NotEmpty(t, outcome.Errors)
	assert.Nil(t, outcome.SanitizedData)
}
