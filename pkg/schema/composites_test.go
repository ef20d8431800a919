package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meritpath/secgate/pkg/domain"
)

func errorPaths(outcome domain.ValidationOutcome) []string {
	paths := make([]string, 0, len(outcome.Errors))
	for _, fe := range outcome.Errors {
		paths = append(paths, fe.Path)
	}
	return paths
}

func TestUserProfileValidator(t *testing.T) {
	v := mustBuild(t, domain.SchemaUserProfile, nil)

	outcome := v.Validate(map[string]any{
		"firstName":      "  Ada  ",
		"lastName":       "Lovelace",
		"email":          "Ada@Example.COM",
		"phone":          "+1 (555) 123-4567",
		"avatarUrl":      "https://cdn.example.com/a.png",
		"bio":            "Mathematician",
		"graduationYear": float64(2028),
	})
	require.True(t, outcome.Valid, "errors: %v", outcome.Errors)

	data := outcome.SanitizedData.(map[string]any)
	assert.Equal(t, "Ada", data["firstName"])
	assert.Equal(t, "ada@example.com", data["email"])
	assert.Equal(t, "15551234567", data["phone"])
	assert.Equal(t, 2028, data["graduationYear"])
}

func TestUserProfileValidatorOptionalFieldsOmitted(t *testing.T) {
	v := mustBuild(t, domain.SchemaUserProfile, nil)

	outcome := v.Validate(map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
	})
	require.True(t, outcome.Valid, "errors: %v", outcome.Errors)

	data := outcome.SanitizedData.(map[string]any)
	assert.NotContains(t, data, "phone")
	assert.NotContains(t, data, "bio")
}

func TestUserProfileValidatorCollectsAllErrors(t *testing.T) {
	v := mustBuild(t, domain.SchemaUserProfile, nil)

	outcome := v.Validate(map[string]any{
		"lastName":       "Lovelace",
		"email":          "nope",
		"graduationYear": float64(1200),
	})
	require.False(t, outcome.Valid)
	assert.ElementsMatch(t, []string{"firstName", "email", "graduationYear"}, errorPaths(outcome))
	assert.Nil(t, outcome.SanitizedData)
}

func validApplication() map[string]any {
	return map[string]any{
		"scholarshipId":  "6f9619ff-8b86-d011-b42d-00c04fc964ff",
		"fullName":       "Ada Lovelace",
		"email":          "ada@example.com",
		"gpa":            3.8,
		"graduationYear": float64(2027),
		"essay":          "Why I deserve this scholarship.",
	}
}

func TestScholarshipApplicationValidator(t *testing.T) {
	v := mustBuild(t, domain.SchemaScholarshipApplication, nil)

	outcome := v.Validate(validApplication())
	require.True(t, outcome.Valid, "errors: %v", outcome.Errors)

	data := outcome.SanitizedData.(map[string]any)
	assert.Equal(t, 3.8, data["gpa"])
	assert.Equal(t, "ada@example.com", data["email"])
}

// Every failing field reports, none short-circuits: a bad email and an
// out-of-range GPA yield exactly two entries.
func TestScholarshipApplicationValidatorTwoFailures(t *testing.T) {
	v := mustBuild(t, domain.SchemaScholarshipApplication, nil)

	app := validApplication()
	app["email"] = "not-an-email"
	app["gpa"] = 4.5

	outcome := v.Validate(app)
	require.False(t, outcome.Valid)
	require.Len(t, outcome.Errors, 2)
	assert.ElementsMatch(t, []string{"email", "gpa"}, errorPaths(outcome))
	assert.Nil(t, outcome.SanitizedData)
}

func TestScholarshipApplicationValidatorNestedPaths(t *testing.T) {
	v := mustBuild(t, domain.SchemaScholarshipApplication, nil)

	app := validApplication()
	app["academicRecords"] = []any{
		map[string]any{"institution": "MIT", "gpa": 3.9, "year": float64(2024)},
		map[string]any{"gpa": 5.0},
	}
	app["documents"] = []any{
		map[string]any{"filename": "ok.pdf", "size": float64(100), "mimeType": "application/pdf"},
		map[string]any{"filename": "../bad", "size": float64(100), "mimeType": "application/pdf"},
	}

	outcome := v.Validate(app)
	require.False(t, outcome.Valid)
	assert.Contains(t, errorPaths(outcome), "academicRecords[1].institution")
	assert.Contains(t, errorPaths(outcome), "academicRecords[1].gpa")
	assert.Contains(t, errorPaths(outcome), "documents[1].filename")
}

func TestScholarshipApplicationValidatorListCeilings(t *testing.T) {
	v := mustBuild(t, domain.SchemaScholarshipApplication, nil)

	records := make([]any, maxAcademicRecords+1)
	for i := range records {
		records[i] = map[string]any{"institution": "School"}
	}
	app := validApplication()
	app["academicRecords"] = records

	outcome := v.Validate(app)
	require.False(t, outcome.Valid)
	assert.Contains(t, errorPaths(outcome), "academicRecords")
}

func TestAssessmentSubmissionValidator(t *testing.T) {
	v := mustBuild(t, domain.SchemaAssessmentSubmission, nil)

	outcome := v.Validate(map[string]any{
		"assessmentId": "6f9619ff-8b86-d011-b42d-00c04fc964ff",
		"responses": []any{
			map[string]any{
				"questionId": "0e3f9a86-1db0-4c0e-9d54-3a2e1f00aa11",
				"answer":     "  42  ",
			},
		},
	})
	require.True(t, outcome.Valid, "errors: %v", outcome.Errors)

	data := outcome.SanitizedData.(map[string]any)
	responses := data["responses"].([]any)
	require.Len(t, responses, 1)
	assert.Equal(t, "42", responses[0].(map[string]any)["answer"])
}

func TestAssessmentSubmissionValidatorRejections(t *testing.T) {
	v := mustBuild(t, domain.SchemaAssessmentSubmission, nil)

	cases := []struct {
		name string
		in   map[string]any
		path string
	}{
		{"missing responses", map[string]any{"assessmentId": "6f9619ff-8b86-d011-b42d-00c04fc964ff"}, "responses"},
		{"empty responses", map[string]any{
			"assessmentId": "6f9619ff-8b86-d011-b42d-00c04fc964ff",
			"responses":    []any{},
		}, "responses"},
		{"responses not a list", map[string]any{
			"assessmentId": "6f9619ff-8b86-d011-b42d-00c04fc964ff",
			"responses":    "answer",
		}, "responses"},
		{"response missing answer", map[string]any{
			"assessmentId": "6f9619ff-8b86-d011-b42d-00c04fc964ff",
			"responses": []any{
				map[string]any{"questionId": "0e3f9a86-1db0-4c0e-9d54-3a2e1f00aa11"},
			},
		}, "responses[0].answer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := v.Validate(tc.in)
			require.False(t, outcome.Valid)
			assert.Contains(t, errorPaths(outcome), tc.path)
		})
	}
}

func TestAssessmentSubmissionValidatorTooManyResponses(t *testing.T) {
	v := mustBuild(t, domain.SchemaAssessmentSubmission, nil)

	responses := make([]any, maxAssessmentAnswers+1)
	for i := range responses {
		responses[i] = map[string]any{
			"questionId": "0e3f9a86-1db0-4c0e-9d54-3a2e1f00aa11",
			"answer":     "a",
		}
	}
	outcome := v.Validate(map[string]any{
		"assessmentId": "6f9619ff-8b86-d011-b42d-00c04fc964ff",
		"responses":    responses,
	})
	require.False(t, outcome.Valid)
	assert.Contains(t, errorPaths(outcome), "responses")
}

func TestFinancialGoalValidator(t *testing.T) {
	v := mustBuild(t, domain.SchemaFinancialGoal, nil)

	outcome := v.Validate(map[string]any{
		"title":         "Tuition fund",
		"targetAmount":  float64(20000),
		"currentAmount": float64(3500),
		"targetDate":    "2027-09-01",
		"category":      "education",
	})
	require.True(t, outcome.Valid, "errors: %v", outcome.Errors)

	data := outcome.SanitizedData.(map[string]any)
	assert.Equal(t, float64(20000), data["targetAmount"])
	assert.Equal(t, "2027-09-01", data["targetDate"])
}

func TestFinancialGoalValidatorRejections(t *testing.T) {
	v := mustBuild(t, domain.SchemaFinancialGoal, nil)

	cases := []struct {
		name string
		in   map[string]any
		path string
	}{
		{"missing title", map[string]any{"targetAmount": float64(100)}, "title"},
		{"zero target", map[string]any{"title": "t", "targetAmount": float64(0)}, "targetAmount"},
		{"target too large", map[string]any{"title": "t", "targetAmount": float64(maxGoalAmount + 1)}, "targetAmount"},
		{"negative current", map[string]any{"title": "t", "targetAmount": float64(100), "currentAmount": float64(-1)}, "currentAmount"},
		{"current exceeds target", map[string]any{"title": "t", "targetAmount": float64(100), "currentAmount": float64(101)}, "currentAmount"},
		{"bad date", map[string]any{"title": "t", "targetAmount": float64(100), "targetDate": "09/01/2027"}, "targetDate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := v.Validate(tc.in)
			require.False(t, outcome.Valid)
			assert.Contains(t, errorPaths(outcome), tc.path)
		})
	}
}

func TestPaginationValidatorDefaults(t *testing.T) {
	v := mustBuild(t, domain.SchemaPagination, nil)

	outcome := v.Validate(map[string]any{})
	require.True(t, outcome.Valid, "errors: %v", outcome.Errors)

	data := outcome.SanitizedData.(map[string]any)
	assert.Equal(t, 1, data["page"])
	assert.Equal(t, defaultPageSize, data["pageSize"])
	assert.NotContains(t, data, "sortBy")
}

func TestPaginationValidator(t *testing.T) {
	v := mustBuild(t, domain.SchemaPagination, nil)

	outcome := v.Validate(map[string]any{
		"page":      float64(3),
		"pageSize":  float64(50),
		"sortBy":    "createdAt",
		"sortOrder": "DESC",
	})
	require.True(t, outcome.Valid, "errors: %v", outcome.Errors)

	data := outcome.SanitizedData.(map[string]any)
	assert.Equal(t, 3, data["page"])
	assert.Equal(t, 50, data["pageSize"])
	assert.Equal(t, "createdAt", data["sortBy"])
	assert.Equal(t, "desc", data["sortOrder"])
}

func TestPaginationValidatorRejections(t *testing.T) {
	v := mustBuild(t, domain.SchemaPagination, nil)

	cases := []struct {
		name string
		in   map[string]any
		path string
	}{
		{"zero page", map[string]any{"page": float64(0)}, "page"},
		{"fractional page", map[string]any{"page": 1.5}, "page"},
		{"page too large", map[string]any{"page": float64(maxPageNumber + 1)}, "page"},
		{"page size too large", map[string]any{"pageSize": float64(maxPageSize + 1)}, "pageSize"},
		{"sort by with spaces", map[string]any{"sortBy": "created at"}, "sortBy"},
		{"sort by injection", map[string]any{"sortBy": "name; DROP TABLE users"}, "sortBy"},
		{"bad sort order", map[string]any{"sortOrder": "sideways"}, "sortOrder"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := v.Validate(tc.in)
			require.False(t, outcome.Valid)
			assert.Contains(t, errorPaths(outcome), tc.path)
			assert.Nil(t, outcome.SanitizedData)
		})
	}
}

func TestGraduationYearWindow(t *testing.T) {
	v := mustBuild(t, domain.SchemaUserProfile, nil)

	base := map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
	}

	thisYear := time.Now().Year()
	for year, wantValid := range map[int]bool{
		minGraduationYear:     true,
		minGraduationYear - 1: false,
		thisYear + 10:         true,
		thisYear + 11:         false,
	} {
		in := map[string]any{}
		for k, v := range base {
			in[k] = v
		}
		in["graduationYear"] = float64(year)
		outcome := v.Validate(in)
		assert.Equal(t, wantValid, outcome.Valid, "year %d", year)
	}
}
