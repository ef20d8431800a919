package schema

import (
	"strings"
	"time"

	"github.com/meritpath/secgate/pkg/domain"
)

// Bounds for the composite domain objects.
const (
	maxAcademicRecords    = 10
	maxApplicationDocs    = 5
	maxAssessmentAnswers  = 100
	maxGPA                = 4.0
	minGraduationYear     = 1900
	maxNameLength         = 100
	maxTitleLength        = 120
	maxEssayLength        = 10000
	maxAnswerLength       = 2000
	maxBioLength          = 500
	maxInstitutionLength  = 200
	maxGoalAmount         = 1_000_000_000
	maxPageNumber         = 100000
	maxPageSize           = 100
	defaultPageSize       = 20
	maxSortFieldLength    = 50
)

// maxGraduationYear allows registrations up to ten years ahead of the current
// calendar year.
func maxGraduationYear() int {
	return time.Now().Year() + 10
}

func validateGPA(l *errList, path string, raw any) (float64, bool) {
	n, ok := asNumber(raw)
	if !ok {
		l.add(path, "must be a number")
		return 0, false
	}
	if n < 0 || n > maxGPA {
		l.addf(path, "must be between 0 and %.1f", maxGPA)
		return 0, false
	}
	return n, true
}

func validateGraduationYear(l *errList, path string, raw any) (int, bool) {
	n, ok := asNumber(raw)
	if !ok {
		l.add(path, "must be a number")
		return 0, false
	}
	maxYear := maxGraduationYear()
	if !isWholeNumber(n) || int(n) < minGraduationYear || int(n) > maxYear {
		l.addf(path, "must be a year between %d and %d", minGraduationYear, maxYear)
		return 0, false
	}
	return int(n), true
}

type userProfileValidator struct{}

func (v *userProfileValidator) Kind() domain.SchemaKind { return domain.SchemaUserProfile }

func (v *userProfileValidator) Validate(raw any) domain.ValidationOutcome {
	var l errList
	obj, ok := asObject(raw)
	if !ok {
		l.add(rootPath, "must be an object")
		return l.outcome(nil)
	}

	out := map[string]any{}

	if s, ok := requireString(&l, obj, "", "firstName"); ok {
		if cleaned, ok := validateSanitizedText(&l, "firstName", s, 1, maxNameLength); ok {
			out["firstName"] = cleaned
		}
	}
	if s, ok := requireString(&l, obj, "", "lastName"); ok {
		if cleaned, ok := validateSanitizedText(&l, "lastName", s, 1, maxNameLength); ok {
			out["lastName"] = cleaned
		}
	}
	if raw, present := obj["email"]; present && raw != nil {
		if email, ok := validateEmail(&l, "email", raw); ok {
			out["email"] = email
		}
	} else {
		l.add("email", "is required")
	}
	if raw, present := obj["phone"]; present && raw != nil {
		if phone, ok := validatePhone(&l, "phone", raw); ok {
			out["phone"] = phone
		}
	}
	if raw, present := obj["avatarUrl"]; present && raw != nil {
		if u, ok := validateURL(&l, "avatarUrl", raw); ok {
			out["avatarUrl"] = u
		}
	}
	if raw, present := obj["bio"]; present && raw != nil {
		if bio, ok := validateSanitizedText(&l, "bio", raw, 1, maxBioLength); ok {
			out["bio"] = bio
		}
	}
	if raw, present := obj["graduationYear"]; present && raw != nil {
		if year, ok := validateGraduationYear(&l, "graduationYear", raw); ok {
			out["graduationYear"] = year
		}
	}

	return l.outcome(nullIfInvalid(&l, out))
}

type scholarshipApplicationValidator struct{}

func (v *scholarshipApplicationValidator) Kind() domain.SchemaKind {
	return domain.SchemaScholarshipApplication
}

func (v *scholarshipApplicationValidator) Validate(raw any) domain.ValidationOutcome {
	var l errList
	obj, ok := asObject(raw)
	if !ok {
		l.add(rootPath, "must be an object")
		return l.outcome(nil)
	}

	out := map[string]any{}

	if raw, present := obj["scholarshipId"]; present && raw != nil {
		if id, ok := validateUUID(&l, "scholarshipId", raw); ok {
			out["scholarshipId"] = id
		}
	} else {
		l.add("scholarshipId", "is required")
	}
	if s, ok := requireString(&l, obj, "", "fullName"); ok {
		if cleaned, ok := validateSanitizedText(&l, "fullName", s, 1, 2*maxNameLength); ok {
			out["fullName"] = cleaned
		}
	}
	if raw, present := obj["email"]; present && raw != nil {
		if email, ok := validateEmail(&l, "email", raw); ok {
			out["email"] = email
		}
	} else {
		l.add("email", "is required")
	}
	if raw, present := obj["gpa"]; present && raw != nil {
		if gpa, ok := validateGPA(&l, "gpa", raw); ok {
			out["gpa"] = gpa
		}
	} else {
		l.add("gpa", "is required")
	}
	if raw, present := obj["graduationYear"]; present && raw != nil {
		if year, ok := validateGraduationYear(&l, "graduationYear", raw); ok {
			out["graduationYear"] = year
		}
	}
	if raw, present := obj["essay"]; present && raw != nil {
		if essay, ok := validateRichText(&l, "essay", raw, maxEssayLength); ok {
			out["essay"] = essay
		}
	}

	if raw, present := obj["academicRecords"]; present && raw != nil {
		records, ok := asList(raw)
		if !ok {
			l.add("academicRecords", "must be a list")
		} else if len(records) > maxAcademicRecords {
			l.addf("academicRecords", "must contain at most %d records", maxAcademicRecords)
		} else {
			outRecords := make([]any, 0, len(records))
			for i, rec := range records {
				outRecords = append(outRecords, v.validateRecord(&l, indexPath("academicRecords", i), rec))
			}
			out["academicRecords"] = outRecords
		}
	}

	if raw, present := obj["documents"]; present && raw != nil {
		docs, ok := asList(raw)
		if !ok {
			l.add("documents", "must be a list")
		} else if len(docs) > maxApplicationDocs {
			l.addf("documents", "must contain at most %d documents", maxApplicationDocs)
		} else {
			fileValidator := newFileUploadValidator(domain.Options{})
			outDocs := make([]any, 0, len(docs))
			for i, doc := range docs {
				outcome := fileValidator.Validate(doc)
				if !outcome.Valid {
					for _, fe := range outcome.Errors {
						l.add(fieldPath(indexPath("documents", i), fe.Path), fe.Message)
					}
					continue
				}
				outDocs = append(outDocs, outcome.SanitizedData)
			}
			out["documents"] = outDocs
		}
	}

	return l.outcome(nullIfInvalid(&l, out))
}

func (v *scholarshipApplicationValidator) validateRecord(l *errList, path string, raw any) any {
	rec, ok := asObject(raw)
	if !ok {
		l.add(path, "must be an object")
		return nil
	}

	out := map[string]any{}
	if s, ok := requireString(l, rec, path, "institution"); ok {
		if cleaned, ok := validateSanitizedText(l, fieldPath(path, "institution"), s, 1, maxInstitutionLength); ok {
			out["institution"] = cleaned
		}
	}
	if raw, present := rec["gpa"]; present && raw != nil {
		if gpa, ok := validateGPA(l, fieldPath(path, "gpa"), raw); ok {
			out["gpa"] = gpa
		}
	}
	if raw, present := rec["year"]; present && raw != nil {
		if year, ok := validateGraduationYear(l, fieldPath(path, "year"), raw); ok {
			out["year"] = year
		}
	}
	return out
}

type assessmentSubmissionValidator struct{}

func (v *assessmentSubmissionValidator) Kind() domain.SchemaKind {
	return domain.SchemaAssessmentSubmission
}

func (v *assessmentSubmissionValidator) Validate(raw any) domain.ValidationOutcome {
	var l errList
	obj, ok := asObject(raw)
	if !ok {
		l.add(rootPath, "must be an object")
		return l.outcome(nil)
	}

	out := map[string]any{}

	if raw, present := obj["assessmentId"]; present && raw != nil {
		if id, ok := validateUUID(&l, "assessmentId", raw); ok {
			out["assessmentId"] = id
		}
	} else {
		l.add("assessmentId", "is required")
	}

	raw, present := obj["responses"]
	if !present || raw == nil {
		l.add("responses", "is required")
		return l.outcome(nil)
	}
	responses, ok := asList(raw)
	if !ok {
		l.add("responses", "must be a list")
		return l.outcome(nil)
	}
	if len(responses) < 1 {
		l.add("responses", "must contain at least 1 response")
	}
	if len(responses) > maxAssessmentAnswers {
		l.addf("responses", "must contain at most %d responses", maxAssessmentAnswers)
	}

	outResponses := make([]any, 0, len(responses))
	for i, resp := range responses {
		path := indexPath("responses", i)
		respObj, ok := asObject(resp)
		if !ok {
			l.add(path, "must be an object")
			continue
		}
		outResp := map[string]any{}
		if raw, present := respObj["questionId"]; present && raw != nil {
			if id, ok := validateUUID(&l, fieldPath(path, "questionId"), raw); ok {
				outResp["questionId"] = id
			}
		} else {
			l.add(fieldPath(path, "questionId"), "is required")
		}
		if raw, present := respObj["answer"]; present && raw != nil {
			if answer, ok := validateSanitizedText(&l, fieldPath(path, "answer"), raw, 1, maxAnswerLength); ok {
				outResp["answer"] = answer
			}
		} else {
			l.add(fieldPath(path, "answer"), "is required")
		}
		outResponses = append(outResponses, outResp)
	}
	out["responses"] = outResponses

	return l.outcome(nullIfInvalid(&l, out))
}

type financialGoalValidator struct{}

func (v *financialGoalValidator) Kind() domain.SchemaKind { return domain.SchemaFinancialGoal }

func (v *financialGoalValidator) Validate(raw any) domain.ValidationOutcome {
	var l errList
	obj, ok := asObject(raw)
	if !ok {
		l.add(rootPath, "must be an object")
		return l.outcome(nil)
	}

	out := map[string]any{}

	if s, ok := requireString(&l, obj, "", "title"); ok {
		if cleaned, ok := validateSanitizedText(&l, "title", s, 1, maxTitleLength); ok {
			out["title"] = cleaned
		}
	}
	var target float64
	haveTarget := false
	if n, ok := requireNumber(&l, obj, "", "targetAmount"); ok {
		if n <= 0 || n > maxGoalAmount {
			l.addf("targetAmount", "must be greater than 0 and at most %d", maxGoalAmount)
		} else {
			out["targetAmount"] = n
			target = n
			haveTarget = true
		}
	}
	if n, ok := optionalNumber(&l, obj, "", "currentAmount"); ok {
		if n < 0 {
			l.add("currentAmount", "must not be negative")
		} else if haveTarget && n > target {
			l.add("currentAmount", "must not exceed targetAmount")
		} else {
			out["currentAmount"] = n
		}
	}
	if s, ok := optionalString(&l, obj, "", "targetDate"); ok {
		if _, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err != nil {
			l.add("targetDate", "must be a date in YYYY-MM-DD form")
		} else {
			out["targetDate"] = strings.TrimSpace(s)
		}
	}
	if s, ok := optionalString(&l, obj, "", "category"); ok {
		if cleaned, ok := validateSanitizedText(&l, "category", s, 1, maxNameLength); ok {
			out["category"] = cleaned
		}
	}

	return l.outcome(nullIfInvalid(&l, out))
}

type paginationValidator struct{}

func (v *paginationValidator) Kind() domain.SchemaKind { return domain.SchemaPagination }

func (v *paginationValidator) Validate(raw any) domain.ValidationOutcome {
	var l errList
	obj, ok := asObject(raw)
	if !ok {
		l.add(rootPath, "must be an object")
		return l.outcome(nil)
	}

	out := map[string]any{
		"page":     1,
		"pageSize": defaultPageSize,
	}

	if n, ok := optionalNumber(&l, obj, "", "page"); ok {
		if !isWholeNumber(n) || n < 1 || n > maxPageNumber {
			l.addf("page", "must be an integer between 1 and %d", maxPageNumber)
		} else {
			out["page"] = int(n)
		}
	}
	if n, ok := optionalNumber(&l, obj, "", "pageSize"); ok {
		if !isWholeNumber(n) || n < 1 || n > maxPageSize {
			l.addf("pageSize", "must be an integer between 1 and %d", maxPageSize)
		} else {
			out["pageSize"] = int(n)
		}
	}
	if s, ok := optionalString(&l, obj, "", "sortBy"); ok {
		trimmed := strings.TrimSpace(s)
		if len(trimmed) == 0 || len(trimmed) > maxSortFieldLength || !isIdentifier(trimmed) {
			l.add("sortBy", "must be a short field identifier")
		} else {
			out["sortBy"] = trimmed
		}
	}
	if s, ok := optionalString(&l, obj, "", "sortOrder"); ok {
		order := strings.ToLower(strings.TrimSpace(s))
		if order != "asc" && order != "desc" {
			l.add("sortOrder", "must be asc or desc")
		} else {
			out["sortOrder"] = order
		}
	}

	return l.outcome(nullIfInvalid(&l, out))
}

func isIdentifier(s string) bool {
	for _, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}
