// Package quality implements the rule-based data quality engine: applying
// copybook validation rules to records, synthesizing a schema from those
// rules, computing completeness metrics, and compiling the weighted
// quality report. Everything here is pure computation with no I/O.
package quality

import (
	"fmt"
	"strings"

	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/shared/types"
)

// fieldRules groups rules for one field, preserving rule declaration order
// so issue output is deterministic.
type fieldRules struct {
	field         string
	allowedValues []string
}

func groupLevel88(rules []entity.Level88Rule) []fieldRules {
	var order []string
	byField := make(map[string][]string)
	for _, r := range rules {
		if _, ok := byField[r.FieldName]; !ok {
			order = append(order, r.FieldName)
		}
		byField[r.FieldName] = append(byField[r.FieldName], r.Value)
	}
	grouped := make([]fieldRules, 0, len(order))
	for _, f := range order {
		grouped = append(grouped, fieldRules{field: f, allowedValues: byField[f]})
	}
	return grouped
}

func groupMetadata(rules []entity.MetadataRule) []fieldRules {
	var order []string
	byField := make(map[string][]string)
	for _, r := range rules {
		if r.TargetField == "" {
			continue
		}
		if _, ok := byField[r.TargetField]; !ok {
			order = append(order, r.TargetField)
		}
		byField[r.TargetField] = append(byField[r.TargetField], strings.TrimSpace(r.Value))
	}
	grouped := make([]fieldRules, 0, len(order))
	for _, f := range order {
		grouped = append(grouped, fieldRules{field: f, allowedValues: byField[f]})
	}
	return grouped
}

func valueString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// ApplyValidationRules validates every record against the level-88 and
// metadata rule sets and returns one result per record, indexed in input
// order. With no rules configured all records pass. Level-88 values match
// exactly; metadata values match after trimming whitespace on both sides.
// Fields absent from a record are skipped, not flagged.
func ApplyValidationRules(records []entity.Record, rules *entity.ValidationRules) []entity.ValidationResult {
	results := make([]entity.ValidationResult, 0, len(records))

	if rules.IsEmpty() {
		for idx := range records {
			results = append(results, entity.ValidationResult{
				RecordIndex:  idx,
				IsValid:      true,
				Issues:       []entity.ValidationIssue{},
				AppliedRules: []entity.AppliedRule{},
			})
		}
		return results
	}

	level88 := groupLevel88(rules.Level88Fields)
	metadata := groupMetadata(rules.MetadataRecords)

	for idx, record := range records {
		issues := []entity.ValidationIssue{}
		applied := []entity.AppliedRule{}

		for _, fr := range level88 {
			value, ok := record[fr.field]
			if !ok {
				continue
			}
			if !contains(fr.allowedValues, valueString(value)) {
				issues = append(issues, entity.ValidationIssue{
					Field:     fr.field,
					IssueType: entity.IssueTypeInvalidValue,
					Severity:  types.SeverityError,
					Message: fmt.Sprintf("Field '%s' has invalid value '%v'. Allowed values: %v",
						fr.field, value, fr.allowedValues),
					Value:         value,
					AllowedValues: fr.allowedValues,
					RuleType:      entity.RuleTypeLevel88,
				})
			} else {
				applied = append(applied, entity.AppliedRule{
					Field:    fr.field,
					RuleType: entity.RuleTypeLevel88,
					Value:    value,
				})
			}
		}

		for _, fr := range metadata {
			value, ok := record[fr.field]
			if !ok {
				continue
			}
			stripped := strings.TrimSpace(valueString(value))
			if !contains(fr.allowedValues, stripped) {
				issues = append(issues, entity.ValidationIssue{
					Field:     fr.field,
					IssueType: entity.IssueTypeInvalidValue,
					Severity:  types.SeverityError,
					Message: fmt.Sprintf("Field '%s' has invalid value '%v'. Allowed values: %v",
						fr.field, value, fr.allowedValues),
					Value:         value,
					AllowedValues: fr.allowedValues,
					RuleType:      entity.RuleTypeMetadata,
				})
			} else {
				applied = append(applied, entity.AppliedRule{
					Field:    fr.field,
					RuleType: entity.RuleTypeMetadata,
					Value:    value,
				})
			}
		}

		results = append(results, entity.ValidationResult{
			RecordIndex:  idx,
			IsValid:      len(issues) == 0,
			Issues:       issues,
			AppliedRules: applied,
		})
	}

	return results
}

// SchemaFromValidationRules synthesizes a field schema from the rule sets
// for the independent schema-validation pass. Level-88 fields come out
// required with their allowed-value union; metadata-only fields come out
// optional. Returns nil when no rules yield any field.
func SchemaFromValidationRules(rules *entity.ValidationRules) *entity.Schema {
	if rules.IsEmpty() {
		return nil
	}

	var order []string
	byName := make(map[string]*entity.FieldDescriptor)

	for _, r := range rules.Level88Fields {
		fd, ok := byName[r.FieldName]
		if !ok {
			fd = &entity.FieldDescriptor{
				Name:     r.FieldName,
				Type:     "string",
				Required: true,
			}
			byName[r.FieldName] = fd
			order = append(order, r.FieldName)
		}
		fd.AllowedValues = append(fd.AllowedValues, r.Value)
	}

	for _, r := range rules.MetadataRecords {
		if r.TargetField == "" {
			continue
		}
		fd, ok := byName[r.TargetField]
		if !ok {
			fd = &entity.FieldDescriptor{
				Name:     r.TargetField,
				Type:     "string",
				Required: false,
			}
			byName[r.TargetField] = fd
			order = append(order, r.TargetField)
		}
		fd.AllowedValues = append(fd.AllowedValues, r.Value)
	}

	if len(order) == 0 {
		return nil
	}

	fields := make([]entity.FieldDescriptor, 0, len(order))
	for _, name := range order {
		fields = append(fields, *byName[name])
	}
	return &entity.Schema{Fields: fields}
}

// isMissing reports whether a value counts as missing. Nil, blank strings,
// false, and numeric zero all count, matching the legacy analyzer.
func isMissing(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case bool:
		return !x
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	default:
		return false
	}
}

// CompletenessMetrics computes per-field and overall completeness for a
// record set. ByField only carries fields that have at least one missing
// value, and Overall averages those fields, defaulting to 1.0 when
// nothing is missing. Field count is taken from the first record.
func CompletenessMetrics(records []entity.Record) *entity.QualityMetrics {
	if len(records) == 0 {
		return nil
	}

	totalRecords := len(records)
	totalFields := len(records[0])

	missingByField := make(map[string]int)
	for _, record := range records {
		for field, value := range record {
			if isMissing(value) {
				missingByField[field]++
			}
		}
	}

	completenessByField := make(map[string]float64, len(missingByField))
	totalMissing := 0
	for field, count := range missingByField {
		completenessByField[field] = 1.0 - float64(count)/float64(totalRecords)
		totalMissing += count
	}

	overall := 1.0
	if len(completenessByField) > 0 {
		sum := 0.0
		for _, c := range completenessByField {
			sum += c
		}
		overall = sum / float64(len(completenessByField))
	}

	return &entity.QualityMetrics{
		TotalRecords: totalRecords,
		TotalFields:  totalFields,
		Completeness: entity.Completeness{
			Overall: overall,
			ByField: completenessByField,
		},
		MissingValues: entity.MissingValues{
			ByField:      missingByField,
			TotalMissing: totalMissing,
		},
	}
}

// Score weights of the overall quality score.
const (
	validationWeight   = 0.4
	schemaWeight       = 0.3
	completenessWeight = 0.3
)

// CompileReport aggregates the rule pass, the optional schema-validation
// pass, and the optional completeness metrics into one quality report.
// Each absent input contributes a perfect partial score, so the overall
// score degrades only on observed evidence.
func CompileReport(
	validationResults []entity.ValidationResult,
	schemaValidation *entity.SchemaValidation,
	qualityMetrics *entity.QualityMetrics,
	recommendations []entity.Recommendation,
	totalRecords int,
) entity.QualityReport {
	validCount := 0
	for _, r := range validationResults {
		if r.IsValid {
			validCount++
		}
	}
	validationScore := 1.0
	if totalRecords > 0 {
		validationScore = float64(validCount) / float64(totalRecords)
	}

	schemaScore := 1.0
	if schemaValidation != nil && schemaValidation.Summary != nil {
		summary := schemaValidation.Summary
		schemaTotal := summary.TotalRecords
		if schemaTotal == 0 {
			schemaTotal = totalRecords
		}
		if schemaTotal > 0 {
			schemaScore = float64(summary.ValidRecords) / float64(schemaTotal)
		}
	}

	completenessScore := 1.0
	if qualityMetrics != nil {
		completenessScore = qualityMetrics.Completeness.Overall
	}

	overall := validationScore*validationWeight +
		schemaScore*schemaWeight +
		completenessScore*completenessWeight

	var allIssues []entity.ValidationIssue
	for _, r := range validationResults {
		allIssues = append(allIssues, r.Issues...)
	}
	if schemaValidation != nil {
		for _, r := range schemaValidation.ValidationResults {
			allIssues = append(allIssues, r.Issues...)
		}
	}

	issuesByType := make(map[string]int)
	issuesBySeverity := map[types.Severity]int{
		types.SeverityError:   0,
		types.SeverityWarning: 0,
		types.SeverityInfo:    0,
	}
	for _, issue := range allIssues {
		issuesByType[issue.IssueType]++
		issuesBySeverity[issue.Severity]++
	}

	return entity.QualityReport{
		Success:             true,
		OverallQualityScore: overall,
		HasIssues:           len(allIssues) > 0,
		ValidationResults:   validationResults,
		SchemaValidation:    schemaValidation,
		QualityMetrics:      qualityMetrics,
		Recommendations:     recommendations,
		Summary: entity.QualitySummary{
			TotalRecords:     totalRecords,
			ValidRecords:     validCount,
			InvalidRecords:   totalRecords - validCount,
			IssuesByType:     issuesByType,
			IssuesBySeverity: issuesBySeverity,
			TotalIssues:      len(allIssues),
		},
	}
}
