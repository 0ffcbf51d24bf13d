package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/seniku-go-api/internal/repository"
)

// Criterion types stored in the achievement criteria JSON.
const (
	CriterionTotalGraded        = "total_graded_submissions"
	CriterionAverageGrade       = "average_grade"
	CriterionHighestGrade       = "highest_grade"
	CriterionCategoryCompletion = "category_completion"
	CriterionGradeCount         = "grade_count"
)

const defaultMinGrade = 90

// Comparison is the operator/threshold pair shared by every criterion.
type Comparison struct {
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
}

// Holds applies the comparison to an observed value. Unknown operators never hold.
func (c Comparison) Holds(observed float64) bool {
	switch c.Operator {
	case ">=":
		return observed >= c.Value
	case "<=":
		return observed <= c.Value
	case ">":
		return observed > c.Value
	case "<":
		return observed < c.Value
	case "==":
		return math.Abs(observed-c.Value) < 1e-9
	default:
		return false
	}
}

// Criterion is the closed set of unlock rules. Only types in this file implement it.
type Criterion interface {
	criterion()
}

// TotalGradedCriterion compares the number of graded submissions.
type TotalGradedCriterion struct{ Comparison }

// AverageGradeCriterion compares the mean grade over graded submissions.
type AverageGradeCriterion struct{ Comparison }

// HighestGradeCriterion compares the best grade received.
type HighestGradeCriterion struct{ Comparison }

// CategoryCompletionCriterion compares how many distinct categories have a graded submission.
// When Categories is set only those categories count.
type CategoryCompletionCriterion struct {
	Comparison
	Categories []uint
}

// GradeCountCriterion compares how many grades reached MinGrade.
type GradeCountCriterion struct {
	Comparison
	MinGrade int
}

// UnknownCriterion keeps an unrecognised rule so it can be reported; it never unlocks.
type UnknownCriterion struct {
	Type string
}

func (TotalGradedCriterion) criterion()        {}
func (AverageGradeCriterion) criterion()       {}
func (HighestGradeCriterion) criterion()       {}
func (CategoryCompletionCriterion) criterion() {}
func (GradeCountCriterion) criterion()         {}
func (UnknownCriterion) criterion()            {}

type rawCriterion struct {
	Type       string  `json:"type"`
	Operator   string  `json:"operator"`
	Value      float64 `json:"value"`
	Categories []uint  `json:"categories,omitempty"`
	MinGrade   *int    `json:"min_grade,omitempty"`
}

// ParseCriterion decodes stored criteria JSON. Unrecognised types become UnknownCriterion.
func ParseCriterion(data []byte) (Criterion, error) {
	var raw rawCriterion
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode criteria: %w", err)
	}

	cmp := Comparison{Operator: strings.TrimSpace(raw.Operator), Value: raw.Value}

	switch strings.ToLower(strings.TrimSpace(raw.Type)) {
	case CriterionTotalGraded:
		return TotalGradedCriterion{cmp}, nil
	case CriterionAverageGrade:
		return AverageGradeCriterion{cmp}, nil
	case CriterionHighestGrade:
		return HighestGradeCriterion{cmp}, nil
	case CriterionCategoryCompletion:
		return CategoryCompletionCriterion{Comparison: cmp, Categories: raw.Categories}, nil
	case CriterionGradeCount:
		minGrade := defaultMinGrade
		if raw.MinGrade != nil {
			minGrade = *raw.MinGrade
		}
		return GradeCountCriterion{Comparison: cmp, MinGrade: minGrade}, nil
	default:
		return UnknownCriterion{Type: raw.Type}, nil
	}
}

// StudentStats are the aggregates criteria are evaluated against.
type StudentStats struct {
	TotalGraded int
	Average     float64
	Highest     int
	grades      []int
	categories  map[uint]struct{}
}

// ComputeStats aggregates a student's graded records.
func ComputeStats(records []repository.GradedRecord) StudentStats {
	stats := StudentStats{
		grades:     make([]int, 0, len(records)),
		categories: make(map[uint]struct{}),
	}
	sum := 0
	for _, record := range records {
		stats.TotalGraded++
		sum += record.Grade
		if record.Grade > stats.Highest {
			stats.Highest = record.Grade
		}
		stats.grades = append(stats.grades, record.Grade)
		stats.categories[record.CategoryID] = struct{}{}
	}
	if stats.TotalGraded > 0 {
		stats.Average = float64(sum) / float64(stats.TotalGraded)
	}
	return stats
}

// CategoriesCompleted counts distinct graded categories, limited to allowed when non-empty.
func (s StudentStats) CategoriesCompleted(allowed []uint) int {
	if len(allowed) == 0 {
		return len(s.categories)
	}
	count := 0
	seen := make(map[uint]struct{}, len(allowed))
	for _, id := range allowed {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := s.categories[id]; ok {
			count++
		}
	}
	return count
}

// GradesAtLeast counts grades greater than or equal to minGrade.
func (s StudentStats) GradesAtLeast(minGrade int) int {
	count := 0
	for _, grade := range s.grades {
		if grade >= minGrade {
			count++
		}
	}
	return count
}

// Evaluate reports whether stats satisfy the criterion.
func Evaluate(criterion Criterion, stats StudentStats) bool {
	switch c := criterion.(type) {
	case TotalGradedCriterion:
		return c.Holds(float64(stats.TotalGraded))
	case AverageGradeCriterion:
		if stats.TotalGraded == 0 {
			return false
		}
		return c.Holds(stats.Average)
	case HighestGradeCriterion:
		if stats.TotalGraded == 0 {
			return false
		}
		return c.Holds(float64(stats.Highest))
	case CategoryCompletionCriterion:
		return c.Holds(float64(stats.CategoriesCompleted(c.Categories)))
	case GradeCountCriterion:
		return c.Holds(float64(stats.GradesAtLeast(c.MinGrade)))
	case UnknownCriterion:
		return false
	default:
		return false
	}
}

const criteriaSchemaURL = "seniku://schemas/achievement-criteria.json"

const criteriaSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "operator", "value"],
  "properties": {
    "type": {"type": "string", "enum": ["total_graded_submissions", "average_grade", "highest_grade", "category_completion", "grade_count"]},
    "operator": {"type": "string", "enum": [">=", "<=", ">", "<", "=="]},
    "value": {"type": "number", "minimum": 0},
    "categories": {"type": "array", "items": {"type": "integer", "minimum": 1}},
    "min_grade": {"type": "integer", "minimum": 0, "maximum": 100}
  }
}`

var (
	criteriaSchemaOnce     sync.Once
	compiledCriteriaSchema *jsonschema.Schema
	criteriaSchemaErr      error
)

// ValidateCriteria checks admin supplied criteria JSON against the criteria schema.
func ValidateCriteria(data []byte) error {
	criteriaSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(criteriaSchemaURL, strings.NewReader(criteriaSchema)); err != nil {
			criteriaSchemaErr = err
			return
		}
		compiledCriteriaSchema, criteriaSchemaErr = compiler.Compile(criteriaSchemaURL)
	})
	if criteriaSchemaErr != nil {
		return criteriaSchemaErr
	}

	var document interface{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&document); err != nil {
		return ErrInvalidCriteria.Wrap(err)
	}
	if err := compiledCriteriaSchema.Validate(document); err != nil {
		return ErrInvalidCriteria.Wrap(err)
	}
	return nil
}
