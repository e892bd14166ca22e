package api

import (
	"encoding/json"
	"strings"
	"sync"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/interviewer"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const evaluationSchemaJSON = `{
  "type": "object",
  "required": ["jd", "score", "questions", "strengths", "improvements", "followUps"],
  "properties": {
    "jd": {"type": "string"},
    "score": {"type": "number"},
    "questions": {"type": "array", "items": {"type": "string"}},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "improvements": {"type": "array", "items": {"type": "string"}},
    "followUps": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	evaluationSchemaOnce sync.Once
	evaluationSchema     *jsonschema.Schema
	evaluationSchemaErr  error
)

func compiledEvaluationSchema() (*jsonschema.Schema, error) {
	evaluationSchemaOnce.Do(func() {
		schemaValue, err := jsonschema.UnmarshalJSON(strings.NewReader(evaluationSchemaJSON))
		if err != nil {
			evaluationSchemaErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("evaluation.json", schemaValue); err != nil {
			evaluationSchemaErr = err
			return
		}
		evaluationSchema, evaluationSchemaErr = compiler.Compile("evaluation.json")
	})
	return evaluationSchema, evaluationSchemaErr
}

// DecodeEvaluation validates an evaluator reply against the wire schema and
// decodes it. Any failure is a ValidationError.
func DecodeEvaluation(body []byte) (*interviewer.Evaluation, error) {
	schema, err := compiledEvaluationSchema()
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile evaluation schema")
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, errors.ValidationError("evaluation is not valid JSON: " + err.Error())
	}
	if err := schema.Validate(value); err != nil {
		return nil, errors.ValidationError("evaluation does not match schema: " + err.Error())
	}

	var eval interviewer.Evaluation
	if err := json.Unmarshal(body, &eval); err != nil {
		return nil, errors.ValidationError("failed to decode evaluation: " + err.Error())
	}
	return &eval, nil
}
