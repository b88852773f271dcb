package schema

// Names of the built-in wire schemas
const (
	Submission  = "submission"
	FormState   = "form_state"
	Declaration = "declaration"
)

type obj = map[string]interface{}

var localizedText = obj{
	"type":     "object",
	"required": []string{"en", "ru", "kz"},
	"properties": obj{
		"en": obj{"type": "string", "minLength": 1},
		"ru": obj{"type": "string", "minLength": 1},
		"kz": obj{"type": "string", "minLength": 1},
	},
}

var additionalAnswer = obj{
	"type":     "object",
	"required": []string{"additionalAnswerId", "answer"},
	"properties": obj{
		"additionalAnswerId": obj{"type": "integer"},
		"answer":             obj{"type": "string"},
	},
	"additionalProperties": false,
}

var submissionSchema = obj{
	"type":     "object",
	"required": []string{"answers"},
	"properties": obj{
		"answers": obj{
			"type": "array",
			"items": obj{
				"type":     "object",
				"required": []string{"optionId"},
				"properties": obj{
					"optionId":   obj{"type": "integer"},
					"isAnswered": obj{"type": "boolean"},
					"answer":     obj{"type": []string{"string", "null"}},
					"additionalAnswers": obj{
						"type": "array",
						"items": obj{
							"type":     "object",
							"required": []string{"answers"},
							"properties": obj{
								"answers": obj{"type": "array", "items": additionalAnswer},
							},
							"additionalProperties": false,
						},
					},
				},
				"additionalProperties": false,
			},
		},
	},
	"additionalProperties": false,
}

var formStateSchema = obj{
	"type":     "object",
	"required": []string{"declarationAnswerId", "questions"},
	"properties": obj{
		"declarationAnswerId": obj{"type": "string"},
		"questions": obj{
			"type": "array",
			"items": obj{
				"type":     "object",
				"required": []string{"kind", "questionId"},
				"properties": obj{
					"kind":             obj{"enum": []string{"YES_NO", "AGREE", "OPEN_ENDED"}},
					"questionId":       obj{"type": "integer"},
					"selectedOptionId": obj{"type": []string{"integer", "null"}},
					"isAgreed":         obj{"type": []string{"boolean", "null"}},
					"openEndedAnswers": obj{
						"type": "array",
						"items": obj{
							"type":     "object",
							"required": []string{"optionId", "answer"},
							"properties": obj{
								"optionId": obj{"type": "integer"},
								"answer":   obj{"type": "string"},
							},
						},
					},
					"optionGroups": obj{"type": "array"},
				},
			},
		},
	},
}

var declarationSchema = obj{
	"type":     "object",
	"required": []string{"kind", "title", "questions"},
	"properties": obj{
		"kind":  obj{"enum": []string{"INITIAL", "AD_HOC"}},
		"title": localizedText,
		"questions": obj{
			"type":     "array",
			"minItems": 1,
			"items": obj{
				"type":     "object",
				"required": []string{"questionType", "description", "options"},
				"properties": obj{
					"orderNumber":  obj{"type": "integer"},
					"questionType": obj{"type": "string"},
					"description":  localizedText,
					"isRequired":   obj{"type": "boolean"},
					"options": obj{
						"type":     "array",
						"minItems": 1,
						"items": obj{
							"type":     "object",
							"required": []string{"description"},
							"properties": obj{
								"description":               localizedText,
								"isConflict":                obj{"type": "boolean"},
								"multipleAdditionalAnswers": obj{"type": "boolean"},
								"additionalQuestions": obj{
									"type": "array",
									"items": obj{
										"type":     "object",
										"required": []string{"description"},
										"properties": obj{
											"description": localizedText,
											"isRequired":  obj{"type": "boolean"},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	},
}
