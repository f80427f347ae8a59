package genai

import (
	"fmt"

	"github.com/compeng-bot/compeng-bot-go/internal/fulfillment"
	"google.golang.org/genai"
)

// Function names exposed to the model.
const (
	FuncCourseTitle     = "course_title"
	FuncCourseOutline   = "course_outline"
	FuncCourseLecturers = "course_lecturers"
	FuncLecturerCourses = "lecturer_courses"
	FuncDirectReply     = "direct_reply"
)

// ParamMessage carries the direct_reply text.
const ParamMessage = "message"

// IntentFunctionMap maps function names to fulfillment intent names.
var IntentFunctionMap = map[string]string{
	FuncCourseTitle:     fulfillment.IntentCourseTitle,
	FuncCourseOutline:   fulfillment.IntentCourseOutline,
	FuncCourseLecturers: fulfillment.IntentCourseLecturers,
	FuncLecturerCourses: fulfillment.IntentLecturerCourses,
	FuncDirectReply:     "",
}

// ParamKeyMap maps function names to the parameter each one carries.
var ParamKeyMap = map[string]string{
	FuncCourseTitle:     fulfillment.ParamCourses,
	FuncCourseOutline:   fulfillment.ParamCourses,
	FuncCourseLecturers: fulfillment.ParamCourses,
	FuncLecturerCourses: fulfillment.ParamLecturers,
	FuncDirectReply:     ParamMessage,
}

func courseCodesSchema() *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: "Course codes exactly as the user wrote them. Example: [\"CPENG511\", \"cp l 211\"]",
		Items:       &genai.Schema{Type: genai.TypeString},
	}
}

// BuildIntentFunctions returns the function declarations for intent parsing.
func BuildIntentFunctions() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        FuncCourseTitle,
			Description: "Look up the title of one or more courses.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{fulfillment.ParamCourses: courseCodesSchema()},
				Required:   []string{fulfillment.ParamCourses},
			},
		},
		{
			Name:        FuncCourseOutline,
			Description: "Look up the outline or description of one or more courses.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{fulfillment.ParamCourses: courseCodesSchema()},
				Required:   []string{fulfillment.ParamCourses},
			},
		},
		{
			Name:        FuncCourseLecturers,
			Description: "List who teaches one or more courses.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{fulfillment.ParamCourses: courseCodesSchema()},
				Required:   []string{fulfillment.ParamCourses},
			},
		},
		{
			Name:        FuncLecturerCourses,
			Description: "List the courses taught by one or more lecturers.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					fulfillment.ParamLecturers: {
						Type:        genai.TypeArray,
						Description: "Lecturer abbreviations. Example: [\"JDS\", \"AMK\"]",
						Items:       &genai.Schema{Type: genai.TypeString},
					},
				},
				Required: []string{fulfillment.ParamLecturers},
			},
		},
		{
			Name:        FuncDirectReply,
			Description: "Reply directly for greetings, thanks, off-topic questions or when the request is unclear.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					ParamMessage: {
						Type:        genai.TypeString,
						Description: "A short reply to the user in their language.",
					},
				},
				Required: []string{ParamMessage},
			},
		},
	}
}

// newParseResult builds a ParseResult from a function call's arguments.
// Array parameters accept a bare string as a single item.
func newParseResult(funcName string, args map[string]any) (*ParseResult, error) {
	intent, ok := IntentFunctionMap[funcName]
	if !ok {
		return nil, fmt.Errorf("unknown function: %s", funcName)
	}
	paramKey := ParamKeyMap[funcName]
	value, exists := args[paramKey]
	if !exists {
		return nil, fmt.Errorf("missing required parameter %q for function %q", paramKey, funcName)
	}

	if funcName == FuncDirectReply {
		msg, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q for function %q is not a string (got %T)", paramKey, funcName, value)
		}
		return &ParseResult{Reply: msg, FunctionName: funcName}, nil
	}

	var values []string
	switch v := value.(type) {
	case string:
		values = []string{v}
	case []string:
		values = v
	case []any:
		values = make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %q for function %q has non-string item (got %T)", paramKey, funcName, item)
			}
			values = append(values, s)
		}
	default:
		return nil, fmt.Errorf("parameter %q for function %q is not an array (got %T)", paramKey, funcName, value)
	}

	return &ParseResult{
		Intent:       intent,
		Params:       map[string][]string{paramKey: values},
		FunctionName: funcName,
	}, nil
}
