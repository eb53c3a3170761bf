package scoring

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// Interpretation levels
const (
	LevelGood       = "good"
	LevelNormal     = "normal"
	LevelDiscomfort = "discomfort"
	LevelDistress   = "distress"
)

// Rule maps a CEL condition over a Result to an interpretation. The summary
// may reference {totalScore} and {positiveItems}.
type Rule struct {
	Level     string
	Condition string
	Summary   string
}

// DefaultRules are evaluated in order; the first match wins and LevelDistress
// applies when none match.
var DefaultRules = []Rule{
	{
		Level:     LevelGood,
		Condition: "averageScore < 1.5 && positiveItems < 43",
		Summary:   "您的整体心理健康状况良好，各项指标均在正常范围内。建议继续保持良好的生活习惯和积极的心态。",
	},
	{
		Level:     LevelNormal,
		Condition: "averageScore >= 1.5 && averageScore < 2.0",
		Summary:   "您的心理健康状况基本正常，但部分维度可能需要关注。建议适当调整生活节奏，保持良好的作息，必要时可以寻求心理咨询。",
	},
	{
		Level:     LevelDiscomfort,
		Condition: "averageScore >= 2.0 && averageScore < 3.0",
		Summary:   "您的得分显示存在一定程度的心理不适。总分 {totalScore} 分，有 {positiveItems} 项阳性症状。建议关注您的心理健康状况，考虑寻求专业心理咨询师的帮助。",
	},
}

// FallbackRule applies when no rule matches
var FallbackRule = Rule{
	Level:   LevelDistress,
	Summary: "您的得分较高，显示可能存在较为明显的心理困扰。总分 {totalScore} 分，有 {positiveItems} 项阳性症状。强烈建议您尽快寻求专业心理医生或精神科医生的帮助，进行更全面的评估。",
}

// Interpretation is the reader-facing summary of a Result
type Interpretation struct {
	Level    string           `json:"level"`
	Summary  string           `json:"summary"`
	Elevated []DimensionScore `json:"elevated"`
}

type compiledRule struct {
	Rule
	program cel.Program
}

// Interpreter evaluates an ordered rule set against results
type Interpreter struct {
	rules    []compiledRule
	fallback Rule
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("totalScore", cel.IntType),
		cel.Variable("averageScore", cel.DoubleType),
		cel.Variable("positiveItems", cel.IntType),
		cel.Variable("negativeItems", cel.IntType),
		cel.Variable("dimensions", cel.MapType(cel.StringType, cel.DoubleType)),
	)
}

// NewInterpreter compiles rules. Conditions may use totalScore,
// averageScore, positiveItems, negativeItems and dimensions, a map of
// dimension key to average.
func NewInterpreter(rules []Rule, fallback Rule) (*Interpreter, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		ast, issues := env.Compile(rule.Condition)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %q: CEL compilation error: %w", rule.Level, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("rule %q: condition must be boolean, got %v", rule.Level, ast.OutputType())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule %q: failed to create CEL program: %w", rule.Level, err)
		}
		compiled = append(compiled, compiledRule{Rule: rule, program: program})
	}
	return &Interpreter{rules: compiled, fallback: fallback}, nil
}

// Interpret picks the first matching rule for result
func (in *Interpreter) Interpret(result *Result) (*Interpretation, error) {
	dims := make(map[string]float64, len(result.Dimensions))
	for _, d := range result.Dimensions {
		dims[d.Key] = d.Average
	}
	vars := map[string]interface{}{
		"totalScore":    int64(result.TotalScore),
		"averageScore":  result.AverageScore,
		"positiveItems": int64(result.PositiveItems),
		"negativeItems": int64(result.NegativeItems),
		"dimensions":    dims,
	}

	chosen := in.fallback
	for _, rule := range in.rules {
		out, _, err := rule.program.Eval(vars)
		if err != nil {
			return nil, fmt.Errorf("rule %q: CEL evaluation error: %w", rule.Level, err)
		}
		if matched, ok := out.Value().(bool); ok && matched {
			chosen = rule.Rule
			break
		}
	}

	return &Interpretation{
		Level:    chosen.Level,
		Summary:  render(chosen.Summary, result),
		Elevated: result.ElevatedDimensions(),
	}, nil
}

func render(summary string, result *Result) string {
	return strings.NewReplacer(
		"{totalScore}", fmt.Sprint(result.TotalScore),
		"{positiveItems}", fmt.Sprint(result.PositiveItems),
	).Replace(summary)
}

var (
	defaultOnce        sync.Once
	defaultInterpreter *Interpreter
	defaultErr         error
)

// Interpret uses DefaultRules
func Interpret(result *Result) (*Interpretation, error) {
	defaultOnce.Do(func() {
		defaultInterpreter, defaultErr = NewInterpreter(DefaultRules, FallbackRule)
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	return defaultInterpreter.Interpret(result)
}
