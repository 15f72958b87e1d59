package rule

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"nexus-discount/internal/service/discount/domain"
)

// CELEvaluator 是 domain.RuleEngine 的 CEL 实现。
// 编译后的程序按表达式文本缓存，规则定义本身每次都从数据库重新读取。
type CELEvaluator struct {
	env      *cel.Env
	programs sync.Map // expression -> cel.Program
}

// NewCELEvaluator 声明定价规则条件中可以使用的变量。
func NewCELEvaluator() (*CELEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("quantity", cel.IntType),
		cel.Variable("customer_id", cel.StringType),
		cel.Variable("customer_category", cel.StringType),
		cel.Variable("category_id", cel.StringType),
		cel.Variable("service_id", cel.StringType),
		cel.Variable("promo_code", cel.StringType),
		cel.Variable("weekday", cel.IntType),
		cel.Variable("hour", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &CELEvaluator{env: env}, nil
}

// Evaluate 实现了 domain.RuleEngine 接口，表达式必须返回 bool。
func (e *CELEvaluator) Evaluate(expression string, fact domain.Fact) (bool, error) {
	prg, err := e.program(expression)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{
		"amount":            fact.Amount,
		"quantity":          fact.Quantity,
		"customer_id":       fact.CustomerID,
		"customer_category": fact.CustomerCategory,
		"category_id":       fact.CategoryID,
		"service_id":        fact.ServiceID,
		"promo_code":        fact.PromoCode,
		"weekday":           fact.Weekday,
		"hour":              fact.Hour,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", expression, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, want bool", expression, out.Value())
	}
	return result, nil
}

func (e *CELEvaluator) program(expression string) (cel.Program, error) {
	if cached, ok := e.programs.Load(expression); ok {
		return cached.(cel.Program), nil
	}
	ast, iss := e.env.Compile(expression)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression %q has type %s, want bool", expression, ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expression, err)
	}
	e.programs.Store(expression, prg)
	return prg, nil
}
