package filterexpr

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

const dayLayout = "2006-01-02"

type predicate struct {
	Field string
	Op    Op
	Value any
}

// parsePredicates parses filter into a flat list of AND-ed comparisons.
func parsePredicates(filter string, fields map[string]FilterField) ([]predicate, error) {
	env, err := buildEnv(fields)
	if err != nil {
		return nil, err
	}

	ast, issues := env.Parse(filter)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid filter: %w", issues.Err())
	}
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil, fmt.Errorf("convert AST: %w", err)
	}

	conjuncts, err := flattenAnd(parsed.GetExpr(), nil)
	if err != nil {
		return nil, err
	}
	out := make([]predicate, 0, len(conjuncts))
	for _, expr := range conjuncts {
		pred, err := parseComparison(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, pred)
	}
	return out, nil
}

// flattenAnd walks nested binary && calls; cel-go has no variadic form.
func flattenAnd(expr *exprpb.Expr, acc []*exprpb.Expr) ([]*exprpb.Expr, error) {
	if expr == nil {
		return nil, errors.New("empty expression")
	}
	call := expr.GetCallExpr()
	if call == nil {
		return append(acc, expr), nil
	}

	switch call.Function {
	case "_&&_":
		if call.Target != nil || len(call.Args) < 2 {
			return nil, errors.New("logical AND must have at least two operands")
		}
		for _, arg := range call.Args {
			var err error
			if acc, err = flattenAnd(arg, acc); err != nil {
				return nil, err
			}
		}
		return acc, nil
	case "_||_", "_?_:_", "!_":
		return nil, fmt.Errorf("operator %q is not supported; only AND is allowed", call.Function)
	default:
		return append(acc, expr), nil
	}
}

func parseComparison(expr *exprpb.Expr) (predicate, error) {
	call := expr.GetCallExpr()
	if call == nil {
		return predicate{}, errors.New("unsupported expression; expected comparison or function call")
	}

	switch call.Function {
	case "_==_":
		return parseBinary(call, OpEQ)
	case "_>=_":
		return parseBinary(call, OpGTE)
	case "_<=_":
		return parseBinary(call, OpLTE)
	case "@in", "_in_":
		if call.Target != nil || len(call.Args) != 2 {
			return predicate{}, errors.New("in operator expects two operands")
		}
		return parseOperands(call.Args[0], call.Args[1], OpIN)
	case "startsWith":
		if call.Target == nil || len(call.Args) != 1 {
			return predicate{}, errors.New("startsWith must be called on a field with one argument")
		}
		pred, err := parseOperands(call.Target, call.Args[0], OpSW)
		if err != nil {
			return predicate{}, err
		}
		if _, ok := pred.Value.(string); !ok {
			return predicate{}, errors.New("startsWith requires a string literal argument")
		}
		return pred, nil
	default:
		return predicate{}, fmt.Errorf("function %q is not supported", call.Function)
	}
}

func parseBinary(call *exprpb.Expr_Call, op Op) (predicate, error) {
	if call.Target != nil || len(call.Args) != 2 {
		return predicate{}, fmt.Errorf("operator %q expects two operands", string(op))
	}
	return parseOperands(call.Args[0], call.Args[1], op)
}

func parseOperands(fieldExpr, valueExpr *exprpb.Expr, op Op) (predicate, error) {
	ident := fieldExpr.GetIdentExpr()
	if ident == nil {
		return predicate{}, errors.New("left-hand side must be an identifier")
	}
	value, err := parseLiteral(valueExpr)
	if err != nil {
		return predicate{}, err
	}
	return predicate{Field: ident.GetName(), Op: op, Value: value}, nil
}

func parseLiteral(expr *exprpb.Expr) (any, error) {
	if constant := expr.GetConstExpr(); constant != nil {
		switch constant.ConstantKind.(type) {
		case *exprpb.Constant_StringValue:
			return constant.GetStringValue(), nil
		case *exprpb.Constant_Int64Value:
			return float64(constant.GetInt64Value()), nil
		case *exprpb.Constant_Uint64Value:
			return float64(constant.GetUint64Value()), nil
		case *exprpb.Constant_DoubleValue:
			return constant.GetDoubleValue(), nil
		default:
			return nil, fmt.Errorf("literal type %T is not supported", constant.ConstantKind)
		}
	}

	if list := expr.GetListExpr(); list != nil {
		values := make([]string, 0, len(list.GetElements()))
		for i, elem := range list.GetElements() {
			val, err := parseLiteral(elem)
			if err != nil {
				return nil, fmt.Errorf("list element %d: %w", i, err)
			}
			str, ok := val.(string)
			if !ok {
				return nil, errors.New("list literal elements must be strings")
			}
			values = append(values, str)
		}
		return values, nil
	}

	if call := expr.GetCallExpr(); call != nil {
		switch call.Function {
		case "timestamp":
			str, err := singleStringArg(call)
			if err != nil {
				return nil, err
			}
			return parseTimestamp(str)
		case "date":
			str, err := singleStringArg(call)
			if err != nil {
				return nil, err
			}
			t, err := time.Parse(dayLayout, str)
			if err != nil {
				return nil, fmt.Errorf("date literal %q is not YYYY-MM-DD", str)
			}
			return t, nil
		}
	}

	return nil, errors.New("right-hand side must be a literal, list literal, date() or timestamp() call")
}

func singleStringArg(call *exprpb.Expr_Call) (string, error) {
	if call.Target != nil || len(call.Args) != 1 {
		return "", fmt.Errorf("%s() expects a single string argument", call.Function)
	}
	arg := call.Args[0].GetConstExpr()
	if arg == nil || arg.GetStringValue() == "" {
		return "", fmt.Errorf("%s() argument must be a non-empty string literal", call.Function)
	}
	return arg.GetStringValue(), nil
}

func parseTimestamp(str string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, str); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("timestamp literal %q is not RFC3339", str)
}
