package interp

import (
	"maps"
	"slices"
	"sync"

	"github.com/shibukawa/jmespath"
	"github.com/shibukawa/jmespath/ast"
	"github.com/shibukawa/jmespath/parser"
	"github.com/shibukawa/jmespath/runtime"
)

// Evaluator walks an expression tree against a current value. Projections
// and subexpressions spawn sub-evaluators, so a single Evaluator is
// immutable and a parsed expression can be evaluated concurrently as long
// as the runtime realization is safe for concurrent use.
type Evaluator[T any] struct {
	rt       runtime.Interface[T]
	registry *Registry[T]
	current  T
}

var _ ast.Visitor[any] = (*Evaluator[any])(nil)

// NewEvaluator builds an evaluator rooted at current. A nil registry
// means built-ins only.
func NewEvaluator[T any](current T, rt runtime.Interface[T], registry *Registry[T]) *Evaluator[T] {
	if registry == nil {
		registry = NewRegistry[T]()
	}
	return &Evaluator[T]{rt: rt, registry: registry, current: current}
}

// Evaluate runs expr against doc using the given runtime realization.
func Evaluate[T any](expr ast.Expression, doc T, rt runtime.Interface[T], registry *Registry[T]) (T, error) {
	return ast.Accept[T](expr, NewEvaluator(doc, rt, registry))
}

var defaultRegistry = sync.OnceValue(NewRegistry[any])

// Search parses query and evaluates it against a decoded JSON document.
func Search(query string, doc any) (any, error) {
	expr, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	return Evaluate(expr, doc, runtime.Document{}, defaultRegistry())
}

func (e *Evaluator[T]) visit(expr ast.Expression) (T, error) {
	return ast.Accept[T](expr, e)
}

// sub evaluates expr with a different current value.
func (e *Evaluator[T]) sub(expr ast.Expression, current T) (T, error) {
	return ast.Accept[T](expr, &Evaluator[T]{rt: e.rt, registry: e.registry, current: current})
}

func (e *Evaluator[T]) null() T {
	return e.rt.CreateNull()
}

func (e *Evaluator[T]) VisitCurrent(node *ast.Current) (T, error) {
	return e.current, nil
}

func (e *Evaluator[T]) VisitField(node *ast.Field) (T, error) {
	if e.rt.TypeOf(e.current) != jmespath.ObjectType {
		return e.null(), nil
	}
	return e.rt.Field(e.current, node.Name)
}

func (e *Evaluator[T]) VisitIndex(node *ast.Index) (T, error) {
	if e.rt.TypeOf(e.current) != jmespath.ArrayType {
		return e.null(), nil
	}
	return e.rt.Element(e.current, node.Value)
}

func (e *Evaluator[T]) VisitSlice(node *ast.Slice) (T, error) {
	if e.rt.TypeOf(e.current) != jmespath.ArrayType {
		return e.null(), nil
	}
	if node.Step == 0 {
		return e.null(), jmespath.NewErrorAt(jmespath.ErrInvalidValue, node.Line, node.Column, "slice step cannot be 0")
	}
	length, err := e.rt.Length(e.current)
	if err != nil {
		return e.null(), err
	}
	start, stop := sliceBounds(node, length)

	result := e.rt.ArrayBuilder()
	if node.Step > 0 {
		for i := start; i < stop; i += node.Step {
			element, err := e.rt.Element(e.current, i)
			if err != nil {
				return e.null(), err
			}
			result.Add(element)
		}
	} else {
		for i := start; i > stop; i += node.Step {
			element, err := e.rt.Element(e.current, i)
			if err != nil {
				return e.null(), err
			}
			result.Add(element)
		}
	}
	return result.Build(), nil
}

// sliceBounds clamps the slice range the way Python does: negative bounds
// count from the end, out-of-range bounds snap to the nearest valid
// position for the step direction.
func sliceBounds(node *ast.Slice, length int) (start, stop int) {
	if node.Start == nil {
		if node.Step > 0 {
			start = 0
		} else {
			start = length - 1
		}
	} else {
		start = *node.Start
		if start < 0 {
			start += length
		}
		if start < 0 {
			start = 0
		} else if start > length-1 {
			start = length - 1
		}
	}

	if node.Stop == nil {
		if node.Step > 0 {
			stop = length
		} else {
			stop = -1
		}
	} else {
		stop = *node.Stop
		if stop < 0 {
			stop += length
		}
		if stop < 0 {
			stop = -1
		} else if stop > length {
			stop = length
		}
	}
	return start, stop
}

func (e *Evaluator[T]) VisitSubexpression(node *ast.Subexpression) (T, error) {
	left, err := e.visit(node.Left)
	if err != nil {
		return e.null(), err
	}
	return e.sub(node.Right, left)
}

func (e *Evaluator[T]) VisitFlatten(node *ast.Flatten) (T, error) {
	value, err := e.visit(node.Left)
	if err != nil {
		return e.null(), err
	}
	if e.rt.TypeOf(value) != jmespath.ArrayType {
		return e.null(), nil
	}
	elements, err := e.rt.Iterate(value)
	if err != nil {
		return e.null(), err
	}
	flattened := e.rt.ArrayBuilder()
	for element := range elements {
		if e.rt.TypeOf(element) == jmespath.ArrayType {
			if err := flattened.AddAll(element); err != nil {
				return e.null(), err
			}
		} else {
			flattened.Add(element)
		}
	}
	return flattened.Build(), nil
}

func (e *Evaluator[T]) VisitProjection(node *ast.Projection) (T, error) {
	left, err := e.visit(node.Left)
	if err != nil {
		return e.null(), err
	}
	if e.rt.TypeOf(left) != jmespath.ArrayType {
		return e.null(), nil
	}
	elements, err := e.rt.Iterate(left)
	if err != nil {
		return e.null(), err
	}
	results := e.rt.ArrayBuilder()
	for element := range elements {
		projected, err := e.sub(node.Right, element)
		if err != nil {
			return e.null(), err
		}
		if e.rt.TypeOf(projected) != jmespath.NullType {
			results.Add(projected)
		}
	}
	return results.Build(), nil
}

func (e *Evaluator[T]) VisitObjectProjection(node *ast.ObjectProjection) (T, error) {
	left, err := e.visit(node.Left)
	if err != nil {
		return e.null(), err
	}
	if e.rt.TypeOf(left) != jmespath.ObjectType {
		return e.null(), nil
	}
	keys, err := e.rt.Iterate(left)
	if err != nil {
		return e.null(), err
	}
	results := e.rt.ArrayBuilder()
	for key := range keys {
		name, err := e.rt.AsString(key)
		if err != nil {
			return e.null(), err
		}
		member, err := e.rt.Field(left, name)
		if err != nil {
			return e.null(), err
		}
		if e.rt.TypeOf(member) == jmespath.NullType {
			continue
		}
		projected, err := e.sub(node.Right, member)
		if err != nil {
			return e.null(), err
		}
		if e.rt.TypeOf(projected) != jmespath.NullType {
			results.Add(projected)
		}
	}
	return results.Build(), nil
}

func (e *Evaluator[T]) VisitFilterProjection(node *ast.FilterProjection) (T, error) {
	left, err := e.visit(node.Left)
	if err != nil {
		return e.null(), err
	}
	if e.rt.TypeOf(left) != jmespath.ArrayType {
		return e.null(), nil
	}
	elements, err := e.rt.Iterate(left)
	if err != nil {
		return e.null(), err
	}
	results := e.rt.ArrayBuilder()
	for element := range elements {
		condition, err := e.sub(node.Condition, element)
		if err != nil {
			return e.null(), err
		}
		if !e.rt.IsTruthy(condition) {
			continue
		}
		projected, err := e.sub(node.Right, element)
		if err != nil {
			return e.null(), err
		}
		if e.rt.TypeOf(projected) != jmespath.NullType {
			results.Add(projected)
		}
	}
	return results.Build(), nil
}

func (e *Evaluator[T]) VisitMultiSelectList(node *ast.MultiSelectList) (T, error) {
	if e.rt.TypeOf(e.current) == jmespath.NullType {
		return e.current, nil
	}
	result := e.rt.ArrayBuilder()
	for _, expr := range node.Expressions {
		value, err := e.visit(expr)
		if err != nil {
			return e.null(), err
		}
		result.Add(value)
	}
	return result.Build(), nil
}

func (e *Evaluator[T]) VisitMultiSelectHash(node *ast.MultiSelectHash) (T, error) {
	if e.rt.TypeOf(e.current) == jmespath.NullType {
		return e.current, nil
	}
	result := e.rt.ObjectBuilder()
	for _, entry := range node.Entries {
		value, err := e.visit(entry.Value)
		if err != nil {
			return e.null(), err
		}
		result.Put(entry.Key, value)
	}
	return result.Build(), nil
}

func (e *Evaluator[T]) VisitAnd(node *ast.And) (T, error) {
	left, err := e.visit(node.Left)
	if err != nil {
		return e.null(), err
	}
	if !e.rt.IsTruthy(left) {
		return left, nil
	}
	return e.visit(node.Right)
}

func (e *Evaluator[T]) VisitOr(node *ast.Or) (T, error) {
	left, err := e.visit(node.Left)
	if err != nil {
		return e.null(), err
	}
	if e.rt.IsTruthy(left) {
		return left, nil
	}
	return e.visit(node.Right)
}

func (e *Evaluator[T]) VisitNot(node *ast.Not) (T, error) {
	value, err := e.visit(node.Expr)
	if err != nil {
		return e.null(), err
	}
	return e.rt.CreateBoolean(!e.rt.IsTruthy(value)), nil
}

func (e *Evaluator[T]) VisitComparator(node *ast.Comparator) (T, error) {
	left, err := e.visit(node.Left)
	if err != nil {
		return e.null(), err
	}
	right, err := e.visit(node.Right)
	if err != nil {
		return e.null(), err
	}

	if !node.Type.Ordered() {
		equal, err := e.rt.Equal(left, right)
		if err != nil {
			return e.null(), err
		}
		if node.Type == jmespath.NotEqual {
			equal = !equal
		}
		return e.rt.CreateBoolean(equal), nil
	}

	// Ordering is only defined between two numbers or two strings; every
	// other combination degrades to null.
	leftType := e.rt.TypeOf(left)
	if leftType != e.rt.TypeOf(right) || (leftType != jmespath.NumberType && leftType != jmespath.StringType) {
		return e.null(), nil
	}
	result, err := e.rt.Compare(left, right)
	if err != nil {
		return e.null(), err
	}
	var satisfied bool
	switch node.Type {
	case jmespath.LessThan:
		satisfied = result < 0
	case jmespath.LessThanEqual:
		satisfied = result <= 0
	case jmespath.GreaterThan:
		satisfied = result > 0
	case jmespath.GreaterThanEqual:
		satisfied = result >= 0
	}
	return e.rt.CreateBoolean(satisfied), nil
}

func (e *Evaluator[T]) VisitFunction(node *ast.Function) (T, error) {
	fn, ok := e.registry.Lookup(node.Name)
	if !ok {
		return e.null(), jmespath.NewErrorAt(jmespath.ErrUnknownFunction, node.Line, node.Column, "Unknown function: %s", node.Name)
	}

	required := len(fn.Signature.Args)
	if len(node.Args) < required || (fn.Signature.Variadic == nil && len(node.Args) > required) {
		return e.null(), jmespath.NewErrorAt(jmespath.ErrInvalidArity, node.Line, node.Column,
			"%s function expected %d arguments, but was given %d", node.Name, required, len(node.Args))
	}

	args := make([]Argument[T], 0, len(node.Args))
	for _, arg := range node.Args {
		if ref, ok := arg.(*ast.ExpressionRef); ok {
			args = append(args, ExpressionArgument[T](ref.Expr))
			continue
		}
		value, err := e.visit(arg)
		if err != nil {
			return e.null(), err
		}
		args = append(args, ValueArgument(value))
	}

	return fn.Call(&Call[T]{Name: node.Name, Runtime: e.rt, Args: args, registry: e.registry})
}

func (e *Evaluator[T]) VisitLiteral(node *ast.Literal) (T, error) {
	return e.buildLiteral(node.Value)
}

func (e *Evaluator[T]) buildLiteral(value any) (T, error) {
	switch v := value.(type) {
	case nil:
		return e.null(), nil
	case bool:
		return e.rt.CreateBoolean(v), nil
	case string:
		return e.rt.CreateString(v), nil
	case []any:
		result := e.rt.ArrayBuilder()
		for _, element := range v {
			built, err := e.buildLiteral(element)
			if err != nil {
				return e.null(), err
			}
			result.Add(built)
		}
		return result.Build(), nil
	case map[string]any:
		result := e.rt.ObjectBuilder()
		for _, key := range slices.Sorted(maps.Keys(v)) {
			built, err := e.buildLiteral(v[key])
			if err != nil {
				return e.null(), err
			}
			result.Put(key, built)
		}
		return result.Build(), nil
	default:
		number, err := runtime.Document{}.AsNumber(v)
		if err != nil {
			return e.null(), jmespath.NewError(jmespath.ErrOther, "unsupported literal value of type %T", value)
		}
		return e.rt.CreateNumber(number), nil
	}
}

func (e *Evaluator[T]) VisitExpressionRef(node *ast.ExpressionRef) (T, error) {
	return e.null(), jmespath.NewErrorAt(jmespath.ErrInvalidType, node.Line, node.Column,
		"expression references can only be used as function arguments")
}
