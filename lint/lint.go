// Package lint statically checks an expression against a (possibly
// partially known) input value. It reuses the evaluator's tree walk over
// the abstract runtime domain, narrowing through literal values exactly
// as evaluation would, and collects severity-classified problems instead
// of failing on the first one.
package lint

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shibukawa/jmespath"
	"github.com/shibukawa/jmespath/ast"
	"github.com/shibukawa/jmespath/interp"
	"github.com/shibukawa/jmespath/runtime"
)

// Option adjusts a Check run.
type Option func(*options)

type options struct {
	signatures map[string]interp.Signature
}

// WithSignatures makes the checker aware of additional registered
// functions. Built-in signatures stay available.
func WithSignatures(signatures map[string]interp.Signature) Option {
	return func(o *options) {
		for name, sig := range signatures {
			o.signatures[name] = sig
		}
	}
}

// Check analyzes expr as if it were evaluated against current. It never
// fails: the result carries the inferred result type and every problem
// found, ordered by severity, position, and message.
func Check(expr ast.Expression, current runtime.StaticValue, opts ...Option) jmespath.LintResult {
	o := &options{signatures: interp.DefaultSignatures()}
	for _, opt := range opts {
		opt(o)
	}

	c := &checker{
		current:  current,
		problems: &problemSet{seen: map[jmespath.Problem]struct{}{}},
		sigs:     o.signatures,
		refType:  runtime.Any,
	}
	result, _ := ast.Accept[runtime.StaticValue](expr, c)

	found := slices.Collect(maps.Keys(c.problems.seen))
	slices.SortFunc(found, jmespath.Problem.Compare)
	return jmespath.LintResult{Type: result.Type(), Problems: found}
}

// CheckAny analyzes expr against a fully unknown input.
func CheckAny(expr ast.Expression, opts ...Option) jmespath.LintResult {
	return Check(expr, runtime.Any, opts...)
}

// problemSet deduplicates findings; the same node can be visited several
// times when projections re-check their right side per element.
type problemSet struct {
	seen map[jmespath.Problem]struct{}
}

func (s *problemSet) add(severity jmespath.Severity, pos ast.Position, message string) {
	s.seen[jmespath.Problem{Severity: severity, Line: pos.Line, Column: pos.Column, Message: message}] = struct{}{}
}

type checker struct {
	current  runtime.StaticValue
	problems *problemSet
	sigs     map[string]interp.Signature
	// refType is the value expression references are checked against. It
	// is only concrete while checking function arguments, since references
	// are late bound.
	refType runtime.StaticValue
}

var _ ast.Visitor[runtime.StaticValue] = (*checker)(nil)

func (c *checker) sub(current runtime.StaticValue) *checker {
	return &checker{current: current, problems: c.problems, sigs: c.sigs, refType: runtime.Any}
}

func (c *checker) visit(expr ast.Expression) runtime.StaticValue {
	result, _ := ast.Accept[runtime.StaticValue](expr, c)
	return result
}

func (c *checker) warn(expr ast.Expression, format string, args ...any) {
	c.problems.add(jmespath.SeverityWarning, expr.Pos(), fmt.Sprintf(format, args...))
}

func (c *checker) danger(expr ast.Expression, format string, args ...any) {
	c.problems.add(jmespath.SeverityDanger, expr.Pos(), fmt.Sprintf(format, args...))
}

func (c *checker) err(expr ast.Expression, format string, args ...any) {
	c.problems.add(jmespath.SeverityError, expr.Pos(), fmt.Sprintf(format, args...))
}

func (c *checker) VisitCurrent(node *ast.Current) (runtime.StaticValue, error) {
	return c.current, nil
}

func (c *checker) VisitField(node *ast.Field) (runtime.StaticValue, error) {
	if c.current.Type() == jmespath.ObjectType {
		if !c.current.IsKnown() {
			// Some object of unknown shape: the member could be anything.
			return runtime.Any, nil
		}
		if member, ok := c.current.Field(node.Name); ok {
			return member, nil
		}
		c.danger(node, "Object field '%s' does not exist in object with properties [%s]",
			node.Name, strings.Join(c.current.Keys(), ", "))
		return runtime.Null, nil
	}

	if !c.current.IsAny() {
		c.danger(node, "Object field '%s' extraction performed on %s", node.Name, c.current.Type())
	}
	return runtime.Any, nil
}

func (c *checker) VisitIndex(node *ast.Index) (runtime.StaticValue, error) {
	if c.current.Type() == jmespath.ArrayType {
		element, err := runtime.Static{}.Element(c.current, node.Value)
		if err != nil {
			return runtime.Any, nil
		}
		return element, nil
	}

	if !c.current.IsAny() {
		c.danger(node, "Array index '%d' extraction performed on %s", node.Value, c.current.Type())
	}
	return runtime.Any, nil
}

func (c *checker) VisitSlice(node *ast.Slice) (runtime.StaticValue, error) {
	// The exact slice is not computed; narrowing stops at "still an array".
	if c.current.Type() == jmespath.ArrayType {
		return c.current, nil
	}
	if !c.current.IsAny() {
		c.danger(node, "Slice performed on %s", c.current.Type())
	}
	return runtime.Unknown(jmespath.ArrayType), nil
}

func (c *checker) VisitSubexpression(node *ast.Subexpression) (runtime.StaticValue, error) {
	left := c.visit(node.Left)
	return c.sub(left).visit(node.Right), nil
}

func (c *checker) VisitFlatten(node *ast.Flatten) (runtime.StaticValue, error) {
	result := c.visit(node.Left)

	elements, known := result.Elements()
	if !known {
		if result.Type() != jmespath.ArrayType && !result.IsAny() {
			c.danger(node, "Array flatten performed on %s", result.Type())
		}
		return runtime.Unknown(jmespath.ArrayType), nil
	}

	flattened := []any{}
	for _, element := range elements {
		switch v := element.(type) {
		case []any:
			flattened = append(flattened, v...)
		case nil:
		default:
			flattened = append(flattened, v)
		}
	}
	return runtime.Known(flattened), nil
}

func (c *checker) VisitProjection(node *ast.Projection) (runtime.StaticValue, error) {
	left := c.visit(node.Left)

	elements, known := left.Elements()
	if !known || len(elements) == 0 {
		if left.Type() != jmespath.ArrayType && !left.IsAny() {
			c.danger(node, "Array projection performed on %s", left.Type())
		}
		// Check the right side once against a fully unknown element.
		c.sub(runtime.Any).visit(node.Right)
		return runtime.Unknown(jmespath.ArrayType), nil
	}

	return c.project(node.Right, elements), nil
}

// project narrows the projection body through each known element, mirroring
// evaluation: null results are dropped.
func (c *checker) project(right ast.Expression, elements []any) runtime.StaticValue {
	builder := runtime.Static{}.ArrayBuilder()
	for _, element := range elements {
		result := c.sub(runtime.Known(element)).visit(right)
		if result.Type() != jmespath.NullType {
			builder.Add(result)
		}
	}
	return builder.Build()
}

func (c *checker) VisitObjectProjection(node *ast.ObjectProjection) (runtime.StaticValue, error) {
	left := c.visit(node.Left)

	if left.Type() != jmespath.ObjectType || !left.IsKnown() {
		if left.Type() != jmespath.ObjectType && !left.IsAny() {
			c.danger(node, "Object projection performed on %s", left.Type())
		}
		c.sub(runtime.Any).visit(node.Right)
		return runtime.Unknown(jmespath.ArrayType), nil
	}

	var members []any
	for _, key := range left.Keys() {
		member, _ := left.Field(key)
		if value, ok := member.Value(); ok && value != nil {
			members = append(members, value)
		}
	}
	return c.project(node.Right, members), nil
}

func (c *checker) VisitFilterProjection(node *ast.FilterProjection) (runtime.StaticValue, error) {
	left := c.visit(node.Left)

	elements, known := left.Elements()
	if !known || len(elements) == 0 {
		if left.Type() != jmespath.ArrayType && !left.IsAny() {
			c.danger(node, "Filter projection performed on %s", left.Type())
		}
		sub := c.sub(runtime.Any)
		sub.visit(node.Condition)
		sub.visit(node.Right)
		return runtime.Unknown(jmespath.ArrayType), nil
	}

	builder := runtime.Static{}.ArrayBuilder()
	for _, element := range elements {
		sub := c.sub(runtime.Known(element))
		if !sub.visit(node.Condition).Truthy() {
			continue
		}
		result := sub.visit(node.Right)
		if result.Type() != jmespath.NullType {
			builder.Add(result)
		}
	}
	return builder.Build(), nil
}

func (c *checker) VisitMultiSelectList(node *ast.MultiSelectList) (runtime.StaticValue, error) {
	builder := runtime.Static{}.ArrayBuilder()
	for _, expr := range node.Expressions {
		builder.Add(c.visit(expr))
	}
	return builder.Build(), nil
}

func (c *checker) VisitMultiSelectHash(node *ast.MultiSelectHash) (runtime.StaticValue, error) {
	builder := runtime.Static{}.ObjectBuilder()
	for _, entry := range node.Entries {
		builder.Put(entry.Key, c.visit(entry.Value))
	}
	return builder.Build(), nil
}

// VisitAnd checks both branches regardless of the left side's truthiness:
// the evaluator short-circuits, but skipping a branch here would hide its
// problems.
func (c *checker) VisitAnd(node *ast.And) (runtime.StaticValue, error) {
	left := c.visit(node.Left)
	right := c.visit(node.Right)
	if !left.IsKnown() {
		return combine(left, right), nil
	}
	if left.Truthy() {
		return right, nil
	}
	return left, nil
}

func (c *checker) VisitOr(node *ast.Or) (runtime.StaticValue, error) {
	left := c.visit(node.Left)
	right := c.visit(node.Right)
	if !left.IsKnown() {
		return combine(left, right), nil
	}
	if left.Truthy() {
		return left, nil
	}
	return right, nil
}

// combine merges the two possible outcomes of a branch whose selection is
// not statically known.
func combine(a, b runtime.StaticValue) runtime.StaticValue {
	if a.Type() == b.Type() {
		return runtime.Unknown(a.Type())
	}
	return runtime.Any
}

func (c *checker) VisitNot(node *ast.Not) (runtime.StaticValue, error) {
	result := c.visit(node.Expr)
	if !result.IsKnown() {
		return runtime.Unknown(jmespath.BooleanType), nil
	}
	return runtime.Known(!result.Truthy()), nil
}

func (c *checker) VisitComparator(node *ast.Comparator) (runtime.StaticValue, error) {
	left := c.visit(node.Left)
	right := c.visit(node.Right)

	if left.Type() == jmespath.ExpressionType || right.Type() == jmespath.ExpressionType {
		c.warn(node, "Invalid comparator '%s' for %s", node.Type, jmespath.ExpressionType)
		return runtime.Null, nil
	}

	if !node.Type.Ordered() {
		equal, err := (runtime.Static{}).Equal(left, right)
		if err != nil {
			return runtime.Unknown(jmespath.BooleanType), nil
		}
		if node.Type == jmespath.NotEqual {
			equal = !equal
		}
		return runtime.Known(equal), nil
	}

	if left.IsAny() || right.IsAny() {
		return runtime.Unknown(jmespath.BooleanType), nil
	}
	if !orderable(left.Type()) {
		c.warn(node, "Invalid comparator '%s' for %s", node.Type, left.Type())
		return runtime.Null, nil
	}
	if !orderable(right.Type()) || right.Type() != left.Type() {
		c.warn(node, "Invalid comparator '%s' for %s", node.Type, right.Type())
		return runtime.Null, nil
	}

	result, err := (runtime.Static{}).Compare(left, right)
	if err != nil {
		return runtime.Unknown(jmespath.BooleanType), nil
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
	return runtime.Known(satisfied), nil
}

func orderable(typ jmespath.RuntimeType) bool {
	return typ == jmespath.NumberType || typ == jmespath.StringType
}

func (c *checker) VisitFunction(node *ast.Function) (runtime.StaticValue, error) {
	// Expression reference arguments are checked against the value the
	// function applies them to, which is the current value for the by
	// functions.
	argChecker := &checker{current: c.current, problems: c.problems, sigs: c.sigs, refType: c.current}
	arguments := make([]runtime.StaticValue, len(node.Args))
	for i, arg := range node.Args {
		arguments[i] = argChecker.visit(arg)
	}

	sig, ok := c.sigs[node.Name]
	if !ok {
		c.err(node, "Unknown function: %s", node.Name)
		return runtime.Any, nil
	}

	required := len(sig.Args)
	if len(arguments) < required || (sig.Variadic == nil && len(arguments) > required) {
		c.err(node, "%s function expected %d arguments, but was given %d", node.Name, required, len(arguments))
	} else {
		for i, argument := range arguments {
			message := ""
			if i < required {
				message = sig.Args[i](argument)
			} else if sig.Variadic != nil {
				message = sig.Variadic(argument)
			}
			if message != "" {
				c.err(node.Args[i], "%s function argument %d error: %s", node.Name, i, message)
			}
		}
	}

	if sig.Returns == jmespath.AnyType {
		return runtime.Any, nil
	}
	return runtime.Unknown(sig.Returns), nil
}

func (c *checker) VisitLiteral(node *ast.Literal) (runtime.StaticValue, error) {
	return runtime.Known(node.Value), nil
}

func (c *checker) VisitExpressionRef(node *ast.ExpressionRef) (runtime.StaticValue, error) {
	c.sub(c.refType).visit(node.Expr)
	return runtime.ExpressionRef, nil
}
