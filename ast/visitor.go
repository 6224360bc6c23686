package ast

import (
	"fmt"

	"github.com/shibukawa/jmespath"
)

// Visitor computes a value of type T per node variant. The evaluator, the
// linter, and the serializer are all visitors with different T.
type Visitor[T any] interface {
	VisitCurrent(node *Current) (T, error)
	VisitField(node *Field) (T, error)
	VisitIndex(node *Index) (T, error)
	VisitSlice(node *Slice) (T, error)
	VisitSubexpression(node *Subexpression) (T, error)
	VisitFlatten(node *Flatten) (T, error)
	VisitProjection(node *Projection) (T, error)
	VisitObjectProjection(node *ObjectProjection) (T, error)
	VisitFilterProjection(node *FilterProjection) (T, error)
	VisitMultiSelectList(node *MultiSelectList) (T, error)
	VisitMultiSelectHash(node *MultiSelectHash) (T, error)
	VisitAnd(node *And) (T, error)
	VisitOr(node *Or) (T, error)
	VisitNot(node *Not) (T, error)
	VisitComparator(node *Comparator) (T, error)
	VisitFunction(node *Function) (T, error)
	VisitLiteral(node *Literal) (T, error)
	VisitExpressionRef(node *ExpressionRef) (T, error)
}

// Accept dispatches expr to the matching Visitor method.
func Accept[T any](expr Expression, v Visitor[T]) (T, error) {
	switch node := expr.(type) {
	case *Current:
		return v.VisitCurrent(node)
	case *Field:
		return v.VisitField(node)
	case *Index:
		return v.VisitIndex(node)
	case *Slice:
		return v.VisitSlice(node)
	case *Subexpression:
		return v.VisitSubexpression(node)
	case *Flatten:
		return v.VisitFlatten(node)
	case *Projection:
		return v.VisitProjection(node)
	case *ObjectProjection:
		return v.VisitObjectProjection(node)
	case *FilterProjection:
		return v.VisitFilterProjection(node)
	case *MultiSelectList:
		return v.VisitMultiSelectList(node)
	case *MultiSelectHash:
		return v.VisitMultiSelectHash(node)
	case *And:
		return v.VisitAnd(node)
	case *Or:
		return v.VisitOr(node)
	case *Not:
		return v.VisitNot(node)
	case *Comparator:
		return v.VisitComparator(node)
	case *Function:
		return v.VisitFunction(node)
	case *Literal:
		return v.VisitLiteral(node)
	case *ExpressionRef:
		return v.VisitExpressionRef(node)
	default:
		var zero T
		return zero, jmespath.NewError(jmespath.ErrOther, "unknown expression node %s", fmt.Sprintf("%T", expr))
	}
}
