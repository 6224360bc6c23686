package ast

// Equal reports whether two trees are structurally identical, ignoring
// source positions. Literal values compare by JSON semantics, so numbers
// compare as doubles and objects compare per key.
func Equal(a, b Expression) bool {
	switch x := a.(type) {
	case *Current:
		_, ok := b.(*Current)
		return ok
	case *Field:
		y, ok := b.(*Field)
		return ok && x.Name == y.Name
	case *Index:
		y, ok := b.(*Index)
		return ok && x.Value == y.Value
	case *Slice:
		y, ok := b.(*Slice)
		return ok && intPtrEqual(x.Start, y.Start) && intPtrEqual(x.Stop, y.Stop) && x.Step == y.Step
	case *Subexpression:
		y, ok := b.(*Subexpression)
		return ok && x.Pipe == y.Pipe && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Flatten:
		y, ok := b.(*Flatten)
		return ok && Equal(x.Left, y.Left)
	case *Projection:
		y, ok := b.(*Projection)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *ObjectProjection:
		y, ok := b.(*ObjectProjection)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *FilterProjection:
		y, ok := b.(*FilterProjection)
		return ok && Equal(x.Left, y.Left) && Equal(x.Condition, y.Condition) && Equal(x.Right, y.Right)
	case *MultiSelectList:
		y, ok := b.(*MultiSelectList)
		if !ok || len(x.Expressions) != len(y.Expressions) {
			return false
		}
		for i := range x.Expressions {
			if !Equal(x.Expressions[i], y.Expressions[i]) {
				return false
			}
		}
		return true
	case *MultiSelectHash:
		y, ok := b.(*MultiSelectHash)
		if !ok || len(x.Entries) != len(y.Entries) {
			return false
		}
		for i := range x.Entries {
			if x.Entries[i].Key != y.Entries[i].Key || !Equal(x.Entries[i].Value, y.Entries[i].Value) {
				return false
			}
		}
		return true
	case *And:
		y, ok := b.(*And)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Or:
		y, ok := b.(*Or)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Not:
		y, ok := b.(*Not)
		return ok && Equal(x.Expr, y.Expr)
	case *Comparator:
		y, ok := b.(*Comparator)
		return ok && x.Type == y.Type && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Function:
		y, ok := b.(*Function)
		if !ok || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *Literal:
		y, ok := b.(*Literal)
		return ok && LiteralEqual(x.Value, y.Value)
	case *ExpressionRef:
		y, ok := b.(*ExpressionRef)
		return ok && Equal(x.Expr, y.Expr)
	default:
		return false
	}
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// LiteralEqual compares two decoded JSON values by JSON semantics.
func LiteralEqual(a, b any) bool {
	switch x := a.(type) {
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !LiteralEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !LiteralEqual(xv, yv) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
