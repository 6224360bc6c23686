package ast

// Substitute rebuilds a tree, replacing every node for which replace
// returns a non-nil expression. Nodes with no replacement are copied with
// their children substituted recursively, so the input tree is never
// mutated. A common use is inlining the current node:
//
//	resolved := ast.Substitute(expr, func(n ast.Expression) ast.Expression {
//		if _, ok := n.(*ast.Current); ok {
//			return prefix
//		}
//		return nil
//	})
func Substitute(expr Expression, replace func(Expression) Expression) Expression {
	if replacement := replace(expr); replacement != nil {
		return replacement
	}

	switch n := expr.(type) {
	case *Subexpression:
		return &Subexpression{
			Position: n.Position,
			Left:     Substitute(n.Left, replace),
			Right:    Substitute(n.Right, replace),
			Pipe:     n.Pipe,
		}
	case *Flatten:
		return &Flatten{Position: n.Position, Left: Substitute(n.Left, replace)}
	case *Projection:
		return &Projection{
			Position: n.Position,
			Left:     Substitute(n.Left, replace),
			Right:    Substitute(n.Right, replace),
		}
	case *ObjectProjection:
		return &ObjectProjection{
			Position: n.Position,
			Left:     Substitute(n.Left, replace),
			Right:    Substitute(n.Right, replace),
		}
	case *FilterProjection:
		return &FilterProjection{
			Position:  n.Position,
			Left:      Substitute(n.Left, replace),
			Condition: Substitute(n.Condition, replace),
			Right:     Substitute(n.Right, replace),
		}
	case *MultiSelectList:
		expressions := make([]Expression, len(n.Expressions))
		for i, e := range n.Expressions {
			expressions[i] = Substitute(e, replace)
		}
		return &MultiSelectList{Position: n.Position, Expressions: expressions}
	case *MultiSelectHash:
		entries := make([]MultiSelectHashEntry, len(n.Entries))
		for i, entry := range n.Entries {
			entries[i] = MultiSelectHashEntry{Key: entry.Key, Value: Substitute(entry.Value, replace)}
		}
		return &MultiSelectHash{Position: n.Position, Entries: entries}
	case *And:
		return &And{
			Position: n.Position,
			Left:     Substitute(n.Left, replace),
			Right:    Substitute(n.Right, replace),
		}
	case *Or:
		return &Or{
			Position: n.Position,
			Left:     Substitute(n.Left, replace),
			Right:    Substitute(n.Right, replace),
		}
	case *Not:
		return &Not{Position: n.Position, Expr: Substitute(n.Expr, replace)}
	case *Comparator:
		return &Comparator{
			Position: n.Position,
			Type:     n.Type,
			Left:     Substitute(n.Left, replace),
			Right:    Substitute(n.Right, replace),
		}
	case *Function:
		args := make([]Expression, len(n.Args))
		for i, arg := range n.Args {
			args[i] = Substitute(arg, replace)
		}
		return &Function{Position: n.Position, Name: n.Name, Args: args}
	case *ExpressionRef:
		return &ExpressionRef{Position: n.Position, Expr: Substitute(n.Expr, replace)}
	default:
		// Leaves: Current, Field, Index, Slice, Literal.
		return expr
	}
}
