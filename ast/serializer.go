package ast

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/shibukawa/jmespath"
)

// Serialize renders a tree back to expression text. Parsing the output
// yields a tree that is Equal to the input. Fields are always quoted,
// boolean operators parenthesized, and literal objects written with sorted
// keys, so the output is canonical rather than byte-identical to the
// source.
func Serialize(expr Expression) (string, error) {
	var builder strings.Builder
	if _, err := Accept(expr, &serializer{builder: &builder}); err != nil {
		return "", err
	}
	return builder.String(), nil
}

type serializer struct {
	builder *strings.Builder
}

type nothing struct{}

func (s *serializer) VisitCurrent(node *Current) (nothing, error) {
	s.builder.WriteByte('@')
	return nothing{}, nil
}

func (s *serializer) VisitField(node *Field) (nothing, error) {
	s.builder.WriteByte('"')
	s.builder.WriteString(sanitizeString(node.Name, false))
	s.builder.WriteByte('"')
	return nothing{}, nil
}

func (s *serializer) VisitIndex(node *Index) (nothing, error) {
	s.builder.WriteByte('[')
	s.builder.WriteString(strconv.Itoa(node.Value))
	s.builder.WriteByte(']')
	return nothing{}, nil
}

func (s *serializer) VisitSlice(node *Slice) (nothing, error) {
	s.builder.WriteByte('[')
	if node.Start != nil {
		s.builder.WriteString(strconv.Itoa(*node.Start))
	}
	s.builder.WriteByte(':')
	if node.Stop != nil {
		s.builder.WriteString(strconv.Itoa(*node.Stop))
	}
	s.builder.WriteByte(':')
	s.builder.WriteString(strconv.Itoa(node.Step))
	s.builder.WriteByte(']')
	return nothing{}, nil
}

func (s *serializer) VisitSubexpression(node *Subexpression) (nothing, error) {
	if _, err := Accept(node.Left, s); err != nil {
		return nothing{}, err
	}

	if node.Pipe {
		// Pipe has different precedence than dot, so this matters.
		s.builder.WriteString(" | ")
	} else if rhsNeedsDot(node.Right) {
		s.builder.WriteByte('.')
	}

	return Accept(node.Right, s)
}

func (s *serializer) VisitFlatten(node *Flatten) (nothing, error) {
	if _, err := Accept(node.Left, s); err != nil {
		return nothing{}, err
	}
	s.builder.WriteString("[]")
	return nothing{}, nil
}

func (s *serializer) VisitProjection(node *Projection) (nothing, error) {
	if _, ok := node.Left.(*Current); !ok {
		if _, err := Accept(node.Left, s); err != nil {
			return nothing{}, err
		}
	}

	// Slices and flattens already create a projection when parsed, so
	// re-emitting "[*]" after them would be convoluted.
	if _, ok := node.Left.(*Slice); !ok {
		if _, ok := node.Left.(*Flatten); !ok {
			s.builder.WriteString("[*]")
		}
	}

	return s.writeProjectionRhs(node.Right)
}

func (s *serializer) VisitObjectProjection(node *ObjectProjection) (nothing, error) {
	if _, ok := node.Left.(*Current); !ok {
		if _, err := Accept(node.Left, s); err != nil {
			return nothing{}, err
		}
		s.builder.WriteString(".*")
	} else {
		s.builder.WriteByte('*')
	}

	return s.writeProjectionRhs(node.Right)
}

func (s *serializer) VisitFilterProjection(node *FilterProjection) (nothing, error) {
	if _, ok := node.Left.(*Current); !ok {
		if _, err := Accept(node.Left, s); err != nil {
			return nothing{}, err
		}
	}

	s.builder.WriteString("[?")
	if _, err := Accept(node.Condition, s); err != nil {
		return nothing{}, err
	}
	s.builder.WriteByte(']')

	return s.writeProjectionRhs(node.Right)
}

// writeProjectionRhs skips the right side when it is a bare current node,
// and prefixes a dot where the grammar requires one.
func (s *serializer) writeProjectionRhs(right Expression) (nothing, error) {
	if _, ok := right.(*Current); ok {
		return nothing{}, nil
	}
	if rhsNeedsDot(right) {
		s.builder.WriteByte('.')
	}
	return Accept(right, s)
}

func (s *serializer) VisitMultiSelectList(node *MultiSelectList) (nothing, error) {
	s.builder.WriteByte('[')
	for i, e := range node.Expressions {
		if i > 0 {
			s.builder.WriteString(", ")
		}
		if _, err := Accept(e, s); err != nil {
			return nothing{}, err
		}
	}
	s.builder.WriteByte(']')
	return nothing{}, nil
}

func (s *serializer) VisitMultiSelectHash(node *MultiSelectHash) (nothing, error) {
	s.builder.WriteByte('{')
	for i, entry := range node.Entries {
		if i > 0 {
			s.builder.WriteString(", ")
		}
		s.builder.WriteByte('"')
		s.builder.WriteString(sanitizeString(entry.Key, false))
		s.builder.WriteString("\": ")
		if _, err := Accept(entry.Value, s); err != nil {
			return nothing{}, err
		}
	}
	s.builder.WriteByte('}')
	return nothing{}, nil
}

func (s *serializer) VisitAnd(node *And) (nothing, error) {
	return s.writeBinary(node.Left, " && ", node.Right)
}

func (s *serializer) VisitOr(node *Or) (nothing, error) {
	return s.writeBinary(node.Left, " || ", node.Right)
}

func (s *serializer) writeBinary(left Expression, op string, right Expression) (nothing, error) {
	s.builder.WriteByte('(')
	if _, err := Accept(left, s); err != nil {
		return nothing{}, err
	}
	s.builder.WriteString(op)
	if _, err := Accept(right, s); err != nil {
		return nothing{}, err
	}
	s.builder.WriteByte(')')
	return nothing{}, nil
}

func (s *serializer) VisitNot(node *Not) (nothing, error) {
	s.builder.WriteString("!(")
	if _, err := Accept(node.Expr, s); err != nil {
		return nothing{}, err
	}
	s.builder.WriteByte(')')
	return nothing{}, nil
}

func (s *serializer) VisitComparator(node *Comparator) (nothing, error) {
	if _, err := Accept(node.Left, s); err != nil {
		return nothing{}, err
	}
	s.builder.WriteByte(' ')
	s.builder.WriteString(node.Type.String())
	s.builder.WriteByte(' ')
	return Accept(node.Right, s)
}

func (s *serializer) VisitFunction(node *Function) (nothing, error) {
	s.builder.WriteString(node.Name)
	s.builder.WriteByte('(')
	for i, arg := range node.Args {
		if i > 0 {
			s.builder.WriteString(", ")
		}
		if _, err := Accept(arg, s); err != nil {
			return nothing{}, err
		}
	}
	s.builder.WriteByte(')')
	return nothing{}, nil
}

func (s *serializer) VisitLiteral(node *Literal) (nothing, error) {
	s.builder.WriteByte('`')
	if err := s.writeLiteral(node.Value); err != nil {
		return nothing{}, err
	}
	s.builder.WriteByte('`')
	return nothing{}, nil
}

func (s *serializer) writeLiteral(value any) error {
	switch v := value.(type) {
	case nil:
		s.builder.WriteString("null")
	case bool:
		s.builder.WriteString(strconv.FormatBool(v))
	case float64:
		s.builder.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	case string:
		s.builder.WriteByte('"')
		s.builder.WriteString(sanitizeString(v, true))
		s.builder.WriteByte('"')
	case []any:
		s.builder.WriteByte('[')
		for i, element := range v {
			if i > 0 {
				s.builder.WriteString(", ")
			}
			if err := s.writeLiteral(element); err != nil {
				return err
			}
		}
		s.builder.WriteByte(']')
	case map[string]any:
		s.builder.WriteByte('{')
		for i, key := range slices.Sorted(maps.Keys(v)) {
			if i > 0 {
				s.builder.WriteString(", ")
			}
			s.builder.WriteByte('"')
			s.builder.WriteString(sanitizeString(key, true))
			s.builder.WriteString("\": ")
			if err := s.writeLiteral(v[key]); err != nil {
				return err
			}
		}
		s.builder.WriteByte('}')
	default:
		return jmespath.NewError(jmespath.ErrOther, "unable to serialize literal value of type %T", value)
	}
	return nil
}

func (s *serializer) VisitExpressionRef(node *ExpressionRef) (nothing, error) {
	s.builder.WriteString("&(")
	if _, err := Accept(node.Expr, s); err != nil {
		return nothing{}, err
	}
	s.builder.WriteByte(')')
	return nothing{}, nil
}

// rhsNeedsDot reports whether an expression must be preceded by "." on the
// right side of a subexpression or projection.
func rhsNeedsDot(expr Expression) bool {
	switch n := expr.(type) {
	case *Field, *MultiSelectHash, *MultiSelectList, *ObjectProjection, *Function:
		return true
	case *Subexpression:
		return rhsNeedsDot(n.Left)
	case *And:
		return rhsNeedsDot(n.Left)
	case *Or:
		return rhsNeedsDot(n.Left)
	case *Comparator:
		return rhsNeedsDot(n.Left)
	case *Projection:
		return rhsNeedsDot(n.Left)
	case *FilterProjection:
		return rhsNeedsDot(n.Left)
	default:
		return false
	}
}

func sanitizeString(str string, escapeBackticks bool) string {
	result := strings.ReplaceAll(str, `\`, `\\`)
	result = strings.ReplaceAll(result, `"`, `\"`)
	if escapeBackticks {
		result = strings.ReplaceAll(result, "`", "\\`")
	}
	return result
}
