package sql

import "fmt"

// Coercible is the closed set of values accepted where a column or a FROM
// source is expected: Raw text, a ColumnElement, a FromClause, or a Mapped
// entity.
type Coercible interface {
	coercible()
}

// Raw is literal SQL text. In column position it becomes a literal column;
// in FROM position it becomes a TextFrom.
type Raw string

func (Raw) coercible() {}

// Entity is anything that can present itself as a selectable, such as a
// mapped model.
type Entity interface {
	Selectable() FromClause
}

// Mapped adapts an Entity for coercion.
type Mapped struct {
	Entity Entity
}

func (Mapped) coercible() {}

// CoerceFrom interprets v as a FROM source.
func CoerceFrom(v Coercible) (FromClause, error) {
	switch x := v.(type) {
	case FromClause:
		return x, nil
	case Raw:
		return NewTextFrom(string(x)), nil
	case Mapped:
		if x.Entity == nil {
			return nil, &ArgumentError{Message: fmt.Sprintf(errFromExpected, x.Entity)}
		}
		return x.Entity.Selectable(), nil
	default:
		return nil, &ArgumentError{Message: fmt.Sprintf(errFromExpected, v)}
	}
}

// CoerceColumns interprets v as one or more column expressions. A FROM
// source yields all of its exported columns.
func CoerceColumns(v Coercible) []ColumnElement {
	switch x := v.(type) {
	case ColumnElement:
		return []ColumnElement{x}
	case FromClause:
		return x.Columns().All()
	case Raw:
		return []ColumnElement{LiteralColumn(string(x), nil)}
	case Mapped:
		if x.Entity == nil {
			return nil
		}
		return x.Entity.Selectable().Columns().All()
	default:
		return nil
	}
}

// coerceOperand interprets the right-hand side of an operator. Go values
// become bind parameters typed after the left operand.
func coerceOperand(v any, left ColumnElement) ColumnElement {
	switch x := v.(type) {
	case nil:
		return Null()
	case ColumnElement:
		return x
	case SelectBase:
		return x.AsScalar()
	default:
		p := BindParam("", v)
		if p.typ == NullType && left != nil {
			p.typ = left.Type()
		}
		return p
	}
}
