package sql

import "sync"

// Bind is an execution handle a statement can be dispatched to. The engine
// package provides the concrete implementation.
type Bind interface {
	DialectName() string
}

// ClauseElement is any node of an expression tree.
type ClauseElement interface {
	// ID returns the node's unique identity.
	ID() NodeID
	// ClonedSet returns the node's id together with the ids of every node
	// it was cloned from.
	ClonedSet() IDSet
	// VisitName is the tag the compiler dispatches on.
	VisitName() string
	// Children returns the direct child nodes, in rendering order.
	Children() []ClauseElement
	// FromObjects returns the FROM sources this element references.
	FromObjects() []FromClause

	// clone returns a shallow copy carrying a derived identity. Immutable
	// nodes return themselves.
	clone() ClauseElement
	// copyInternals replaces owned children with their clones.
	copyInternals(clone func(ClauseElement) ClauseElement)
}

// ColumnElement is a column-valued expression: a table column, a proxy
// exported by a derived selectable, a label or any scalar expression.
type ColumnElement interface {
	ClauseElement
	Coercible

	// Key is the name the column is stored under in a ColumnCollection.
	Key() string
	// Name is the rendered column name; it may be an anonymous label.
	Name() string
	Type() TypeDescriptor
	// ProxySet returns the column's lineage.
	ProxySet() *ProxySet
	// Table returns the selectable the column belongs to, or nil.
	Table() FromClause
	IsPrimaryKey() bool
	ForeignKeys() []*ForeignKey
	// DefaultLabel is the table-qualified name used when labels are
	// applied ("<table>_<name>"); empty for expressions without one.
	DefaultLabel() string
	// KeyLabel is DefaultLabel computed from the key instead of the name.
	KeyLabel() string
	// AnonLabel is an anonymous label unique to this column.
	AnonLabel() string

	// makeProxy creates a column bound to owner that stands in for the
	// receiver. Empty name or key fall back to the receiver's.
	makeProxy(owner FromClause, name, key string) *ColumnClause
}

// proxyRef links a column to one column it proxies.
type proxyRef struct {
	col    ColumnElement
	weight uint32
}

type proxyCache struct {
	once sync.Once
	set  *ProxySet
}

// columnBase carries the identity, type and lineage shared by all column
// elements.
type columnBase struct {
	identity
	typ     TypeDescriptor
	proxies []proxyRef
	pcache  *proxyCache
}

func newColumnBase(typ TypeDescriptor) columnBase {
	if typ == nil {
		typ = NullType
	}
	return columnBase{identity: newIdentity(), typ: typ, pcache: &proxyCache{}}
}

// derived returns a copy for a clone of the owning column.
func (b columnBase) derived() columnBase {
	b.identity = b.identity.derive()
	b.pcache = &proxyCache{}
	return b
}

func (b *columnBase) proxySetFor(self ColumnElement) *ProxySet {
	b.pcache.once.Do(func() {
		b.pcache.set = buildProxySet(self, b.proxies)
	})
	return b.pcache.set
}

// Type returns the column's type descriptor.
func (b *columnBase) Type() TypeDescriptor { return b.typ }

// Table returns nil; only named columns belong to a selectable.
func (b *columnBase) Table() FromClause { return nil }

// IsPrimaryKey returns false.
func (b *columnBase) IsPrimaryKey() bool { return false }

// ForeignKeys returns nil.
func (b *columnBase) ForeignKeys() []*ForeignKey { return nil }

// DefaultLabel returns "".
func (b *columnBase) DefaultLabel() string { return "" }

// KeyLabel returns "".
func (b *columnBase) KeyLabel() string { return "" }

// AnonLabel returns an anonymous label based on "anon".
func (b *columnBase) AnonLabel() string { return anonymousLabel(b.ID(), "anon") }

func (b *columnBase) coercible() {}

func (b *columnBase) copyInternals(func(ClauseElement) ClauseElement) {}

// proxyExpression is the makeProxy implementation for unnamed expressions:
// the proxy gets an anonymous name unless one is given.
func proxyExpression(self ColumnElement, owner FromClause, name, key string) *ColumnClause {
	if name == "" {
		name = self.AnonLabel()
		if key == "" {
			key = self.Key()
		}
		if key == "" {
			key = name
		}
	} else if key == "" {
		key = name
	}
	c := newColumnClause(name, self.Type())
	c.key = key
	c.table = owner
	c.proxies = []proxyRef{{col: self, weight: 1}}
	c.linkToOrigin(owner)
	return c
}

// TypeDescriptor describes the SQL type of a column-valued expression. The
// tree only propagates it.
type TypeDescriptor interface {
	TypeName() string
}

// SQLType is a named SQL type.
type SQLType struct {
	Name string
}

// TypeName returns the type name.
func (t SQLType) TypeName() string { return t.Name }

// Common types.
var (
	NullType  TypeDescriptor = SQLType{Name: "NULL"}
	Integer   TypeDescriptor = SQLType{Name: "INTEGER"}
	BigInt    TypeDescriptor = SQLType{Name: "BIGINT"}
	Float     TypeDescriptor = SQLType{Name: "DOUBLE"}
	Numeric   TypeDescriptor = SQLType{Name: "NUMERIC"}
	String    TypeDescriptor = SQLType{Name: "VARCHAR"}
	Boolean   TypeDescriptor = SQLType{Name: "BOOLEAN"}
	Date      TypeDescriptor = SQLType{Name: "DATE"}
	Timestamp TypeDescriptor = SQLType{Name: "TIMESTAMP"}
)

// TypeOf infers a type descriptor from a Go value.
func TypeOf(v any) TypeDescriptor {
	switch v.(type) {
	case int, int8, int16, int32, uint, uint8, uint16, uint32:
		return Integer
	case int64, uint64:
		return BigInt
	case float32, float64:
		return Float
	case string, []byte:
		return String
	case bool:
		return Boolean
	default:
		return NullType
	}
}
