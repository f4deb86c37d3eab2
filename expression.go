package connectx

// Expression represents a composable filter expression compiled from
// search parameters. Backends translate expressions into their own filter
// language.
type Expression interface {
	// expr is a marker method to distinguish expressions from other values.
	expr()
}

// baseExpr provides the expr marker method for all expression types.
type baseExpr struct{}

func (baseExpr) expr() {}

// AndExpr represents an AND combination of expressions.
type AndExpr struct {
	baseExpr
	// Exprs contains the expressions to combine with AND logic.
	Exprs []Expression
}

// And creates an AND expression combining multiple expressions.
func And(exprs ...Expression) Expression {
	return AndExpr{Exprs: exprs}
}

// CompareExpr compares a field against a value.
type CompareExpr struct {
	baseExpr
	// Field is the name of the field to compare.
	Field string
	// Op is the comparison operator.
	Op Operator
	// Value is the value to compare against.
	Value interface{}
}

// Compare creates a comparison expression.
func Compare(field string, op Operator, value interface{}) Expression {
	return CompareExpr{Field: field, Op: op, Value: value}
}

// Eq creates an equality comparison expression.
func Eq(field string, value interface{}) Expression {
	return Compare(field, OpEq, value)
}

// Gte creates a greater-than-or-equal comparison expression.
func Gte(field string, value interface{}) Expression {
	return Compare(field, OpGte, value)
}

// Lte creates a less-than-or-equal comparison expression.
func Lte(field string, value interface{}) Expression {
	return Compare(field, OpLte, value)
}
