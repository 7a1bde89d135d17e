package shared

// Operator is a comparison operator used in query conditions
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpIn           Operator = "in"
)

// Valid reports whether the operator is supported
func (o Operator) Valid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpIn:
		return true
	}
	return false
}

// Condition is a single field predicate
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// Order directions
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Query represents filter, ordering and limit options for a collection read.
// All conditions must hold (logical AND).
type Query struct {
	Conditions []Condition
	OrderBy    string
	OrderDir   string
	Limit      int
	Offset     int
}

// NewQuery returns an empty query
func NewQuery() Query {
	return Query{}
}

// Where appends a condition and returns the query
func (q Query) Where(field string, op Operator, value any) Query {
	conds := make([]Condition, len(q.Conditions), len(q.Conditions)+1)
	copy(conds, q.Conditions)
	q.Conditions = append(conds, Condition{Field: field, Op: op, Value: value})
	return q
}

// Order sets the ordering field and direction
func (q Query) Order(field, dir string) Query {
	q.OrderBy = field
	q.OrderDir = dir
	return q
}

// WithLimit sets the maximum number of results
func (q Query) WithLimit(limit int) Query {
	q.Limit = limit
	return q
}

// WithOffset sets the number of results to skip
func (q Query) WithOffset(offset int) Query {
	q.Offset = offset
	return q
}

// Validate checks operators and pagination values
func (q Query) Validate() error {
	for _, c := range q.Conditions {
		if c.Field == "" || !c.Op.Valid() {
			return NewDomainError(CodeInvalidInput, "Invalid query condition")
		}
	}
	if q.OrderDir != "" && q.OrderDir != OrderAsc && q.OrderDir != OrderDesc {
		return NewDomainError(CodeInvalidInput, "Invalid order direction")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return NewDomainError(CodeInvalidInput, "Invalid pagination")
	}
	return nil
}
