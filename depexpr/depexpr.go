// Package depexpr evaluates registry dependency expressions such as
// "VK_KHR_surface+(VK_VERSION_1_1,VK_KHR_get_physical_device_properties2)".
//
// '+' is logical AND and ',' is logical OR. Both operators share one
// precedence level and associate to the left; parentheses override the
// grouping. An atom is true iff it is a member of the enabled set.
package depexpr

import (
	"fmt"
	"strconv"
	"strings"
)

const operatorChars = "+,()"

// Error is returned for malformed expressions.
type Error struct {
	Expr string
	Msg  string
}

func (e *Error) Error() string {
	return "dependency expression " + strconv.Quote(e.Expr) + ": " + e.Msg
}

// Set is the set of enabled feature names.
type Set map[string]struct{}

// NewSet returns a set containing names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Tokenize splits expr on the operator characters, keeping
// multi-character atoms intact.
func Tokenize(expr string) []string {
	var tokens []string
	start := 0
	for i := 0; i < len(expr); i++ {
		if strings.IndexByte(operatorChars, expr[i]) == -1 {
			continue
		}
		if i > start {
			tokens = append(tokens, expr[start:i])
		}
		tokens = append(tokens, expr[i:i+1])
		start = i + 1
	}
	if start < len(expr) {
		tokens = append(tokens, expr[start:])
	}
	return tokens
}

func isOperator(tok string) bool { return tok == "+" || tok == "," }

func isAtom(tok string) bool { return len(tok) > 1 || strings.IndexByte(operatorChars, tok[0]) == -1 }

// Postfix converts expr to postfix notation with a single precedence
// level shunting-yard pass.
func Postfix(expr string) ([]string, error) {
	errorf := func(format string, args ...any) error {
		return &Error{Expr: expr, Msg: fmt.Sprintf(format, args...)}
	}

	var (
		rpn []string
		ops []string
		// Whether the previous token completed an operand. Used to
		// reject empty operands such as "A+" or "A,,B".
		haveOperand bool
	)
	for _, tok := range Tokenize(expr) {
		switch {
		case isAtom(tok):
			if haveOperand {
				return nil, errorf("missing operator before %v", strconv.Quote(tok))
			}
			rpn = append(rpn, tok)
			haveOperand = true
		case isOperator(tok):
			if !haveOperand {
				return nil, errorf("empty operand before %v", strconv.Quote(tok))
			}
			for len(ops) > 0 && isOperator(ops[len(ops)-1]) {
				rpn = append(rpn, ops[len(ops)-1])
				ops = ops[:len(ops)-1]
			}
			ops = append(ops, tok)
			haveOperand = false
		case tok == "(":
			if haveOperand {
				return nil, errorf("missing operator before \"(\"")
			}
			ops = append(ops, tok)
		case tok == ")":
			if !haveOperand {
				return nil, errorf("empty operand before \")\"")
			}
			for len(ops) > 0 && ops[len(ops)-1] != "(" {
				rpn = append(rpn, ops[len(ops)-1])
				ops = ops[:len(ops)-1]
			}
			if len(ops) == 0 {
				return nil, errorf("unbalanced parentheses")
			}
			ops = ops[:len(ops)-1]
		}
	}
	if !haveOperand {
		return nil, errorf("empty operand at end of expression")
	}
	for len(ops) > 0 {
		op := ops[len(ops)-1]
		if op == "(" {
			return nil, errorf("unbalanced parentheses")
		}
		rpn = append(rpn, op)
		ops = ops[:len(ops)-1]
	}
	return rpn, nil
}

// Eval evaluates expr against the enabled set.
func Eval(expr string, enabled Set) (bool, error) {
	rpn, err := Postfix(expr)
	if err != nil {
		return false, err
	}
	var stack []bool
	for _, tok := range rpn {
		if !isOperator(tok) {
			stack = append(stack, enabled.Has(tok))
			continue
		}
		if len(stack) < 2 {
			return false, &Error{Expr: expr, Msg: "operator " + strconv.Quote(tok) + " is missing an operand"}
		}
		lhs, rhs := stack[len(stack)-2], stack[len(stack)-1]
		stack = stack[:len(stack)-2]
		if tok == "+" {
			stack = append(stack, lhs && rhs)
		} else {
			stack = append(stack, lhs || rhs)
		}
	}
	if len(stack) != 1 {
		return false, &Error{Expr: expr, Msg: fmt.Sprintf("expected a single result, got %v", len(stack))}
	}
	return stack[0], nil
}

// IsFlat reports whether expr is a plain AND-list, i.e. contains none
// of ",()".
func IsFlat(expr string) bool {
	return !strings.ContainsAny(expr, ",()")
}

// Atoms splits a flat AND-list into its atoms. It returns an error
// for expressions that aren't flat or contain empty atoms.
func Atoms(expr string) ([]string, error) {
	if !IsFlat(expr) {
		return nil, &Error{Expr: expr, Msg: "not a flat AND-list"}
	}
	atoms := strings.Split(expr, "+")
	for _, a := range atoms {
		if a == "" {
			return nil, &Error{Expr: expr, Msg: "empty operand"}
		}
	}
	return atoms, nil
}

// Expr is a parsed expression tree.
type Expr interface {
	String() string
	isExpr()
}

type (
	Atom string
	And  struct{ X, Y Expr }
	Or   struct{ X, Y Expr }
)

func (a Atom) String() string { return string(a) }
func (e And) String() string  { return "(" + e.X.String() + "+" + e.Y.String() + ")" }
func (e Or) String() string   { return "(" + e.X.String() + "," + e.Y.String() + ")" }

func (Atom) isExpr() {}
func (And) isExpr()  {}
func (Or) isExpr()   {}

// Parse builds an expression tree from the postfix form of expr.
func Parse(expr string) (Expr, error) {
	rpn, err := Postfix(expr)
	if err != nil {
		return nil, err
	}
	var stack []Expr
	for _, tok := range rpn {
		if !isOperator(tok) {
			stack = append(stack, Atom(tok))
			continue
		}
		if len(stack) < 2 {
			return nil, &Error{Expr: expr, Msg: "operator " + strconv.Quote(tok) + " is missing an operand"}
		}
		x, y := stack[len(stack)-2], stack[len(stack)-1]
		stack = stack[:len(stack)-2]
		if tok == "+" {
			stack = append(stack, And{x, y})
		} else {
			stack = append(stack, Or{x, y})
		}
	}
	if len(stack) != 1 {
		return nil, &Error{Expr: expr, Msg: fmt.Sprintf("expected a single result, got %v", len(stack))}
	}
	return stack[0], nil
}

// Holds evaluates a parsed expression.
func Holds(e Expr, enabled Set) bool {
	switch e := e.(type) {
	case Atom:
		return enabled.Has(string(e))
	case And:
		return Holds(e.X, enabled) && Holds(e.Y, enabled)
	case Or:
		return Holds(e.X, enabled) || Holds(e.Y, enabled)
	default:
		panic(fmt.Sprintf("depexpr: unknown expression type %T", e))
	}
}

// Required returns the atoms that have to be added to enabled for e to
// hold, in left-to-right order. Atoms for which exclude returns true are
// never returned, so an unsatisfied OR picks its first alternative that
// needs no excluded atoms.
//
// A nil result means e already holds or cannot be satisfied without
// excluded atoms.
func Required(e Expr, enabled Set, exclude func(string) bool) []string {
	var visit func(e Expr) (atoms []string, ok bool)
	visit = func(e Expr) ([]string, bool) {
		switch e := e.(type) {
		case Atom:
			if enabled.Has(string(e)) {
				return nil, true
			}
			if exclude != nil && exclude(string(e)) {
				return nil, false
			}
			return []string{string(e)}, true
		case And:
			x, xOK := visit(e.X)
			y, yOK := visit(e.Y)
			if !xOK || !yOK {
				return nil, false
			}
			return appendUnique(x, y...), true
		case Or:
			if Holds(e, enabled) {
				return nil, true
			}
			if x, ok := visit(e.X); ok {
				return x, true
			}
			return visit(e.Y)
		default:
			panic(fmt.Sprintf("depexpr: unknown expression type %T", e))
		}
	}
	atoms, _ := visit(e)
	return atoms
}

func appendUnique(dst []string, src ...string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}
