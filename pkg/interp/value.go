// Package interp implements the Trypillia tree-walking evaluator.
package interp

import (
	"strconv"

	"github.com/ChernegaSergiy/trypillia-language/pkg/ast"
)

// Value is the interface for all Trypillia runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// Nil represents the nil value.
type Nil struct{}

func (Nil) value() {}

// Bool represents a boolean value.
type Bool struct {
	Value bool
}

func (Bool) value() {}

// Number represents a 64-bit floating point number.
type Number struct {
	Value float64
}

func (Number) value() {}

// String represents a string value.
type String struct {
	Value string
}

func (String) value() {}

// Function is a user function together with the environment captured at its
// point of declaration. The closure is shared, not copied: mutations seen
// through one reference are visible through every other.
type Function struct {
	Decl    *ast.FnDecl
	Closure *Env
}

func (*Function) value() {}

// Arity returns the function's parameter count.
func (f *Function) Arity() int {
	return len(f.Decl.Params)
}

// Class is a named collection of methods.
type Class struct {
	Name    string
	Methods map[string]*Function
}

func (*Class) value() {}

// Init returns the class initializer method, or nil.
func (c *Class) Init() *Function {
	return c.Methods["init"]
}

// Arity returns the arity of the init method, or 0 when absent.
func (c *Class) Arity() int {
	if init := c.Init(); init != nil {
		return init.Arity()
	}
	return 0
}

// Instance is a mutable object of a class.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

func (*Instance) value() {}

// Truthy returns the boolean interpretation of a value: nil and false are
// falsy, everything else (including 0 and "") is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case Nil:
		return false
	case Bool:
		return val.Value
	default:
		return true
	}
}

// Stringify renders a value in its canonical printed form. Numbers drop
// trailing zeros after the decimal point and a trailing bare point, so 3.0
// renders as "3" and 3.5 as "3.5".
func Stringify(v Value) string {
	switch val := v.(type) {
	case Nil:
		return "nil"
	case Bool:
		if val.Value {
			return "true"
		}
		return "false"
	case Number:
		return strconv.FormatFloat(val.Value, 'f', -1, 64)
	case String:
		return val.Value
	case *Function:
		return "<fn " + val.Decl.Name + ">"
	case *Class:
		return "<class " + val.Name + ">"
	case *Instance:
		return "<instance of <class " + val.Class.Name + ">>"
	}
	return "unknown"
}
