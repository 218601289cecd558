// Package semantic implements the scope-consistency pass over Trypillia programs.
//
// The pass walks the tree with a chained symbol table, reporting undeclared
// names, duplicate definitions in one scope, and assignments to const
// symbols. It never modifies the tree and always completes the full walk.
package semantic

import (
	"fmt"

	"github.com/ChernegaSergiy/trypillia-language/pkg/ast"
	"github.com/ChernegaSergiy/trypillia-language/pkg/diagnostics"
)

// Symbol is a named entry in a scope. Type is an advisory tag ("function",
// "class", or empty); only Name and IsConst carry semantic weight.
type Symbol struct {
	Name    string
	Type    string
	IsConst bool
}

// Scope maps names to symbols and chains to an enclosing scope. Names are
// unique within one scope; resolution walks outward along the chain.
type Scope struct {
	symbols map[string]Symbol
	parent  *Scope
}

// NewScope creates a scope with an optional enclosing parent.
func NewScope(parent *Scope) *Scope {
	return &Scope{symbols: make(map[string]Symbol), parent: parent}
}

// Define inserts a symbol, failing when the name already exists locally.
func (s *Scope) Define(sym Symbol) bool {
	if _, exists := s.symbols[sym.Name]; exists {
		return false
	}
	s.symbols[sym.Name] = sym
	return true
}

// Resolve looks a name up through the scope chain.
func (s *Scope) Resolve(name string) (Symbol, bool) {
	if sym, ok := s.symbols[name]; ok {
		return sym, true
	}
	if s.parent != nil {
		return s.parent.Resolve(name)
	}
	return Symbol{}, false
}

// Parent returns the enclosing scope, or nil for the global scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

type analyzer struct {
	scope *Scope
	diags []diagnostics.Diagnostic
}

// Analyze runs the semantic pass and returns its diagnostics. The pass is
// non-fatal: all declarations are visited even after errors.
func Analyze(program *ast.Program) []diagnostics.Diagnostic {
	a := &analyzer{scope: NewScope(nil)}
	for _, decl := range program.Declarations {
		a.checkStmt(decl)
	}
	return a.diags
}

func (a *analyzer) addDiag(code, msg string, line int) {
	a.diags = append(a.diags, diagnostics.MakeDiag(code, msg, line))
}

func (a *analyzer) pushScope() {
	a.scope = NewScope(a.scope)
}

func (a *analyzer) popScope() {
	a.scope = a.scope.Parent()
}

func (a *analyzer) checkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		a.checkExpr(s.Expression)

	case *ast.PrintStmt:
		a.checkExpr(s.Expression)

	case *ast.VarStmt:
		if s.Initializer != nil {
			a.checkExpr(s.Initializer)
		}
		sym := Symbol{Name: s.Name.Lexeme}
		if !a.scope.Define(sym) {
			a.addDiag(diagnostics.EDupDefinition,
				fmt.Sprintf("variable '%s' already defined in this scope", s.Name.Lexeme), s.Name.Line)
		}

	case *ast.BlockStmt:
		a.pushScope()
		for _, inner := range s.Statements {
			a.checkStmt(inner)
		}
		a.popScope()

	case *ast.IfStmt:
		a.checkExpr(s.Condition)
		a.checkStmt(s.Then)
		if s.Else != nil {
			a.checkStmt(s.Else)
		}

	case *ast.WhileStmt:
		a.checkExpr(s.Condition)
		a.checkStmt(s.Body)

	case *ast.FnDecl:
		a.checkFn(s)

	case *ast.ClassDecl:
		sym := Symbol{Name: s.Name, Type: "class", IsConst: true}
		if !a.scope.Define(sym) {
			a.addDiag(diagnostics.EDupDefinition,
				fmt.Sprintf("class '%s' already defined in this scope", s.Name), s.Line)
		}
		// Methods live in a fresh scope rooted at the enclosing one.
		a.pushScope()
		for _, method := range s.Methods {
			a.checkFn(method)
		}
		a.popScope()
	}
}

func (a *analyzer) checkFn(fn *ast.FnDecl) {
	sym := Symbol{Name: fn.Name, Type: "function", IsConst: true}
	if !a.scope.Define(sym) {
		a.addDiag(diagnostics.EDupDefinition,
			fmt.Sprintf("function '%s' already defined in this scope", fn.Name), fn.Line)
	}

	a.pushScope()
	for _, param := range fn.Params {
		if !a.scope.Define(Symbol{Name: param}) {
			a.addDiag(diagnostics.EDupDefinition,
				fmt.Sprintf("parameter '%s' already defined", param), fn.Line)
		}
	}
	for _, stmt := range fn.Body {
		a.checkStmt(stmt)
	}
	a.popScope()
}

func (a *analyzer) checkExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		// nothing to check

	case *ast.VariableExpr:
		if _, ok := a.scope.Resolve(e.Name.Lexeme); !ok {
			a.addDiag(diagnostics.EUndefinedName,
				fmt.Sprintf("undefined variable '%s'", e.Name.Lexeme), e.Name.Line)
		}

	case *ast.AssignExpr:
		a.checkExpr(e.Value)
		sym, ok := a.scope.Resolve(e.Name.Lexeme)
		if !ok {
			a.addDiag(diagnostics.EUndefinedName,
				fmt.Sprintf("undefined variable '%s'", e.Name.Lexeme), e.Name.Line)
		} else if sym.IsConst {
			a.addDiag(diagnostics.EAssignToConst,
				fmt.Sprintf("cannot assign to const '%s'", e.Name.Lexeme), e.Name.Line)
		}

	case *ast.BinaryExpr:
		a.checkExpr(e.Left)
		a.checkExpr(e.Right)

	case *ast.CallExpr:
		a.checkExpr(e.Callee)
		for _, arg := range e.Arguments {
			a.checkExpr(arg)
		}
	}
}
