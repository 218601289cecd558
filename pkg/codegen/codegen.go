// Package codegen emits a C++ rendition of a Trypillia program.
//
// This is a sibling pass over the parsed tree: evaluation never depends on
// it. Functions and classes are hoisted above main; all other declarations
// are emitted into main in source order.
package codegen

import (
	"fmt"
	"strings"

	"github.com/ChernegaSergiy/trypillia-language/pkg/ast"
	"github.com/ChernegaSergiy/trypillia-language/pkg/diagnostics"
	"github.com/ChernegaSergiy/trypillia-language/pkg/lexer"
)

const indent = "  "

type generator struct {
	out   strings.Builder
	depth int
	diags []diagnostics.Diagnostic
}

// Generate renders the program as C++ source. Constructs the sibling
// language cannot express are reported as diagnostics: nested declarations
// are skipped, and an unsupported binary operator is emitted as a
// placeholder comment between its operands.
func Generate(program *ast.Program) (string, []diagnostics.Diagnostic) {
	g := &generator{}

	g.emitLine("// Generated code")
	g.emitLine("#include <iostream>")
	g.emitLine("#include <string>")
	g.emitLine("")

	var body []ast.Stmt
	for _, decl := range program.Declarations {
		switch d := decl.(type) {
		case *ast.FnDecl:
			g.genFn(d)
		case *ast.ClassDecl:
			g.genClass(d)
		default:
			body = append(body, decl)
		}
	}

	g.emitLine("int main() {")
	g.depth++
	for _, stmt := range body {
		g.genStmt(stmt)
	}
	g.indent()
	g.out.WriteString("return 0;\n")
	g.depth--
	g.emitLine("}")

	return g.out.String(), g.diags
}

func (g *generator) indent() {
	for i := 0; i < g.depth; i++ {
		g.out.WriteString(indent)
	}
}

func (g *generator) emitLine(s string) {
	g.out.WriteString(s)
	g.out.WriteString("\n")
}

func (g *generator) genFn(fn *ast.FnDecl) {
	g.indent()
	g.out.WriteString("auto " + fn.Name + "(")
	for i, param := range fn.Params {
		if i > 0 {
			g.out.WriteString(", ")
		}
		g.out.WriteString("auto " + param)
	}
	g.out.WriteString(") {\n")
	g.depth++
	for _, stmt := range fn.Body {
		g.genStmt(stmt)
	}
	g.depth--
	g.indent()
	g.out.WriteString("}\n\n")
}

func (g *generator) genClass(class *ast.ClassDecl) {
	g.indent()
	g.out.WriteString("class " + class.Name + " {\n")
	g.indent()
	g.out.WriteString("public:\n")
	g.depth++
	for _, method := range class.Methods {
		g.genFn(method)
	}
	g.depth--
	g.indent()
	g.out.WriteString("};\n\n")
}

func (g *generator) genStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		g.indent()
		g.genExpr(s.Expression)
		g.out.WriteString(";\n")

	case *ast.PrintStmt:
		g.indent()
		g.out.WriteString("std::cout << ")
		g.genExpr(s.Expression)
		g.out.WriteString(" << std::endl;\n")

	case *ast.VarStmt:
		g.indent()
		g.out.WriteString("auto " + s.Name.Lexeme + " = ")
		if s.Initializer != nil {
			g.genExpr(s.Initializer)
		} else {
			g.out.WriteString("{}")
		}
		g.out.WriteString(";\n")

	case *ast.BlockStmt:
		g.indent()
		g.out.WriteString("{\n")
		g.depth++
		for _, inner := range s.Statements {
			g.genStmt(inner)
		}
		g.depth--
		g.indent()
		g.out.WriteString("}\n")

	case *ast.IfStmt:
		g.indent()
		g.out.WriteString("if (")
		g.genExpr(s.Condition)
		g.out.WriteString(")\n")
		g.genStmt(s.Then)
		if s.Else != nil {
			g.indent()
			g.out.WriteString("else\n")
			g.genStmt(s.Else)
		}

	case *ast.WhileStmt:
		g.indent()
		g.out.WriteString("while (")
		g.genExpr(s.Condition)
		g.out.WriteString(")\n")
		g.genStmt(s.Body)

	case *ast.FnDecl:
		// Nested declarations are legal in the source language only.
		g.addDiag(fmt.Sprintf("cannot emit nested function '%s'", s.Name), s.Line)

	case *ast.ClassDecl:
		g.addDiag(fmt.Sprintf("cannot emit nested class '%s'", s.Name), s.Line)
	}
}

func (g *generator) genExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		if e.Value.Type == lexer.TokString {
			g.out.WriteString("\"" + e.Value.Lexeme + "\"")
		} else {
			g.out.WriteString(e.Value.Lexeme)
		}

	case *ast.VariableExpr:
		g.out.WriteString(e.Name.Lexeme)

	case *ast.AssignExpr:
		g.out.WriteString(e.Name.Lexeme + " = ")
		g.genExpr(e.Value)

	case *ast.BinaryExpr:
		g.out.WriteString("(")
		g.genExpr(e.Left)
		switch e.Op.Type {
		case lexer.TokPlus, lexer.TokMinus, lexer.TokStar, lexer.TokSlash:
			g.out.WriteString(" " + e.Op.Lexeme + " ")
		default:
			g.addDiag(fmt.Sprintf("unsupported binary operator '%s'", e.Op.Lexeme), e.Op.Line)
			g.out.WriteString(" /* ? */ ")
		}
		g.genExpr(e.Right)
		g.out.WriteString(")")

	case *ast.CallExpr:
		g.genExpr(e.Callee)
		g.out.WriteString("(")
		for i, arg := range e.Arguments {
			if i > 0 {
				g.out.WriteString(", ")
			}
			g.genExpr(arg)
		}
		g.out.WriteString(")")
	}
}

func (g *generator) addDiag(msg string, line int) {
	g.diags = append(g.diags, diagnostics.MakeDiag(diagnostics.EUnsupportedOp, msg, line))
}
