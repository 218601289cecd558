package parser_test

import (
	"strings"
	"testing"

	"github.com/ChernegaSergiy/trypillia-language/pkg/ast"
	"github.com/ChernegaSergiy/trypillia-language/pkg/diagnostics"
	"github.com/ChernegaSergiy/trypillia-language/pkg/lexer"
	"github.com/ChernegaSergiy/trypillia-language/pkg/parser"
)

// helper: parse source and assert no diagnostics
func mustParse(t *testing.T, source string) *ast.Program {
	t.Helper()
	prog, diags := parser.Parse(source)
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %s", diagnostics.FormatDiagnostics(diags))
	}
	if prog == nil {
		t.Fatal("expected non-nil program")
	}
	return prog
}

// helper: parse source expecting at least one diagnostic with the given code
func mustFailWith(t *testing.T, source, code string) *ast.Program {
	t.Helper()
	prog, diags := parser.Parse(source)
	if prog == nil {
		t.Fatal("parser must always return a program")
	}
	for _, d := range diags {
		if d.Code == code {
			return prog
		}
	}
	t.Fatalf("expected diagnostic %s, got: %s", code, diagnostics.FormatDiagnostics(diags))
	return prog
}

// helper: extract the single statement from a program
func singleStmt(t *testing.T, source string) ast.Stmt {
	t.Helper()
	prog := mustParse(t, source)
	if len(prog.Declarations) != 1 {
		t.Fatalf("expected 1 declaration, got %d", len(prog.Declarations))
	}
	return prog.Declarations[0]
}

// helper: extract the expression of a single print statement
func printedExpr(t *testing.T, source string) ast.Expr {
	t.Helper()
	stmt := singleStmt(t, source)
	ps, ok := stmt.(*ast.PrintStmt)
	if !ok {
		t.Fatalf("expected PrintStmt, got %T", stmt)
	}
	return ps.Expression
}

// ---------------------------------------------------------------------------
// Test: declarations
// ---------------------------------------------------------------------------
func TestVarDecl(t *testing.T) {
	stmt := singleStmt(t, "let x = 42;")
	vs, ok := stmt.(*ast.VarStmt)
	if !ok {
		t.Fatalf("expected VarStmt, got %T", stmt)
	}
	if vs.Name.Lexeme != "x" {
		t.Errorf("name = %q, want \"x\"", vs.Name.Lexeme)
	}
	lit, ok := vs.Initializer.(*ast.LiteralExpr)
	if !ok {
		t.Fatalf("expected LiteralExpr initializer, got %T", vs.Initializer)
	}
	if lit.Value.Lexeme != "42" {
		t.Errorf("initializer lexeme = %q, want \"42\"", lit.Value.Lexeme)
	}
}

func TestVarDeclWithoutInitializer(t *testing.T) {
	stmt := singleStmt(t, "let x;")
	vs := stmt.(*ast.VarStmt)
	if vs.Initializer != nil {
		t.Errorf("expected nil initializer, got %T", vs.Initializer)
	}
}

func TestFnDecl(t *testing.T) {
	stmt := singleStmt(t, "fn add(a, b) { print a + b; }")
	fn, ok := stmt.(*ast.FnDecl)
	if !ok {
		t.Fatalf("expected FnDecl, got %T", stmt)
	}
	if fn.Name != "add" {
		t.Errorf("name = %q, want \"add\"", fn.Name)
	}
	if len(fn.Params) != 2 || fn.Params[0] != "a" || fn.Params[1] != "b" {
		t.Errorf("params = %v, want [a b]", fn.Params)
	}
	if len(fn.Body) != 1 {
		t.Errorf("body statements = %d, want 1", len(fn.Body))
	}
}

func TestFnDeclNoParams(t *testing.T) {
	stmt := singleStmt(t, "fn f() {}")
	fn := stmt.(*ast.FnDecl)
	if len(fn.Params) != 0 {
		t.Errorf("params = %v, want none", fn.Params)
	}
	if len(fn.Body) != 0 {
		t.Errorf("body statements = %d, want 0", len(fn.Body))
	}
}

func TestClassDecl(t *testing.T) {
	stmt := singleStmt(t, `class Point {
  fn init(x, y) { print x; }
  fn show() { print "point"; }
}`)
	class, ok := stmt.(*ast.ClassDecl)
	if !ok {
		t.Fatalf("expected ClassDecl, got %T", stmt)
	}
	if class.Name != "Point" {
		t.Errorf("name = %q, want \"Point\"", class.Name)
	}
	if len(class.Methods) != 2 {
		t.Fatalf("methods = %d, want 2", len(class.Methods))
	}
	if class.Methods[0].Name != "init" || class.Methods[1].Name != "show" {
		t.Errorf("method names = %q, %q", class.Methods[0].Name, class.Methods[1].Name)
	}
}

func TestEmptyClass(t *testing.T) {
	stmt := singleStmt(t, "class C {}")
	class := stmt.(*ast.ClassDecl)
	if len(class.Methods) != 0 {
		t.Errorf("methods = %d, want 0", len(class.Methods))
	}
}

// Non-fn tokens inside a class body are skipped without diagnostics.
func TestClassBodySkipsNonMethodTokens(t *testing.T) {
	prog := mustParse(t, `class C {
  virtual override let x ; 42
  fn m() {}
}`)
	class := prog.Declarations[0].(*ast.ClassDecl)
	if len(class.Methods) != 1 || class.Methods[0].Name != "m" {
		t.Fatalf("expected single method 'm', got %v", class.Methods)
	}
}

// ---------------------------------------------------------------------------
// Test: statements
// ---------------------------------------------------------------------------
func TestIfElse(t *testing.T) {
	stmt := singleStmt(t, `if (x) print "a"; else print "b";`)
	ifs, ok := stmt.(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected IfStmt, got %T", stmt)
	}
	if ifs.Else == nil {
		t.Error("expected else branch")
	}
}

func TestIfWithoutElse(t *testing.T) {
	stmt := singleStmt(t, `if (x) print "a";`)
	ifs := stmt.(*ast.IfStmt)
	if ifs.Else != nil {
		t.Errorf("expected nil else branch, got %T", ifs.Else)
	}
}

func TestWhile(t *testing.T) {
	stmt := singleStmt(t, "while (x) { x = x - 1; }")
	ws, ok := stmt.(*ast.WhileStmt)
	if !ok {
		t.Fatalf("expected WhileStmt, got %T", stmt)
	}
	if _, ok := ws.Body.(*ast.BlockStmt); !ok {
		t.Errorf("expected BlockStmt body, got %T", ws.Body)
	}
}

func TestBlock(t *testing.T) {
	stmt := singleStmt(t, "{ let a = 1; let b = 2; }")
	block, ok := stmt.(*ast.BlockStmt)
	if !ok {
		t.Fatalf("expected BlockStmt, got %T", stmt)
	}
	if len(block.Statements) != 2 {
		t.Errorf("statements = %d, want 2", len(block.Statements))
	}
}

func TestExprStmt(t *testing.T) {
	stmt := singleStmt(t, "f(1);")
	es, ok := stmt.(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt, got %T", stmt)
	}
	if _, ok := es.Expression.(*ast.CallExpr); !ok {
		t.Errorf("expected CallExpr, got %T", es.Expression)
	}
}

// ---------------------------------------------------------------------------
// Test: expression precedence and associativity
// ---------------------------------------------------------------------------
func TestPrecedenceMulOverAdd(t *testing.T) {
	expr := printedExpr(t, "print 1 + 2 * 3;")
	add, ok := expr.(*ast.BinaryExpr)
	if !ok || add.Op.Type != lexer.TokPlus {
		t.Fatalf("expected top-level '+', got %T", expr)
	}
	mul, ok := add.Right.(*ast.BinaryExpr)
	if !ok || mul.Op.Type != lexer.TokStar {
		t.Fatalf("expected '*' on the right of '+', got %T", add.Right)
	}
}

func TestLeftAssociativity(t *testing.T) {
	// 1 - 2 - 3 parses as (1 - 2) - 3
	expr := printedExpr(t, "print 1 - 2 - 3;")
	outer, ok := expr.(*ast.BinaryExpr)
	if !ok || outer.Op.Type != lexer.TokMinus {
		t.Fatalf("expected top-level '-', got %T", expr)
	}
	inner, ok := outer.Left.(*ast.BinaryExpr)
	if !ok || inner.Op.Type != lexer.TokMinus {
		t.Fatalf("expected nested '-' on the left, got %T", outer.Left)
	}
	rightLit, ok := outer.Right.(*ast.LiteralExpr)
	if !ok || rightLit.Value.Lexeme != "3" {
		t.Errorf("expected literal 3 on the right")
	}
}

func TestGroupingOverridesPrecedence(t *testing.T) {
	expr := printedExpr(t, "print (1 + 2) * 3;")
	mul, ok := expr.(*ast.BinaryExpr)
	if !ok || mul.Op.Type != lexer.TokStar {
		t.Fatalf("expected top-level '*', got %T", expr)
	}
	add, ok := mul.Left.(*ast.BinaryExpr)
	if !ok || add.Op.Type != lexer.TokPlus {
		t.Fatalf("expected '+' inside the group, got %T", mul.Left)
	}
}

func TestAssignmentRightAssociative(t *testing.T) {
	// a = b = 1 parses as a = (b = 1)
	stmt := singleStmt(t, "a = b = 1;")
	es := stmt.(*ast.ExprStmt)
	outer, ok := es.Expression.(*ast.AssignExpr)
	if !ok || outer.Name.Lexeme != "a" {
		t.Fatalf("expected assignment to 'a', got %T", es.Expression)
	}
	inner, ok := outer.Value.(*ast.AssignExpr)
	if !ok || inner.Name.Lexeme != "b" {
		t.Fatalf("expected nested assignment to 'b', got %T", outer.Value)
	}
}

// ---------------------------------------------------------------------------
// Test: calls
// ---------------------------------------------------------------------------
func TestCallArguments(t *testing.T) {
	stmt := singleStmt(t, "f(1, x, 2 + 3);")
	call := stmt.(*ast.ExprStmt).Expression.(*ast.CallExpr)
	if len(call.Arguments) != 3 {
		t.Fatalf("arguments = %d, want 3", len(call.Arguments))
	}
	if _, ok := call.Arguments[2].(*ast.BinaryExpr); !ok {
		t.Errorf("argument 2: expected BinaryExpr, got %T", call.Arguments[2])
	}
}

// f()() applies the result of the first call.
func TestChainedCalls(t *testing.T) {
	stmt := singleStmt(t, "f()();")
	outer := stmt.(*ast.ExprStmt).Expression.(*ast.CallExpr)
	inner, ok := outer.Callee.(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected CallExpr callee, got %T", outer.Callee)
	}
	if _, ok := inner.Callee.(*ast.VariableExpr); !ok {
		t.Errorf("expected VariableExpr at the base, got %T", inner.Callee)
	}
}

// ---------------------------------------------------------------------------
// Test: parse errors and recovery
// ---------------------------------------------------------------------------
func TestMissingSemicolon(t *testing.T) {
	mustFailWith(t, "print 1", diagnostics.EUnexpectedToken)
}

func TestExpectedExpression(t *testing.T) {
	mustFailWith(t, "print ;", diagnostics.EExpectedExpr)
}

func TestInvalidAssignmentTarget(t *testing.T) {
	prog := mustFailWith(t, "1 + 2 = 3;", diagnostics.EInvalidAssign)
	// The parser keeps the LHS and continues.
	if len(prog.Declarations) != 1 {
		t.Errorf("declarations = %d, want 1", len(prog.Declarations))
	}
}

func TestUnknownCharacterReported(t *testing.T) {
	mustFailWith(t, "let x = @;", diagnostics.EUnknownChar)
}

func TestUnterminatedStringReported(t *testing.T) {
	mustFailWith(t, `print "oops`, diagnostics.EUnterminatedString)
}

// A malformed statement must not take healthy neighbors down with it.
func TestErrorRecoveryKeepsLaterStatements(t *testing.T) {
	prog, diags := parser.Parse("let = 5;\nprint \"ok\";")
	if len(diags) == 0 {
		t.Fatal("expected diagnostics for the malformed let")
	}
	if len(prog.Declarations) != 1 {
		t.Fatalf("declarations = %d, want 1", len(prog.Declarations))
	}
	if _, ok := prog.Declarations[0].(*ast.PrintStmt); !ok {
		t.Errorf("expected surviving PrintStmt, got %T", prog.Declarations[0])
	}
}

func TestSynchronizeStopsAtKeyword(t *testing.T) {
	prog, diags := parser.Parse("let 1 2 3 let y = 4;")
	if len(diags) == 0 {
		t.Fatal("expected diagnostics")
	}
	if len(prog.Declarations) != 1 {
		t.Fatalf("declarations = %d, want 1", len(prog.Declarations))
	}
	vs, ok := prog.Declarations[0].(*ast.VarStmt)
	if !ok || vs.Name.Lexeme != "y" {
		t.Errorf("expected recovered 'let y', got %T", prog.Declarations[0])
	}
}

func TestDiagnosticNamesExpectedKind(t *testing.T) {
	_, diags := parser.Parse("let = 5;")
	if len(diags) == 0 {
		t.Fatal("expected diagnostics")
	}
	if !strings.Contains(diags[0].Message, "expected identifier") {
		t.Errorf("message = %q, want it to name the expected kind", diags[0].Message)
	}
}

// ---------------------------------------------------------------------------
// Test: totality
// ---------------------------------------------------------------------------
func TestEmptySource(t *testing.T) {
	prog := mustParse(t, "")
	if len(prog.Declarations) != 0 {
		t.Errorf("declarations = %d, want 0", len(prog.Declarations))
	}
}

func TestProgramAlwaysReturned(t *testing.T) {
	inputs := []string{
		"}}}}",
		"((((",
		"class",
		"fn",
		"let let let",
		`"unterminated`,
		"@@@@",
	}
	for _, src := range inputs {
		prog, _ := parser.Parse(src)
		if prog == nil {
			t.Errorf("Parse(%q) returned nil program", src)
		}
	}
}
