package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ChernegaSergiy/trypillia-language/pkg/ast"
	"github.com/ChernegaSergiy/trypillia-language/pkg/diagnostics"
	"github.com/ChernegaSergiy/trypillia-language/pkg/lexer"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart  TraceEventType = "run_start"
	TraceRunEnd    TraceEventType = "run_end"
	TraceStmtStart TraceEventType = "stmt_start"
	TraceStmtEnd   TraceEventType = "stmt_end"
	TraceCallStart TraceEventType = "call_start"
	TraceCallEnd   TraceEventType = "call_end"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Line      int            `json:"line,omitempty"`
}

// ExecOptions configures program execution.
type ExecOptions struct {
	Out   io.Writer // output sink for print; defaults to os.Stdout
	Trace func(event TraceEvent)
	RunID string
}

// RuntimeError represents a runtime error during evaluation.
type RuntimeError struct {
	Code    string
	Message string
	Line    int
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diag converts the error to a diagnostic record.
func (e *RuntimeError) Diag() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Line)
}

type evaluator struct {
	ctx  context.Context
	opts ExecOptions
}

// Execute evaluates a program against a fresh global environment. The first
// runtime error unwinds the environment stack and terminates evaluation.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	ev := &evaluator{ctx: ctx, opts: opts}
	globals := NewEnv(nil)

	ev.emit(TraceRunStart, program.NodeLine())
	defer ev.emit(TraceRunEnd, program.NodeLine())

	for _, decl := range program.Declarations {
		if err := ev.execStmt(decl, globals); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) emit(event TraceEventType, line int) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Line:      line,
		})
	}
}

func (ev *evaluator) checkContext(line int) error {
	if ev.ctx != nil && ev.ctx.Err() != nil {
		return &RuntimeError{
			Code:    diagnostics.ECancelled,
			Message: fmt.Sprintf("evaluation cancelled: %s", ev.ctx.Err()),
			Line:    line,
		}
	}
	return nil
}

// --- Statements ---

func (ev *evaluator) execStmt(stmt ast.Stmt, env *Env) error {
	ev.emit(TraceStmtStart, stmt.NodeLine())
	defer ev.emit(TraceStmtEnd, stmt.NodeLine())

	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err := ev.evalExpr(s.Expression, env)
		return err

	case *ast.PrintStmt:
		val, err := ev.evalExpr(s.Expression, env)
		if err != nil {
			return err
		}
		fmt.Fprintf(ev.opts.Out, "%s\n", Stringify(val))
		return nil

	case *ast.VarStmt:
		var val Value = Nil{}
		if s.Initializer != nil {
			v, err := ev.evalExpr(s.Initializer, env)
			if err != nil {
				return err
			}
			val = v
		}
		env.Define(s.Name.Lexeme, val)
		return nil

	case *ast.BlockStmt:
		return ev.execBlock(s.Statements, env.Child())

	case *ast.IfStmt:
		cond, err := ev.evalExpr(s.Condition, env)
		if err != nil {
			return err
		}
		if Truthy(cond) {
			return ev.execStmt(s.Then, env)
		}
		if s.Else != nil {
			return ev.execStmt(s.Else, env)
		}
		return nil

	case *ast.WhileStmt:
		for {
			if err := ev.checkContext(s.NodeLine()); err != nil {
				return err
			}
			cond, err := ev.evalExpr(s.Condition, env)
			if err != nil {
				return err
			}
			if !Truthy(cond) {
				return nil
			}
			if err := ev.execStmt(s.Body, env); err != nil {
				return err
			}
		}

	case *ast.FnDecl:
		env.Define(s.Name, &Function{Decl: s, Closure: env})
		return nil

	case *ast.ClassDecl:
		// Forward-declare the class name so methods can resolve it by name
		// at call time.
		env.Define(s.Name, Nil{})
		methods := make(map[string]*Function, len(s.Methods))
		for _, m := range s.Methods {
			methods[m.Name] = &Function{Decl: m, Closure: env}
		}
		env.Assign(s.Name, &Class{Name: s.Name, Methods: methods})
		return nil

	default:
		return &RuntimeError{
			Code:    diagnostics.EUnsupportedOp,
			Message: fmt.Sprintf("unsupported statement type %s", stmt.Kind()),
			Line:    stmt.NodeLine(),
		}
	}
}

func (ev *evaluator) execBlock(stmts []ast.Stmt, env *Env) error {
	for _, stmt := range stmts {
		if err := ev.execStmt(stmt, env); err != nil {
			return err
		}
	}
	return nil
}

// --- Expressions ---

func (ev *evaluator) evalExpr(expr ast.Expr, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		return evalLiteral(e), nil

	case *ast.VariableExpr:
		val, ok := env.Get(e.Name.Lexeme)
		if !ok {
			return nil, &RuntimeError{
				Code:    diagnostics.EUndefinedVar,
				Message: fmt.Sprintf("undefined variable '%s'", e.Name.Lexeme),
				Line:    e.Name.Line,
			}
		}
		return val, nil

	case *ast.AssignExpr:
		val, err := ev.evalExpr(e.Value, env)
		if err != nil {
			return nil, err
		}
		if !env.Assign(e.Name.Lexeme, val) {
			return nil, &RuntimeError{
				Code:    diagnostics.EUndefinedVar,
				Message: fmt.Sprintf("undefined variable '%s'", e.Name.Lexeme),
				Line:    e.Name.Line,
			}
		}
		return val, nil

	case *ast.BinaryExpr:
		return ev.evalBinary(e, env)

	case *ast.CallExpr:
		return ev.evalCall(e, env)

	default:
		return nil, &RuntimeError{
			Code:    diagnostics.EUnsupportedOp,
			Message: fmt.Sprintf("unsupported expression type %s", expr.Kind()),
			Line:    expr.NodeLine(),
		}
	}
}

func evalLiteral(e *ast.LiteralExpr) Value {
	switch e.Value.Type {
	case lexer.TokNumber:
		num, _ := strconv.ParseFloat(e.Value.Lexeme, 64)
		return Number{Value: num}
	case lexer.TokString:
		return String{Value: e.Value.Lexeme}
	default:
		return Nil{}
	}
}

func (ev *evaluator) evalBinary(e *ast.BinaryExpr, env *Env) (Value, error) {
	left, err := ev.evalExpr(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalExpr(e.Right, env)
	if err != nil {
		return nil, err
	}

	switch e.Op.Type {
	case lexer.TokPlus:
		if lNum, ok := left.(Number); ok {
			if rNum, ok := right.(Number); ok {
				return Number{Value: lNum.Value + rNum.Value}, nil
			}
		}
		if lStr, ok := left.(String); ok {
			if rStr, ok := right.(String); ok {
				return String{Value: lStr.Value + rStr.Value}, nil
			}
		}
		return nil, &RuntimeError{
			Code:    diagnostics.ETypeMismatch,
			Message: "operator '+' requires two numbers or two strings",
			Line:    e.Op.Line,
		}

	case lexer.TokMinus, lexer.TokStar, lexer.TokSlash:
		lNum, lOk := left.(Number)
		rNum, rOk := right.(Number)
		if !lOk || !rOk {
			return nil, &RuntimeError{
				Code:    diagnostics.ETypeMismatch,
				Message: fmt.Sprintf("operator '%s' requires two numbers", e.Op.Lexeme),
				Line:    e.Op.Line,
			}
		}
		switch e.Op.Type {
		case lexer.TokMinus:
			return Number{Value: lNum.Value - rNum.Value}, nil
		case lexer.TokStar:
			return Number{Value: lNum.Value * rNum.Value}, nil
		default:
			if rNum.Value == 0 {
				return nil, &RuntimeError{
					Code:    diagnostics.EDivisionByZero,
					Message: "division by zero",
					Line:    e.Op.Line,
				}
			}
			return Number{Value: lNum.Value / rNum.Value}, nil
		}

	default:
		// Comparison and equality tokens are lexed and reserved but carry no
		// evaluation semantics yet.
		return nil, &RuntimeError{
			Code:    diagnostics.EUnsupportedOp,
			Message: fmt.Sprintf("operator '%s' is not supported", e.Op.Lexeme),
			Line:    e.Op.Line,
		}
	}
}

func (ev *evaluator) evalCall(e *ast.CallExpr, env *Env) (Value, error) {
	callee, err := ev.evalExpr(e.Callee, env)
	if err != nil {
		return nil, err
	}

	args := make([]Value, 0, len(e.Arguments))
	for _, argExpr := range e.Arguments {
		arg, err := ev.evalExpr(argExpr, env)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	switch c := callee.(type) {
	case *Function:
		return ev.callFunction(c, args, e.Paren.Line)
	case *Class:
		return ev.instantiate(c, args, e.Paren.Line)
	default:
		return nil, &RuntimeError{
			Code:    diagnostics.ENotCallable,
			Message: "can only call functions and classes",
			Line:    e.Paren.Line,
		}
	}
}

// callFunction binds arguments in a fresh environment enclosed by the
// function's closure and executes the body. Calls yield nil; no explicit
// return is modeled.
func (ev *evaluator) callFunction(fn *Function, args []Value, line int) (Value, error) {
	if len(args) != fn.Arity() {
		return nil, &RuntimeError{
			Code:    diagnostics.EArityMismatch,
			Message: fmt.Sprintf("'%s' expects %d arguments, got %d", fn.Decl.Name, fn.Arity(), len(args)),
			Line:    line,
		}
	}

	ev.emit(TraceCallStart, line)
	defer ev.emit(TraceCallEnd, line)

	env := NewEnv(fn.Closure)
	for i, param := range fn.Decl.Params {
		env.Define(param, args[i])
	}
	if err := ev.execBlock(fn.Decl.Body, env); err != nil {
		return nil, err
	}
	return Nil{}, nil
}

// instantiate constructs an instance, running init for its side effects when
// the class declares one.
func (ev *evaluator) instantiate(class *Class, args []Value, line int) (Value, error) {
	if len(args) != class.Arity() {
		return nil, &RuntimeError{
			Code:    diagnostics.EArityMismatch,
			Message: fmt.Sprintf("'%s' expects %d arguments, got %d", class.Name, class.Arity(), len(args)),
			Line:    line,
		}
	}

	instance := &Instance{Class: class, Fields: make(map[string]Value)}
	if init := class.Init(); init != nil {
		if _, err := ev.callFunction(init, args, line); err != nil {
			return nil, err
		}
	}
	return instance, nil
}
