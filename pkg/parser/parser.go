// Package parser implements the Trypillia language parser.
//
// The parser is recursive-descent with one token of look-ahead, pulling
// tokens from the lexer on demand. On a parse error it reports a diagnostic,
// discards tokens up to a statement boundary, and resumes at the top-level
// declaration production, so a Program is always returned.
package parser

import (
	"errors"
	"fmt"

	"github.com/ChernegaSergiy/trypillia-language/pkg/ast"
	"github.com/ChernegaSergiy/trypillia-language/pkg/diagnostics"
	"github.com/ChernegaSergiy/trypillia-language/pkg/lexer"
)

// errBadParse signals that a diagnostic has been recorded and the caller
// should synchronize. The diagnostic itself lives in the parser's diag list.
var errBadParse = errors.New("parse error")

type parser struct {
	scanner *lexer.Scanner
	current lexer.Token
	diags   []diagnostics.Diagnostic
}

// Parse tokenizes and parses source into a Program. The Program is always
// non-nil, even when diagnostics were reported; declarations that failed to
// parse are absent from it, while an invalid assignment target is reported
// and its left-hand expression kept.
func Parse(source string) (*ast.Program, []diagnostics.Diagnostic) {
	p := &parser{scanner: lexer.New(source)}
	p.advance() // pull the first token
	prog := p.parseProgram()
	return prog, p.diags
}

func (p *parser) advance() lexer.Token {
	prev := p.current
	p.current = p.scanner.Next()
	return prev
}

func (p *parser) check(typ lexer.TokenType) bool {
	return p.current.Type == typ
}

func (p *parser) match(types ...lexer.TokenType) bool {
	for _, typ := range types {
		if p.current.Type == typ {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) consume(typ lexer.TokenType) (lexer.Token, error) {
	if p.current.Type == typ {
		return p.advance(), nil
	}
	return p.current, p.errorAtCurrent(fmt.Sprintf("expected %s, got %s", tokenName(typ), describe(p.current)))
}

// errorAtCurrent records a diagnostic for the current token, classifying
// unknown tokens by their lexical cause.
func (p *parser) errorAtCurrent(msg string) error {
	if p.current.Type == lexer.TokUnknown {
		if p.current.Lexeme == "" {
			return p.addError(diagnostics.EUnterminatedString, "unterminated string literal", p.current.Line)
		}
		return p.addError(diagnostics.EUnknownChar, fmt.Sprintf("unknown character '%s'", p.current.Lexeme), p.current.Line)
	}
	return p.addError(diagnostics.EUnexpectedToken, msg, p.current.Line)
}

func (p *parser) addError(code, msg string, line int) error {
	p.diags = append(p.diags, diagnostics.MakeDiag(code, msg, line))
	return errBadParse
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokLParen:
		return "'('"
	case lexer.TokRParen:
		return "')'"
	case lexer.TokLBrace:
		return "'{'"
	case lexer.TokRBrace:
		return "'}'"
	case lexer.TokComma:
		return "','"
	case lexer.TokSemicolon:
		return "';'"
	case lexer.TokAssign:
		return "'='"
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokNumber:
		return "number"
	case lexer.TokString:
		return "string"
	case lexer.TokEOF:
		return "end of file"
	default:
		return fmt.Sprintf("token(%d)", t)
	}
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.TokEOF {
		return "end of file"
	}
	return fmt.Sprintf("'%s'", tok.Lexeme)
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	var decls []ast.Stmt
	for !p.check(lexer.TokEOF) {
		decl, err := p.declaration()
		if err != nil {
			p.synchronize()
			continue
		}
		decls = append(decls, decl)
	}
	return &ast.Program{Declarations: decls}
}

// synchronize discards tokens until it consumes a ';' or stops in front of
// one of the keywords class, fn, let, if, while, or print.
func (p *parser) synchronize() {
	p.advance()

	for !p.check(lexer.TokEOF) {
		if p.current.Type == lexer.TokSemicolon {
			p.advance()
			return
		}
		switch p.current.Type {
		case lexer.TokClass, lexer.TokFn, lexer.TokLet,
			lexer.TokIf, lexer.TokWhile, lexer.TokPrint:
			return
		}
		p.advance()
	}
}

// --- Declarations ---

func (p *parser) declaration() (ast.Stmt, error) {
	switch p.current.Type {
	case lexer.TokClass:
		return p.classDecl()
	case lexer.TokFn:
		p.advance()
		return p.fnDecl()
	case lexer.TokLet:
		return p.varDecl()
	default:
		return p.statement()
	}
}

func (p *parser) classDecl() (ast.Stmt, error) {
	keyword := p.advance() // consume 'class'

	name, err := p.consume(lexer.TokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokLBrace); err != nil {
		return nil, err
	}

	var methods []*ast.FnDecl
	for !p.check(lexer.TokRBrace) && !p.check(lexer.TokEOF) {
		if p.check(lexer.TokFn) {
			p.advance()
			method, err := p.fnDecl()
			if err != nil {
				return nil, err
			}
			methods = append(methods, method)
		} else {
			// Only fn introductions contribute methods; skip anything else.
			p.advance()
		}
	}

	if _, err := p.consume(lexer.TokRBrace); err != nil {
		return nil, err
	}

	return &ast.ClassDecl{Line: keyword.Line, Name: name.Lexeme, Methods: methods}, nil
}

// fnDecl parses a function declaration after the 'fn' keyword has been
// consumed.
func (p *parser) fnDecl() (*ast.FnDecl, error) {
	name, err := p.consume(lexer.TokIdent)
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(lexer.TokLParen); err != nil {
		return nil, err
	}
	var params []string
	if !p.check(lexer.TokRParen) {
		for {
			param, err := p.consume(lexer.TokIdent)
			if err != nil {
				return nil, err
			}
			params = append(params, param.Lexeme)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	if _, err := p.consume(lexer.TokRParen); err != nil {
		return nil, err
	}

	if _, err := p.consume(lexer.TokLBrace); err != nil {
		return nil, err
	}
	var body []ast.Stmt
	for !p.check(lexer.TokRBrace) && !p.check(lexer.TokEOF) {
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	if _, err := p.consume(lexer.TokRBrace); err != nil {
		return nil, err
	}

	return &ast.FnDecl{Line: name.Line, Name: name.Lexeme, Params: params, Body: body}, nil
}

func (p *parser) varDecl() (ast.Stmt, error) {
	p.advance() // consume 'let'

	name, err := p.consume(lexer.TokIdent)
	if err != nil {
		return nil, err
	}

	var initializer ast.Expr
	if p.match(lexer.TokAssign) {
		initializer, err = p.expression()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.consume(lexer.TokSemicolon); err != nil {
		return nil, err
	}

	return &ast.VarStmt{Name: name, Initializer: initializer}, nil
}

// --- Statements ---

func (p *parser) statement() (ast.Stmt, error) {
	switch p.current.Type {
	case lexer.TokIf:
		p.advance()
		return p.ifStatement()
	case lexer.TokWhile:
		p.advance()
		return p.whileStatement()
	case lexer.TokPrint:
		p.advance()
		return p.printStatement()
	case lexer.TokLBrace:
		return p.block()
	default:
		return p.expressionStatement()
	}
}

func (p *parser) ifStatement() (ast.Stmt, error) {
	if _, err := p.consume(lexer.TokLParen); err != nil {
		return nil, err
	}
	condition, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokRParen); err != nil {
		return nil, err
	}

	then, err := p.statement()
	if err != nil {
		return nil, err
	}

	var elseBranch ast.Stmt
	if p.match(lexer.TokElse) {
		elseBranch, err = p.statement()
		if err != nil {
			return nil, err
		}
	}

	return &ast.IfStmt{Condition: condition, Then: then, Else: elseBranch}, nil
}

func (p *parser) whileStatement() (ast.Stmt, error) {
	if _, err := p.consume(lexer.TokLParen); err != nil {
		return nil, err
	}
	condition, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokRParen); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}

	return &ast.WhileStmt{Condition: condition, Body: body}, nil
}

func (p *parser) printStatement() (ast.Stmt, error) {
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokSemicolon); err != nil {
		return nil, err
	}
	return &ast.PrintStmt{Expression: value}, nil
}

func (p *parser) block() (ast.Stmt, error) {
	brace := p.advance() // consume '{'

	var statements []ast.Stmt
	for !p.check(lexer.TokRBrace) && !p.check(lexer.TokEOF) {
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	if _, err := p.consume(lexer.TokRBrace); err != nil {
		return nil, err
	}

	return &ast.BlockStmt{Line: brace.Line, Statements: statements}, nil
}

func (p *parser) expressionStatement() (ast.Stmt, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokSemicolon); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Expression: expr}, nil
}

// --- Expressions (precedence low to high) ---

func (p *parser) expression() (ast.Expr, error) {
	return p.assignment()
}

// assignment is right-associative. An invalid target is reported but parsing
// continues with the left-hand expression.
func (p *parser) assignment() (ast.Expr, error) {
	expr, err := p.equality()
	if err != nil {
		return nil, err
	}

	if p.check(lexer.TokAssign) {
		equals := p.advance()
		value, err := p.assignment()
		if err != nil {
			return nil, err
		}

		if variable, ok := expr.(*ast.VariableExpr); ok {
			return &ast.AssignExpr{Name: variable.Name, Value: value}, nil
		}

		p.diags = append(p.diags, diagnostics.MakeDiag(
			diagnostics.EInvalidAssign, "invalid assignment target", equals.Line))
	}

	return expr, nil
}

// equality operators are recognized by the lexer but carry no grammar
// production yet; the level passes through.
func (p *parser) equality() (ast.Expr, error) {
	return p.comparison()
}

// comparison operators pass through likewise.
func (p *parser) comparison() (ast.Expr, error) {
	return p.term()
}

func (p *parser) term() (ast.Expr, error) {
	expr, err := p.factor()
	if err != nil {
		return nil, err
	}

	for p.check(lexer.TokPlus) || p.check(lexer.TokMinus) {
		op := p.advance()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		expr = &ast.BinaryExpr{Left: expr, Op: op, Right: right}
	}

	return expr, nil
}

func (p *parser) factor() (ast.Expr, error) {
	expr, err := p.unary()
	if err != nil {
		return nil, err
	}

	for p.check(lexer.TokStar) || p.check(lexer.TokSlash) {
		op := p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		expr = &ast.BinaryExpr{Left: expr, Op: op, Right: right}
	}

	return expr, nil
}

func (p *parser) unary() (ast.Expr, error) {
	// No unary operators in the grammar; fall through to call.
	return p.call()
}

func (p *parser) call() (ast.Expr, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}

	for p.match(lexer.TokLParen) {
		expr, err = p.finishCall(expr)
		if err != nil {
			return nil, err
		}
	}

	return expr, nil
}

func (p *parser) finishCall(callee ast.Expr) (ast.Expr, error) {
	var arguments []ast.Expr
	if !p.check(lexer.TokRParen) {
		for {
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			arguments = append(arguments, arg)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}

	paren, err := p.consume(lexer.TokRParen)
	if err != nil {
		return nil, err
	}

	return &ast.CallExpr{Callee: callee, Paren: paren, Arguments: arguments}, nil
}

func (p *parser) primary() (ast.Expr, error) {
	switch p.current.Type {
	case lexer.TokNumber, lexer.TokString:
		tok := p.advance()
		return &ast.LiteralExpr{Value: tok}, nil

	case lexer.TokIdent:
		tok := p.advance()
		return &ast.VariableExpr{Name: tok}, nil

	case lexer.TokLParen:
		p.advance()
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.TokRParen); err != nil {
			return nil, err
		}
		return expr, nil

	case lexer.TokUnknown:
		return nil, p.errorAtCurrent("")

	default:
		return nil, p.addError(diagnostics.EExpectedExpr,
			fmt.Sprintf("expected expression, got %s", describe(p.current)), p.current.Line)
	}
}
