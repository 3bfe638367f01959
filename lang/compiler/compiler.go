// Package compiler lowers nymphea source text to bytecode in a single pass:
// a recursive-descent statement parser wrapped around a Pratt expression
// parser that emits instructions as it goes, with no intermediate tree.
// Lexical scope resolution, upvalue capture across nested functions and
// class/method binding all happen during that same pass.
package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/nymphea/lang/bytecode"
	"github.com/mna/nymphea/lang/scanner"
	"github.com/mna/nymphea/lang/token"
	"github.com/mna/nymphea/lang/types"
)

const (
	localsMax    = 256
	upvaluesMax  = 256
	constantsMax = 256
	paramsMax    = 255
	argsMax      = 255
	jumpMax      = 0xffff
)

// Error is the accumulated list of compile diagnostics. Compilation always
// proceeds to the end of input; success is the absence of diagnostics.
type Error struct {
	Diagnostics []string
}

func (e *Error) Error() string {
	return strings.Join(e.Diagnostics, "\n")
}

// Compile compiles source and returns the top-level function. Interned
// strings and functions created during compilation are allocated on heap;
// the compiler roots its in-progress functions for the duration of the
// call, and the caller must root the returned function before running it.
func Compile(source string, heap *types.Heap, interner *types.Interner) (*types.ObjFunction, error) {
	var s scanner.Scanner
	s.Init(source)

	p := &parser{
		scanner:  &s,
		heap:     heap,
		interner: interner,
	}
	heap.AddRoots(p)
	defer heap.RemoveRoots(p)

	p.newCompiler(kindScript, "")
	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	fn, _ := p.endCompiler()

	if len(p.diags) > 0 {
		return nil, &Error{Diagnostics: p.diags}
	}
	return fn, nil
}

type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precRange
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

// rules is indexed by token kind. Assigned in init to break the
// initialization cycle between the handlers and the table.
var rules []parseRule

func init() {
	rules = make([]parseRule, token.NumTokens())
	rules[token.LPAREN] = parseRule{grouping, callExpr, precCall}
	rules[token.LBRACK] = parseRule{vector, index, precCall}
	rules[token.DOT] = parseRule{nil, dot, precCall}
	rules[token.DOTDOT] = parseRule{nil, rangeExpr, precRange}
	rules[token.MINUS] = parseRule{unary, binary, precTerm}
	rules[token.PLUS] = parseRule{nil, binary, precTerm}
	rules[token.SLASH] = parseRule{nil, binary, precFactor}
	rules[token.STAR] = parseRule{nil, binary, precFactor}
	rules[token.BANG] = parseRule{unary, nil, precNone}
	rules[token.BANGEQ] = parseRule{nil, binary, precEquality}
	rules[token.EQEQ] = parseRule{nil, binary, precEquality}
	rules[token.GT] = parseRule{nil, binary, precComparison}
	rules[token.GE] = parseRule{nil, binary, precComparison}
	rules[token.LT] = parseRule{nil, binary, precComparison}
	rules[token.LE] = parseRule{nil, binary, precComparison}
	rules[token.IDENT] = parseRule{variable, nil, precNone}
	rules[token.NUMBER] = parseRule{number, nil, precNone}
	rules[token.STRING] = parseRule{stringLit, nil, precNone}
	rules[token.INTERP] = parseRule{interpolation, nil, precNone}
	rules[token.AND] = parseRule{nil, andExpr, precAnd}
	rules[token.OR] = parseRule{nil, orExpr, precOr}
	rules[token.TRUE] = parseRule{literal, nil, precNone}
	rules[token.FALSE] = parseRule{literal, nil, precNone}
	rules[token.NIL] = parseRule{literal, nil, precNone}
	rules[token.SUPER] = parseRule{superExpr, nil, precNone}
	rules[token.THIS] = parseRule{thisExpr, nil, precNone}
}

func getRule(kind token.Token) *parseRule {
	return &rules[kind]
}

type funcKind int

const (
	kindScript funcKind = iota
	kindFunction
	kindMethod
	kindInitialiser
)

type local struct {
	name       string
	depth      int // -1 while the initialiser has not completed
	canAssign  bool
	isCaptured bool
}

type upvalue struct {
	index   byte
	isLocal bool
}

// fnCompiler is the per-function compilation frame: the function being
// built, its locals, captured upvalues and current scope depth.
type fnCompiler struct {
	function   *types.ObjFunction
	kind       funcKind
	locals     []local
	upvalues   []upvalue
	scopeDepth int
}

type classCompiler struct {
	hasSuperclass bool
}

type parser struct {
	scanner  *scanner.Scanner
	current  scanner.Tok
	previous scanner.Tok

	panicMode    bool
	singleTarget bool

	compilers      []*fnCompiler
	classCompilers []classCompiler
	diags          []string

	heap     *types.Heap
	interner *types.Interner
}

// TraceRoots pins the functions still under construction; everything they
// reference hangs off their constant pools.
func (p *parser) TraceRoots(mark func(types.Obj)) {
	for _, c := range p.compilers {
		mark(c.function)
	}
}

func (p *parser) compiler() *fnCompiler {
	return p.compilers[len(p.compilers)-1]
}

func (p *parser) chunk() *types.Chunk {
	return &p.compiler().function.Chunk
}

func (p *parser) newCompiler(kind funcKind, name string) {
	fn := types.NewFunction(p.heap, p.interner.Intern(name))
	c := &fnCompiler{function: fn, kind: kind}
	// slot zero holds the callee; in methods it is the receiver, exposed as
	// the read-only local "this".
	slot0 := local{depth: 0, canAssign: true}
	if kind == kindMethod || kind == kindInitialiser {
		slot0.name = "this"
		slot0.canAssign = false
	}
	c.locals = append(c.locals, slot0)
	p.compilers = append(p.compilers, c)
}

func (p *parser) endCompiler() (*types.ObjFunction, *fnCompiler) {
	p.emitReturn()
	c := p.compiler()
	c.function.UpvalueCount = len(c.upvalues)
	p.compilers = p.compilers[:len(p.compilers)-1]
	return c.function, c
}

// ----- token plumbing -----

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scanner.Scan()
		if p.current.Kind != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.current.Lit)
	}
}

func (p *parser) consume(kind token.Token, msg string) {
	if p.current.Kind == kind {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parser) check(kind token.Token) bool {
	return p.current.Kind == kind
}

func (p *parser) match(kind token.Token) bool {
	if !p.check(kind) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) matchCompoundAssign() bool {
	return p.match(token.PLUSEQ) || p.match(token.MINUSEQ) ||
		p.match(token.STAREQ) || p.match(token.SLASHEQ)
}

// ----- diagnostics -----

func (p *parser) errorAtCurrent(msg string) {
	p.errorAt(p.current, msg)
}

func (p *parser) error(msg string) {
	p.errorAt(p.previous, msg)
}

func (p *parser) errorAt(tok scanner.Tok, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	var sb strings.Builder
	fmt.Fprintf(&sb, "[line %d] Error", tok.Line)
	switch tok.Kind {
	case token.EOF:
		sb.WriteString(" at end")
	case token.ILLEGAL:
		// the message already describes the lexeme
	default:
		fmt.Fprintf(&sb, " at '%s'", tok.Lit)
	}
	fmt.Fprintf(&sb, ": %s", msg)
	p.diags = append(p.diags, sb.String())
}

func (p *parser) synchronise() {
	p.panicMode = false
	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.SEMI {
			return
		}
		switch p.current.Kind {
		case token.CLASS, token.FN, token.VAR, token.FOR,
			token.IF, token.WHILE, token.RETURN:
			return
		}
		p.advance()
	}
}

// ----- emission -----

func (p *parser) emitByte(b byte) {
	p.chunk().Write(b, p.previous.Line)
}

func (p *parser) emitOp(op bytecode.Opcode) {
	p.emitByte(byte(op))
}

func (p *parser) emitOps(op bytecode.Opcode, operand byte) {
	p.emitByte(byte(op))
	p.emitByte(operand)
}

func (p *parser) emitLoop(loopStart int) {
	p.emitOp(bytecode.LOOP)
	offset := len(p.chunk().Code) - loopStart + 2
	if offset > jumpMax {
		p.error("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

func (p *parser) emitJump(op bytecode.Opcode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 2
}

func (p *parser) patchJump(offset int) {
	jump := len(p.chunk().Code) - offset - 2
	if jump > jumpMax {
		p.error("Too much code to jump over.")
	}
	p.chunk().Code[offset] = byte(jump >> 8)
	p.chunk().Code[offset+1] = byte(jump)
}

func (p *parser) emitReturn() {
	if p.compiler().kind == kindInitialiser {
		p.emitOps(bytecode.GETLOCAL, 0)
	} else {
		p.emitOp(bytecode.NIL)
	}
	p.emitOp(bytecode.RETURN)
}

func (p *parser) makeConstant(v types.Value) byte {
	constant := p.chunk().AddConstant(v)
	if constant >= constantsMax {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(constant)
}

func (p *parser) emitConstant(v types.Value) {
	p.emitOps(bytecode.CONSTANT, p.makeConstant(v))
}

func (p *parser) identifierConstant(name string) byte {
	return p.makeConstant(p.interner.Intern(name))
}

// ----- declarations and statements -----

func (p *parser) declaration() {
	if p.match(token.CLASS) {
		p.classDeclaration()
	} else if p.match(token.FN) {
		p.fnDeclaration()
	} else if p.match(token.VAR) {
		p.varDeclaration()
	} else {
		p.statement()
	}

	if p.panicMode {
		p.synchronise()
	}
}

func (p *parser) statement() {
	if p.match(token.FOR) {
		p.forStatement()
	} else if p.match(token.IF) {
		p.ifStatement()
	} else if p.match(token.RETURN) {
		p.returnStatement()
	} else if p.match(token.WHILE) {
		p.whileStatement()
	} else if p.match(token.LBRACE) {
		p.beginScope()
		p.block()
		p.endScope()
	} else {
		p.expressionStatement()
	}
}

func (p *parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "Expected '}' after block.")
}

func (p *parser) beginScope() {
	p.compiler().scopeDepth++
}

func (p *parser) endScope() {
	c := p.compiler()
	c.scopeDepth--
	for len(c.locals) > 0 {
		l := &c.locals[len(c.locals)-1]
		if l.depth <= c.scopeDepth {
			return
		}
		if l.isCaptured {
			p.emitOp(bytecode.CLOSEUPVAL)
		} else {
			p.emitOp(bytecode.POP)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("Expected variable name.")
	if p.match(token.EQ) {
		p.expression()
	} else {
		p.emitOp(bytecode.NIL)
	}
	p.consume(token.SEMI, "Expected ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *parser) fnDeclaration() {
	global := p.parseVariable("Expected function name.")
	p.markInitialised()
	p.function(kindFunction)
	p.defineVariable(global)
}

func (p *parser) classDeclaration() {
	p.consume(token.IDENT, "Expected class name.")
	nameTok := p.previous
	nameConstant := p.identifierConstant(nameTok.Lit)
	p.declareVariable()

	p.emitOps(bytecode.CLASS, nameConstant)
	p.defineVariable(nameConstant)

	p.classCompilers = append(p.classCompilers, classCompiler{})

	if p.match(token.LT) {
		p.consume(token.IDENT, "Expected superclass name.")
		variable(p, false)

		if nameTok.Lit == p.previous.Lit {
			p.error("A class cannot inherit from itself.")
		}

		// a scope binding the superclass value to the synthetic local
		// "super" wraps the method bodies so they can capture it.
		p.beginScope()
		p.addLocal("super")
		p.defineVariable(0)

		p.namedVariable(nameTok.Lit, false)
		p.emitOp(bytecode.INHERIT)
		p.classCompilers[len(p.classCompilers)-1].hasSuperclass = true
	}

	p.namedVariable(nameTok.Lit, false)
	p.consume(token.LBRACE, "Expected '{' before class body.")
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RBRACE, "Expected '}' after class body.")
	p.emitOp(bytecode.POP)

	if p.classCompilers[len(p.classCompilers)-1].hasSuperclass {
		p.endScope()
	}
	p.classCompilers = p.classCompilers[:len(p.classCompilers)-1]
}

func (p *parser) method() {
	p.consume(token.FN, "Expected 'fn' before method name.")
	p.consume(token.IDENT, "Expected method name.")
	constant := p.identifierConstant(p.previous.Lit)

	kind := kindMethod
	if p.previous.Lit == "init" {
		kind = kindInitialiser
	}
	p.function(kind)
	p.emitOps(bytecode.METHOD, constant)
}

func (p *parser) function(kind funcKind) {
	name := p.previous.Lit
	p.newCompiler(kind, name)
	p.beginScope()

	p.consume(token.LPAREN, "Expected '(' after function name.")
	if !p.check(token.RPAREN) {
		for {
			p.compiler().function.Arity++
			if p.compiler().function.Arity > paramsMax {
				p.errorAtCurrent("Cannot have more than 255 parameters.")
			}
			constant := p.parseVariable("Expected parameter name.")
			p.defineVariable(constant)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expected ')' after parameters.")

	p.consume(token.LBRACE, "Expected '{' before function body.")
	p.block()

	fn, c := p.endCompiler()
	constant := p.makeConstant(fn)
	p.emitOps(bytecode.CLOSURE, constant)
	for _, uv := range c.upvalues {
		if uv.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(uv.index)
	}
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMI, "Expected ';' after expression.")
	p.emitOp(bytecode.POP)
}

func (p *parser) ifStatement() {
	p.consume(token.LPAREN, "Expected '(' after 'if'.")
	p.expression()
	p.consume(token.RPAREN, "Expected ')' after condition.")

	thenJump := p.emitJump(bytecode.JUMPIFFALSE)
	p.emitOp(bytecode.POP)
	p.statement()

	elseJump := p.emitJump(bytecode.JUMP)
	p.patchJump(thenJump)
	p.emitOp(bytecode.POP)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.chunk().Code)

	p.consume(token.LPAREN, "Expected '(' after 'while'.")
	p.expression()
	p.consume(token.RPAREN, "Expected ')' after condition.")

	exitJump := p.emitJump(bytecode.JUMPIFFALSE)
	p.emitOp(bytecode.POP)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(bytecode.POP)
}

func (p *parser) forStatement() {
	p.beginScope()

	p.consume(token.LPAREN, "Expected '(' after 'for'.")
	loopVarSlot := -1
	loopVarName := ""
	if p.match(token.SEMI) {
		// no initialiser
	} else if p.match(token.VAR) {
		p.varDeclaration()
		c := p.compiler()
		loopVarSlot = len(c.locals) - 1
		loopVarName = c.locals[loopVarSlot].name
	} else {
		p.expressionStatement()
	}

	loopStart := len(p.chunk().Code)
	exitJump := -1
	if !p.match(token.SEMI) {
		p.expression()
		p.consume(token.SEMI, "Expected ';' after loop condition.")
		exitJump = p.emitJump(bytecode.JUMPIFFALSE)
		p.emitOp(bytecode.POP)
	}

	if !p.match(token.RPAREN) {
		bodyJump := p.emitJump(bytecode.JUMP)
		incrementStart := len(p.chunk().Code)
		p.expression()
		p.emitOp(bytecode.POP)
		p.consume(token.RPAREN, "Expected ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	if loopVarSlot >= 0 {
		// give the body a fresh binding of the loop variable each iteration
		// so closures capture that iteration's value; the final value is
		// copied back before the increment runs.
		p.beginScope()
		p.emitOps(bytecode.GETLOCAL, byte(loopVarSlot))
		p.addLocal(loopVarName)
		p.markInitialised()
		c := p.compiler()
		innerSlot := len(c.locals) - 1
		p.statement()
		p.emitOps(bytecode.GETLOCAL, byte(innerSlot))
		p.emitOps(bytecode.SETLOCAL, byte(loopVarSlot))
		p.emitOp(bytecode.POP)
		p.endScope()
	} else {
		p.statement()
	}

	p.emitLoop(loopStart)

	if exitJump >= 0 {
		p.patchJump(exitJump)
		p.emitOp(bytecode.POP)
	}
	p.endScope()
}

func (p *parser) returnStatement() {
	if p.compiler().kind == kindScript {
		p.error("Cannot return from top-level code.")
	}
	if p.match(token.SEMI) {
		p.emitReturn()
		return
	}
	if p.compiler().kind == kindInitialiser {
		p.error("Cannot return a value from an initialiser.")
	}
	p.expression()
	p.consume(token.SEMI, "Expected ';' after return value.")
	p.emitOp(bytecode.RETURN)
}

// ----- variables and scopes -----

func (p *parser) parseVariable(errMsg string) byte {
	p.consume(token.IDENT, errMsg)
	p.declareVariable()
	if p.compiler().scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous.Lit)
}

func (p *parser) declareVariable() {
	c := p.compiler()
	if c.scopeDepth == 0 {
		return
	}
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if p.previous.Lit == l.name {
			p.error("Variable with this name already declared in this scope.")
		}
	}
	p.addLocal(p.previous.Lit)
}

func (p *parser) addLocal(name string) {
	c := p.compiler()
	if len(c.locals) == localsMax {
		p.error("Too many variables in function.")
		return
	}
	c.locals = append(c.locals, local{name: name, depth: -1, canAssign: true})
}

func (p *parser) markInitialised() {
	c := p.compiler()
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

func (p *parser) defineVariable(global byte) {
	if p.compiler().scopeDepth > 0 {
		p.markInitialised()
		return
	}
	p.emitOps(bytecode.DEFGLOBAL, global)
}

// resolveLocal looks the name up in the given frame's locals, innermost
// first. The second result distinguishes "not found" from slot zero.
func (p *parser) resolveLocal(c *fnCompiler, name string) (int, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.name == name {
			if l.depth == -1 {
				p.error("Cannot read local variable in its own initialiser.")
			}
			return i, true
		}
	}
	return 0, false
}

func (p *parser) addUpvalue(c *fnCompiler, index byte, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) == upvaluesMax {
		p.error("Too many closure variables in function.")
		return 0
	}
	c.upvalues = append(c.upvalues, upvalue{index: index, isLocal: isLocal})
	return len(c.upvalues) - 1
}

// resolveUpvalue walks the enclosing frames looking for name; when a local
// is found it is marked captured and an upvalue entry is threaded through
// every frame between it and the current one.
func (p *parser) resolveUpvalue(name string) (int, bool, bool) {
	if len(p.compilers) < 2 {
		return 0, false, false
	}
	for enclosing := len(p.compilers) - 2; enclosing >= 0; enclosing-- {
		c := p.compilers[enclosing]
		slot, ok := p.resolveLocal(c, name)
		if !ok {
			continue
		}
		c.locals[slot].isCaptured = true
		canAssign := c.locals[slot].canAssign
		index := slot
		for ci := enclosing + 1; ci < len(p.compilers); ci++ {
			index = p.addUpvalue(p.compilers[ci], byte(index), ci == enclosing+1)
		}
		return index, true, canAssign
	}
	return 0, false, false
}

func (p *parser) namedVariable(name string, canAssign bool) {
	var getOp, setOp bytecode.Opcode
	var arg byte

	if slot, ok := p.resolveLocal(p.compiler(), name); ok {
		getOp, setOp = bytecode.GETLOCAL, bytecode.SETLOCAL
		arg = byte(slot)
		canAssign = canAssign && p.compiler().locals[slot].canAssign
	} else if index, ok, assignable := p.resolveUpvalue(name); ok {
		getOp, setOp = bytecode.GETUPVAL, bytecode.SETUPVAL
		arg = byte(index)
		canAssign = canAssign && assignable
	} else {
		getOp, setOp = bytecode.GETGLOBAL, bytecode.SETGLOBAL
		arg = p.identifierConstant(name)
	}

	if canAssign && p.match(token.EQ) {
		p.expression()
		p.emitOps(setOp, arg)
	} else if canAssign && p.matchCompoundAssign() {
		p.binaryAssign(getOp, arg)
		p.emitOps(setOp, arg)
	} else {
		p.emitOps(getOp, arg)
	}
}

// binaryAssign desugars a compound assignment into load, rhs, operate; the
// caller emits the store. The right-hand side is parsed in single-target
// mode so a nested assignment cannot sneak in.
func (p *parser) binaryAssign(getOp bytecode.Opcode, arg byte) {
	opKind := p.previous.Kind
	p.emitOps(getOp, arg)
	p.singleTarget = true
	p.expression()
	p.singleTarget = false
	switch opKind {
	case token.PLUSEQ:
		p.emitOp(bytecode.ADD)
	case token.MINUSEQ:
		p.emitOp(bytecode.SUBTRACT)
	case token.STAREQ:
		p.emitOp(bytecode.MULTIPLY)
	case token.SLASHEQ:
		p.emitOp(bytecode.DIVIDE)
	}
}

// ----- expressions -----

func (p *parser) expression() {
	prec := precAssignment
	if p.singleTarget {
		prec = precTerm
	}
	p.parsePrecedence(prec)
}

func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	prefix := getRule(p.previous.Kind).prefix
	canAssign := prec <= precAssignment

	if prefix == nil {
		p.error("Expected expression.")
		return
	}
	prefix(p, canAssign)

	for prec <= getRule(p.current.Kind).prec {
		p.advance()
		infix := getRule(p.previous.Kind).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQ) {
		p.error("Invalid assignment target.")
	}
}

func (p *parser) argumentList(rightDelim token.Token, countMsg, delimMsg string) byte {
	argCount := 0
	if !p.check(rightDelim) {
		for {
			p.expression()
			if argCount == argsMax {
				p.error(countMsg)
			}
			argCount++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(rightDelim, delimMsg)
	return byte(argCount)
}

func grouping(p *parser, _ bool) {
	p.expression()
	p.consume(token.RPAREN, "Expected ')' after expression.")
}

func callExpr(p *parser, _ bool) {
	argCount := p.argumentList(
		token.RPAREN,
		"Cannot have more than 255 arguments.",
		"Expected ')' after arguments.",
	)
	p.emitOps(bytecode.CALL, argCount)
}

func dot(p *parser, canAssign bool) {
	p.consume(token.IDENT, "Expected property name after '.'.")
	name := p.identifierConstant(p.previous.Lit)

	if canAssign && p.match(token.EQ) {
		p.expression()
		p.emitOps(bytecode.SETPROP, name)
	} else if p.match(token.LPAREN) {
		argCount := p.argumentList(
			token.RPAREN,
			"Cannot have more than 255 arguments.",
			"Expected ')' after arguments.",
		)
		p.emitOps(bytecode.INVOKE, name)
		p.emitByte(argCount)
	} else {
		p.emitOps(bytecode.GETPROP, name)
	}
}

func index(p *parser, canAssign bool) {
	p.expression()
	p.consume(token.RBRACK, "Expected ']' after index.")

	if canAssign && p.match(token.EQ) {
		p.expression()
		p.emitOps(bytecode.INVOKE, p.identifierConstant("__setitem__"))
		p.emitByte(2)
	} else {
		p.emitOps(bytecode.INVOKE, p.identifierConstant("__getitem__"))
		p.emitByte(1)
	}
}

func vector(p *parser, _ bool) {
	name := p.identifierConstant("Vec")
	p.emitOps(bytecode.GETGLOBAL, name)

	numElems := p.argumentList(
		token.RBRACK,
		"Cannot have more than 255 Vec elements.",
		"Expected ']' after elements.",
	)
	p.emitOps(bytecode.CALL, numElems)
}

func rangeExpr(p *parser, _ bool) {
	p.parsePrecedence(precRange + 1)
	p.emitOp(bytecode.MAKERANGE)
}

func unary(p *parser, _ bool) {
	opKind := p.previous.Kind
	p.parsePrecedence(precUnary)
	switch opKind {
	case token.MINUS:
		p.emitOp(bytecode.NEGATE)
	case token.BANG:
		p.emitOp(bytecode.NOT)
	}
}

func binary(p *parser, _ bool) {
	opKind := p.previous.Kind
	rule := getRule(opKind)
	p.parsePrecedence(rule.prec + 1)

	switch opKind {
	case token.BANGEQ:
		p.emitOp(bytecode.EQUAL)
		p.emitOp(bytecode.NOT)
	case token.EQEQ:
		p.emitOp(bytecode.EQUAL)
	case token.GT:
		p.emitOp(bytecode.GREATER)
	case token.GE:
		p.emitOp(bytecode.LESS)
		p.emitOp(bytecode.NOT)
	case token.LT:
		p.emitOp(bytecode.LESS)
	case token.LE:
		p.emitOp(bytecode.GREATER)
		p.emitOp(bytecode.NOT)
	case token.PLUS:
		p.emitOp(bytecode.ADD)
	case token.MINUS:
		p.emitOp(bytecode.SUBTRACT)
	case token.STAR:
		p.emitOp(bytecode.MULTIPLY)
	case token.SLASH:
		p.emitOp(bytecode.DIVIDE)
	}
}

func number(p *parser, _ bool) {
	v, err := strconv.ParseFloat(p.previous.Lit, 64)
	if err != nil {
		p.error("Invalid number literal.")
		return
	}
	p.emitConstant(types.Number(v))
}

func literal(p *parser, _ bool) {
	switch p.previous.Kind {
	case token.FALSE:
		p.emitOp(bytecode.FALSE)
	case token.NIL:
		p.emitOp(bytecode.NIL)
	case token.TRUE:
		p.emitOp(bytecode.TRUE)
	}
}

func stringLit(p *parser, _ bool) {
	p.emitConstant(p.interner.Intern(p.previous.Lit))
}

// interpolation compiles a string literal with embedded expressions: the
// literal segments are emitted as string constants, interleaved with the
// expression code, and a final build-string instruction concatenates the
// whole run.
func interpolation(p *parser, _ bool) {
	argCount := 0
	for {
		if p.previous.Lit != "" {
			p.emitConstant(p.interner.Intern(p.previous.Lit))
			argCount++
		}
		p.expression()
		argCount++
		if !p.match(token.INTERP) {
			break
		}
	}

	p.consume(token.STRING, "Expected end of string interpolation.")
	if p.previous.Lit != "" {
		p.emitConstant(p.interner.Intern(p.previous.Lit))
		argCount++
	}

	if argCount > 255 {
		p.error("Cannot have more than 255 string segments.")
	}
	p.emitOps(bytecode.BUILDSTRING, byte(argCount))
}

func variable(p *parser, canAssign bool) {
	p.namedVariable(p.previous.Lit, canAssign)
}

func thisExpr(p *parser, _ bool) {
	if len(p.classCompilers) == 0 {
		p.error("Cannot use 'this' outside of a class.")
		return
	}
	p.namedVariable("this", false)
}

func superExpr(p *parser, _ bool) {
	if len(p.classCompilers) == 0 {
		p.error("Cannot use 'super' outside of a class.")
	} else if !p.classCompilers[len(p.classCompilers)-1].hasSuperclass {
		p.error("Cannot use 'super' in a class with no superclass.")
	}

	p.consume(token.DOT, "Expected '.' after 'super'.")
	p.consume(token.IDENT, "Expected superclass method name.")
	name := p.identifierConstant(p.previous.Lit)

	p.namedVariable("this", false)
	if p.match(token.LPAREN) {
		argCount := p.argumentList(
			token.RPAREN,
			"Cannot have more than 255 arguments.",
			"Expected ')' after arguments.",
		)
		p.namedVariable("super", false)
		p.emitOps(bytecode.SUPERINVOKE, name)
		p.emitByte(argCount)
	} else {
		p.namedVariable("super", false)
		p.emitOps(bytecode.GETSUPER, name)
	}
}

func andExpr(p *parser, _ bool) {
	endJump := p.emitJump(bytecode.JUMPIFFALSE)
	p.emitOp(bytecode.POP)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func orExpr(p *parser, _ bool) {
	elseJump := p.emitJump(bytecode.JUMPIFFALSE)
	endJump := p.emitJump(bytecode.JUMP)

	p.patchJump(elseJump)
	p.emitOp(bytecode.POP)

	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}
