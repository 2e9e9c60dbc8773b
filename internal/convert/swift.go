package convert

import "strings"

// SymbolKind enumerates the Swift declaration kinds a project's source
// files are scanned for.
type SymbolKind string

const (
	SymbolClass          SymbolKind = "class"
	SymbolStruct         SymbolKind = "struct"
	SymbolEnum           SymbolKind = "enum"
	SymbolActor          SymbolKind = "actor"
	SymbolProtocol       SymbolKind = "protocol"
	SymbolExtension      SymbolKind = "extension"
	SymbolFunction       SymbolKind = "function"
	SymbolMethod         SymbolKind = "method"
	SymbolInitializer    SymbolKind = "initializer"
	SymbolProperty       SymbolKind = "property"
	SymbolSubscript      SymbolKind = "subscript"
	SymbolTypealias      SymbolKind = "typealias"
	SymbolAssociatedtype SymbolKind = "associatedtype"
	SymbolCase           SymbolKind = "case"
	SymbolOperator       SymbolKind = "operator"
	SymbolMacro          SymbolKind = "macro"
)

// ExtractedSymbol is one declaration found in a Swift source file.
type ExtractedSymbol struct {
	Name              string
	Kind              SymbolKind
	Line              int
	Column            int
	IsAsync           bool
	IsThrows          bool
	IsPublic          bool
	IsStatic          bool
	Attributes        []string
	Conformances      []string
	GenericParameters []string
	Signature         string
}

// ExtractedImport is one `import` statement found in a Swift source file.
type ExtractedImport struct {
	ModuleName string
	Line       int
	IsExported bool
}

// ExtractionResult is the output of scanning one Swift source file.
// HasErrors is set when the scanner hit a construct it couldn't parse;
// the symbols already recognized before that point are still returned.
type ExtractionResult struct {
	Symbols   []ExtractedSymbol
	Imports   []ExtractedImport
	HasErrors bool
}

var typeIntroducers = map[string]SymbolKind{
	"class": SymbolClass, "struct": SymbolStruct, "enum": SymbolEnum,
	"actor": SymbolActor, "protocol": SymbolProtocol, "extension": SymbolExtension,
}

var accessModifiers = map[string]bool{"public": true, "open": true}
var staticModifiers = map[string]bool{"static": true}
var ignorableModifiers = map[string]bool{
	"private": true, "fileprivate": true, "internal": true, "final": true,
	"mutating": true, "nonmutating": true, "override": true, "required": true,
	"convenience": true, "lazy": true, "weak": true, "unowned": true,
	"indirect": true, "nonisolated": true, "isolated": true, "rethrows": true,
	"prefix": true, "infix": true, "postfix": true, "optional": true,
	"dynamic": true, "unsafe": true,
}

type scopeFrame struct {
	kind     SymbolKind
	openedAt int // brace depth immediately after the scope's opening brace
}

// swiftScanner walks a flat token stream left to right, accumulating
// pending attributes/modifiers at each statement boundary and emitting a
// symbol whenever it recognizes a declaration keyword.
type swiftScanner struct {
	toks       []token
	pos        int
	braceDepth int
	scopes     []scopeFrame
	result     *ExtractionResult
}

// ExtractSwiftSymbols scans a Swift source file for declarations and
// imports. It never returns an error: unrecognized constructs are
// skipped and recorded via ExtractionResult.HasErrors so a malformed or
// partially-unsupported file still yields whatever symbols were found
// before the trouble spot.
func ExtractSwiftSymbols(source string) *ExtractionResult {
	s := &swiftScanner{
		toks:   newSwiftLexer(source).tokens(),
		result: &ExtractionResult{},
	}
	s.run()
	return s.result
}

func (s *swiftScanner) peek() token {
	if s.pos >= len(s.toks) {
		return token{kind: tokEOF}
	}
	return s.toks[s.pos]
}

func (s *swiftScanner) peekN(n int) token {
	if s.pos+n >= len(s.toks) {
		return token{kind: tokEOF}
	}
	return s.toks[s.pos+n]
}

func (s *swiftScanner) advance() token {
	t := s.peek()
	s.pos++
	if t.kind == tokPunct {
		switch t.text {
		case "{":
			s.braceDepth++
		case "}":
			s.braceDepth--
			for len(s.scopes) > 0 && s.braceDepth < s.scopes[len(s.scopes)-1].openedAt {
				s.scopes = s.scopes[:len(s.scopes)-1]
			}
		}
	}
	return t
}

func (s *swiftScanner) currentScopeKind() (SymbolKind, bool) {
	if len(s.scopes) == 0 {
		return "", false
	}
	return s.scopes[len(s.scopes)-1].kind, true
}

func (s *swiftScanner) run() {
	var attrs []string
	isPublic, isStatic := false, false

	resetPending := func() {
		attrs = nil
		isPublic, isStatic = false, false
	}

	for {
		t := s.peek()
		if t.kind == tokEOF {
			return
		}

		switch {
		case t.kind == tokAttribute:
			attrs = append(attrs, t.text)
			s.advance()
			continue

		case t.kind == tokIdent && accessModifiers[t.text]:
			isPublic = true
			s.advance()
			continue

		case t.kind == tokIdent && staticModifiers[t.text]:
			isStatic = true
			s.advance()
			continue

		case t.kind == tokIdent && ignorableModifiers[t.text]:
			s.advance()
			continue

		case t.kind == tokIdent && t.text == "class" && isFollowedByDeclKeyword(s):
			// "class func"/"class var": a static-like modifier, not a type decl.
			isStatic = true
			s.advance()
			continue

		case t.kind == tokIdent && t.text == "import":
			s.parseImport(attrs, isPublic)
			resetPending()
			continue

		case t.kind == tokIdent && typeIntroducers[t.text] != "":
			s.parseTypeDecl(typeIntroducers[t.text], attrs, isPublic)
			resetPending()
			continue

		case t.kind == tokIdent && t.text == "func":
			s.parseFunc(attrs, isPublic, isStatic)
			resetPending()
			continue

		case t.kind == tokIdent && t.text == "init":
			s.parseInit(attrs, isPublic)
			resetPending()
			continue

		case t.kind == tokIdent && (t.text == "var" || t.text == "let"):
			s.parseBinding(attrs, isPublic, isStatic)
			resetPending()
			continue

		case t.kind == tokIdent && t.text == "case":
			s.parseCase(attrs)
			resetPending()
			continue

		case t.kind == tokIdent && t.text == "typealias":
			s.parseTypealias(attrs, isPublic)
			resetPending()
			continue

		case t.kind == tokIdent && t.text == "associatedtype":
			s.parseAssociatedtype(attrs)
			resetPending()
			continue

		case t.kind == tokIdent && t.text == "subscript":
			s.parseSubscript(attrs, isPublic, isStatic)
			resetPending()
			continue

		case t.kind == tokIdent && t.text == "macro":
			s.parseMacro(attrs, isPublic)
			resetPending()
			continue

		case t.kind == tokIdent && t.text == "operator":
			s.parseOperatorDecl(attrs)
			resetPending()
			continue

		default:
			// Anything else (expressions, statement bodies, closures) is
			// noise to the declaration scanner: consume and move on. A
			// token we don't recognize at statement position is exactly
			// the "unsupported construct" case the contract allows for.
			if t.kind == tokPunct && (t.text == ";" || t.text == "\n") {
				s.advance()
				continue
			}
			if len(attrs) > 0 || isPublic || isStatic {
				// Pending modifiers that never attached to a declaration
				// (e.g. a modifier before an unsupported construct) flag
				// the file as partially unparsed.
				s.result.HasErrors = true
				resetPending()
			}
			s.advance()
		}
	}
}

// isFollowedByDeclKeyword reports whether the token after "class" is a
// declaration keyword, which means this "class" is the static-like
// modifier form ("class func", "class var") rather than a type
// introducer.
func isFollowedByDeclKeyword(s *swiftScanner) bool {
	nxt := s.peekN(1)
	if nxt.kind != tokIdent {
		return false
	}
	switch nxt.text {
	case "func", "var", "let", "subscript":
		return true
	}
	return false
}

func (s *swiftScanner) parseImport(attrs []string, isPublic bool) {
	line := s.peek().line
	s.advance() // "import"

	exported := isPublic
	for _, a := range attrs {
		if strings.HasPrefix(a, "@_exported") {
			exported = true
		}
	}

	// Scoped imports look like "import struct Foundation.URL": skip the
	// leading kind keyword if one of the declaration keywords appears.
	if t := s.peek(); t.kind == tokIdent {
		switch t.text {
		case "struct", "class", "enum", "protocol", "func", "var", "let", "typealias":
			s.advance()
		}
	}

	var module strings.Builder
	for {
		t := s.peek()
		if t.kind != tokIdent {
			break
		}
		module.WriteString(t.text)
		s.advance()
		if s.peek().kind == tokPunct && s.peek().text == "." {
			module.WriteString(".")
			s.advance()
			continue
		}
		break
	}
	if module.Len() == 0 {
		s.result.HasErrors = true
		return
	}

	// Record only the top-level module component; submodule paths like
	// "Foundation.URL" are a scoped import of Foundation.
	name := strings.SplitN(module.String(), ".", 2)[0]
	s.result.Imports = append(s.result.Imports, ExtractedImport{
		ModuleName: name,
		Line:       line,
		IsExported: exported,
	})
}

func (s *swiftScanner) parseTypeDecl(kind SymbolKind, attrs []string, isPublic bool) {
	startTok := s.peek()
	s.advance() // keyword

	name := s.readIdentName()
	generics := s.parseGenericParameters()
	conformances := s.parseInheritanceClause()
	s.skipGenericWhereClause()

	s.result.Symbols = append(s.result.Symbols, ExtractedSymbol{
		Name:              name,
		Kind:              kind,
		Line:              startTok.line,
		Column:            startTok.col,
		IsPublic:          isPublic,
		Attributes:        attrs,
		Conformances:      conformances,
		GenericParameters: generics,
		Signature:         string(kind) + " " + name,
	})

	if s.peek().kind == tokPunct && s.peek().text == "{" {
		s.advance() // consumes '{', bumps braceDepth
		s.scopes = append(s.scopes, scopeFrame{kind: kind, openedAt: s.braceDepth})
	}
}

func (s *swiftScanner) readIdentName() string {
	t := s.peek()
	if t.kind != tokIdent {
		s.result.HasErrors = true
		return ""
	}
	s.advance()
	return t.text
}

// parseGenericParameters reads a "<T, U: Equatable>" clause if present,
// returning the bare parameter names.
func (s *swiftScanner) parseGenericParameters() []string {
	if !(s.peek().kind == tokPunct && s.peek().text == "<") {
		return nil
	}
	s.advance()
	var params []string
	expectName := true
	depth := 1
	for depth > 0 {
		t := s.peek()
		if t.kind == tokEOF {
			s.result.HasErrors = true
			return params
		}
		if t.kind == tokPunct {
			switch t.text {
			case "<":
				depth++
				s.advance()
				continue
			case ">":
				depth--
				s.advance()
				continue
			case ",":
				expectName = true
				s.advance()
				continue
			case ":":
				expectName = false
				s.advance()
				continue
			}
		}
		if depth == 1 && expectName && t.kind == tokIdent {
			params = append(params, t.text)
			expectName = false
		}
		s.advance()
	}
	return params
}

// parseInheritanceClause reads a ": Superclass, Protocol" list up to the
// opening '{' or a "where" clause.
func (s *swiftScanner) parseInheritanceClause() []string {
	if !(s.peek().kind == tokPunct && s.peek().text == ":") {
		return nil
	}
	s.advance()
	var names []string
	for {
		t := s.peek()
		if t.kind == tokIdent && t.text != "where" {
			names = append(names, t.text)
			s.advance()
			// Skip any generic argument list on the conformance itself.
			if s.peek().kind == tokPunct && s.peek().text == "<" {
				s.skipBalanced("<", ">")
			}
			if s.peek().kind == tokPunct && s.peek().text == "," {
				s.advance()
				continue
			}
		}
		break
	}
	return names
}

func (s *swiftScanner) skipGenericWhereClause() {
	if s.peek().kind == tokIdent && s.peek().text == "where" {
		for !(s.peek().kind == tokPunct && (s.peek().text == "{" || s.peek().text == ";")) && s.peek().kind != tokEOF {
			s.advance()
		}
	}
}

func (s *swiftScanner) skipBalanced(open, close string) {
	if !(s.peek().kind == tokPunct && s.peek().text == open) {
		return
	}
	depth := 0
	for {
		t := s.peek()
		if t.kind == tokEOF {
			s.result.HasErrors = true
			return
		}
		if t.kind == tokPunct && t.text == open {
			depth++
		} else if t.kind == tokPunct && t.text == close {
			depth--
			s.advance()
			if depth == 0 {
				return
			}
			continue
		}
		s.advance()
	}
}

func (s *swiftScanner) parseFunc(attrs []string, isPublic, isStatic bool) {
	startTok := s.peek()
	s.advance() // "func"

	var name string
	t := s.peek()
	if t.kind == tokIdent {
		name = t.text
		s.advance()
	} else if t.kind == tokPunct {
		// Operator-overload function, e.g. "static func + (lhs: Self, rhs: Self) -> Self".
		name = t.text
		s.advance()
	} else {
		s.result.HasErrors = true
		return
	}

	generics := s.parseGenericParameters()
	paramsText := s.captureParens()

	isAsync, isThrows := s.consumeEffectSpecifiers()
	returnType := s.captureReturnType()
	s.skipGenericWhereClause()

	kind := SymbolFunction
	if _, inScope := s.currentScopeKind(); inScope {
		kind = SymbolMethod
	}
	if isOperatorName(name) {
		kind = SymbolOperator
	}

	sig := "func " + name + paramsText
	if isAsync {
		sig += " async"
	}
	if isThrows {
		sig += " throws"
	}
	if returnType != "" {
		sig += " -> " + returnType
	}

	s.result.Symbols = append(s.result.Symbols, ExtractedSymbol{
		Name:              name,
		Kind:              kind,
		Line:              startTok.line,
		Column:            startTok.col,
		IsAsync:           isAsync,
		IsThrows:          isThrows,
		IsPublic:          isPublic,
		IsStatic:          isStatic,
		Attributes:        attrs,
		GenericParameters: generics,
		Signature:         sig,
	})

	s.skipFunctionBody()
}

func isOperatorName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if isIdentStart(r) || isDigit(r) {
			return false
		}
	}
	return true
}

func (s *swiftScanner) parseInit(attrs []string, isPublic bool) {
	startTok := s.peek()
	s.advance() // "init"

	if s.peek().kind == tokPunct && (s.peek().text == "?" || s.peek().text == "!") {
		s.advance()
	}
	generics := s.parseGenericParameters()
	paramsText := s.captureParens()
	isAsync, isThrows := s.consumeEffectSpecifiers()

	sig := "init" + paramsText
	if isAsync {
		sig += " async"
	}
	if isThrows {
		sig += " throws"
	}

	s.result.Symbols = append(s.result.Symbols, ExtractedSymbol{
		Name:              "init",
		Kind:              SymbolInitializer,
		Line:              startTok.line,
		Column:            startTok.col,
		IsAsync:           isAsync,
		IsThrows:          isThrows,
		IsPublic:          isPublic,
		Attributes:        attrs,
		GenericParameters: generics,
		Signature:         sig,
	})

	s.skipFunctionBody()
}

func (s *swiftScanner) parseSubscript(attrs []string, isPublic, isStatic bool) {
	startTok := s.peek()
	s.advance() // "subscript"

	generics := s.parseGenericParameters()
	paramsText := s.captureParens()
	returnType := s.captureReturnType()

	sig := "subscript" + paramsText
	if returnType != "" {
		sig += " -> " + returnType
	}

	s.result.Symbols = append(s.result.Symbols, ExtractedSymbol{
		Name:              "subscript",
		Kind:              SymbolSubscript,
		Line:              startTok.line,
		Column:            startTok.col,
		IsPublic:          isPublic,
		IsStatic:          isStatic,
		Attributes:        attrs,
		GenericParameters: generics,
		Signature:         sig,
	})

	s.skipFunctionBody()
}

func (s *swiftScanner) parseMacro(attrs []string, isPublic bool) {
	startTok := s.peek()
	s.advance() // "macro"
	name := s.readIdentName()
	generics := s.parseGenericParameters()
	paramsText := s.captureParens()
	returnType := s.captureReturnType()

	sig := "macro " + name + paramsText
	if returnType != "" {
		sig += " -> " + returnType
	}

	s.result.Symbols = append(s.result.Symbols, ExtractedSymbol{
		Name:              name,
		Kind:              SymbolMacro,
		Line:              startTok.line,
		Column:            startTok.col,
		IsPublic:          isPublic,
		Attributes:        attrs,
		GenericParameters: generics,
		Signature:         sig,
	})

	// Macro declarations end with "= #externalMacro(...)" rather than a
	// brace body; consume up to the statement end.
	for !(s.peek().kind == tokEOF || (s.peek().kind == tokPunct && s.peek().text == ";")) {
		if s.peek().line > startTok.line && s.pos > 0 {
			break
		}
		s.advance()
	}
}

func (s *swiftScanner) parseOperatorDecl(attrs []string) {
	startTok := s.peek()
	s.advance() // "operator"
	name := ""
	if s.peek().kind == tokPunct {
		name = s.peek().text
		s.advance()
	}
	s.result.Symbols = append(s.result.Symbols, ExtractedSymbol{
		Name:       name,
		Kind:       SymbolOperator,
		Line:       startTok.line,
		Column:     startTok.col,
		Attributes: attrs,
		Signature:  "operator " + name,
	})
	for !(s.peek().kind == tokEOF || (s.peek().kind == tokPunct && (s.peek().text == "{" || s.peek().text == ";"))) {
		s.advance()
	}
	if s.peek().kind == tokPunct && s.peek().text == "{" {
		s.skipFunctionBody()
	}
}

func (s *swiftScanner) parseTypealias(attrs []string, isPublic bool) {
	startTok := s.peek()
	s.advance() // "typealias"
	name := s.readIdentName()
	generics := s.parseGenericParameters()

	s.result.Symbols = append(s.result.Symbols, ExtractedSymbol{
		Name:              name,
		Kind:              SymbolTypealias,
		Line:              startTok.line,
		Column:            startTok.col,
		IsPublic:          isPublic,
		Attributes:        attrs,
		GenericParameters: generics,
		Signature:         "typealias " + name,
	})

	for !(s.peek().kind == tokEOF || (s.peek().kind == tokPunct && (s.peek().text == ";" || s.peek().text == "}"))) {
		if s.peek().kind == tokPunct && s.peek().text == "{" {
			break
		}
		if s.peek().line > startTok.line && s.peek().col == 1 {
			break
		}
		s.advance()
	}
}

func (s *swiftScanner) parseAssociatedtype(attrs []string) {
	startTok := s.peek()
	s.advance() // "associatedtype"
	name := s.readIdentName()
	s.parseInheritanceClause()

	s.result.Symbols = append(s.result.Symbols, ExtractedSymbol{
		Name:       name,
		Kind:       SymbolAssociatedtype,
		Line:       startTok.line,
		Column:     startTok.col,
		Attributes: attrs,
		Signature:  "associatedtype " + name,
	})
}

// parseBinding emits one ExtractedSymbol per comma-separated pattern in a
// var/let declaration, e.g. "var a, b: Int" yields two symbols.
func (s *swiftScanner) parseBinding(attrs []string, isPublic, isStatic bool) {
	s.advance() // "var"/"let"

	for {
		nameTok := s.peek()
		if nameTok.kind != tokIdent {
			s.result.HasErrors = true
			break
		}
		name := nameTok.text
		s.advance()

		s.result.Symbols = append(s.result.Symbols, ExtractedSymbol{
			Name:       name,
			Kind:       SymbolProperty,
			Line:       nameTok.line,
			Column:     nameTok.col,
			IsPublic:   isPublic,
			IsStatic:   isStatic,
			Attributes: attrs,
			Signature:  "var " + name,
		})

		if s.peek().kind == tokPunct && s.peek().text == ":" {
			s.advance()
			s.skipTypeAnnotation()
		}
		if s.peek().kind == tokPunct && s.peek().text == "{" {
			// Computed property or property observers: skip the body.
			s.skipFunctionBody()
			break
		}
		if s.peek().kind == tokPunct && s.peek().text == "=" {
			s.advance()
			s.skipInitializerExpression()
		}
		if s.peek().kind == tokPunct && s.peek().text == "," {
			s.advance()
			continue
		}
		break
	}
}

// skipTypeAnnotation consumes a type expression after ':' up to the next
// statement-level ',', '=', '{', or line break.
func (s *swiftScanner) skipTypeAnnotation() {
	for {
		t := s.peek()
		if t.kind == tokEOF {
			return
		}
		if t.kind == tokPunct {
			switch t.text {
			case "<":
				s.skipBalanced("<", ">")
				continue
			case "(":
				s.skipBalanced("(", ")")
				continue
			case "[":
				s.skipBalanced("[", "]")
				continue
			case ",", "=", "{", ";":
				return
			}
		}
		if t.kind == tokIdent && (t.text == "get" || t.text == "set") {
			return
		}
		s.advance()
	}
}

// skipInitializerExpression consumes an expression after '=' up to the
// next top-level ',', ';', unmatched closing bracket, or a new line that
// starts at column 1 or with an attribute, modifier or declaration keyword
// (best-effort: the scanner doesn't model full expression grammar).
func (s *swiftScanner) skipInitializerExpression() {
	startLine := s.peek().line
	depth := 0
	for {
		t := s.peek()
		if t.kind == tokEOF {
			return
		}
		if t.kind == tokPunct {
			switch t.text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				if depth == 0 {
					return
				}
				depth--
			case ",", ";":
				if depth == 0 {
					return
				}
			}
		}
		if depth == 0 && t.line > startLine {
			if t.col == 1 || t.kind == tokAttribute {
				return
			}
			if t.kind == tokIdent {
				switch t.text {
				case "func", "init", "deinit", "var", "let", "case", "typealias",
					"associatedtype", "subscript", "macro", "operator", "import":
					return
				}
				if typeIntroducers[t.text] != "" || accessModifiers[t.text] ||
					staticModifiers[t.text] || ignorableModifiers[t.text] {
					return
				}
			}
		}
		s.advance()
	}
}

// parseCase emits one symbol per comma-separated element of an enum case
// declaration: "case a, b(Int)" yields two symbols.
func (s *swiftScanner) parseCase(attrs []string) {
	s.advance() // "case"

	for {
		nameTok := s.peek()
		if nameTok.kind != tokIdent {
			s.result.HasErrors = true
			break
		}
		s.advance()

		if s.peek().kind == tokPunct && s.peek().text == "(" {
			s.skipBalanced("(", ")")
		}
		if s.peek().kind == tokPunct && s.peek().text == "=" {
			s.advance()
			s.skipInitializerExpression()
		}

		s.result.Symbols = append(s.result.Symbols, ExtractedSymbol{
			Name:       nameTok.text,
			Kind:       SymbolCase,
			Line:       nameTok.line,
			Column:     nameTok.col,
			Attributes: attrs,
			Signature:  "case " + nameTok.text,
		})

		if s.peek().kind == tokPunct && s.peek().text == "," {
			s.advance()
			continue
		}
		break
	}
}

// captureParens reads a balanced "(...)" parameter list and returns its
// raw reconstructed text, starting at the current token (which must be
// "(").
func (s *swiftScanner) captureParens() string {
	if !(s.peek().kind == tokPunct && s.peek().text == "(") {
		return "()"
	}
	var toks []token
	depth := 0
	for {
		t := s.peek()
		if t.kind == tokEOF {
			s.result.HasErrors = true
			break
		}
		toks = append(toks, t)
		if t.kind == tokPunct && t.text == "(" {
			depth++
		} else if t.kind == tokPunct && t.text == ")" {
			depth--
			s.advance()
			if depth == 0 {
				break
			}
			continue
		}
		s.advance()
	}
	return joinTokens(toks)
}

// consumeEffectSpecifiers reads an optional "async"/"throws"/"rethrows"
// pair in either order, as Swift permits both "async throws" and (in
// older code) occasional reversed orderings in macros/attributes.
func (s *swiftScanner) consumeEffectSpecifiers() (isAsync, isThrows bool) {
	for i := 0; i < 2; i++ {
		t := s.peek()
		if t.kind != tokIdent {
			break
		}
		switch t.text {
		case "async":
			isAsync = true
			s.advance()
		case "throws", "rethrows":
			isThrows = true
			s.advance()
			if s.peek().kind == tokPunct && s.peek().text == "(" {
				s.skipBalanced("(", ")") // typed throws: "throws(MyError)"
			}
		default:
			return
		}
	}
	return
}

// captureReturnType reads an optional "-> Type" clause and returns the
// reconstructed type text, stopping before "{" or "where".
func (s *swiftScanner) captureReturnType() string {
	if !(s.peek().kind == tokPunct && s.peek().text == "->") {
		return ""
	}
	s.advance()
	var toks []token
	for {
		t := s.peek()
		if t.kind == tokEOF {
			break
		}
		if t.kind == tokPunct && t.text == "{" {
			break
		}
		if t.kind == tokIdent && t.text == "where" {
			break
		}
		toks = append(toks, t)
		s.advance()
	}
	return joinTokens(toks)
}

func (s *swiftScanner) skipFunctionBody() {
	if !(s.peek().kind == tokPunct && s.peek().text == "{") {
		return
	}
	s.advance()
	depth := 1
	for depth > 0 {
		t := s.peek()
		if t.kind == tokEOF {
			s.result.HasErrors = true
			return
		}
		if t.kind == tokPunct {
			if t.text == "{" {
				depth++
			} else if t.text == "}" {
				depth--
			}
		}
		s.advance()
	}
}

// joinTokens reconstructs a readable signature fragment from a token
// slice, applying light spacing rules so "( lhs : Int , rhs : Int )"
// reads as "(lhs: Int, rhs: Int)".
func joinTokens(toks []token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && needsSpaceBetween(toks[i-1], t) {
			b.WriteByte(' ')
		}
		b.WriteString(t.text)
	}
	return b.String()
}

func needsSpaceBetween(prev, next token) bool {
	tight := map[string]bool{"(": true, "[": true, ".": true}
	tightBefore := map[string]bool{")": true, ",": true, ":": true, "]": true, ".": true}
	if tight[prev.text] || tightBefore[next.text] {
		return false
	}
	return true
}
