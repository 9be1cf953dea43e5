package preview

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type parser struct {
	src []rune
	pos int
}

func parse(source string) (*program, error) {
	p := &parser{src: []rune(source)}
	prog := &program{funcs: map[string]*funcDecl{}}

	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		word := p.peekWord()
		switch word {
		case "export":
			p.readWord()
			if p.readWord() != "default" {
				return nil, p.errf("only default exports are supported")
			}
			switch p.readWord() {
			case "function":
			case "class":
				return nil, errClassComponent
			default:
				return nil, p.errf("default export must be a function declaration")
			}
			fn, err := p.parseFunctionRest()
			if err != nil {
				return nil, err
			}
			if prog.defaultFunc != nil {
				return nil, p.errf("duplicate default export")
			}
			prog.defaultFunc = fn
		case "function":
			p.readWord()
			fn, err := p.parseFunctionRest()
			if err != nil {
				return nil, err
			}
			prog.funcs[fn.name] = fn
		case "const", "let", "var":
			p.readWord()
			st, err := p.parseConstRest()
			if err != nil {
				return nil, err
			}
			prog.consts = append(prog.consts, *st)
		case "class":
			return nil, errClassComponent
		case "import":
			return nil, p.importError()
		case "type", "interface":
			if err := p.skipTypeDecl(word); err != nil {
				return nil, err
			}
		case "":
			return nil, p.errf("unexpected character %q", string(p.src[p.pos]))
		default:
			return nil, p.errf("unexpected top-level token %q", word)
		}
	}
	return prog, nil
}

func (p *parser) parseFunctionRest() (*funcDecl, error) {
	name := p.readWord()
	if name == "" {
		return nil, p.errf("function declaration is missing a name")
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peekRune() == ':' {
		p.pos++
		p.skipTypeUntil("{")
	}
	fn := &funcDecl{name: name, params: params}
	fn.locals, fn.result, err = p.parseBlock()
	if err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *parser) parseConstRest() (*constStmt, error) {
	name := p.readWord()
	if name == "" {
		return nil, p.errf("const declaration is missing a name")
	}
	p.skipSpace()
	if p.peekRune() == ':' {
		p.pos++
		p.skipTypeUntil("=")
	}
	p.skipSpace()
	if p.peekRune() != '=' {
		return nil, p.errf("const %s is missing an initializer", name)
	}
	p.pos++
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peekRune() == ';' {
		p.pos++
	}
	return &constStmt{name: name, value: value}, nil
}

func (p *parser) parseParams() ([]param, error) {
	p.skipSpace()
	if p.peekRune() != '(' {
		return nil, p.errf("expected parameter list")
	}
	p.pos++
	var params []param
	for {
		p.skipSpace()
		if p.peekRune() == ')' {
			p.pos++
			return params, nil
		}
		if p.peekRune() == '{' {
			p.pos++
			var names []string
			for {
				p.skipSpace()
				if p.peekRune() == '}' {
					p.pos++
					break
				}
				n := p.readWord()
				if n == "" {
					return nil, p.errf("expected property name in destructured parameter")
				}
				names = append(names, n)
				p.skipSpace()
				if p.peekRune() == '=' {
					p.pos++
					if _, err := p.parseExpr(); err != nil {
						return nil, err
					}
					p.skipSpace()
				}
				if p.peekRune() == ',' {
					p.pos++
				}
			}
			p.skipSpace()
			if p.peekRune() == ':' {
				p.pos++
				p.skipTypeUntil(",)")
			}
			params = append(params, param{destructure: names})
		} else {
			n := p.readWord()
			if n == "" {
				return nil, p.errf("expected parameter name")
			}
			p.skipSpace()
			if p.peekRune() == ':' {
				p.pos++
				p.skipTypeUntil(",)=")
			}
			p.skipSpace()
			if p.peekRune() == '=' {
				p.pos++
				if _, err := p.parseExpr(); err != nil {
					return nil, err
				}
			}
			params = append(params, param{name: n})
		}
		p.skipSpace()
		if p.peekRune() == ',' {
			p.pos++
		}
	}
}

func (p *parser) parseBlock() ([]constStmt, expr, error) {
	p.skipSpace()
	if p.peekRune() != '{' {
		return nil, nil, p.errf("expected function body")
	}
	p.pos++
	var locals []constStmt
	for {
		p.skipSpace()
		if p.eof() {
			return nil, nil, p.errf("unterminated function body")
		}
		if p.peekRune() == '}' {
			p.pos++
			return locals, nil, nil
		}
		switch word := p.peekWord(); word {
		case "const", "let", "var":
			p.readWord()
			st, err := p.parseConstRest()
			if err != nil {
				return nil, nil, err
			}
			locals = append(locals, *st)
		case "return":
			p.readWord()
			p.skipSpace()
			var result expr
			if p.peekRune() != ';' && p.peekRune() != '}' {
				var err error
				result, err = p.parseExpr()
				if err != nil {
					return nil, nil, err
				}
			}
			p.skipSpace()
			if p.peekRune() == ';' {
				p.pos++
			}
			p.skipSpace()
			if p.peekRune() != '}' {
				return nil, nil, p.errf("unreachable statement after return")
			}
			p.pos++
			return locals, result, nil
		default:
			return nil, nil, p.errf("unsupported statement in component body")
		}
	}
}

func (p *parser) parseExpr() (expr, error) {
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peekRune() == '?' && p.peekRuneAt(1) != '.' {
		p.pos++
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peekRune() != ':' {
			return nil, p.errf("expected ':' in conditional expression")
		}
		p.pos++
		alt, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ternaryExpr{cond: cond, then: then, alt: alt}, nil
	}
	return cond, nil
}

var binaryPrec = map[string]int{
	"||": 1, "&&": 2,
	"===": 3, "!==": 3, "==": 3, "!=": 3,
	"<": 4, ">": 4, "<=": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

func (p *parser) parseBinary(minPrec int) (expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		op := p.peekOperator()
		prec, ok := binaryPrec[op]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.pos += len(op)
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: op, left: left, right: right}
	}
}

// peekOperator returns the longest binary operator at the cursor, or "".
// Standalone '=' and '=>' are never binary operators here.
func (p *parser) peekOperator() string {
	for _, op := range []string{"===", "!==", "==", "!=", "<=", ">=", "&&", "||", "+", "-", "*", "/", "%", "<", ">"} {
		if p.hasPrefix(op) {
			return op
		}
	}
	return ""
}

func (p *parser) parseUnary() (expr, error) {
	p.skipSpace()
	switch p.peekRune() {
	case '!':
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: "!", operand: operand}, nil
	case '-':
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: "-", operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		switch {
		case p.hasPrefix("?."):
			p.pos += 2
			name := p.readWord()
			if name == "" {
				return nil, p.errf("expected property name after '?.'")
			}
			e = &memberExpr{object: e, name: name}
		case p.peekRune() == '.':
			p.pos++
			name := p.readWord()
			if name == "" {
				return nil, p.errf("expected property name after '.'")
			}
			e = &memberExpr{object: e, name: name}
		case p.peekRune() == '(':
			p.pos++
			var args []expr
			for {
				p.skipSpace()
				if p.peekRune() == ')' {
					p.pos++
					break
				}
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				p.skipSpace()
				if p.peekRune() == ',' {
					p.pos++
				}
			}
			e = &callExpr{callee: e, args: args}
		case p.peekRune() == '[':
			p.pos++
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			p.skipSpace()
			if p.peekRune() != ']' {
				return nil, p.errf("expected ']' after index expression")
			}
			p.pos++
			e = &indexExpr{object: e, index: idx}
		default:
			return e, nil
		}
	}
}

func (p *parser) parsePrimary() (expr, error) {
	p.skipSpace()
	if p.eof() {
		return nil, p.errf("unexpected end of source")
	}
	switch c := p.peekRune(); {
	case c == '(':
		if p.aheadArrow() {
			return p.parseArrow()
		}
		p.pos++
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peekRune() != ')' {
			return nil, p.errf("expected ')'")
		}
		p.pos++
		return e, nil
	case c == '<':
		return p.parseJSX()
	case c == '"' || c == '\'':
		return p.parseString(c)
	case c == '`':
		return p.parseTemplate()
	case c == '[':
		return p.parseArray()
	case c == '{':
		return p.parseObject()
	case unicode.IsDigit(c):
		return p.parseNumber()
	default:
		word := p.peekWord()
		switch word {
		case "":
			return nil, p.errf("unexpected character %q", string(c))
		case "true":
			p.readWord()
			return &boolLit{value: true}, nil
		case "false":
			p.readWord()
			return &boolLit{value: false}, nil
		case "null", "undefined":
			p.readWord()
			return &nullLit{}, nil
		case "class":
			return nil, errClassComponent
		}
		p.readWord()
		mark := p.pos
		p.skipSpace()
		if p.hasPrefix("=>") {
			p.pos += 2
			return p.parseArrowBody([]param{{name: word}})
		}
		p.pos = mark
		return &identExpr{name: word}, nil
	}
}

func (p *parser) parseArrow() (expr, error) {
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peekRune() == ':' {
		p.pos++
		p.skipTypeUntil("=")
	}
	p.skipSpace()
	if !p.hasPrefix("=>") {
		return nil, p.errf("expected '=>' after arrow parameters")
	}
	p.pos += 2
	return p.parseArrowBody(params)
}

func (p *parser) parseArrowBody(params []param) (expr, error) {
	p.skipSpace()
	if p.peekRune() == '{' {
		locals, result, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &arrowExpr{params: params, locals: locals, result: result}, nil
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &arrowExpr{params: params, result: body}, nil
}

// aheadArrow reports whether the '(' at the cursor opens arrow-function
// parameters, by scanning to the matching ')' and checking for '=>'.
func (p *parser) aheadArrow() bool {
	depth := 0
	i := p.pos
	for i < len(p.src) {
		switch p.src[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				for j := i + 1; j < len(p.src); j++ {
					r := p.src[j]
					if unicode.IsSpace(r) {
						continue
					}
					if r == ':' {
						// possible return-type annotation before '=>'
						for ; j < len(p.src) && p.src[j] != '=' && p.src[j] != '\n'; j++ {
						}
					}
					return j+1 < len(p.src) && p.src[j] == '=' && p.src[j+1] == '>'
				}
				return false
			}
		case '"', '\'', '`':
			quote := p.src[i]
			for i++; i < len(p.src) && p.src[i] != quote; i++ {
				if p.src[i] == '\\' {
					i++
				}
			}
		}
		i++
	}
	return false
}

func (p *parser) parseString(quote rune) (expr, error) {
	p.pos++
	var sb strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case quote:
			return &stringLit{value: sb.String()}, nil
		case '\\':
			if p.eof() {
				return nil, p.errf("unterminated string literal")
			}
			esc := p.src[p.pos]
			p.pos++
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			default:
				sb.WriteRune(esc)
			}
		case '\n':
			return nil, p.errf("unterminated string literal")
		default:
			sb.WriteRune(c)
		}
	}
	return nil, p.errf("unterminated string literal")
}

func (p *parser) parseTemplate() (expr, error) {
	p.pos++
	tpl := &templateLit{}
	var sb strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '`':
			p.pos++
			if sb.Len() > 0 {
				tpl.parts = append(tpl.parts, templatePart{text: sb.String()})
			}
			return tpl, nil
		case c == '\\':
			p.pos++
			if p.eof() {
				return nil, p.errf("unterminated template literal")
			}
			sb.WriteRune(p.src[p.pos])
			p.pos++
		case c == '$' && p.peekRuneAt(1) == '{':
			if sb.Len() > 0 {
				tpl.parts = append(tpl.parts, templatePart{text: sb.String()})
				sb.Reset()
			}
			p.pos += 2
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			p.skipSpace()
			if p.peekRune() != '}' {
				return nil, p.errf("expected '}' to close template interpolation")
			}
			p.pos++
			tpl.parts = append(tpl.parts, templatePart{expr: e})
		default:
			sb.WriteRune(c)
			p.pos++
		}
	}
	return nil, p.errf("unterminated template literal")
}

func (p *parser) parseArray() (expr, error) {
	p.pos++
	arr := &arrayLit{}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errf("unterminated array literal")
		}
		if p.peekRune() == ']' {
			p.pos++
			return arr, nil
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		arr.elems = append(arr.elems, e)
		p.skipSpace()
		if p.peekRune() == ',' {
			p.pos++
		}
	}
}

func (p *parser) parseObject() (expr, error) {
	p.pos++
	obj := &objectLit{}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errf("unterminated object literal")
		}
		if p.peekRune() == '}' {
			p.pos++
			return obj, nil
		}
		var name string
		if c := p.peekRune(); c == '"' || c == '\'' {
			lit, err := p.parseString(c)
			if err != nil {
				return nil, err
			}
			name = lit.(*stringLit).value
		} else {
			name = p.readWord()
			if name == "" {
				return nil, p.errf("expected property name in object literal")
			}
		}
		p.skipSpace()
		if p.peekRune() == ':' {
			p.pos++
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			obj.fields = append(obj.fields, objectField{name: name, value: value})
		} else {
			obj.fields = append(obj.fields, objectField{name: name, value: &identExpr{name: name}})
		}
		p.skipSpace()
		if p.peekRune() == ',' {
			p.pos++
		}
	}
}

func (p *parser) parseNumber() (expr, error) {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if unicode.IsDigit(c) || c == '.' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		if (c == '+' || c == '-') && p.pos > start && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E') {
			p.pos++
			continue
		}
		break
	}
	text := string(p.src[start:p.pos])
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.errf("invalid number literal %q", text)
	}
	return &numberLit{value: f}, nil
}

func (p *parser) parseJSX() (expr, error) {
	p.pos++ // consume '<'
	p.skipSpace()
	if p.peekRune() == '>' {
		p.pos++
		children, err := p.parseJSXChildren("")
		if err != nil {
			return nil, err
		}
		return &jsxFragment{children: children}, nil
	}
	tag := p.readJSXName()
	if tag == "" {
		return nil, p.errf("expected element name after '<'")
	}
	el := &jsxElement{tag: tag}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errf("unterminated element <%s>", tag)
		}
		if p.hasPrefix("/>") {
			p.pos += 2
			return el, nil
		}
		if p.peekRune() == '>' {
			p.pos++
			children, err := p.parseJSXChildren(tag)
			if err != nil {
				return nil, err
			}
			el.children = children
			return el, nil
		}
		name := p.readJSXName()
		if name == "" {
			return nil, p.errf("expected attribute name in <%s>", tag)
		}
		attr := jsxAttr{name: name}
		p.skipSpace()
		if p.peekRune() == '=' {
			p.pos++
			p.skipSpace()
			switch c := p.peekRune(); c {
			case '"', '\'':
				raw, err := p.readJSXAttrString(c)
				if err != nil {
					return nil, err
				}
				attr.value = &stringLit{value: decodeEntities(raw)}
			case '{':
				p.pos++
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				p.skipSpace()
				if p.peekRune() != '}' {
					return nil, p.errf("expected '}' to close attribute expression")
				}
				p.pos++
				attr.value = e
			default:
				return nil, p.errf("invalid value for attribute %s", name)
			}
		}
		el.attrs = append(el.attrs, attr)
	}
}

func (p *parser) parseJSXChildren(tag string) ([]expr, error) {
	var children []expr
	for {
		if p.eof() {
			if tag == "" {
				return nil, p.errf("unterminated fragment")
			}
			return nil, p.errf("unterminated element <%s>", tag)
		}
		switch {
		case p.hasPrefix("</"):
			p.pos += 2
			p.skipSpace()
			name := p.readJSXName()
			p.skipSpace()
			if p.peekRune() != '>' {
				return nil, p.errf("malformed closing tag")
			}
			p.pos++
			if name != tag {
				return nil, p.errf("closing tag </%s> does not match <%s>", name, tag)
			}
			return children, nil
		case p.peekRune() == '<':
			child, err := p.parseJSX()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		case p.peekRune() == '{':
			p.pos++
			p.skipSpace()
			if p.peekRune() == '}' {
				p.pos++
				continue
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			p.skipSpace()
			if p.peekRune() != '}' {
				return nil, p.errf("expected '}' to close child expression")
			}
			p.pos++
			children = append(children, e)
		default:
			start := p.pos
			for !p.eof() && p.peekRune() != '<' && p.peekRune() != '{' {
				p.pos++
			}
			text := collapseJSXText(decodeEntities(string(p.src[start:p.pos])))
			if text != "" {
				children = append(children, &jsxText{value: text})
			}
		}
	}
}

// collapseJSXText applies JSX whitespace rules: lines are trimmed,
// whitespace-only lines drop out, and remaining lines join with a space.
func collapseJSXText(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, ln := range lines {
		if trimmed := strings.TrimSpace(ln); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}

func decodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&#39;", "'",
		"&#x27;", "'",
		"&nbsp;", " ",
		"&mdash;", "—",
		"&ndash;", "–",
		"&hellip;", "…",
		"&copy;", "©",
		"&trade;", "™",
		"&times;", "×",
		"&rarr;", "→",
		"&larr;", "←",
	)
	return replacer.Replace(s)
}

func (p *parser) readJSXAttrString(quote rune) (string, error) {
	p.pos++
	start := p.pos
	for !p.eof() {
		if p.src[p.pos] == quote {
			raw := string(p.src[start:p.pos])
			p.pos++
			return raw, nil
		}
		p.pos++
	}
	return "", p.errf("unterminated attribute value")
}

func (p *parser) readJSXName() string {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '-' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	return string(p.src[start:p.pos])
}

// importError recovers the module specifier from an import statement so
// the message names it the way the runtime loader would.
func (p *parser) importError() error {
	rest := string(p.src[p.pos:])
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	specifier := "unknown"
	for _, q := range []string{`"`, `'`} {
		if i := strings.Index(rest, q); i >= 0 {
			if j := strings.Index(rest[i+1:], q); j >= 0 {
				specifier = rest[i+1 : i+1+j]
				break
			}
		}
	}
	return userErrorf("Unsupported import %q in editable preview. Keep the component self-contained.", specifier)
}

func (p *parser) skipTypeDecl(kind string) error {
	p.readWord()
	name := p.readWord()
	if name == "" {
		return p.errf("malformed %s declaration", kind)
	}
	if kind == "interface" {
		p.skipBalancedBraces()
		return nil
	}
	p.skipSpace()
	if p.peekRune() != '=' {
		return p.errf("malformed type alias %s", name)
	}
	p.pos++
	p.skipTypeUntil(";\n")
	if !p.eof() {
		p.pos++
	}
	return nil
}

func (p *parser) skipBalancedBraces() {
	p.skipSpace()
	if p.peekRune() != '{' {
		return
	}
	depth := 0
	for !p.eof() {
		switch p.src[p.pos] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				p.pos++
				return
			}
		}
		p.pos++
	}
}

// skipTypeUntil consumes a type annotation, stopping at any rune in stops
// that sits outside nested brackets.
func (p *parser) skipTypeUntil(stops string) {
	depth := 0
	for !p.eof() {
		c := p.src[p.pos]
		switch c {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			if depth == 0 {
				return
			}
			depth--
		default:
			if depth == 0 && strings.ContainsRune(stops, c) {
				return
			}
		}
		p.pos++
	}
}

func (p *parser) skipSpace() {
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case unicode.IsSpace(c):
			p.pos++
		case c == '/' && p.peekRuneAt(1) == '/':
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
		case c == '/' && p.peekRuneAt(1) == '*':
			p.pos += 2
			for !p.eof() && !p.hasPrefix("*/") {
				p.pos++
			}
			p.pos += 2
			if p.pos > len(p.src) {
				p.pos = len(p.src)
			}
		default:
			return
		}
	}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peekRune() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekRuneAt(offset int) rune {
	if p.pos+offset >= len(p.src) {
		return 0
	}
	return p.src[p.pos+offset]
}

func (p *parser) hasPrefix(s string) bool {
	for i, r := range []rune(s) {
		if p.peekRuneAt(i) != r {
			return false
		}
	}
	return true
}

func isWordRune(c rune, first bool) bool {
	if unicode.IsLetter(c) || c == '_' || c == '$' {
		return true
	}
	return !first && unicode.IsDigit(c)
}

func (p *parser) peekWord() string {
	i := p.pos
	for i < len(p.src) && isWordRune(p.src[i], i == p.pos) {
		i++
	}
	return string(p.src[p.pos:i])
}

func (p *parser) readWord() string {
	p.skipSpace()
	w := p.peekWord()
	p.pos += len([]rune(w))
	return w
}

func (p *parser) errf(format string, args ...any) error {
	line := 1
	for _, c := range p.src[:p.pos] {
		if c == '\n' {
			line++
		}
	}
	return fmt.Errorf("line %d: %s", line, fmt.Sprintf(format, args...))
}
