package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/red1oon/ADUI/pkg/displaylogic"
)

// Evaluator parses display logic rules without any host-code evaluation.
//
// Two dialects are accepted and may be mixed:
//   - legacy: `@damage@='Y' & @count@>3 | @#role@=admin`
//   - C-like: `damage == true && count > 3 || extras.role == "admin"`
//
// `@name@` and bare identifiers read Context.Values; `@#name@` and the
// `extras.` prefix read Context.Extras. A comma separated literal list on the
// right of `=` matches any entry. Booleans compare equal to Y/N strings.
type Evaluator struct{}

func New() *Evaluator { return &Evaluator{} }

// Compile parses rule once so callers evaluating it repeatedly skip the
// tokenizer. An empty rule compiles to a node that is always true.
func Compile(rule string) (Rule, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return Rule{}, nil
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return Rule{}, err
	}
	node, err := parseExpression(tokens)
	if err != nil {
		return Rule{}, err
	}
	return Rule{root: node}, nil
}

// Rule is a parsed display logic expression.
type Rule struct {
	root node
}

// Eval runs the rule against ctx.
func (r Rule) Eval(ctx displaylogic.Context) (bool, error) {
	if r.root == nil {
		return true, nil
	}
	return r.root.eval(ctx)
}

func (e *Evaluator) Eval(fieldID, rule string, ctx displaylogic.Context) (bool, error) {
	compiled, err := Compile(rule)
	if err != nil {
		return false, fmt.Errorf("displaylogic/expr: field %s: %w", fieldID, err)
	}
	return compiled.Eval(ctx)
}

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenRef
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenComma
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDelimiter(ch byte) bool {
	return isSpace(ch) || strings.IndexByte("()!=&|<>,@'\"", ch) >= 0
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	emit := func(kind tokenKind, raw string) {
		tokens = append(tokens, token{kind: kind, raw: raw})
	}
	peek := func(i int) byte {
		if i >= len(input) {
			return 0
		}
		return input[i]
	}

	for i := 0; i < len(input); {
		ch := input[i]
		switch {
		case isSpace(ch):
			i++
		case ch == '(':
			emit(tokenLParen, "(")
			i++
		case ch == ')':
			emit(tokenRParen, ")")
			i++
		case ch == ',':
			emit(tokenComma, ",")
			i++
		case ch == '!':
			if peek(i+1) == '=' {
				emit(tokenNeq, "!=")
				i += 2
				continue
			}
			emit(tokenNot, "!")
			i++
		case ch == '=':
			i++
			if peek(i) == '=' {
				i++
			}
			emit(tokenEq, "=")
		case ch == '<' || ch == '>':
			kind, raw := tokenLt, "<"
			if ch == '>' {
				kind, raw = tokenGt, ">"
			}
			i++
			if peek(i) == '=' {
				kind++
				raw += "="
				i++
			}
			emit(kind, raw)
		case ch == '&':
			i++
			if peek(i) == '&' {
				i++
			}
			emit(tokenAnd, "&")
		case ch == '|':
			i++
			if peek(i) == '|' {
				i++
			}
			emit(tokenOr, "|")
		case ch == '@':
			end := strings.IndexByte(input[i+1:], '@')
			if end < 0 {
				return nil, errors.New("unterminated @variable@")
			}
			name := strings.TrimSpace(input[i+1 : i+1+end])
			if name == "" {
				return nil, errors.New("empty @variable@")
			}
			emit(tokenRef, name)
			i += end + 2
		case ch == '\'' || ch == '"':
			value, next, err := readQuoted(input, i)
			if err != nil {
				return nil, err
			}
			emit(tokenString, value)
			i = next
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			raw := input[start:i]
			switch strings.ToLower(raw) {
			case "true", "false":
				emit(tokenBool, strings.ToLower(raw))
			case "null", "nil":
				emit(tokenNull, "null")
			default:
				if looksLikeNumber(raw) {
					emit(tokenNumber, raw)
				} else {
					emit(tokenIdent, raw)
				}
			}
		}
	}
	return tokens, nil
}

// readQuoted reads a quoted literal starting at input[start]. Backslash
// escapes the quote character; legacy rules never need more than that.
func readQuoted(input string, start int) (string, int, error) {
	quote := input[start]
	var b strings.Builder
	for i := start + 1; i < len(input); i++ {
		ch := input[i]
		if ch == '\\' && i+1 < len(input) {
			i++
			b.WriteByte(input[i])
			continue
		}
		if ch == quote {
			return b.String(), i + 1, nil
		}
		b.WriteByte(ch)
	}
	return "", 0, errors.New("unterminated string literal")
}

func looksLikeNumber(raw string) bool {
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}

type node interface {
	eval(ctx displaylogic.Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx displaylogic.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx displaylogic.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx displaylogic.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type truthyNode struct{ ref variable }

func (n truthyNode) eval(ctx displaylogic.Context) (bool, error) {
	value, ok := n.ref.lookup(ctx)
	if !ok {
		return false, nil
	}
	return truthy(value), nil
}

// variable names a value in Values or, when extra is set, in Extras.
type variable struct {
	name  string
	extra bool
}

func newVariable(tok token) variable {
	name := tok.raw
	if strings.HasPrefix(name, "#") {
		return variable{name: strings.TrimPrefix(name, "#"), extra: true}
	}
	if tok.kind == tokenIdent && strings.HasPrefix(strings.ToLower(name), "extras.") {
		return variable{name: name[len("extras."):], extra: true}
	}
	return variable{name: name}
}

func (v variable) lookup(ctx displaylogic.Context) (any, bool) {
	if v.extra {
		return lookupPath(ctx.Extras, v.name)
	}
	return lookupPath(ctx.Values, v.name)
}

// operand is either a literal or another variable.
type operand struct {
	lit   literal
	ref   *variable
	isRef bool
}

type literalKind int

const (
	litString literalKind = iota
	litNumber
	litBool
	litNull
)

type literal struct {
	kind literalKind
	raw  string
}

type compareNode struct {
	ref      variable
	op       tokenKind
	operands []operand
}

func (n compareNode) eval(ctx displaylogic.Context) (bool, error) {
	value, _ := n.ref.lookup(ctx)
	switch n.op {
	case tokenEq, tokenNeq:
		matched := false
		for _, op := range n.operands {
			eq, err := equals(value, op, ctx)
			if err != nil {
				return false, err
			}
			if eq {
				matched = true
				break
			}
		}
		if n.op == tokenEq {
			return matched, nil
		}
		return !matched, nil
	default:
		if len(n.operands) != 1 {
			return false, errors.New("ordering comparison takes a single operand")
		}
		return order(value, n.op, n.operands[0], ctx)
	}
}

func equals(value any, op operand, ctx displaylogic.Context) (bool, error) {
	if op.isRef {
		other, _ := op.ref.lookup(ctx)
		return coerceString(value) == coerceString(other), nil
	}
	switch op.lit.kind {
	case litNull:
		return value == nil || coerceString(value) == "", nil
	case litBool:
		got, _ := coerceBool(value)
		return got == (op.lit.raw == "true"), nil
	case litNumber:
		want, err := strconv.ParseFloat(op.lit.raw, 64)
		if err != nil {
			return false, fmt.Errorf("invalid number literal %q", op.lit.raw)
		}
		got, ok := coerceNumber(value)
		return ok && got == want, nil
	default:
		return coerceString(value) == op.lit.raw, nil
	}
}

func order(value any, op tokenKind, rhs operand, ctx displaylogic.Context) (bool, error) {
	var other any = rhs.lit.raw
	if rhs.isRef {
		other, _ = rhs.ref.lookup(ctx)
	} else if rhs.lit.kind == litNull || rhs.lit.kind == litBool {
		return false, fmt.Errorf("cannot order against %s", rhs.lit.raw)
	}

	var cmp int
	left, lok := coerceNumber(value)
	right, rok := coerceNumber(other)
	if lok && rok {
		switch {
		case left < right:
			cmp = -1
		case left > right:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(coerceString(value), coerceString(other))
	}

	switch op {
	case tokenLt:
		return cmp < 0, nil
	case tokenLte:
		return cmp <= 0, nil
	case tokenGt:
		return cmp > 0, nil
	case tokenGte:
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("unsupported operator")
	}
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpression(tokens []token) (node, error) {
	if len(tokens) == 0 {
		return nil, errors.New("empty expression")
	}
	stream := &tokenStream{tokens: tokens}
	root, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return root, nil
}

func parseOr(stream *tokenStream) (node, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenOr) {
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func parseAnd(stream *tokenStream) (node, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenAnd) {
		right, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func parseUnary(stream *tokenStream) (node, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (node, error) {
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("missing closing ')'")
		}
		return inner, nil
	}

	tok, ok := stream.next()
	if !ok {
		return nil, errors.New("unexpected end of expression")
	}
	if tok.kind != tokenIdent && tok.kind != tokenRef {
		return nil, fmt.Errorf("expected variable, got %q", tok.raw)
	}
	ref := newVariable(tok)

	op, ok := stream.peek()
	if !ok {
		return truthyNode{ref: ref}, nil
	}
	switch op.kind {
	case tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte:
	case tokenNot:
		// Legacy not-equal: @a@!'X'.
		op.kind = tokenNeq
	default:
		return truthyNode{ref: ref}, nil
	}
	stream.pos++

	operands, err := stream.operands()
	if err != nil {
		return nil, err
	}
	return compareNode{ref: ref, op: op.kind, operands: operands}, nil
}

func (s *tokenStream) peek() (token, bool) {
	if s.pos >= len(s.tokens) {
		return token{}, false
	}
	return s.tokens[s.pos], true
}

func (s *tokenStream) next() (token, bool) {
	tok, ok := s.peek()
	if ok {
		s.pos++
	}
	return tok, ok
}

func (s *tokenStream) match(kind tokenKind) bool {
	if tok, ok := s.peek(); ok && tok.kind == kind {
		s.pos++
		return true
	}
	return false
}

func (s *tokenStream) operands() ([]operand, error) {
	var out []operand
	for {
		tok, ok := s.next()
		if !ok {
			return nil, errors.New("missing comparison operand")
		}
		switch tok.kind {
		case tokenString, tokenIdent:
			// Bare words on the right are literals: @status@=CO.
			out = append(out, operand{lit: literal{kind: litString, raw: tok.raw}})
		case tokenNumber:
			out = append(out, operand{lit: literal{kind: litNumber, raw: tok.raw}})
		case tokenBool:
			out = append(out, operand{lit: literal{kind: litBool, raw: tok.raw}})
		case tokenNull:
			out = append(out, operand{lit: literal{kind: litNull, raw: tok.raw}})
		case tokenRef:
			ref := newVariable(tok)
			out = append(out, operand{ref: &ref, isRef: true})
		default:
			return nil, fmt.Errorf("expected operand, got %q", tok.raw)
		}
		if !s.match(tokenComma) {
			return out, nil
		}
	}
}

func lookupPath(values map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if len(values) == 0 || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}

	var current any = values
	for _, part := range strings.Split(path, ".") {
		typed, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := typed[strings.TrimSpace(part)]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		b, _ := coerceBool(v)
		return b
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		if n, ok := coerceNumber(v); ok {
			return n != 0
		}
		return true
	}
}

func coerceBool(value any) (bool, bool) {
	switch v := value.(type) {
	case nil:
		return false, false
	case bool:
		return v, true
	case string:
		trimmed := strings.TrimSpace(v)
		switch strings.ToUpper(trimmed) {
		case "Y", "YES":
			return true, true
		case "N", "NO", "":
			return false, true
		}
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed, true
		}
		return true, true
	default:
		return truthy(value), true
	}
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// coerceString renders booleans as Y/N so legacy rules compare naturally.
func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "Y"
		}
		return "N"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}
