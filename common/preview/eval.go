package preview

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// value is the evaluator's dynamic type: nil, bool, float64, string,
// []value, map[string]value, *closure, *method, or node.
type value any

type closure struct {
	params []param
	locals []constStmt
	result expr
	env    *scope
}

type method struct {
	recv value
	name string
}

// maxCallDepth bounds component/closure recursion. A self-referential
// component would otherwise recurse until the Go stack is exhausted,
// which is fatal and cannot be recovered, so the limit has to live here
// rather than in a recover handler.
const maxCallDepth = 256

type evalState struct {
	depth int
}

type scope struct {
	vars   map[string]value
	parent *scope
	state  *evalState
}

func (s *scope) lookup(name string) (value, error) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%q is not defined in the editable preview sandbox", name)
}

type node interface{ isNode() }

type textNode struct{ value string }

type elementNode struct {
	tag      string
	attrs    map[string]string
	children []node
}

type listNode struct{ items []node }

type emptyNode struct{}

func (*textNode) isNode()    {}
func (*elementNode) isNode() {}
func (*listNode) isNode()    {}
func (*emptyNode) isNode()   {}

// render evaluates the default-exported component with empty props and
// returns the resulting tree.
func render(prog *program) (node, error) {
	if prog.defaultFunc == nil {
		return nil, errMissingDefaultExport
	}
	global := &scope{vars: map[string]value{}, state: &evalState{}}
	for name, fn := range prog.funcs {
		global.vars[name] = &closure{params: fn.params, locals: fn.locals, result: fn.result, env: global}
	}
	for i := range prog.consts {
		v, err := evalExpr(prog.consts[i].value, global)
		if err != nil {
			return nil, err
		}
		global.vars[prog.consts[i].name] = v
	}
	root := &closure{
		params: prog.defaultFunc.params,
		locals: prog.defaultFunc.locals,
		result: prog.defaultFunc.result,
		env:    global,
	}
	out, err := callClosure(root, []value{map[string]value{}})
	if err != nil {
		return nil, err
	}
	return toNode(out), nil
}

func callClosure(c *closure, args []value) (value, error) {
	st := c.env.state
	if st.depth >= maxCallDepth {
		return nil, fmt.Errorf("component rendering exceeded the sandbox call depth limit")
	}
	st.depth++
	defer func() { st.depth-- }()

	local := &scope{vars: map[string]value{}, parent: c.env, state: st}
	for i, prm := range c.params {
		var arg value
		if i < len(args) {
			arg = args[i]
		}
		if prm.destructure != nil {
			props, _ := arg.(map[string]value)
			for _, name := range prm.destructure {
				local.vars[name] = props[name]
			}
			continue
		}
		local.vars[prm.name] = arg
	}
	for i := range c.locals {
		v, err := evalExpr(c.locals[i].value, local)
		if err != nil {
			return nil, err
		}
		local.vars[c.locals[i].name] = v
	}
	if c.result == nil {
		return nil, nil
	}
	return evalExpr(c.result, local)
}

func evalExpr(e expr, env *scope) (value, error) {
	switch e := e.(type) {
	case *stringLit:
		return e.value, nil
	case *numberLit:
		return e.value, nil
	case *boolLit:
		return e.value, nil
	case *nullLit:
		return nil, nil
	case *templateLit:
		var sb strings.Builder
		for _, part := range e.parts {
			if part.expr == nil {
				sb.WriteString(part.text)
				continue
			}
			v, err := evalExpr(part.expr, env)
			if err != nil {
				return nil, err
			}
			sb.WriteString(stringify(v))
		}
		return sb.String(), nil
	case *arrayLit:
		items := make([]value, 0, len(e.elems))
		for _, el := range e.elems {
			v, err := evalExpr(el, env)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case *objectLit:
		obj := make(map[string]value, len(e.fields))
		for _, f := range e.fields {
			v, err := evalExpr(f.value, env)
			if err != nil {
				return nil, err
			}
			obj[f.name] = v
		}
		return obj, nil
	case *identExpr:
		return env.lookup(e.name)
	case *memberExpr:
		obj, err := evalExpr(e.object, env)
		if err != nil {
			return nil, err
		}
		return evalMember(obj, e.name)
	case *indexExpr:
		obj, err := evalExpr(e.object, env)
		if err != nil {
			return nil, err
		}
		idx, err := evalExpr(e.index, env)
		if err != nil {
			return nil, err
		}
		return evalIndex(obj, idx)
	case *callExpr:
		callee, err := evalExpr(e.callee, env)
		if err != nil {
			return nil, err
		}
		args := make([]value, 0, len(e.args))
		for _, a := range e.args {
			v, err := evalExpr(a, env)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		switch fn := callee.(type) {
		case *closure:
			return callClosure(fn, args)
		case *method:
			return callMethod(fn, args)
		default:
			return nil, fmt.Errorf("value is not callable")
		}
	case *unaryExpr:
		v, err := evalExpr(e.operand, env)
		if err != nil {
			return nil, err
		}
		switch e.op {
		case "!":
			return !truthy(v), nil
		case "-":
			n, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("unary '-' applied to a non-number")
			}
			return -n, nil
		}
		return nil, fmt.Errorf("unsupported unary operator %q", e.op)
	case *binaryExpr:
		return evalBinary(e, env)
	case *ternaryExpr:
		cond, err := evalExpr(e.cond, env)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return evalExpr(e.then, env)
		}
		return evalExpr(e.alt, env)
	case *arrowExpr:
		return &closure{params: e.params, locals: e.locals, result: e.result, env: env}, nil
	case *jsxText:
		return e.value, nil
	case *jsxFragment:
		items, err := evalChildren(e.children, env)
		if err != nil {
			return nil, err
		}
		return &listNode{items: items}, nil
	case *jsxElement:
		return evalElement(e, env)
	}
	return nil, fmt.Errorf("unsupported expression")
}

func evalBinary(e *binaryExpr, env *scope) (value, error) {
	left, err := evalExpr(e.left, env)
	if err != nil {
		return nil, err
	}
	// logical operators short-circuit and yield an operand, not a bool
	switch e.op {
	case "&&":
		if !truthy(left) {
			return left, nil
		}
		return evalExpr(e.right, env)
	case "||":
		if truthy(left) {
			return left, nil
		}
		return evalExpr(e.right, env)
	}
	right, err := evalExpr(e.right, env)
	if err != nil {
		return nil, err
	}
	switch e.op {
	case "+":
		ln, lok := left.(float64)
		rn, rok := right.(float64)
		if lok && rok {
			return ln + rn, nil
		}
		return stringify(left) + stringify(right), nil
	case "-", "*", "/", "%":
		ln, lok := left.(float64)
		rn, rok := right.(float64)
		if !lok || !rok {
			return nil, fmt.Errorf("arithmetic operator %q applied to non-numbers", e.op)
		}
		switch e.op {
		case "-":
			return ln - rn, nil
		case "*":
			return ln * rn, nil
		case "/":
			return ln / rn, nil
		default:
			return math.Mod(ln, rn), nil
		}
	case "===", "==":
		return looseEqual(left, right), nil
	case "!==", "!=":
		return !looseEqual(left, right), nil
	case "<", ">", "<=", ">=":
		return compare(e.op, left, right)
	}
	return nil, fmt.Errorf("unsupported operator %q", e.op)
}

func looseEqual(a, b value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func compare(op string, a, b value) (value, error) {
	if an, ok := a.(float64); ok {
		bn, ok := b.(float64)
		if !ok {
			return nil, fmt.Errorf("comparison %q between mismatched types", op)
		}
		switch op {
		case "<":
			return an < bn, nil
		case ">":
			return an > bn, nil
		case "<=":
			return an <= bn, nil
		default:
			return an >= bn, nil
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return nil, fmt.Errorf("comparison %q between mismatched types", op)
	}
	switch op {
	case "<":
		return as < bs, nil
	case ">":
		return as > bs, nil
	case "<=":
		return as <= bs, nil
	default:
		return as >= bs, nil
	}
}

func evalMember(obj value, name string) (value, error) {
	switch o := obj.(type) {
	case nil:
		return nil, nil
	case map[string]value:
		return o[name], nil
	case []value:
		if name == "length" {
			return float64(len(o)), nil
		}
		return &method{recv: o, name: name}, nil
	case string:
		if name == "length" {
			return float64(len([]rune(o))), nil
		}
		return &method{recv: o, name: name}, nil
	case float64:
		return &method{recv: o, name: name}, nil
	}
	return nil, fmt.Errorf("cannot read property %q", name)
}

func evalIndex(obj, idx value) (value, error) {
	switch o := obj.(type) {
	case []value:
		n, ok := idx.(float64)
		if !ok {
			return nil, fmt.Errorf("array index must be a number")
		}
		i := int(n)
		if i < 0 || i >= len(o) {
			return nil, nil
		}
		return o[i], nil
	case map[string]value:
		key, ok := idx.(string)
		if !ok {
			return nil, fmt.Errorf("object index must be a string")
		}
		return o[key], nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("value is not indexable")
}

func callMethod(m *method, args []value) (value, error) {
	switch recv := m.recv.(type) {
	case []value:
		switch m.name {
		case "map":
			fn, ok := argClosure(args)
			if !ok {
				return nil, fmt.Errorf("map expects a function argument")
			}
			out := make([]value, 0, len(recv))
			for i, item := range recv {
				v, err := callClosure(fn, []value{item, float64(i)})
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		case "filter":
			fn, ok := argClosure(args)
			if !ok {
				return nil, fmt.Errorf("filter expects a function argument")
			}
			var out []value
			for i, item := range recv {
				keep, err := callClosure(fn, []value{item, float64(i)})
				if err != nil {
					return nil, err
				}
				if truthy(keep) {
					out = append(out, item)
				}
			}
			return out, nil
		case "join":
			sep := ","
			if len(args) > 0 {
				if s, ok := args[0].(string); ok {
					sep = s
				}
			}
			parts := make([]string, len(recv))
			for i, item := range recv {
				parts[i] = stringify(item)
			}
			return strings.Join(parts, sep), nil
		case "includes":
			if len(args) == 0 {
				return false, nil
			}
			for _, item := range recv {
				if looseEqual(item, args[0]) {
					return true, nil
				}
			}
			return false, nil
		case "slice":
			start, end := 0, len(recv)
			if len(args) > 0 {
				if n, ok := args[0].(float64); ok {
					start = clampIndex(int(n), len(recv))
				}
			}
			if len(args) > 1 {
				if n, ok := args[1].(float64); ok {
					end = clampIndex(int(n), len(recv))
				}
			}
			if start > end {
				start = end
			}
			out := make([]value, end-start)
			copy(out, recv[start:end])
			return out, nil
		}
	case string:
		switch m.name {
		case "toUpperCase":
			return strings.ToUpper(recv), nil
		case "toLowerCase":
			return strings.ToLower(recv), nil
		case "trim":
			return strings.TrimSpace(recv), nil
		case "includes":
			if len(args) == 0 {
				return false, nil
			}
			sub, _ := args[0].(string)
			return strings.Contains(recv, sub), nil
		case "split":
			sep := ""
			if len(args) > 0 {
				sep, _ = args[0].(string)
			}
			parts := strings.Split(recv, sep)
			out := make([]value, len(parts))
			for i, part := range parts {
				out[i] = part
			}
			return out, nil
		case "replace":
			if len(args) < 2 {
				return recv, nil
			}
			old, _ := args[0].(string)
			repl, _ := args[1].(string)
			return strings.Replace(recv, old, repl, 1), nil
		}
	case float64:
		switch m.name {
		case "toFixed":
			digits := 0
			if len(args) > 0 {
				if n, ok := args[0].(float64); ok {
					digits = int(n)
				}
			}
			return strconv.FormatFloat(recv, 'f', digits, 64), nil
		case "toString":
			return formatNumber(recv), nil
		}
	}
	return nil, fmt.Errorf("%q is not a supported method in the editable preview sandbox", m.name)
}

func argClosure(args []value) (*closure, bool) {
	if len(args) == 0 {
		return nil, false
	}
	fn, ok := args[0].(*closure)
	return fn, ok
}

func clampIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

func evalChildren(children []expr, env *scope) ([]node, error) {
	var items []node
	for _, child := range children {
		v, err := evalExpr(child, env)
		if err != nil {
			return nil, err
		}
		items = append(items, toNode(v))
	}
	return items, nil
}

func evalElement(e *jsxElement, env *scope) (value, error) {
	if first := []rune(e.tag)[0]; unicode.IsUpper(first) {
		return evalComponent(e, env)
	}
	el := &elementNode{tag: e.tag, attrs: map[string]string{}}
	for _, attr := range e.attrs {
		if attr.value == nil {
			el.attrs[attr.name] = "true"
			continue
		}
		v, err := evalExpr(attr.value, env)
		if err != nil {
			return nil, err
		}
		if s, ok := stringifyAttr(v); ok {
			el.attrs[attr.name] = s
		}
	}
	children, err := evalChildren(e.children, env)
	if err != nil {
		return nil, err
	}
	el.children = children
	return el, nil
}

func evalComponent(e *jsxElement, env *scope) (value, error) {
	binding, err := env.lookup(e.tag)
	if err != nil {
		return nil, err
	}
	fn, ok := binding.(*closure)
	if !ok {
		return &emptyNode{}, nil
	}
	props := map[string]value{}
	for _, attr := range e.attrs {
		if attr.value == nil {
			props[attr.name] = true
			continue
		}
		v, err := evalExpr(attr.value, env)
		if err != nil {
			return nil, err
		}
		props[attr.name] = v
	}
	if len(e.children) > 0 {
		items, err := evalChildren(e.children, env)
		if err != nil {
			return nil, err
		}
		props["children"] = &listNode{items: items}
	}
	out, err := callClosure(fn, []value{props})
	if err != nil {
		return nil, err
	}
	return toNode(out), nil
}

// stringifyAttr renders an attribute value, reporting false when the
// attribute should be omitted entirely (nil and false, like JSX).
func stringifyAttr(v value) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case bool:
		if !v {
			return "", false
		}
		return "true", true
	case string:
		return v, true
	case float64:
		return formatNumber(v), true
	case map[string]value:
		// style objects serialize with sorted keys so output is stable
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+stringify(v[k]))
		}
		return strings.Join(parts, "; "), true
	}
	return "", false
}

func toNode(v value) node {
	switch v := v.(type) {
	case nil, bool:
		return &emptyNode{}
	case string:
		return &textNode{value: v}
	case float64:
		return &textNode{value: formatNumber(v)}
	case []value:
		items := make([]node, 0, len(v))
		for _, item := range v {
			items = append(items, toNode(item))
		}
		return &listNode{items: items}
	case node:
		return v
	}
	return &emptyNode{}
}

func truthy(v value) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	}
	return true
}

func stringify(v value) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(v)
	case []value:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ",")
	}
	return ""
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
