package preview

// The editable preview dialect is a closed subset of component source:
// top-level const declarations, helper function components, and exactly
// one default-exported component function. Everything an expression can
// reference must be declared in the same file, which is what makes the
// evaluator a sandbox rather than an interpreter for arbitrary code.

type expr interface{ exprNode() }

type stringLit struct{ value string }

type numberLit struct{ value float64 }

type boolLit struct{ value bool }

type nullLit struct{}

type templatePart struct {
	text string
	expr expr // nil for literal text parts
}

type templateLit struct{ parts []templatePart }

type arrayLit struct{ elems []expr }

type objectField struct {
	name  string
	value expr
}

type objectLit struct{ fields []objectField }

type identExpr struct{ name string }

type memberExpr struct {
	object expr
	name   string
}

type indexExpr struct {
	object expr
	index  expr
}

type callExpr struct {
	callee expr
	args   []expr
}

type unaryExpr struct {
	op      string
	operand expr
}

type binaryExpr struct {
	op          string
	left, right expr
}

type ternaryExpr struct {
	cond, then, alt expr
}

type arrowExpr struct {
	params []param
	locals []constStmt
	result expr // nil when the block never returns
}

type jsxAttr struct {
	name  string
	value expr // nil for bare boolean attributes
}

type jsxElement struct {
	tag      string
	attrs    []jsxAttr
	children []expr
}

type jsxFragment struct{ children []expr }

type jsxText struct{ value string }

func (*stringLit) exprNode()   {}
func (*numberLit) exprNode()   {}
func (*boolLit) exprNode()     {}
func (*nullLit) exprNode()     {}
func (*templateLit) exprNode() {}
func (*arrayLit) exprNode()    {}
func (*objectLit) exprNode()   {}
func (*identExpr) exprNode()   {}
func (*memberExpr) exprNode()  {}
func (*indexExpr) exprNode()   {}
func (*callExpr) exprNode()    {}
func (*unaryExpr) exprNode()   {}
func (*binaryExpr) exprNode()  {}
func (*ternaryExpr) exprNode() {}
func (*arrowExpr) exprNode()   {}
func (*jsxElement) exprNode()  {}
func (*jsxFragment) exprNode() {}
func (*jsxText) exprNode()     {}

// param is either a plain name or a destructured props pattern.
type param struct {
	name        string
	destructure []string
}

type constStmt struct {
	name  string
	value expr
}

type funcDecl struct {
	name   string
	params []param
	locals []constStmt
	result expr
}

type program struct {
	consts      []constStmt
	funcs       map[string]*funcDecl
	defaultFunc *funcDecl
}
