package synth

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/version"
	"strconv"
	"strings"

	"martianoff/visitorgen/internal/hierarchy"
	"martianoff/visitorgen/internal/naming"
)

// Host describes what the module receiving the generated code can express.
type Host struct {
	// GoVersion is the module's go directive ("go1.22" or "1.22"). Empty means
	// the newest language version.
	GoVersion string
}

// Generics reports whether the host can declare type parameters.
func (h Host) Generics() bool {
	v := h.GoVersion
	if v == "" {
		return true
	}
	if !strings.HasPrefix(v, "go") {
		v = "go" + v
	}
	if !version.IsValid(v) {
		return true
	}
	return version.Compare(v, "go1.18") >= 0
}

// plan holds every name and type expression derived from one snapshot.
type plan struct {
	snap     hierarchy.Snapshot
	cfg      naming.DispatchConfig
	generics bool

	root       string // simple name of the root
	exported   bool
	rootParams []hierarchy.TypeParam
	rootArg    string // parameter name of a value of the root type

	leaves []leafPlan

	// methods holds every method name a companion may declare
	methods map[string]bool
}

type leafPlan struct {
	hierarchy.LeafRecord
	// field names the leaf's slot in companion and builder structs
	field string
}

func newPlan(snap hierarchy.Snapshot, cfg naming.DispatchConfig, host Host) *plan {
	p := &plan{
		snap:       snap,
		cfg:        cfg,
		generics:   host.Generics(),
		root:       snap.Root.Type.SimpleName(),
		rootParams: snap.Root.Type.TypeParams(),
	}
	p.exported = token.IsExported(p.root)
	if !p.generics {
		p.rootParams = nil
	}

	p.methods = map[string]bool{
		cfg.AcceptMethodName:    true,
		cfg.DefaultMethodName(): true,
		p.buildMethod():         true,
	}
	for _, l := range snap.Leaves {
		p.methods[l.CaseMethod] = true
	}
	for _, l := range snap.Leaves {
		p.leaves = append(p.leaves, leafPlan{
			LeafRecord: l,
			field:      uniqueName(l.Binding, p.methods),
		})
	}
	p.rootArg = uniqueName(naming.Binding(p.root), set(cfg.VisitorArgName, cfg.ArgumentName))
	return p
}

// public applies the root's export status to a derived name.
func (p *plan) public(name string) string {
	if p.exported {
		return naming.UpperFirst(name)
	}
	return naming.LowerFirst(name)
}

func (p *plan) visitorName() string  { return p.public(p.root + "Visitor") }
func (p *plan) acceptorName() string { return p.public(p.root + "Acceptor") }
func (p *plan) entryName() string    { return p.public("Accept" + naming.UpperFirst(p.root)) }
func (p *plan) erasedName() string   { return naming.LowerFirst(p.root) + "VisitorErased" }

func (p *plan) implName(kind string) string {
	return p.public(p.root + "Visitor" + kind)
}

func (p *plan) constructorName(typeName string) string {
	return p.public("New" + naming.UpperFirst(typeName))
}

// buildMethod names the terminal operation of typestate builders.
func (p *plan) buildMethod() string {
	if p.cfg.ExportedCases() {
		return "Build"
	}
	return "build"
}

// hasReturn and hasArgument describe the typed contract. Erased hosts keep
// the shape of the signatures with any in place of the type variables.
func (p *plan) hasReturn() bool   { return p.cfg.HasReturn }
func (p *plan) hasArgument() bool { return p.cfg.HasArgument }

// anyType is the empty interface spelled for the host.
func (p *plan) anyType() ast.Expr {
	if p.generics {
		return ast.NewIdent("any")
	}
	return &ast.InterfaceType{Methods: &ast.FieldList{}}
}

// returnType is R, or any on hosts without generics.
func (p *plan) returnType() ast.Expr {
	if p.generics {
		return ast.NewIdent(p.cfg.ReturnTypeVarName)
	}
	return p.anyType()
}

func (p *plan) argumentType() ast.Expr {
	if p.generics {
		return ast.NewIdent(p.cfg.ArgumentTypeVarName)
	}
	return p.anyType()
}

// rootTypeParams declares the root's own type parameters.
func (p *plan) rootTypeParams() *ast.FieldList {
	if len(p.rootParams) == 0 {
		return nil
	}
	list := &ast.FieldList{}
	for _, tp := range p.rootParams {
		list.List = append(list.List, &ast.Field{
			Names: []*ast.Ident{ast.NewIdent(tp.Name)},
			Type:  constraintExpr(tp.Constraint),
		})
	}
	return list
}

// typeParams declares the contract's type parameters: the root's, then R and A.
func (p *plan) typeParams() *ast.FieldList {
	if !p.generics {
		return nil
	}
	list := p.rootTypeParams()
	if list == nil {
		list = &ast.FieldList{}
	}
	if p.hasReturn() {
		list.List = append(list.List, &ast.Field{
			Names: []*ast.Ident{ast.NewIdent(p.cfg.ReturnTypeVarName)},
			Type:  ast.NewIdent("any"),
		})
	}
	if p.hasArgument() {
		list.List = append(list.List, &ast.Field{
			Names: []*ast.Ident{ast.NewIdent(p.cfg.ArgumentTypeVarName)},
			Type:  ast.NewIdent("any"),
		})
	}
	if len(list.List) == 0 {
		return nil
	}
	return list
}

// rootArgs instantiates the root with its own type parameters.
func (p *plan) rootArgs() []ast.Expr {
	var args []ast.Expr
	for _, tp := range p.rootParams {
		args = append(args, ast.NewIdent(tp.Name))
	}
	return args
}

// typeArgs instantiates the contract with its own type parameters.
func (p *plan) typeArgs() []ast.Expr {
	args := p.rootArgs()
	if !p.generics {
		return args
	}
	if p.hasReturn() {
		args = append(args, ast.NewIdent(p.cfg.ReturnTypeVarName))
	}
	if p.hasArgument() {
		args = append(args, ast.NewIdent(p.cfg.ArgumentTypeVarName))
	}
	return args
}

// erasedArgs instantiates the contract with any for R and A.
func (p *plan) erasedArgs() []ast.Expr {
	args := p.rootArgs()
	if !p.generics {
		return args
	}
	if p.hasReturn() {
		args = append(args, ast.NewIdent("any"))
	}
	if p.hasArgument() {
		args = append(args, ast.NewIdent("any"))
	}
	return args
}

func (p *plan) visitorType() ast.Expr       { return instantiate(p.visitorName(), p.typeArgs()) }
func (p *plan) erasedVisitorType() ast.Expr { return instantiate(p.visitorName(), p.erasedArgs()) }

func (p *plan) rootType() ast.Expr {
	return instantiate(p.root, p.rootArgs())
}

// leafType is the type a leaf is dispatched as: a pointer unless the leaf
// asked for value receivers.
func (p *plan) leafType(l leafPlan) ast.Expr {
	t := instantiate(l.SimpleName(), p.rootArgs())
	if l.Receiver == hierarchy.ValueReceiver {
		return t
	}
	return &ast.StarExpr{X: t}
}

// caseFunc is the signature of a leaf's case method.
func (p *plan) caseFunc(l leafPlan) *ast.FuncType {
	params := []*ast.Field{field(l.Binding, p.leafType(l))}
	if p.hasArgument() {
		params = append(params, field(p.cfg.ArgumentName, p.argumentType()))
	}
	return funcType(params, p.results(p.returnType()))
}

// fallbackFunc is the signature of the Default fallback.
func (p *plan) fallbackFunc() *ast.FuncType {
	params := []*ast.Field{field(p.rootArg, p.rootType())}
	if p.hasArgument() {
		params = append(params, field(p.cfg.ArgumentName, p.argumentType()))
	}
	return funcType(params, p.results(p.returnType()))
}

func (p *plan) results(t ast.Expr) []*ast.Field {
	if !p.hasReturn() {
		return nil
	}
	return []*ast.Field{{Type: t}}
}

// callArgs are the arguments forwarding a case: the binding, then the argument.
func (p *plan) callArgs(first string) []ast.Expr {
	args := []ast.Expr{ast.NewIdent(first)}
	if p.hasArgument() {
		args = append(args, ast.NewIdent(p.cfg.ArgumentName))
	}
	return args
}

// forward returns call as a return statement when the contract returns, and
// as an expression statement otherwise.
func (p *plan) forward(call ast.Expr) ast.Stmt {
	if p.hasReturn() {
		return &ast.ReturnStmt{Results: []ast.Expr{call}}
	}
	return &ast.ExprStmt{X: call}
}

func (p *plan) bindings() map[string]bool {
	taken := set(p.cfg.VisitorArgName, p.cfg.ArgumentName, p.rootArg)
	for _, l := range p.leaves {
		taken[l.Binding] = true
	}
	for _, tp := range p.rootParams {
		taken[tp.Name] = true
	}
	taken[p.cfg.ReturnTypeVarName] = true
	taken[p.cfg.ArgumentTypeVarName] = true
	return taken
}

// constraintExpr parses a constraint as written; unparsable text becomes any.
func constraintExpr(src string) ast.Expr {
	if strings.TrimSpace(src) == "" {
		return ast.NewIdent("any")
	}
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return ast.NewIdent("any")
	}
	return stripPositions(expr)
}

// stripPositions clears positions so a parsed expression prints cleanly in a
// synthesized file.
func stripPositions(expr ast.Expr) ast.Expr {
	ast.Inspect(expr, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Ident:
			n.NamePos = token.NoPos
		case *ast.BasicLit:
			n.ValuePos = token.NoPos
		case *ast.BinaryExpr:
			n.OpPos = token.NoPos
		case *ast.UnaryExpr:
			n.OpPos = token.NoPos
		case *ast.StarExpr:
			n.Star = token.NoPos
		case *ast.ParenExpr:
			n.Lparen, n.Rparen = token.NoPos, token.NoPos
		case *ast.IndexExpr:
			n.Lbrack, n.Rbrack = token.NoPos, token.NoPos
		case *ast.IndexListExpr:
			n.Lbrack, n.Rbrack = token.NoPos, token.NoPos
		case *ast.InterfaceType:
			n.Interface = token.NoPos
			n.Methods.Opening, n.Methods.Closing = token.NoPos, token.NoPos
		case *ast.FuncType:
			n.Func = token.NoPos
			if n.Params != nil {
				n.Params.Opening, n.Params.Closing = token.NoPos, token.NoPos
			}
		case *ast.ArrayType:
			n.Lbrack = token.NoPos
		case *ast.MapType:
			n.Map = token.NoPos
		case *ast.ChanType:
			n.Begin, n.Arrow = token.NoPos, token.NoPos
		}
		return true
	})
	return expr
}

// instantiate builds Name, Name[T] or Name[T, U].
func instantiate(name string, args []ast.Expr) ast.Expr {
	switch len(args) {
	case 0:
		return ast.NewIdent(name)
	case 1:
		return &ast.IndexExpr{X: ast.NewIdent(name), Index: args[0]}
	}
	return &ast.IndexListExpr{X: ast.NewIdent(name), Indices: args}
}

func field(name string, typ ast.Expr) *ast.Field {
	f := &ast.Field{Type: typ}
	if name != "" {
		f.Names = []*ast.Ident{ast.NewIdent(name)}
	}
	return f
}

func funcType(params, results []*ast.Field) *ast.FuncType {
	ft := &ast.FuncType{Params: &ast.FieldList{List: params}}
	if len(results) > 0 {
		ft.Results = &ast.FieldList{List: results}
	}
	return ft
}

func typeDecl(name string, params *ast.FieldList, typ ast.Expr) *ast.GenDecl {
	return &ast.GenDecl{
		Tok: token.TYPE,
		Specs: []ast.Spec{&ast.TypeSpec{
			Name:       ast.NewIdent(name),
			TypeParams: params,
			Type:       typ,
		}},
	}
}

func method(recvName string, recvType ast.Expr, name string, ft *ast.FuncType, body ...ast.Stmt) *ast.FuncDecl {
	return &ast.FuncDecl{
		Recv: &ast.FieldList{List: []*ast.Field{field(recvName, recvType)}},
		Name: ast.NewIdent(name),
		Type: ft,
		Body: &ast.BlockStmt{List: body},
	}
}

func function(name string, params *ast.FieldList, ft *ast.FuncType, body ...ast.Stmt) *ast.FuncDecl {
	ft.TypeParams = params
	return &ast.FuncDecl{
		Name: ast.NewIdent(name),
		Type: ft,
		Body: &ast.BlockStmt{List: body},
	}
}

func sel(x, name string) *ast.SelectorExpr {
	return &ast.SelectorExpr{X: ast.NewIdent(x), Sel: ast.NewIdent(name)}
}

func call(fn ast.Expr, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{Fun: fn, Args: args}
}

func ret(results ...ast.Expr) *ast.ReturnStmt {
	return &ast.ReturnStmt{Results: results}
}

func keyValue(key string, value ast.Expr) *ast.KeyValueExpr {
	return &ast.KeyValueExpr{Key: ast.NewIdent(key), Value: value}
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func union(sets ...map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for _, s := range sets {
		for k := range s {
			out[k] = true
		}
	}
	return out
}

// uniqueName returns base, or base with the smallest numeric suffix that is
// not taken.
func uniqueName(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for i := 2; ; i++ {
		name := base + strconv.Itoa(i)
		if !taken[name] {
			return name
		}
	}
}
