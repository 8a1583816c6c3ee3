package synth

import (
	"fmt"
	"go/ast"
	"go/token"

	"martianoff/visitorgen/internal/generator"
)

const (
	kindLambda   = "Lambda"
	kindConstant = "Constant"
	kindDefault  = "Default"
)

// lambda emits <Root>VisitorLambda: one function field per leaf, each case
// delegating to its field.
func (p *plan) lambda() []generator.Decl {
	name := p.implName(kindLambda)
	fields := &ast.FieldList{}
	for _, l := range p.leaves {
		fields.List = append(fields.List, field(l.field, p.caseFunc(l)))
	}

	decls := []generator.Decl{
		{
			Doc:  []string{fmt.Sprintf("%s implements %s with one function per case.", name, p.visitorName())},
			Node: typeDecl(name, p.typeParams(), &ast.StructType{Fields: fields}),
		},
		p.constructor(name, func(l leafPlan) ast.Expr { return p.caseFunc(l) }),
	}

	recv := uniqueName("l", p.bindings())
	for _, l := range p.leaves {
		body := p.forward(call(sel(recv, l.field), p.callArgs(l.Binding)...))
		decls = append(decls, generator.Decl{
			Node: method(recv, instantiate(name, p.typeArgs()), l.CaseMethod, p.caseFunc(l), body),
		})
	}
	return decls
}

// constant emits <Root>VisitorConstant: one R field per leaf, each case
// returning its field. Only valid when the contract returns.
func (p *plan) constant() []generator.Decl {
	name := p.implName(kindConstant)
	fields := &ast.FieldList{}
	for _, l := range p.leaves {
		fields.List = append(fields.List, field(l.field, p.returnType()))
	}

	decls := []generator.Decl{
		{
			Doc:  []string{fmt.Sprintf("%s implements %s with a fixed result per case.", name, p.visitorName())},
			Node: typeDecl(name, p.typeParams(), &ast.StructType{Fields: fields}),
		},
		p.constructor(name, func(leafPlan) ast.Expr { return p.returnType() }),
	}

	recv := uniqueName("c", p.bindings())
	for _, l := range p.leaves {
		decls = append(decls, generator.Decl{
			Node: method(recv, instantiate(name, p.typeArgs()), l.CaseMethod, p.caseFunc(l), ret(sel(recv, l.field))),
		})
	}
	return decls
}

// constructor emits New<name>, taking one parameter per leaf in snapshot
// order, each named after the leaf's case method.
func (p *plan) constructor(name string, paramType func(leafPlan) ast.Expr) generator.Decl {
	var params []*ast.Field
	var elts []ast.Expr
	for _, l := range p.leaves {
		params = append(params, field(l.CaseMethod, paramType(l)))
		elts = append(elts, keyValue(l.field, ast.NewIdent(l.CaseMethod)))
	}
	typ := instantiate(name, p.typeArgs())
	ctor := p.constructorName(name)
	return generator.Decl{
		Doc: []string{fmt.Sprintf("%s returns a %s; the arguments follow the order of the cases.", ctor, name)},
		Node: function(ctor, p.typeParams(), funcType(params, []*ast.Field{{Type: typ}}),
			ret(&ast.CompositeLit{Type: instantiate(name, p.typeArgs()), Elts: elts})),
	}
}

// defaultImpl emits <Root>VisitorDefault, whose cases all delegate to one
// fallback taking the leaf as the root type.
func (p *plan) defaultImpl() []generator.Decl {
	name := p.implName(kindDefault)
	fallback := uniqueName("fallback", p.methods)
	dflt := p.cfg.DefaultMethodName()
	typ := instantiate(name, p.typeArgs())
	ctor := p.constructorName(name)

	decls := []generator.Decl{
		{
			Doc: []string{
				fmt.Sprintf("%s implements %s by passing every %s to %s.", name, p.visitorName(), p.root, dflt),
				"Embed it and declare the cases that need their own handling.",
			},
			Node: typeDecl(name, p.typeParams(), &ast.StructType{Fields: &ast.FieldList{List: []*ast.Field{
				field(fallback, p.fallbackFunc()),
			}}}),
		},
		{
			Doc: []string{fmt.Sprintf("%s returns a %s calling %s for every case.", ctor, name, dflt)},
			Node: function(ctor, p.typeParams(),
				funcType([]*ast.Field{field(dflt, p.fallbackFunc())}, []*ast.Field{{Type: typ}}),
				ret(&ast.CompositeLit{
					Type: instantiate(name, p.typeArgs()),
					Elts: []ast.Expr{keyValue(fallback, ast.NewIdent(dflt))},
				})),
		},
	}

	recv := uniqueName("d", p.bindings())
	decls = append(decls, generator.Decl{
		Doc:  []string{fmt.Sprintf("%s handles every case not declared by an embedding type.", dflt)},
		Node: method(recv, typ, dflt, p.fallbackFunc(), p.forward(call(sel(recv, fallback), p.callArgs(p.rootArg)...))),
	})
	for _, l := range p.leaves {
		decls = append(decls, generator.Decl{
			Node: method(recv, instantiate(name, p.typeArgs()), l.CaseMethod, p.caseFunc(l),
				p.forward(call(sel(recv, dflt), p.callArgs(l.Binding)...))),
		})
	}
	return decls
}

// defaultBuilder emits a builder whose setters are all optional; its
// terminal operation takes the fallback and fills the cases never set.
func (p *plan) defaultBuilder() []generator.Decl {
	name := p.implName(kindDefault + "Builder")
	lambda := p.implName(kindLambda)
	dflt := p.cfg.DefaultMethodName()
	ptr := &ast.StarExpr{X: instantiate(name, p.typeArgs())}
	ctor := p.constructorName(name)

	fields := &ast.FieldList{}
	for _, l := range p.leaves {
		fields.List = append(fields.List, field(l.field, p.caseFunc(l)))
	}

	decls := []generator.Decl{
		{
			Doc: []string{
				fmt.Sprintf("%s collects handlers for some cases of %s.", name, p.visitorName()),
				fmt.Sprintf("%s supplies the rest and returns the visitor.", dflt),
			},
			Node: typeDecl(name, p.typeParams(), &ast.StructType{Fields: fields}),
		},
		{
			Doc: []string{fmt.Sprintf("%s returns an empty %s.", ctor, name)},
			Node: function(ctor, p.typeParams(), funcType(nil, []*ast.Field{{Type: ptr}}),
				ret(&ast.UnaryExpr{Op: token.AND, X: &ast.CompositeLit{Type: instantiate(name, p.typeArgs())}})),
		},
	}

	recv := uniqueName("b", p.methods)
	for _, l := range p.leaves {
		decls = append(decls, generator.Decl{
			Node: method(recv, &ast.StarExpr{X: instantiate(name, p.typeArgs())}, l.CaseMethod,
				funcType([]*ast.Field{field(l.CaseMethod, p.caseFunc(l))}, []*ast.Field{{Type: &ast.StarExpr{X: instantiate(name, p.typeArgs())}}}),
				&ast.AssignStmt{
					Lhs: []ast.Expr{sel(recv, l.field)},
					Tok: token.ASSIGN,
					Rhs: []ast.Expr{ast.NewIdent(l.CaseMethod)},
				},
				ret(ast.NewIdent(recv)),
			),
		})
	}

	// the closures bind leaf names; the fallback must not be shadowed by them
	fallback := uniqueName(dflt, union(p.bindings(), set(recv)))
	local := uniqueName("lambda", set(recv, fallback))
	var elts []ast.Expr
	for _, l := range p.leaves {
		elts = append(elts, keyValue(l.field, sel(recv, l.field)))
	}
	body := []ast.Stmt{&ast.AssignStmt{
		Lhs: []ast.Expr{ast.NewIdent(local)},
		Tok: token.DEFINE,
		Rhs: []ast.Expr{&ast.CompositeLit{Type: instantiate(lambda, p.typeArgs()), Elts: elts}},
	}}
	for _, l := range p.leaves {
		closure := &ast.FuncLit{
			Type: p.caseFunc(l),
			Body: &ast.BlockStmt{List: []ast.Stmt{p.forward(call(ast.NewIdent(fallback), p.callArgs(l.Binding)...))}},
		}
		body = append(body, &ast.IfStmt{
			Cond: &ast.BinaryExpr{X: sel(local, l.field), Op: token.EQL, Y: ast.NewIdent("nil")},
			Body: &ast.BlockStmt{List: []ast.Stmt{&ast.AssignStmt{
				Lhs: []ast.Expr{sel(local, l.field)},
				Tok: token.ASSIGN,
				Rhs: []ast.Expr{closure},
			}}},
		})
	}
	body = append(body, ret(ast.NewIdent(local)))

	decls = append(decls, generator.Decl{
		Doc: []string{fmt.Sprintf("%s sets the handler of every case left unset and returns the visitor.", dflt)},
		Node: method(recv, &ast.StarExpr{X: instantiate(name, p.typeArgs())}, dflt,
			funcType([]*ast.Field{field(fallback, p.fallbackFunc())}, []*ast.Field{{Type: p.visitorType()}}),
			body...),
	})
	return decls
}
