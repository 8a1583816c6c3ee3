package synth

import (
	"fmt"
	"go/ast"
	"go/token"

	"martianoff/visitorgen/internal/generator"
)

// contract emits the visitor interface, the acceptor the root embeds, one
// accept method per leaf and the typed entry point.
func (p *plan) contract(embedsAcceptor bool) []generator.Decl {
	var decls []generator.Decl

	methods := &ast.FieldList{}
	for _, l := range p.leaves {
		methods.List = append(methods.List, field(l.CaseMethod, p.caseFunc(l)))
	}
	decls = append(decls, generator.Decl{
		Doc: []string{
			fmt.Sprintf("%s handles every %s, one method per implementation.", p.visitorName(), p.root),
		},
		Node: typeDecl(p.visitorName(), p.typeParams(), &ast.InterfaceType{Methods: methods}),
	})

	decls = append(decls, generator.Decl{
		Doc: []string{
			fmt.Sprintf("%s is the dispatch entry of %s; embed it in %s.", p.acceptorName(), p.root, p.root),
		},
		Node: typeDecl(p.acceptorName(), p.rootTypeParams(), &ast.InterfaceType{
			Methods: &ast.FieldList{List: []*ast.Field{
				field(p.cfg.AcceptMethodName, p.acceptFunc()),
			}},
		}),
	})

	for _, l := range p.leaves {
		body := p.forward(call(sel(p.cfg.VisitorArgName, l.CaseMethod), p.callArgs(l.Binding)...))
		decls = append(decls, generator.Decl{
			Node: method(l.Binding, p.leafType(l), p.cfg.AcceptMethodName, p.acceptFunc(), body),
		})
	}

	decls = append(decls, p.entry(embedsAcceptor))
	if p.needsErasure() {
		decls = append(decls, p.erased()...)
	}
	return decls
}

// acceptFunc is the signature of the accept method, with the type variables
// of the contract erased.
func (p *plan) acceptFunc() *ast.FuncType {
	params := []*ast.Field{field(p.cfg.VisitorArgName, p.erasedVisitorType())}
	if p.hasArgument() {
		params = append(params, field(p.cfg.ArgumentName, p.anyType()))
	}
	return funcType(params, p.results(p.anyType()))
}

// needsErasure reports whether the typed contract differs from the one accept
// takes, so calls have to go through an adapter.
func (p *plan) needsErasure() bool {
	return p.generics && (p.hasReturn() || p.hasArgument())
}

// entry emits Accept<Root>, which dispatches with the typed contract.
func (p *plan) entry(embedsAcceptor bool) generator.Decl {
	subject := p.rootType()
	if !embedsAcceptor {
		subject = instantiate(p.acceptorName(), p.rootArgs())
	}
	params := []*ast.Field{
		field(p.rootArg, subject),
		field(p.cfg.VisitorArgName, p.visitorType()),
	}
	if p.hasArgument() {
		params = append(params, field(p.cfg.ArgumentName, p.argumentType()))
	}
	ft := funcType(params, p.results(p.returnType()))

	visitor := ast.Expr(ast.NewIdent(p.cfg.VisitorArgName))
	if p.needsErasure() {
		visitor = &ast.CompositeLit{
			Type: instantiate(p.erasedName(), p.typeArgs()),
			Elts: []ast.Expr{keyValue(p.erasedField(), ast.NewIdent(p.cfg.VisitorArgName))},
		}
	}
	args := []ast.Expr{visitor}
	if p.hasArgument() {
		args = append(args, ast.NewIdent(p.cfg.ArgumentName))
	}
	dispatch := call(sel(p.rootArg, p.cfg.AcceptMethodName), args...)

	var body []ast.Stmt
	switch {
	case p.needsErasure() && p.hasReturn():
		result := uniqueName("result", p.bindings())
		body = []ast.Stmt{
			&ast.AssignStmt{
				Lhs: []ast.Expr{ast.NewIdent(result), ast.NewIdent("_")},
				Tok: token.DEFINE,
				Rhs: []ast.Expr{&ast.TypeAssertExpr{X: dispatch, Type: p.returnType()}},
			},
			ret(ast.NewIdent(result)),
		}
	default:
		body = []ast.Stmt{p.forward(dispatch)}
	}

	return generator.Decl{
		Doc: []string{
			fmt.Sprintf("%s calls the method of %s matching the dynamic type of %s.", p.entryName(), p.cfg.VisitorArgName, p.rootArg),
		},
		Node: function(p.entryName(), p.typeParams(), ft, body...),
	}
}

func (p *plan) erasedField() string {
	return uniqueName("visitor", p.methods)
}

// erased emits the adapter presenting a typed visitor as the visitor accept
// takes.
func (p *plan) erased() []generator.Decl {
	name := p.erasedName()
	decls := []generator.Decl{{
		Node: typeDecl(name, p.typeParams(), &ast.StructType{Fields: &ast.FieldList{List: []*ast.Field{
			field(p.erasedField(), p.visitorType()),
		}}}),
	}}

	taken := p.bindings()
	recv := uniqueName("e", taken)
	typed := uniqueName(p.cfg.ArgumentName+"Typed", union(taken, set(recv)))

	for _, l := range p.leaves {
		params := []*ast.Field{field(l.Binding, p.leafType(l))}
		args := []ast.Expr{ast.NewIdent(l.Binding)}
		var body []ast.Stmt
		if p.hasArgument() {
			params = append(params, field(p.cfg.ArgumentName, p.anyType()))
			body = append(body, &ast.AssignStmt{
				Lhs: []ast.Expr{ast.NewIdent(typed), ast.NewIdent("_")},
				Tok: token.DEFINE,
				Rhs: []ast.Expr{&ast.TypeAssertExpr{X: ast.NewIdent(p.cfg.ArgumentName), Type: p.argumentType()}},
			})
			args = append(args, ast.NewIdent(typed))
		}
		body = append(body, p.forward(call(&ast.SelectorExpr{X: sel(recv, p.erasedField()), Sel: ast.NewIdent(l.CaseMethod)}, args...)))

		ft := funcType(params, p.results(p.anyType()))
		decls = append(decls, generator.Decl{
			Node: method(recv, instantiate(name, p.typeArgs()), l.CaseMethod, ft, body...),
		})
	}
	return decls
}
