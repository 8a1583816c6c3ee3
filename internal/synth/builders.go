package synth

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"

	"martianoff/visitorgen/internal/generator"
	"martianoff/visitorgen/internal/naming"
)

// builderKind describes the implementation a typestate builder assembles.
type builderKind struct {
	name      string                    // Lambda or Constant
	slotType  func(l leafPlan) ast.Expr // type of the value supplied for a leaf
	implement string                    // type built by the terminal step
}

func (p *plan) lambdaKind() builderKind {
	return builderKind{
		name:      kindLambda,
		slotType:  func(l leafPlan) ast.Expr { return p.caseFunc(l) },
		implement: p.implName(kindLambda),
	}
}

func (p *plan) constantKind() builderKind {
	return builderKind{
		name:      kindConstant,
		slotType:  func(leafPlan) ast.Expr { return p.returnType() },
		implement: p.implName(kindConstant),
	}
}

func (p *plan) builderEntry(k builderKind) string {
	return p.constructorName(p.implName(k.name + "Builder"))
}

// build returns the composite literal of the finished implementation, reading
// every slot from recv.
func (p *plan) build(k builderKind, recv string) ast.Expr {
	var elts []ast.Expr
	for _, l := range p.leaves {
		elts = append(elts, keyValue(l.field, sel(recv, l.field)))
	}
	return &ast.CompositeLit{Type: instantiate(k.implement, p.typeArgs()), Elts: elts}
}

func (p *plan) builder(k builderKind) []generator.Decl {
	if p.cfg.BuilderStyle == naming.BuilderMutable {
		return p.mutableBuilder(k)
	}
	return p.immutableBuilder(k)
}

// immutableBuilder emits one value type per stage. Stage i stores the slots of
// leaves 0..i-1 and has a single method, setting leaf i and returning stage
// i+1. The last stage only builds.
func (p *plan) immutableBuilder(k builderKind) []generator.Decl {
	stage := func(i int) string {
		return p.implName(k.name + "Builder" + strconv.Itoa(i))
	}
	stageType := func(i int) ast.Expr {
		return instantiate(stage(i), p.typeArgs())
	}
	recv := uniqueName("b", p.methods)
	n := len(p.leaves)

	entry := p.builderEntry(k)
	decls := []generator.Decl{{
		Doc: []string{
			fmt.Sprintf("%s starts a %s; each step supplies the next case in order.", entry, k.implement),
		},
		Node: function(entry, p.typeParams(), funcType(nil, []*ast.Field{{Type: stageType(0)}}),
			ret(&ast.CompositeLit{Type: stageType(0)})),
	}}

	for i := 0; i <= n; i++ {
		fields := &ast.FieldList{}
		for _, l := range p.leaves[:i] {
			fields.List = append(fields.List, field(l.field, k.slotType(l)))
		}
		var doc []string
		if i < n {
			doc = []string{fmt.Sprintf("%s expects %s.", stage(i), p.leaves[i].CaseMethod)}
		} else {
			doc = []string{fmt.Sprintf("%s has every case and can %s.", stage(i), p.buildMethod())}
		}
		decls = append(decls, generator.Decl{
			Doc:  doc,
			Node: typeDecl(stage(i), p.typeParams(), &ast.StructType{Fields: fields}),
		})

		if i == n {
			decls = append(decls, generator.Decl{
				Node: method(recv, stageType(i), p.buildMethod(),
					funcType(nil, []*ast.Field{{Type: p.visitorType()}}),
					ret(p.build(k, recv))),
			})
			break
		}

		l := p.leaves[i]
		var elts []ast.Expr
		for _, prev := range p.leaves[:i] {
			elts = append(elts, keyValue(prev.field, sel(recv, prev.field)))
		}
		elts = append(elts, keyValue(l.field, ast.NewIdent(l.CaseMethod)))
		decls = append(decls, generator.Decl{
			Node: method(recv, stageType(i), l.CaseMethod,
				funcType([]*ast.Field{field(l.CaseMethod, k.slotType(l))}, []*ast.Field{{Type: stageType(i + 1)}}),
				ret(&ast.CompositeLit{Type: stageType(i + 1), Elts: elts})),
		})
	}
	return decls
}

// mutableBuilder emits one single-method interface per leaf and a terminal
// interface, all implemented by one unexported pointer type. Every step
// returns the next interface, so only the next case is visible.
func (p *plan) mutableBuilder(k builderKind) []generator.Decl {
	prefix := p.root + "Visitor" + k.name + "Step"
	taken := make(map[string]bool)
	steps := make([]string, len(p.leaves)+1)
	for i, l := range p.leaves {
		steps[i] = p.public(prefix + naming.UpperFirst(l.SimpleName()))
		taken[steps[i]] = true
	}
	steps[len(p.leaves)] = uniqueName(p.public(prefix+"Build"), taken)
	stepType := func(i int) ast.Expr {
		return instantiate(steps[i], p.typeArgs())
	}

	impl := uniqueName(naming.LowerFirst(p.root)+"Visitor"+k.name+"Steps", taken)
	ptr := func() ast.Expr {
		return &ast.StarExpr{X: instantiate(impl, p.typeArgs())}
	}
	recv := uniqueName("b", p.methods)
	n := len(p.leaves)

	entry := p.builderEntry(k)
	decls := []generator.Decl{{
		Doc: []string{
			fmt.Sprintf("%s starts a %s; each step supplies the next case in order.", entry, k.implement),
		},
		Node: function(entry, p.typeParams(), funcType(nil, []*ast.Field{{Type: stepType(0)}}),
			ret(&ast.UnaryExpr{Op: token.AND, X: &ast.CompositeLit{Type: instantiate(impl, p.typeArgs())}})),
	}}

	for i, l := range p.leaves {
		decls = append(decls, generator.Decl{
			Doc: []string{fmt.Sprintf("%s expects %s.", steps[i], l.CaseMethod)},
			Node: typeDecl(steps[i], p.typeParams(), &ast.InterfaceType{Methods: &ast.FieldList{List: []*ast.Field{
				field(l.CaseMethod, funcType([]*ast.Field{field(l.CaseMethod, k.slotType(l))}, []*ast.Field{{Type: stepType(i + 1)}})),
			}}}),
		})
	}
	decls = append(decls, generator.Decl{
		Doc: []string{fmt.Sprintf("%s has every case and can %s.", steps[n], p.buildMethod())},
		Node: typeDecl(steps[n], p.typeParams(), &ast.InterfaceType{Methods: &ast.FieldList{List: []*ast.Field{
			field(p.buildMethod(), funcType(nil, []*ast.Field{{Type: p.visitorType()}})),
		}}}),
	})

	fields := &ast.FieldList{}
	for _, l := range p.leaves {
		fields.List = append(fields.List, field(l.field, k.slotType(l)))
	}
	decls = append(decls, generator.Decl{
		Node: typeDecl(impl, p.typeParams(), &ast.StructType{Fields: fields}),
	})
	for i, l := range p.leaves {
		decls = append(decls, generator.Decl{
			Node: method(recv, ptr(), l.CaseMethod,
				funcType([]*ast.Field{field(l.CaseMethod, k.slotType(l))}, []*ast.Field{{Type: stepType(i + 1)}}),
				&ast.AssignStmt{
					Lhs: []ast.Expr{sel(recv, l.field)},
					Tok: token.ASSIGN,
					Rhs: []ast.Expr{ast.NewIdent(l.CaseMethod)},
				},
				ret(ast.NewIdent(recv))),
		})
	}
	decls = append(decls, generator.Decl{
		Node: method(recv, ptr(), p.buildMethod(),
			funcType(nil, []*ast.Field{{Type: p.visitorType()}}),
			ret(p.build(k, recv))),
	})
	return decls
}
