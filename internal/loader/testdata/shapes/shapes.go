package shapes

import "fmt"

// Shape is a plane figure.
//
//visitor:root order=Triangle lambdaImpl casePrefix=on colour=red
type Shape interface {
	ShapeAcceptor
	Area() float64
}

//visitor:root
type Expr[T fmt.Stringer] interface {
	ExprAcceptor[T]
}
