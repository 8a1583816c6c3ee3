package shapes

import "fmt"

// Circle is round.
//
//visitor:leaf root=Shape weight=2
type Circle struct{ R float64 }

func (c *Circle) Area() float64 { return 3 * c.R * c.R }

//visitor:leaf receiver=value weight=heavy
type Square struct{ S float64 }

func (s Square) Area() float64 { return s.S * s.S }

var _ Shape = Square{}

type (
	// Triangle has a base.
	//visitor:leaf root=Shape
	Triangle struct {
		Base
		B, H float64
	}

	Base struct{}
)

func (t *Triangle) Area() float64 { return t.B * t.H / 2 }

//visitor:leaf root=Expr
type Lit[T fmt.Stringer] struct{ V T }
