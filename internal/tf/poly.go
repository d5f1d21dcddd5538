package tf

import (
	"math"
	"strconv"
	"strings"
)

// Poly is a polynomial in z with coefficients in descending powers.
type Poly []float64

func (p Poly) Clone() Poly {
	c := make(Poly, len(p))
	copy(c, p)
	return c
}

func (p Poly) Degree() int { return len(p) - 1 }

// IsZero reports whether every coefficient is exactly zero.
func (p Poly) IsZero() bool {
	for _, c := range p {
		if c != 0 {
			return false
		}
	}
	return true
}

func (p Poly) Equal(q Poly) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Mul returns the product p·q (coefficient convolution).
func (p Poly) Mul(q Poly) Poly {
	if len(p) == 0 || len(q) == 0 {
		return Poly{}
	}
	out := make(Poly, len(p)+len(q)-1)
	for i, a := range p {
		if a == 0 {
			continue
		}
		for j, b := range q {
			out[i+j] += a * b
		}
	}
	return out
}

// Add returns p+q, aligning the constant terms.
func (p Poly) Add(q Poly) Poly {
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	out := make(Poly, n)
	copy(out[n-len(p):], p)
	for i, c := range q {
		out[n-len(q)+i] += c
	}
	return out
}

func (p Poly) Sub(q Poly) Poly { return p.Add(q.Scale(-1)) }

func (p Poly) Scale(k float64) Poly {
	out := make(Poly, len(p))
	for i, c := range p {
		out[i] = c * k
	}
	return out
}

// Eval evaluates p at z using Horner's rule.
func (p Poly) Eval(z float64) float64 {
	v := 0.0
	for _, c := range p {
		v = v*z + c
	}
	return v
}

// trim drops leading exact zeros, keeping at least one coefficient.
func (p Poly) trim() Poly {
	i := 0
	for i < len(p)-1 && p[i] == 0 {
		i++
	}
	return p[i:]
}

func (p Poly) maxAbs() float64 {
	m := 0.0
	for _, c := range p {
		m = math.Max(m, math.Abs(c))
	}
	return m
}

func (p Poly) finite() bool {
	for _, c := range p {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// format renders p in z and returns the number of non-zero terms.
func (p Poly) format() (string, int) {
	var b strings.Builder
	terms := 0
	deg := len(p) - 1
	for i, c := range p {
		if c == 0 {
			continue
		}
		switch {
		case terms == 0 && c < 0:
			b.WriteString("-")
		case terms > 0 && c < 0:
			b.WriteString(" - ")
		case terms > 0:
			b.WriteString(" + ")
		}
		coef := strconv.FormatFloat(math.Abs(c), 'g', 6, 64)
		pow := deg - i
		if pow == 0 {
			b.WriteString(coef)
		} else {
			if coef != "1" {
				b.WriteString(coef)
			}
			b.WriteString("z")
			if pow > 1 {
				b.WriteString("^" + strconv.Itoa(pow))
			}
		}
		terms++
	}
	if terms == 0 {
		return "0", 0
	}
	return b.String(), terms
}

func (p Poly) String() string {
	s, _ := p.format()
	return s
}
