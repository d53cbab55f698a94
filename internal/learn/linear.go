package learn

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// linearModel is an intercept plus coefficients
type linearModel struct {
	coef      []float64
	intercept float64
	fitted    bool
}

func (m *linearModel) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		if !m.fitted {
			out[i] = math.NaN()
			continue
		}
		out[i] = m.intercept + floats.Dot(m.coef, row)
	}
	return out
}

// Coef returns the fitted coefficients
func (m *linearModel) Coef() []float64 { return append([]float64(nil), m.coef...) }

// Intercept returns the fitted intercept
func (m *linearModel) Intercept() float64 { return m.intercept }

// LinearRegression is ordinary least squares with an intercept, solved
// through a thin SVD so rank-deficient designs get the minimum-norm answer.
type LinearRegression struct {
	linearModel
	// Rcond is the relative singular value cutoff
	Rcond float64
}

// NewLinearRegression creates an OLS regressor
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{Rcond: 1e-12}
}

// Fit solves min |y - Xb - c|
func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	c, err := center(X, y)
	if err != nil {
		return err
	}
	f, err := factorize(c)
	if err != nil {
		return err
	}
	cutoff := m.Rcond * f.s[0]
	m.coef = f.solve(c.y, func(s float64) float64 {
		if s <= cutoff {
			return 0
		}
		return 1 / s
	})
	m.intercept = c.yMean - floats.Dot(m.coef, c.xMean)
	m.fitted = true
	return nil
}

// BayesianRidge estimates ridge weights together with the noise precision
// alpha and weight precision lambda by maximizing the marginal likelihood.
type BayesianRidge struct {
	linearModel
	MaxIter int
	Tol     float64
	Alpha1  float64
	Alpha2  float64
	Lambda1 float64
	Lambda2 float64

	Alpha  float64
	Lambda float64
}

// NewBayesianRidge creates a regressor with gamma hyperpriors of 1e-6
func NewBayesianRidge() *BayesianRidge {
	return &BayesianRidge{
		MaxIter: 300,
		Tol:     1e-3,
		Alpha1:  1e-6,
		Alpha2:  1e-6,
		Lambda1: 1e-6,
		Lambda2: 1e-6,
	}
}

// Fit runs the evidence maximization updates
func (m *BayesianRidge) Fit(X [][]float64, y []float64) error {
	c, err := center(X, y)
	if err != nil {
		return err
	}
	f, err := factorize(c)
	if err != nil {
		return err
	}
	n := float64(len(y))

	var v float64
	for _, yi := range c.y {
		v += yi * yi
	}
	alpha := 1 / (v/n + 1e-12)
	lambda := 1.0

	eig := make([]float64, len(f.s))
	for i, s := range f.s {
		eig[i] = s * s
	}

	posterior := func(alpha, lambda float64) []float64 {
		ratio := lambda / alpha
		return f.solve(c.y, func(s float64) float64 { return s / (s*s + ratio) })
	}

	var coef []float64
	for it := 0; it < m.MaxIter; it++ {
		next := posterior(alpha, lambda)

		var sse float64
		for i, row := range c.x {
			r := c.y[i] - floats.Dot(next, row)
			sse += r * r
		}
		var gamma float64
		for _, e := range eig {
			gamma += alpha * e / (lambda + alpha*e)
		}
		lambda = (gamma + 2*m.Lambda1) / (floats.Dot(next, next) + 2*m.Lambda2)
		alpha = (n - gamma + 2*m.Alpha1) / (sse + 2*m.Alpha2)

		converged := coef != nil && floats.Distance(coef, next, 1) < m.Tol
		coef = next
		if converged {
			break
		}
	}

	m.Alpha, m.Lambda = alpha, lambda
	m.coef = posterior(alpha, lambda)
	m.intercept = c.yMean - floats.Dot(m.coef, c.xMean)
	m.fitted = true
	return nil
}

type centered struct {
	x     [][]float64
	y     []float64
	xMean []float64
	yMean float64
}

func center(X [][]float64, y []float64) (*centered, error) {
	n, p, err := checkXY(X, y)
	if err != nil {
		return nil, err
	}
	c := &centered{
		x:     make([][]float64, n),
		y:     make([]float64, n),
		xMean: make([]float64, p),
	}
	for _, row := range X {
		floats.Add(c.xMean, row)
	}
	floats.Scale(1/float64(n), c.xMean)
	c.yMean = floats.Sum(y) / float64(n)
	for i, row := range X {
		c.x[i] = make([]float64, p)
		floats.SubTo(c.x[i], row, c.xMean)
		c.y[i] = y[i] - c.yMean
	}
	return c, nil
}

type factors struct {
	u, v *mat.Dense
	s    []float64
}

func factorize(c *centered) (*factors, error) {
	n, p := len(c.x), len(c.xMean)
	if p == 0 {
		return &factors{s: []float64{0}}, nil
	}
	flat := make([]float64, 0, n*p)
	for _, row := range c.x {
		flat = append(flat, row...)
	}
	var svd mat.SVD
	if ok := svd.Factorize(mat.NewDense(n, p, flat), mat.SVDThin); !ok {
		return nil, ErrShape
	}
	f := &factors{u: &mat.Dense{}, v: &mat.Dense{}, s: svd.Values(nil)}
	svd.UTo(f.u)
	svd.VTo(f.v)
	return f, nil
}

// solve returns V diag(g(s)) U^T y
func (f *factors) solve(y []float64, g func(s float64) float64) []float64 {
	if f.u == nil {
		return nil
	}
	_, r := f.u.Dims()
	p, _ := f.v.Dims()

	uty := mat.NewVecDense(r, nil)
	uty.MulVec(f.u.T(), mat.NewVecDense(len(y), append([]float64(nil), y...)))
	for i := 0; i < r; i++ {
		uty.SetVec(i, uty.AtVec(i)*g(f.s[i]))
	}
	coef := mat.NewVecDense(p, nil)
	coef.MulVec(f.v, uty)
	return mat.Col(nil, 0, coef)
}
