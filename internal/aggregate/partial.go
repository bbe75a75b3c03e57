package aggregate

import "math"

// Partial is a statistical estimate built from N samples with value V and
// absolute uncertainty E.
type Partial struct {
	N int64
	V float64
	E float64
}

// HasData reports whether the partial carries a usable estimate.
func (p Partial) HasData() bool {
	return p.V > 0
}

// Combine folds other into p. A receiver without data adopts other
// unchanged; an other without data leaves p unchanged. Otherwise values are
// weighted by 1/E^2. When either side has no uncertainty the values are
// weighted by sample count instead and the combined uncertainty is unknown.
func (p *Partial) Combine(other Partial) {
	if !other.HasData() {
		return
	}
	if !p.HasData() {
		*p = other
		return
	}

	n := p.N + other.N
	if p.E <= 0 || other.E <= 0 {
		total := float64(n)
		if total <= 0 {
			p.V = (p.V + other.V) / 2
		} else {
			p.V = (float64(p.N)*p.V + float64(other.N)*other.V) / total
		}
		p.N, p.E = n, 0
		return
	}

	w1 := 1 / (p.E * p.E)
	w2 := 1 / (other.E * other.E)
	p.V = (w1*p.V + w2*other.V) / (w1 + w2)
	p.E = 1 / math.Sqrt(w1+w2)
	p.N = n
}

// Observe adds one sample, updating the running mean and the standard error
// of the mean.
func (p *Partial) Observe(x float64) {
	n := float64(p.N)
	m2 := p.E * p.E * n * (n - 1)
	n++
	delta := x - p.V
	p.V += delta / n
	m2 += delta * (x - p.V)
	p.N++
	if p.N > 1 {
		p.E = math.Sqrt(m2 / (n * (n - 1)))
	} else {
		p.E = 0
	}
}

// RelativeError returns E/V, or 0 when there is no data.
func (p Partial) RelativeError() float64 {
	if !p.HasData() {
		return 0
	}
	return p.E / p.V
}

// Content returns a labelled view of the estimate, suitable for printing.
func (p Partial) Content(label string) map[string]float64 {
	perSample := 0.0
	if p.N > 0 {
		perSample = p.V / float64(p.N)
	}
	return map[string]float64{
		label:                   p.V,
		label + "_err":          p.E,
		label + "_relerr":       p.RelativeError(),
		label + "_per_sample":   perSample,
		label + "_logged_count": float64(p.N),
	}
}

// Reduce folds partials left to right into a fresh Partial.
func Reduce(parts ...Partial) Partial {
	var out Partial
	for _, p := range parts {
		out.Combine(p)
	}
	return out
}
