package energy

import (
	"math"

	"github.com/obodeldog/cogni-living-daemon/internal/domain"
)

// PINN is the small physics-informed regressor predicting a room's
// instantaneous heating/cooling rate (°C/h) from its current conditions
// (spec §4.5.1). Architecture: 4 inputs → two tanh hidden layers of width
// 16 → linear output of width 1.
type PINN struct {
	mean [4]float64
	std  [4]float64

	w1 [4][16]float64
	b1 [16]float64
	w2 [16][16]float64
	b2 [16]float64
	w3 [16]float64
	b3 float64

	ready bool
}

// NewPINN returns a PINN with freshly randomised weights.
func NewPINN(rnd func() float64) *PINN {
	p := &PINN{}
	scale1 := math.Sqrt(2.0 / 4.0)
	for i := 0; i < 4; i++ {
		for j := 0; j < 16; j++ {
			p.w1[i][j] = rnd() * scale1
		}
	}
	scale2 := math.Sqrt(2.0 / 16.0)
	for i := 0; i < 16; i++ {
		for j := 0; j < 16; j++ {
			p.w2[i][j] = rnd() * scale2
		}
	}
	for j := 0; j < 16; j++ {
		p.w3[j] = rnd() * scale2
	}
	return p
}

// Ready reports whether training has completed at least once.
func (p *PINN) Ready() bool {
	return p.ready
}

// Sample is one PINN training observation.
type Sample struct {
	TIn, TOut, Valve float64
	Solar            bool
	DeltaT           float64 // observed °C/h, the regression target
}

func rawFeatures(tIn, tOut, valve float64, solar bool) [4]float64 {
	solarFlag := 0.0
	if solar {
		solarFlag = 1.0
	}
	return [4]float64{tIn, tOut, valve, solarFlag}
}

// Train fits the z-score scaler (minimum std floor 1.0 to prevent
// explosion on constant training data) and runs Adam with gradient-norm
// clipping for 200 epochs, after filtering samples with |target| > 10 °C/h
// (spec §4.5.1).
func (p *PINN) Train(samples []Sample) error {
	var filtered []Sample
	for _, s := range samples {
		if math.Abs(s.DeltaT) <= 10.0 {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) < 10 {
		return domain.ErrInsufficientData
	}

	var featureRows [][4]float64
	targets := make([]float64, len(filtered))
	for i, s := range filtered {
		featureRows = append(featureRows, rawFeatures(s.TIn, s.TOut, s.Valve, s.Solar))
		targets[i] = s.DeltaT
	}

	var mean, std [4]float64
	for f := 0; f < 4; f++ {
		sum := 0.0
		for _, row := range featureRows {
			sum += row[f]
		}
		mean[f] = sum / float64(len(featureRows))
	}
	for f := 0; f < 4; f++ {
		sumSq := 0.0
		for _, row := range featureRows {
			d := row[f] - mean[f]
			sumSq += d * d
		}
		std[f] = math.Sqrt(sumSq / float64(len(featureRows)))
		if std[f] < 1.0 {
			std[f] = 1.0
		}
	}

	normalized := make([][4]float64, len(featureRows))
	for i, row := range featureRows {
		for f := 0; f < 4; f++ {
			normalized[i][f] = (row[f] - mean[f]) / std[f]
		}
	}

	p.mean, p.std = mean, std
	p.trainAdam(normalized, targets, 200, 0.005, 1.0)
	p.ready = true
	return nil
}

// Predict returns the estimated rate in °C/h, clamped to [-5.0, 5.0].
// Returns 0.0 if not ready (spec §4.5.1).
func (p *PINN) Predict(tIn, tOut, valve float64, solar bool) float64 {
	if !p.ready {
		return 0.0
	}
	raw := rawFeatures(tIn, tOut, valve, solar)
	var x [4]float64
	for f := 0; f < 4; f++ {
		x[f] = (raw[f] - p.mean[f]) / p.std[f]
	}
	_, _, out := p.forward(x)
	if out > 5.0 {
		return 5.0
	}
	if out < -5.0 {
		return -5.0
	}
	return out
}

func (p *PINN) forward(x [4]float64) (h1, h2 [16]float64, out float64) {
	for j := 0; j < 16; j++ {
		sum := p.b1[j]
		for i := 0; i < 4; i++ {
			sum += x[i] * p.w1[i][j]
		}
		h1[j] = math.Tanh(sum)
	}
	for j := 0; j < 16; j++ {
		sum := p.b2[j]
		for i := 0; i < 16; i++ {
			sum += h1[i] * p.w2[i][j]
		}
		h2[j] = math.Tanh(sum)
	}
	sum := p.b3
	for j := 0; j < 16; j++ {
		sum += h2[j] * p.w3[j]
	}
	out = sum
	return
}

// trainAdam runs full-batch Adam with gradient-norm clipping.
func (p *PINN) trainAdam(inputs [][4]float64, targets []float64, epochs int, lr, clipNorm float64) {
	const beta1, beta2, eps = 0.9, 0.999, 1e-8

	var mW1, vW1 [4][16]float64
	var mB1, vB1 [16]float64
	var mW2, vW2 [16][16]float64
	var mB2, vB2 [16]float64
	var mW3, vW3 [16]float64
	var mB3, vB3 float64

	n := len(inputs)
	t := 0

	for epoch := 0; epoch < epochs; epoch++ {
		var gW1 [4][16]float64
		var gB1 [16]float64
		var gW2 [16][16]float64
		var gB2 [16]float64
		var gW3 [16]float64
		var gB3 float64

		for i, x := range inputs {
			h1, h2, out := p.forward(x)
			dOut := 2.0 * (out - targets[i]) / float64(n)

			for j := 0; j < 16; j++ {
				gW3[j] += h2[j] * dOut
			}
			gB3 += dOut

			var dH2 [16]float64
			for j := 0; j < 16; j++ {
				dH2[j] = dOut * p.w3[j] * (1 - h2[j]*h2[j])
			}
			for i2 := 0; i2 < 16; i2++ {
				for j := 0; j < 16; j++ {
					gW2[i2][j] += h1[i2] * dH2[j]
				}
			}
			for j := 0; j < 16; j++ {
				gB2[j] += dH2[j]
			}

			var dH1 [16]float64
			for i2 := 0; i2 < 16; i2++ {
				sum := 0.0
				for j := 0; j < 16; j++ {
					sum += dH2[j] * p.w2[i2][j]
				}
				dH1[i2] = sum * (1 - h1[i2]*h1[i2])
			}
			for i2 := 0; i2 < 4; i2++ {
				for j := 0; j < 16; j++ {
					gW1[i2][j] += x[i2] * dH1[j]
				}
			}
			for j := 0; j < 16; j++ {
				gB1[j] += dH1[j]
			}
		}

		clipGradients(&gW1, &gB1, &gW2, &gB2, &gW3, &gB3, clipNorm)

		t++
		biasCorrect1 := 1 - math.Pow(beta1, float64(t))
		biasCorrect2 := 1 - math.Pow(beta2, float64(t))

		adamStep4x16(&p.w1, &mW1, &vW1, &gW1, lr, beta1, beta2, eps, biasCorrect1, biasCorrect2)
		adamStep16(&p.b1, &mB1, &vB1, &gB1, lr, beta1, beta2, eps, biasCorrect1, biasCorrect2)
		adamStep16x16(&p.w2, &mW2, &vW2, &gW2, lr, beta1, beta2, eps, biasCorrect1, biasCorrect2)
		adamStep16(&p.b2, &mB2, &vB2, &gB2, lr, beta1, beta2, eps, biasCorrect1, biasCorrect2)
		adamStep16(&p.w3, &mW3, &vW3, &gW3, lr, beta1, beta2, eps, biasCorrect1, biasCorrect2)

		mB3 = beta1*mB3 + (1-beta1)*gB3
		vB3 = beta2*vB3 + (1-beta2)*gB3*gB3
		mHat := mB3 / biasCorrect1
		vHat := vB3 / biasCorrect2
		p.b3 -= lr * mHat / (math.Sqrt(vHat) + eps)
	}
}

func clipGradients(gW1 *[4][16]float64, gB1 *[16]float64, gW2 *[16][16]float64, gB2 *[16]float64, gW3 *[16]float64, gB3 *float64, clipNorm float64) {
	sumSq := 0.0
	for i := range gW1 {
		for j := range gW1[i] {
			sumSq += gW1[i][j] * gW1[i][j]
		}
	}
	for _, v := range gB1 {
		sumSq += v * v
	}
	for i := range gW2 {
		for j := range gW2[i] {
			sumSq += gW2[i][j] * gW2[i][j]
		}
	}
	for _, v := range gB2 {
		sumSq += v * v
	}
	for _, v := range gW3 {
		sumSq += v * v
	}
	sumSq += *gB3 * *gB3

	norm := math.Sqrt(sumSq)
	if norm <= clipNorm || norm == 0 {
		return
	}
	scale := clipNorm / norm
	for i := range gW1 {
		for j := range gW1[i] {
			gW1[i][j] *= scale
		}
	}
	for i := range gB1 {
		gB1[i] *= scale
	}
	for i := range gW2 {
		for j := range gW2[i] {
			gW2[i][j] *= scale
		}
	}
	for i := range gB2 {
		gB2[i] *= scale
	}
	for i := range gW3 {
		gW3[i] *= scale
	}
	*gB3 *= scale
}

func adamStep4x16(w *[4][16]float64, m, v *[4][16]float64, g *[4][16]float64, lr, beta1, beta2, eps, bc1, bc2 float64) {
	for i := range w {
		for j := range w[i] {
			m[i][j] = beta1*m[i][j] + (1-beta1)*g[i][j]
			v[i][j] = beta2*v[i][j] + (1-beta2)*g[i][j]*g[i][j]
			mHat := m[i][j] / bc1
			vHat := v[i][j] / bc2
			w[i][j] -= lr * mHat / (math.Sqrt(vHat) + eps)
		}
	}
}

func adamStep16x16(w *[16][16]float64, m, v *[16][16]float64, g *[16][16]float64, lr, beta1, beta2, eps, bc1, bc2 float64) {
	for i := range w {
		for j := range w[i] {
			m[i][j] = beta1*m[i][j] + (1-beta1)*g[i][j]
			v[i][j] = beta2*v[i][j] + (1-beta2)*g[i][j]*g[i][j]
			mHat := m[i][j] / bc1
			vHat := v[i][j] / bc2
			w[i][j] -= lr * mHat / (math.Sqrt(vHat) + eps)
		}
	}
}

func adamStep16(w *[16]float64, m, v *[16]float64, g *[16]float64, lr, beta1, beta2, eps, bc1, bc2 float64) {
	for i := range w {
		m[i] = beta1*m[i] + (1-beta1)*g[i]
		v[i] = beta2*v[i] + (1-beta2)*g[i]*g[i]
		mHat := m[i] / bc1
		vHat := v[i] / bc2
		w[i] -= lr * mHat / (math.Sqrt(vHat) + eps)
	}
}

// PINNSnapshot is the persisted shape of pinn_model.gob.
type PINNSnapshot struct {
	Mean [4]float64
	Std  [4]float64
	W1   [4][16]float64
	B1   [16]float64
	W2   [16][16]float64
	B2   [16]float64
	W3   [16]float64
	B3   float64
}

// ExportSnapshot returns the current weights for persistence.
func (p *PINN) ExportSnapshot() (PINNSnapshot, bool) {
	if !p.ready {
		return PINNSnapshot{}, false
	}
	return PINNSnapshot{
		Mean: p.mean, Std: p.std,
		W1: p.w1, B1: p.b1, W2: p.w2, B2: p.b2, W3: p.w3, B3: p.b3,
	}, true
}

// ImportSnapshot restores previously persisted weights.
func (p *PINN) ImportSnapshot(s PINNSnapshot) {
	p.mean, p.std = s.Mean, s.Std
	p.w1, p.b1, p.w2, p.b2, p.w3, p.b3 = s.W1, s.B1, s.W2, s.B2, s.W3, s.B3
	p.ready = true
}
