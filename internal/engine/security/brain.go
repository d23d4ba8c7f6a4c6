// Package security implements anomaly scoring of movement sequences via a
// sequence autoencoder, with a rapid-adaptation whitelist overlay
// ("learning mode") for short-lived tolerance of new patterns (spec §4.4).
package security

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/obodeldog/cogni-living-daemon/internal/domain"
)

const hiddenWidth = 8

// Step is one location visit within a sequence.
type Step struct {
	TDelta float64
	Loc    string
}

// Config carries the tunables spec §2.1 surfaces as configuration.
type Config struct {
	DefaultThreshold  float64
	WhitelistCapacity int
	MinSequenceLength int
	MaxSequenceLength int
}

type scaler struct {
	min, max float64
}

func (s scaler) apply(v float64) float64 {
	span := s.max - s.min
	if span <= 0 {
		return 0
	}
	scaled := (v - s.min) / span
	if scaled < 0 {
		return 0
	}
	if scaled > 1 {
		return 1
	}
	return scaled
}

// Brain owns the sequence autoencoder, vocabulary, time scaler, dynamic
// threshold, and learning-mode overlay.
type Brain struct {
	mu sync.Mutex

	cfg Config

	vocabulary []string
	vocabIndex map[string]int
	timeScaler scaler
	maxSeqLen  int
	ae         *autoencoder
	threshold  float64
	ready      bool

	whitelist      *whitelist
	learningActive bool
	learningExpiry time.Time
	learningLabel  string
}

// New returns a Brain with the default threshold applied until training.
func New(cfg Config) *Brain {
	if cfg.WhitelistCapacity <= 0 {
		cfg.WhitelistCapacity = 50
	}
	if cfg.MinSequenceLength <= 0 {
		cfg.MinSequenceLength = 10
	}
	if cfg.MaxSequenceLength <= 0 {
		cfg.MaxSequenceLength = 50
	}
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = 0.05
	}
	return &Brain{
		cfg:       cfg,
		threshold: cfg.DefaultThreshold,
		whitelist: newWhitelist(cfg.WhitelistCapacity),
	}
}

// Ready reports whether training has completed at least once.
func (b *Brain) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Train builds the vocabulary and time scaler, fits the autoencoder to
// minimise reconstruction MSE, and sets the dynamic anomaly threshold
// (spec §4.4).
func (b *Brain) Train(sequences [][]Step) (float64, error) {
	if len(sequences) == 0 {
		return 0, domain.ErrNoTrainingData
	}

	vocabSet := make(map[string]struct{})
	observedMax := 0
	var allDeltas []float64
	for _, seq := range sequences {
		if len(seq) > observedMax {
			observedMax = len(seq)
		}
		for _, step := range seq {
			vocabSet[step.Loc] = struct{}{}
			allDeltas = append(allDeltas, step.TDelta)
		}
	}

	vocabulary := make([]string, 0, len(vocabSet))
	for loc := range vocabSet {
		vocabulary = append(vocabulary, loc)
	}
	sort.Strings(vocabulary)

	vocabIndex := make(map[string]int, len(vocabulary))
	for i, loc := range vocabulary {
		vocabIndex[loc] = i
	}

	maxSeqLen := clamp(observedMax, b.cfg.MinSequenceLength, b.cfg.MaxSequenceLength)

	tScaler := fitScaler(allDeltas)

	dim := 1 + len(vocabulary)
	ae := newAutoencoder(dim, hiddenWidth, rand.NormFloat64)

	var samples [][]float64
	for _, seq := range sequences {
		encoded := encodeSequence(seq, vocabIndex, tScaler, maxSeqLen)
		samples = append(samples, encoded...)
	}
	ae.train(samples, 150, 0.05)

	var totalMSEs []float64
	for _, seq := range sequences {
		encoded := encodeSequence(seq, vocabIndex, tScaler, maxSeqLen)
		totalMSEs = append(totalMSEs, meanStepMSE(ae, encoded))
	}
	mean, stddev := meanStddev(totalMSEs)
	threshold := mean + 3*stddev
	if threshold < 0.01 {
		threshold = 0.01
	}

	b.mu.Lock()
	b.vocabulary = vocabulary
	b.vocabIndex = vocabIndex
	b.timeScaler = tScaler
	b.maxSeqLen = maxSeqLen
	b.ae = ae
	b.threshold = threshold
	b.ready = true
	b.mu.Unlock()

	return threshold, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func fitScaler(values []float64) scaler {
	if len(values) == 0 {
		return scaler{min: 0, max: 1}
	}
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min == max {
		max = min + 1
	}
	return scaler{min: min, max: max}
}

// encodeSequence right-pads or truncates to seqLen, encoding each step as
// [scaled t_delta] ⊕ one_hot(loc, vocabulary). Unknown locations map to the
// zero one-hot row, never to a sentinel token.
func encodeSequence(seq []Step, vocabIndex map[string]int, ts scaler, seqLen int) [][]float64 {
	dim := 1 + len(vocabIndex)
	encoded := make([][]float64, seqLen)
	for i := 0; i < seqLen; i++ {
		row := make([]float64, dim)
		if i < len(seq) {
			row[0] = ts.apply(seq[i].TDelta)
			if idx, ok := vocabIndex[seq[i].Loc]; ok {
				row[1+idx] = 1.0
			}
		}
		encoded[i] = row
	}
	return encoded
}

func meanStepMSE(ae *autoencoder, encoded [][]float64) float64 {
	if len(encoded) == 0 {
		return 0
	}
	sum := 0.0
	for _, row := range encoded {
		sum += ae.stepMSE(row)
	}
	return sum / float64(len(encoded))
}

func perStepMSEs(ae *autoencoder, encoded [][]float64) []float64 {
	out := make([]float64, len(encoded))
	for i, row := range encoded {
		out[i] = ae.stepMSE(row)
	}
	return out
}

func meanStddev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// AnalyzeResult is the outcome of one ANALYZE_SEQUENCE request.
type AnalyzeResult struct {
	Score       float64
	IsAnomaly   bool
	Explanation string
}

// MaintainLearningMode clears learning mode once its TTL has elapsed and
// reports whether a transition just happened, so the caller can log it
// (spec §2.2).
func (b *Brain) MaintainLearningMode() (expired bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.learningActive && time.Now().After(b.learningExpiry) {
		b.learningActive = false
		b.learningExpiry = time.Time{}
		b.whitelist.clear()
		return true
	}
	return false
}

// SetLearningMode starts or stops the whitelist overlay. Stopping
// unconditionally clears the whitelist (spec §4.4).
func (b *Brain) SetLearningMode(active bool, durationMin float64, label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if active {
		b.learningActive = true
		b.learningExpiry = time.Now().Add(time.Duration(durationMin * float64(time.Minute)))
		b.learningLabel = label
	} else {
		b.learningActive = false
		b.learningExpiry = time.Time{}
		b.whitelist.clear()
	}
}

// Analyze scores one sequence, applying the learning-mode overlay if active.
func (b *Brain) Analyze(seq []Step) (AnalyzeResult, error) {
	b.MaintainLearningMode()

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return AnalyzeResult{Explanation: "security brain has not been trained"}, domain.ErrSecurityNotReady
	}

	encoded := encodeSequence(seq, b.vocabIndex, b.timeScaler, b.maxSeqLen)
	perStep := perStepMSEs(b.ae, encoded)

	total := 0.0
	for _, v := range perStep {
		total += v
	}
	totalMSE := total / float64(len(perStep))

	isAnomaly := totalMSE > b.threshold
	explanation := "Normal behavior"
	score := totalMSE

	if isAnomaly {
		culprit := 0
		worst := -1.0
		limit := len(seq)
		if limit > len(perStep) {
			limit = len(perStep)
		}
		for i := 0; i < limit; i++ {
			if perStep[i] > worst {
				worst = perStep[i]
				culprit = i
			}
		}
		explanation = fmt.Sprintf("High Reconstruction Error (%.4f)", score)
		if culprit < len(seq) {
			explanation = fmt.Sprintf("%s at step %d (%s)", explanation, culprit, seq[culprit].Loc)
		}
	}

	if isAnomaly && b.learningActive {
		locs := make([]string, len(seq))
		for i, s := range seq {
			locs[i] = s.Loc
		}
		last, transition := signatures(locs)

		if b.whitelist.contains(last) || (transition != "" && b.whitelist.contains(transition)) {
			isAnomaly = false
			score = b.threshold * 0.9
			explanation = fmt.Sprintf("whitelisted by %s", b.learningLabel)
		} else {
			b.whitelist.add(last)
			if transition != "" {
				b.whitelist.add(transition)
			}
			isAnomaly = false
			score = 0.0
			explanation = fmt.Sprintf("learned new pattern (%s)", b.learningLabel)
		}
	}

	return AnalyzeResult{Score: score, IsAnomaly: isAnomaly, Explanation: explanation}, nil
}

// Snapshot is the persisted shape of security_model.gob. The whitelist
// overlay is deliberately excluded (spec §9: short-lived tolerance, not
// long-term learning).
type Snapshot struct {
	Vocabulary []string
	ScalerMin  float64
	ScalerMax  float64
	MaxSeqLen  int
	Threshold  float64
	Dim        int
	Hidden     int
	W1         [][]float64
	B1         []float64
	W2         [][]float64
	B2         []float64
}

// ExportSnapshot returns the current model for persistence, or (Snapshot{}, false)
// if nothing has been trained yet.
func (b *Brain) ExportSnapshot() (Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return Snapshot{}, false
	}
	return Snapshot{
		Vocabulary: b.vocabulary,
		ScalerMin:  b.timeScaler.min,
		ScalerMax:  b.timeScaler.max,
		MaxSeqLen:  b.maxSeqLen,
		Threshold:  b.threshold,
		Dim:        b.ae.dim,
		Hidden:     b.ae.hidden,
		W1:         b.ae.w1,
		B1:         b.ae.b1,
		W2:         b.ae.w2,
		B2:         b.ae.b2,
	}, true
}

// ImportSnapshot restores a previously persisted model.
func (b *Brain) ImportSnapshot(s Snapshot) {
	if len(s.Vocabulary) == 0 && s.Dim == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.vocabulary = s.Vocabulary
	b.vocabIndex = make(map[string]int, len(s.Vocabulary))
	for i, loc := range s.Vocabulary {
		b.vocabIndex[loc] = i
	}
	b.timeScaler = scaler{min: s.ScalerMin, max: s.ScalerMax}
	b.maxSeqLen = s.MaxSeqLen
	b.threshold = s.Threshold
	b.ae = &autoencoder{dim: s.Dim, hidden: s.Hidden, w1: s.W1, b1: s.B1, w2: s.W2, b2: s.B2}
	b.ready = true
}
