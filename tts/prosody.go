package tts

import "math"

// Output limits passed to the synthesizer.
const (
	minUtteranceRate  = 0.1
	maxUtteranceRate  = 10.0
	minUtterancePitch = 0.0
	maxUtterancePitch = 2.0
)

// Prosody computes the rate and pitch for seg spoken by p at the user
// rate multiplier.
func Prosody(seg Segment, p Personality, userRate float64) (rate, pitch float64) {
	baseRate := p.BaseRate
	if baseRate <= 0 {
		baseRate = 1
	}
	basePitch := p.BasePitch
	if basePitch <= 0 {
		basePitch = 1
	}
	speed := seg.SpeedModifier
	if speed <= 0 {
		speed = 1
	}

	rate = userRate * baseRate * speed
	pitch = basePitch * math.Pow(2, seg.PitchShift/12)

	switch seg.Emphasis {
	case EmphasisStrong:
		rate *= 0.95
		pitch *= 1.05
	case EmphasisSoft:
		rate *= 0.95
		pitch *= 0.95
	}

	switch seg.Type {
	case SegmentHeading:
		rate *= 0.9
		pitch *= 1.05
	case SegmentQuote:
		rate *= 0.97
		pitch *= 0.97
	}

	return clamp(rate, minUtteranceRate, maxUtteranceRate), clamp(pitch, minUtterancePitch, maxUtterancePitch)
}

// ClampRate limits a user rate multiplier to [MinRate, MaxRate].
func ClampRate(rate float64) float64 {
	if math.IsNaN(rate) {
		return 1
	}
	return clamp(rate, MinRate, MaxRate)
}

// IndexForFraction maps a fraction of the document to a segment index in
// [0, n-1].
func IndexForFraction(f float64, n int) int {
	switch {
	case n <= 0 || math.IsNaN(f) || f <= 0:
		return 0
	case f >= 1:
		return n - 1
	}
	// The epsilon keeps float(i)/float(n) mapping back to i.
	idx := int(math.Floor(f*float64(n) + 1e-9))
	if idx > n-1 {
		return n - 1
	}
	return idx
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
