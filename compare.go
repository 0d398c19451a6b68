package whatif

// DefaultDivergenceThreshold is the relative total-value delta beyond which
// two timelines are considered to have meaningfully diverged.
const DefaultDivergenceThreshold = 0.05

// CompareOptions tunes the divergence detection policy.
type CompareOptions struct {
	// Relative threshold on |delta| / |reference total value|.
	// Zero means DefaultDivergenceThreshold.
	Relative float64
	// Absolute threshold on |delta|. The zero Money disables it.
	Absolute Money
}

func (o CompareOptions) relative() float64 {
	if o.Relative == 0 {
		return DefaultDivergenceThreshold
	}
	return o.Relative
}

// Delta is the per-date comparison of two timelines. Relative is the delta
// as a percentage of B, the reference side.
type Delta struct {
	Date       Date    `json:"date"`
	A          Money   `json:"a"`
	B          Money   `json:"b"`
	Delta      Money   `json:"delta"`
	Relative   Percent `json:"relative"`
	Cumulative Money   `json:"cumulative"`
}

// Comparison is the result of aligning two timelines by calendar date.
type Comparison struct {
	Deltas           []Delta `json:"deltas"`
	Cumulative       Money   `json:"cumulative"`
	DivergencePoints []Date  `json:"divergence_points"`
}

func totalHistory(snapshots []Snapshot) *Series[Money] {
	h := &Series[Money]{}
	for _, s := range snapshots {
		h.Append(s.Date, s.TotalValue)
	}
	return h
}

// Compare aligns two snapshot sequences by date and computes per-date and
// cumulative total-value divergence. A date present in only one timeline
// carries the other side's last known value forward, so differing trading
// calendars do not produce spurious divergence. Dates before both sides have
// a value are skipped.
//
// Divergence points are edge-triggered: a date qualifies when the delta first
// exceeds the threshold after having been below it, not on every date over
// threshold.
func Compare(a, b []Snapshot, opts CompareOptions) Comparison {
	ha, hb := totalHistory(a), totalHistory(b)

	var out Comparison
	var cumulative Money
	below := true
	for on := range Iterate(ha, hb) {
		va, okA := ha.ValueAsOf(on)
		vb, okB := hb.ValueAsOf(on)
		if !okA || !okB {
			continue
		}
		delta := va.Sub(vb)
		cumulative = cumulative.Add(delta)
		out.Deltas = append(out.Deltas, Delta{
			Date: on, A: va, B: vb, Delta: delta,
			Relative:   Percent(100 * delta.Ratio(vb)),
			Cumulative: cumulative,
		})

		over := diverged(delta, vb, opts)
		if over && below {
			out.DivergencePoints = append(out.DivergencePoints, on)
		}
		below = !over
	}
	out.Cumulative = cumulative
	return out
}

// diverged reports whether delta exceeds the absolute or relative threshold
// against the reference value.
func diverged(delta, reference Money, opts CompareOptions) bool {
	abs := delta
	if abs.IsNegative() {
		abs = abs.Neg()
	}
	if !opts.Absolute.IsZero() && abs.GreaterThan(opts.Absolute) {
		return true
	}
	ref := reference
	if ref.IsNegative() {
		ref = ref.Neg()
	}
	if ref.IsZero() {
		return !abs.IsZero()
	}
	return abs.Ratio(ref) > opts.relative()
}

// DivergencePoints returns the edge-triggered set of dates where the two
// timelines' total values cross the relative threshold. Zero threshold means
// DefaultDivergenceThreshold.
func DivergencePoints(a, b []Snapshot, threshold float64) []Date {
	return Compare(a, b, CompareOptions{Relative: threshold}).DivergencePoints
}
