package led

// Limiter keeps a WS2812 matrix inside its power envelope.
//
// It works in two stages on an R,G,B byte stream:
//  1. per-LED white cap: scales a pixel so R+G+B <= WhiteCap*3*255
//  2. global budget: estimates current at ChanMA per channel at full scale and
//     compresses the whole frame once it draws more than Knee*BudgetMA, so
//     it never reaches BudgetMA
type Limiter struct {
	WhiteCap float64 // 0..1, 0 or 1 disables
	ChanMA   float64 // mA per channel at 255; WS2812 ≈ 20
	BudgetMA float64 // 0 disables
	Knee     float64 // fraction of budget where soft limiting starts
}

func DefaultLimiter() Limiter {
	return Limiter{WhiteCap: 0.85, ChanMA: 20, BudgetMA: 2000, Knee: 0.9}
}

// Apply limits rgb in place.
func (l Limiter) Apply(rgb []byte) {
	if l.WhiteCap > 0 && l.WhiteCap < 1 {
		limit := l.WhiteCap * 3 * 255
		for i := 0; i+2 < len(rgb); i += 3 {
			s := float64(rgb[i]) + float64(rgb[i+1]) + float64(rgb[i+2])
			if s > limit {
				scaleBytes(rgb[i:i+3], limit/s)
			}
		}
	}

	if l.BudgetMA <= 0 {
		return
	}
	total := l.CurrentMA(rgb)
	if total <= 0 {
		return
	}
	knee := l.Knee
	if knee <= 0 || knee >= 1 {
		knee = 0.9
	}
	start := knee * l.BudgetMA
	if total <= start {
		return
	}
	// Above the knee the draw is compressed as start + span*x/(1+x), which
	// follows the input at the knee and only approaches the budget.
	span := l.BudgetMA - start
	x := (total - start) / span
	scaleBytes(rgb, (start+span*x/(1+x))/total)
}

// CurrentMA estimates the frame's draw in milliamps.
func (l Limiter) CurrentMA(rgb []byte) float64 {
	var sum float64
	for _, v := range rgb {
		sum += float64(v)
	}
	return sum / 255 * l.ChanMA
}

// scaleBytes truncates, so a scaled frame never exceeds the target.
func scaleBytes(b []byte, s float64) {
	if s >= 1 {
		return
	}
	for i := range b {
		b[i] = byte(float64(b[i]) * s)
	}
}
