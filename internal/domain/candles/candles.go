// Package candles detects the bullish reversal candlestick patterns that
// feed the breakout score: hammer, bullish engulfing, and morning star.
// Detection looks at the final bars of a window and reports a positive
// signal per pattern found. The screen only hunts long setups, so bearish
// variants are not checked.
package candles

import (
	"math"

	"github.com/breakoutlab/superstock/internal/domain/series"
)

// Pattern names used as keys in the signal map.
const (
	Hammer      = "hammer"
	Engulfing   = "engulfing"
	MorningStar = "morning_star"
)

// Signals evaluates each supported pattern on the last bars of the window
// and returns its signal strength: 1 when the bullish form is present,
// 0 otherwise. Every pattern name is always present in the map.
func Signals(bars []series.Bar) map[string]float64 {
	out := map[string]float64{
		Hammer:      0,
		Engulfing:   0,
		MorningStar: 0,
	}
	n := len(bars)
	if n == 0 {
		return out
	}

	if isHammer(bars[n-1]) {
		out[Hammer] = 1
	}
	if n >= 2 && isBullishEngulfing(bars[n-2], bars[n-1]) {
		out[Engulfing] = 1
	}
	if n >= 3 && isMorningStar(bars[n-3], bars[n-2], bars[n-1]) {
		out[MorningStar] = 1
	}
	return out
}

func body(b series.Bar) float64 { return math.Abs(b.Close - b.Open) }

func bodyTop(b series.Bar) float64 { return math.Max(b.Open, b.Close) }

func bodyBottom(b series.Bar) float64 { return math.Min(b.Open, b.Close) }

func isBullish(b series.Bar) bool { return b.Close > b.Open }

func isBearish(b series.Bar) bool { return b.Close < b.Open }

// isHammer requires a small body parked in the top of the range with a long
// lower shadow: the failed sell-off that often marks a base low.
func isHammer(b series.Bar) bool {
	rng := b.High - b.Low
	if rng <= 0 {
		return false
	}
	bd := body(b)
	lowerShadow := bodyBottom(b) - b.Low
	upperShadow := b.High - bodyTop(b)

	return bd <= 0.3*rng &&
		lowerShadow >= 2*bd &&
		upperShadow <= 0.1*rng
}

// isBullishEngulfing requires a bullish body that fully contains and
// reverses the prior bearish body.
func isBullishEngulfing(prev, cur series.Bar) bool {
	return isBearish(prev) && isBullish(cur) &&
		cur.Open <= prev.Close && cur.Close >= prev.Open &&
		body(cur) > body(prev)
}

// isMorningStar requires a strong down bar, an indecision bar holding below
// it, then a strong up bar closing beyond the midpoint of the first body.
func isMorningStar(first, star, last series.Bar) bool {
	if !isBearish(first) || !isBullish(last) {
		return false
	}
	firstMid := (first.Open + first.Close) / 2

	return body(star) <= 0.5*body(first) &&
		bodyTop(star) <= first.Close &&
		last.Close >= firstMid
}
