package ftrl

import "math"

const (
	// sigmoidClamp bounds the linear score before exp to avoid overflow.
	sigmoidClamp = 35.0
	// probabilityFloor is what a clamped sigmoid returns at the low end.
	probabilityFloor = 1e-15
	// logLossEpsilon keeps log-loss finite for saturated probabilities.
	logLossEpsilon = 1e-6
)

// Weight materializes a feature weight from its accumulators.
//
//	s = sign(z)  (+1 when z >= 0)
//	w = 0                                          if s*z <= l1
//	w = (s*l1 - z) / ((beta + sqrt(n)) / alpha + l2)   otherwise
//
// The arithmetic is done in float64 and rounded once to float32.
func Weight(z, n float32, p Params) float32 {
	zf := float64(z)
	l1 := float64(p.L1)
	sign := 1.0
	if zf < 0 {
		sign = -1.0
	}
	if sign*zf <= l1 {
		return 0
	}
	denom := (float64(p.Beta)+math.Sqrt(float64(n)))/float64(p.Alpha) + float64(p.L2)
	return float32((sign*l1 - zf) / denom)
}

// Sigma is the per-coordinate learning-rate increment for gradient g given the
// accumulated squared gradient n.
func Sigma(n, g float64, alpha float32) float64 {
	return (math.Sqrt(n+g*g) - math.Sqrt(n)) / float64(alpha)
}

// Sigmoid is the logistic function. It saturates to 1e-15 for x <= -35 and
// to 1-1e-15 for x >= 35.
func Sigmoid(x float64) float64 {
	if x >= sigmoidClamp {
		return 1 - probabilityFloor
	}
	if x <= -sigmoidClamp {
		return probabilityFloor
	}
	return 1 / (1 + math.Exp(-x))
}

// LogLoss is the binary cross-entropy of probability p against label y in {0, 1}.
// p is clamped away from 0 and 1 by 1e-6 on either side.
func LogLoss(p, y float64) float64 {
	if y >= 0.5 {
		return -math.Log(math.Max(p, logLossEpsilon))
	}
	return -math.Log(math.Max(1-p, logLossEpsilon))
}

// SquaredLoss is 0.5*(pred-y)^2.
func SquaredLoss(pred, y float64) float64 {
	d := pred - y
	return 0.5 * d * d
}

// link maps a linear score to a prediction.
func (t ModelType) link(score float64) float64 {
	if t == Classification {
		return Sigmoid(score)
	}
	return score
}

// loss of prediction pred (already through the link) against label y.
func (t ModelType) loss(pred, y float64) float64 {
	if t == Classification {
		return LogLoss(pred, y)
	}
	return SquaredLoss(pred, y)
}
