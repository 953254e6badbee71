package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

// logLossEps はlog(0)を避けるためのクリッピング幅
const logLossEps = 1e-15

// AUC は ROC 曲線下面積を Mann-Whitney の U 統計量として計算する。
// 同じスコアには平均順位を割り当てる。ラベルが片方のクラスしかない場合、
// AUC は定義できないため 0.5 を返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = yScore.AtVec(i)
		if math.IsNaN(scores[i]) {
			return 0, errors.NewValueError("AUC", "scores contain NaN")
		}
	}
	order := make([]int, n)
	floats.Argsort(scores, order) // scores はソートされ、order に元の位置が入る

	var rankSumPos float64
	var nPos int
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[j+1] == scores[i] {
			j++
		}
		// 順位は 1 始まり、同順位は平均
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if yTrue.AtVec(order[k]) == 1 {
				rankSumPos += avgRank
				nPos++
			}
		}
		i = j + 1
	}

	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}
	u := rankSumPos - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), nil
}

// AUCMatrix は行列の第1列同士でAUCを計算する
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	t, err := firstColumn("AUCMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	s, err := firstColumn("AUCMatrix", yScore)
	if err != nil {
		return 0, err
	}
	return AUC(t, s)
}

// BinaryLogLoss は2値の交差エントロピーの平均を計算する。確率は [eps, 1-eps] にクリップする。
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := math.Min(math.Max(yProb.AtVec(i), logLossEps), 1-logLossEps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// ClassificationError は予測ラベルが一致しない割合を返す
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := accuracy("ClassificationError", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// Accuracy は予測ラベルが一致する割合を返す
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	return accuracy("Accuracy", yTrue, yPred)
}

func accuracy(op string, yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair(op, yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// Threshold はスコアを閾値で 0/1 のラベルに変換する（score >= threshold で 1）
func Threshold(scores []float64, threshold float64) *mat.VecDense {
	out := make([]float64, len(scores))
	for i, s := range scores {
		if s >= threshold {
			out[i] = 1
		}
	}
	return Vec(out)
}
