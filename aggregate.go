package sentinel2

import (
	"fmt"
	"math"
	"sort"
)

// 单像元时序样本的聚合函数
// samples为该像元各景的有效观测值，times为对应的成像时刻（自首景起的天数），
// scenes为各样本在区间内的原始景序号（掩膜剔除后样本不连续时仍按原序号计）
// 实现时允许对samples就地排序
type AggFunc func(samples, times []float64, scenes []int) float64

// 按方法名构造聚合函数，quantile仅在method=quantile时生效
func NewAggregator(method string, quantile float64) (fn AggFunc, err error) {
	switch method {
	case "average":
		fn = func(s, _ []float64, _ []int) float64 { return aggMean(s) }
	case "count":
		fn = func(s, _ []float64, _ []int) float64 { return float64(len(s)) }
	case "median":
		fn = func(s, _ []float64, _ []int) float64 { return aggQuantile(s, 0.5) }
	case "mode":
		fn = func(s, _ []float64, _ []int) float64 { return aggMode(s) }
	case "minimum":
		fn = func(s, _ []float64, _ []int) float64 { return aggMin(s) }
	case "maximum":
		fn = func(s, _ []float64, _ []int) float64 { return aggMax(s) }
	case "min_raster":
		fn = func(s, _ []float64, sc []int) float64 { return float64(sc[argMin(s)]) }
	case "max_raster":
		fn = func(s, _ []float64, sc []int) float64 { return float64(sc[argMax(s)]) }
	case "stddev":
		fn = func(s, _ []float64, _ []int) float64 { return math.Sqrt(aggVariance(s)) }
	case "range":
		fn = func(s, _ []float64, _ []int) float64 { return aggMax(s) - aggMin(s) }
	case "sum":
		fn = func(s, _ []float64, _ []int) float64 { return aggSum(s) }
	case "variance":
		fn = func(s, _ []float64, _ []int) float64 { return aggVariance(s) }
	case "diversity":
		fn = func(s, _ []float64, _ []int) float64 { return aggDiversity(s) }
	case "slope":
		fn = func(s, t []float64, _ []int) float64 { sl, _, _ := linReg(s, t); return sl }
	case "offset":
		fn = func(s, t []float64, _ []int) float64 { _, off, _ := linReg(s, t); return off }
	case "detcoeff":
		fn = func(s, t []float64, _ []int) float64 { _, _, r2 := linReg(s, t); return r2 }
	case "quart1":
		fn = func(s, _ []float64, _ []int) float64 { return aggQuantile(s, 0.25) }
	case "quart3":
		fn = func(s, _ []float64, _ []int) float64 { return aggQuantile(s, 0.75) }
	case "perc90":
		fn = func(s, _ []float64, _ []int) float64 { return aggQuantile(s, 0.9) }
	case "quantile":
		if quantile < 0 || quantile > 1 {
			err = fmt.Errorf("%w: quantile %v out of [0,1]", ErrBadAggMethod, quantile)
			return
		}
		p := quantile
		fn = func(s, _ []float64, _ []int) float64 { return aggQuantile(s, p) }
	case "skewness":
		fn = func(s, _ []float64, _ []int) float64 { return aggSkewness(s) }
	case "kurtosis":
		fn = func(s, _ []float64, _ []int) float64 { return aggKurtosis(s) }
	default:
		err = fmt.Errorf("%w: %q", ErrBadAggMethod, method)
	}
	return
}

func aggSum(s []float64) float64 {
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum
}

func aggMean(s []float64) float64 {
	return aggSum(s) / float64(len(s))
}

func aggMin(s []float64) float64 {
	min := s[0]
	for _, v := range s[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func aggMax(s []float64) float64 {
	max := s[0]
	for _, v := range s[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// 取得最小值的样本位置（平局取先出现者）
func argMin(s []float64) int {
	idx := 0
	for i, v := range s[1:] {
		if v < s[idx] {
			idx = i + 1
		}
	}
	return idx
}

func argMax(s []float64) int {
	idx := 0
	for i, v := range s[1:] {
		if v > s[idx] {
			idx = i + 1
		}
	}
	return idx
}

// 总体方差
func aggVariance(s []float64) float64 {
	mean := aggMean(s)
	var sq float64
	for _, v := range s {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(s))
}

// 出现次数最多的值，平局时取较小者
func aggMode(s []float64) float64 {
	sort.Float64s(s)
	best, bestCnt := s[0], 1
	cur, cnt := s[0], 1
	for _, v := range s[1:] {
		if v == cur {
			cnt++
		} else {
			cur, cnt = v, 1
		}
		if cnt > bestCnt {
			best, bestCnt = cur, cnt
		}
	}
	return best
}

func aggDiversity(s []float64) float64 {
	sort.Float64s(s)
	n := 1
	for i := 1; i < len(s); i++ {
		if s[i] != s[i-1] {
			n++
		}
	}
	return float64(n)
}

// 线性插值分位数（R type 7）
func aggQuantile(s []float64, p float64) float64 {
	sort.Float64s(s)
	if len(s) == 1 {
		return s[0]
	}
	pos := p * float64(len(s)-1)
	i := int(pos)
	if i >= len(s)-1 {
		return s[len(s)-1]
	}
	frac := pos - float64(i)
	return s[i] + frac*(s[i+1]-s[i])
}

// 对时间的一元线性回归：返回斜率、截距与决定系数
func linReg(s, t []float64) (slope, offset, r2 float64) {
	n := float64(len(s))
	if len(s) < 2 {
		return 0, s[0], 0
	}
	var sumX, sumY float64
	for i := range s {
		sumX += t[i]
		sumY += s[i]
	}
	meanX, meanY := sumX/n, sumY/n
	var sxx, sxy, syy float64
	for i := range s {
		dx, dy := t[i]-meanX, s[i]-meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 {
		return 0, meanY, 0
	}
	slope = sxy / sxx
	offset = meanY - slope*meanX
	if syy > 0 {
		r2 = sxy * sxy / (sxx * syy)
	}
	return
}

func aggSkewness(s []float64) float64 {
	n := float64(len(s))
	mean := aggMean(s)
	var m2, m3 float64
	for _, v := range s {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

func aggKurtosis(s []float64) float64 {
	n := float64(len(s))
	mean := aggMean(s)
	var m2, m4 float64
	for _, v := range s {
		d := v - mean
		m2 += d * d
		m4 += d * d * d * d
	}
	m2 /= n
	m4 /= n
	if m2 == 0 {
		return 0
	}
	return m4/(m2*m2) - 3
}
