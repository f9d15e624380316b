package attendance

import "math"

// EstimateDistance converts an RSSI reading to metres with the log-distance
// path-loss model. txPower is the RSSI measured at one metre.
func EstimateDistance(rssi int, txPower, pathLossExponent float64) float64 {
	if pathLossExponent <= 0 {
		pathLossExponent = 2
	}
	return math.Pow(10, (txPower-float64(rssi))/(10*pathLossExponent))
}
