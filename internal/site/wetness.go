package site

import "math"

// WetnessIndex derives the moisture factor from the accessible field
// capacity (percent) and the groundwater table depth (m). Groundwater deeper
// than 1.5 m does not count, field capacity saturates at 30 %, and field
// capacity alone lifts the index to 0.4 at most.
func WetnessIndex(accessibleFieldCapacity, groundwaterTable float64) float64 {
	mG := math.Max(0, 1-groundwaterTable/1.5)
	mK := math.Min(1, math.Max(0, accessibleFieldCapacity/30))
	return math.Max(mG, mK*0.4)
}
