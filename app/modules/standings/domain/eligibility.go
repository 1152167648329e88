package standingsdomain

// CanChallenge encodes the pyramid reach rule: a team may only challenge an
// opponent ranked strictly better than itself, and no more than reach
// positions above. Ranks are 1-based; reach comes from configuration.
func CanChallenge(challengerRank, targetRank, reach int) bool {
	if challengerRank <= 0 || targetRank <= 0 || reach <= 0 {
		return false
	}
	if targetRank >= challengerRank {
		return false
	}
	return challengerRank-targetRank <= reach
}
