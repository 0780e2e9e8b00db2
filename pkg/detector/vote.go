package detector

// Vote combines the four directional verdicts. The final verdict is true when
// more than threshold directions are skull-like.
func Vote(n, s, w, e bool, threshold int) (bool, [4]bool) {
	votes := [4]bool{n, s, w, e}
	yes := 0
	for _, v := range votes {
		if v {
			yes++
		}
	}
	return yes > threshold, votes
}
