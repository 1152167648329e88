package standingsdomain

import "testing"

func TestCanChallengeWithinReach(t *testing.T) {
	const reach = 3

	cases := []struct {
		name           string
		challengerRank int
		targetRank     int
		want           bool
	}{
		{"one above", 5, 4, true},
		{"exactly at reach", 5, 2, true},
		{"one past reach", 5, 1, false},
		{"same rank", 4, 4, false},
		{"target below challenger", 3, 6, false},
		{"second challenges first", 2, 1, true},
		{"zero rank", 0, 1, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanChallenge(tc.challengerRank, tc.targetRank, reach); got != tc.want {
				t.Fatalf("CanChallenge(%d, %d, %d) = %v, want %v",
					tc.challengerRank, tc.targetRank, reach, got, tc.want)
			}
		})
	}
}

func TestCanChallengeBoundaryPerReach(t *testing.T) {
	for reach := 1; reach <= 5; reach++ {
		challenger := reach + 2
		if !CanChallenge(challenger, challenger-reach, reach) {
			t.Fatalf("gap == reach (%d) should be allowed", reach)
		}
		if CanChallenge(challenger, challenger-reach-1, reach) {
			t.Fatalf("gap == reach+1 (%d) should be rejected", reach+1)
		}
	}
}
