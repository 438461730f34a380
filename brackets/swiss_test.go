package brackets

import "testing"

func TestSwissPairRoundOnePairsBySeed(t *testing.T) {
	pairer := NewSwissPairer()
	matches, err := pairer.PairRoundOne(seedList(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if *matches[0].Participant1.Seed != 1 || *matches[0].Participant2.Seed != 2 {
		t.Errorf("expected seed 1 vs seed 2 in the first match, got %v vs %v",
			*matches[0].Participant1.Seed, *matches[0].Participant2.Seed)
	}
	if *matches[1].Participant1.Seed != 3 || *matches[1].Participant2.Seed != 4 {
		t.Errorf("expected seed 3 vs seed 4 in the second match, got %v vs %v",
			*matches[1].Participant1.Seed, *matches[1].Participant2.Seed)
	}
}

func TestSwissPairRoundOneOddCountGivesLowestSeedABye(t *testing.T) {
	pairer := NewSwissPairer()
	matches, err := pairer.PairRoundOne(seedList(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := matches[len(matches)-1]
	if !last.IsBye {
		t.Fatal("expected the last match to be a bye")
	}
	if *last.Participant1.Seed != 5 {
		t.Errorf("expected seed 5 (lowest rank) to receive the bye, got seed %d", *last.Participant1.Seed)
	}
}

func TestSwissPairRoundOneRejectsFewerThanTwoSeeds(t *testing.T) {
	pairer := NewSwissPairer()
	if _, err := pairer.PairRoundOne(seedList(1)); err == nil {
		t.Fatal("expected an error for fewer than 2 participants")
	}
}

func standingsFromSeeds(seeds []Seed, points map[int]int) []SwissStanding {
	standings := make([]SwissStanding, len(seeds))
	for i, s := range seeds {
		standings[i] = SwissStanding{
			RegistrationID: s.RegistrationID,
			Name:           s.Name,
			Seed:           s.Seed,
			Points:         points[s.RegistrationID],
		}
	}
	return standings
}

func TestSwissPairNextRoundAvoidsRematches(t *testing.T) {
	pairer := NewSwissPairer()
	seeds := seedList(4)
	// All four tied at 1 point, so they fall into one score group together;
	// 1 already played 2 and 3 already played 4 in round one.
	standings := standingsFromSeeds(seeds, map[int]int{1: 1, 2: 1, 3: 1, 4: 1})
	priorOpponents := map[int]map[int]bool{
		1: {2: true},
		2: {1: true},
		3: {4: true},
		4: {3: true},
	}
	matches, err := pairer.PairNextRound(2, standings, priorOpponents, map[int]bool{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, m := range matches {
		if m.IsBye {
			continue
		}
		a, b := *m.Participant1.RegistrationID, *m.Participant2.RegistrationID
		if priorOpponents[a][b] {
			t.Errorf("pairing (%d,%d) is a rematch of round one", a, b)
		}
	}
}

func TestSwissPairNextRoundGroupsByScoreBeforePairing(t *testing.T) {
	pairer := NewSwissPairer()
	seeds := seedList(4)
	// 1 and 2 are on 2 points, 3 and 4 are on 0 points: a 2-point player
	// should never be paired with a 0-point player while a same-group
	// partner is available.
	standings := standingsFromSeeds(seeds, map[int]int{1: 2, 2: 2, 3: 0, 4: 0})
	matches, err := pairer.PairNextRound(2, standings, map[int]map[int]bool{}, map[int]bool{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	for _, m := range matches {
		a, b := *m.Participant1.RegistrationID, *m.Participant2.RegistrationID
		topGroup := map[int]bool{1: true, 2: true}
		if topGroup[a] != topGroup[b] {
			t.Errorf("pairing (%d,%d) crosses score groups when a same-group pairing was available", a, b)
		}
	}
}

func TestSwissPairNextRoundOddCountGivesExactlyOneBye(t *testing.T) {
	pairer := NewSwissPairer()
	seeds := seedList(5)
	standings := standingsFromSeeds(seeds, map[int]int{1: 1, 2: 1, 3: 1, 4: 0, 5: 0})
	matches, err := pairer.PairNextRound(2, standings, map[int]map[int]bool{}, map[int]bool{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byeCount := 0
	for _, m := range matches {
		if m.IsBye {
			byeCount++
		}
	}
	if byeCount != 1 {
		t.Fatalf("got %d bye matches, want exactly 1 for an odd participant count", byeCount)
	}
}

func TestSwissPairNextRoundRejectsFewerThanTwoStandings(t *testing.T) {
	pairer := NewSwissPairer()
	if _, err := pairer.PairNextRound(2, standingsFromSeeds(seedList(1), nil), nil, nil); err == nil {
		t.Fatal("expected an error for fewer than 2 participants")
	}
}
