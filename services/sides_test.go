package services

import (
	"testing"

	"debatearena/models"
)

type fixedCoin bool

func (c fixedCoin) Heads() bool { return bool(c) }

func TestResolveSidesVotes(t *testing.T) {
	tests := []struct {
		name         string
		voteA, voteB models.Side
		wantA, wantB models.Side
	}{
		{"different votes honoured", models.SidePro, models.SideCon, models.SidePro, models.SideCon},
		{"different votes reversed", models.SideCon, models.SidePro, models.SideCon, models.SidePro},
		{"only a voted", models.SideCon, models.SideNone, models.SideCon, models.SidePro},
		{"only b voted", models.SideNone, models.SideCon, models.SidePro, models.SideCon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := ResolveSides(tt.voteA, tt.voteB, fixedCoin(true))
			if a != tt.wantA || b != tt.wantB {
				t.Errorf("got (%s, %s), want (%s, %s)", a, b, tt.wantA, tt.wantB)
			}
		})
	}
}

func TestResolveSidesCoin(t *testing.T) {
	a, b := ResolveSides(models.SidePro, models.SidePro, fixedCoin(true))
	if a != models.SidePro || b != models.SideCon {
		t.Errorf("heads: got (%s, %s)", a, b)
	}
	a, b = ResolveSides(models.SideNone, models.SideNone, fixedCoin(false))
	if a != models.SideCon || b != models.SidePro {
		t.Errorf("tails: got (%s, %s)", a, b)
	}
}

func TestResolveSidesAlwaysOpposite(t *testing.T) {
	votes := []models.Side{models.SideNone, models.SidePro, models.SideCon}
	for _, va := range votes {
		for _, vb := range votes {
			for i := 0; i < 20; i++ {
				a, b := ResolveSides(va, vb, nil)
				if !a.Valid() || !b.Valid() || a == b {
					t.Fatalf("votes (%q, %q) produced (%q, %q)", va, vb, a, b)
				}
			}
		}
	}
}

func TestResolveSidesFairWhenUndecided(t *testing.T) {
	const runs = 1000
	pro := 0
	for i := 0; i < runs; i++ {
		a, _ := ResolveSides(models.SidePro, models.SidePro, DefaultCoin)
		if a == models.SidePro {
			pro++
		}
	}
	// The band is over six standard deviations either side of 500.
	if pro < 400 || pro > 600 {
		t.Errorf("party A got pro %d/%d times, expected roughly half", pro, runs)
	}
}
