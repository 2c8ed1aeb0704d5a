package alibi

import (
	"fmt"
	"math/rand/v2"
)

var (
	locations = []string{"the museum", "Riverside Park", "the old train yard", "the Seaside Motel", "the Moonlight Diner", "the city library"}
	weapons   = []string{"candlestick", "wrench", "rope", "antique pistol", "poison", "lead pipe"}
	motives   = []string{"jealousy", "money", "revenge", "a cover-up", "panic", "blackmail"}
)

type Crime struct {
	Location string `json:"location"`
	Weapon   string `json:"weapon"`
	Motive   string `json:"motive"`
}

// Brief is pushed privately to the criminal.
type Brief struct {
	Brief string `json:"brief"`
	Crime Crime  `json:"crime"`
}

func randomCrime() *Crime {
	return &Crime{
		Location: locations[rand.IntN(len(locations))],
		Weapon:   weapons[rand.IntN(len(weapons))],
		Motive:   motives[rand.IntN(len(motives))],
	}
}

func briefFor(c *Crime) Brief {
	return Brief{
		Brief: fmt.Sprintf("Keep it cool. Stick to: %s, %s, motive %s.", c.Location, c.Weapon, c.Motive),
		Crime: *c,
	}
}
