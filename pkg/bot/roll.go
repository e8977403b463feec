package bot

import (
	"fmt"
	"math/rand/v2"
)

// Outcome is the number of identical trailing digits of a roll.
type Outcome uint8

const (
	Nothing Outcome = iota + 1
	Dubs
	Trips
	Quads
	Penta
	Hexa
	Septa
	Octa
	Nino
)

var outcomeNames = map[Outcome]string{
	Nothing: "",
	Dubs:    "👌 Dubs",
	Trips:   "🔥 Trips",
	Quads:   "😱 Quads",
	Penta:   "🤣👌 Penta",
	Hexa:    "👌👌🤔🤔👌👌 Hexa",
	Septa:   "👌👌👌👵 Septa",
	Octa:    "🅱️Octa",
	Nino:    "💯💯💯 El Niño",
}

func (o Outcome) String() string {
	return outcomeNames[o]
}

const (
	rollMin = 100_000_000
	rollMax = 999_999_999
)

// randomRoll returns a nine digit number.
func randomRoll() int {
	return rollMin + rand.IntN(rollMax-rollMin)
}

// outcomeOf counts how many trailing digits of roll equal the last one.
func outcomeOf(roll int) Outcome {
	count := 1
	suffix := roll % 10
	for rest := roll / 10; rest != 0; rest /= 10 {
		if rest%10 != suffix {
			break
		}
		count++
	}
	return Outcome(count)
}

// formatRoll renders a roll and its outcome for the chat.
func formatRoll(roll int) string {
	outcome := outcomeOf(roll)
	if outcome == Nothing {
		return fmt.Sprint(roll)
	}
	return fmt.Sprintf("%d %s", roll, outcome)
}
