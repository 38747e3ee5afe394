package utils

import (
	"math/rand"

	"github.com/Pallinder/go-randomdata"
)

// RandomNameGenerator hands out unique names from a fixed seed,
// so that two runs over the same input name things the same way.
type RandomNameGenerator struct {
	used map[string]struct{}
}

func (rng *RandomNameGenerator) RandomName() string {
	if rng.used == nil {
		rng.used = make(map[string]struct{})
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	}
	for {
		name := randomdata.SillyName()
		// avoid duplicate names
		if _, exists := rng.used[name]; !exists {
			rng.used[name] = struct{}{}
			return name
		}
	}
}

// Reserve marks an authored name as taken.
func (rng *RandomNameGenerator) Reserve(name string) {
	if rng.used == nil {
		rng.used = make(map[string]struct{})
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	}
	rng.used[name] = struct{}{}
}
