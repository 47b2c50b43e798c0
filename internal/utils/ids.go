package utils

import "math/rand/v2"

const instanceIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// InstanceID returns the short random identifier a worker or API consumer
// generates at startup and attaches to its private queue names, routing keys
// and log lines.
func InstanceID() string {
	b := make([]byte, 5)
	for i := range b {
		b[i] = instanceIDAlphabet[rand.IntN(len(instanceIDAlphabet))]
	}
	return string(b)
}
