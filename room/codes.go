package room

import "math/rand"

// Room codes are short and human-typeable: no 0/O or 1/I lookalikes.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 6

func generateRoomCode(rng *rand.Rand, used map[string]bool) string {
	for {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeAlphabet[rng.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if !used[code] {
			return code
		}
	}
}
