package alerts

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

func newEntropy() io.Reader {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Monotonic keeps IDs created within one millisecond strictly increasing.
	return ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// nextID must be called with the generator lock held.
func (g *Generator) nextID(t Type, asset string, at time.Time) (string, error) {
	u, err := ulid.New(ulid.Timestamp(at.UTC()), g.entropy)
	if err != nil {
		return "", err
	}
	return string(t) + "_" + asset + "_" + u.String(), nil
}
