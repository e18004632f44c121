package key

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	once                   sync.Once
	monotonicULIDGenerator *MonotonicULIDGenerator
)

// MonotonicULIDGenerator hands out strictly increasing ULIDs, also for
// timestamps within the same millisecond.
type MonotonicULIDGenerator struct {
	sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewMonotonicULIDGenerator() *MonotonicULIDGenerator {
	once.Do(func() {
		source := rand.New(rand.NewSource(time.Now().UnixNano()))
		monotonicULIDGenerator = &MonotonicULIDGenerator{
			entropy: ulid.Monotonic(source, 0),
		}
	})

	return monotonicULIDGenerator
}

func (u *MonotonicULIDGenerator) New(t time.Time) (ulid.ULID, error) {
	u.Lock()
	defer u.Unlock()
	return ulid.New(ulid.Timestamp(t), u.entropy)
}
