package bucketing

import (
	"hash"
	"sync"

	"github.com/spaolacci/murmur3"
)

const defaultAccountBuckets = 16

// BucketingManager spreads account rows over a fixed number of partitions.
// The bucket count must not change once data has been written.
type BucketingManager struct {
	accountBuckets int
	hasherPool     sync.Pool
}

func NewBucketingManager(accountBuckets int) *BucketingManager {
	if accountBuckets <= 0 {
		accountBuckets = defaultAccountBuckets
	}
	bm := &BucketingManager{accountBuckets: accountBuckets}

	// Pool hashers to avoid an allocation per lookup
	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}
	return bm
}

// AccountBucket returns the partition (0 to accountBuckets-1) for an account id.
func (bm *BucketingManager) AccountBucket(accountID string) int {
	return int(bm.getHash(accountID) % uint64(bm.accountBuckets))
}

func (bm *BucketingManager) AccountBuckets() int {
	return bm.accountBuckets
}

func (bm *BucketingManager) getHash(key string) uint64 {
	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}
