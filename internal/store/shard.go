package store

// DefaultShards is used when a store is created with fewer than one shard
const DefaultShards = 64

// shardIndex hashes key onto one of n shards
func shardIndex(key string, n int) uint32 {
	hash := uint32(0)
	for _, c := range key {
		hash = hash*31 + uint32(c)
	}
	return hash % uint32(n)
}
