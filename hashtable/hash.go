package hashtable

// Hash is the djb2 string hash: h = h*33 + c over every byte, seeded with
// 5381, in uint64 arithmetic. Frozen maps depend on it for bucket selection,
// so it must never change.
func Hash(s string) uint64 {
	h := uint64(5381)
	for i := 0; i < len(s); i++ {
		h = h<<5 + h + uint64(s[i])
	}
	return h
}
