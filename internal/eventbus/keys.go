package eventbus

import "encoding/binary"

// Keyspace helpers for the durable topic logs.
//
// Layout (byte-wise, lexicographically sortable):
// - bus/{pubsub}/{topic}/m
// - bus/{pubsub}/{topic}/e/{seq_be8}

var (
	busPrefix  = []byte("bus/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
	sep        = byte('/')
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// keyTopicMeta builds the topic metadata key holding the last sequence.
func keyTopicMeta(pubsub, topic string) []byte {
	k := make([]byte, 0, len(pubsub)+len(topic)+16)
	k = append(k, busPrefix...)
	k = append(k, pubsub...)
	k = append(k, sep)
	k = append(k, topic...)
	k = append(k, metaSuffix...)
	return k
}

// keyTopicEntry builds the entry key with a big-endian sequence so scans
// return publish order.
func keyTopicEntry(pubsub, topic string, seq uint64) []byte {
	k := make([]byte, 0, len(pubsub)+len(topic)+24)
	k = append(k, busPrefix...)
	k = append(k, pubsub...)
	k = append(k, sep)
	k = append(k, topic...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}
