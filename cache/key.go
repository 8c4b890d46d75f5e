package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
)

// HashKey 生成确定性缓存键：namespace + ":" + sha256(长度前缀编码的各字段)。
// 每个字段前写入 uvarint 长度，因此 ("ab","c") 与 ("a","bc") 得到不同的键。
func HashKey(namespace string, parts ...string) string {
	h := sha256.New()
	var lenBuf [binary.MaxVarintLen64]byte
	for _, p := range parts {
		n := binary.PutUvarint(lenBuf[:], uint64(len(p)))
		h.Write(lenBuf[:n])
		io.WriteString(h, p)
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))
}
