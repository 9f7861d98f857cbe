package password

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const phcAlgorithm = "argon2id"

// Stored hashes come from the directory, so the decoder bounds the cost it is
// willing to pay for a single Verify.
const (
	maxMemoryKB  uint32 = 1 << 20
	maxTimeCost  uint32 = 64
	maxKeyLength        = 1024
)

var errMalformedHash = errors.New("password: malformed argon2id hash")

// params is the cost triple carried in the PHC parameter segment.
type params struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

// phcHash is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phcHash struct {
	params
	salt []byte
	key  []byte
}

func (h phcHash) String() string {
	var b strings.Builder
	b.WriteString("$" + phcAlgorithm)
	b.WriteString("$v=" + strconv.Itoa(argon2.Version))
	b.WriteString("$m=" + strconv.FormatUint(uint64(h.memory), 10))
	b.WriteString(",t=" + strconv.FormatUint(uint64(h.time), 10))
	b.WriteString(",p=" + strconv.FormatUint(uint64(h.parallelism), 10))
	b.WriteString("$" + base64.RawStdEncoding.EncodeToString(h.salt))
	b.WriteString("$" + base64.RawStdEncoding.EncodeToString(h.key))
	return b.String()
}

func decodePHC(encoded string) (phcHash, error) {
	var h phcHash

	segments := strings.Split(encoded, "$")
	if len(segments) != 6 || segments[0] != "" || segments[1] != phcAlgorithm {
		return h, errMalformedHash
	}
	if segments[2] != "v="+strconv.Itoa(argon2.Version) {
		return h, errMalformedHash
	}

	p, err := decodeParams(segments[3])
	if err != nil {
		return h, err
	}

	salt, err := decodeB64(segments[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return h, errMalformedHash
	}
	key, err := decodeB64(segments[5])
	if err != nil || len(key) < int(minKeyLength) || len(key) > maxKeyLength {
		return h, errMalformedHash
	}

	h.params = p
	h.salt = salt
	h.key = key
	return h, nil
}

// decodeParams requires each of m, t and p exactly once, in any order.
func decodeParams(segment string) (params, error) {
	var (
		p    params
		seen = map[string]bool{}
	)
	for _, field := range strings.Split(segment, ",") {
		name, value, ok := strings.Cut(field, "=")
		if !ok || seen[name] {
			return p, errMalformedHash
		}
		seen[name] = true

		switch name {
		case "m":
			v, err := parseBounded(value, 32, uint64(minMemoryKB), uint64(maxMemoryKB))
			if err != nil {
				return p, err
			}
			p.memory = uint32(v)
		case "t":
			v, err := parseBounded(value, 32, uint64(minTimeCost), uint64(maxTimeCost))
			if err != nil {
				return p, err
			}
			p.time = uint32(v)
		case "p":
			v, err := parseBounded(value, 8, uint64(minParallelism), 255)
			if err != nil {
				return p, err
			}
			p.parallelism = uint8(v)
		default:
			return p, errMalformedHash
		}
	}
	if len(seen) != 3 {
		return p, errMalformedHash
	}
	return p, nil
}

func parseBounded(s string, bits int, lo, hi uint64) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil || v < lo || v > hi {
		return 0, errMalformedHash
	}
	return v, nil
}

// decodeB64 accepts both unpadded (PHC) and padded base64.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
