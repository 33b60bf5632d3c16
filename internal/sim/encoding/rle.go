package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE packs a row-major sequence of material ids into base64(varint
// pairs). The pairs are (material_id, run_len) repeated; settled terrain is
// mostly long runs, so this is what goes over the sync wire.
func EncodeRLE(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(ids) {
		m := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == m && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(m))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func DecodeRLE(b64 string) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint16
	for i := 0; i < len(raw); {
		m, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if m > 0xFFFF {
			return nil, fmt.Errorf("material id too large: %d", m)
		}
		for k := 0; k < int(run); k++ {
			out = append(out, uint16(m))
		}
	}
	return out, nil
}
