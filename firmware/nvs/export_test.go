package nvs

import (
	"encoding/binary"
	"hash/crc32"
)

func fixHeaderCRC(hdr []byte) {
	binary.LittleEndian.PutUint32(hdr[headerLen-4:headerLen], crc32.ChecksumIEEE(hdr[:headerLen-4]))
}
