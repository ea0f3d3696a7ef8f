package format

import (
	"bufio"
	"bytes"
)

// magic holds the leading bytes of each compressed stream format.
var magic = map[Format][]byte{
	Gzip:  {0x1f, 0x8b},
	Bzip2: []byte("BZh"),
	Zstd:  {0x28, 0xb5, 0x2f, 0xfd},
	XZ:    {0xfd, '7', 'z', 'X', 'Z', 0x00},
}

// sniffOrder fixes the probe order so detection is deterministic.
var sniffOrder = []Format{Gzip, Bzip2, Zstd, XZ}

// hasMagic reports whether br starts with f's magic bytes.
func hasMagic(br *bufio.Reader, f Format) bool {
	want := magic[f]
	got, err := br.Peek(len(want))
	if err != nil {
		return false
	}
	return bytes.Equal(got, want)
}

// sniff returns the compression format br starts with, or Plain.
func sniff(br *bufio.Reader) Format {
	for _, f := range sniffOrder {
		if hasMagic(br, f) {
			return f
		}
	}
	return Plain
}
