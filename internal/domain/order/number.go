package order

import (
	"encoding/binary"
	"errors"
	"io"
	"strconv"
)

// numberDraws bounds GenerateNumber. Roughly one draw in 310 yields twelve
// digits, so exhausting it is practically impossible with a real random source.
const numberDraws = 1 << 16

var ErrNumberGeneration = errors.New("could not generate an order number")

// GenerateNumber reads 6 random bytes as an integer and formats it as three
// dash separated groups of four digits, e.g. 6769-2583-4952. Draws that do not
// produce exactly twelve digits are discarded.
func GenerateNumber(random io.Reader) (string, error) {
	var buf [8]byte
	for i := 0; i < numberDraws; i++ {
		if _, err := io.ReadFull(random, buf[2:]); err != nil {
			return "", err
		}
		digits := strconv.FormatUint(binary.BigEndian.Uint64(buf[:]), 10)
		if len(digits) != 12 {
			continue
		}
		return digits[0:4] + "-" + digits[4:8] + "-" + digits[8:12], nil
	}
	return "", ErrNumberGeneration
}
