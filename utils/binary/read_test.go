package binary

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/go-pack/packcheck/plumbing"
)

type BinarySuite struct {
	suite.Suite
}

func TestBinarySuite(t *testing.T) {
	suite.Run(t, new(BinarySuite))
}

func (s *BinarySuite) TestReadVariableWidthInt() {
	buf := bytes.NewBuffer([]byte{129, 110})

	i, err := ReadVariableWidthInt(buf)
	s.NoError(err)
	s.Equal(int64(366), i)
}

func (s *BinarySuite) TestReadVariableWidthIntShort() {
	buf := bytes.NewBuffer([]byte{19})

	i, err := ReadVariableWidthInt(buf)
	s.NoError(err)
	s.Equal(int64(19), i)
}

func (s *BinarySuite) TestReadVariableWidthIntRoundTrip() {
	for _, n := range []int64{0, 1, 127, 128, 366, 1 << 14, 1 << 31} {
		buf := bytes.NewBuffer(nil)
		err := WriteVariableWidthInt(buf, n)
		s.NoError(err)

		i, err := ReadVariableWidthInt(buf)
		s.NoError(err)
		s.Equal(n, i)
	}
}

func (s *BinarySuite) TestReadUint32() {
	buf := bytes.NewBuffer(nil)
	err := binary.Write(buf, binary.BigEndian, uint32(42))
	s.NoError(err)

	i32, err := ReadUint32(buf)
	s.NoError(err)
	s.Equal(uint32(42), i32)
}

func (s *BinarySuite) TestReadHash() {
	expected := plumbing.NewHash("43aec75c611f22c73b27ece2841e6ccca592f285")
	buf := bytes.NewBuffer(expected[:])

	h, err := ReadHash(buf)
	s.NoError(err)
	s.Equal(expected, h)
}
