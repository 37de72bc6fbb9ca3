package snapshot

import (
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// Codec selects the compression of a snapshot stream.
type Codec byte

const (
	Snappy Codec = 1
	LZ4    Codec = 2
)

var ErrUnknownCodec = errors.New("unknown snapshot codec")

// ParseCodec maps a configuration name to a Codec.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "snappy", "":
		return Snappy, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, errors.Wrapf(ErrUnknownCodec, "%q", name)
	}
}

func (c Codec) String() string {
	switch c {
	case Snappy:
		return "snappy"
	case LZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

func (c Codec) valid() bool {
	return c == Snappy || c == LZ4
}

func (c Codec) newWriter(w io.Writer) io.WriteCloser {
	if c == LZ4 {
		return lz4.NewWriter(w)
	}
	return snappy.NewBufferedWriter(w)
}

func (c Codec) newReader(r io.Reader) (io.Reader, error) {
	switch c {
	case Snappy:
		return snappy.NewReader(r), nil
	case LZ4:
		return lz4.NewReader(r), nil
	default:
		return nil, ErrUnknownCodec
	}
}
