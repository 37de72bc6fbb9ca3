// Package snapshot saves and restores compressed copies of a table file.
//
// A snapshot file is a fixed header followed by the compressed image:
//
//	offset  width  field
//	0       4      magic "RSNP"
//	4       1      codec id
//	5       8      image length, uint64 little-endian
//	13      8      image xxhash64, uint64 little-endian
//	21      ...    compressed image stream
//
// The image is exactly what the table leaves on disk after a clean close.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xrowstore/logger"
	"github.com/zhukovaskychina/xrowstore/util"
)

const headerSize = 21

var magic = [4]byte{'R', 'S', 'N', 'P'}

var (
	ErrBadMagic         = errors.New("not a snapshot file")
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	ErrLengthMismatch   = errors.New("snapshot length mismatch")
)

// Manifest describes a saved snapshot.
type Manifest struct {
	Path     string
	Codec    Codec
	Length   uint64
	Checksum uint64
}

type header struct {
	codec    Codec
	length   uint64
	checksum uint64
}

func (h header) marshal() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic[:])
	buf[4] = byte(h.codec)
	binary.LittleEndian.PutUint64(buf[5:13], h.length)
	binary.LittleEndian.PutUint64(buf[13:21], h.checksum)
	return buf
}

func unmarshalHeader(buf []byte) (header, error) {
	if len(buf) < headerSize || !bytes.Equal(buf[0:4], magic[:]) {
		return header{}, ErrBadMagic
	}
	h := header{
		codec:    Codec(buf[4]),
		length:   binary.LittleEndian.Uint64(buf[5:13]),
		checksum: binary.LittleEndian.Uint64(buf[13:21]),
	}
	if !h.codec.valid() {
		return header{}, errors.Wrapf(ErrUnknownCodec, "codec id %d", buf[4])
	}
	return h, nil
}

// Save compresses the image produced by src into a new snapshot at path.
func Save(path string, src io.WriterTo, codec Codec) (*Manifest, error) {
	if !codec.valid() {
		return nil, ErrUnknownCodec
	}

	var h header
	h.codec = codec
	err := util.WriteFileAtomic(path, func(f *os.File) error {
		if _, err := f.Write(make([]byte, headerSize)); err != nil {
			return errors.Wrap(err, "write snapshot header")
		}

		cw := codec.newWriter(f)
		sum := util.NewHash64()
		n, err := src.WriteTo(io.MultiWriter(cw, sum))
		if err != nil {
			cw.Close()
			return errors.Wrap(err, "write snapshot image")
		}
		if err := cw.Close(); err != nil {
			return errors.Wrap(err, "finish snapshot stream")
		}

		h.length = uint64(n)
		h.checksum = sum.Sum64()
		if _, err := f.WriteAt(h.marshal(), 0); err != nil {
			return errors.Wrap(err, "write snapshot header")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("saved %s snapshot %s: %d bytes, checksum %s", codec, path, h.length, util.FormatChecksum(h.checksum))
	return &Manifest{Path: path, Codec: codec, Length: h.length, Checksum: h.checksum}, nil
}

// Inspect reads the header of a snapshot without decompressing it.
func Inspect(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open snapshot %s", path)
	}
	defer f.Close()

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, errors.Wrapf(ErrBadMagic, "%s: %v", path, err)
	}
	h, err := unmarshalHeader(buf)
	if err != nil {
		return nil, err
	}
	return &Manifest{Path: path, Codec: h.codec, Length: h.length, Checksum: h.checksum}, nil
}

// Restore decompresses the snapshot at snapshotPath into dataPath. The image
// is verified against the recorded length and checksum before dataPath is
// replaced; on any failure dataPath is left untouched. The table at dataPath
// must not be open.
func Restore(snapshotPath, dataPath string) (*Manifest, error) {
	f, err := os.Open(snapshotPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open snapshot %s", snapshotPath)
	}
	defer f.Close()

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, errors.Wrapf(ErrBadMagic, "%s: %v", snapshotPath, err)
	}
	h, err := unmarshalHeader(buf)
	if err != nil {
		return nil, err
	}

	err = util.WriteFileAtomic(dataPath, func(out *os.File) error {
		cr, err := h.codec.newReader(f)
		if err != nil {
			return err
		}
		sum := util.NewHash64()
		// one extra byte detects an image longer than recorded
		n, err := io.Copy(io.MultiWriter(out, sum), io.LimitReader(cr, int64(h.length)+1))
		if err != nil {
			return errors.Wrap(err, "decompress snapshot")
		}
		if uint64(n) != h.length {
			return errors.Wrapf(ErrLengthMismatch, "got %d bytes, want %d", n, h.length)
		}
		if got := sum.Sum64(); got != h.checksum {
			return errors.Wrapf(ErrChecksumMismatch, "got %s, want %s",
				util.FormatChecksum(got), util.FormatChecksum(h.checksum))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("restored snapshot %s into %s (%d bytes)", snapshotPath, dataPath, h.length)
	return &Manifest{Path: snapshotPath, Codec: h.codec, Length: h.length, Checksum: h.checksum}, nil
}
