package flow

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/rtm0/winds/internal/errs"
)

// FloTag opens every Middlebury .flo file.
const FloTag = "PIEH"

// ReadFloFile reads a Middlebury .flo file.
func ReadFloFile(path string, logger *slog.Logger) (*Field, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	field, err := ReadFlo(bufio.NewReader(f), logger)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return field, nil
}

// ReadFlo decodes a .flo stream: the tag, int32 width and height, then a
// little-endian float32 (i, j) pair per pixel in row-major order. A header
// shape that does not match the data is ignored.
func ReadFlo(r io.Reader, logger *slog.Logger) (*Field, error) {
	var header struct {
		Tag    [4]byte
		Width  int32
		Height int32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, errs.Errorf(errs.EINVALID, "displacement file is too short for a header")
	}
	if string(header.Tag[:]) != FloTag {
		return nil, errs.Errorf(errs.EINVALID, "displacement file has tag %q, want %q", header.Tag[:], FloTag)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data)%8 != 0 {
		return nil, errs.Errorf(errs.EINVALID, "displacement file ends in a partial pixel")
	}
	n := len(data) / 8
	field := &Field{J: make([]float64, n), I: make([]float64, n)}
	for k := 0; k < n; k++ {
		field.I[k] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[8*k:])))
		field.J[k] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[8*k+4:])))
	}

	w, h := int(header.Width), int(header.Height)
	if w > 0 && h > 0 && w*h == n {
		field.Height, field.Width = h, w
	} else {
		logger.Warn("Ignoring .flo header shape that does not match the data", "width", w, "height", h, "pixels", n)
	}
	return field, nil
}

// WriteFlo encodes field as a .flo stream. The field must have a shape.
func WriteFlo(w io.Writer, field *Field) error {
	if field.Shape() == nil || field.Height*field.Width != field.Len() {
		return errs.Errorf(errs.EINVALID, "cannot write displacements of size %d with shape %v", field.Len(), field.Shape())
	}
	bw := bufio.NewWriter(w)
	header := struct {
		Tag    [4]byte
		Width  int32
		Height int32
	}{Width: int32(field.Width), Height: int32(field.Height)}
	copy(header.Tag[:], FloTag)
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return err
	}
	buf := make([]byte, 8)
	for k := range field.J {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(field.I[k])))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(field.J[k])))
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFloFile writes field to path as a .flo file.
func WriteFloFile(path string, field *Field) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return WriteFlo(f, field)
}
