package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// Concatenate appends the frames of every input, in order, into dst using the
// first input's format parameters.
//
// All inputs are opened and checked before dst is touched. Any input whose
// parameters differ from the first fails with ErrFormatMismatch, and an input
// that cannot be opened fails with ErrMissingFile. The output is staged in a
// temporary file and only renamed over dst on success, so a failed call never
// leaves a partial file at dst.
func Concatenate(paths []string, dst string) (Info, error) {
	if len(paths) == 0 {
		return Info{}, ErrNoInput
	}

	files := make([]*os.File, 0, len(paths))
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	decoders := make([]*wav.Decoder, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return Info{}, fmt.Errorf("%w: %s: %v", ErrMissingFile, path, err)
		}
		files = append(files, f)

		dec := wav.NewDecoder(f)
		if !dec.IsValidFile() {
			return Info{}, fmt.Errorf("%w: %s", ErrInvalidFile, path)
		}
		decoders = append(decoders, dec)
	}

	params := paramsOf(decoders[0])
	if params.AudioFormat != FormatPCM {
		return Info{}, fmt.Errorf("%w: %s uses format %d", ErrUnsupportedFormat, paths[0], params.AudioFormat)
	}
	for i, dec := range decoders[1:] {
		if got := paramsOf(dec); got != params {
			return Info{}, fmt.Errorf("%w: %s is %s, expected %s", ErrFormatMismatch, paths[i+1], got, params)
		}
	}

	info := Info{Params: params}
	err := writeAtomic(dst, params, func(enc *wav.Encoder) error {
		for i, dec := range decoders {
			buf, err := dec.FullPCMBuffer()
			if err != nil {
				return fmt.Errorf("read %s: %w", paths[i], err)
			}
			if err := enc.Write(buf); err != nil {
				return err
			}
			info.Frames += len(buf.Data) / params.Channels
		}
		return nil
	})
	if err != nil {
		return Info{}, err
	}
	return info, nil
}
