// Licensed to Elasticsearch B.V. under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Elasticsearch B.V. licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package streams

import (
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"

	"github.com/awslabs/mlio-go/internal/memory"
	"github.com/awslabs/mlio-go/internal/mlioerr"
)

// Encoding names the text encodings recognized explicitly; anything else
// is looked up via golang.org/x/text/encoding's IANA name table.
type Encoding string

const (
	EncodingUTF8    Encoding = "utf-8"
	EncodingASCII   Encoding = "ascii"
	EncodingUTF16LE Encoding = "utf-16le"
	EncodingUTF16BE Encoding = "utf-16be"
	EncodingUTF32LE Encoding = "utf-32le"
	EncodingUTF32BE Encoding = "utf-32be"
)

const chunkSize = 32 << 20 // 32 MiB conversion chunks

// Utf8Stream wraps an inner Stream and an optional declared encoding,
// presenting UTF-8 bytes to the caller regardless of the source encoding.
type Utf8Stream struct {
	inner    Stream
	declared Encoding
	decoder  *encoding.Decoder
	detected bool
	leftover []byte // decoded UTF-8 bytes not yet consumed by Read
	carry    []byte // undecoded tail bytes from the previous chunk
	atEOF    bool
}

// NewUtf8Stream wraps inner. If declared is empty, the encoding is
// detected from a BOM on first read, defaulting to UTF-8 when none is
// present.
func NewUtf8Stream(inner Stream, declared Encoding) *Utf8Stream {
	return &Utf8Stream{inner: inner, declared: declared}
}

func (s *Utf8Stream) Read(p []byte) (int, error) {
	if !s.detected {
		if err := s.detectEncoding(); err != nil {
			return 0, err
		}
	}

	for len(s.leftover) == 0 && !s.atEOF {
		if err := s.fill(); err != nil {
			return 0, err
		}
	}

	if len(s.leftover) == 0 {
		return 0, nil
	}

	n := copy(p, s.leftover)
	s.leftover = s.leftover[n:]
	return n, nil
}

// fill reads and decodes one chunk, appending its UTF-8 output to leftover.
func (s *Utf8Stream) fill() error {
	buf := make([]byte, chunkSize)
	n, err := s.inner.Read(buf)
	if err != nil {
		return err
	}
	if n == 0 {
		s.atEOF = true
		if len(s.carry) > 0 {
			return mlioerr.StreamError("truncated multi-byte sequence at end of stream", nil)
		}
		return nil
	}

	raw := append(s.carry, buf[:n]...)
	s.carry = nil

	if s.decoder == nil {
		// Declared/detected as UTF-8 or ASCII: pass through unchanged.
		s.leftover = append(s.leftover, raw...)
		return nil
	}

	decoded, consumed, err := decodeAvailable(s.decoder, raw)
	if err != nil {
		return mlioerr.StreamError("invalid byte sequence for the declared encoding", err)
	}
	s.leftover = append(s.leftover, decoded...)
	s.carry = append(s.carry, raw[consumed:]...)
	return nil
}

// decodeAvailable decodes as much of raw as forms complete code units,
// returning the UTF-8 output and how many input bytes were consumed; the
// remainder is carried over to the next chunk.
func decodeAvailable(dec *encoding.Decoder, raw []byte) ([]byte, int, error) {
	// Transform with atEOF false so a short, dangling tail (a partial
	// UTF-16/32 code unit at the chunk boundary) is reported as
	// ErrShortSrc and left unconsumed rather than failing the whole chunk.
	// No supported encoding yields more than three UTF-8 bytes per input
	// byte.
	out := make([]byte, 3*len(raw)+4)
	nDst, nSrc, err := dec.Transform(out, raw, false)
	if err == transform.ErrShortSrc {
		err = nil
	}
	return out[:nDst], nSrc, err
}

func (s *Utf8Stream) detectEncoding() error {
	s.detected = true

	if s.declared != "" {
		s.decoder = decoderFor(s.declared)
		return nil
	}

	peek := make([]byte, 4)
	n, err := s.inner.Read(peek)
	if err != nil {
		return err
	}
	peek = peek[:n]

	enc, bomLen := detectBOM(peek)
	if enc != "" {
		s.decoder = decoderFor(enc)
		s.carry = append([]byte(nil), peek[bomLen:]...)
		return nil
	}

	// No BOM, no declared encoding: assume UTF-8, and treat whatever we
	// peeked as already-UTF-8 carry.
	s.decoder = nil
	s.leftover = append(s.leftover, peek...)
	return nil
}

func detectBOM(b []byte) (Encoding, int) {
	switch {
	case len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF:
		return EncodingUTF8, 3
	case len(b) >= 4 && b[0] == 0xFF && b[1] == 0xFE && b[2] == 0x00 && b[3] == 0x00:
		return EncodingUTF32LE, 4
	case len(b) >= 4 && b[0] == 0x00 && b[1] == 0x00 && b[2] == 0xFE && b[3] == 0xFF:
		return EncodingUTF32BE, 4
	case len(b) >= 2 && b[0] == 0xFF && b[1] == 0xFE:
		return EncodingUTF16LE, 2
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		return EncodingUTF16BE, 2
	default:
		return "", 0
	}
}

func decoderFor(enc Encoding) *encoding.Decoder {
	switch enc {
	case EncodingUTF8, EncodingASCII:
		return nil
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	case EncodingUTF32LE:
		return utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM).NewDecoder()
	case EncodingUTF32BE:
		return utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM).NewDecoder()
	default:
		// Fall back to the IANA name table in golang.org/x/text for any
		// other declared legacy encoding (latin-1, shift-jis, and so on).
		if e, err := ianaindex.IANA.Encoding(string(enc)); err == nil && e != nil {
			return e.NewDecoder()
		}
		return nil
	}
}

func (s *Utf8Stream) ReadSlice(n int) (memory.Slice, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(iofy(s), buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return memory.Slice{}, err
	}
	return memory.NewSlice(memory.NewBlock(buf[:read])), nil
}

func (s *Utf8Stream) Seek(pos int64) error {
	if pos != 0 {
		return mlioerr.NotSupportedError("utf8 stream only supports rewinding to the start")
	}
	if err := s.inner.Seek(0); err != nil {
		return err
	}
	s.detected = false
	s.decoder = nil
	s.leftover = nil
	s.carry = nil
	s.atEOF = false
	return nil
}

func (s *Utf8Stream) Size() (int64, bool)    { return 0, false }
func (s *Utf8Stream) Position() int64        { return s.inner.Position() }
func (s *Utf8Stream) Seekable() bool         { return false }
func (s *Utf8Stream) SupportsZeroCopy() bool { return false }
func (s *Utf8Stream) Close() error           { return s.inner.Close() }

func iofy(s *Utf8Stream) io.Reader { return ReaderFrom{S: s} }
