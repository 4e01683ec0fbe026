package pack

import (
	"encoding/json"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
)

// schemaVersion is encoded as the first field of the payload so a decoder
// can fail cleanly on a pack produced by an incompatible future version.
const schemaVersion = 1

// DefaultLevel is the compression level used by EncodeDefault.
const DefaultLevel = 19

// envelope is the structure actually serialized to JSON before
// compression. SchemaVersion is declared first so it is also the first
// field in the encoded JSON object.
type envelope struct {
	SchemaVersion int  `json:"schema_version"`
	Blob          Blob `json:"blob"`
}

// Encode serializes blob deterministically and compresses it at the given
// zstd level (1-22). Equal blobs at the same level always produce
// byte-identical output.
func Encode(blob Blob, level int) ([]byte, error) {
	if err := blob.Validate(); err != nil {
		return nil, err
	}
	canon := canonicalize(blob)

	payload, err := json.Marshal(envelope{SchemaVersion: schemaVersion, Blob: canon})
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.Internal, "marshal pack payload", err)
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstdLevel(level)),
		zstd.WithEncoderConcurrency(1), // determinism: no goroutine-scheduling-dependent block boundaries
	)
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.Internal, "init compressor", err)
	}
	defer enc.Close()

	return enc.EncodeAll(payload, nil), nil
}

// EncodeDefault encodes at DefaultLevel.
func EncodeDefault(blob Blob) ([]byte, error) {
	return Encode(blob, DefaultLevel)
}

// Decode decompresses and parses a pack blob, returning the exact
// structure that was encoded.
func Decode(data []byte) (Blob, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return Blob{}, atlaserr.Wrap(atlaserr.Internal, "init decompressor", err)
	}
	defer dec.Close()

	payload, err := dec.DecodeAll(data, nil)
	if err != nil {
		return Blob{}, atlaserr.Wrap(atlaserr.Decode, "decompress pack blob", err)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Blob{}, atlaserr.Wrap(atlaserr.Decode, "parse pack payload", err)
	}
	if env.SchemaVersion != schemaVersion {
		return Blob{}, atlaserr.Newf(atlaserr.Decode, "unsupported pack schema version %d", env.SchemaVersion)
	}
	if err := env.Blob.Validate(); err != nil {
		return Blob{}, atlaserr.Wrap(atlaserr.Decode, "decoded pack failed validation", err)
	}
	return env.Blob, nil
}

// canonicalize returns a copy of blob with Files sorted by path, giving a
// BTreeMap-style ordering so that equal blobs encode to equal bytes
// regardless of caller-supplied file order.
func canonicalize(blob Blob) Blob {
	files := make([]File, len(blob.Files))
	copy(files, blob.Files)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	blob.Files = files
	return blob
}

func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 9:
		return zstd.SpeedDefault
	case level <= 19:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}
