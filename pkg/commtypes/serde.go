//go:generate stringer -type=SerdeFormat
package commtypes

import (
	"strings"

	"mq-pipeline-bench/pkg/common_errors"

	"golang.org/x/xerrors"
)

type SerdeFormat uint8

const (
	JSON SerdeFormat = 0
	MSGP SerdeFormat = 1
)

func (f SerdeFormat) String() string {
	switch f {
	case JSON:
		return "json"
	case MSGP:
		return "msgp"
	default:
		return "unknown"
	}
}

type EncoderG[V any] interface {
	Encode(v V) ([]byte, error)
}

type DecoderG[V any] interface {
	Decode([]byte) (V, error)
}

type SerdeG[V any] interface {
	EncoderG[V]
	DecoderG[V]
}

// StringToSerdeFormat maps the configuration spelling of a wire format.
// Unknown names are an error, never a silent JSON fallback.
func StringToSerdeFormat(format string) (SerdeFormat, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return JSON, nil
	case "msgp":
		return MSGP, nil
	default:
		return JSON, xerrors.Errorf("%q: %w", format, common_errors.ErrUnrecognizedSerdeFormat)
	}
}
