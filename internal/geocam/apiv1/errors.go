package apiv1

import (
	"errors"
	"net/http"

	"geocam/internal/geocam/codec"
	"geocam/internal/geocam/stego"
	"geocam/internal/geocam/workerpool"
	"geocam/pkg/helpers"
)

// classifyCodecError maps a codec/workerpool failure onto the HTTP-facing error
// vocabulary (ORIGINAL §7 "Kinds").
func classifyCodecError(err error) error {
	switch {
	case errors.Is(err, workerpool.ErrQueueFull):
		return helpers.ErrServerBusy
	case errors.Is(err, codec.ErrDimensionsTooLarge):
		return helpers.ErrDimensionsTooLarge
	case errors.Is(err, codec.ErrDimensionsTooSmall):
		return helpers.ErrDimensionsTooSmall
	case errors.Is(err, codec.ErrBadMagic),
		errors.Is(err, codec.ErrUnsupportedColorType),
		errors.Is(err, codec.ErrTruncatedChunk),
		errors.Is(err, codec.ErrCrcMismatch),
		errors.Is(err, codec.ErrMissingIHDR),
		errors.Is(err, codec.ErrMissingIDAT),
		errors.Is(err, codec.ErrInvalidFilter):
		return helpers.NewErrorStatus("invalid_image", http.StatusBadRequest)
	default:
		return helpers.ErrInternalServerError
	}
}

// classifyStegoError maps a steganography-layer failure onto the HTTP-facing error
// vocabulary.
func classifyStegoError(err error) error {
	switch {
	case errors.Is(err, stego.ErrPayloadTooLarge):
		return helpers.ErrPayloadTooLarge
	case errors.Is(err, stego.ErrFrameTooLarge):
		return helpers.ErrFrameTooLarge
	case errors.Is(err, stego.ErrDelimiterNotFound):
		return helpers.NewErrorStatus("no_basic_info", http.StatusBadRequest)
	case errors.Is(err, stego.ErrNoMagic), errors.Is(err, stego.ErrLengthOutOfRange):
		return helpers.NewErrorStatus("malformed_frame", http.StatusBadRequest)
	default:
		return helpers.ErrInternalServerError
	}
}
