//go:build !cgo || nolibraw

package libraw

var messages = map[Code]string{
	Success:                        "No error",
	UnspecifiedError:               "Unspecified error",
	FileUnsupported:                "Unsupported file format or not RAW file",
	RequestForNonexistentImage:     "Request for nonexisting image number",
	OutOfOrderCall:                 "Out of order call of libraw function",
	NoThumbnail:                    "No thumbnail in file",
	UnsupportedThumbnail:           "Unsupported thumbnail format",
	InputClosed:                    "No input stream, or input stream closed",
	NotImplemented:                 "Decoder not implemented for this data format",
	RequestForNonexistentThumbnail: "Request for nonexisting thumbnail number",
	InsufficientMemory:             "Not enough memory",
	DataError:                      "Corrupt data or unexpected EOF",
	IOError:                        "Input/output error",
	CancelledByCallback:            "Cancelled by user callback",
	BadCrop:                        "Bad crop box",
	TooBig:                         "Image too big for processing",
	MempoolOverflow:                "Libraw internal mempool overflowed",
}

// Strerror returns LibRaw's message for a status code.
func Strerror(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "Unknown error code"
}
