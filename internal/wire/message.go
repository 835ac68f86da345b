// Package wire implements the bidirectional streaming protocol between an
// OCR client and the server: one TCP connection per session, carrying many
// ImageRequest frames in one direction and many OCRResult frames in the
// other, matched by image_id rather than by position.
//
// There is no generated protobuf stub backing this package — see
// DESIGN.md for why framing is hand-rolled on top of encoding/gob instead.
package wire

// ImageRequest is one inbound image submitted for recognition.
//
// ImageID is opaque to the server: it is never parsed or generated here,
// only echoed back on the matching OCRResult.
type ImageRequest struct {
	ImageID   string
	Filename  string
	ImageData []byte
}

// OCRResult is one outbound recognition result, always carrying the
// ImageID of the request it answers.
type OCRResult struct {
	ImageID       string
	ExtractedText string
	Success       bool
	ErrorMessage  string
}

// Known error messages. These are the exact strings spec.md §7 requires;
// callers should not construct ad-hoc variants.
const (
	ErrEmptyImageData = "empty image data"
	ErrOverloaded     = "server memory limit exceeded"
	ErrDecodeFailed   = "decode failed"
	ErrEmptyResult    = "ocr failed to extract text"
)

// EngineFailureMessage formats the EngineFailure error kind from spec.md §7.
func EngineFailureMessage(detail string) string {
	return "ocr engine error: " + detail
}
