package effects

import "errors"

// ErrUnrecognizedMIME is returned when a declared Content-Type is not in
// the supported set. The pipeline fails with this error before any stream
// or transcoder process is created.
var ErrUnrecognizedMIME = errors.New("effects: MIME type not recognized")

// MIMEDescription maps a MIME type to the file extension used for stored
// assets and the container format name the transcoder demuxes with. The
// two usually coincide; streaming containers (mpegts, dash) differ.
type MIMEDescription struct {
	Extension string
	Format    string
}

// Supported upload types. Video types are accepted because members upload
// clips ripped from videos; only the first audio stream is used.
var mimeTypes = map[string]MIMEDescription{
	"audio/mpeg": {Extension: "mp3", Format: "mp3"},
	"audio/mp4":  {Extension: "mp4", Format: "mp4"},
	"audio/ogg":  {Extension: "ogg", Format: "ogg"},
	"audio/opus": {Extension: "opus", Format: "opus"},
	"audio/wav":  {Extension: "wav", Format: "wav"},

	"video/mpeg":      {Extension: "mpeg", Format: "mpegts"},
	"video/mp4":       {Extension: "mp4", Format: "mp4"},
	"video/ogg":       {Extension: "ogg", Format: "ogg"},
	"video/quicktime": {Extension: "mov", Format: "mov"},
	"video/webm":      {Extension: "webm", Format: "dash"},
	"video/3gpp":      {Extension: "3gp", Format: "3gp"},
}

// DescribeMIME returns the extension and container format for mimeType.
// ok is false for unsupported types.
func DescribeMIME(mimeType string) (desc MIMEDescription, ok bool) {
	desc, ok = mimeTypes[mimeType]
	return desc, ok
}

// MIMEForExtension performs the reverse lookup: the MIME type whose
// description carries the given file extension. Extensions shared by an
// audio and a video type resolve to the audio one. ok is false when no
// supported type uses the extension.
func MIMEForExtension(ext string) (mimeType string, ok bool) {
	for mt, desc := range mimeTypes {
		if desc.Extension != ext {
			continue
		}
		// Lexicographic minimum keeps the result deterministic and sorts
		// audio/* before video/*.
		if mimeType == "" || mt < mimeType {
			mimeType = mt
		}
	}
	return mimeType, mimeType != ""
}
