package analyzer

import (
	"github.com/barasher/go-exiftool"

	"productauth/logging"
	"productauth/types"
)

// metadataReader enriches report metadata with the native format name
// read through exiftool. Absence of the exiftool binary degrades
// silently: the decode-derived metadata is already complete.
type metadataReader struct {
	et *exiftool.Exiftool
}

func newMetadataReader() *metadataReader {
	et, err := exiftool.NewExiftool()
	if err != nil {
		logging.DebugLog("exiftool unavailable, skipping format metadata: %v", err)
		return &metadataReader{}
	}
	return &metadataReader{et: et}
}

func (r *metadataReader) Close() {
	if r.et != nil {
		r.et.Close()
	}
}

func (r *metadataReader) enrich(meta types.ImageMetadata) types.ImageMetadata {
	if r.et == nil {
		return meta
	}

	for _, fm := range r.et.ExtractMetadata(meta.Path) {
		if fm.Err != nil {
			continue
		}
		if format, err := fm.GetString("FileType"); err == nil {
			meta.Format = format
		}
	}
	return meta
}
