package sciencebase

import (
	"mime"
	"path"

	"github.com/gabriel-vasile/mimetype"
)

// guessContentType uses the extension first and falls back to sniffing the
// content. It never returns "".
func guessContentType(filename string, data []byte) string {
	if ext := path.Ext(filename); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			if mt, _, err := mime.ParseMediaType(t); err == nil {
				return mt
			}
			return t
		}
	}
	return mimetype.Detect(data).String()
}
