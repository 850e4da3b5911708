package capsara

import "strings"

// defaultMIMEType is used when a file's extension is not recognized (spec
// §4.3.f).
const defaultMIMEType = "application/octet-stream"

// mimeByExtension is a small, fixed extension-to-MIME-type table. Capsara
// does not depend on the OS's mime.types database since the server and
// every client must agree on exactly the same mapping.
var mimeByExtension = map[string]string{
	".txt":  "text/plain",
	".csv":  "text/csv",
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".json": "application/json",
	".xml":  "application/xml",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// detectMIMEType returns the MIME type for filename's extension, or
// defaultMIMEType if the extension is unrecognized or absent.
func detectMIMEType(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return defaultMIMEType
	}
	ext := strings.ToLower(filename[idx:])
	if mt, ok := mimeByExtension[ext]; ok {
		return mt
	}
	return defaultMIMEType
}
