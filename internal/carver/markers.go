package carver

// fileMarkers lists the byte signatures the carver looks for when deciding
// where a binary run begins or a text run resumes, in priority order: the
// first marker found in a chunk wins. Grounded on
// original_source/varc_core/utils/dumpfile_extraction.py's file_markers.
var fileMarkers = [][]byte{
	{0x7f, 0x45, 0x4c, 0x46, 0x02, 0x01, 0x01}, // ELF
	{0xff, 0xd8, 0xff, 0xe0},                   // JPEG
	{0x37, 0x7a, 0xbc, 0xaf, 0x27},             // 7z
	{0x41, 0x56, 0x49, 0x20},                   // AVI
	{0x42, 0x5a, 0x68},                         // BZ
	{0x50, 0x4b, 0x03, 0x04, 0x14},             // DOCX/ZIP-based
	{0xd0, 0xcf, 0x11, 0xe0, 0xa1},             // DOC (OLE)
	{0x89, 0x50, 0x4e, 0x47},                   // PNG
	{0x52, 0x61, 0x72, 0x21},                   // RAR
	{0x50, 0x4b, 0x30, 0x30},                   // ZIP
	{0x4d, 0x5a, 0x90, 0x00, 0x03},             // PE/EXE
	{0x30, 0x32, 0x31, 0x2d},                   // "021-" year hint
	{0x30, 0x32, 0x32, 0x2d},                   // "022-" year hint
	{0x45, 0x6c, 0x66, 0x43, 0x68, 0x6e, 0x6b}, // ElfChnk EVT
	{0x2a, 0x2a, 0x00, 0x00},                   // EVTX chunk
	{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, // PNG (full)
	{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1},             // DOC (OLE, full)
	{0x21, 0x42, 0x4e, 0xa5, 0x6f, 0xb5, 0xa6},       // PST
	{0x3c, 0x68, 0x74, 0x6d},                         // <htm
	{0x3c, 0x48, 0x54, 0x4d},                         // <HTM
	{0x4c, 0x00, 0x00, 0x00, 0x01, 0x14, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0xc0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46}, // LNK
	{0x70, 0x6c, 0x69, 0x73, 0x74}, // plist
}
