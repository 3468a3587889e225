package archive

import "errors"

var (
	ErrInvalidFolder     = errors.New("invalid folder identifier")
	ErrInvalidArchive    = errors.New("invalid or corrupt zip archive")
	ErrArchiveTooLarge   = errors.New("archive exceeds size limit")
	ErrEntryTooLarge     = errors.New("archive entry exceeds size limit")
	ErrTooManyEntries    = errors.New("archive has too many entries")
	ErrUnsafePath        = errors.New("archive entry escapes destination directory")
	ErrDestinationExists = errors.New("destination directory already exists")
)
