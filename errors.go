package transread

import (
	"errors"

	"github.com/discochess/transread/internal/format"
	"github.com/discochess/transread/internal/seek"
	"github.com/discochess/transread/internal/transport"
)

// Sentinel errors for well-defined error conditions. Match them with
// errors.Is; returned errors wrap them with the resource name and cause.
var (
	// ErrInvalidSeekMode indicates a whence other than io.SeekStart or
	// io.SeekCurrent on a stream without native seeking.
	ErrInvalidSeekMode = seek.ErrInvalidWhence

	// ErrBackwardSeek indicates a seek before the current position on a
	// stream without native seeking.
	ErrBackwardSeek = seek.ErrBackward

	// ErrResourceOpen indicates a local path that exists but cannot be read.
	ErrResourceOpen = transport.ErrResourceOpen

	// ErrRemoteOpen indicates a URL that cannot be fetched.
	ErrRemoteOpen = transport.ErrRemoteOpen

	// ErrToolMissing indicates that ssh or sshpass is not installed.
	ErrToolMissing = transport.ErrToolMissing

	// ErrConnect indicates a failed SSH connectivity probe. The error is a
	// *ConnectError carrying the exit code and its decoded reason.
	ErrConnect = transport.ErrConnect

	// ErrRemoteUnreadable indicates a remote path that is not a readable
	// regular file.
	ErrRemoteUnreadable = transport.ErrRemoteUnreadable

	// ErrCorruptArchive indicates a compressed or archived resource whose
	// headers cannot be decoded.
	ErrCorruptArchive = format.ErrCorrupt

	// ErrTempFile indicates a failure creating or reopening a local copy.
	ErrTempFile = errors.New("transread: cannot create local copy")

	// ErrUnsupportedOperation indicates a capability the reader does not
	// have in its current state.
	ErrUnsupportedOperation = errors.New("transread: unsupported operation")

	// ErrClosed indicates use of a closed reader.
	ErrClosed = errors.New("transread: reader closed")
)

// ConnectError reports a failed SSH connectivity probe.
type ConnectError = transport.ConnectError
