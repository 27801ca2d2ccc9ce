package sealed

import "errors"

var (
	// ErrIntegrity means chain verification found an entry whose hash does
	// not match its content and predecessor.
	ErrIntegrity = errors.New("audit chain integrity violation")

	// ErrSeqConflict means a concurrent writer claimed the next sequence
	// number for the shard. Appends retry on it.
	ErrSeqConflict = errors.New("audit sequence conflict")

	// ErrShardEmpty is returned when verifying a shard with no entries.
	ErrShardEmpty = errors.New("audit shard is empty")
)
