package slack

// Export internal functions for testing
var (
	TruncateToMaxBytes = truncateToMaxBytes
	BuildBlocks        = buildBlocks
)

// MaxSectionTextBytes is exported for testing
const MaxSectionTextBytes = maxSectionTextBytes
