package tally

// These variables will be linked in at build time
var (
	BuildDate string
	Commit    string
	Version   string
)

// ProtocolVersion of the mix-decrypt payloads
const ProtocolVersion = "1.0"
